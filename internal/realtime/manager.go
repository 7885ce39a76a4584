// Package realtime keeps the console's server-push channel in step with the
// session. A channel exists exactly while the session is authenticated: the
// Manager opens one when the session store reports an authenticated
// identity and closes it the moment the session leaves that state. There is
// no public connect or disconnect.
//
// Handlers run on the channel's read goroutine. They must not call session
// store operations synchronously; hand the work to another goroutine.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/prince4597/society-management-software-sub001/internal/logging"
	"github.com/prince4597/society-management-software-sub001/internal/session"
)

// Status is the connection health read model.
type Status struct {
	Connected bool
	Error     string
}

// Manager owns the single realtime channel. A channel exists exactly when
// the session is authenticated, as observed once the store operation that
// caused the transition has returned. The store publishes its new state
// before listeners run, so a reader on another goroutine can briefly see the
// new session state with the old channel.
type Manager struct {
	dialer Dialer
	policy Policy
	log    *zap.Logger

	mu        sync.RWMutex
	ch        *channel
	status    Status
	listeners []func(Status)
	closed    bool

	unsubscribe func()
}

// NewManager binds a manager to store. If the store is already
// authenticated the channel opens immediately.
func NewManager(store session.Reader, dialer Dialer, policy Policy, log *zap.Logger) *Manager {
	if store == nil || dialer == nil {
		panic("realtime: NewManager requires a session store and a dialer")
	}
	m := &Manager{
		dialer: dialer,
		policy: policy.withDefaults(),
		log:    logging.OrNop(log).Named("realtime"),
	}
	m.unsubscribe = store.Subscribe(m.onTransition)
	m.reconcile(store.State())
	return m
}

func (m *Manager) onTransition(t session.Transition) {
	m.reconcile(t.Next)
}

// reconcile makes the channel match st: open for an authenticated identity,
// replaced when the identity changes, closed otherwise.
func (m *Manager) reconcile(st session.State) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	var want *Handshake
	if st.Authenticated() {
		want = &Handshake{Role: st.Identity.Role, IdentityID: st.Identity.ID}
	}

	old := m.ch
	if old != nil && want != nil && old.hs == *want {
		m.mu.Unlock()
		return
	}
	if old == nil && want == nil {
		m.mu.Unlock()
		return
	}

	m.ch = nil
	var next *channel
	if want != nil {
		next = newChannel(*want, m.dialer, m.policy, m.log, m.onChannelStatus)
		m.ch = next
	}
	changed := m.setStatusLocked(Status{})
	listeners := m.listenersLocked()
	m.mu.Unlock()

	if old != nil {
		old.close()
		m.log.Info("realtime channel closed",
			zap.String("identity", old.hs.IdentityID),
			zap.String("session", string(st.Status)))
	}
	if next != nil {
		m.log.Info("realtime channel opening",
			zap.String("role", next.hs.Role),
			zap.String("identity", next.hs.IdentityID))
		next.start()
	}
	if changed {
		notify(listeners, Status{})
	}
}

func (m *Manager) onChannelStatus(ch *channel, connected bool, errMsg string) {
	m.mu.Lock()
	if m.ch != ch {
		m.mu.Unlock()
		return
	}
	st := Status{Connected: connected, Error: errMsg}
	changed := m.setStatusLocked(st)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	if changed {
		notify(listeners, st)
	}
}

func (m *Manager) setStatusLocked(st Status) bool {
	if m.status == st {
		return false
	}
	m.status = st
	return true
}

func (m *Manager) listenersLocked() []func(Status) {
	out := make([]func(Status), len(m.listeners))
	copy(out, m.listeners)
	return out
}

func notify(listeners []func(Status), st Status) {
	for _, fn := range listeners {
		fn(st)
	}
}

// On registers handler for a server-pushed event on the current channel and
// returns a function removing exactly that registration. Without a channel
// it registers nothing. A new sign-in creates a new channel, so callers
// re-register after each one.
func (m *Manager) On(event string, handler Handler) func() {
	m.mu.RLock()
	ch := m.ch
	m.mu.RUnlock()
	if ch == nil {
		return func() {}
	}
	return ch.on(event, handler)
}

// Emit sends a client event. It is dropped, not queued, when no connection
// is up; the return value reports whether it was written.
func (m *Manager) Emit(event string, payload any) bool {
	m.mu.RLock()
	ch := m.ch
	m.mu.RUnlock()
	if ch == nil {
		return false
	}

	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			m.log.Warn("realtime payload not encodable", zap.String("event", event), zap.Error(err))
			return false
		}
		data = b
	}
	return ch.emit(Envelope{Event: event, Data: data})
}

// SubscribeToRoom asks the server to push a room's events to this client.
func (m *Manager) SubscribeToRoom(room string) bool {
	return m.Emit(EventSubscribeRoom, RoomRequest{Room: room})
}

// UnsubscribeFromRoom stops a room's pushes.
func (m *Manager) UnsubscribeFromRoom(room string) bool {
	return m.Emit(EventUnsubscribeRoom, RoomRequest{Room: room})
}

// Status returns the current connection health.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Connected reports whether the transport is currently up.
func (m *Manager) Connected() bool {
	return m.Status().Connected
}

// ConnectionError returns the last surfaced connection failure, or "".
func (m *Manager) ConnectionError() string {
	return m.Status().Error
}

// HasChannel reports whether a channel exists (connected or not). It agrees
// with the session state after the transitioning store call returns.
func (m *Manager) HasChannel() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ch != nil
}

// OnStatus registers fn for connection health changes.
func (m *Manager) OnStatus(fn func(Status)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Close detaches from the session store and closes any channel. It is for
// process teardown; the manager is unusable afterwards.
func (m *Manager) Close() {
	m.unsubscribe()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	ch := m.ch
	m.ch = nil
	m.status = Status{}
	m.mu.Unlock()

	if ch != nil {
		ch.close()
	}
}
