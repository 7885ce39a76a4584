package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prince4597/society-management-software-sub001/internal/logging"
	"github.com/prince4597/society-management-software-sub001/internal/route"
)

const defaultResolveTimeout = 10 * time.Second

// Provider is the backend identity contract.
type Provider interface {
	// Me resolves the current actor (GET /auth/me).
	Me(ctx context.Context) (*Identity, error)
	// Login exchanges credentials for an identity (POST /auth/login).
	Login(ctx context.Context, username, password string) (*Identity, error)
	// Logout ends the server-side session (POST /auth/logout).
	Logout(ctx context.Context) error
}

// Navigator moves the UI between routes.
type Navigator interface {
	Current() string
	IsPublic(path string) bool
	Navigate(path string)
}

// Reader is the read side of the store handed to consumers.
type Reader interface {
	State() State
	Subscribe(Listener) func()
}

// Options configures a Store.
type Options struct {
	Provider       Provider
	Navigator      Navigator
	Routes         route.Table
	ResolveTimeout time.Duration
	Logger         *zap.Logger
}

type listener struct {
	id uint64
	fn Listener
}

// Store owns the session state machine. Only its methods change the state;
// everything else reads snapshots or subscribes to transitions.
type Store struct {
	// emitMu serialises transitions so listeners observe them in order.
	emitMu sync.Mutex

	mu        sync.RWMutex
	state     State
	cycle     uint64
	listeners []listener
	nextID    uint64

	provider Provider
	nav      Navigator
	routes   route.Table
	timeout  time.Duration
	log      *zap.Logger
}

// NewStore creates a store in StatusIdle.
func NewStore(opts Options) *Store {
	if opts.Provider == nil {
		panic("session: NewStore requires a Provider")
	}
	if opts.Navigator == nil {
		panic("session: NewStore requires a Navigator")
	}
	timeout := opts.ResolveTimeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	return &Store{
		state:    State{Status: StatusIdle},
		provider: opts.Provider,
		nav:      opts.Navigator,
		routes:   opts.Routes,
		timeout:  timeout,
		log:      logging.OrNop(opts.Logger).Named("session"),
	}
}

// State returns a snapshot of the current session.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn for every subsequent transition and returns a
// function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Initialize performs the first identity resolution. It only acts from
// StatusIdle; later calls are no-ops.
func (s *Store) Initialize(ctx context.Context) {
	s.resolve(ctx, CauseInitialize, func(cur State) bool {
		return cur.Status == StatusIdle
	})
}

// Refresh re-resolves the identity. It is ignored while a resolution is
// already in flight.
func (s *Store) Refresh(ctx context.Context) {
	s.resolve(ctx, CauseRefresh, func(cur State) bool {
		return cur.Status != StatusLoading
	})
}

// Login installs an identity the login flow has already verified and
// redirects to the role's landing route. An invalid identity is a
// programming error.
func (s *Store) Login(identity Identity) {
	if !identity.Valid() {
		panic(fmt.Sprintf("session: Login called with invalid identity %+v", identity))
	}

	s.transition(CauseLogin, func(cur State, cycle *uint64) (State, bool) {
		*cycle++
		id := identity
		return State{Status: StatusAuthenticated, Identity: &id}, true
	})

	s.log.Info("signed in",
		zap.String("identity", identity.ID),
		zap.String("role", identity.Role))
	s.nav.Navigate(s.routes.LandingFor(identity.Role))
}

// LoginWithCredentials runs the full login flow: the credential exchange,
// then Login on success. On failure the state is left unchanged.
func (s *Store) LoginWithCredentials(ctx context.Context, username, password string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.provider.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if !id.Valid() {
		return ErrInvalidIdentity
	}
	s.Login(*id)
	return nil
}

// Logout ends the session. The backend call is best effort: its failure is
// logged and the local state is cleared regardless once it settles.
func (s *Store) Logout(ctx context.Context) {
	// Invalidate any resolution in flight before suspending on the
	// backend call, so a late answer cannot resurrect the session.
	s.mu.Lock()
	s.cycle++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.provider.Logout(ctx)
	cancel()
	if err != nil {
		s.log.Warn("logout request failed; clearing local session anyway", zap.Error(err))
	}

	s.transition(CauseLogout, func(cur State, cycle *uint64) (State, bool) {
		*cycle++
		return State{Status: StatusUnauthenticated}, true
	})

	s.log.Info("signed out")
	s.redirectToEntry()
}

func (s *Store) resolve(ctx context.Context, cause Cause, allowed func(State) bool) {
	var cycle uint64
	started := s.transition(cause, func(cur State, c *uint64) (State, bool) {
		if !allowed(cur) {
			return cur, false
		}
		*c++
		cycle = *c
		return State{Status: StatusLoading}, true
	})
	if !started {
		s.log.Debug("resolution skipped", zap.Stringer("cause", cause))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	id, err := s.provider.Me(ctx)
	cancel()
	if err == nil && !id.Valid() {
		err = ErrInvalidIdentity
	}

	var next State
	if err != nil {
		next = State{Status: StatusUnauthenticated, Err: err.Error()}
	} else {
		resolved := *id
		next = State{Status: StatusAuthenticated, Identity: &resolved}
	}

	applied := s.transition(cause, func(cur State, c *uint64) (State, bool) {
		if *c != cycle {
			return cur, false
		}
		return next, true
	})
	if !applied {
		s.log.Debug("discarding stale resolution", zap.Stringer("cause", cause))
		return
	}

	if err != nil {
		s.log.Info("identity resolution failed", zap.Stringer("cause", cause), zap.Error(err))
		s.redirectToEntry()
		return
	}
	s.log.Info("identity resolved",
		zap.Stringer("cause", cause),
		zap.String("identity", next.Identity.ID),
		zap.String("role", next.Identity.Role))
}

// transition applies fn atomically and, if it reports a change, delivers
// the transition to listeners before returning.
func (s *Store) transition(cause Cause, fn func(cur State, cycle *uint64) (State, bool)) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	prev := s.state
	next, ok := fn(prev, &s.cycle)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.state = next
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	t := Transition{Prev: prev.clone(), Next: next.clone(), Cause: cause}
	s.log.Debug("transition",
		zap.String("from", string(prev.Status)),
		zap.String("to", string(next.Status)),
		zap.Stringer("cause", cause))
	for _, l := range listeners {
		l.fn(t)
	}
	return true
}

func (s *Store) redirectToEntry() {
	if s.nav.IsPublic(s.nav.Current()) {
		return
	}
	s.nav.Navigate(s.routes.Entry)
}

type ctxKey struct{}

// WithStore returns a context carrying s.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the store installed by WithStore. Reading the session
// outside a context that carries one is a wiring bug, so it panics.
func FromContext(ctx context.Context) *Store {
	s, ok := ctx.Value(ctxKey{}).(*Store)
	if !ok || s == nil {
		panic("session: no Store in context")
	}
	return s
}
