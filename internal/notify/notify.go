// Package notify is the console's single transient-message surface. It can
// be driven directly (Success, Error, Info, Warning) or from the error bus
// through Bridge.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prince4597/society-management-software-sub001/internal/errbus"
	"github.com/prince4597/society-management-software-sub001/internal/logging"
)

const defaultDuration = 4 * time.Second

// Kind classifies a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// Toast is one visible message. ID is unique per toast; messages are not
// deduplicated.
type Toast struct {
	ID        string
	Message   string
	Kind      Kind
	Duration  time.Duration
	CreatedAt time.Time
}

// Options configures a Surface. Zero values select defaults.
type Options struct {
	DefaultDuration time.Duration
	// MaxVisible caps the stack; the oldest toast is dropped when a new one
	// would exceed it. Zero means unlimited.
	MaxVisible int
	Clock      Clock
	Logger     *zap.Logger
}

// Surface holds the live toasts in insertion order.
type Surface struct {
	mu         sync.Mutex
	toasts     []Toast
	timers     map[string]Timer
	listeners  map[uint64]func()
	nextListen uint64

	clock      Clock
	duration   time.Duration
	maxVisible int
	log        *zap.Logger
	newID      func() string
}

// New creates an empty surface.
func New(opts Options) *Surface {
	s := &Surface{
		timers:     make(map[string]Timer),
		listeners:  make(map[uint64]func()),
		clock:      opts.Clock,
		duration:   opts.DefaultDuration,
		maxVisible: opts.MaxVisible,
		log:        logging.OrNop(opts.Logger).Named("notify"),
		newID:      uuid.NewString,
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.duration <= 0 {
		s.duration = defaultDuration
	}
	return s
}

// Success shows a success toast. An optional positive duration overrides
// the default.
func (s *Surface) Success(message string, duration ...time.Duration) Toast {
	return s.Show(KindSuccess, message, duration...)
}

// Error shows an error toast.
func (s *Surface) Error(message string, duration ...time.Duration) Toast {
	return s.Show(KindError, message, duration...)
}

// Info shows an informational toast.
func (s *Surface) Info(message string, duration ...time.Duration) Toast {
	return s.Show(KindInfo, message, duration...)
}

// Warning shows a warning toast.
func (s *Surface) Warning(message string, duration ...time.Duration) Toast {
	return s.Show(KindWarning, message, duration...)
}

// Show appends a toast and schedules its removal.
func (s *Surface) Show(kind Kind, message string, duration ...time.Duration) Toast {
	d := s.duration
	if len(duration) > 0 && duration[0] > 0 {
		d = duration[0]
	}

	t := Toast{
		ID:        s.newID(),
		Message:   message,
		Kind:      kind,
		Duration:  d,
		CreatedAt: s.clock.Now(),
	}

	s.mu.Lock()
	s.toasts = append(s.toasts, t)
	id := t.ID
	s.timers[id] = s.clock.AfterFunc(d, func() { s.expire(id) })
	var evicted []string
	for s.maxVisible > 0 && len(s.toasts) > s.maxVisible {
		evicted = append(evicted, s.toasts[0].ID)
		s.removeLocked(s.toasts[0].ID)
	}
	s.mu.Unlock()

	s.log.Debug("toast shown",
		zap.String("id", t.ID),
		zap.String("kind", string(kind)),
		zap.Duration("duration", d),
		zap.Strings("evicted", evicted))
	s.changed()
	return t
}

// Dismiss removes the toast immediately and cancels its pending expiry.
// It reports whether the toast was still visible.
func (s *Surface) Dismiss(id string) bool {
	s.mu.Lock()
	ok := s.removeLocked(id)
	s.mu.Unlock()

	if ok {
		s.changed()
	}
	return ok
}

// DismissLatest removes the most recently shown toast, if any.
func (s *Surface) DismissLatest() bool {
	s.mu.Lock()
	if len(s.toasts) == 0 {
		s.mu.Unlock()
		return false
	}
	id := s.toasts[len(s.toasts)-1].ID
	s.mu.Unlock()
	return s.Dismiss(id)
}

// Toasts returns a copy of the live toasts, oldest first.
func (s *Surface) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Toast, len(s.toasts))
	copy(out, s.toasts)
	return out
}

// OnChange registers fn to run after every add, expiry or dismissal. The
// returned function unregisters it.
func (s *Surface) OnChange(fn func()) func() {
	s.mu.Lock()
	s.nextListen++
	id := s.nextListen
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Surface) expire(id string) {
	s.mu.Lock()
	ok := s.removeLocked(id)
	s.mu.Unlock()

	if ok {
		s.log.Debug("toast expired", zap.String("id", id))
		s.changed()
	}
}

// removeLocked must be called with s.mu held.
func (s *Surface) removeLocked(id string) bool {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	for i, t := range s.toasts {
		if t.ID == id {
			s.toasts = append(s.toasts[:i:i], s.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Surface) changed() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Bridge subscribes the surface to bus: every event not matched by
// suppress becomes exactly one error toast. The returned function
// detaches the bridge.
func Bridge(bus *errbus.Bus, s *Surface, suppress errbus.Suppressor) func() {
	return bus.Subscribe(func(ev errbus.Event) {
		if suppress.Suppressed(ev) {
			s.log.Debug("error suppressed",
				zap.String("code", ev.Code),
				zap.String("message", ev.Message))
			return
		}
		s.Error(ev.Message)
	})
}
