// Package errbus is the process-wide error channel. Producers publish
// Events; the single notification bridge decides what the user sees.
//
// Delivery is synchronous and fire-and-forget: subscribers registered at
// publish time receive the event in registration order, and nothing is
// retained for subscribers that register later.
package errbus

import (
	"strings"
	"sync"
	"time"
)

// Well-known error codes.
const (
	CodeFetch   = "FETCH_ERROR"
	CodeUnknown = "UNKNOWN_ERROR"
)

// Event is an immutable error record.
type Event struct {
	Message   string
	Code      string
	Timestamp time.Time
}

// FromError builds an Event from err. A nil err yields a zero Event.
func FromError(code string, err error) Event {
	if err == nil {
		return Event{}
	}
	return Event{Message: err.Error(), Code: code}
}

// Publisher is the narrow interface handed to producers.
type Publisher interface {
	Publish(Event)
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// Bus multicasts events to its current subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	now    func() time.Time
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{now: time.Now}
}

// Publish delivers ev to every current subscriber. With no subscribers the
// event is dropped.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}
	if ev.Code == "" {
		ev.Code = CodeUnknown
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// Subscribe registers fn and returns a function that removes exactly that
// registration. Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Suppressor hides background auth-probe failures from the user. An event
// is suppressed when its code equals Code and its message contains any of
// Substrings, compared case-insensitively.
//
// This is a heuristic on message text, not a structural signal.
type Suppressor struct {
	Code       string
	Substrings []string
}

// DefaultSuppressor matches failed requests against the auth endpoints.
func DefaultSuppressor() Suppressor {
	return Suppressor{Code: CodeFetch, Substrings: []string{"auth"}}
}

// Suppressed reports whether ev should stay off the visible surface.
func (s Suppressor) Suppressed(ev Event) bool {
	if s.Code == "" || ev.Code != s.Code {
		return false
	}
	msg := strings.ToLower(ev.Message)
	for _, sub := range s.Substrings {
		if sub != "" && strings.Contains(msg, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
