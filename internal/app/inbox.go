package app

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// inboxMsg carries every message queued since the last delivery, in order.
type inboxMsg []tea.Msg

// inbox collects messages produced by store, router, manager and surface
// listeners. push never blocks, so listeners may fire from inside Update.
type inbox struct {
	mu     sync.Mutex
	queue  []tea.Msg
	signal chan struct{}
}

func newInbox() *inbox {
	return &inbox{signal: make(chan struct{}, 1)}
}

func (b *inbox) push(msg tea.Msg) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// take removes and returns everything queued.
func (b *inbox) take() []tea.Msg {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.queue
	b.queue = nil
	return out
}

// next waits for queued messages. Update re-arms it after each delivery.
func (b *inbox) next(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		for {
			if msgs := b.take(); len(msgs) > 0 {
				return inboxMsg(msgs)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-b.signal:
			}
		}
	}
}
