package mockserver

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/prince4597/society-management-software-sub001/internal/logging"
	"github.com/prince4597/society-management-software-sub001/internal/realtime"
	"github.com/prince4597/society-management-software-sub001/internal/session"
)

// ErrTooManyConnections is returned by AddClient when the connection limit
// is reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

const sendBuffer = 64

type subscriber struct {
	conn     *websocket.Conn
	identity session.Identity
	send     chan []byte

	// rooms is guarded by Broadcaster.mu.
	rooms map[string]bool
}

func newSubscriber(conn *websocket.Conn, id session.Identity) *subscriber {
	c := &subscriber{
		conn:     conn,
		identity: id,
		send:     make(chan []byte, sendBuffer),
		rooms:    make(map[string]bool),
	}
	go c.writePump()
	return c
}

func (c *subscriber) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Broadcaster fans events out to the clients in a room.
type Broadcaster struct {
	log       *zap.Logger
	superRole string
	maxConns  int

	mu      sync.RWMutex
	clients map[*subscriber]bool
}

// NewBroadcaster creates a broadcaster. Identities holding superRole may
// join any room. maxConns <= 0 means unlimited.
func NewBroadcaster(superRole string, maxConns int, log *zap.Logger) *Broadcaster {
	return &Broadcaster{
		log:       logging.OrNop(log),
		superRole: superRole,
		maxConns:  maxConns,
		clients:   make(map[*subscriber]bool),
	}
}

// AddClient registers conn for id and starts its write pump.
func (b *Broadcaster) AddClient(conn *websocket.Conn, id session.Identity) (*subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		return nil, ErrTooManyConnections
	}
	c := newSubscriber(conn, id)
	b.clients[c] = true
	return c, nil
}

// RemoveClient unregisters c and stops its write pump, which closes the
// connection.
func (b *Broadcaster) RemoveClient(c *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

// Join adds c to room if its identity may see the room.
func (b *Broadcaster) Join(c *subscriber, room string) bool {
	if !b.mayJoin(c.identity, room) {
		return false
	}
	b.mu.Lock()
	ok := b.clients[c]
	if ok {
		c.rooms[room] = true
	}
	b.mu.Unlock()
	return ok
}

func (b *Broadcaster) Leave(c *subscriber, room string) {
	b.mu.Lock()
	delete(c.rooms, room)
	b.mu.Unlock()
}

// Publish sends event to every client in room and returns how many were
// queued. Clients that cannot keep up are disconnected.
func (b *Broadcaster) Publish(room, event string, data any) int {
	raw, err := json.Marshal(data)
	if err != nil {
		b.log.Error("broadcast marshal error", zap.String("event", event), zap.Error(err))
		return 0
	}
	msg, err := json.Marshal(realtime.Envelope{Event: event, Data: raw})
	if err != nil {
		b.log.Error("broadcast marshal error", zap.String("event", event), zap.Error(err))
		return 0
	}

	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.clients))
	for c := range b.clients {
		if c.rooms[room] {
			targets = append(targets, c)
		}
	}
	b.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if b.enqueue(c, msg) {
			sent++
		}
	}
	return sent
}

// sendTo queues an event for one client.
func (b *Broadcaster) sendTo(c *subscriber, event string, data any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	msg, err := json.Marshal(realtime.Envelope{Event: event, Data: raw})
	if err != nil {
		return false
	}
	return b.enqueue(c, msg)
}

func (b *Broadcaster) enqueue(c *subscriber, msg []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.clients[c] {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		go func() {
			b.log.Warn("ws client too slow, disconnecting", zap.String("identity", c.identity.ID))
			b.RemoveClient(c)
		}()
		return false
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// RoomSize returns the number of clients in room.
func (b *Broadcaster) RoomSize(room string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for c := range b.clients {
		if c.rooms[room] {
			n++
		}
	}
	return n
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		delete(b.clients, c)
		close(c.send)
	}
}

// mayJoin is the room policy: super administrators see everything, a
// society's staff see their own society.
func (b *Broadcaster) mayJoin(id session.Identity, room string) bool {
	if id.Role == b.superRole {
		return true
	}
	return id.SocietyID != "" && room == realtime.SocietyRoom(id.SocietyID)
}
