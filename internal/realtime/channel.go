package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Policy bounds how hard a channel tries to stay connected.
type Policy struct {
	// MaxAttempts is the number of consecutive failed dials before the
	// channel gives up and reports a connection error.
	MaxAttempts    int
	ConnectTimeout time.Duration
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	PingInterval   time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.ConnectTimeout <= 0 {
		p.ConnectTimeout = 5 * time.Second
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.PingInterval <= 0 {
		p.PingInterval = 30 * time.Second
	}
	return p
}

// Handler receives the data of a server-pushed event.
type Handler func(data json.RawMessage)

type handlerEntry struct {
	id uint64
	fn Handler
}

// channel is one realtime session bound to a single handshake. It dials,
// reconnects with back-off, and delivers events until closed.
type channel struct {
	hs     Handshake
	dialer Dialer
	policy Policy
	log    *zap.Logger

	// onStatus reports connected/disconnected/gave-up. It is never called
	// after close returns.
	onStatus func(ch *channel, connected bool, errMsg string)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// deliverMu is held for reading while handlers run, and for writing
	// by close, so no handler runs once close has returned.
	deliverMu sync.RWMutex

	mu       sync.Mutex
	conn     Conn
	started  bool
	closed   bool
	handlers map[string][]handlerEntry
	nextID   uint64
}

func newChannel(hs Handshake, dialer Dialer, policy Policy, log *zap.Logger,
	onStatus func(*channel, bool, string)) *channel {
	ctx, cancel := context.WithCancel(context.Background())
	return &channel{
		hs:       hs,
		dialer:   dialer,
		policy:   policy.withDefaults(),
		log:      log,
		onStatus: onStatus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		handlers: make(map[string][]handlerEntry),
	}
}

// start launches the run loop. A channel closed before it started never
// dials.
func (c *channel) start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.started {
		return
	}
	c.started = true
	go c.run()
}

func (c *channel) run() {
	defer close(c.done)

	for {
		conn, err := c.connect()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			msg := fmt.Sprintf("realtime connection failed after %d attempts: %v", c.policy.MaxAttempts, err)
			c.log.Warn("giving up on realtime connection",
				zap.Int("attempts", c.policy.MaxAttempts),
				zap.Error(err))
			c.report(false, msg)
			return
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.log.Info("realtime connected",
			zap.String("role", c.hs.Role),
			zap.String("identity", c.hs.IdentityID))
		c.report(true, "")

		pingCtx, pingCancel := context.WithCancel(c.ctx)
		go c.pingLoop(pingCtx, conn)
		err = c.readLoop(conn)
		pingCancel()

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		closed := c.closed
		c.mu.Unlock()
		conn.Close()

		if closed || c.ctx.Err() != nil {
			return
		}
		c.log.Info("realtime disconnected; reconnecting", zap.Error(err))
		c.report(false, "")
	}
}

// connect dials until it succeeds, the attempt budget runs out, or the
// channel is closed.
func (c *channel) connect() (Conn, error) {
	delay := c.policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(c.ctx, c.policy.ConnectTimeout)
		conn, err := c.dialer.Dial(dialCtx, c.hs)
		cancel()
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if c.ctx.Err() != nil {
			return nil, c.ctx.Err()
		}
		c.log.Debug("realtime dial failed",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		if attempt == c.policy.MaxAttempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return nil, c.ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, c.policy.MaxDelay)
	}
	return nil, lastErr
}

func (c *channel) readLoop(conn Conn) error {
	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			return err
		}
		c.dispatch(env)
	}
}

// pingLoop sends periodic pings on the given connection. It exits when the
// context is cancelled or the connection changes.
func (c *channel) pingLoop(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(c.policy.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			if err := conn.Ping(); err != nil {
				return
			}
		}
	}
}

func (c *channel) dispatch(env Envelope) {
	c.deliverMu.RLock()
	defer c.deliverMu.RUnlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	hs := make([]handlerEntry, len(c.handlers[env.Event]))
	copy(hs, c.handlers[env.Event])
	c.mu.Unlock()

	for _, h := range hs {
		h.fn(env.Data)
	}
}

func (c *channel) report(connected bool, errMsg string) {
	c.deliverMu.RLock()
	defer c.deliverMu.RUnlock()

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.onStatus(c, connected, errMsg)
}

func (c *channel) on(event string, fn Handler) func() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return func() {}
	}
	c.nextID++
	id := c.nextID
	c.handlers[event] = append(c.handlers[event], handlerEntry{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		hs := c.handlers[event]
		for i, h := range hs {
			if h.id == id {
				c.handlers[event] = append(hs[:i:i], hs[i+1:]...)
				break
			}
		}
		if len(c.handlers[event]) == 0 {
			delete(c.handlers, event)
		}
	}
}

// emit writes env if a connection is currently up; otherwise it drops it.
func (c *channel) emit(env Envelope) bool {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()
	if conn == nil || closed {
		return false
	}
	if err := conn.WriteEnvelope(env); err != nil {
		c.log.Debug("realtime emit failed", zap.String("event", env.Event), zap.Error(err))
		return false
	}
	return true
}

// close tears the channel down. When it returns no handler is running and
// none will run again, and the run goroutine has exited.
func (c *channel) close() {
	c.deliverMu.Lock()
	c.mu.Lock()
	started := c.started
	if c.closed {
		c.mu.Unlock()
		c.deliverMu.Unlock()
		if started {
			<-c.done
		}
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.handlers = nil
	c.mu.Unlock()
	c.deliverMu.Unlock()

	c.cancel()
	if conn != nil {
		conn.Close()
	}
	if started {
		<-c.done
	}
}
