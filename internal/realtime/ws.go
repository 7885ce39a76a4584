package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout       = 10 * time.Second
	defaultPongTimeout = 60 * time.Second
)

// Conn is one established transport connection.
type Conn interface {
	// ReadEnvelope blocks until the next well-formed frame or an error.
	ReadEnvelope() (Envelope, error)
	WriteEnvelope(Envelope) error
	Ping() error
	Close() error
}

// Dialer opens transport connections for a handshake.
type Dialer interface {
	Dial(ctx context.Context, hs Handshake) (Conn, error)
}

// WSDialer dials the backend's websocket endpoint, passing the handshake
// as query parameters.
type WSDialer struct {
	URL string
	// Token, when set, supplies a bearer token sent as the token query
	// parameter.
	Token            func() string
	HandshakeTimeout time.Duration
	PongTimeout      time.Duration
}

// Dial connects and returns the connection.
func (d *WSDialer) Dial(ctx context.Context, hs Handshake) (Conn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse ws url: %w", err)
	}
	q := u.Query()
	q.Set("role", hs.Role)
	q.Set("identityId", hs.IdentityID)
	if d.Token != nil {
		if tok := d.Token(); tok != "" {
			q.Set("token", tok)
		}
	}
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	pong := d.PongTimeout
	if pong <= 0 {
		pong = defaultPongTimeout
	}
	return newWSConn(conn, pong), nil
}

type wsConn struct {
	conn        *websocket.Conn
	writeMu     sync.Mutex // serialises all conn writes (ping, emit)
	pongTimeout time.Duration
}

func newWSConn(conn *websocket.Conn, pongTimeout time.Duration) *wsConn {
	c := &wsConn{conn: conn, pongTimeout: pongTimeout}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	return c
}

func (c *wsConn) ReadEnvelope() (Envelope, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return Envelope{}, err
		}
		c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			continue
		}
		return env, nil
	}
}

func (c *wsConn) WriteEnvelope(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(env)
}

func (c *wsConn) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
