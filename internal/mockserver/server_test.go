package mockserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prince4597/society-management-software-sub001/internal/client"
	"github.com/prince4597/society-management-software-sub001/internal/config"
	"github.com/prince4597/society-management-software-sub001/internal/realtime"
	"github.com/prince4597/society-management-software-sub001/internal/route"
	"github.com/prince4597/society-management-software-sub001/internal/session"
)

type testBackend struct {
	srv         *httptest.Server
	tokens      *Tokens
	broadcaster *Broadcaster
	accounts    *Accounts
}

func (b *testBackend) wsURL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/ws"
}

func newTestBackend(t *testing.T, maxConns int) *testBackend {
	t.Helper()
	cfg := config.Default()
	accounts, err := NewAccounts(append(cfg.Mock.Users, config.MockUser{
		Username: "other", Password: "other", ID: "u2", Role: "SOCIETY_ADMIN", SocietyID: "soc-2",
	}))
	require.NoError(t, err)

	tokens := NewTokens()
	b := NewBroadcaster(cfg.Routes.SuperRole, maxConns, nil)
	srv := httptest.NewServer(NewServer(accounts, tokens, b, nil).Handler())
	t.Cleanup(func() {
		b.Close()
		srv.Close()
	})
	return &testBackend{srv: srv, tokens: tokens, broadcaster: b, accounts: accounts}
}

// login returns a client holding a fresh token for username.
func (b *testBackend) login(t *testing.T, username string) (*client.HTTPClient, *session.Identity) {
	t.Helper()
	c := client.NewHTTPClient(b.srv.URL, "", time.Second, nil, nil)
	id, err := c.Login(context.Background(), username, username)
	require.NoError(t, err)
	return c, id
}

// dial opens a websocket for the logged-in client.
func (b *testBackend) dial(t *testing.T, c *client.HTTPClient, id *session.Identity) realtime.Conn {
	t.Helper()
	d := &realtime.WSDialer{URL: b.wsURL(), Token: c.Token, HandshakeTimeout: time.Second}
	conn, err := d.Dial(context.Background(), realtime.Handshake{Role: id.Role, IdentityID: id.ID})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn realtime.Conn) realtime.Envelope {
	t.Helper()
	type result struct {
		env realtime.Envelope
		err error
	}
	ch := make(chan result, 1)
	go func() {
		env, err := conn.ReadEnvelope()
		ch <- result{env, err}
	}()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a websocket event")
		return realtime.Envelope{}
	}
}

func TestAuthRoundTrip(t *testing.T) {
	b := newTestBackend(t, 0)
	ctx := context.Background()

	c, id := b.login(t, "admin")
	assert.Equal(t, "u1", id.ID)
	assert.Equal(t, "SOCIETY_ADMIN", id.Role)
	assert.Equal(t, "soc-1", id.SocietyID)
	require.NotEmpty(t, c.Token())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, *id, *me)

	tok := c.Token()
	require.NoError(t, c.Logout(ctx))
	_, ok := b.tokens.Lookup(tok)
	assert.False(t, ok, "token survives logout")

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestLoginWrongPassword(t *testing.T) {
	b := newTestBackend(t, 0)
	c := client.NewHTTPClient(b.srv.URL, "", time.Second, nil, nil)

	_, err := c.Login(context.Background(), "admin", "wrong")
	require.ErrorIs(t, err, client.ErrLoginRejected)
	assert.Contains(t, err.Error(), ErrBadCredentials.Error())
	assert.Zero(t, b.tokens.Count())
}

func TestAuthEndpointsRejectWrongMethod(t *testing.T) {
	b := newTestBackend(t, 0)

	tests := []struct {
		method, path string
	}{
		{http.MethodGet, client.PathLogin},
		{http.MethodPost, client.PathMe},
		{http.MethodGet, client.PathLogout},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, b.srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		})
	}
}

func TestWSHandshakeValidation(t *testing.T) {
	b := newTestBackend(t, 0)
	c, id := b.login(t, "admin")

	tests := []struct {
		name  string
		token string
		hs    realtime.Handshake
	}{
		{"no token", "", realtime.Handshake{Role: id.Role, IdentityID: id.ID}},
		{"unknown token", "nope", realtime.Handshake{Role: id.Role, IdentityID: id.ID}},
		{"wrong identity", c.Token(), realtime.Handshake{Role: id.Role, IdentityID: "u0"}},
		{"wrong role", c.Token(), realtime.Handshake{Role: "SUPER_ADMIN", IdentityID: id.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := tt.token
			d := &realtime.WSDialer{URL: b.wsURL(), Token: func() string { return tok }, HandshakeTimeout: time.Second}
			_, err := d.Dial(context.Background(), tt.hs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "401")
		})
	}
}

func TestRoomFanOut(t *testing.T) {
	b := newTestBackend(t, 0)

	admin, adminID := b.login(t, "admin")
	other, otherID := b.login(t, "other")
	adminConn := b.dial(t, admin, adminID)
	otherConn := b.dial(t, other, otherID)

	room := realtime.SocietyRoom("soc-1")
	require.NoError(t, adminConn.WriteEnvelope(envelope(t, realtime.EventSubscribeRoom, realtime.RoomRequest{Room: room})))

	ack := readEvent(t, adminConn)
	require.Equal(t, realtime.EventRoomJoined, ack.Event)

	// soc-2 staff may not join soc-1.
	require.NoError(t, otherConn.WriteEnvelope(envelope(t, realtime.EventSubscribeRoom, realtime.RoomRequest{Room: room})))
	require.Eventually(t, func() bool { return b.broadcaster.ClientCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, b.broadcaster.RoomSize(room))

	n := b.broadcaster.Publish(room, realtime.EventNotice, realtime.Notice{Room: room, Title: "hello"})
	assert.Equal(t, 1, n)

	got := readEvent(t, adminConn)
	require.Equal(t, realtime.EventNotice, got.Event)
	var notice realtime.Notice
	require.NoError(t, json.Unmarshal(got.Data, &notice))
	assert.Equal(t, "hello", notice.Title)

	require.NoError(t, adminConn.WriteEnvelope(envelope(t, realtime.EventUnsubscribeRoom, realtime.RoomRequest{Room: room})))
	require.Eventually(t, func() bool { return b.broadcaster.RoomSize(room) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSuperAdminJoinsAnyRoom(t *testing.T) {
	b := newTestBackend(t, 0)
	root, rootID := b.login(t, "root")
	conn := b.dial(t, root, rootID)

	for _, room := range []string{realtime.PlatformRoom, realtime.SocietyRoom("soc-2")} {
		require.NoError(t, conn.WriteEnvelope(envelope(t, realtime.EventSubscribeRoom, realtime.RoomRequest{Room: room})))
		ack := readEvent(t, conn)
		assert.Equal(t, realtime.EventRoomJoined, ack.Event)
	}
}

func TestMaxConnections(t *testing.T) {
	b := newTestBackend(t, 1)
	c, id := b.login(t, "admin")
	b.dial(t, c, id)
	require.Eventually(t, func() bool { return b.broadcaster.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	d := &realtime.WSDialer{URL: b.wsURL(), Token: c.Token, HandshakeTimeout: time.Second}
	conn, err := d.Dial(context.Background(), realtime.Handshake{Role: id.Role, IdentityID: id.ID})
	require.NoError(t, err, "upgrade succeeds; the server closes right after")
	defer conn.Close()

	_, err = conn.ReadEnvelope()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseTryAgainLater, closeErr.Code)
	assert.Equal(t, 1, b.broadcaster.ClientCount())
}

// TestSessionDrivesChannel runs the session store and connection manager
// against the mock backend end to end.
func TestSessionDrivesChannel(t *testing.T) {
	b := newTestBackend(t, 0)
	cfg := config.Default()

	httpc := client.NewHTTPClient(b.srv.URL, "", time.Second, nil, nil)
	table := route.DefaultTable(cfg.Routes)
	router := route.NewRouter(table, table.Entry)
	store := session.NewStore(session.Options{
		Provider:       httpc,
		Navigator:      router,
		Routes:         table,
		ResolveTimeout: time.Second,
	})
	m := realtime.NewManager(store,
		&realtime.WSDialer{URL: b.wsURL(), Token: httpc.Token, HandshakeTimeout: time.Second},
		realtime.Policy{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond}, nil)
	defer m.Close()

	store.Initialize(context.Background())
	require.Equal(t, session.StatusUnauthenticated, store.State().Status)
	require.False(t, m.HasChannel())

	require.NoError(t, store.LoginWithCredentials(context.Background(), "admin", "admin"))
	assert.Equal(t, cfg.Routes.DefaultLanding, router.Current())
	require.Eventually(t, m.Connected, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return b.broadcaster.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	notices := make(chan realtime.Notice, 1)
	m.On(realtime.EventNotice, func(data json.RawMessage) {
		var n realtime.Notice
		if json.Unmarshal(data, &n) == nil {
			notices <- n
		}
	})
	joined := make(chan struct{}, 1)
	m.On(realtime.EventRoomJoined, func(json.RawMessage) { joined <- struct{}{} })
	require.True(t, m.SubscribeToRoom(realtime.SocietyRoom("soc-1")))
	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("room join not acknowledged")
	}

	b.broadcaster.Publish(realtime.SocietyRoom("soc-1"), realtime.EventNotice, realtime.Notice{Title: "gate"})
	select {
	case n := <-notices:
		assert.Equal(t, "gate", n.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("notice not delivered")
	}

	store.Logout(context.Background())
	assert.False(t, m.HasChannel())
	assert.Equal(t, table.Entry, router.Current())
	assert.Zero(t, b.tokens.Count())
	require.Eventually(t, func() bool { return b.broadcaster.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func envelope(t *testing.T, event string, payload any) realtime.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return realtime.Envelope{Event: event, Data: data}
}
