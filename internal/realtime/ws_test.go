package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsServer upgrades every request, records its query and hands the
// server-side connection to the test.
func wsServer(t *testing.T) (*httptest.Server, <-chan url.Values, <-chan *websocket.Conn) {
	t.Helper()
	queries := make(chan url.Values, 1)
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		queries <- r.URL.Query()
		conns <- c
	}))
	t.Cleanup(srv.Close)
	return srv, queries, conns
}

func TestWSDialerSendsHandshake(t *testing.T) {
	srv, queries, conns := wsServer(t)

	d := &WSDialer{
		URL:              "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		Token:            func() string { return "tok-1" },
		HandshakeTimeout: time.Second,
	}
	conn, err := d.Dial(context.Background(), Handshake{Role: "SOCIETY_ADMIN", IdentityID: "u1"})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	q := <-queries
	if q.Get("role") != "SOCIETY_ADMIN" || q.Get("identityId") != "u1" || q.Get("token") != "tok-1" {
		t.Errorf("handshake query = %v", q)
	}
	server := <-conns
	defer server.Close()
}

func TestWSConnSkipsMalformedFrames(t *testing.T) {
	srv, _, conns := wsServer(t)

	d := &WSDialer{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), HandshakeTimeout: time.Second}
	conn, err := d.Dial(context.Background(), Handshake{Role: "R", IdentityID: "u1"})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	server := <-conns
	defer server.Close()

	server.WriteMessage(websocket.TextMessage, []byte("{not json"))
	server.WriteMessage(websocket.TextMessage, []byte(`{"data":1}`))
	server.WriteMessage(websocket.TextMessage, []byte(`{"event":"notice","data":{"title":"hi"}}`))

	env, err := conn.ReadEnvelope()
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if env.Event != "notice" || !strings.Contains(string(env.Data), "hi") {
		t.Errorf("envelope = %+v", env)
	}

	if err := conn.WriteEnvelope(Envelope{Event: EventSubscribeRoom, Data: []byte(`{"room":"r"}`)}); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}
	var got Envelope
	if err := server.ReadJSON(&got); err != nil {
		t.Fatalf("server read: %v", err)
	}
	if got.Event != EventSubscribeRoom {
		t.Errorf("server got %+v", got)
	}
	if err := conn.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestWSDialerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := &WSDialer{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	_, err := d.Dial(context.Background(), Handshake{Role: "R", IdentityID: "u1"})
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Errorf("Dial() error = %v, want status 401", err)
	}

	bad := &WSDialer{URL: "::bad"}
	if _, err := bad.Dial(context.Background(), Handshake{}); err == nil {
		t.Error("Dial() with an unparsable URL succeeded")
	}
}
