package mockserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/prince4597/society-management-software-sub001/internal/client"
	"github.com/prince4597/society-management-software-sub001/internal/logging"
	"github.com/prince4597/society-management-software-sub001/internal/realtime"
	"github.com/prince4597/society-management-software-sub001/internal/session"
)

// Server serves the auth endpoints and the websocket feed.
type Server struct {
	accounts    *Accounts
	tokens      *Tokens
	broadcaster *Broadcaster
	log         *zap.Logger
}

func NewServer(accounts *Accounts, tokens *Tokens, broadcaster *Broadcaster, log *zap.Logger) *Server {
	return &Server{
		accounts:    accounts,
		tokens:      tokens,
		broadcaster: broadcaster,
		log:         logging.OrNop(log).Named("mock"),
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc(client.PathLogin, s.handleLogin)
	mux.HandleFunc(client.PathMe, s.handleMe)
	mux.HandleFunc(client.PathLogout, s.handleLogout)
	mux.HandleFunc("/ws", s.handleWS)
}

// Handler returns a mux with every route installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req client.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := s.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		s.log.Info("login rejected", zap.String("username", req.Username))
		writeJSON(w, client.LoginResponse{Success: false, Message: err.Error()})
		return
	}

	tok := s.tokens.Issue(id)
	s.log.Info("login", zap.String("identity", id.ID), zap.String("role", id.Role))
	writeJSON(w, client.LoginResponse{Success: true, Token: tok, User: &id})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := s.identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, client.MeResponse{User: &id})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if tok := bearer(r); tok != "" {
		s.tokens.Revoke(tok)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, err := s.authorizeWS(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade error", zap.Error(err))
		return
	}

	c, err := s.broadcaster.AddClient(conn, id)
	if err != nil {
		s.log.Warn("ws client rejected", zap.Error(err))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		conn.Close()
		return
	}
	s.log.Info("ws client connected",
		zap.String("identity", id.ID),
		zap.String("remote", r.RemoteAddr))

	go s.readPump(conn, c)
}

func (s *Server) readPump(conn *websocket.Conn, c *subscriber) {
	defer func() {
		s.broadcaster.RemoveClient(c)
		s.log.Info("ws client disconnected", zap.String("identity", c.identity.ID))
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env realtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		s.handleClientEvent(c, env)
	}
}

func (s *Server) handleClientEvent(c *subscriber, env realtime.Envelope) {
	switch env.Event {
	case realtime.EventSubscribeRoom:
		var req realtime.RoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.Room == "" {
			return
		}
		if !s.broadcaster.Join(c, req.Room) {
			s.log.Info("room join refused",
				zap.String("identity", c.identity.ID),
				zap.String("room", req.Room))
			return
		}
		s.broadcaster.sendTo(c, realtime.EventRoomJoined, req)
	case realtime.EventUnsubscribeRoom:
		var req realtime.RoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		s.broadcaster.Leave(c, req.Room)
	default:
		s.log.Debug("ignoring client event", zap.String("event", env.Event))
	}
}

// authorizeWS validates the handshake: the token must be live and belong
// to the identity and role the client claims.
func (s *Server) authorizeWS(r *http.Request) (session.Identity, error) {
	q := r.URL.Query()
	tok := q.Get("token")
	if tok == "" {
		tok = bearer(r)
	}
	id, ok := s.tokens.Lookup(tok)
	if !ok {
		return session.Identity{}, errors.New("unknown token")
	}
	if q.Get("identityId") != id.ID || q.Get("role") != id.Role {
		return session.Identity{}, errors.New("handshake does not match token")
	}
	return id, nil
}

func (s *Server) identity(r *http.Request) (session.Identity, bool) {
	tok := bearer(r)
	if tok == "" {
		return session.Identity{}, false
	}
	return s.tokens.Lookup(tok)
}

func bearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// checkOrigin accepts requests without an Origin (the console is not a
// browser) and loopback origins.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
