// Package mockserver is a development backend for the console. It serves
// the auth endpoints and a websocket feed with room fan-out, enough to drive
// every session and connection path without the real society backend.
package mockserver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/prince4597/society-management-software-sub001/internal/config"
	"github.com/prince4597/society-management-software-sub001/internal/session"
)

// ErrBadCredentials is returned for an unknown user or a wrong password.
var ErrBadCredentials = errors.New("invalid credentials")

type account struct {
	hash     []byte
	identity session.Identity
}

// Accounts holds the seeded users. Passwords are kept only as bcrypt
// hashes.
type Accounts struct {
	users map[string]account
}

// NewAccounts hashes the configured users' passwords.
func NewAccounts(users []config.MockUser) (*Accounts, error) {
	a := &Accounts{users: make(map[string]account, len(users))}
	for _, u := range users {
		if u.Username == "" {
			return nil, errors.New("mock user without username")
		}
		id := session.Identity{
			ID:        u.ID,
			Role:      u.Role,
			Name:      u.Name,
			SocietyID: u.SocietyID,
		}
		if !id.Valid() {
			return nil, fmt.Errorf("mock user %q: %w", u.Username, session.ErrInvalidIdentity)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", u.Username, err)
		}
		a.users[u.Username] = account{hash: hash, identity: id}
	}
	return a, nil
}

// Authenticate checks a username and password.
func (a *Accounts) Authenticate(username, password string) (session.Identity, error) {
	acc, ok := a.users[username]
	if !ok {
		return session.Identity{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return session.Identity{}, ErrBadCredentials
	}
	return acc.identity, nil
}

// Identities lists every seeded identity.
func (a *Accounts) Identities() []session.Identity {
	out := make([]session.Identity, 0, len(a.users))
	for _, acc := range a.users {
		out = append(out, acc.identity)
	}
	return out
}

// Tokens maps issued bearer tokens to identities.
type Tokens struct {
	mu     sync.RWMutex
	tokens map[string]session.Identity
}

func NewTokens() *Tokens {
	return &Tokens{tokens: make(map[string]session.Identity)}
}

// Issue creates a token for id.
func (t *Tokens) Issue(id session.Identity) string {
	tok := uuid.NewString()
	t.mu.Lock()
	t.tokens[tok] = id
	t.mu.Unlock()
	return tok
}

func (t *Tokens) Lookup(tok string) (session.Identity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.tokens[tok]
	return id, ok
}

// Revoke forgets tok. It reports whether the token was known.
func (t *Tokens) Revoke(tok string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tokens[tok]
	delete(t.tokens, tok)
	return ok
}

func (t *Tokens) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tokens)
}
