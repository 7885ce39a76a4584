package session

import "errors"

// Status is the session's position in the authentication state machine.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
	// StatusError carries a failed resolution. For routing and the
	// realtime channel it behaves exactly like StatusUnauthenticated.
	StatusError Status = "error"
)

// ErrInvalidIdentity is returned when the backend answers with an identity
// lacking an ID or role.
var ErrInvalidIdentity = errors.New("invalid identity")

// Identity is the resolved actor.
type Identity struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	SocietyID string `json:"societyId,omitempty"`
}

// Valid reports whether the identity can back an authenticated session.
func (i *Identity) Valid() bool {
	return i != nil && i.ID != "" && i.Role != ""
}

// DisplayName returns Name, falling back to ID.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	if i.Name != "" {
		return i.Name
	}
	return i.ID
}

// State is a snapshot of the session. Identity is non-nil exactly when
// Status is StatusAuthenticated.
type State struct {
	Status   Status
	Identity *Identity
	Err      string
}

// Authenticated reports whether an actor is signed in.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Identity != nil
}

// Settled reports whether resolution has finished with a definite answer.
func (s State) Settled() bool {
	switch s.Status {
	case StatusAuthenticated, StatusUnauthenticated, StatusError:
		return true
	}
	return false
}

// Role returns the actor's role, or "" when signed out.
func (s State) Role() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Role
}

func (s State) clone() State {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}
