// Package client provides the HTTP identity client for the society backend.
// Types mirror the backend wire protocol without importing backend packages.
package client

import "github.com/prince4597/society-management-software-sub001/internal/session"

// Backend auth endpoints.
const (
	PathMe     = "/auth/me"
	PathLogin  = "/auth/login"
	PathLogout = "/auth/logout"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Token   string            `json:"token,omitempty"`
	User    *session.Identity `json:"user,omitempty"`
}

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	User *session.Identity `json:"user"`
}
