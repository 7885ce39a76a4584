// Package route declares the console's screens and tracks which one is
// current.
package route

import (
	"sync"

	"github.com/prince4597/society-management-software-sub001/internal/config"
)

const maxHistory = 32

// Route is a screen address. A public route is reachable in any session
// state; otherwise Role names the only role allowed to view it.
type Route struct {
	Path   string
	Title  string
	Public bool
	Role   string
}

// Table is the static route configuration.
type Table struct {
	Entry          string
	SuperRole      string
	SuperLanding   string
	DefaultLanding string
	Routes         []Route
}

// DefaultTable builds the console's routes from cfg.
func DefaultTable(cfg config.RoutesConfig) Table {
	const societyRole = "SOCIETY_ADMIN"
	return Table{
		Entry:          cfg.Entry,
		SuperRole:      cfg.SuperRole,
		SuperLanding:   cfg.SuperLanding,
		DefaultLanding: cfg.DefaultLanding,
		Routes: []Route{
			{Path: cfg.Entry, Title: "Sign in", Public: true},
			{Path: cfg.SuperLanding, Title: "Platform", Role: cfg.SuperRole},
			{Path: "/super/societies", Title: "Societies", Role: cfg.SuperRole},
			{Path: cfg.DefaultLanding, Title: "Society", Role: societyRole},
			{Path: "/society/residents", Title: "Residents", Role: societyRole},
			{Path: "/society/staff", Title: "Staff", Role: societyRole},
		},
	}
}

// LandingFor returns where an actor with role lands after sign-in.
func (t Table) LandingFor(role string) string {
	if role == t.SuperRole {
		return t.SuperLanding
	}
	return t.DefaultLanding
}

// Lookup finds the route declared for path.
func (t Table) Lookup(path string) (Route, bool) {
	for _, r := range t.Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// IsPublic reports whether path is declared public. Unknown paths are not.
func (t Table) IsPublic(path string) bool {
	r, ok := t.Lookup(path)
	return ok && r.Public
}

// ForRole lists the routes an actor with role may visit, in table order.
func (t Table) ForRole(role string) []Route {
	var out []Route
	for _, r := range t.Routes {
		if !r.Public && r.Role == role {
			out = append(out, r)
		}
	}
	return out
}

// Router owns the current path. Navigation listeners run synchronously
// after the path changes.
type Router struct {
	mu        sync.RWMutex
	table     Table
	current   string
	history   []string
	listeners []func(from, to string)
}

// NewRouter starts at start.
func NewRouter(table Table, start string) *Router {
	return &Router{table: table, current: start}
}

// Table returns the route table the router was built with.
func (r *Router) Table() Table {
	return r.table
}

// Current returns the active path.
func (r *Router) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// IsPublic reports whether path is a public route.
func (r *Router) IsPublic(path string) bool {
	return r.table.IsPublic(path)
}

// Navigate makes path current. Navigating to the current path is a no-op.
func (r *Router) Navigate(path string) {
	r.mu.Lock()
	from := r.current
	if from == path {
		r.mu.Unlock()
		return
	}
	r.current = path
	r.history = append(r.history, from)
	if len(r.history) > maxHistory {
		r.history = r.history[len(r.history)-maxHistory:]
	}
	listeners := append([]func(string, string){}, r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(from, path)
	}
}

// Back returns to the previous path, if any.
func (r *Router) Back() bool {
	r.mu.Lock()
	if len(r.history) == 0 {
		r.mu.Unlock()
		return false
	}
	from := r.current
	to := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	r.current = to
	listeners := append([]func(string, string){}, r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(from, to)
	}
	return true
}

// OnNavigate registers fn for path changes.
func (r *Router) OnNavigate(fn func(from, to string)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}
