// Package guard decides whether a screen may render for the current
// session.
package guard

import (
	"github.com/prince4597/society-management-software-sub001/internal/route"
	"github.com/prince4597/society-management-software-sub001/internal/session"
)

// Outcome is what the shell should do with a screen.
type Outcome int

const (
	// Render shows the screen.
	Render Outcome = iota
	// Placeholder hides the screen until the session settles.
	Placeholder
	// Redirect navigates to Decision.Target instead.
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Placeholder:
		return "placeholder"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is the guard's verdict for one path.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Check applies the routing policy to path. No redirect is ever decided
// while the session is unresolved: protected routes get a placeholder
// until the state settles.
func Check(st session.State, table route.Table, path string) Decision {
	r, known := table.Lookup(path)

	if known && r.Public {
		if path == table.Entry && st.Authenticated() {
			if landing := table.LandingFor(st.Role()); permits(table, landing, st.Role()) {
				return Decision{Outcome: Redirect, Target: landing}
			}
		}
		return Decision{Outcome: Render}
	}

	if !st.Settled() {
		return Decision{Outcome: Placeholder}
	}

	if !st.Authenticated() {
		return Decision{Outcome: Redirect, Target: table.Entry}
	}

	if known && r.Role == st.Role() {
		return Decision{Outcome: Render}
	}

	// A role whose landing route is closed to it goes back to the entry
	// route, which then renders instead of bouncing.
	if landing := table.LandingFor(st.Role()); landing != path && permits(table, landing, st.Role()) {
		return Decision{Outcome: Redirect, Target: landing}
	}
	return Decision{Outcome: Redirect, Target: table.Entry}
}

func permits(table route.Table, path, role string) bool {
	r, ok := table.Lookup(path)
	return ok && (r.Public || r.Role == role)
}
