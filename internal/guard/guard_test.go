package guard

import (
	"testing"

	"github.com/prince4597/society-management-software-sub001/internal/config"
	"github.com/prince4597/society-management-software-sub001/internal/route"
	"github.com/prince4597/society-management-software-sub001/internal/session"
)

func authed(role string) session.State {
	return session.State{
		Status:   session.StatusAuthenticated,
		Identity: &session.Identity{ID: "u1", Role: role},
	}
}

func TestCheck(t *testing.T) {
	table := route.DefaultTable(config.Default().Routes)

	tests := []struct {
		name  string
		state session.State
		path  string
		want  Decision
	}{
		{
			name:  "idle on protected route shows placeholder",
			state: session.State{Status: session.StatusIdle},
			path:  "/society/dashboard",
			want:  Decision{Outcome: Placeholder},
		},
		{
			name:  "loading on protected route shows placeholder",
			state: session.State{Status: session.StatusLoading},
			path:  "/super/dashboard",
			want:  Decision{Outcome: Placeholder},
		},
		{
			name:  "loading on public route renders",
			state: session.State{Status: session.StatusLoading},
			path:  "/login",
			want:  Decision{Outcome: Render},
		},
		{
			name:  "unauthenticated on protected route redirects to entry",
			state: session.State{Status: session.StatusUnauthenticated},
			path:  "/society/residents",
			want:  Decision{Outcome: Redirect, Target: "/login"},
		},
		{
			name:  "error behaves like unauthenticated",
			state: session.State{Status: session.StatusError, Err: "boom"},
			path:  "/society/residents",
			want:  Decision{Outcome: Redirect, Target: "/login"},
		},
		{
			name:  "unauthenticated on entry renders",
			state: session.State{Status: session.StatusUnauthenticated},
			path:  "/login",
			want:  Decision{Outcome: Render},
		},
		{
			name:  "matching role renders",
			state: authed("SOCIETY_ADMIN"),
			path:  "/society/staff",
			want:  Decision{Outcome: Render},
		},
		{
			name:  "wrong role redirects to own landing",
			state: authed("SOCIETY_ADMIN"),
			path:  "/super/dashboard",
			want:  Decision{Outcome: Redirect, Target: "/society/dashboard"},
		},
		{
			name:  "super admin denied society screen",
			state: authed("SUPER_ADMIN"),
			path:  "/society/residents",
			want:  Decision{Outcome: Redirect, Target: "/super/dashboard"},
		},
		{
			name:  "authenticated on entry goes to landing",
			state: authed("SUPER_ADMIN"),
			path:  "/login",
			want:  Decision{Outcome: Redirect, Target: "/super/dashboard"},
		},
		{
			name:  "unknown path redirects authenticated actor to landing",
			state: authed("SOCIETY_ADMIN"),
			path:  "/nope",
			want:  Decision{Outcome: Redirect, Target: "/society/dashboard"},
		},
		{
			name:  "unknown path while unauthenticated redirects to entry",
			state: session.State{Status: session.StatusUnauthenticated},
			path:  "/nope",
			want:  Decision{Outcome: Redirect, Target: "/login"},
		},
		{
			name:  "role without a screen is sent to entry",
			state: authed("ACCOUNTANT"),
			path:  "/society/dashboard",
			want:  Decision{Outcome: Redirect, Target: "/login"},
		},
		{
			name:  "role without a screen stays on entry",
			state: authed("ACCOUNTANT"),
			path:  "/login",
			want:  Decision{Outcome: Render},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.state, table, tt.path)
			if got != tt.want {
				t.Errorf("Check(%s, %q) = %s %q, want %s %q",
					tt.state.Status, tt.path, got.Outcome, got.Target, tt.want.Outcome, tt.want.Target)
			}
		})
	}
}
