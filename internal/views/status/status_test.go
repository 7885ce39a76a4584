package status

import (
	"strings"
	"testing"
)

func TestViewConnectionIndicator(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		want  string
	}{
		{"no channel", Model{Session: "unauthenticated"}, "No channel"},
		{"connecting", Model{Actor: "Admin", Role: "SOCIETY_ADMIN", HasChannel: true}, "Connecting"},
		{"live", Model{Actor: "Admin", Role: "SOCIETY_ADMIN", HasChannel: true, Connected: true}, "Live"},
		{"gave up", Model{Actor: "Admin", HasChannel: true, ConnError: "realtime connection failed"}, "Offline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.model.View()
			if !strings.Contains(v, tt.want) {
				t.Errorf("View() missing %q:\n%s", tt.want, v)
			}
		})
	}
}

func TestViewActor(t *testing.T) {
	m := Model{Actor: "Society Admin", Role: "SOCIETY_ADMIN", Route: "/society/dashboard", Width: 120}
	v := m.View()
	for _, want := range []string{"Society Admin", "SOCIETY_ADMIN", "/society/dashboard"} {
		if !strings.Contains(v, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	signedOut := Model{Session: "loading", Width: 120}.View()
	if !strings.Contains(signedOut, "signed out (loading)") {
		t.Errorf("signed-out view = %s", signedOut)
	}
}

func TestViewShowsConnectionError(t *testing.T) {
	m := Model{Actor: "A", HasChannel: true, ConnError: "dial refused", Width: 120}
	if !strings.Contains(m.View(), "dial refused") {
		t.Error("connection error not shown")
	}
}
