package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  http_url: "http://backend:9090"
  ws_url: "ws://backend:9090/ws"
realtime:
  max_attempts: 3
  connect_timeout: 2s
notifications:
  default_duration: 1500ms
  suppress_substrings:
    - auth
    - session
routes:
  super_role: OWNER
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.HTTPURL != "http://backend:9090" {
		t.Errorf("Server.HTTPURL = %q, want %q", cfg.Server.HTTPURL, "http://backend:9090")
	}
	if cfg.Server.WSURL != "ws://backend:9090/ws" {
		t.Errorf("Server.WSURL = %q", cfg.Server.WSURL)
	}
	if cfg.Realtime.MaxAttempts != 3 {
		t.Errorf("Realtime.MaxAttempts = %d, want 3", cfg.Realtime.MaxAttempts)
	}
	if cfg.Realtime.ConnectTimeout != 2*time.Second {
		t.Errorf("Realtime.ConnectTimeout = %v, want 2s", cfg.Realtime.ConnectTimeout)
	}
	if cfg.Notifications.DefaultDuration != 1500*time.Millisecond {
		t.Errorf("Notifications.DefaultDuration = %v, want 1.5s", cfg.Notifications.DefaultDuration)
	}
	if len(cfg.Notifications.SuppressSubstrings) != 2 {
		t.Errorf("SuppressSubstrings = %v, want [auth session]", cfg.Notifications.SuppressSubstrings)
	}
	if cfg.Routes.SuperRole != "OWNER" {
		t.Errorf("Routes.SuperRole = %q, want OWNER", cfg.Routes.SuperRole)
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.Routes.Entry != "/login" {
		t.Errorf("Routes.Entry = %q, want default /login", cfg.Routes.Entry)
	}
	if cfg.Realtime.BaseDelay != time.Second {
		t.Errorf("Realtime.BaseDelay = %v, want default 1s", cfg.Realtime.BaseDelay)
	}
	if cfg.Notifications.SuppressCode != "FETCH_ERROR" {
		t.Errorf("SuppressCode = %q, want default FETCH_ERROR", cfg.Notifications.SuppressCode)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() on missing file error: %v", err)
	}

	def := Default()
	if cfg.Server.HTTPURL != def.Server.HTTPURL {
		t.Errorf("Server.HTTPURL = %q, want default %q", cfg.Server.HTTPURL, def.Server.HTTPURL)
	}
	if cfg.Session.ResolveTimeout != def.Session.ResolveTimeout {
		t.Errorf("Session.ResolveTimeout = %v, want default %v", cfg.Session.ResolveTimeout, def.Session.ResolveTimeout)
	}
	if len(cfg.Mock.Users) != 2 {
		t.Errorf("Mock.Users = %d entries, want 2", len(cfg.Mock.Users))
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte(":::not valid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
}

func TestLoadUnreadable(t *testing.T) {
	dir := t.TempDir()

	// A directory cannot be read as a file; that is not "missing".
	_, err := Load(dir)
	if err == nil {
		t.Fatal("Load() on a directory should return error")
	}
}
