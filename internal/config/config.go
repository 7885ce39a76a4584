package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Session       SessionConfig       `yaml:"session"`
	Realtime      RealtimeConfig      `yaml:"realtime"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Routes        RoutesConfig        `yaml:"routes"`
	Log           LogConfig           `yaml:"log"`
	Mock          MockConfig          `yaml:"mock"`
}

type ServerConfig struct {
	HTTPURL string `yaml:"http_url"`
	WSURL   string `yaml:"ws_url"`
	// Token is an optional bearer token to start with, so a restarted
	// console can resume a session the backend still honours.
	Token string `yaml:"token"`
}

// SessionConfig bounds the identity calls made by the session store.
type SessionConfig struct {
	ResolveTimeout time.Duration `yaml:"resolve_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RealtimeConfig controls the connection manager's reconnect policy.
type RealtimeConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
}

type NotificationsConfig struct {
	DefaultDuration    time.Duration `yaml:"default_duration"`
	MaxVisible         int           `yaml:"max_visible"`
	SuppressCode       string        `yaml:"suppress_code"`
	SuppressSubstrings []string      `yaml:"suppress_substrings"`
}

type RoutesConfig struct {
	Entry          string `yaml:"entry"`
	SuperRole      string `yaml:"super_role"`
	SuperLanding   string `yaml:"super_landing"`
	DefaultLanding string `yaml:"default_landing"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MockConfig configures cmd/console-mock only.
type MockConfig struct {
	Listen       string        `yaml:"listen"`
	TickInterval time.Duration `yaml:"tick_interval"`
	Users        []MockUser    `yaml:"users"`
}

type MockUser struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	ID        string `yaml:"id"`
	Role      string `yaml:"role"`
	Name      string `yaml:"name"`
	SocietyID string `yaml:"society_id"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPURL: "http://127.0.0.1:8080",
			WSURL:   "ws://127.0.0.1:8080/ws",
		},
		Session: SessionConfig{
			ResolveTimeout: 10 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		Realtime: RealtimeConfig{
			ConnectTimeout: 5 * time.Second,
			MaxAttempts:    5,
			BaseDelay:      time.Second,
			MaxDelay:       30 * time.Second,
			PingInterval:   30 * time.Second,
			PongTimeout:    60 * time.Second,
		},
		Notifications: NotificationsConfig{
			DefaultDuration:    4 * time.Second,
			SuppressCode:       "FETCH_ERROR",
			SuppressSubstrings: []string{"auth"},
		},
		Routes: RoutesConfig{
			Entry:          "/login",
			SuperRole:      "SUPER_ADMIN",
			SuperLanding:   "/super/dashboard",
			DefaultLanding: "/society/dashboard",
		},
		Log: LogConfig{
			Level: "info",
			File:  "console.log",
		},
		Mock: MockConfig{
			Listen:       "127.0.0.1:8080",
			TickInterval: 5 * time.Second,
			Users: []MockUser{
				{Username: "root", Password: "root", ID: "u0", Role: "SUPER_ADMIN", Name: "Platform Admin"},
				{Username: "admin", Password: "admin", ID: "u1", Role: "SOCIETY_ADMIN", Name: "Society Admin", SocietyID: "soc-1"},
			},
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
