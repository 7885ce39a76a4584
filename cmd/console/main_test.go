package main

import "testing"

func TestDeriveWSURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://127.0.0.1:8080", "ws://127.0.0.1:8080/ws"},
		{"https://society.example.com", "wss://society.example.com/ws"},
		{"http://localhost:9000/api", "ws://localhost:9000/ws"},
		{"not a url", "ws://127.0.0.1:8080/ws"},
	}
	for _, tt := range tests {
		if got := deriveWSURL(tt.in); got != tt.want {
			t.Errorf("deriveWSURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
