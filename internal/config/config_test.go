package config

import (
	"testing"
	"time"
)

func TestLoadPriority(t *testing.T) {
	t.Setenv("WARPMEET_SERVER", "https://env.example.com")
	t.Setenv("STUN_SERVER", "")
	t.Setenv("WARPMEET_RECONNECT_DELAY", "")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.ServerURL.String(); got != "https://env.example.com" {
		t.Fatalf("server = %q, want env value", got)
	}
	if len(cfg.STUNServers) != 2 {
		t.Fatalf("stun servers = %v, want 2 defaults", cfg.STUNServers)
	}
	if cfg.ReconnectDelay != DefaultReconnectDelay {
		t.Fatalf("reconnect delay = %v", cfg.ReconnectDelay)
	}

	cfg, err = Load(Options{Server: "localhost:9000", STUNServer: "stun:a:1", ReconnectDelay: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.ServerURL.String(); got != "http://localhost:9000" {
		t.Fatalf("server = %q, want flag value", got)
	}
	if len(cfg.STUNServers) != 1 || cfg.STUNServers[0] != "stun:a:1" {
		t.Fatalf("stun servers = %v", cfg.STUNServers)
	}
	if cfg.ReconnectDelay != 5*time.Millisecond {
		t.Fatalf("reconnect delay = %v", cfg.ReconnectDelay)
	}
}

func TestLoadRejectsBadDelay(t *testing.T) {
	t.Setenv("WARPMEET_RECONNECT_DELAY", "soon")
	if _, err := Load(Options{}); err == nil {
		t.Fatal("expected error for unparsable delay")
	}
}

func TestRoomURLs(t *testing.T) {
	cfg, err := Load(Options{Server: "https://meet.example.com/"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.CreateRoomURL(), "https://meet.example.com/create-room"; got != want {
		t.Fatalf("CreateRoomURL = %q, want %q", got, want)
	}
	if got, want := cfg.JoinRoomURL("ab12CD34"), "wss://meet.example.com/join-room?roomID=ab12CD34"; got != want {
		t.Fatalf("JoinRoomURL = %q, want %q", got, want)
	}
	if got := ParseRoomCode(cfg.GetRoomLink("ab12CD34")); got != "ab12CD34" {
		t.Fatalf("ParseRoomCode(link) = %q", got)
	}
}

func TestParseRoomCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ab12CD34", "ab12CD34"},
		{"  ab12CD34\n", "ab12CD34"},
		{"", ""},
		{"http://localhost:8080/join-room?roomID=xyz", "xyz"},
		{"http://localhost:8080/join-room", ""},
	}
	for _, tt := range tests {
		if got := ParseRoomCode(tt.in); got != tt.want {
			t.Errorf("ParseRoomCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTURNServers(t *testing.T) {
	cfg := &Config{}
	if cfg.GetTURNServers() != nil {
		t.Fatal("expected no TURN servers by default")
	}
	cfg.TURNServer = "turn.example.com"
	if got := cfg.GetTURNServers(); len(got) != 2 || got[0] != "turn:turn.example.com:3478?transport=udp" {
		t.Fatalf("GetTURNServers = %v", got)
	}
}
