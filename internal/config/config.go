package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values
const (
	DefaultServer          = "http://localhost:8080"
	DefaultSTUN            = "stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302"
	DefaultReconnectDelay  = time.Second
	DefaultMaxParticipants = 4
	DefaultDisplaySlots    = 3
)

// Config holds application configuration
type Config struct {
	// ServerURL is the http(s) base URL of the room relay
	ServerURL *url.URL

	// ICE servers for WebRTC
	STUNServers []string
	TURNServer  string
	TURNUser    string
	TURNPass    string

	// DisplayName is announced to peers over the control channel
	DisplayName string

	// Local media files; empty means idle tracks
	VideoFile string
	AudioFile string

	ReconnectDelay  time.Duration
	MaxParticipants int
	DisplaySlots    int
}

// Options for loading config with CLI flag overrides
type Options struct {
	Server         string
	STUNServer     string
	TURNServer     string
	TURNUser       string
	TURNPass       string
	DisplayName    string
	VideoFile      string
	AudioFile      string
	ReconnectDelay time.Duration
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (a .env file in the working directory is read first)
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	server := pick(opts.Server, "WARPMEET_SERVER", DefaultServer)
	u, err := parseServerURL(server)
	if err != nil {
		return nil, err
	}

	delay := opts.ReconnectDelay
	if delay == 0 {
		if v := os.Getenv("WARPMEET_RECONNECT_DELAY"); v != "" {
			delay, err = time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid WARPMEET_RECONNECT_DELAY %q: %w", v, err)
			}
		}
	}
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}

	name := pick(opts.DisplayName, "WARPMEET_NAME", "")
	if name == "" {
		name, _ = os.Hostname()
	}

	return &Config{
		ServerURL:       u,
		STUNServers:     splitList(pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN)),
		TURNServer:      pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:        pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:        pick(opts.TURNPass, "TURN_PASSWORD", ""),
		DisplayName:     name,
		VideoFile:       opts.VideoFile,
		AudioFile:       opts.AudioFile,
		ReconnectDelay:  delay,
		MaxParticipants: DefaultMaxParticipants,
		DisplaySlots:    DefaultDisplaySlots,
	}, nil
}

// pick returns the flag value, then the env value, then def.
func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseServerURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return nil, fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

// CreateRoomURL returns the http endpoint that allocates a new room
func (c *Config) CreateRoomURL() string {
	u := *c.ServerURL
	u.Path += "/create-room"
	return u.String()
}

// JoinRoomURL returns the websocket endpoint for a room
func (c *Config) JoinRoomURL(roomID string) string {
	u := *c.ServerURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/join-room"
	u.RawQuery = url.Values{"roomID": {roomID}}.Encode()
	return u.String()
}

// GetRoomLink returns a shareable link for a room ID
func (c *Config) GetRoomLink(roomID string) string {
	u := *c.ServerURL
	u.Path += "/join-room"
	u.RawQuery = url.Values{"roomID": {roomID}}.Encode()
	return u.String()
}

// ParseRoomCode accepts either a bare room code or a room link and returns the code.
func ParseRoomCode(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "://") {
		return input
	}
	u, err := url.Parse(input)
	if err != nil {
		return ""
	}
	if id := u.Query().Get("roomID"); id != "" {
		return id
	}
	return ""
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return c.STUNServers
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	server := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", server),
		fmt.Sprintf("turn:%s:3478?transport=tcp", server),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// RelayConfig holds settings for the room relay server
type RelayConfig struct {
	Addr           string
	RedisAddr      string
	RedisPassword  string
	RoomTTL        time.Duration
	AllowedOrigins []string
}

// RelayOptions for loading relay config with CLI flag overrides
type RelayOptions struct {
	Addr      string
	RedisAddr string
}

// LoadRelay reads relay configuration: flag > env > default.
func LoadRelay(opts RelayOptions) *RelayConfig {
	_ = godotenv.Load()

	addr := opts.Addr
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		}
	}
	if addr == "" {
		addr = ":8080"
	}

	return &RelayConfig{
		Addr:           addr,
		RedisAddr:      pick(opts.RedisAddr, "REDIS_ADDR", ""),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RoomTTL:        24 * time.Hour,
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
	}
}
