package server

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPolicyDocument is served to legacy policy probes when the
// configuration does not override it.
const DefaultPolicyDocument = `<?xml version="1.0"?>
<cross-domain-policy>
<allow-access-from domain="*" to-ports="*"/>
</cross-domain-policy>`

// Config holds the server configuration.
type Config struct {
	// HTTPAddr is the listen address for the WebSocket endpoint, metrics,
	// and health check.
	// Default: ":9091".
	HTTPAddr string `yaml:"httpAddr"`

	// TCPAddr is the listen address for the raw TCP transport. Empty
	// disables it.
	// Default: ":9092".
	TCPAddr string `yaml:"tcpAddr"`

	// WebSocketPath is the HTTP path the WebSocket endpoint is mounted on.
	// Default: "/ws".
	WebSocketPath string `yaml:"webSocketPath"`

	// MaxUsers caps concurrent users server-wide.
	// Default: 1000.
	MaxUsers int `yaml:"maxUsers"`

	// ConnectionTimeout evicts users whose last inbound message is older
	// than this. The check runs at half the timeout.
	// Default: 30 seconds.
	ConnectionTimeout time.Duration `yaml:"connectionTimeout"`

	// RoomSweepInterval is the period of the empty-room sweep.
	// Default: 2 seconds.
	RoomSweepInterval time.Duration `yaml:"roomSweepInterval"`

	// MaxFrameSize rejects frames whose declared payload length exceeds it.
	// Default: 64KB.
	MaxFrameSize int `yaml:"maxFrameSize"`

	// OutboundQueueSize is the per-connection outbound frame queue. A
	// connection that overflows it is dropped.
	// Default: 128.
	OutboundQueueSize int `yaml:"outboundQueueSize"`

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int `yaml:"readBufferSize"`

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int `yaml:"writeBufferSize"`

	// WriteTimeout is the maximum time to wait when writing a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration `yaml:"writeTimeout"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// PolicyDocument is the reply to a legacy policy probe on the TCP
	// transport.
	// Default: DefaultPolicyDocument.
	PolicyDocument string `yaml:"policyDocument"`

	// Sessions are created in the registry at startup.
	// Default: none.
	Sessions []SessionConfig `yaml:"sessions"`

	// CheckOrigin validates the WebSocket request origin.
	// Default: allows all origins (not recommended for production).
	CheckOrigin func(r *http.Request) bool `yaml:"-"`
}

// SessionConfig declares a session to create at startup.
type SessionConfig struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name"`
	AutoRoomCreate bool         `yaml:"autoRoomCreate"`
	Rooms          []RoomConfig `yaml:"rooms"`
}

// RoomConfig declares a room created inside a startup session.
type RoomConfig struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	MaxUsers   int    `yaml:"maxUsers"`
	Persistent bool   `yaml:"persistent"`
	Password   string `yaml:"password"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:          ":9091",
		TCPAddr:           ":9092",
		WebSocketPath:     "/ws",
		MaxUsers:          1000,
		ConnectionTimeout: 30 * time.Second,
		RoomSweepInterval: 2 * time.Second,
		MaxFrameSize:      64 * 1024,
		OutboundQueueSize: 128,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		WriteTimeout:      10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		PolicyDocument:    DefaultPolicyDocument,
	}
}

// LoadConfig reads a YAML file over the defaults. Fields absent from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" && c.TCPAddr == "" {
		return fmt.Errorf("server: no listen address configured")
	}
	if c.MaxUsers <= 0 {
		return fmt.Errorf("server: maxUsers must be positive, got %d", c.MaxUsers)
	}
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("server: connectionTimeout must be positive, got %v", c.ConnectionTimeout)
	}
	if c.RoomSweepInterval <= 0 {
		return fmt.Errorf("server: roomSweepInterval must be positive, got %v", c.RoomSweepInterval)
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("server: maxFrameSize must be positive, got %d", c.MaxFrameSize)
	}
	if c.OutboundQueueSize <= 0 {
		return fmt.Errorf("server: outboundQueueSize must be positive, got %d", c.OutboundQueueSize)
	}
	seen := make(map[string]struct{}, len(c.Sessions))
	for _, sc := range c.Sessions {
		if sc.ID == "" {
			return fmt.Errorf("server: session with empty id")
		}
		if _, dup := seen[sc.ID]; dup {
			return fmt.Errorf("server: duplicate session id %q", sc.ID)
		}
		seen[sc.ID] = struct{}{}
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Sessions = make([]SessionConfig, len(c.Sessions))
	for i, sc := range c.Sessions {
		sc.Rooms = append([]RoomConfig(nil), sc.Rooms...)
		clone.Sessions[i] = sc
	}
	return &clone
}
