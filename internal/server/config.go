package server

import (
	"net"
	"strconv"
	"time"

	"github.com/reddy-bhavesh/sarral-scan/internal/server/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// Stream paths
	StreamPath    string
	WebSocketPath string
	EmitPath      string

	// CORS settings
	CORSEnabled bool
	CORSOrigins []string

	// Authentication settings
	JWTSecret string
	TokenTTL  time.Duration

	// Performance settings
	RateLimit  int // Requests per minute per user or IP (0 to disable)
	RateBurst  int
	Heartbeat  time.Duration
	ReplayTTL  time.Duration
	ReplaySize int

	// HTTP timeouts. WriteTimeout stays zero so streams are not cut off.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Features
	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8000,
		StreamPath:     constants.DefaultStreamPath,
		WebSocketPath:  constants.DefaultWebSocketPath,
		EmitPath:       "/events/emit",
		CORSEnabled:    true,
		CORSOrigins:    []string{},
		TokenTTL:       constants.DefaultTokenTTL,
		RateLimit:      constants.DefaultRateLimit,
		RateBurst:      constants.BurstSize,
		Heartbeat:      constants.HeartbeatInterval,
		ReplayTTL:      events.DefaultReplayTTL,
		ReplaySize:     events.DefaultReplaySize,
		ReadTimeout:    10 * time.Second,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the settings New depends on.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.NewConfigError("server", "jwt secret is required", nil)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.NewValidationError("port", c.Port, "must be between 0 and 65535")
	}
	for name, p := range map[string]string{"stream_path": c.StreamPath, "websocket_path": c.WebSocketPath, "emit_path": c.EmitPath} {
		if p == "" || p[0] != '/' {
			return errors.NewValidationError(name, p, "must start with /")
		}
	}
	return nil
}
