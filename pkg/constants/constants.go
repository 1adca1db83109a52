// Package constants provides shared constants used throughout the sarral-scan codebase.
// This includes timeouts, limits, file permissions, and other configuration values
// that should be consistent across the stream client and the development server.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for plain HTTP requests
	DefaultHTTPTimeout = 30 * time.Second

	// ResponseHeaderTimeout bounds how long a stream dial waits for response headers.
	// Streams themselves have no overall timeout.
	ResponseHeaderTimeout = 15 * time.Second

	// DialTimeout is the timeout for establishing network connections
	DialTimeout = 10 * time.Second

	// ShutdownTimeout is the grace period for stopping servers and clients
	ShutdownTimeout = 5 * time.Second

	// DefaultRetryDelay is the fixed delay between a connection error and the next attempt
	DefaultRetryDelay = 5 * time.Second

	// MaxRetryDelay caps the exponential retry strategy
	MaxRetryDelay = 30 * time.Second

	// HeartbeatInterval is how often the development server writes SSE comments
	HeartbeatInterval = 15 * time.Second

	// SimulatorStepInterval is the delay between simulated scan status changes
	SimulatorStepInterval = 2 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureDirPermissions is for directories holding credentials (rwx------)
	SecureDirPermissions = 0700

	// SecureFilePermissions is for sensitive files like access tokens (rw-------)
	SecureFilePermissions = 0600
)

// Limit constants define various limits and capacities
const (
	// StreamInitialBuffer is the initial read buffer for the SSE line scanner
	StreamInitialBuffer = 64 * 1024

	// StreamMaxBuffer is the largest single SSE line accepted
	StreamMaxBuffer = 512 * 1024

	// ChannelBufferSize is the default buffer size for subscriber channels
	ChannelBufferSize = 100

	// MaxWSMessageSize is the largest inbound websocket message the server accepts
	MaxWSMessageSize = 512
)

// Rate limiting constants
const (
	// DefaultRateLimit is the default requests per minute per client
	DefaultRateLimit = 60

	// BurstSize is the token bucket burst size for rate limiting
	BurstSize = 10
)

// Stream endpoint defaults
const (
	// DefaultAPIURL is the backend base URL used when none is configured
	DefaultAPIURL = "http://localhost:8000"

	// DefaultStreamPath is the SSE stream path relative to the API URL
	DefaultStreamPath = "/events/stream"

	// DefaultWebSocketPath is the websocket stream path relative to the API URL
	DefaultWebSocketPath = "/events/ws"

	// DefaultTokenParam is the query parameter carrying the access credential
	DefaultTokenParam = "token"

	// DefaultTokenEnv is the environment variable seeding the session credential
	DefaultTokenEnv = "SARRAL_TOKEN"

	// DefaultTokenTTL is the lifetime of tokens issued by the development server
	DefaultTokenTTL = 24 * time.Hour
)

// Path constants
const (
	// DefaultTokenFile is the durable credential store
	DefaultTokenFile = "~/.sarral-scan/token"
)

// Format constants
const (
	// TimeFormatLog is the format used in log files
	TimeFormatLog = "2006-01-02 15:04:05.000"
)

// Error messages
const (
	// ErrMsgInvalidToken is the standard error message for rejected stream tokens
	ErrMsgInvalidToken = "invalid or missing token"

	// ErrMsgRateLimited is the standard error message for rate limiting
	ErrMsgRateLimited = "rate limit exceeded, please try again later"
)
