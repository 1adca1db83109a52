package appcontext

import (
	"github.com/rs/zerolog"

	sarralscan "github.com/reddy-bhavesh/sarral-scan"
	"github.com/reddy-bhavesh/sarral-scan/internal/server"
	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
)

var _ Interface = (*Mock)(nil)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default value.
type Mock struct {
	ClientFunc       func(...sarralscan.Option) (sarralscan.Client, error)
	TokenStoreFunc   func() (credentials.Store, error)
	SessionStoreFunc func() credentials.Store
	ServerConfigFunc func() server.Config
	LoggerFunc       func() *zerolog.Logger
	Format           string
	URL              string
	Colorless        bool

	session credentials.Store
}

// Client returns a client using the mock function or a default client.
func (m *Mock) Client(opts ...sarralscan.Option) (sarralscan.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc(opts...)
	}
	base := []sarralscan.Option{
		sarralscan.WithBaseURL(m.APIURL()),
		sarralscan.WithCredentials(m.SessionStore()),
		sarralscan.WithLogger(m.Logger()),
	}
	return sarralscan.New(append(base, opts...)...)
}

// TokenStore returns a store using the mock function or a memory store.
func (m *Mock) TokenStore() (credentials.Store, error) {
	if m.TokenStoreFunc != nil {
		return m.TokenStoreFunc()
	}
	return m.SessionStore(), nil
}

// SessionStore returns a store using the mock function or a memory store.
func (m *Mock) SessionStore() credentials.Store {
	if m.SessionStoreFunc != nil {
		return m.SessionStoreFunc()
	}
	if m.session == nil {
		m.session = credentials.NewMemoryStore()
	}
	return m.session
}

// ServerConfig returns a config using the mock function or server.DefaultConfig.
func (m *Mock) ServerConfig() server.Config {
	if m.ServerConfigFunc != nil {
		return m.ServerConfigFunc()
	}
	return server.DefaultConfig()
}

// APIURL returns URL or the default API URL.
func (m *Mock) APIURL() string {
	if m.URL != "" {
		return m.URL
	}
	return constants.DefaultAPIURL
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns Format or "table".
func (m *Mock) OutputFormat() string {
	if m.Format != "" {
		return m.Format
	}
	return "table"
}

// NoColor returns Colorless.
func (m *Mock) NoColor() bool { return m.Colorless }

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "unknown".
func (m *Mock) BuiltBy() string { return "unknown" }
