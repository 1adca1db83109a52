// Package app provides the application context and dependency management
// for the sarral-scan CLI. Configuration, logging and the construction of
// event clients live here; commands receive the App as an
// appcontext.Interface.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	sarralscan "github.com/reddy-bhavesh/sarral-scan"
	"github.com/reddy-bhavesh/sarral-scan/internal/appcontext"
	"github.com/reddy-bhavesh/sarral-scan/internal/server"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// App represents the sarral-scan application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	mu      sync.Mutex
	session *credentials.MemoryStore
	clients []sarralscan.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// NoColor reports whether colored output is disabled.
func (a *App) NoColor() bool {
	return a.config.NoColor
}

// APIURL returns the backend base URL.
func (a *App) APIURL() string {
	return a.config.APIURL
}

// ServerConfig returns the development server configuration.
func (a *App) ServerConfig() server.Config {
	return a.config.Server
}

// TokenStore returns the durable credential file.
func (a *App) TokenStore() (credentials.Store, error) {
	return credentials.NewFileStore(a.config.TokenFile)
}

// SessionStore returns the in-process store seeded from the token
// environment variable. The same store is returned on every call.
func (a *App) SessionStore() credentials.Store {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		a.session = credentials.NewMemoryStoreFromEnv(a.config.TokenEnv)
	}
	return a.session
}

// Client builds an event client from the configuration. The session token
// is preferred over the durable one. Clients are closed by Shutdown.
func (a *App) Client(opts ...sarralscan.Option) (sarralscan.Client, error) {
	base, err := a.clientOptions()
	if err != nil {
		return nil, err
	}
	c, err := sarralscan.New(append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.clients = append(a.clients, c)
	a.mu.Unlock()
	return c, nil
}

// clientOptions translates the configuration into client options.
func (a *App) clientOptions() ([]sarralscan.Option, error) {
	cfg := a.config

	retry, err := stream.ParseRetryPolicy(cfg.RetryStrategy, cfg.RetryDelay, cfg.RetryMaxDelay)
	if err != nil {
		return nil, err
	}
	policy, err := events.ParsePolicy(cfg.EventsPolicy)
	if err != nil {
		return nil, err
	}
	endpoint, err := cfg.StreamEndpoint()
	if err != nil {
		return nil, err
	}

	sources := credentials.Chain{a.SessionStore()}
	if durable, err := a.TokenStore(); err == nil {
		sources = append(sources, durable)
	} else {
		a.logger.Warn().Err(err).Msg("Durable token store unavailable")
	}

	types := make([]events.Type, 0, len(cfg.EventTypes))
	for _, t := range cfg.EventTypes {
		types = append(types, events.Type(t))
	}

	opts := []sarralscan.Option{
		sarralscan.WithBaseURL(cfg.APIURL),
		sarralscan.WithTransport(cfg.Transport),
		sarralscan.WithTokenParam(cfg.TokenParam),
		sarralscan.WithCredentials(sources),
		sarralscan.WithRetryPolicy(retry),
		sarralscan.WithPolicy(policy),
		sarralscan.WithKnownTypes(types...),
		sarralscan.WithLogger(a.logger),
	}
	if endpoint != "" {
		opts = append(opts, sarralscan.WithEndpoint(endpoint))
	}
	return opts, nil
}

// Shutdown closes every client created through Client.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	clients := a.clients
	a.clients = nil
	a.mu.Unlock()

	for _, c := range clients {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close event client during shutdown")
		}
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
