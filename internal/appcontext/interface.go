// Package appcontext provides the application context interface shared by
// all commands. Commands accept it instead of the concrete App so they can
// be tested against Mock.
package appcontext

import (
	"github.com/rs/zerolog"

	sarralscan "github.com/reddy-bhavesh/sarral-scan"
	"github.com/reddy-bhavesh/sarral-scan/internal/server"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
)

// Interface defines what commands need from the application.
type Interface interface {
	// Client builds an event client from the loaded configuration.
	// opts are applied after the configured ones.
	Client(opts ...sarralscan.Option) (sarralscan.Client, error)

	// TokenStore returns the durable credential store ("remember me").
	TokenStore() (credentials.Store, error)

	// SessionStore returns the in-process credential store, seeded from
	// the configured token environment variable.
	SessionStore() credentials.Store

	// ServerConfig returns the development server configuration.
	ServerConfig() server.Config

	// APIURL returns the backend base URL.
	APIURL() string

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// NoColor reports whether colored output is disabled.
	NoColor() bool

	Version() string
	Commit() string
	Date() string
	BuiltBy() string
}
