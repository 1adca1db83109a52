// Package logging provides structured logging for sarral-scan using zerolog.
// Terminals get human-readable console output; pipes and files get JSON.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("event_type", "SCAN_UPDATE").Msg("Routed event")
//
//	ctx := logging.WithEventType(context.Background(), "SCAN_UPDATE")
//	logging.FromContext(ctx).Debug().Msg("Dispatching")
//
// Stream URLs carry the access credential in a query parameter, so anything
// logging an endpoint must go through RedactURL first.
package logging

import (
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := NewLoggerFromConfig(FromEnv())
	current.Store(&l)
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return current.Load()
}

// SetDefault replaces the process-wide logger, including zerolog's global
// log.Logger.
func SetDefault(logger zerolog.Logger) {
	current.Store(&logger)
	log.Logger = logger
}

// Component returns a child of the default logger tagged with a component name.
func Component(name string) *zerolog.Logger {
	l := Default().With().Str("component", name).Logger()
	return &l
}

// Debug starts a debug event on the default logger.
func Debug() *zerolog.Event { return Default().Debug() }

// Info starts an info event on the default logger.
func Info() *zerolog.Event { return Default().Info() }

// Warn starts a warning event on the default logger.
func Warn() *zerolog.Event { return Default().Warn() }

// Err starts an error event carrying err, or an info event when err is nil.
func Err(err error) *zerolog.Event { return Default().Err(err) }
