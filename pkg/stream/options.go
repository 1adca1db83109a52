package stream

import (
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Option configures a Manager.
type Option func(*Manager)

// WithDialer sets the transport. The default is an SSEDialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		if d != nil {
			m.dialer = d
		}
	}
}

// WithRetryPolicy sets the reconnect policy. The default is FixedRetry(5s).
func WithRetryPolicy(p RetryPolicy) Option {
	return func(m *Manager) {
		if p != nil {
			m.retry = p
		}
	}
}

// WithClock sets the clock used for retry timers.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver sets the telemetry observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithTokenParam sets the query parameter carrying the credential.
func WithTokenParam(param string) Option {
	return func(m *Manager) {
		if param != "" {
			m.auth.Param = param
		}
	}
}

// WithStateHook registers a hook for state transitions.
func WithStateHook(h StateHook) Option {
	return func(m *Manager) {
		if h != nil {
			m.hooks = append(m.hooks, h)
		}
	}
}
