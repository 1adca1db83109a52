package sarralscan

import (
	"net/url"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/logging"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

// Transport names accepted by WithTransport.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// Option is a function that configures a Client.
type Option func(*options) error

// options holds the resolved Client configuration.
type options struct {
	baseURL        string
	endpoint       string
	transport      string
	tokenParam     string
	credentials    credentials.Source
	dialer         stream.Dialer
	retry          stream.RetryPolicy
	clock          clock.Clock
	logger         *zerolog.Logger
	observer       stream.Observer
	policy         events.Policy
	knownTypes     []events.Type
	failureHandler events.FailureHandler
}

func defaults() *options {
	return &options{
		baseURL:    constants.DefaultAPIURL,
		transport:  TransportSSE,
		tokenParam: constants.DefaultTokenParam,
		clock:      clock.New(),
		policy:     events.PolicyAutoDeclare,
	}
}

// apply runs opts and fills the defaults that depend on other options.
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.logger == nil {
		o.logger = logging.Component("events")
	}
	if o.credentials == nil {
		o.credentials = credentials.NewMemoryStoreFromEnv(constants.DefaultTokenEnv)
	}
	if o.dialer == nil {
		if o.transport == TransportWebSocket {
			o.dialer = stream.NewWebSocketDialer()
		} else {
			o.dialer = stream.NewSSEDialer(nil)
		}
	}
	if o.retry == nil {
		o.retry = stream.FixedRetry(constants.DefaultRetryDelay)
	}
	if o.observer == nil {
		o.observer = stream.NopObserver{}
	}
	return o, nil
}

// streamEndpoint returns the explicit endpoint or joins the base URL with
// the path of the selected transport.
func (o *options) streamEndpoint() (string, error) {
	if o.endpoint != "" {
		return o.endpoint, nil
	}
	path := constants.DefaultStreamPath
	if o.transport == TransportWebSocket {
		path = constants.DefaultWebSocketPath
	}
	base, err := url.Parse(strings.TrimRight(o.baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", errors.NewValidationError("base_url", o.baseURL, "must be an absolute URL")
	}
	return base.JoinPath(path).String(), nil
}

// WithBaseURL sets the API base URL. The stream path is derived from the
// transport.
func WithBaseURL(base string) Option {
	return func(o *options) error {
		if base == "" {
			return errors.NewValidationError("base_url", base, "base URL is required")
		}
		o.baseURL = base
		return nil
	}
}

// WithEndpoint sets the full stream URL, overriding WithBaseURL.
func WithEndpoint(endpoint string) Option {
	return func(o *options) error {
		o.endpoint = endpoint
		return nil
	}
}

// WithTransport selects "sse" (default) or "websocket".
func WithTransport(name string) Option {
	return func(o *options) error {
		switch strings.ToLower(name) {
		case "", TransportSSE:
			o.transport = TransportSSE
		case TransportWebSocket, "ws":
			o.transport = TransportWebSocket
		default:
			return errors.NewValidationError("transport", name, "expected sse or websocket")
		}
		return nil
	}
}

// WithTokenParam sets the query parameter carrying the credential.
func WithTokenParam(param string) Option {
	return func(o *options) error {
		if param != "" {
			o.tokenParam = param
		}
		return nil
	}
}

// WithCredentials sets where the access token is read from. It is read on
// every connection attempt.
func WithCredentials(src credentials.Source) Option {
	return func(o *options) error {
		o.credentials = src
		return nil
	}
}

// WithDialer replaces the transport dialer.
func WithDialer(d stream.Dialer) Option {
	return func(o *options) error {
		o.dialer = d
		return nil
	}
}

// WithRetryPolicy sets the reconnect policy
func WithRetryPolicy(p stream.RetryPolicy) Option {
	return func(o *options) error {
		o.retry = p
		return nil
	}
}

// WithClock sets the clock driving reconnect timers.
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		if c != nil {
			o.clock = c
		}
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithObserver sets the connection telemetry observer.
func WithObserver(obs stream.Observer) Option {
	return func(o *options) error {
		o.observer = obs
		return nil
	}
}

// WithPolicy sets how unseen event types are handled.
func WithPolicy(p events.Policy) Option {
	return func(o *options) error {
		o.policy = p
		return nil
	}
}

// WithKnownTypes declares event types up front. Under PolicyAllowList these
// are the only types that can be subscribed to or routed.
func WithKnownTypes(types ...events.Type) Option {
	return func(o *options) error {
		o.knownTypes = append(o.knownTypes, types...)
		return nil
	}
}

// WithListenerFailureHandler is called whenever a listener panics.
func WithListenerFailureHandler(fn events.FailureHandler) Option {
	return func(o *options) error {
		o.failureHandler = fn
		return nil
	}
}
