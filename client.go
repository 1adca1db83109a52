// Package sarralscan provides the live event subsystem of the Sarral scan
// dashboard. It keeps one authenticated event stream per session and fans
// backend-pushed events out to subscribers by event type.
//
// A Client wraps the stream manager and event router with a small API:
// - Subscribe and Unsubscribe listeners per event type
// - Follow the authentication boundary with SetAuthenticated
// - Observe connection state through hooks
// - Reach the session's Subscriber through a context.Context
//
// Example usage:
//
//	client, err := sarralscan.New(
//	    sarralscan.WithEndpoint("http://localhost:8000/events/stream"),
//	    sarralscan.WithCredentials(store),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Listen for scan progress
//	_ = client.Subscribe(events.ScanUpdate, events.Typed(
//	    func(_ events.Event, p events.ScanUpdatePayload) {
//	        log.Printf("scan %s is %s", p.ScanID, p.Status)
//	    }, nil))
//
//	// Open the stream once the user is logged in
//	if err := client.SetAuthenticated(ctx, true); err != nil {
//	    log.Fatal(err)
//	}
package sarralscan

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

// Compile-time interface checks.
var (
	_ Client     = (*client)(nil)
	_ Subscriber = (*client)(nil)
	_ Hooks      = (*client)(nil)
)

// Subscriber is the surface UI components use. Listeners registered with
// Subscribe stay registered until Unsubscribe is called with the same pair.
type Subscriber interface {
	// Subscribe registers l for events of type t
	Subscribe(t events.Type, l events.Listener) error

	// Unsubscribe removes l from type t; unknown pairs are ignored
	Unsubscribe(t events.Type, l events.Listener)

	// IsConnected reports whether the stream is open
	IsConnected() bool

	// LastEvent returns the most recent event of this session
	LastEvent() (events.Event, bool)
}

// Lifecycle ties the stream to the authentication boundary.
type Lifecycle interface {
	// SetAuthenticated starts the stream when true and stops it when false
	SetAuthenticated(ctx context.Context, authenticated bool) error

	// State returns the connection state
	State() stream.State

	// Close stops the stream for good
	Close() error
}

// Client is one live event session.
type Client interface {

	// Subscriber is what UI components see
	Subscriber

	// Lifecycle follows authentication
	Lifecycle

	// Hooks registers connection callbacks
	Hooks

	// Types lists the event types currently routable
	Types() []events.Type

	// Endpoint returns the stream URL without credentials
	Endpoint() string
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options
	logger  *zerolog.Logger

	router  *events.Router
	manager *stream.Manager
	hooks   *hooks

	mu     sync.Mutex
	closed bool
}

// New creates a Client. The stream is not opened until SetAuthenticated(true).
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, errors.WrapResource("configure", "client", "", err)
	}

	c := &client{
		options: o,
		logger:  o.logger,
		hooks:   newHooks(),
	}

	routerOpts := []events.Option{
		events.WithPolicy(o.policy),
		events.WithLogger(o.logger),
		events.WithDeclared(o.knownTypes...),
	}
	if o.failureHandler != nil {
		routerOpts = append(routerOpts, events.WithFailureHandler(o.failureHandler))
	}
	c.router = events.NewRouter(routerOpts...)
	c.router.OnDeclare(func(t events.Type) {
		c.logger.Debug().Str("event_type", string(t)).Msg("Event type declared")
	})

	endpoint, err := o.streamEndpoint()
	if err != nil {
		return nil, err
	}

	streamOpts := []stream.Option{
		stream.WithDialer(o.dialer),
		stream.WithRetryPolicy(o.retry),
		stream.WithClock(o.clock),
		stream.WithLogger(o.logger),
		stream.WithObserver(o.observer),
		stream.WithTokenParam(o.tokenParam),
		stream.WithStateHook(c.hooks.trigger),
	}
	if c.manager, err = stream.NewManager(endpoint, o.credentials, c.router, streamOpts...); err != nil {
		return nil, errors.WrapResource("create", "stream manager", "", err)
	}

	c.logger.Debug().
		Str("endpoint", c.manager.Endpoint()).
		Str("transport", o.transport).
		Str("policy", o.policy.String()).
		Msg("Event client created")
	return c, nil
}

// Subscribe implements Subscriber.
func (c *client) Subscribe(t events.Type, l events.Listener) error {
	if c.isClosed() {
		return errors.ErrClosed
	}
	return c.router.Register(t, l)
}

// Unsubscribe implements Subscriber.
func (c *client) Unsubscribe(t events.Type, l events.Listener) {
	c.router.Unregister(t, l)
}

// IsConnected implements Subscriber.
func (c *client) IsConnected() bool {
	return c.manager.IsConnected()
}

// LastEvent implements Subscriber.
func (c *client) LastEvent() (events.Event, bool) {
	return c.manager.LastEvent()
}

// SetAuthenticated implements Lifecycle.
func (c *client) SetAuthenticated(ctx context.Context, authenticated bool) error {
	if !authenticated {
		c.manager.Stop()
		return nil
	}
	if c.isClosed() {
		return errors.ErrClosed
	}
	return c.manager.Start(ctx)
}

// State implements Lifecycle.
func (c *client) State() stream.State {
	return c.manager.State()
}

// Close implements Lifecycle.
func (c *client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.manager.Stop()
	return nil
}

// OnStateChange implements Hooks.
func (c *client) OnStateChange(fn StateChangeHook) { c.hooks.OnStateChange(fn) }

// OnConnected implements Hooks.
func (c *client) OnConnected(fn ConnectedHook) { c.hooks.OnConnected(fn) }

// OnDisconnected implements Hooks.
func (c *client) OnDisconnected(fn DisconnectedHook) { c.hooks.OnDisconnected(fn) }

// Types implements Client.
func (c *client) Types() []events.Type {
	return c.router.Types()
}

// Endpoint implements Client.
func (c *client) Endpoint() string {
	return c.manager.Endpoint()
}

func (c *client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
