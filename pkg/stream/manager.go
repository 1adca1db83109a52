// Package stream maintains the single long-lived event stream of an
// authenticated session and bridges its frames into an events.Router.
//
// A Manager moves through Disconnected, Connecting, Open and Erroring. It
// holds at most one connection and at most one pending reconnect timer.
// Every connection carries a generation number; callbacks from a
// connection that has been superseded or stopped are discarded.
package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/internal/transport"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/logging"
)

// Manager owns the stream connection.
type Manager struct {
	endpoint string
	creds    credentials.Source
	router   *events.Router
	dialer   Dialer
	retry    RetryPolicy
	clock    clock.Clock
	logger   *zerolog.Logger
	observer Observer
	auth     *transport.QueryAuth

	attempts atomic.Uint64

	// dispatchMu keeps events in stream order across connections.
	dispatchMu sync.Mutex

	mu      sync.Mutex
	hooks   []StateHook
	state   State
	active  bool // set by Start, cleared by Stop or a missing credential
	gen     uint64
	conn    Conn
	cancel  context.CancelFunc
	timer   *clock.Timer
	last    events.Event
	hasLast bool
	resume  string // last frame id of this session
	pending []StateChange
}

// NewManager creates a Manager for endpoint. The credential is appended to
// the endpoint as a query parameter on every dial.
func NewManager(endpoint string, creds credentials.Source, router *events.Router, opts ...Option) (*Manager, error) {
	if creds == nil {
		return nil, errors.NewValidationError("credentials", nil, "credential source is required")
	}
	if router == nil {
		return nil, errors.NewValidationError("router", nil, "router is required")
	}

	nop := zerolog.Nop()
	m := &Manager{
		endpoint: endpoint,
		creds:    creds,
		router:   router,
		clock:    clock.New(),
		logger:   &nop,
		observer: NopObserver{},
		auth:     transport.NewQueryAuth(""),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = NewSSEDialer(nil)
	}
	if m.retry == nil {
		m.retry = FixedRetry(0)
	}

	// validate once so a bad endpoint fails at construction
	if _, err := m.auth.ApplyURL(endpoint, ""); err != nil {
		return nil, err
	}
	return m, nil
}

// Endpoint returns the stream URL without credentials.
func (m *Manager) Endpoint() string {
	return logging.RedactURL(m.endpoint)
}

// OnStateChange registers a hook called after every transition.
func (m *Manager) OnStateChange(h StateHook) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, h)
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the stream is open.
func (m *Manager) IsConnected() bool {
	return m.State() == Open
}

// Active reports whether the manager is started and will keep reconnecting.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// LastEvent returns the most recently routed event since the last Start.
func (m *Manager) LastEvent() (events.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.hasLast
}

// Attempts returns the number of dials performed.
func (m *Manager) Attempts() uint64 {
	return m.attempts.Load()
}

// Start opens the stream if it is not already open or opening. A missing
// credential leaves the manager idle and is not an error. ctx bounds the
// credential read only; the stream lives until Stop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Open || m.state == Connecting {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	rawURL, err := m.streamURL(ctx)
	if err != nil {
		if errors.IsNoCredential(err) {
			m.logger.Debug().Msg("No credential stored; stream stays idle")
			return nil
		}
		return errors.WrapResource("start", "stream", "", err)
	}

	m.mu.Lock()
	if m.state == Open || m.state == Connecting {
		m.mu.Unlock()
		return nil
	}
	m.active = true
	m.cancelRetryLocked()
	m.connectLocked(rawURL)
	m.unlockAndNotify()
	return nil
}

// Stop closes the stream, cancels any pending reconnect and clears the
// last event. It is safe to call repeatedly.
//
// Stop does not wait for an in-flight dispatch, so listeners may call it.
// An event whose dispatch began before Stop may still reach its listeners
// after Stop returns; no later frame of that connection is dispatched.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.active = false
	m.gen++
	m.cancelRetryLocked()
	conn := m.conn
	m.conn = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.last, m.hasLast = events.Event{}, false
	m.resume = ""
	if m.state != Disconnected {
		m.setStateLocked(Disconnected, nil)
		m.logger.Info().Msg("Event stream stopped")
	}
	m.unlockAndNotify()

	if conn != nil {
		_ = conn.Close()
	}
}

func (m *Manager) streamURL(ctx context.Context) (string, error) {
	token, err := m.creds.Credential(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errors.ErrNoCredential
	}
	return m.auth.ApplyURL(m.endpoint, token)
}

// connectLocked starts a dial under a new generation. m.mu must be held.
func (m *Manager) connectLocked(rawURL string) {
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(WithResumeID(context.Background(), m.resume))
	m.cancel = cancel
	m.setStateLocked(Connecting, nil)
	m.attempts.Add(1)
	m.observer.DialStarted()
	m.logger.Debug().
		Str("endpoint", m.Endpoint()).
		Uint64("attempt", m.attempts.Load()).
		Msg("Opening event stream")

	go m.run(ctx, gen, rawURL)
}

func (m *Manager) run(ctx context.Context, gen uint64, rawURL string) {
	conn, err := m.dialer.Dial(ctx, rawURL)
	if err != nil {
		m.observer.DialFailed(err)
		m.fail(gen, err)
		return
	}

	m.mu.Lock()
	if gen != m.gen || !m.active {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.cancelRetryLocked()
	m.retry.Reset()
	m.setStateLocked(Open, nil)
	m.logger.Info().Str("endpoint", m.Endpoint()).Msg("Event stream open")
	m.unlockAndNotify()

	for {
		frame, err := conn.Recv()
		if err != nil {
			m.fail(gen, err)
			return
		}
		m.handleFrame(gen, frame)
	}
}

// handleFrame turns a named frame into an Event and routes it.
func (m *Manager) handleFrame(gen uint64, f Frame) {
	if f.ID != "" {
		m.mu.Lock()
		if gen == m.gen {
			m.resume = f.ID
		}
		m.mu.Unlock()
	}
	if f.Retry > 0 {
		m.logger.Debug().Dur("retry", f.Retry).Msg("Server advised reconnect delay")
	}
	if !f.Named() {
		m.logger.Debug().Str("data", truncate(f.Data, 256)).Msg("Unnamed frame ignored")
		m.observer.FrameDropped(f.Event, DropUnnamed)
		return
	}

	t := events.Type(f.Event)
	if !m.router.Routable(t) {
		m.logger.Debug().Str("event_type", f.Event).Msg("Undeclared event type dropped")
		m.observer.FrameDropped(f.Event, DropUndeclared)
		return
	}

	ev, err := events.NewEvent(t, []byte(f.Data), f.ID, m.clock.Now())
	if err != nil {
		m.logger.Warn().Err(err).Str("event_type", f.Event).Msg("Malformed event payload dropped")
		m.observer.FrameDropped(f.Event, DropMalformed)
		return
	}

	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	// Stop bumps gen without taking dispatchMu.
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.observer.FrameDropped(f.Event, DropStale)
		return
	}
	m.last, m.hasLast = ev, true
	m.mu.Unlock()

	delivered := m.router.Dispatch(ev)
	m.observer.EventRouted(t, delivered)
	m.logger.Trace().Str("event_type", f.Event).Int("delivered", delivered).Msg("Event routed")
}

// fail tears down the connection of gen and schedules one reconnect.
func (m *Manager) fail(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	m.setStateLocked(Erroring, cause)
	m.logger.Warn().Err(cause).Str("endpoint", m.Endpoint()).Msg("Event stream error")
	m.setStateLocked(Disconnected, cause)

	if m.active {
		m.scheduleRetryLocked()
	}
	m.unlockAndNotify()

	if conn != nil {
		_ = conn.Close()
	}
}

// scheduleRetryLocked arms the single reconnect timer. m.mu must be held.
func (m *Manager) scheduleRetryLocked() {
	m.cancelRetryLocked()

	delay := m.retry.NextBackOff()
	if delay == backoff.Stop {
		m.active = false
		m.logger.Warn().Msg("Retry policy exhausted; not reconnecting")
		return
	}

	gen := m.gen
	m.timer = m.clock.AfterFunc(delay, func() { m.retryFired(gen) })
	m.observer.RetryScheduled(delay)
	m.logger.Info().Dur("delay", delay).Msg("Reconnect scheduled")
}

// cancelRetryLocked stops the pending timer, if any. m.mu must be held.
func (m *Manager) cancelRetryLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// retryFired re-reads the credential and dials again, unless the manager
// moved on since the timer was armed.
func (m *Manager) retryFired(gen uint64) {
	if !m.retryCurrent(gen) {
		return
	}

	rawURL, err := m.streamURL(context.Background())

	m.mu.Lock()
	if gen != m.gen || !m.active || m.state != Disconnected {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	switch {
	case errors.IsNoCredential(err):
		m.active = false
		m.logger.Info().Msg("Credential removed; not reconnecting")
	case err != nil:
		m.logger.Warn().Err(err).Msg("Reading credential failed")
		m.scheduleRetryLocked()
	default:
		m.connectLocked(rawURL)
	}
	m.unlockAndNotify()
}

func (m *Manager) retryCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen && m.active && m.state == Disconnected
}

// setStateLocked records a transition for delivery once m.mu is released.
func (m *Manager) setStateLocked(to State, cause error) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	m.pending = append(m.pending, StateChange{From: from, To: to, Err: cause})
}

// unlockAndNotify releases m.mu and then runs observers and hooks for the
// transitions recorded while it was held.
func (m *Manager) unlockAndNotify() {
	changes := m.pending
	m.pending = nil
	hooks := append([]StateHook(nil), m.hooks...)
	m.mu.Unlock()

	for _, c := range changes {
		m.observer.StateChanged(c.From, c.To)
		for _, h := range hooks {
			h(c)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
