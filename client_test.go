package sarralscan_test

import (
	"context"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sarralscan "github.com/reddy-bhavesh/sarral-scan"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	pkgerrors "github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/logging"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

type pipeConn struct {
	frames chan stream.Frame
	done   chan struct{}
	once   sync.Once
}

func (c *pipeConn) Recv() (stream.Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.done:
		return stream.Frame{}, io.EOF
	}
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

type pipeDialer struct {
	mu    sync.Mutex
	urls  []string
	conns []*pipeConn
}

func (d *pipeDialer) Dial(_ context.Context, rawURL string) (stream.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &pipeConn{frames: make(chan stream.Frame, 8), done: make(chan struct{})}
	d.urls = append(d.urls, rawURL)
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *pipeDialer) last() *pipeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}

func (d *pipeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func newTestClient(t *testing.T, opts ...sarralscan.Option) (sarralscan.Client, *pipeDialer, *clock.Mock) {
	t.Helper()
	d := &pipeDialer{}
	mock := clock.NewMock()
	base := []sarralscan.Option{
		sarralscan.WithCredentials(credentials.Static("tok")),
		sarralscan.WithDialer(d),
		sarralscan.WithClock(mock),
		sarralscan.WithLogger(logging.NewNopLogger()),
	}
	c, err := sarralscan.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, d, mock
}

func TestClientSubscribeAndReceive(t *testing.T) {
	c, d, _ := newTestClient(t)

	got := make(chan events.ScanUpdatePayload, 1)
	l := events.Typed(func(_ events.Event, p events.ScanUpdatePayload) { got <- p }, nil)
	require.NoError(t, c.Subscribe(events.ScanUpdate, l))

	require.NoError(t, c.SetAuthenticated(context.Background(), true))
	require.Eventually(t, c.IsConnected, time.Second, 5*time.Millisecond)

	d.last().frames <- stream.Frame{Event: "SCAN_UPDATE", Data: `{"scanId":12,"status":"running","progress":40}`}

	select {
	case p := <-got:
		assert.Equal(t, events.ScanID("12"), p.ScanID)
		assert.Equal(t, events.ScanRunning, p.Status)
		require.NotNil(t, p.Progress)
		assert.Equal(t, 40, *p.Progress)
	case <-time.After(time.Second):
		t.Fatal("no scan update received")
	}

	last, ok := c.LastEvent()
	require.True(t, ok)
	assert.Equal(t, events.ScanUpdate, last.Type)

	c.Unsubscribe(events.ScanUpdate, l)
	d.last().frames <- stream.Frame{Event: "SCAN_UPDATE", Data: `{"status":"Completed"}`}
	assert.Never(t, func() bool { return len(got) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestClientDefaultEndpoint(t *testing.T) {
	c, _, _ := newTestClient(t)
	assert.Equal(t, "http://localhost:8000/events/stream", c.Endpoint())

	ws, _, _ := newTestClient(t, sarralscan.WithBaseURL("https://api.example.com/"), sarralscan.WithTransport("websocket"))
	assert.Equal(t, "https://api.example.com/events/ws", ws.Endpoint())
}

func TestClientEndpointOverride(t *testing.T) {
	c, d, _ := newTestClient(t,
		sarralscan.WithEndpoint("http://backend:9000/custom/stream?v=2"),
		sarralscan.WithTokenParam("access_token"))
	require.NoError(t, c.SetAuthenticated(context.Background(), true))
	require.Eventually(t, c.IsConnected, time.Second, 5*time.Millisecond)

	d.mu.Lock()
	u, err := url.Parse(d.urls[0])
	d.mu.Unlock()
	require.NoError(t, err)
	assert.Equal(t, "backend:9000", u.Host)
	assert.Equal(t, "2", u.Query().Get("v"))
	assert.Equal(t, "tok", u.Query().Get("access_token"))
}

func TestClientInvalidOptions(t *testing.T) {
	_, err := sarralscan.New(sarralscan.WithTransport("carrier-pigeon"))
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = sarralscan.New(sarralscan.WithBaseURL("not a url"))
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestClientAllowList(t *testing.T) {
	c, _, _ := newTestClient(t,
		sarralscan.WithPolicy(events.PolicyAllowList),
		sarralscan.WithKnownTypes("REPORT_READY"))

	noop := events.Func(func(events.Event) {})
	assert.NoError(t, c.Subscribe("REPORT_READY", noop))
	assert.ErrorIs(t, c.Subscribe("UNKNOWN", noop), pkgerrors.ErrUndeclaredType)
	assert.ElementsMatch(t, []events.Type{events.Connected, events.ScanUpdate, "REPORT_READY"}, c.Types())
}

func TestClientAutoDeclaresOnSubscribe(t *testing.T) {
	c, _, _ := newTestClient(t)
	require.NoError(t, c.Subscribe("REPORT_READY", events.Func(func(events.Event) {})))
	assert.Contains(t, c.Types(), events.Type("REPORT_READY"))
}

func TestClientHooks(t *testing.T) {
	c, d, _ := newTestClient(t)
	var _ sarralscan.Hooks = c

	var mu sync.Mutex
	var connected, disconnected int
	var changes []stream.State
	c.OnConnected(func() { mu.Lock(); connected++; mu.Unlock() })
	c.OnDisconnected(func(error) { mu.Lock(); disconnected++; mu.Unlock() })
	c.OnStateChange(func(sc stream.StateChange) { mu.Lock(); changes = append(changes, sc.To); mu.Unlock() })

	require.NoError(t, c.SetAuthenticated(context.Background(), true))
	require.Eventually(t, func() bool { mu.Lock(); defer mu.Unlock(); return connected == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, d.count())

	require.NoError(t, c.SetAuthenticated(context.Background(), false))
	assert.False(t, c.IsConnected())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, disconnected)
	assert.Equal(t, []stream.State{stream.Connecting, stream.Open, stream.Disconnected}, changes)
}

func TestClientLogoutCancelsReconnect(t *testing.T) {
	c, d, mock := newTestClient(t)
	require.NoError(t, c.SetAuthenticated(context.Background(), true))
	require.Eventually(t, c.IsConnected, time.Second, 5*time.Millisecond)

	_ = d.last().Close()
	require.Eventually(t, func() bool { return c.State() == stream.Disconnected }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.SetAuthenticated(context.Background(), false))
	mock.Add(time.Minute)
	assert.Never(t, func() bool { return d.count() > 1 }, 100*time.Millisecond, 5*time.Millisecond)
}

func TestClientClose(t *testing.T) {
	c, _, _ := newTestClient(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.SetAuthenticated(context.Background(), true), pkgerrors.ErrClosed)
	assert.ErrorIs(t, c.Subscribe(events.ScanUpdate, events.Func(func(events.Event) {})), pkgerrors.ErrClosed)
	assert.NoError(t, c.SetAuthenticated(context.Background(), false))
}

func TestContext(t *testing.T) {
	c, _, _ := newTestClient(t)

	_, ok := sarralscan.FromContext(context.Background())
	assert.False(t, ok)

	ctx := sarralscan.NewContext(context.Background(), c)
	s, ok := sarralscan.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, c, s)
}
