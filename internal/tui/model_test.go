package tui

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sarralscan "github.com/reddy-bhavesh/sarral-scan"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/logging"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

func scanEvent(t *testing.T, data string) EventMsg {
	t.Helper()
	e, err := events.NewEvent(events.ScanUpdate, []byte(data), "", time.Now())
	require.NoError(t, err)
	return EventMsg{Event: e}
}

func update(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func ids(m Model) []string {
	out := make([]string, len(m.order))
	for i, id := range m.order {
		out[i] = string(id)
	}
	return out
}

func TestModelFoldsScanUpdates(t *testing.T) {
	m := New(newFeed(1), true)
	m = update(t, m,
		scanEvent(t, `{"scanId":"b","status":"running","progress":35,"target":"scanme.nmap.org"}`),
		scanEvent(t, `{"scanId":"a","status":"completed","progress":100,"target":"example.com"}`),
		scanEvent(t, `{"scanId":"b","status":"running"}`),
	)

	require.Len(t, m.scans, 2)
	b := m.scans["b"]
	assert.Equal(t, "scanme.nmap.org", b.Target)
	require.NotNil(t, b.Progress)
	assert.Equal(t, 35, *b.Progress)

	// active scans sort before finished ones
	assert.Equal(t, []string{"b", "a"}, ids(m))
	assert.Len(t, m.log, 3)

	view := m.View()
	assert.Contains(t, view, "scanme.nmap.org")
	assert.Contains(t, view, " 35%")
	assert.Contains(t, view, "1 active  2 total")
}

func TestModelIgnoresUndecodableScanUpdate(t *testing.T) {
	m := New(newFeed(1), true)
	m = update(t, m, scanEvent(t, `[1,2]`))
	assert.Empty(t, m.scans)
	assert.Len(t, m.log, 1)
}

func TestModelLogIsBounded(t *testing.T) {
	m := New(newFeed(1), true)
	for i := 0; i < maxLog+5; i++ {
		e, err := events.NewEvent("HEARTBEAT", []byte(`{}`), "", time.Now())
		require.NoError(t, err)
		m = update(t, m, EventMsg{Event: e})
	}
	assert.Len(t, m.log, maxLog)
}

func TestModelConnectionState(t *testing.T) {
	m := New(newFeed(1), true)
	assert.Contains(t, m.View(), "disconnected")

	failure := errors.NewTransportError("sse", "http://localhost:8000/events/stream", 401, "unauthorized", nil)
	m = update(t, m,
		StateMsg{Change: stream.StateChange{From: stream.Disconnected, To: stream.Connecting}},
		StateMsg{Change: stream.StateChange{From: stream.Connecting, To: stream.Erroring, Err: failure}},
	)
	assert.Contains(t, m.View(), "erroring")
	assert.Contains(t, m.View(), "last error: HTTP 401")

	m = update(t, m, StateMsg{Change: stream.StateChange{From: stream.Connecting, To: stream.Open}})
	assert.Contains(t, m.View(), "connected")
	assert.NotContains(t, m.View(), "last error")
}

func TestModelKeys(t *testing.T) {
	m := New(newFeed(1), true)
	m = update(t, m,
		scanEvent(t, `{"scanId":"1","status":"running"}`),
		scanEvent(t, `{"scanId":"2","status":"pending"}`),
		scanEvent(t, `{"scanId":"3","status":"failed"}`),
	)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 1, m.selected)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")}, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	assert.Equal(t, 2, m.selected)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Equal(t, []string{"1", "2"}, ids(m))
	assert.Equal(t, 1, m.selected)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, m.help.ShowAll)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

type frameConn struct {
	frames chan stream.Frame
	done   chan struct{}
}

func (c *frameConn) Recv() (stream.Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.done:
		return stream.Frame{}, io.EOF
	}
}

func (c *frameConn) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return nil
}

type dialerFunc func(ctx context.Context, url string) (stream.Conn, error)

func (f dialerFunc) Dial(ctx context.Context, url string) (stream.Conn, error) { return f(ctx, url) }

func TestFeedDeliversClientEvents(t *testing.T) {
	conn := &frameConn{frames: make(chan stream.Frame, 1), done: make(chan struct{})}
	c, err := sarralscan.New(
		sarralscan.WithCredentials(credentials.Static("tok")),
		sarralscan.WithDialer(dialerFunc(func(context.Context, string) (stream.Conn, error) { return conn, nil })),
		sarralscan.WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)
	defer c.Close()

	feed, err := Attach(c, events.ScanUpdate)
	require.NoError(t, err)
	defer feed.Close()

	require.NoError(t, c.SetAuthenticated(context.Background(), true))

	next := feed.Next()
	var sawOpen bool
	for i := 0; i < 5 && !sawOpen; i++ {
		if sm, ok := next().(StateMsg); ok && sm.Change.To == stream.Open {
			sawOpen = true
		}
	}
	require.True(t, sawOpen)

	conn.frames <- stream.Frame{Event: "SCAN_UPDATE", Data: `{"scanId":5,"status":"running"}`}
	msg, ok := next().(EventMsg)
	require.True(t, ok)
	assert.Equal(t, events.ScanUpdate, msg.Event.Type)
	assert.True(t, strings.Contains(string(msg.Event.Data), `"scanId":5`))
}

func TestFeedCloseReleasesReaders(t *testing.T) {
	f := newFeed(0)
	f.Close()
	f.Close()
	assert.Nil(t, f.Next()())
	f.push(EventMsg{})
}
