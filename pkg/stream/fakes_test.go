package stream_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

// fakeConn is a Conn driven by the test.
type fakeConn struct {
	frames chan stream.Frame
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan stream.Frame, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Recv() (stream.Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case err := <-c.errs:
		return stream.Frame{}, err
	case <-c.closed:
		return stream.Frame{}, io.ErrClosedPipe
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) send(event, data string) {
	c.frames <- stream.Frame{Event: event, Data: data}
}

// fakeDialer records every dial and hands out fakeConns.
type fakeDialer struct {
	mu      sync.Mutex
	urls    []string
	resumes []string
	conns   []*fakeConn
	fail    error
	gate    chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, rawURL string) (stream.Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, rawURL)
	d.resumes = append(d.resumes, stream.ResumeID(ctx))
	gate, fail := d.gate, d.fail
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}

	c := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func (d *fakeDialer) url(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.urls[i]
}

func (d *fakeDialer) resumeIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.resumes...)
}

func (d *fakeDialer) setFail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = err
}

// countingObserver tallies observer callbacks.
type countingObserver struct {
	stream.NopObserver
	dropped   atomic.Int32
	routed    atomic.Int32
	retries   atomic.Int32
	lastDelay atomic.Int64
}

func (o *countingObserver) FrameDropped(string, stream.DropReason) { o.dropped.Add(1) }
func (o *countingObserver) EventRouted(events.Type, int)           { o.routed.Add(1) }
func (o *countingObserver) RetryScheduled(d time.Duration) {
	o.retries.Add(1)
	o.lastDelay.Store(int64(d))
}

// stateLog records transitions in order.
type stateLog struct {
	mu      sync.Mutex
	changes []stream.StateChange
}

func (l *stateLog) hook(c stream.StateChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, c)
}

func (l *stateLog) states() []stream.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]stream.State, 0, len(l.changes))
	for _, c := range l.changes {
		out = append(out, c.To)
	}
	return out
}
