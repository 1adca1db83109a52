package stream

import (
	"context"
	"time"
)

// Frame is one decoded message from the wire.
type Frame struct {
	Event string        // event name; "" or "message" for unnamed frames
	Data  string        // payload, multi-line data joined with "\n"
	ID    string        // last event id, if sent
	Retry time.Duration // server-advised reconnect delay, if sent
}

// Named reports whether the frame carries an application event type.
func (f Frame) Named() bool {
	return f.Event != "" && f.Event != "message"
}

// Conn is an open stream. Recv blocks until a frame arrives or the stream
// fails; io.EOF reports an orderly close by the server. Close unblocks a
// pending Recv.
type Conn interface {
	Recv() (Frame, error)
	Close() error
}

// Dialer opens a stream to rawURL. A nil error means the stream is open.
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, rawURL string) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, rawURL string) (Conn, error) {
	return f(ctx, rawURL)
}

type resumeKey struct{}

// WithResumeID returns ctx carrying the id of the last event received, so a
// dialer that supports it can ask the server to resume after that event.
func WithResumeID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, resumeKey{}, id)
}

// ResumeID returns the id set by WithResumeID, or "".
func ResumeID(ctx context.Context) string {
	id, _ := ctx.Value(resumeKey{}).(string)
	return id
}
