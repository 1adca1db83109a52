package stream

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/reddy-bhavesh/sarral-scan/internal/transport"
	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// Decoder reads server-sent event frames from a byte stream.
//
// Lines are "field: value" pairs; "event", "data", "id" and "retry" are
// recognised and anything else is ignored. Lines starting with ':' are
// comments. A blank line ends a frame. Several data lines are joined with
// "\n". Frames without data are skipped.
type Decoder struct {
	scanner *bufio.Scanner
	lastID  string
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, constants.StreamInitialBuffer), constants.StreamMaxBuffer)
	return &Decoder{scanner: scanner}
}

// Next returns the next complete frame. It returns io.EOF when the stream
// ends; a partial frame at end of stream is discarded.
func (d *Decoder) Next() (Frame, error) {
	var (
		event   string
		data    strings.Builder
		hasData bool
		retry   time.Duration
	)

	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")

		if line == "" {
			if hasData && data.Len() > 0 {
				return Frame{Event: event, Data: data.String(), ID: d.lastID, Retry: retry}, nil
			}
			event, hasData, retry = "", false, 0
			data.Reset()
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			event = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if ms, err := strconv.ParseUint(value, 10, 32); err == nil {
				retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := d.scanner.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return Frame{}, errors.NewParseError("sse", "", "line exceeds maximum frame size", err)
		}
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// LastID returns the most recent event id seen on the stream.
func (d *Decoder) LastID() string {
	return d.lastID
}

// sseConn is an open event-stream response.
type sseConn struct {
	body    io.ReadCloser
	decoder *Decoder
	once    sync.Once
}

func (c *sseConn) Recv() (Frame, error) {
	return c.decoder.Next()
}

func (c *sseConn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.body.Close()
	})
	return err
}

// SSEDialer opens streams with an HTTP GET expecting text/event-stream.
type SSEDialer struct {
	client *transport.Client
}

// NewSSEDialer returns an SSEDialer. A nil http.Client selects a streaming
// client without an overall timeout.
func NewSSEDialer(hc *http.Client) *SSEDialer {
	if hc == nil {
		return &SSEDialer{client: transport.NewStreaming(&transport.NoAuth{})}
	}
	return &SSEDialer{client: transport.NewWithHTTPClient(&transport.NoAuth{}, hc)}
}

// Dial implements Dialer. The credential is expected in rawURL already. A
// ResumeID on ctx is sent as Last-Event-ID.
func (d *SSEDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	resp, err := d.client.OpenStream(ctx, rawURL, "", ResumeID(ctx))
	if err != nil {
		return nil, err
	}
	return &sseConn{body: resp.Body, decoder: NewDecoder(resp.Body)}, nil
}
