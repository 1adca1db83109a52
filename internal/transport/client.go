package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/logging"
)

// ContentTypeEventStream is the media type of server-sent events.
const ContentTypeEventStream = "text/event-stream"

// Client provides HTTP client functionality with authentication.
type Client struct {
	http *http.Client
	auth Authenticator
}

// New creates a client for ordinary request/response calls.
func New(auth Authenticator) *Client {
	return NewWithHTTPClient(auth, &http.Client{Timeout: constants.DefaultHTTPTimeout})
}

// NewStreaming creates a client for long-lived streams. It has no overall
// timeout; only dialing and waiting for response headers are bounded.
func NewStreaming(auth Authenticator) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   constants.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: constants.ResponseHeaderTimeout,
		TLSHandshakeTimeout:   constants.DialTimeout,
	}
	return NewWithHTTPClient(auth, &http.Client{Transport: tr})
}

// NewWithHTTPClient wraps an existing *http.Client.
func NewWithHTTPClient(auth Authenticator, hc *http.Client) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{http: hc, auth: auth}
}

// Do performs an HTTP request with the credential applied.
func (c *Client) Do(ctx context.Context, req *http.Request, token string) (*http.Response, error) {
	req = req.WithContext(ctx)
	c.auth.Apply(req, token)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// PostJSON marshals body, posts it and decodes the response into target.
func (c *Client) PostJSON(ctx context.Context, rawURL, token string, body, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.WrapParse("json", "request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return errors.WrapResource("create", "request", "POST "+logging.RedactURL(rawURL), err)
	}
	resp, err := c.Do(ctx, req, token)
	if err != nil {
		return errors.NewTransportError("http", logging.RedactURL(rawURL), 0, "request failed", err)
	}
	return DecodeResponse(resp, target)
}

// OpenStream issues a GET for an event stream and returns the response once
// a 200 with a text/event-stream body has arrived. The caller owns the body.
// A non-empty lastEventID is sent as Last-Event-ID.
func (c *Client) OpenStream(ctx context.Context, rawURL, token, lastEventID string) (*http.Response, error) {
	endpoint := logging.RedactURL(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+endpoint, err)
	}
	req.Header.Set("Accept", ContentTypeEventStream)
	req.Header.Set("Cache-Control", "no-cache")
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	resp, err := c.Do(ctx, req, token)
	if err != nil {
		return nil, errors.NewTransportError("sse", endpoint, 0, "request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := readSnippet(resp.Body)
		_ = resp.Body.Close()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, errors.NewTransportError("sse", endpoint, resp.StatusCode, msg, nil)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.EqualFold(mediaType, ContentTypeEventStream) {
		_ = resp.Body.Close()
		return nil, errors.NewTransportError("sse", endpoint, resp.StatusCode,
			"unexpected content type "+resp.Header.Get("Content-Type"), nil)
	}
	return resp, nil
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
