package stream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/logging"
)

const (
	// Time allowed to write a control message to the peer.
	wsWriteWait = 10 * time.Second

	// Time allowed between server pings before the stream is considered dead.
	wsPingWait = 60 * time.Second
)

// wsMessage is the JSON envelope the server sends on the websocket mirror.
type wsMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

// wsConn adapts a websocket connection to Conn.
type wsConn struct {
	conn *websocket.Conn
	once sync.Once
}

func (c *wsConn) Recv() (Frame, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}

	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		// not an envelope; surfaces as an unnamed frame
		return Frame{Data: string(data)}, nil
	}
	return Frame{Event: msg.Type, Data: string(msg.Data), ID: msg.ID}, nil
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteWait))
		err = c.conn.Close()
	})
	return err
}

// WebSocketDialer opens streams over the server's websocket mirror.
type WebSocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebSocketDialer returns a WebSocketDialer with bounded handshakes.
func NewWebSocketDialer() *WebSocketDialer {
	return &WebSocketDialer{dialer: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: constants.DialTimeout,
	}}
}

// Dial implements Dialer. http(s) URLs are converted to ws(s).
func (d *WebSocketDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	target, err := WebSocketURL(rawURL)
	if err != nil {
		return nil, err
	}
	endpoint := logging.RedactURL(target)

	conn, resp, err := d.dialer.DialContext(ctx, target, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
			_ = resp.Body.Close()
		}
		return nil, errors.NewTransportError("websocket", endpoint, status, "handshake failed", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(wsPingWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPingWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(wsWriteWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	return &wsConn{conn: conn}, nil
}

// WebSocketURL rewrites an http(s) URL to the matching ws(s) scheme.
func WebSocketURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.NewValidationError("endpoint", logging.RedactURL(rawURL), err.Error())
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.NewValidationError("endpoint", logging.RedactURL(rawURL), "unsupported scheme "+u.Scheme)
	}
	return u.String(), nil
}
