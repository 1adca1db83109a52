// Package adapters connects the broker to the stream transports.
package adapters

import (
	"github.com/reddy-bhavesh/sarral-scan/internal/server/events"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/sse"
	ws "github.com/reddy-bhavesh/sarral-scan/internal/server/websocket"
)

// Transport is a broker Subscriber that forwards every event to one
// transport. Transports own their client lifecycles, so Close does nothing.
type Transport struct {
	name string
	send func(events.Event)
}

var _ events.Subscriber = (*Transport)(nil)

// SSE forwards events to the SSE broadcaster.
func SSE(b *sse.Broadcaster) *Transport {
	return &Transport{name: "sse", send: func(e events.Event) {
		b.Broadcast(ToSSE(e))
	}}
}

// WebSocket forwards events to the websocket hub.
func WebSocket(h *ws.Hub) *Transport {
	return &Transport{name: "websocket", send: func(e events.Event) {
		h.Broadcast(ToMessage(e))
	}}
}

// Name identifies the transport in logs.
func (t *Transport) Name() string { return t.name }

// Send implements events.Subscriber.
func (t *Transport) Send(e events.Event) error {
	t.send(e)
	return nil
}

// Close implements events.Subscriber.
func (t *Transport) Close() error { return nil }

// ToSSE converts a broker event to an SSE frame.
func ToSSE(e events.Event) sse.Event {
	return sse.Event{
		Event: string(e.Type),
		ID:    e.ID,
		User:  e.User,
		Data:  e.Data,
	}
}

// ToMessage converts a broker event to a websocket message.
func ToMessage(e events.Event) ws.Message {
	return ws.Message{
		Type:      string(e.Type),
		ID:        e.ID,
		User:      e.User,
		Timestamp: e.Timestamp,
		Data:      e.Data,
	}
}

// Replay adapts Broker.Since for the SSE broadcaster.
func Replay(b *events.Broker) sse.ReplayFunc {
	return func(user, lastID string) []sse.Event {
		past := b.Since(user, lastID)
		out := make([]sse.Event, 0, len(past))
		for _, e := range past {
			out = append(out, ToSSE(e))
		}
		return out
	}
}
