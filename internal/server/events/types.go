// Package events fans stream events out to the transports of the dev
// server. A Broker receives events addressed to a user and hands them to
// every transport Subscriber (SSE, WebSocket); each transport delivers to
// that user's open connections only.
package events

import (
	"encoding/json"
	"time"

	pkgevents "github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

// Event is one published stream event.
type Event struct {
	ID        string          `json:"id"`
	Type      pkgevents.Type  `json:"type"`
	User      string          `json:"-"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}
