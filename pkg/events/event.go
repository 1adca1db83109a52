// Package events routes decoded stream events to the listeners registered
// for their type.
//
// Payloads stay opaque JSON at the router. Each subscriber decodes the
// payload into the shape it expects, either by calling Event.Decode or by
// registering a Typed listener.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// Type is the name of an event category carried by the stream.
type Type string

// Event types the backend is known to emit. The router accepts any other
// name as well.
const (
	// Connected acknowledges a freshly opened stream.
	Connected Type = "CONNECTED"

	// ScanUpdate reports progress or a status change of a scan.
	ScanUpdate Type = "SCAN_UPDATE"
)

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// Event is one routed message. It is treated as immutable once built.
type Event struct {
	Type       Type            `json:"type"`
	Data       json.RawMessage `json:"data"`
	ID         string          `json:"id,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// NewEvent builds an Event after checking that data is valid JSON.
func NewEvent(t Type, data []byte, id string, at time.Time) (Event, error) {
	if t == "" {
		return Event{}, errors.NewValidationError("type", t, "event type is empty")
	}
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return Event{}, errors.NewParseError("json", string(t), "payload is not valid JSON", nil)
	}
	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	return Event{Type: t, Data: raw, ID: id, ReceivedAt: at}, nil
}

// Decode unmarshals the payload into target, which must be a non-nil pointer.
//
// Usage:
//
//	var p events.ScanUpdatePayload
//	if err := ev.Decode(&p); err != nil { ... }
func (e Event) Decode(target any) error {
	rv := reflect.ValueOf(target)
	if target == nil || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.NewValidationError("target", fmt.Sprintf("%T", target), "must be a non-nil pointer")
	}
	if len(e.Data) == 0 {
		return errors.NewParseError("json", string(e.Type), "payload is empty", nil)
	}
	if err := json.Unmarshal(e.Data, target); err != nil {
		return errors.NewParseError("json", string(e.Type), fmt.Sprintf("decode into %T", target), err)
	}
	return nil
}

// IsZero reports whether e is the zero Event.
func (e Event) IsZero() bool {
	return e.Type == "" && len(e.Data) == 0
}
