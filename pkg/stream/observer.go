package stream

import (
	"time"

	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

// DropReason explains why a received frame was not routed.
type DropReason string

// Reasons a frame is dropped at the bridge.
const (
	DropUnnamed    DropReason = "unnamed"
	DropUndeclared DropReason = "undeclared"
	DropMalformed  DropReason = "malformed"
	DropStale      DropReason = "stale"
)

// Observer receives connection telemetry. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	StateChanged(from, to State)
	DialStarted()
	DialFailed(err error)
	RetryScheduled(delay time.Duration)
	FrameDropped(t string, reason DropReason)
	EventRouted(t events.Type, delivered int)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) StateChanged(State, State)       {}
func (NopObserver) DialStarted()                    {}
func (NopObserver) DialFailed(error)                {}
func (NopObserver) RetryScheduled(time.Duration)    {}
func (NopObserver) FrameDropped(string, DropReason) {}
func (NopObserver) EventRouted(events.Type, int)    {}

var _ Observer = NopObserver{}
