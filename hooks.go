package sarralscan

import (
	"sync"

	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

// Hook function types for connection events
type (
	// StateChangeHook is called after every connection state transition
	StateChangeHook func(change stream.StateChange)

	// ConnectedHook is called when the stream opens
	ConnectedHook func()

	// DisconnectedHook is called when the stream closes; err is nil for a
	// requested stop
	DisconnectedHook func(err error)
)

// Hooks registers connection callbacks. Callbacks run on the goroutine
// that caused the transition and must not block.
type Hooks interface {
	OnStateChange(StateChangeHook)
	OnConnected(ConnectedHook)
	OnDisconnected(DisconnectedHook)
}

// hooks manages event callbacks for connection changes
type hooks struct {
	mu             sync.RWMutex
	onStateChange  []StateChangeHook
	onConnected    []ConnectedHook
	onDisconnected []DisconnectedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnStateChange registers a callback for every transition
func (h *hooks) OnStateChange(fn StateChangeHook) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStateChange = append(h.onStateChange, fn)
}

// OnConnected registers a callback for when the stream opens
func (h *hooks) OnConnected(fn ConnectedHook) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnected = append(h.onConnected, fn)
}

// OnDisconnected registers a callback for when the stream closes
func (h *hooks) OnDisconnected(fn DisconnectedHook) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconnected = append(h.onDisconnected, fn)
}

// trigger fans one transition out to the registered hooks
func (h *hooks) trigger(change stream.StateChange) {
	h.mu.RLock()
	onState := append([]StateChangeHook(nil), h.onStateChange...)
	onConnected := append([]ConnectedHook(nil), h.onConnected...)
	onDisconnected := append([]DisconnectedHook(nil), h.onDisconnected...)
	h.mu.RUnlock()

	for _, hook := range onState {
		hook(change)
	}

	switch change.To {
	case stream.Open:
		for _, hook := range onConnected {
			hook()
		}
	case stream.Disconnected:
		for _, hook := range onDisconnected {
			hook(change.Err)
		}
	}
}
