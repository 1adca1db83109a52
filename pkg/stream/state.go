package stream

// State is the lifecycle state of the stream connection.
type State int32

const (
	// Disconnected means no socket exists.
	Disconnected State = iota

	// Connecting means a dial is in flight.
	Connecting

	// Open means frames are being received.
	Open

	// Erroring is the brief state between a failure and the socket being closed.
	Erroring
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Erroring:
		return "erroring"
	default:
		return "unknown"
	}
}

// StateChange describes a transition.
type StateChange struct {
	From State
	To   State
	Err  error // set when the transition was caused by a failure
}

// StateHook is called after every state transition.
type StateHook func(StateChange)
