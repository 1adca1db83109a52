package events

// Subscriber is an interface for event consumers.
// Implementations adapt the broker's stream to a transport.
type Subscriber interface {
	// Send delivers an event to the subscriber.
	// Implementations must not block; the broker calls Send in publish order.
	Send(Event) error

	// Close cleanly shuts down the subscriber.
	Close() error
}
