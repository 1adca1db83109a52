package sarralscan

import "context"

type subscriberKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s Subscriber) context.Context {
	return context.WithValue(ctx, subscriberKey{}, s)
}

// FromContext returns the Subscriber stored in ctx, if any.
func FromContext(ctx context.Context) (Subscriber, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(subscriberKey{}).(Subscriber)
	return s, ok && s != nil
}
