package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/internal/server/cache"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	pkgevents "github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

// Default replay settings.
const (
	DefaultReplayTTL  = 5 * time.Minute
	DefaultReplaySize = 100
)

// Broker manages event distribution to transport subscribers.
type Broker struct {
	subscribers []Subscriber
	stopped     bool
	events      chan Event
	mu          sync.RWMutex
	seq         atomic.Uint64
	published   atomic.Uint64
	replay      *cache.Cache
	replaySize  int
	now         func() time.Time
	logger      *zerolog.Logger
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithReplay keeps the last size events per user for ttl.
func WithReplay(ttl time.Duration, size int) BrokerOption {
	return func(b *Broker) {
		if ttl > 0 {
			b.replay = cache.New(ttl, ttl*2)
		}
		if size > 0 {
			b.replaySize = size
		}
	}
}

// WithNow sets the timestamp source.
func WithNow(now func() time.Time) BrokerOption {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBroker creates a new event broker.
func NewBroker(logger *zerolog.Logger, opts ...BrokerOption) *Broker {
	b := &Broker{
		subscribers: make([]Subscriber, 0),
		events:      make(chan Event, 256),
		replay:      cache.New(DefaultReplayTTL, DefaultReplayTTL*2),
		replaySize:  DefaultReplaySize,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run starts the broker's event loop. Should be called in a goroutine.
// The broker will run until the context is cancelled.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for _, sub := range b.subscribers {
				_ = sub.Close()
			}
			b.subscribers = nil
			b.stopped = true
			b.mu.Unlock()
			b.logger.Info().Msg("Event broker shut down")
			return

		case event := <-b.events:
			b.mu.RLock()
			subs := make([]Subscriber, len(b.subscribers))
			copy(subs, b.subscribers)
			b.mu.RUnlock()

			for _, sub := range subs {
				if err := sub.Send(event); err != nil {
					b.logger.Warn().
						Err(err).
						Str("event_type", string(event.Type)).
						Msg("Failed to send event to subscriber")
				}
			}

			b.logger.Debug().
				Str("event_type", string(event.Type)).
				Str("user", event.User).
				Str("id", event.ID).
				Int("subscribers", len(subs)).
				Msg("Event broadcasted")
		}
	}
}

// Publish addresses an event to user. data is marshaled to JSON unless it
// already is a json.RawMessage.
func (b *Broker) Publish(user string, t pkgevents.Type, data any) (Event, error) {
	if user == "" {
		return Event{}, errors.NewValidationError("user", user, "user is required")
	}
	if t == "" {
		return Event{}, errors.NewValidationError("type", t, "event type is required")
	}

	payload, err := encode(data)
	if err != nil {
		return Event{}, err
	}

	event := Event{
		ID:        strconv.FormatUint(b.seq.Add(1), 10),
		Type:      t,
		User:      user,
		Timestamp: b.now().UTC(),
		Data:      payload,
	}
	cache.Append(b.replay, replayKey(user), event, b.replaySize)

	select {
	case b.events <- event:
		b.published.Add(1)
	default:
		b.logger.Warn().
			Str("event_type", string(t)).
			Msg("Event channel full, event dropped")
		return event, errors.NewResourceError("publish", "event", event.ID, errors.New("event channel full"))
	}
	return event, nil
}

// Since returns the retained events for user published after lastID. An
// unknown or empty lastID yields nothing.
func (b *Broker) Since(user, lastID string) []Event {
	if lastID == "" {
		return nil
	}
	after, err := strconv.ParseUint(lastID, 10, 64)
	if err != nil {
		return nil
	}
	var out []Event
	for _, e := range cache.List[Event](b.replay, replayKey(user)) {
		if id, _ := strconv.ParseUint(e.ID, 10, 64); id > after {
			out = append(out, e)
		}
	}
	return out
}

// Subscribe adds sub before returning, so it receives every event
// published afterwards. A subscriber added after Run stopped is closed.
func (b *Broker) Subscribe(sub Subscriber) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		_ = sub.Close()
		return
	}
	b.subscribers = append(b.subscribers, sub)
	n := len(b.subscribers)
	b.mu.Unlock()
	b.logger.Debug().Int("total_subscribers", n).Msg("Subscriber registered")
}

// Unsubscribe removes and closes sub. Unknown subscribers are ignored.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	var removed Subscriber
	for i, s := range b.subscribers {
		if s == sub {
			b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
			removed = s
			break
		}
	}
	n := len(b.subscribers)
	b.mu.Unlock()
	if removed != nil {
		_ = removed.Close()
		b.logger.Debug().Int("total_subscribers", n).Msg("Subscriber unregistered")
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Published returns the number of events accepted by Publish.
func (b *Broker) Published() uint64 {
	return b.published.Load()
}

func replayKey(user string) string {
	return "replay:" + user
}

func encode(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return json.RawMessage(`{}`), nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, errors.NewParseError("json", "data", "payload is not valid JSON", nil)
		}
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, errors.WrapParse("json", "data", err)
		}
		return raw, nil
	}
}
