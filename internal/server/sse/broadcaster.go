// Package sse serves the per-user Server-Sent Events stream.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
)

// ConnectedMessage is the payload of the first frame on every stream.
const ConnectedMessage = "Connected to event stream"

// Event represents an SSE event.
type Event struct {
	Event string `json:"event,omitempty"` // Event type (optional)
	ID    string `json:"id,omitempty"`    // Event ID (optional)
	User  string `json:"-"`               // Recipient; empty reaches everyone
	Data  any    `json:"data"`            // Event data
}

// ReplayFunc returns events for user published after lastID.
type ReplayFunc func(user, lastID string) []Event

// client is one open stream.
type client struct {
	user string
	ch   chan Event
}

// Broadcaster manages Server-Sent Events connections.
type Broadcaster struct {
	clients    map[*client]struct{}
	newClients chan *client
	closed     chan *client
	events     chan Event
	done       chan struct{}
	mu         sync.RWMutex
	heartbeat  time.Duration
	replay     ReplayFunc
	logger     *zerolog.Logger
}

// NewBroadcaster creates a new SSE broadcaster. A heartbeat comment is
// written every heartbeat interval; zero disables it.
func NewBroadcaster(logger *zerolog.Logger, heartbeat time.Duration) *Broadcaster {
	return &Broadcaster{
		clients:    make(map[*client]struct{}),
		newClients: make(chan *client, constants.BurstSize),
		closed:     make(chan *client, constants.BurstSize),
		events:     make(chan Event, 256),
		done:       make(chan struct{}),
		heartbeat:  heartbeat,
		logger:     logger,
	}
}

// SetReplay installs the source used to honour Last-Event-ID.
func (b *Broadcaster) SetReplay(fn ReplayFunc) {
	b.replay = fn
}

// Run starts the broadcaster's main loop. Should be called in a goroutine.
// The broadcaster will run until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for c := range b.clients {
				close(c.ch)
			}
			b.clients = make(map[*client]struct{})
			b.mu.Unlock()
			b.logger.Info().Msg("SSE broadcaster shut down")
			return

		case c := <-b.newClients:
			b.mu.Lock()
			b.clients[c] = struct{}{}
			n := len(b.clients)
			b.mu.Unlock()
			b.logger.Info().
				Str("user", c.user).
				Int("total_clients", n).
				Msg("SSE client connected")

		case c := <-b.closed:
			b.mu.Lock()
			if _, ok := b.clients[c]; ok {
				delete(b.clients, c)
				close(c.ch)
			}
			n := len(b.clients)
			b.mu.Unlock()
			b.logger.Info().
				Str("user", c.user).
				Int("total_clients", n).
				Msg("SSE client disconnected")

		case event := <-b.events:
			b.mu.RLock()
			for c := range b.clients {
				if event.User != "" && event.User != c.user {
					continue
				}
				select {
				case c.ch <- event:
				default:
					b.logger.Warn().Str("user", c.user).Msg("SSE client buffer full, event skipped")
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Broadcast queues an event for the matching clients.
func (b *Broadcaster) Broadcast(event Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn().Msg("SSE broadcast channel full, event dropped")
	}
}

// ClientCount returns the number of connected SSE clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Serve streams events for user until the request ends or the broadcaster
// stops.
func (b *Broadcaster) Serve(w http.ResponseWriter, r *http.Request, user string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	c := &client{user: user, ch: make(chan Event, constants.ChannelBufferSize)}
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.newClients <- c:
	case <-b.done:
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case b.closed <- c:
		case <-b.done:
		}
	}()

	b.writeEvent(w, flusher, Event{
		Event: "CONNECTED",
		Data:  map[string]string{"message": ConnectedMessage},
	})

	// Live events queued during the replay may repeat what it sent.
	var replayed uint64
	if lastID := r.Header.Get("Last-Event-ID"); lastID != "" && b.replay != nil {
		for _, event := range b.replay(user, lastID) {
			b.writeEvent(w, flusher, event)
			if n, ok := sequence(event.ID); ok && n > replayed {
				replayed = n
			}
		}
	}

	var beat <-chan time.Time
	if b.heartbeat > 0 {
		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()
		beat = ticker.C
	}

	for {
		select {
		case event, ok := <-c.ch:
			if !ok {
				return
			}
			if n, ok := sequence(event.ID); ok && n <= replayed {
				continue
			}
			b.writeEvent(w, flusher, event)

		case <-beat:
			_, _ = fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// sequence parses a numeric event id.
func sequence(id string) (uint64, bool) {
	if id == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(id, 10, 64)
	return n, err == nil
}

// writeEvent writes an SSE event to the response writer.
func (b *Broadcaster) writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to marshal SSE event data")
		return
	}

	var sb strings.Builder
	if event.Event != "" {
		fmt.Fprintf(&sb, "event: %s\n", event.Event)
	}
	if event.ID != "" {
		fmt.Fprintf(&sb, "id: %s\n", event.ID)
	}
	fmt.Fprintf(&sb, "data: %s\n\n", data)

	_, _ = fmt.Fprint(w, sb.String())
	flusher.Flush()
}
