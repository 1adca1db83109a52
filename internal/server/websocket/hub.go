// Package websocket mirrors the per-user event stream over WebSocket.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
)

// Message is the JSON envelope written to clients. An empty User reaches
// every client.
type Message struct {
	Type      string    `json:"type"`
	ID        string    `json:"id,omitempty"`
	User      string    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Hub owns the set of connected clients, indexed by user. All mutation
// happens on the Run goroutine; the lock only guards readers.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
	count int

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *zerolog.Logger
}

// NewHub creates a hub. Call Run before registering clients.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client, constants.BurstSize),
		unregister: make(chan *Client, constants.BurstSize),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.users {
				for c := range set {
					close(c.send)
				}
			}
			h.users = make(map[string]map[*Client]struct{})
			h.count = 0
			h.mu.Unlock()
			h.logger.Info().Msg("WebSocket hub shut down")
			return

		case c := <-h.register:
			h.mu.Lock()
			set := h.users[c.user]
			if set == nil {
				set = make(map[*Client]struct{})
				h.users[c.user] = set
			}
			set[c] = struct{}{}
			h.count++
			n := h.count
			h.mu.Unlock()
			h.logger.Info().Str("client_id", c.id).Str("user", c.user).Int("total_clients", n).Msg("WebSocket client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			removed := h.drop(c)
			n := h.count
			h.mu.Unlock()
			if removed {
				h.logger.Info().Str("client_id", c.id).Int("total_clients", n).Msg("WebSocket client disconnected")
			}

		case m := <-h.broadcast:
			h.mu.Lock()
			h.deliver(m)
			h.mu.Unlock()
		}
	}
}

// deliver queues m for its recipients. A client whose buffer is full is
// dropped; its write pump sees the closed channel and hangs up.
func (h *Hub) deliver(m Message) {
	targets := []map[*Client]struct{}{h.users[m.User]}
	if m.User == "" {
		targets = targets[:0]
		for _, set := range h.users {
			targets = append(targets, set)
		}
	}
	for _, set := range targets {
		for c := range set {
			select {
			case c.send <- m:
			default:
				h.logger.Warn().Str("client_id", c.id).Msg("WebSocket client too slow, dropping")
				h.drop(c)
			}
		}
	}
}

// drop removes c and closes its send channel. Caller holds mu.
func (h *Hub) drop(c *Client) bool {
	set, ok := h.users[c.user]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.user)
	}
	close(c.send)
	h.count--
	return true
}

// Register adds client to the hub. It reports false once the hub stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Broadcast queues m for delivery. It never blocks; when the queue is full
// the message is dropped.
func (h *Hub) Broadcast(m Message) {
	select {
	case h.broadcast <- m:
	default:
		h.logger.Warn().Str("type", m.Type).Msg("Broadcast channel full, message dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// UserCount returns the number of users with at least one client.
func (h *Hub) UserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users)
}
