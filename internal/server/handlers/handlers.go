// Package handlers provides HTTP request handlers for the development
// stream server.
package handlers

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/internal/server/events"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/sse"
	ws "github.com/reddy-bhavesh/sarral-scan/internal/server/websocket"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
	onPublish      func(events.Event)
}

// New creates a new Handlers instance. onPublish is called for every
// event accepted through the emit endpoint and may be nil.
func New(
	broker *events.Broker,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
	startTime time.Time,
	onPublish func(events.Event),
) *Handlers {
	return &Handlers{
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
		startTime:      startTime,
		onPublish:      onPublish,
	}
}
