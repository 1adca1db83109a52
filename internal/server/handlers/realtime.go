package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/reddy-bhavesh/sarral-scan/internal/server/auth"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/response"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/sse"
	ws "github.com/reddy-bhavesh/sarral-scan/internal/server/websocket"
	pkgevents "github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

// HandleSSE streams the caller's events as Server-Sent Events.
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.MethodNotAllowed(w, r.Method)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized", "no authenticated user")
		return
	}
	h.sseBroadcaster.Serve(w, r, user)
}

// HandleWebSocket mirrors the caller's event stream over a websocket.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized", "no authenticated user")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(uuid.NewString(), user, h.wsHub, conn)
	client.Queue(ws.Message{
		Type:      string(pkgevents.Connected),
		Timestamp: time.Now(),
		Data:      map[string]string{"message": sse.ConnectedMessage},
	})
	if !h.wsHub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
