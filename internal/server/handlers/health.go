package handlers

import (
	"net/http"
	"time"

	"github.com/reddy-bhavesh/sarral-scan/internal/server/response"
)

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		response.MethodNotAllowed(w, r.Method)
		return
	}
	response.OK(w, map[string]any{
		"status":            "healthy",
		"service":           "sarral-scan-dev",
		"uptime":            time.Since(h.startTime).Round(time.Second).String(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
		"websocket_clients": h.wsHub.ClientCount(),
		"subscribers":       h.broker.SubscriberCount(),
		"events_published":  h.broker.Published(),
	})
}
