package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/reddy-bhavesh/sarral-scan/internal/server/auth"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/response"
	pkgevents "github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

// maxEmitBody bounds the emit request body.
const maxEmitBody = 1 << 20

// EmitRequest is the body of POST /events/emit.
type EmitRequest struct {
	Type pkgevents.Type  `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EmitResponse acknowledges an accepted event.
type EmitResponse struct {
	ID   string         `json:"id"`
	Type pkgevents.Type `json:"type"`
}

// HandleEmit publishes an event to the caller's own streams.
func (h *Handlers) HandleEmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.MethodNotAllowed(w, r.Method)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized", "no authenticated user")
		return
	}

	var req EmitRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxEmitBody))
	if err := dec.Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err.Error())
		return
	}
	if req.Type == "" {
		response.BadRequest(w, "Invalid request body", "type is required")
		return
	}

	var data any
	if len(req.Data) > 0 {
		data = req.Data
	}
	event, err := h.broker.Publish(user, req.Type, data)
	if err != nil {
		h.logger.Warn().Err(err).Str("event_type", string(req.Type)).Msg("Emit rejected")
		response.ErrorFromType(w, err)
		return
	}
	if h.onPublish != nil {
		h.onPublish(event)
	}

	h.logger.Debug().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("user", user).
		Msg("Event emitted")
	response.Accepted(w, EmitResponse{ID: event.ID, Type: event.Type})
}
