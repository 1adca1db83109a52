package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestOKAndAccepted(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]string{"status": "healthy"})
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type=application/json, got %s", ct)
	}
	if resp := decode(t, w); resp.Error != nil || resp.Data == nil {
		t.Errorf("expected data and no error, got %+v", resp)
	}

	w = httptest.NewRecorder()
	Accepted(w, map[string]string{"id": "7"})
	if w.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", w.Code)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"BadRequest", func(w http.ResponseWriter) { BadRequest(w, "bad", "missing type") }, http.StatusBadRequest, "BAD_REQUEST"},
		{"Unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "denied", "") }, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"MethodNotAllowed", func(w http.ResponseWriter) { MethodNotAllowed(w, "DELETE") }, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"RateLimited", func(w http.ResponseWriter) { RateLimited(w, "slow down") }, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"InternalError", func(w http.ResponseWriter) { InternalError(w, errors.New("boom")) }, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"ServiceUnavailable", func(w http.ResponseWriter) { ServiceUnavailable(w, "draining") }, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.fn(w)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			resp := decode(t, w)
			if resp.Data != nil {
				t.Error("expected Data to be nil for error response")
			}
			if resp.Error == nil {
				t.Fatal("expected Error to be set")
			}
			if resp.Error.Code != tt.code {
				t.Errorf("expected Code=%s, got %s", tt.code, resp.Error.Code)
			}
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	InternalError(w, errors.New("secret database path"))
	resp := decode(t, w)
	if resp.Error.Details != "An unexpected error occurred" {
		t.Errorf("unexpected details %q", resp.Error.Details)
	}
}

func TestErrorFromType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "validation",
			err:    pkgerrors.NewValidationError("type", "", "event type is required"),
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
		{
			name:   "wrapped validation",
			err:    fmt.Errorf("emit: %w", pkgerrors.NewValidationError("data", "{", "invalid JSON")),
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
		{
			name:   "authentication",
			err:    pkgerrors.NewAuthenticationError("", "jwt", "token expired", nil),
			status: http.StatusUnauthorized,
			code:   "UNAUTHORIZED",
		},
		{
			name:   "resource",
			err:    pkgerrors.NewResourceError("publish", "event", "9", errors.New("event channel full")),
			status: http.StatusServiceUnavailable,
			code:   "SERVICE_UNAVAILABLE",
		},
		{
			name:   "generic",
			err:    errors.New("generic error"),
			status: http.StatusInternalServerError,
			code:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromType(w, tt.err)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			if resp := decode(t, w); resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("expected Code=%s, got %+v", tt.code, resp.Error)
			}
		})
	}
}

func TestRateLimitedRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	RateLimited(w, "slow down")
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("expected Retry-After=60, got %q", got)
	}
}

func TestCode(t *testing.T) {
	if got := Code(http.StatusTeapot); got != "ERROR" {
		t.Errorf("expected ERROR for unmapped status, got %s", got)
	}
	if got := Code(http.StatusNotFound); got != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %s", got)
	}
}

func TestErrorDetailsOmitted(t *testing.T) {
	data, err := json.Marshal(Fail("TEST", "message", ""))
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if _, ok := raw["error"]["details"]; ok {
		t.Error("expected 'details' to be omitted when empty")
	}
}
