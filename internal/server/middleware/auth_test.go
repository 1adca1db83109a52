package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/internal/server/auth"
)

func newAuthHandler(t *testing.T) (http.Handler, *auth.Issuer, *string) {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	logger := zerolog.Nop()
	var user string
	h := Auth(DefaultAuthConfig(issuer), &logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, issuer, &user
}

func TestAuth(t *testing.T) {
	h, issuer, user := newAuthHandler(t)
	token, _, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name     string
		method   string
		target   string
		header   string
		status   int
		wantUser string
	}{
		{"public health", http.MethodGet, "/health", "", http.StatusOK, ""},
		{"public metrics", http.MethodGet, "/metrics", "", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "/events/emit", "", http.StatusOK, ""},
		{"missing token", http.MethodGet, "/events/stream", "", http.StatusUnauthorized, ""},
		{"query token on stream", http.MethodGet, "/events/stream?token=" + token, "", http.StatusOK, "alice"},
		{"query token on websocket", http.MethodGet, "/events/ws?token=" + token, "", http.StatusOK, "alice"},
		{"query token ignored on emit", http.MethodPost, "/events/emit?token=" + token, "", http.StatusUnauthorized, ""},
		{"bearer header", http.MethodPost, "/events/emit", "Bearer " + token, http.StatusOK, "alice"},
		{"raw header", http.MethodPost, "/events/emit", token, http.StatusOK, "alice"},
		{"bad token", http.MethodGet, "/events/stream?token=nope", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			*user = ""
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			if *user != tt.wantUser {
				t.Errorf("expected user %q, got %q", tt.wantUser, *user)
			}
		})
	}
}

func TestAuthRejectsForeignSecret(t *testing.T) {
	h, _, _ := newAuthHandler(t)
	other, err := auth.NewIssuer("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	token, _, err := other.Issue("mallory")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/stream?token="+token, nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}
