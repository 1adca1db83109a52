package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/internal/server/auth"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/response"
	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Verifier    auth.Verifier
	QueryParam  string   // query parameter accepted on stream paths
	QueryPaths  []string // paths where the query parameter is accepted
	PublicPaths []string
}

// DefaultAuthConfig returns default authentication configuration.
func DefaultAuthConfig(v auth.Verifier) AuthConfig {
	return AuthConfig{
		Verifier:    v,
		QueryParam:  constants.DefaultTokenParam,
		QueryPaths:  []string{constants.DefaultStreamPath, constants.DefaultWebSocketPath},
		PublicPaths: []string{"/health", "/metrics", "/favicon.ico"},
	}
}

// Auth validates the access token and stores its subject in the request
// context. Browsers cannot set headers on EventSource requests, so stream
// paths also accept the token as a query parameter.
func Auth(config AuthConfig, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path, config.PublicPaths) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r, config)
			claims, err := config.Verifier.Verify(token)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Bool("token_provided", token != "").
					Msg("Authentication failed")

				response.Unauthorized(w, constants.ErrMsgInvalidToken,
					"Provide a valid token in the Authorization header or the "+config.QueryParam+" query parameter")
				return
			}

			ctx := auth.WithUser(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isPublicPath checks if a path is in the public paths list.
func isPublicPath(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// extractToken reads the Authorization header, then the query parameter on
// stream paths.
func extractToken(r *http.Request, config AuthConfig) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		return header
	}
	if config.QueryParam != "" && isPublicPath(r.URL.Path, config.QueryPaths) {
		return r.URL.Query().Get(config.QueryParam)
	}
	return ""
}
