package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig holds CORS configuration. An origin entry may be "*" or a
// subdomain pattern such as "*.example.com".
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	AllowAll       bool
	MaxAge         time.Duration
}

// DefaultCORSConfig allows any origin and the headers a browser needs to
// resume a stream.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Last-Event-ID", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         24 * time.Hour,
	}
}

// CORS answers preflight requests and decorates the rest.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	static := map[string]string{
		"Access-Control-Allow-Methods": strings.Join(config.AllowedMethods, ", "),
		"Access-Control-Allow-Headers": strings.Join(config.AllowedHeaders, ", "),
	}
	if len(config.ExposedHeaders) > 0 {
		static["Access-Control-Expose-Headers"] = strings.Join(config.ExposedHeaders, ", ")
	}
	if config.MaxAge > 0 {
		static["Access-Control-Max-Age"] = strconv.Itoa(int(config.MaxAge.Seconds()))
	}
	wildcard := config.AllowAll || len(config.AllowedOrigins) == 0

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			switch origin := r.Header.Get("Origin"); {
			case wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && originAllowed(origin, config.AllowedOrigins):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			for k, v := range static {
				h.Set(k, v)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, patterns []string) bool {
	for _, p := range patterns {
		if p == "*" || strings.EqualFold(p, origin) {
			return true
		}
		if suffix, ok := strings.CutPrefix(p, "*."); ok && matchSubdomain(origin, suffix) {
			return true
		}
	}
	return false
}

// matchSubdomain reports whether origin's host is a strict subdomain of
// domain. The scheme and port are ignored.
func matchSubdomain(origin, domain string) bool {
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(host)
	return strings.HasSuffix(host, "."+strings.ToLower(domain))
}
