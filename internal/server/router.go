package server

import (
	"net/http"

	"github.com/reddy-bhavesh/sarral-scan/internal/metrics"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/events"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/handlers"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/middleware"
)

// route is one mux entry. Public routes skip authentication; stream routes
// also accept the token as a query parameter, since EventSource cannot
// set headers.
type route struct {
	path    string
	handler http.Handler
	public  bool
	stream  bool
}

func noContent(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func (s *Server) routes() []route {
	h := handlers.New(
		s.broker,
		s.wsHub,
		s.sseBroadcaster,
		s.upgrader,
		s.logger,
		s.startTime,
		func(e events.Event) { s.metrics.EventPublished(e.Type) },
	)

	rs := []route{
		{path: "/favicon.ico", handler: http.HandlerFunc(noContent), public: true},
		{path: "/health", handler: http.HandlerFunc(h.HandleHealth), public: true},
		{path: s.config.StreamPath, handler: http.HandlerFunc(h.HandleSSE), stream: true},
		{path: s.config.WebSocketPath, handler: http.HandlerFunc(h.HandleWebSocket), stream: true},
		{path: s.config.EmitPath, handler: http.HandlerFunc(h.HandleEmit)},
	}
	if s.config.MetricsEnabled {
		rs = append(rs, route{path: "/metrics", handler: metrics.Handler(s.registry), public: true})
	}
	return rs
}

// setupRouter mounts the routes and wraps them, outermost first, in
// recovery, request logging, CORS, authentication and rate limiting.
// Rate limiting sits inside authentication so limits apply per user.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()
	auth := middleware.DefaultAuthConfig(s.issuer)
	auth.PublicPaths, auth.QueryPaths = nil, nil

	for _, r := range s.routes() {
		mux.Handle(r.path, r.handler)
		if r.public {
			auth.PublicPaths = append(auth.PublicPaths, r.path)
		}
		if r.stream {
			auth.QueryPaths = append(auth.QueryPaths, r.path)
		}
	}

	var chain []func(http.Handler) http.Handler
	chain = append(chain,
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger, s.metrics.ObserveRequest),
	)
	if s.config.CORSEnabled {
		cors := middleware.DefaultCORSConfig()
		if len(s.config.CORSOrigins) > 0 {
			cors.AllowedOrigins = s.config.CORSOrigins
		} else {
			cors.AllowAll = true
		}
		chain = append(chain, middleware.CORS(cors))
	}
	chain = append(chain, middleware.Auth(auth, s.logger))
	if s.config.RateLimit > 0 {
		chain = append(chain, middleware.RateLimit(middleware.NewRateLimiter(s.config.RateLimit, s.config.RateBurst, s.logger)))
	}
	return middleware.Chain(chain...)(mux)
}
