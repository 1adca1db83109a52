// Package server provides the development stream server. It speaks the
// same wire protocol as the Sarral backend: a per-user SSE stream, a
// websocket mirror and an emit endpoint, all authenticated with JWTs.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/internal/metrics"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/auth"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/events"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/events/adapters"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/sse"
	ws "github.com/reddy-bhavesh/sarral-scan/internal/server/websocket"
	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	pkgevents "github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	issuer         *auth.Issuer
	upgrader       websocket.Upgrader
	registry       *prometheus.Registry
	metrics        *metrics.Server
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	running        chan struct{}
	startTime      time.Time
}

// New creates a new server instance with the given configuration.
func New(cfg Config, logger *zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	logger.Debug().Msg("Creating event broker")
	broker := events.NewBroker(logger, events.WithReplay(cfg.ReplayTTL, cfg.ReplaySize))

	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger, cfg.Heartbeat)
	sseBroadcaster.SetReplay(adapters.Replay(broker))

	// Subscribe transports to broker
	broker.Subscribe(adapters.WebSocket(wsHub))
	broker.Subscribe(adapters.SSE(sseBroadcaster))
	logger.Debug().Msg("Transports subscribed to event broker")

	registry := prometheus.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		issuer:         issuer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true // Allow all origins for WebSocket
			},
		},
		registry:  registry,
		metrics:   metrics.NewServer(registry, sseBroadcaster.ClientCount, wsHub.ClientCount),
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		running:   make(chan struct{}),
		startTime: time.Now(),
	}
	return s, nil
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	s.logger.Debug().Msg("Starting background services")
	done := make(chan struct{}, 3)
	run := func(fn func(context.Context)) {
		go func() {
			fn(s.ctx)
			done <- struct{}{}
		}()
	}
	run(s.broker.Run)
	run(s.wsHub.Run)
	run(s.sseBroadcaster.Run)

	go func() {
		for i := 0; i < 3; i++ {
			<-done
		}
		close(s.running)
	}()
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Publish sends an event to user's streams and records it.
func (s *Server) Publish(user string, t pkgevents.Type, data any) (events.Event, error) {
	event, err := s.broker.Publish(user, t, data)
	if err == nil {
		s.metrics.EventPublished(t)
	}
	return event, err
}

// ListenAndServe serves HTTP on the configured address until ctx is done,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.Start()
	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("Dev stream server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.NewResourceError("listen", "server", srv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	// Open streams only end once the broadcaster and hub stop.
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("Background services shutdown incomplete")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.NewResourceError("shutdown", "server", srv.Addr, err)
	}
	return nil
}

// Shutdown gracefully shuts down background services.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()

	select {
	case <-s.running:
		s.logger.Info().Msg("Background services shut down successfully")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Issuer returns the token issuer.
func (s *Server) Issuer() *auth.Issuer {
	return s.issuer
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *metrics.Server {
	return s.metrics
}

// Registry returns the Prometheus registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
