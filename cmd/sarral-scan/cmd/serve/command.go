// Package serve provides the development stream server command.
package serve

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/reddy-bhavesh/sarral-scan/internal/appcontext"
	"github.com/reddy-bhavesh/sarral-scan/internal/cmd/emoji"
	"github.com/reddy-bhavesh/sarral-scan/internal/server"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/simulator"
)

// Options holds the serve flags that are not part of server.Config.
type Options struct {
	Simulate         bool
	SimulateUser     string
	SimulateInterval time.Duration
	SimulateTargets  []string
	PrintToken       bool
}

// NewCommand creates the serve command. Flags override the loaded
// server configuration only when set.
func NewCommand(app appcontext.Interface) *cobra.Command {
	opts := &Options{}
	cfg := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "core",
		Short:   "Run the development stream server",
		Long: `Serve runs a local stand-in for the Sarral event backend.

Endpoints:
  GET  /events/stream   per-user Server-Sent Events stream (?token=)
  GET  /events/ws       WebSocket mirror of the stream (?token=)
  POST /events/emit     publish an event to the caller's streams
  GET  /health          service status
  GET  /metrics         Prometheus metrics

Tokens are HS256 JWTs signed with server.jwt_secret. When no secret is
configured a random one is generated for this run and a token is printed.
With --simulate scan lifecycles are published to --simulate-user.`,
		Example: `  sarral-scan serve
  sarral-scan serve --port 9000 --simulate --simulate-user alice
  SARRAL_SERVER_JWT_SECRET=dev sarral-scan serve --rate-limit 0`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			merged := mergeFlags(cmd, app.ServerConfig(), cfg)
			return Run(cmd.Context(), app, merged, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Host, "host", cfg.Host, "bind address")
	f.IntVar(&cfg.Port, "port", cfg.Port, "server port")
	f.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "token signing secret (generated when empty)")
	f.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "lifetime of printed tokens")
	f.BoolVar(&cfg.CORSEnabled, "cors", cfg.CORSEnabled, "enable CORS")
	f.StringSliceVar(&cfg.CORSOrigins, "cors-origins", cfg.CORSOrigins, "allowed CORS origins (empty allows all)")
	f.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "requests per minute per user or IP (0 to disable)")
	f.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "SSE heartbeat interval (0 to disable)")
	f.IntVar(&cfg.ReplaySize, "replay-size", cfg.ReplaySize, "events kept per user for Last-Event-ID replay")
	f.BoolVar(&cfg.MetricsEnabled, "metrics", cfg.MetricsEnabled, "serve /metrics")

	f.BoolVar(&opts.Simulate, "simulate", false, "publish simulated scan updates")
	f.StringVar(&opts.SimulateUser, "simulate-user", "demo", "user receiving simulated scans")
	f.DurationVar(&opts.SimulateInterval, "simulate-interval", 0, "delay between simulated status changes (default 2s)")
	f.StringSliceVar(&opts.SimulateTargets, "simulate-targets", nil, "targets cycled by the simulator")
	f.BoolVar(&opts.PrintToken, "print-token", false, "print a token for --simulate-user on start")

	return cmd
}

// Run starts the server and, when asked, the simulator. Both stop when ctx ends.
func Run(ctx context.Context, app appcontext.Interface, cfg server.Config, opts *Options, out io.Writer) error {
	logger := app.Logger()

	generated := false
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		generated = true
		logger.Warn().Msg("No server.jwt_secret configured, using a random secret for this run")
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	base := url.URL{Scheme: "http", Host: cfg.Addr()}
	fmt.Fprintf(out, "%s Dev stream server listening on %s\n", emoji.Live, base.String())
	fmt.Fprintf(out, "   stream: %s  websocket: %s\n", base.JoinPath(cfg.StreamPath).String(), base.JoinPath(cfg.WebSocketPath).String())

	if generated || opts.PrintToken {
		token, expiresAt, err := srv.Issuer().Issue(opts.SimulateUser)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "   token for %s (expires %s):\n   %s\n", opts.SimulateUser, expiresAt.Format(time.RFC3339), token)
	}
	fmt.Fprintln(out, "   Press Ctrl+C to stop")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if opts.Simulate {
		simOpts := []simulator.Option{simulator.WithFinishHook(srv.Metrics().ScanFinished)}
		if opts.SimulateInterval > 0 {
			simOpts = append(simOpts, simulator.WithInterval(opts.SimulateInterval))
		}
		if len(opts.SimulateTargets) > 0 {
			simOpts = append(simOpts, simulator.WithTargets(opts.SimulateTargets...))
		}
		sim := simulator.New(srv, logger, simOpts...)
		g.Go(func() error {
			return sim.Run(gctx, opts.SimulateUser)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Dev stream server stopped\n", emoji.Stop)
	return nil
}

// mergeFlags copies the explicitly set flag values from flags onto base.
func mergeFlags(cmd *cobra.Command, base, flags server.Config) server.Config {
	changed := cmd.Flags().Changed
	if changed("host") {
		base.Host = flags.Host
	}
	if changed("port") {
		base.Port = flags.Port
	}
	if changed("jwt-secret") {
		base.JWTSecret = flags.JWTSecret
	}
	if changed("token-ttl") {
		base.TokenTTL = flags.TokenTTL
	}
	if changed("cors") {
		base.CORSEnabled = flags.CORSEnabled
	}
	if changed("cors-origins") {
		base.CORSOrigins = flags.CORSOrigins
	}
	if changed("rate-limit") {
		base.RateLimit = flags.RateLimit
	}
	if changed("heartbeat") {
		base.Heartbeat = flags.Heartbeat
	}
	if changed("replay-size") {
		base.ReplaySize = flags.ReplaySize
	}
	if changed("metrics") {
		base.MetricsEnabled = flags.MetricsEnabled
	}
	return base
}
