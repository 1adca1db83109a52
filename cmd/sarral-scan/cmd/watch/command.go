// Package watch provides the command that follows the live event stream.
package watch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	sarralscan "github.com/reddy-bhavesh/sarral-scan"
	"github.com/reddy-bhavesh/sarral-scan/internal/appcontext"
	"github.com/reddy-bhavesh/sarral-scan/internal/cmd/output"
	"github.com/reddy-bhavesh/sarral-scan/internal/metrics"
	"github.com/reddy-bhavesh/sarral-scan/internal/tui"
	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

// DefaultTypes are watched when no type is named.
var DefaultTypes = []events.Type{events.Connected, events.ScanUpdate}

// Options holds the watch flags.
type Options struct {
	Types       []string
	Transport   string
	Token       string
	Count       int
	TUI         bool
	MetricsAddr string
}

// NewCommand creates the watch command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:     "watch [event-type...]",
		GroupID: "core",
		Short:   "Follow the live event stream",
		Long: `Watch opens the authenticated event stream and prints every event of
the selected types as it arrives. Without arguments CONNECTED and
SCAN_UPDATE events are shown.

The connection is retried after failures with the configured retry policy
(fixed 5s by default). Press Ctrl+C to stop.`,
		Example: `  sarral-scan watch
  sarral-scan watch SCAN_UPDATE -o json
  sarral-scan watch --transport websocket --tui
  sarral-scan watch --count 10 --metrics-addr :9100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Types = append(opts.Types, args...)
			return Run(cmd.Context(), app, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVar(&opts.Types, "types", nil, "event types to watch (default CONNECTED,SCAN_UPDATE)")
	cmd.Flags().StringVar(&opts.Transport, "transport", "", "stream transport: sse or websocket (default from config)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "access token for this session (default SARRAL_TOKEN or the stored token)")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "exit after this many events (0 to run until interrupted)")
	cmd.Flags().BoolVar(&opts.TUI, "tui", false, "show an interactive scan board")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve client Prometheus metrics on this address")

	return cmd
}

// Run watches the stream until ctx ends or Count events were printed.
func Run(ctx context.Context, app appcontext.Interface, opts *Options, out io.Writer) error {
	logger := app.Logger()
	types := parseTypes(opts.Types)

	if opts.Token != "" {
		if err := app.SessionStore().Save(ctx, opts.Token); err != nil {
			return err
		}
	}

	var clientOpts []sarralscan.Option
	if opts.Transport != "" {
		clientOpts = append(clientOpts, sarralscan.WithTransport(opts.Transport))
	}

	if !hasCredential(ctx, app) {
		logger.Warn().Msg("No access token found; the stream stays closed. Pass --token, set SARRAL_TOKEN or run 'sarral-scan token issue --remember'")
	}

	// The metrics server only stops on cancellation, so the printer cancels
	// the group when it finishes.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m := metrics.NewClient(reg)
		clientOpts = append(clientOpts,
			sarralscan.WithObserver(m),
			sarralscan.WithListenerFailureHandler(m.ListenerFailed))
		g.Go(func() error { return serveMetrics(gctx, opts.MetricsAddr, reg, logger) })
	}

	c, err := app.Client(clientOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	logStateChanges(c, logger)

	logger.Info().
		Str("endpoint", c.Endpoint()).
		Strs("types", typeNames(types)).
		Msg("Watching event stream")

	g.Go(func() error {
		defer stop()
		defer func() { _ = c.Close() }()
		if opts.TUI {
			return tui.Run(gctx, c, app.NoColor(), types...)
		}
		return printEvents(gctx, c, types, opts.Count, output.DetectFormat(app.OutputFormat()), out)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// printEvents writes events until ctx ends or count events were written.
func printEvents(ctx context.Context, c sarralscan.Client, types []events.Type, count int, format output.Format, out io.Writer) error {
	w := output.NewEventWriter(out, format)

	var (
		mu       sync.Mutex
		seen     int
		scans    = make(map[events.ScanID]events.ScanUpdatePayload)
		done     = make(chan struct{})
		once     sync.Once
		writeErr error
	)

	listener := events.Func(func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		if count > 0 && seen >= count {
			return
		}
		if err := w.Write(e); err != nil {
			writeErr = err
			once.Do(func() { close(done) })
			return
		}
		seen++
		if e.Type == events.ScanUpdate {
			var p events.ScanUpdatePayload
			if err := e.Decode(&p); err == nil && p.ScanID != "" {
				scans[p.ScanID] = p
			}
		}
		if count > 0 && seen >= count {
			once.Do(func() { close(done) })
		}
	})

	for _, t := range types {
		if err := c.Subscribe(t, listener); err != nil {
			return err
		}
		defer c.Unsubscribe(t, listener)
	}

	if err := c.SetAuthenticated(ctx, true); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-done:
	}
	if err := c.SetAuthenticated(ctx, false); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		return errors.WrapIO("write", "output", writeErr)
	}
	if (format == output.FormatTable || format == output.FormatWide) && len(scans) > 0 {
		return output.NewFormatter(format).Format(out, output.ScansToTableData(scans))
	}
	return nil
}

// logStateChanges reports connection transitions through the logger.
func logStateChanges(c sarralscan.Client, logger *zerolog.Logger) {
	c.OnStateChange(func(sc stream.StateChange) {
		switch sc.To {
		case stream.Open:
			logger.Info().Str("from", sc.From.String()).Msg("Stream open")
		case stream.Erroring:
			logger.Warn().Err(sc.Err).Msg("Stream error, reconnecting")
		default:
			logger.Debug().Str("from", sc.From.String()).Str("to", sc.To.String()).Msg("Stream state changed")
		}
	})
}

// serveMetrics serves reg until ctx ends.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Client metrics listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.NewResourceError("listen", "metrics", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// hasCredential reports whether the session or durable store holds a token.
func hasCredential(ctx context.Context, app appcontext.Interface) bool {
	sources := credentials.Chain{app.SessionStore()}
	if durable, err := app.TokenStore(); err == nil {
		sources = append(sources, durable)
	}
	token, err := sources.Credential(ctx)
	return err == nil && token != ""
}

func parseTypes(names []string) []events.Type {
	var types []events.Type
	seen := make(map[events.Type]bool)
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			t := events.Type(strings.ToUpper(strings.TrimSpace(part)))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return append([]events.Type(nil), DefaultTypes...)
	}
	return types
}

func typeNames(types []events.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
