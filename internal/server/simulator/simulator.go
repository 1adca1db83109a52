// Package simulator generates SCAN_UPDATE traffic for the development
// server. Each simulated scan walks Created, Running with progress steps,
// and ends Completed or Failed. A scan interrupted by shutdown ends Stopped.
package simulator

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/internal/server/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	pkgevents "github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

// Publisher accepts events for a user's streams.
type Publisher interface {
	Publish(user string, t pkgevents.Type, data any) (events.Event, error)
}

// Simulator publishes scan lifecycles.
type Simulator struct {
	pub      Publisher
	clock    clock.Clock
	interval time.Duration
	steps    []int
	targets  []string
	fail     func(target string) bool
	onFinish func(pkgevents.ScanStatus)
	logger   *zerolog.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock sets the clock pacing status changes.
func WithClock(c clock.Clock) Option {
	return func(s *Simulator) { s.clock = c }
}

// WithInterval sets the delay between status changes.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSteps sets the progress percentages reported while running.
func WithSteps(steps ...int) Option {
	return func(s *Simulator) { s.steps = steps }
}

// WithTargets sets the targets Run cycles through.
func WithTargets(targets ...string) Option {
	return func(s *Simulator) {
		if len(targets) > 0 {
			s.targets = targets
		}
	}
}

// WithFailure decides which scans fail. By default one in five does.
func WithFailure(fn func(target string) bool) Option {
	return func(s *Simulator) { s.fail = fn }
}

// WithFinishHook is called with the final status of every scan.
func WithFinishHook(fn func(pkgevents.ScanStatus)) Option {
	return func(s *Simulator) { s.onFinish = fn }
}

// New creates a Simulator publishing to pub.
func New(pub Publisher, logger *zerolog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		pub:      pub,
		clock:    clock.New(),
		interval: constants.SimulatorStepInterval,
		steps:    []int{10, 35, 60, 85},
		targets:  []string{"example.com", "testphp.vulnweb.com", "scanme.nmap.org"},
		fail:     func(string) bool { return rand.IntN(5) == 0 },
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run simulates scans for user back to back until ctx is done.
func (s *Simulator) Run(ctx context.Context, user string) error {
	s.logger.Info().Str("user", user).Dur("interval", s.interval).Msg("Scan simulator started")
	for i := 0; ; i++ {
		if _, err := s.Scan(ctx, user, s.targets[i%len(s.targets)]); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Info().Str("user", user).Msg("Scan simulator stopped")
				return nil
			}
			return err
		}
		if err := s.wait(ctx); err != nil {
			return nil
		}
	}
}

// Scan runs one scan against target and returns its final status. When ctx
// ends mid-scan a Stopped update is published and ctx's error returned.
func (s *Simulator) Scan(ctx context.Context, user, target string) (pkgevents.ScanStatus, error) {
	id := pkgevents.ScanID(uuid.NewString())
	logger := s.logger.With().Str("scan_id", string(id)).Str("target", target).Logger()

	update := func(status pkgevents.ScanStatus, progress *int, msg string) error {
		_, err := s.pub.Publish(user, pkgevents.ScanUpdate, pkgevents.ScanUpdatePayload{
			ScanID:   id,
			Status:   status,
			Progress: progress,
			Target:   target,
			Message:  msg,
		})
		return err
	}
	stop := func(cause error) (pkgevents.ScanStatus, error) {
		// ctx is already done; the update goes out on a best-effort basis.
		if err := update(pkgevents.ScanStopped, nil, "scan cancelled"); err != nil {
			logger.Debug().Err(err).Msg("Stopped update not published")
		}
		s.finish(pkgevents.ScanStopped)
		return pkgevents.ScanStopped, cause
	}

	if err := update(pkgevents.ScanCreated, nil, ""); err != nil {
		return "", err
	}
	logger.Debug().Msg("Simulated scan created")

	for i, p := range s.steps {
		if err := s.wait(ctx); err != nil {
			return stop(err)
		}
		progress := p
		msg := ""
		if i == 0 {
			msg = "scan started"
		}
		if err := update(pkgevents.ScanRunning, &progress, msg); err != nil {
			return "", err
		}
	}

	if err := s.wait(ctx); err != nil {
		return stop(err)
	}
	status, msg, done := pkgevents.ScanCompleted, "scan finished", 100
	if s.fail != nil && s.fail(target) {
		status, msg = pkgevents.ScanFailed, "target unreachable"
	}
	progress := &done
	if status == pkgevents.ScanFailed {
		progress = nil
	}
	if err := update(status, progress, msg); err != nil {
		return "", err
	}
	s.finish(status)
	logger.Debug().Str("status", string(status)).Msg("Simulated scan finished")
	return status, nil
}

func (s *Simulator) finish(status pkgevents.ScanStatus) {
	if s.onFinish != nil {
		s.onFinish(status)
	}
}

func (s *Simulator) wait(ctx context.Context) error {
	t := s.clock.Timer(s.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
