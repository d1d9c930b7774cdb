// Package sweep runs resolution passes on a cron schedule, keeping the
// marker store and outcome cache warm between interactive runs.
package sweep

import (
	"context"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RunFunc performs one resolution pass.
type RunFunc func(ctx context.Context) error

// Scheduler fires RunFunc on a cron expression. Overlapping passes are
// skipped rather than queued.
type Scheduler struct {
	spec    string
	run     RunFunc
	timeout time.Duration

	mu   sync.Mutex
	cron *rcron.Cron
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 1h") and returns a stopped scheduler. Each pass is bounded by
// timeout when it is positive.
func New(spec string, timeout time.Duration, run RunFunc) (*Scheduler, error) {
	if _, err := rcron.ParseStandard(spec); err != nil {
		return nil, eris.Wrapf(err, "sweep: parse schedule %q", spec)
	}
	return &Scheduler{spec: spec, run: run, timeout: timeout}, nil
}

// Start begins firing passes until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return eris.New("sweep: already started")
	}

	c := rcron.New(rcron.WithChain(
		rcron.Recover(zapLogger{}),
		rcron.SkipIfStillRunning(zapLogger{}),
	))
	if _, err := c.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return eris.Wrap(err, "sweep: register")
	}
	c.Start()
	s.cron = c

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	zap.L().Info("sweep scheduled", zap.String("schedule", s.spec))
	return nil
}

// Stop halts the schedule and waits up to five seconds for a running pass.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-time.After(5 * time.Second):
		zap.L().Warn("sweep: stop timed out waiting for running pass")
	}
	zap.L().Info("sweep stopped")
}

// RunOnce performs a single pass and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.run(ctx); err != nil {
		zap.L().Warn("sweep pass failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	zap.L().Info("sweep pass complete", zap.Duration("elapsed", time.Since(start)))
}

// zapLogger adapts the global zap logger to cron's logging interface.
type zapLogger struct{}

func (zapLogger) Info(msg string, keysAndValues ...any) {
	zap.L().Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (zapLogger) Error(err error, msg string, keysAndValues ...any) {
	zap.L().Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
