// Package schedule fires the recurring trigger for the refresh job. It is
// a thin wrapper over a cron runner: the scheduler decides WHEN, the
// trigger function decides WHAT, and overlap control stays out of both
// (the invocation service holds the lease).
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/hollandale/creekrun/pkg/clog"
)

// DefaultSpec runs at the top of every hour.
const DefaultSpec = "0 * * * *"

// TriggerFunc is invoked on every tick. Errors are logged, never retried:
// the next tick is the retry.
type TriggerFunc func(ctx context.Context) error

// Scheduler fires a TriggerFunc on a cron spec.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	fn     TriggerFunc
	logger *clog.Logger
}

// New creates a scheduler for the given cron spec. An empty spec means
// DefaultSpec. The spec is validated up front so a bad configuration fails
// at startup, not at the first tick.
func New(spec string, fn TriggerFunc, logger *clog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("schedule: invalid cron spec %q: %w", spec, err)
	}
	if logger == nil {
		logger = clog.NewDefault()
	}

	return &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		fn:     fn,
		logger: logger,
	}, nil
}

// Start begins firing ticks. Each tick runs in its own goroutine managed
// by the cron runner; the passed context bounds every tick's work.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.logger.Info("⏰ schedule tick", "spec", s.spec)
		if err := s.fn(ctx); err != nil {
			s.logger.Error("scheduled trigger failed", "error", err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec)
	return nil
}

// Stop stops the scheduler and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}
