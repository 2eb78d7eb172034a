// Package invocations coordinates triggers: one lease per job, one runner
// invocation per acquired lease, one history row per terminal status. Both
// the scheduler and the manual API path go through this service, so the
// overlap rule holds no matter where the trigger came from.
package invocations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hollandale/creekrun/pkg/clog"
	"github.com/hollandale/creekrun/pkg/invoke"
	"github.com/hollandale/creekrun/pkg/lease"
)

// ErrBusy is returned when an invocation of the job is already in flight.
var ErrBusy = errors.New("invocations: job is already running")

// History receives terminal invocation states. Nil-able: the file-based
// record in the invocation dir always exists regardless.
type History interface {
	Record(ctx context.Context, inv *invoke.Invocation) error
}

type Service struct {
	jobName  string
	runner   *invoke.Runner
	locker   *lease.Locker
	leaseTTL time.Duration
	history  History
	logger   *clog.Logger
}

func NewService(jobName string, runner *invoke.Runner, locker *lease.Locker, leaseTTL time.Duration, history History, logger *clog.Logger) *Service {
	if logger == nil {
		logger = clog.NewDefault()
	}
	return &Service{
		jobName:  jobName,
		runner:   runner,
		locker:   locker,
		leaseTTL: leaseTTL,
		history:  history,
		logger:   logger,
	}
}

// Trigger runs one invocation under the job lease. While an invocation is
// in flight every further trigger, scheduled or manual, gets ErrBusy.
func (s *Service) Trigger(ctx context.Context, trigger invoke.Trigger) (*invoke.Invocation, error) {
	l, err := s.locker.Acquire(ctx, s.jobName, s.leaseTTL)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			s.logger.Warn("trigger skipped, invocation in flight", "trigger", string(trigger))
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("acquiring job lease: %w", err)
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release job lease", "error", err.Error())
		}
	}()

	inv, err := s.runner.Trigger(ctx, trigger)
	if err != nil {
		return nil, err
	}

	if s.history != nil {
		if err := s.history.Record(ctx, inv); err != nil {
			s.logger.Warn("failed to record invocation history", "id", inv.ID, "error", err.Error())
		}
	}

	return inv, nil
}

// Get returns one invocation by ID.
func (s *Service) Get(ctx context.Context, id string) (*invoke.Invocation, error) {
	return s.runner.GetInvocation(ctx, id)
}

// List returns invocations, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *invoke.Status) ([]*invoke.Invocation, error) {
	return s.runner.ListInvocations(ctx, status)
}

// Logs returns the captured stdout stream of an invocation.
func (s *Service) Logs(ctx context.Context, id string) (io.ReadCloser, error) {
	return s.runner.GetLogs(ctx, id)
}
