package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/hollandale/creekrun/pkg/invoke"
	"github.com/hollandale/creekrun/pkg/store/models"
)

// Invocations mirrors terminal invocation states into the database so the
// history survives daemon restarts and invocation-dir cleanup.
type Invocations struct {
	db *bun.DB
}

func NewInvocations(db *bun.DB) *Invocations {
	return &Invocations{db: db}
}

// Record upserts an invocation's state keyed by its ID.
func (s *Invocations) Record(ctx context.Context, inv *invoke.Invocation) error {
	id, err := uuid.Parse(inv.ID)
	if err != nil {
		return fmt.Errorf("invalid invocation id %q: %w", inv.ID, err)
	}

	rec := &models.InvocationRecord{
		ID:          id,
		Job:         inv.Job,
		Trigger:     string(inv.Trigger),
		Status:      string(inv.Status),
		Phase:       string(inv.Phase),
		FailureKind: string(inv.FailureKind),
		Error:       inv.Error,
		ExitCode:    inv.ExitCode,
		CreatedAt:   inv.CreatedAt,
		StartedAt:   inv.StartedAt,
		FinishedAt:  inv.FinishedAt,
	}

	_, err = s.db.NewInsert().
		Model(rec).
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("phase = EXCLUDED.phase").
		Set("failure_kind = EXCLUDED.failure_kind").
		Set("error = EXCLUDED.error").
		Set("exit_code = EXCLUDED.exit_code").
		Set("started_at = EXCLUDED.started_at").
		Set("finished_at = EXCLUDED.finished_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// List returns the most recent invocations, newest first.
func (s *Invocations) List(ctx context.Context, limit int) ([]*models.InvocationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var recs []*models.InvocationRecord
	err := s.db.NewSelect().
		Model(&recs).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	return recs, nil
}
