package store

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/hollandale/creekrun/pkg/store/models"
)

// Readings reads and writes gauge observations.
type Readings struct {
	db *bun.DB
}

func NewReadings(db *bun.DB) *Readings {
	return &Readings{db: db}
}

// Upsert inserts the readings, updating discharge for observation instants
// the store already holds. Returns how many rows were written. Calling it
// twice with the same batch leaves the table unchanged the second time.
func (s *Readings) Upsert(ctx context.Context, readings []*models.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	res, err := s.db.NewInsert().
		Model(&readings).
		On("CONFLICT (site_code, recorded_at) DO UPDATE").
		Set("discharge = EXCLUDED.discharge").
		Set("site_name = EXCLUDED.site_name").
		Set("fetched_at = EXCLUDED.fetched_at").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert readings: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return len(readings), nil
	}
	return int(n), nil
}

// Latest returns the most recent reading per site code.
func (s *Readings) Latest(ctx context.Context, siteCode string) (*models.Reading, error) {
	reading := new(models.Reading)
	err := s.db.NewSelect().
		Model(reading).
		Where("site_code = ?", siteCode).
		Order("recorded_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest reading: %w", err)
	}
	return reading, nil
}

// Since lists readings for a site recorded at or after the given time.
func (s *Readings) Since(ctx context.Context, siteCode string, since time.Time) ([]*models.Reading, error) {
	var readings []*models.Reading
	err := s.db.NewSelect().
		Model(&readings).
		Where("site_code = ?", siteCode).
		Where("recorded_at >= ?", since).
		Order("recorded_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	return readings, nil
}
