// Package record implements the external task itself: fetch the latest
// discharge reading for each tracked gauge site and upsert it into the
// readings table. The runner invokes this through the creekrecord binary;
// everything the task needs arrives via its environment.
package record

import (
	"context"
	"fmt"
	"time"

	"github.com/hollandale/creekrun/pkg/clog"
	"github.com/hollandale/creekrun/pkg/store/models"
	"github.com/hollandale/creekrun/pkg/usgs"
)

// ReadingWriter is the slice of the store the task needs.
type ReadingWriter interface {
	Upsert(ctx context.Context, readings []*models.Reading) (int, error)
}

// Refresher fetches and persists one round of readings.
type Refresher struct {
	client   *usgs.Client
	readings ReadingWriter
	sites    map[string]string // site code -> display name
	logger   *clog.Logger
}

func NewRefresher(client *usgs.Client, readings ReadingWriter, sites map[string]string, logger *clog.Logger) *Refresher {
	if len(sites) == 0 {
		sites = usgs.DefaultSites
	}
	if logger == nil {
		logger = clog.NewDefault()
	}
	return &Refresher{
		client:   client,
		readings: readings,
		sites:    sites,
		logger:   logger,
	}
}

// Refresh fetches the latest reading per site and upserts the batch.
// Re-running within the same gauge interval rewrites the same rows, so the
// operation is idempotent end to end.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	codes := make([]string, 0, len(r.sites))
	for code := range r.sites {
		codes = append(codes, code)
	}

	fetched, err := r.client.FetchDischarge(ctx, codes)
	if err != nil {
		return 0, fmt.Errorf("fetching readings: %w", err)
	}

	now := time.Now().UTC()
	rows := make([]*models.Reading, 0, len(fetched))
	for _, f := range fetched {
		name := r.sites[f.SiteCode]
		if name == "" {
			name = f.SiteName
		}
		rows = append(rows, &models.Reading{
			SiteCode:   f.SiteCode,
			SiteName:   name,
			RecordedAt: f.RecordedAt,
			Discharge:  f.Discharge,
			FetchedAt:  now,
		})
		r.logger.Info("💧 reading", "site", name, "discharge_cfs", f.Discharge, "recorded_at", f.RecordedAt.Format(time.RFC3339))
	}

	if len(rows) == 0 {
		r.logger.Warn("no sites reported data this round")
		return 0, nil
	}

	n, err := r.readings.Upsert(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("storing readings: %w", err)
	}

	r.logger.Info("refresh complete", "sites_reported", len(rows), "rows_written", n)
	return n, nil
}
