package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Reading is one instantaneous discharge observation from a gauge site.
// (site_code, recorded_at) is unique: re-fetching an interval the gauge
// already reported updates the row instead of duplicating it.
type Reading struct {
	bun.BaseModel `bun:"table:readings,alias:r"`

	ID         int64     `bun:",pk,autoincrement"`
	SiteCode   string    `bun:",notnull"`
	SiteName   string    `bun:",notnull"`
	RecordedAt time.Time `bun:",notnull"`
	Discharge  float64   `bun:",notnull"` // cubic feet per second

	FetchedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// InvocationRecord mirrors the terminal state of a job invocation for
// querying across daemon restarts. The file-based invocation dir stays the
// source of truth for logs.
type InvocationRecord struct {
	bun.BaseModel `bun:"table:invocations,alias:i"`

	ID          uuid.UUID  `bun:"type:uuid,pk"`
	Job         string     `bun:",notnull"`
	Trigger     string     `bun:",notnull"`
	Status      string     `bun:",notnull"`
	Phase       string     `bun:",nullzero"`
	FailureKind string     `bun:",nullzero"`
	Error       string     `bun:",nullzero"`
	ExitCode    *int       `bun:",nullzero"`
	CreatedAt   time.Time  `bun:",notnull"`
	StartedAt   *time.Time `bun:",nullzero"`
	FinishedAt  *time.Time `bun:",nullzero"`
}
