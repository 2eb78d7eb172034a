package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/hollandale/creekrun/pkg/store/models"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [up migration] ")

		// Create readings table from struct
		_, err := db.NewCreateTable().
			Model((*models.Reading)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		// One row per site per observation instant; upserts key on this
		_, err = db.NewCreateIndex().
			Model((*models.Reading)(nil)).
			Index("readings_site_code_recorded_at_idx").
			Unique().
			IfNotExists().
			Column("site_code", "recorded_at").
			Exec(ctx)
		if err != nil {
			return err
		}

		// Create invocations table from struct
		_, err = db.NewCreateTable().
			Model((*models.InvocationRecord)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [down migration] ")

		_, err := db.NewDropTable().Model((*models.InvocationRecord)(nil)).IfExists().Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewDropIndex().
			Model((*models.Reading)(nil)).
			Index("readings_site_code_recorded_at_idx").
			IfExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewDropTable().Model((*models.Reading)(nil)).IfExists().Exec(ctx)
		if err != nil {
			return err
		}

		return nil
	})
}
