// creekrecord is the external task the runner executes. It reads the
// database credentials the runner materialized, fetches the latest
// discharge reading for each tracked gauge site, and upserts them into the
// readings table. It exits non-zero on any failure and never retries; the
// next scheduled invocation is the retry.
package main

import (
	"context"
	"os"
	"time"

	"github.com/hollandale/creekrun/pkg/clog"
	"github.com/hollandale/creekrun/pkg/record"
	"github.com/hollandale/creekrun/pkg/store"
	"github.com/hollandale/creekrun/pkg/usgs"
)

const (
	credentialEnv  = "CREEKRUN_CREDENTIALS"
	credentialFile = "credentials.json"
)

func main() {
	logger := clog.NewDefault()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	creds, err := record.LoadCredentials(credentialEnv, credentialFile)
	if err != nil {
		logger.Error("failed to load credentials", "error", err.Error())
		os.Exit(1)
	}

	db, err := store.New(ctx, creds.StoreConfig())
	if err != nil {
		logger.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	refresher := record.NewRefresher(usgs.NewClient(), store.NewReadings(db), nil, logger)
	if _, err := refresher.Refresh(ctx); err != nil {
		logger.Error("refresh failed", "error", err.Error())
		os.Exit(1)
	}
}
