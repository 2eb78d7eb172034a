package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hollandale/creekrun/pkg/api"
	"github.com/hollandale/creekrun/pkg/api/config"
	"github.com/hollandale/creekrun/pkg/api/routes"
	"github.com/hollandale/creekrun/pkg/api/services"
	"github.com/hollandale/creekrun/pkg/api/services/guard"
	"github.com/hollandale/creekrun/pkg/api/services/invocations"
	"github.com/hollandale/creekrun/pkg/artifact"
	"github.com/hollandale/creekrun/pkg/clog"
	"github.com/hollandale/creekrun/pkg/invoke"
	"github.com/hollandale/creekrun/pkg/kv"
	"github.com/hollandale/creekrun/pkg/lease"
	"github.com/hollandale/creekrun/pkg/provision"
	"github.com/hollandale/creekrun/pkg/schedule"
	"github.com/hollandale/creekrun/pkg/store"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon",
	Long: `Start the scheduler and the control API. The refresh job fires on the
configured cron spec; manual triggers arrive through the API and share the
same overlap lease.`,
	Run: run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	logger := clog.NewDefault()

	cfg, err := config.ValidateEnv()
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}

	cfg.Print(log.Printf)

	database, err := store.New(ctx, store.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()

	kvStore, err := kv.NewValkeyStore(kv.ValkeyConfig{
		Addr:     cfg.ValkeyAddr,
		Password: cfg.ValkeyPassword,
		DB:       cfg.ValkeyDB,
	})
	if err != nil {
		log.Fatalf("failed to connect to valkey: %v", err)
	}
	defer kvStore.Close()

	var artifacts artifact.Store
	if cfg.S3Endpoint != "" {
		s3Store, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Fatalf("failed to initialize artifact storage: %v", err)
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Fatalf("failed to ensure artifact bucket: %v", err)
		}
		artifacts = s3Store
	}

	provider, err := cfg.CredentialProvider()
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}

	factory, err := provision.NewFactory(provision.Config{
		Backend: cfg.Backend,
		Docker: provision.DockerConfig{
			Image:     cfg.DockerImage,
			PullImage: true,
		},
		K8s: provision.K8sConfig{
			Namespace: cfg.K8sNamespace,
			Image:     cfg.K8sImage,
		},
	})
	if err != nil {
		log.Fatalf("failed to initialize backend: %v", err)
	}

	job := invoke.JobConfig{
		Name: cfg.JobName,
		Source: provision.SourceSpec{
			RepoURL: cfg.JobRepoURL,
			Ref:     cfg.JobRef,
		},
		SetupCommand:   strings.Fields(cfg.JobSetup),
		InstallCommand: strings.Fields(cfg.JobInstall),
		TaskCommand:    strings.Fields(cfg.JobTask),
		CredentialFile: cfg.CredentialFile,
		CredentialEnv:  cfg.CredentialEnv,
	}

	opts := []invoke.Option{
		invoke.WithLogger(logger),
		invoke.WithMetadata(map[string]string{
			"backend": cfg.Backend,
			"job":     cfg.JobName,
		}),
	}
	if artifacts != nil {
		opts = append(opts, invoke.WithArtifactStore(artifacts))
	}
	runner := invoke.NewRunner(job, provider, factory, opts...)

	svc := invocations.NewService(
		cfg.JobName,
		runner,
		lease.NewLocker(kvStore),
		time.Duration(cfg.LeaseTTLSecs)*time.Second,
		store.NewInvocations(database),
		logger,
	)

	scheduler, err := schedule.New(cfg.CronSpec, func(ctx context.Context) error {
		_, err := svc.Trigger(ctx, invoke.TriggerScheduled)
		if errors.Is(err, invocations.ErrBusy) {
			// previous invocation still running; this tick is skipped
			return nil
		}
		return err
	}, logger)
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	a := api.NewApi()
	a.Api.UseMiddleware(guard.NewService(cfg.AuthSecret).Middleware(a.Api))
	routes.RegisterAPI(a.Api, &services.Services{
		Invocations: svc,
		Readings:    store.NewReadings(database),
		S3:          artifacts,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)

	log.Printf("🚀 creekrund starting on %s\n", addr)
	log.Printf("📚 OpenAPI docs: %s/docs\n", cfg.BaseURL)
	log.Printf("📄 OpenAPI spec: %s/openapi.json\n", cfg.BaseURL)
	log.Printf("⏰ Refresh schedule: %q\n", cfg.CronSpec)

	if err := http.ListenAndServe(addr, a.Router); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
