package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hollandale/creekrun/pkg/secrets"
)

type EnvConfig struct {
	Port        string `envconfig:"PORT" default:"3000"`
	BaseURL     string `envconfig:"BASE_URL" default:"http://localhost:3000"`
	AuthSecret  string `envconfig:"AUTH_SECRET" required:"true"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Job definition
	JobName        string `envconfig:"JOB_NAME" default:"stream-refresh"`
	JobRepoURL     string `envconfig:"JOB_REPO_URL"`
	JobRef         string `envconfig:"JOB_REF"`
	JobSetup       string `envconfig:"JOB_SETUP_COMMAND"`
	JobInstall     string `envconfig:"JOB_INSTALL_COMMAND"`
	JobTask        string `envconfig:"JOB_TASK_COMMAND" default:"creekrecord"`
	CronSpec       string `envconfig:"CRON_SPEC" default:"0 * * * *"`
	LeaseTTLSecs   int    `envconfig:"LEASE_TTL" default:"3300"` // just under the hourly cadence
	CredentialEnv  string `envconfig:"CREDENTIAL_ENV" default:"CREEKRUN_CREDENTIALS"`
	CredentialFile string `envconfig:"CREDENTIAL_FILE" default:"credentials.json"`

	// Credential source for the daemon itself: "env:NAME" or "file:/path"
	CredentialSource string `envconfig:"CREDENTIAL_SOURCE" default:"env:CREEKRUN_JOB_CREDENTIALS"`

	// Execution backend
	Backend      string `envconfig:"BACKEND" default:"local"`
	DockerImage  string `envconfig:"DOCKER_IMAGE" default:"python:3.12-slim"`
	K8sNamespace string `envconfig:"K8S_NAMESPACE" default:"default"`
	K8sImage     string `envconfig:"K8S_IMAGE" default:"python:3.12-slim"`

	// Postgres
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"creekrun"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"password"`
	DBName     string `envconfig:"DB_NAME" default:"creekrun"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Valkey (leases)
	ValkeyAddr     string `envconfig:"VALKEY_ADDR" default:"localhost:6379"`
	ValkeyPassword string `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB       int    `envconfig:"VALKEY_DB" default:"0"`

	// S3-compatible artifact storage (optional)
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"creekrun-artifacts"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`
}

func IsDev() bool {
	return os.Getenv("ENVIRONMENT") != "production"
}

func ValidateEnv() (*EnvConfig, error) {
	if IsDev() {
		if err := godotenv.Load(); err != nil {
			log.Println("ℹ No .env file found")
		} else {
			log.Println("✓ Loaded .env file")
		}
	}

	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var errors []string

	if len(cfg.AuthSecret) < 32 {
		errors = append(errors, "  ❌ AUTH_SECRET must be at least 32 characters")
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		errors = append(errors, "  ❌ BASE_URL must be a valid URL")
	}

	switch cfg.Backend {
	case "local", "docker", "k8s":
	default:
		errors = append(errors, fmt.Sprintf("  ❌ BACKEND must be local, docker, or k8s (got %q)", cfg.Backend))
	}

	if len(cfg.JobTask) == 0 {
		errors = append(errors, "  ❌ JOB_TASK_COMMAND must not be empty")
	}

	scheme, _, ok := strings.Cut(cfg.CredentialSource, ":")
	if !ok || (scheme != "env" && scheme != "file") {
		errors = append(errors, "  ❌ CREDENTIAL_SOURCE must be env:NAME or file:/path")
	}

	if (cfg.S3Endpoint != "") != (cfg.S3AccessKey != "" && cfg.S3SecretKey != "") {
		errors = append(errors, "  ❌ S3_ENDPOINT, S3_ACCESS_KEY, and S3_SECRET_KEY must be set together")
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return &cfg, nil
}

// CredentialProvider builds the secrets provider the runner draws the job
// credential from.
func (c *EnvConfig) CredentialProvider() (secrets.Provider, error) {
	scheme, rest, _ := strings.Cut(c.CredentialSource, ":")
	switch scheme {
	case "env":
		return secrets.EnvProvider{Name: rest}, nil
	case "file":
		return secrets.FileProvider{Path: rest}, nil
	default:
		return nil, fmt.Errorf("unknown credential source %q", c.CredentialSource)
	}
}

func (c *EnvConfig) Print(fmtr func(string, ...interface{})) {
	fmtr("📋 Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Port: %s\n", c.Port)
	fmtr("  Base URL: %s\n", c.BaseURL)
	fmtr("  Auth Secret: %s\n", secrets.Mask(c.AuthSecret))
	fmtr("  Job: %s (cron %q, backend %s)\n", c.JobName, c.CronSpec, c.Backend)
	fmtr("  Credential Source: %s\n", c.CredentialSource)
	fmtr("  Database: %s@%s:%d/%s (sslmode=%s)\n", c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
	fmtr("  Valkey: %s (db %d)\n", c.ValkeyAddr, c.ValkeyDB)

	if c.S3Endpoint != "" {
		fmtr("  Artifacts: ✓ %s/%s\n", c.S3Endpoint, c.S3Bucket)
		fmtr("    Access Key: %s\n", secrets.Mask(c.S3AccessKey))
	} else {
		fmtr("  Artifacts: ✗ Disabled\n")
	}
}
