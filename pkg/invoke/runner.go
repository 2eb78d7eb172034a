package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hollandale/creekrun/pkg/artifact"
	"github.com/hollandale/creekrun/pkg/clog"
	"github.com/hollandale/creekrun/pkg/provision"
	"github.com/hollandale/creekrun/pkg/secrets"
)

const (
	defaultCredentialFile = "credentials.json"
	defaultCredentialEnv  = "CREEKRUN_CREDENTIALS"
)

// Runner executes invocations of one configured job. It owns no state
// shared between invocations: every Trigger provisions a fresh work dir
// and environment keyed by the invocation ID, so identical triggers are
// independent.
type Runner struct {
	job       JobConfig
	creds     secrets.Provider
	newEnv    provision.Factory
	task      Task
	baseDir   string // base directory for .creekrun/invocations
	artifacts artifact.Store
	metadata  map[string]string
	logger    *clog.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithArtifactStore sets the artifact storage for retained output
func WithArtifactStore(store artifact.Store) Option {
	return func(r *Runner) {
		r.artifacts = store
	}
}

// WithBaseDir sets the base directory for invocation dirs
func WithBaseDir(baseDir string) Option {
	return func(r *Runner) {
		r.baseDir = baseDir
	}
}

// WithTask substitutes the task implementation (tests use fakes)
func WithTask(task Task) Option {
	return func(r *Runner) {
		r.task = task
	}
}

// WithMetadata attaches an environment snapshot (backend, image, command
// summary) to every invocation this runner produces
func WithMetadata(md map[string]string) Option {
	return func(r *Runner) {
		r.metadata = md
	}
}

// WithLogger sets the logger
func WithLogger(logger *clog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner for the given job, credential provider, and
// environment factory.
func NewRunner(job JobConfig, creds secrets.Provider, newEnv provision.Factory, opts ...Option) *Runner {
	if job.CredentialFile == "" {
		job.CredentialFile = defaultCredentialFile
	}
	if job.CredentialEnv == "" {
		job.CredentialEnv = defaultCredentialEnv
	}

	cwd, _ := os.Getwd()
	r := &Runner{
		job:     job,
		creds:   creds,
		newEnv:  newEnv,
		baseDir: cwd,
		logger:  clog.NewDefault(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.task == nil {
		r.task = ExecTask{Command: job.TaskCommand}
	}
	return r
}

// invocationsDir returns the directory all invocation dirs live under.
func (r *Runner) invocationsDir() string {
	return filepath.Join(r.baseDir, ".creekrun", "invocations")
}

// Trigger runs one invocation to its terminal status. The returned
// invocation is always terminal; phase failures are reported on it, not
// as the error. The error is non-nil only when the invocation could not
// be created at all.
func (r *Runner) Trigger(ctx context.Context, trigger Trigger) (*Invocation, error) {
	// UUIDv7 keeps invocation dirs lexicographically ordered by time
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID: %w", err)
	}

	invDir := filepath.Join(r.invocationsDir(), id.String())
	if err := os.MkdirAll(invDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create invocation directory: %w", err)
	}

	now := time.Now()
	inv := &Invocation{
		ID:         id.String(),
		Job:        r.job.Name,
		Trigger:    trigger,
		Status:     StatusPending,
		CreatedAt:  now,
		Dir:        invDir,
		LogsPath:   filepath.Join(invDir, "stdout.log"),
		StderrPath: filepath.Join(invDir, "stderr.log"),
		Metadata:   make(map[string]string),
	}
	for k, v := range r.metadata {
		inv.Metadata[k] = v
	}

	if err := r.saveInvocation(inv); err != nil {
		return nil, fmt.Errorf("failed to save invocation state: %w", err)
	}

	r.logger.Info("invocation started", "id", inv.ID, "trigger", string(trigger))

	runErr := r.run(ctx, inv)

	finished := time.Now()
	inv.FinishedAt = &finished

	switch {
	case runErr == nil:
		inv.Status = StatusSucceeded
		r.logger.Info("invocation succeeded", "id", inv.ID)
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		inv.Status = StatusCancelled
		inv.Error = runErr.Error()
		r.logger.Warn("invocation cancelled", "id", inv.ID)
	default:
		inv.Status = StatusFailed
		inv.FailureKind = KindOf(runErr)
		inv.Error = runErr.Error()
		r.logger.Error("invocation failed", "id", inv.ID, "kind", string(inv.FailureKind))
	}

	r.uploadArtifacts(ctx, inv)

	if err := r.saveInvocation(inv); err != nil {
		r.logger.Warn("failed to save final invocation state", "id", inv.ID, "error", err.Error())
	}

	return inv, nil
}

// run executes the phases. Log files are opened first so every phase's
// output is captured for diagnosis.
func (r *Runner) run(ctx context.Context, inv *Invocation) error {
	stdout, err := os.Create(inv.LogsPath)
	if err != nil {
		return NewPhaseError(FailureEnvironmentSetup, fmt.Errorf("creating log file: %w", err))
	}
	defer stdout.Close()

	stderr, err := os.Create(inv.StderrPath)
	if err != nil {
		return NewPhaseError(FailureEnvironmentSetup, fmt.Errorf("creating stderr file: %w", err))
	}
	defer stderr.Close()

	// Environment setup. The environment is created before checkout
	// because on the container backends the checkout runs inside it.
	inv.Status = StatusProvisioning
	inv.Phase = PhaseEnvironmentSetup
	r.saveProgress(inv)

	env, err := r.newEnv(ctx, filepath.Join(inv.Dir, "src"))
	if err != nil {
		return NewPhaseError(FailureEnvironmentSetup, err)
	}
	defer env.Close(context.WithoutCancel(ctx))
	inv.Metadata["work_dir"] = env.WorkDir()

	if len(r.job.SetupCommand) > 0 {
		if err := r.execPhase(ctx, env, r.job.SetupCommand, stdout, stderr, FailureEnvironmentSetup); err != nil {
			return err
		}
	}

	// Checkout
	if r.job.Source.RepoURL != "" {
		inv.Phase = PhaseCheckout
		r.saveProgress(inv)

		if err := env.Checkout(ctx, r.job.Source, stdout); err != nil {
			return NewPhaseError(FailureCheckout, err)
		}
	}

	// Dependency install. Failing here is fatal: the task never launches
	// on a partially provisioned environment.
	if len(r.job.InstallCommand) > 0 {
		inv.Phase = PhaseInstall
		r.saveProgress(inv)

		if err := r.execPhase(ctx, env, r.job.InstallCommand, stdout, stderr, FailureDependencyInstall); err != nil {
			return err
		}
	}

	// Credential materialization. A missing secret fails fast before the
	// task is attempted. The file is scoped to this invocation's
	// environment and removed again no matter how the task ends.
	inv.Phase = PhaseCredential
	r.saveProgress(inv)

	blob, err := r.creds.Credential(ctx)
	if err != nil {
		return NewPhaseError(FailureCredential, err)
	}
	if err := env.WriteFile(ctx, r.job.CredentialFile, blob, 0o600); err != nil {
		return NewPhaseError(FailureCredential, err)
	}
	defer func() {
		if err := env.RemoveFile(context.WithoutCancel(ctx), r.job.CredentialFile); err != nil {
			r.logger.Warn("failed to remove credential file", "id", inv.ID, "error", err.Error())
		}
	}()

	taskEnv := make(map[string]string, len(r.job.Env)+1)
	for k, v := range r.job.Env {
		taskEnv[k] = v
	}
	taskEnv[r.job.CredentialEnv] = string(blob)

	// Task execution
	inv.Phase = PhaseTask
	inv.Status = StatusRunning
	started := time.Now()
	inv.StartedAt = &started
	r.saveProgress(inv)

	code, err := r.task.Run(ctx, env, TaskInput{Env: taskEnv, Stdout: stdout, Stderr: stderr})
	if ctx.Err() != nil {
		// A cancelled context kills the task; whatever exit status the
		// kill produced is not a task failure.
		return ctx.Err()
	}
	if err != nil {
		return NewPhaseError(FailureTaskCrash, err)
	}

	inv.ExitCode = &code
	if code != 0 {
		detail := fmt.Errorf("task exited with status %d", code)
		if tail := tailFile(inv.StderrPath, 2048); tail != "" {
			detail = fmt.Errorf("task exited with status %d: %s", code, tail)
		}
		return NewPhaseError(FailureTaskExecution, detail)
	}

	return nil
}

func (r *Runner) execPhase(ctx context.Context, env provision.Environment, command []string, stdout, stderr io.Writer, kind FailureKind) error {
	res, err := env.Exec(ctx, provision.ExecSpec{
		Command: command,
		Env:     r.job.Env,
		Stdout:  stdout,
		Stderr:  stderr,
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return NewPhaseError(kind, err)
	}
	if res.ExitCode != 0 {
		return NewPhaseError(kind, fmt.Errorf("%s exited with status %d", command[0], res.ExitCode))
	}
	return nil
}

// GetInvocation retrieves a persisted invocation by ID.
func (r *Runner) GetInvocation(_ context.Context, id string) (*Invocation, error) {
	invPath := filepath.Join(r.invocationsDir(), id, "invocation.json")
	data, err := os.ReadFile(invPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("invocation %s not found", id)
		}
		return nil, fmt.Errorf("failed to read invocation state: %w", err)
	}

	var inv Invocation
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse invocation state: %w", err)
	}

	return &inv, nil
}

// ListInvocations lists all invocations, optionally filtered by status.
func (r *Runner) ListInvocations(ctx context.Context, status *Status) ([]*Invocation, error) {
	entries, err := os.ReadDir(r.invocationsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*Invocation{}, nil
		}
		return nil, fmt.Errorf("failed to read invocations directory: %w", err)
	}

	var invocations []*Invocation
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		inv, err := r.GetInvocation(ctx, entry.Name())
		if err != nil {
			// Skip invocations that can't be read
			continue
		}

		if status != nil && inv.Status != *status {
			continue
		}

		invocations = append(invocations, inv)
	}

	return invocations, nil
}

// GetLogs returns the captured stdout stream for an invocation.
func (r *Runner) GetLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	inv, err := r.GetInvocation(ctx, id)
	if err != nil {
		return nil, err
	}

	logFile, err := os.Open(inv.LogsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return logFile, nil
}

// saveProgress persists a phase transition. A failed save is logged
// rather than aborting the invocation mid-run; the terminal save in
// Trigger reports its own failure.
func (r *Runner) saveProgress(inv *Invocation) {
	if err := r.saveInvocation(inv); err != nil {
		r.logger.Warn("failed to save invocation state", "id", inv.ID, "phase", string(inv.Phase), "error", err.Error())
	}
}

func (r *Runner) saveInvocation(inv *Invocation) error {
	invPath := filepath.Join(inv.Dir, "invocation.json")
	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal invocation state: %w", err)
	}

	if err := os.WriteFile(invPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write invocation state: %w", err)
	}

	return nil
}

// uploadArtifacts retains the captured output in storage if configured.
// The credential file is never uploaded: only the log streams and the
// invocation record leave the host.
func (r *Runner) uploadArtifacts(ctx context.Context, inv *Invocation) {
	if r.artifacts == nil {
		return
	}

	upload := func(path, filename, contentType string) {
		f, err := os.Open(path)
		if err != nil {
			return
		}
		defer f.Close()

		stat, err := f.Stat()
		if err != nil {
			return
		}

		key := artifact.InvocationKey(inv.ID, filename)
		stored, err := r.artifacts.Upload(ctx, key, f, contentType, map[string]string{
			"invocation_id": inv.ID,
		})
		if err != nil {
			r.logger.Warn("failed to upload artifact", "id", inv.ID, "filename", filename, "error", err.Error())
			return
		}

		inv.Artifacts = append(inv.Artifacts, InvocationArtifact{
			Key:         stored.Key,
			Filename:    filename,
			Size:        stat.Size(),
			ContentType: contentType,
		})
	}

	upload(inv.LogsPath, "stdout.log", "text/plain")
	upload(inv.StderrPath, "stderr.log", "text/plain")
	upload(filepath.Join(inv.Dir, "invocation.json"), "invocation.json", "application/json")
}

// tailFile returns up to n trailing bytes of a file, trimmed.
func tailFile(path string, n int64) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return ""
	}

	offset := int64(0)
	if stat.Size() > n {
		offset = stat.Size() - n
	}

	buf := make([]byte, stat.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return ""
	}

	return string(bytes.TrimSpace(buf))
}
