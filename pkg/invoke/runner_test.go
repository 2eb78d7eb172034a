package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hollandale/creekrun/pkg/clog"
	"github.com/hollandale/creekrun/pkg/provision"
	"github.com/hollandale/creekrun/pkg/secrets"
)

// fakeEnv lets tests fail individual phases without a real backend.
type fakeEnv struct {
	workDir     string
	checkoutErr error
	execErr     error
	exitCode    int
	writeErr    error
	removed     []string
	closed      bool
}

func (f *fakeEnv) Checkout(_ context.Context, _ provision.SourceSpec, _ io.Writer) error {
	return f.checkoutErr
}

func (f *fakeEnv) Exec(_ context.Context, _ provision.ExecSpec) (*provision.ExecResult, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}
	return &provision.ExecResult{ExitCode: f.exitCode}, nil
}

func (f *fakeEnv) WriteFile(_ context.Context, _ string, _ []byte, _ os.FileMode) error {
	return f.writeErr
}

func (f *fakeEnv) RemoveFile(_ context.Context, name string) error {
	f.removed = append(f.removed, name)
	return nil
}

func (f *fakeEnv) WorkDir() string { return f.workDir }

func (f *fakeEnv) Close(_ context.Context) error {
	f.closed = true
	return nil
}

func fakeFactory(env *fakeEnv) provision.Factory {
	return func(_ context.Context, workDir string) (provision.Environment, error) {
		env.workDir = workDir
		return env, nil
	}
}

func localFactory(t *testing.T) provision.Factory {
	t.Helper()
	factory, err := provision.NewFactory(provision.Config{Backend: "local"})
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	return factory
}

func TestTriggerSucceeds(t *testing.T) {
	baseDir := t.TempDir()
	runner := NewRunner(
		JobConfig{Name: "refresh", TaskCommand: []string{"sh", "-c", "echo refreshed"}},
		secrets.StaticProvider{Blob: []byte(`{"host":"db"}`)},
		localFactory(t),
		WithBaseDir(baseDir),
	)

	inv, err := runner.Trigger(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if inv.Status != StatusSucceeded {
		t.Errorf("expected status %q, got %q (error: %s)", StatusSucceeded, inv.Status, inv.Error)
	}
	if !inv.Status.Terminal() {
		t.Error("expected terminal status")
	}
	if inv.ExitCode == nil || *inv.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %v", inv.ExitCode)
	}
	if inv.Trigger != TriggerManual {
		t.Errorf("expected trigger manual, got %q", inv.Trigger)
	}
	if inv.StartedAt == nil || inv.FinishedAt == nil {
		t.Error("expected started and finished timestamps")
	}

	logs, err := os.ReadFile(inv.LogsPath)
	if err != nil {
		t.Fatalf("failed to read logs: %v", err)
	}
	if !strings.Contains(string(logs), "refreshed") {
		t.Errorf("expected task output in logs, got %q", string(logs))
	}
}

func TestTriggerTaskFailureCapturesOutput(t *testing.T) {
	baseDir := t.TempDir()
	runner := NewRunner(
		JobConfig{Name: "refresh", TaskCommand: []string{"sh", "-c", "echo gauge unreachable >&2; exit 3"}},
		secrets.StaticProvider{Blob: []byte("secret")},
		localFactory(t),
		WithBaseDir(baseDir),
	)

	inv, err := runner.Trigger(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if inv.Status != StatusFailed {
		t.Fatalf("expected status failed, got %q", inv.Status)
	}
	if inv.FailureKind != FailureTaskExecution {
		t.Errorf("expected failure kind %q, got %q", FailureTaskExecution, inv.FailureKind)
	}
	if inv.ExitCode == nil || *inv.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %v", inv.ExitCode)
	}
	if !strings.Contains(inv.Error, "gauge unreachable") {
		t.Errorf("expected captured stderr in error, got %q", inv.Error)
	}
}

func TestTriggerMissingCredentialFailsBeforeTask(t *testing.T) {
	baseDir := t.TempDir()
	taskRan := false
	runner := NewRunner(
		JobConfig{Name: "refresh", CredentialEnv: "TEST_CREDS"},
		secrets.EnvProvider{Name: "CREEKRUN_TEST_UNSET_VAR"},
		localFactory(t),
		WithBaseDir(baseDir),
		WithTask(TaskFunc(func(_ context.Context, _ provision.Environment, _ TaskInput) (int, error) {
			taskRan = true
			return 0, nil
		})),
	)

	inv, err := runner.Trigger(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if inv.Status != StatusFailed {
		t.Fatalf("expected status failed, got %q", inv.Status)
	}
	if inv.FailureKind != FailureCredential {
		t.Errorf("expected failure kind %q, got %q", FailureCredential, inv.FailureKind)
	}
	if taskRan {
		t.Error("task must not launch when the credential is missing")
	}
	if inv.StartedAt != nil {
		t.Error("expected no task launch timestamp")
	}
}

func TestTriggerInstallFailurePreventsTask(t *testing.T) {
	baseDir := t.TempDir()
	taskRan := false
	runner := NewRunner(
		JobConfig{
			Name:           "refresh",
			InstallCommand: []string{"sh", "-c", "exit 1"},
		},
		secrets.StaticProvider{Blob: []byte("secret")},
		localFactory(t),
		WithBaseDir(baseDir),
		WithTask(TaskFunc(func(_ context.Context, _ provision.Environment, _ TaskInput) (int, error) {
			taskRan = true
			return 0, nil
		})),
	)

	inv, err := runner.Trigger(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if inv.FailureKind != FailureDependencyInstall {
		t.Errorf("expected failure kind %q, got %q", FailureDependencyInstall, inv.FailureKind)
	}
	if taskRan {
		t.Error("task must not launch after a failed dependency install")
	}
}

func TestTriggerCheckoutFailure(t *testing.T) {
	baseDir := t.TempDir()
	env := &fakeEnv{checkoutErr: errors.New("repository not found")}
	runner := NewRunner(
		JobConfig{
			Name:        "refresh",
			Source:      provision.SourceSpec{RepoURL: "https://example.com/missing.git"},
			TaskCommand: []string{"true"},
		},
		secrets.StaticProvider{Blob: []byte("secret")},
		fakeFactory(env),
		WithBaseDir(baseDir),
	)

	inv, err := runner.Trigger(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if inv.FailureKind != FailureCheckout {
		t.Errorf("expected failure kind %q, got %q", FailureCheckout, inv.FailureKind)
	}
	if inv.Phase != PhaseCheckout {
		t.Errorf("expected phase %q, got %q", PhaseCheckout, inv.Phase)
	}
	if !env.closed {
		t.Error("environment must be torn down after a checkout failure")
	}
}

func TestTriggerEnvironmentSetupFailure(t *testing.T) {
	baseDir := t.TempDir()
	factory := func(_ context.Context, _ string) (provision.Environment, error) {
		return nil, errors.New("no such image")
	}
	runner := NewRunner(
		JobConfig{Name: "refresh", TaskCommand: []string{"true"}},
		secrets.StaticProvider{Blob: []byte("secret")},
		factory,
		WithBaseDir(baseDir),
	)

	inv, err := runner.Trigger(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if inv.FailureKind != FailureEnvironmentSetup {
		t.Errorf("expected failure kind %q, got %q", FailureEnvironmentSetup, inv.FailureKind)
	}
}

func TestTriggerTaskCrash(t *testing.T) {
	baseDir := t.TempDir()
	runner := NewRunner(
		JobConfig{Name: "refresh"},
		secrets.StaticProvider{Blob: []byte("secret")},
		localFactory(t),
		WithBaseDir(baseDir),
		WithTask(TaskFunc(func(_ context.Context, _ provision.Environment, _ TaskInput) (int, error) {
			return 0, errors.New("executable file not found")
		})),
	)

	inv, err := runner.Trigger(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if inv.FailureKind != FailureTaskCrash {
		t.Errorf("expected failure kind %q, got %q", FailureTaskCrash, inv.FailureKind)
	}
	if inv.ExitCode != nil {
		t.Errorf("expected no exit code for a task that never started, got %v", inv.ExitCode)
	}
}

func TestTriggerCancellation(t *testing.T) {
	baseDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner(
		JobConfig{Name: "refresh"},
		secrets.StaticProvider{Blob: []byte("secret")},
		localFactory(t),
		WithBaseDir(baseDir),
		WithTask(TaskFunc(func(ctx context.Context, _ provision.Environment, _ TaskInput) (int, error) {
			cancel()
			return 0, ctx.Err()
		})),
	)

	inv, err := runner.Trigger(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if inv.Status != StatusCancelled {
		t.Errorf("expected status cancelled, got %q", inv.Status)
	}
}

func TestTriggerCancellationKillsRunningTask(t *testing.T) {
	// The production path: a real process is killed by the cancelled
	// context and exits non-zero. That must classify as cancelled, not as
	// a task failure.
	baseDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(100*time.Millisecond, cancel)

	runner := NewRunner(
		JobConfig{Name: "refresh", TaskCommand: []string{"sleep", "30"}},
		secrets.StaticProvider{Blob: []byte("secret")},
		localFactory(t),
		WithBaseDir(baseDir),
	)

	start := time.Now()
	inv, err := runner.Trigger(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if inv.Status != StatusCancelled {
		t.Errorf("expected status cancelled, got %q (kind %q, error: %s)", inv.Status, inv.FailureKind, inv.Error)
	}
	if inv.FailureKind != "" {
		t.Errorf("cancellation must not carry a failure kind, got %q", inv.FailureKind)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("task was not killed on cancellation, ran for %s", elapsed)
	}
}

func TestSaveProgressToleratesWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	runner := NewRunner(
		JobConfig{Name: "refresh"},
		secrets.StaticProvider{Blob: []byte("secret")},
		localFactory(t),
		WithLogger(clog.NewLogger(slog.LevelWarn, &buf)),
	)

	inv := &Invocation{
		ID:    "test",
		Phase: PhaseInstall,
		Dir:   filepath.Join(t.TempDir(), "missing", "deeper"),
	}

	runner.saveProgress(inv)

	if !strings.Contains(buf.String(), "failed to save invocation state") {
		t.Errorf("expected a logged save failure, got %q", buf.String())
	}
}

func TestCredentialLifecycle(t *testing.T) {
	baseDir := t.TempDir()
	secret := []byte(`{"user":"creek","password":"hunter2"}`)

	var seenFile []byte
	var seenEnv string
	runner := NewRunner(
		JobConfig{Name: "refresh", CredentialFile: "creds.json", CredentialEnv: "REFRESH_CREDS"},
		secrets.StaticProvider{Blob: secret},
		localFactory(t),
		WithBaseDir(baseDir),
		WithTask(TaskFunc(func(_ context.Context, env provision.Environment, input TaskInput) (int, error) {
			data, err := os.ReadFile(filepath.Join(env.WorkDir(), "creds.json"))
			if err != nil {
				return 1, nil
			}
			seenFile = data
			seenEnv = input.Env["REFRESH_CREDS"]
			return 0, nil
		})),
	)

	inv, err := runner.Trigger(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if inv.Status != StatusSucceeded {
		t.Fatalf("expected success, got %q (error: %s)", inv.Status, inv.Error)
	}

	if string(seenFile) != string(secret) {
		t.Errorf("task saw credential file %q, want %q", seenFile, secret)
	}
	if seenEnv != string(secret) {
		t.Errorf("task saw credential env %q, want %q", seenEnv, secret)
	}

	// The credential must not outlive the invocation.
	credPath := filepath.Join(inv.Metadata["work_dir"], "creds.json")
	if _, err := os.Stat(credPath); !os.IsNotExist(err) {
		t.Errorf("credential file still present after teardown: %v", err)
	}

	// And it must never land in the persisted record or captured output.
	for _, path := range []string{filepath.Join(inv.Dir, "invocation.json"), inv.LogsPath, inv.StderrPath} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read %s: %v", path, err)
		}
		if strings.Contains(string(data), "hunter2") {
			t.Errorf("credential material leaked into %s", path)
		}
	}
}

func TestCredentialRemovedAfterTaskFailure(t *testing.T) {
	baseDir := t.TempDir()
	env := &fakeEnv{exitCode: 1}
	runner := NewRunner(
		JobConfig{Name: "refresh", TaskCommand: []string{"false"}},
		secrets.StaticProvider{Blob: []byte("secret")},
		fakeFactory(env),
		WithBaseDir(baseDir),
	)

	inv, err := runner.Trigger(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if inv.Status != StatusFailed {
		t.Fatalf("expected failure, got %q", inv.Status)
	}

	if len(env.removed) != 1 || env.removed[0] != defaultCredentialFile {
		t.Errorf("expected credential file removal, got %v", env.removed)
	}
	if !env.closed {
		t.Error("environment must be torn down after failure")
	}
}

func TestTriggerIsIdempotentAcrossRepeats(t *testing.T) {
	baseDir := t.TempDir()
	runner := NewRunner(
		JobConfig{Name: "refresh", TaskCommand: []string{"sh", "-c", "echo ok"}},
		secrets.StaticProvider{Blob: []byte("secret")},
		localFactory(t),
		WithBaseDir(baseDir),
	)

	first, err := runner.Trigger(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("first Trigger failed: %v", err)
	}
	second, err := runner.Trigger(context.Background(), TriggerScheduled)
	if err != nil {
		t.Fatalf("second Trigger failed: %v", err)
	}

	if first.ID == second.ID {
		t.Error("repeated triggers must produce distinct invocations")
	}
	if first.Dir == second.Dir {
		t.Error("repeated triggers must not share a work dir")
	}
	for _, inv := range []*Invocation{first, second} {
		if inv.Status != StatusSucceeded {
			t.Errorf("invocation %s: expected success, got %q", inv.ID, inv.Status)
		}
	}
}

func TestGetAndListInvocations(t *testing.T) {
	baseDir := t.TempDir()
	runner := NewRunner(
		JobConfig{Name: "refresh", TaskCommand: []string{"true"}},
		secrets.StaticProvider{Blob: []byte("secret")},
		localFactory(t),
		WithBaseDir(baseDir),
	)

	var ids []string
	for i := 0; i < 3; i++ {
		inv, err := runner.Trigger(context.Background(), TriggerManual)
		if err != nil {
			t.Fatalf("Trigger failed: %v", err)
		}
		ids = append(ids, inv.ID)
	}

	got, err := runner.GetInvocation(context.Background(), ids[1])
	if err != nil {
		t.Fatalf("GetInvocation failed: %v", err)
	}
	if got.ID != ids[1] || got.Status != StatusSucceeded {
		t.Errorf("unexpected invocation: %+v", got)
	}

	if _, err := runner.GetInvocation(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown invocation")
	}

	all, err := runner.ListInvocations(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListInvocations failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 invocations, got %d", len(all))
	}

	failed := StatusFailed
	none, err := runner.ListInvocations(context.Background(), &failed)
	if err != nil {
		t.Fatalf("ListInvocations failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no failed invocations, got %d", len(none))
	}
}

func TestGetLogs(t *testing.T) {
	baseDir := t.TempDir()
	runner := NewRunner(
		JobConfig{Name: "refresh", TaskCommand: []string{"sh", "-c", "echo line one; echo line two"}},
		secrets.StaticProvider{Blob: []byte("secret")},
		localFactory(t),
		WithBaseDir(baseDir),
	)

	inv, err := runner.Trigger(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	rc, err := runner.GetLogs(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("GetLogs failed: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("failed to read logs: %v", err)
	}
	if !strings.Contains(string(data), "line two") {
		t.Errorf("unexpected log content: %q", string(data))
	}
}

func TestPhaseErrorKinds(t *testing.T) {
	base := errors.New("boom")
	err := NewPhaseError(FailureDependencyInstall, base)

	if KindOf(err) != FailureDependencyInstall {
		t.Errorf("expected kind %q, got %q", FailureDependencyInstall, KindOf(err))
	}
	if !IsKind(err, FailureDependencyInstall) {
		t.Error("IsKind should match the wrapped kind")
	}
	if !errors.Is(err, base) {
		t.Error("PhaseError must unwrap to the underlying error")
	}
	if KindOf(fmt.Errorf("plain")) != FailureUnknown {
		t.Error("unwrapped errors classify as unknown")
	}
	if NewPhaseError(FailureCheckout, nil) != nil {
		t.Error("NewPhaseError(nil) must return nil")
	}
}
