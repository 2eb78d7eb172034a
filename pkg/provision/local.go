package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// LocalEnvironment executes phase commands as host processes rooted at the
// invocation work dir. It is the default backend and the one exercised by
// the test suite.
type LocalEnvironment struct {
	workDir string
}

// NewLocalEnvironment creates the work dir if needed and returns an
// environment rooted at it.
func NewLocalEnvironment(workDir string) (*LocalEnvironment, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	return &LocalEnvironment{workDir: workDir}, nil
}

func (e *LocalEnvironment) Checkout(ctx context.Context, src SourceSpec, progress io.Writer) error {
	return hostCheckout(ctx, e.workDir, src, progress)
}

func (e *LocalEnvironment) Exec(ctx context.Context, spec ExecSpec) (*ExecResult, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = e.workDir
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	// A cancelled ctx kills the process, which surfaces as an ExitError
	// with a -1 code; callers check ctx.Err() to tell that apart from a
	// real task failure.
	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &ExecResult{ExitCode: exitErr.ExitCode()}, nil
		}
		// Could not start at all (missing binary, permission)
		return nil, err
	}

	return &ExecResult{ExitCode: 0}, nil
}

func (e *LocalEnvironment) WriteFile(_ context.Context, name string, data []byte, mode os.FileMode) error {
	return os.WriteFile(filepath.Join(e.workDir, name), data, mode)
}

func (e *LocalEnvironment) RemoveFile(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(e.workDir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (e *LocalEnvironment) WorkDir() string {
	return e.workDir
}

// Close is a no-op: the work dir is retained on the host so logs and the
// invocation record stay available after the run.
func (e *LocalEnvironment) Close(_ context.Context) error {
	return nil
}

// Ensure LocalEnvironment implements Environment.
var _ Environment = (*LocalEnvironment)(nil)
