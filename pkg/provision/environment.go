// Package provision creates the ephemeral execution environments that
// invocations run in. An environment is provisioned fresh for every
// invocation, executes the phase commands (dependency install, task), and
// is discarded on terminal status. Three backends are supported: host
// processes, Docker containers, and Kubernetes pods.
package provision

import (
	"context"
	"fmt"
	"io"
	"os"
)

// SourceSpec identifies the task source to check out.
type SourceSpec struct {
	RepoURL string `json:"repo_url"`
	Ref     string `json:"ref,omitempty"` // branch name; empty means default branch
}

// ExecSpec describes one command to run inside the environment.
type ExecSpec struct {
	Command []string          // argv, never passed through a shell
	Env     map[string]string // extra environment variables
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// ExecResult reports the outcome of a completed command.
type ExecResult struct {
	ExitCode int
}

// Environment is one isolated execution context. Implementations must not
// share mutable state between instances: every invocation gets its own.
type Environment interface {
	// Checkout materializes the task source into the work dir.
	Checkout(ctx context.Context, src SourceSpec, progress io.Writer) error

	// Exec runs a command to completion inside the environment. A non-zero
	// exit status is reported via ExecResult, not as an error; errors mean
	// the command could not be run at all.
	Exec(ctx context.Context, spec ExecSpec) (*ExecResult, error)

	// WriteFile places a file inside the work dir (used for credential
	// materialization; mode 0600 expected for secrets).
	WriteFile(ctx context.Context, name string, data []byte, mode os.FileMode) error

	// RemoveFile deletes a file from the work dir.
	RemoveFile(ctx context.Context, name string) error

	// WorkDir returns the path of the work dir as seen by executed commands.
	WorkDir() string

	// Close tears the environment down and discards everything in it that
	// is not on the host (container, pod). Idempotent.
	Close(ctx context.Context) error
}

// Factory provisions a new environment rooted at the given host directory.
type Factory func(ctx context.Context, workDir string) (Environment, error)

// Config selects and configures the environment backend.
type Config struct {
	Backend string // "local", "docker", or "k8s"
	Docker  DockerConfig
	K8s     K8sConfig
}

// NewFactory returns a Factory for the configured backend.
func NewFactory(cfg Config) (Factory, error) {
	switch cfg.Backend {
	case "", "local":
		return func(_ context.Context, workDir string) (Environment, error) {
			return NewLocalEnvironment(workDir)
		}, nil
	case "docker":
		return func(ctx context.Context, workDir string) (Environment, error) {
			return NewDockerEnvironment(ctx, workDir, cfg.Docker)
		}, nil
	case "k8s":
		return func(ctx context.Context, workDir string) (Environment, error) {
			return NewK8sEnvironment(ctx, workDir, cfg.K8s)
		}, nil
	default:
		return nil, fmt.Errorf("provision: unknown backend %q", cfg.Backend)
	}
}
