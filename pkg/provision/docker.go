package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// containerWorkDir is where the invocation work dir is mounted inside
// every phase container.
const containerWorkDir = "/creekrun/work"

// DockerConfig configures the docker backend.
type DockerConfig struct {
	Image       string // image used for all phase commands
	NetworkMode string // docker network mode, empty means default
	PullImage   bool   // pull the image before the first command
}

// DockerEnvironment runs each phase command in its own container. All
// containers of one invocation bind-mount the same host work dir, so the
// checkout, installed dependencies, and credential file are shared between
// phases; the containers themselves are removed as soon as they exit.
type DockerEnvironment struct {
	cli     *client.Client
	config  DockerConfig
	hostDir string
}

// NewDockerEnvironment connects to the Docker daemon, optionally pulls the
// configured image, and prepares the host work dir.
func NewDockerEnvironment(ctx context.Context, workDir string, cfg DockerConfig) (*DockerEnvironment, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("docker backend requires an image")
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}

	if cfg.PullImage {
		rc, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
		if err != nil {
			cli.Close()
			return nil, fmt.Errorf("pulling image %s: %w", cfg.Image, err)
		}
		// The pull stream must be drained for the pull to complete
		_, _ = io.Copy(io.Discard, rc)
		rc.Close()
	}

	return &DockerEnvironment{cli: cli, config: cfg, hostDir: workDir}, nil
}

// Checkout clones on the host; the clone is visible in-container through
// the bind mount.
func (e *DockerEnvironment) Checkout(ctx context.Context, src SourceSpec, progress io.Writer) error {
	return hostCheckout(ctx, e.hostDir, src, progress)
}

func (e *DockerEnvironment) Exec(ctx context.Context, spec ExecSpec) (*ExecResult, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	created, err := e.cli.ContainerCreate(ctx,
		&container.Config{
			Image:      e.config.Image,
			Cmd:        spec.Command,
			Env:        env,
			WorkingDir: containerWorkDir,
		},
		&container.HostConfig{
			Binds:       []string{e.hostDir + ":" + containerWorkDir},
			NetworkMode: container.NetworkMode(e.config.NetworkMode),
		},
		nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}

	// Always remove the phase container, even on error paths
	defer func() {
		removeCtx := context.WithoutCancel(ctx)
		_ = e.cli.ContainerRemove(removeCtx, created.ID, container.RemoveOptions{Force: true})
	}()

	if err := e.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	statusCh, errCh := e.cli.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)

	var exitCode int
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("waiting for container: %w", err)
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("container error: %s", status.Error.Message)
		}
		exitCode = int(status.StatusCode)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if spec.Stdout != nil || spec.Stderr != nil {
		logs, err := e.cli.ContainerLogs(ctx, created.ID, container.LogsOptions{
			ShowStdout: true,
			ShowStderr: true,
		})
		if err == nil {
			stdout, stderr := spec.Stdout, spec.Stderr
			if stdout == nil {
				stdout = io.Discard
			}
			if stderr == nil {
				stderr = io.Discard
			}
			_, _ = stdcopy.StdCopy(stdout, stderr, logs)
			logs.Close()
		}
	}

	return &ExecResult{ExitCode: exitCode}, nil
}

// WriteFile writes on the host side of the bind mount.
func (e *DockerEnvironment) WriteFile(_ context.Context, name string, data []byte, mode os.FileMode) error {
	return os.WriteFile(filepath.Join(e.hostDir, name), data, mode)
}

func (e *DockerEnvironment) RemoveFile(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(e.hostDir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// WorkDir returns the in-container mount path, which is what executed
// commands see.
func (e *DockerEnvironment) WorkDir() string {
	return containerWorkDir
}

func (e *DockerEnvironment) Close(_ context.Context) error {
	return e.cli.Close()
}

// Ensure DockerEnvironment implements Environment.
var _ Environment = (*DockerEnvironment)(nil)
