package invoke

import (
	"context"
	"io"

	"github.com/hollandale/creekrun/pkg/provision"
)

// TaskInput carries what the task is given: the environment variables
// (including the credential variable) and the writers its output streams
// are captured to. The task contract is deliberately narrow: it receives
// no arguments and signals failure solely through its exit status.
type TaskInput struct {
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
}

// Task is the external task behind a narrow interface, keeping the runner
// independent of what the task actually does. Implementations return the
// task's exit status; an error means the task could not be started.
type Task interface {
	Run(ctx context.Context, env provision.Environment, input TaskInput) (int, error)
}

// ExecTask runs a command inside the invocation's environment. This is the
// production implementation; tests substitute fakes.
type ExecTask struct {
	Command []string
}

func (t ExecTask) Run(ctx context.Context, env provision.Environment, input TaskInput) (int, error) {
	res, err := env.Exec(ctx, provision.ExecSpec{
		Command: t.Command,
		Env:     input.Env,
		Stdout:  input.Stdout,
		Stderr:  input.Stderr,
	})
	if err != nil {
		return 0, err
	}
	return res.ExitCode, nil
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(ctx context.Context, env provision.Environment, input TaskInput) (int, error)

func (f TaskFunc) Run(ctx context.Context, env provision.Environment, input TaskInput) (int, error) {
	return f(ctx, env, input)
}
