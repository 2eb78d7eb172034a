// Package invoke implements the job runner core: one Trigger call takes an
// invocation through checkout, environment setup, dependency install,
// credential materialization, and task execution, strictly in that order,
// and reports exactly one terminal status. Failures are classified by the
// phase that produced them and never retried at this layer.
package invoke

import (
	"time"

	"github.com/hollandale/creekrun/pkg/provision"
)

// Trigger is the reason an invocation was started.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Status represents the lifecycle state of an invocation.
type Status string

const (
	StatusPending      Status = "pending"
	StatusProvisioning Status = "provisioning"
	StatusRunning      Status = "running"
	StatusSucceeded    Status = "succeeded"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Phase names the provisioning/execution step an invocation is in. The
// phases run strictly sequentially; each depends on the side effects of
// the previous one.
type Phase string

const (
	PhaseEnvironmentSetup Phase = "environment_setup"
	PhaseCheckout         Phase = "checkout"
	PhaseInstall          Phase = "dependency_install"
	PhaseCredential       Phase = "credential_materialization"
	PhaseTask             Phase = "task_execution"
)

// JobConfig defines the job an invocation executes.
type JobConfig struct {
	Name           string               // job name, also the lease name
	Source         provision.SourceSpec // task source to check out; empty RepoURL skips checkout
	SetupCommand   []string             // optional interpreter pin check (e.g. python3 --version)
	InstallCommand []string             // optional dependency install (e.g. pip install -r requirements.txt)
	TaskCommand    []string             // the external task; invoked with no extra arguments
	Env            map[string]string    // extra environment for all phase commands
	CredentialFile string               // filename inside the work dir, default "credentials.json"
	CredentialEnv  string               // env var carrying the blob, default "CREEKRUN_CREDENTIALS"
}

// InvocationArtifact references a retained output object.
type InvocationArtifact struct {
	Key         string `json:"key"`           // storage key
	Filename    string `json:"filename"`      // Original filename
	Size        int64  `json:"size"`          // Size in bytes
	ContentType string `json:"content_type"`  // MIME type
	URL         string `json:"url,omitempty"` // Presigned download URL
}

// Invocation represents one run of the job, from trigger to terminal
// status. It is persisted as invocation.json in its own directory; the
// directory also holds the captured stdout/stderr streams.
type Invocation struct {
	ID          string            `json:"id"`
	Job         string            `json:"job,omitempty"`
	Trigger     Trigger           `json:"trigger"`
	Status      Status            `json:"status"`
	Phase       Phase             `json:"phase,omitempty"`        // current or last-reached phase
	FailureKind FailureKind       `json:"failure_kind,omitempty"` // set when Status is failed
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`  // task launch time
	FinishedAt  *time.Time        `json:"finished_at,omitempty"` // terminal-status time
	ExitCode    *int              `json:"exit_code,omitempty"`
	Dir         string            `json:"dir"`
	LogsPath    string            `json:"logs_path"`
	StderrPath  string            `json:"stderr_path"`
	Metadata    map[string]string `json:"metadata,omitempty"` // environment snapshot (backend, image, commands)

	Artifacts []InvocationArtifact `json:"artifacts,omitempty"`
}
