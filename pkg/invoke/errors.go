package invoke

import (
	"errors"
	"fmt"
)

// FailureKind is a stable failure category callers can switch on. Every
// kind maps to the phase that produced it, except the task pair:
// task_execution means the task ran and exited non-zero, task_crash means
// it could not start at all.
type FailureKind string

const (
	FailureUnknown           FailureKind = "unknown"
	FailureCheckout          FailureKind = "checkout"
	FailureEnvironmentSetup  FailureKind = "environment_setup"
	FailureDependencyInstall FailureKind = "dependency_install"
	FailureCredential        FailureKind = "credential_materialization"
	FailureTaskExecution     FailureKind = "task_execution"
	FailureTaskCrash         FailureKind = "task_crash"
)

// PhaseError is a value type that carries a FailureKind plus the
// underlying error.
type PhaseError struct {
	Kind FailureKind
	err  error
}

func (e *PhaseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

func (e *PhaseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// NewPhaseError wraps an error with the provided kind. If err is nil a nil
// is returned.
func NewPhaseError(kind FailureKind, err error) error {
	if err == nil {
		return nil
	}
	return &PhaseError{Kind: kind, err: err}
}

// KindOf extracts the failure kind from an error chain, or FailureUnknown.
func KindOf(err error) FailureKind {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureUnknown
}

// IsKind helps callers compare kinds without type assertions.
func IsKind(err error, kind FailureKind) bool {
	return err != nil && KindOf(err) == kind
}
