package schemas

// InvocationArtifact represents a retained output object
type InvocationArtifact struct {
	Key         string `json:"key" doc:"Storage key"`
	Filename    string `json:"filename" doc:"Original filename"`
	Size        int64  `json:"size" doc:"Size in bytes"`
	ContentType string `json:"content_type" doc:"MIME type"`
	URL         string `json:"url,omitempty" doc:"Presigned download URL"`
}

// InvocationResponse represents an invocation in API responses
type InvocationResponse struct {
	ID          string            `json:"id" doc:"Invocation ID"`
	Job         string            `json:"job" doc:"Job name"`
	Trigger     string            `json:"trigger" doc:"What started the invocation (scheduled, manual)"`
	Status      string            `json:"status" doc:"Lifecycle status"`
	Phase       string            `json:"phase,omitempty" doc:"Current or last-reached phase"`
	FailureKind string            `json:"failure_kind,omitempty" doc:"Failure classification when status is failed"`
	Error       string            `json:"error,omitempty" doc:"Failure detail"`
	ExitCode    *int              `json:"exit_code,omitempty" doc:"Task exit code"`
	CreatedAt   string            `json:"created_at" doc:"Creation timestamp"`
	StartedAt   *string           `json:"started_at,omitempty" doc:"Task launch timestamp"`
	FinishedAt  *string           `json:"finished_at,omitempty" doc:"Terminal-status timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty" doc:"Environment snapshot"`

	Artifacts []InvocationArtifact `json:"artifacts,omitempty" doc:"Retained output objects"`
}
