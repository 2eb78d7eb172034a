package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hollandale/creekrun/pkg/api/schemas"
	"github.com/hollandale/creekrun/pkg/api/services/invocations"
	"github.com/hollandale/creekrun/pkg/artifact"
	"github.com/hollandale/creekrun/pkg/invoke"
)

// TriggerInvocationOutput is the response for triggering an invocation
type TriggerInvocationOutput struct {
	Body schemas.InvocationResponse
}

// GetInvocationInput defines the input for getting an invocation
type GetInvocationInput struct {
	InvocationID string `path:"invocationId" doc:"Invocation ID"`
}

// GetInvocationOutput is the response for getting an invocation
type GetInvocationOutput struct {
	Body schemas.InvocationResponse
}

// ListInvocationsInput defines the input for listing invocations
type ListInvocationsInput struct {
	Status string `query:"status" doc:"Filter by status" required:"false"`
}

// ListInvocationsOutput is the response for listing invocations
type ListInvocationsOutput struct {
	Body struct {
		Invocations []schemas.InvocationResponse `json:"invocations" doc:"List of invocations"`
	}
}

// GetInvocationLogsOutput is the response for getting invocation logs
type GetInvocationLogsOutput struct {
	Body struct {
		Logs string `json:"logs" doc:"Captured stdout"`
	}
}

// ListInvocationArtifactsOutput is the response for listing artifacts
type ListInvocationArtifactsOutput struct {
	Body struct {
		Artifacts []schemas.InvocationArtifact `json:"artifacts" doc:"List of artifacts"`
	}
}

// GetArtifactURLInput defines the input for getting an artifact presigned URL
type GetArtifactURLInput struct {
	InvocationID string `path:"invocationId" doc:"Invocation ID"`
	Filename     string `path:"filename" doc:"Artifact filename"`
}

// GetArtifactURLOutput is the response for getting an artifact presigned URL
type GetArtifactURLOutput struct {
	Body struct {
		URL string `json:"url" doc:"Presigned download URL"`
	}
}

// RegisterInvocations registers invocation-related routes
func RegisterInvocations(api huma.API, svc *invocations.Service, s3Store artifact.Store) {
	// Trigger invocation
	huma.Register(api, huma.Operation{
		OperationID: "trigger-invocation",
		Method:      http.MethodPost,
		Path:        "/api/invocations",
		Summary:     "Trigger an invocation",
		Description: "Manually trigger one invocation of the refresh job",
		Tags:        []string{"Invocations"},
	}, func(ctx context.Context, _ *struct{}) (*TriggerInvocationOutput, error) {
		if svc == nil {
			return nil, huma.Error503ServiceUnavailable("runner not configured")
		}

		inv, err := svc.Trigger(ctx, invoke.TriggerManual)
		if err != nil {
			if errors.Is(err, invocations.ErrBusy) {
				return nil, huma.Error409Conflict("an invocation is already in flight")
			}
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to trigger invocation: %v", err))
		}

		return &TriggerInvocationOutput{Body: toInvocationResponse(inv)}, nil
	})

	// List invocations
	huma.Register(api, huma.Operation{
		OperationID: "list-invocations",
		Method:      http.MethodGet,
		Path:        "/api/invocations",
		Summary:     "List invocations",
		Description: "Get a list of all invocations",
		Tags:        []string{"Invocations"},
	}, func(ctx context.Context, input *ListInvocationsInput) (*ListInvocationsOutput, error) {
		resp := &ListInvocationsOutput{}
		resp.Body.Invocations = []schemas.InvocationResponse{}
		if svc == nil {
			return resp, nil
		}

		var status *invoke.Status
		if input.Status != "" {
			s := invoke.Status(input.Status)
			status = &s
		}

		invs, err := svc.List(ctx, status)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to list invocations: %v", err))
		}
		for _, inv := range invs {
			resp.Body.Invocations = append(resp.Body.Invocations, toInvocationResponse(inv))
		}
		return resp, nil
	})

	// Get invocation
	huma.Register(api, huma.Operation{
		OperationID: "get-invocation",
		Method:      http.MethodGet,
		Path:        "/api/invocations/{invocationId}",
		Summary:     "Get invocation details",
		Description: "Get details of a specific invocation",
		Tags:        []string{"Invocations"},
	}, func(ctx context.Context, input *GetInvocationInput) (*GetInvocationOutput, error) {
		if svc == nil {
			return nil, huma.Error503ServiceUnavailable("runner not configured")
		}

		inv, err := svc.Get(ctx, input.InvocationID)
		if err != nil {
			return nil, huma.Error404NotFound("invocation not found")
		}

		return &GetInvocationOutput{Body: toInvocationResponse(inv)}, nil
	})

	// Get invocation logs
	huma.Register(api, huma.Operation{
		OperationID: "get-invocation-logs",
		Method:      http.MethodGet,
		Path:        "/api/invocations/{invocationId}/logs",
		Summary:     "Get invocation logs",
		Description: "Get captured stdout from an invocation",
		Tags:        []string{"Invocations"},
	}, func(ctx context.Context, input *GetInvocationInput) (*GetInvocationLogsOutput, error) {
		if svc == nil {
			return nil, huma.Error503ServiceUnavailable("runner not configured")
		}

		reader, err := svc.Logs(ctx, input.InvocationID)
		if err != nil {
			return nil, huma.Error404NotFound("invocation not found")
		}
		defer reader.Close()

		logs, err := io.ReadAll(reader)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to read logs: %v", err))
		}

		resp := &GetInvocationLogsOutput{}
		resp.Body.Logs = string(logs)
		return resp, nil
	})

	// List invocation artifacts
	huma.Register(api, huma.Operation{
		OperationID: "list-invocation-artifacts",
		Method:      http.MethodGet,
		Path:        "/api/invocations/{invocationId}/artifacts",
		Summary:     "List invocation artifacts",
		Description: "List retained output objects for an invocation",
		Tags:        []string{"Invocations"},
	}, func(ctx context.Context, input *GetInvocationInput) (*ListInvocationArtifactsOutput, error) {
		if s3Store == nil {
			return nil, huma.Error501NotImplemented("artifact storage not configured")
		}

		prefix := artifact.InvocationPrefix(input.InvocationID)
		objects, err := s3Store.List(ctx, prefix)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to list artifacts: %v", err))
		}

		artifacts := make([]schemas.InvocationArtifact, 0, len(objects))
		for _, obj := range objects {
			artifacts = append(artifacts, schemas.InvocationArtifact{
				Key:         obj.Key,
				Filename:    path.Base(obj.Key),
				Size:        obj.Size,
				ContentType: obj.ContentType,
			})
		}

		resp := &ListInvocationArtifactsOutput{}
		resp.Body.Artifacts = artifacts
		return resp, nil
	})

	// Get artifact download URL
	huma.Register(api, huma.Operation{
		OperationID: "get-artifact-url",
		Method:      http.MethodGet,
		Path:        "/api/invocations/{invocationId}/artifacts/{filename}/url",
		Summary:     "Get artifact download URL",
		Description: "Get a presigned URL to download an artifact",
		Tags:        []string{"Invocations"},
	}, func(ctx context.Context, input *GetArtifactURLInput) (*GetArtifactURLOutput, error) {
		if s3Store == nil {
			return nil, huma.Error501NotImplemented("artifact storage not configured")
		}

		key := artifact.InvocationKey(input.InvocationID, input.Filename)
		url, err := s3Store.GetPresignedURL(ctx, key, time.Hour)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to get presigned URL: %v", err))
		}

		resp := &GetArtifactURLOutput{}
		resp.Body.URL = url
		return resp, nil
	})
}

// toInvocationResponse converts an invoke.Invocation to a schemas.InvocationResponse
func toInvocationResponse(inv *invoke.Invocation) schemas.InvocationResponse {
	resp := schemas.InvocationResponse{
		ID:          inv.ID,
		Job:         inv.Job,
		Trigger:     string(inv.Trigger),
		Status:      string(inv.Status),
		Phase:       string(inv.Phase),
		FailureKind: string(inv.FailureKind),
		Error:       inv.Error,
		ExitCode:    inv.ExitCode,
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
		Metadata:    inv.Metadata,
	}

	if inv.StartedAt != nil {
		startedAt := inv.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &startedAt
	}

	if inv.FinishedAt != nil {
		finishedAt := inv.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &finishedAt
	}

	for _, a := range inv.Artifacts {
		resp.Artifacts = append(resp.Artifacts, schemas.InvocationArtifact{
			Key:         a.Key,
			Filename:    a.Filename,
			Size:        a.Size,
			ContentType: a.ContentType,
			URL:         a.URL,
		})
	}

	return resp
}
