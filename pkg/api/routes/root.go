package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hollandale/creekrun/pkg/api/services"
)

// HealthOutput is the response for the health check
type HealthOutput struct {
	Body struct {
		Status string `json:"status" doc:"Service status"`
	}
}

func RegisterAPI(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, func(_ context.Context, _ *struct{}) (*HealthOutput, error) {
		resp := &HealthOutput{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	if svcs == nil {
		RegisterInvocations(api, nil, nil)
		RegisterReadings(api, nil)
		return
	}

	RegisterInvocations(api, svcs.Invocations, svcs.S3)
	RegisterReadings(api, svcs.Readings)
}
