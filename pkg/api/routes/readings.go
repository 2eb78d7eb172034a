package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hollandale/creekrun/pkg/api/schemas"
	"github.com/hollandale/creekrun/pkg/store"
	"github.com/hollandale/creekrun/pkg/store/models"
)

// GetLatestReadingInput defines the input for getting the latest reading
type GetLatestReadingInput struct {
	SiteCode string `path:"siteCode" doc:"USGS site code"`
}

// GetLatestReadingOutput is the response for the latest reading
type GetLatestReadingOutput struct {
	Body schemas.ReadingResponse
}

// ListReadingsInput defines the input for listing readings
type ListReadingsInput struct {
	SiteCode string `path:"siteCode" doc:"USGS site code"`
	Since    string `query:"since" doc:"RFC3339 lower bound on recorded_at" required:"false"`
}

// ListReadingsOutput is the response for listing readings
type ListReadingsOutput struct {
	Body struct {
		Readings []schemas.ReadingResponse `json:"readings" doc:"List of readings"`
	}
}

// RegisterReadings registers reading-related routes
func RegisterReadings(api huma.API, readings *store.Readings) {
	// Latest reading for a site
	huma.Register(api, huma.Operation{
		OperationID: "get-latest-reading",
		Method:      http.MethodGet,
		Path:        "/api/readings/{siteCode}/latest",
		Summary:     "Get latest reading",
		Description: "Get the most recent stored reading for a site",
		Tags:        []string{"Readings"},
	}, func(ctx context.Context, input *GetLatestReadingInput) (*GetLatestReadingOutput, error) {
		if readings == nil {
			return nil, huma.Error503ServiceUnavailable("store not configured")
		}

		reading, err := readings.Latest(ctx, input.SiteCode)
		if err != nil {
			return nil, huma.Error404NotFound("no readings for site")
		}

		return &GetLatestReadingOutput{Body: toReadingResponse(reading)}, nil
	})

	// Readings for a site since a time
	huma.Register(api, huma.Operation{
		OperationID: "list-readings",
		Method:      http.MethodGet,
		Path:        "/api/readings/{siteCode}",
		Summary:     "List readings",
		Description: "List stored readings for a site, oldest first",
		Tags:        []string{"Readings"},
	}, func(ctx context.Context, input *ListReadingsInput) (*ListReadingsOutput, error) {
		if readings == nil {
			return nil, huma.Error503ServiceUnavailable("store not configured")
		}

		since := time.Now().UTC().Add(-24 * time.Hour)
		if input.Since != "" {
			parsed, err := time.Parse(time.RFC3339, input.Since)
			if err != nil {
				return nil, huma.Error400BadRequest(fmt.Sprintf("invalid since timestamp: %v", err))
			}
			since = parsed
		}

		rows, err := readings.Since(ctx, input.SiteCode, since)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to list readings: %v", err))
		}

		resp := &ListReadingsOutput{}
		resp.Body.Readings = make([]schemas.ReadingResponse, 0, len(rows))
		for _, row := range rows {
			resp.Body.Readings = append(resp.Body.Readings, toReadingResponse(row))
		}
		return resp, nil
	})
}

func toReadingResponse(r *models.Reading) schemas.ReadingResponse {
	return schemas.ReadingResponse{
		SiteCode:     r.SiteCode,
		SiteName:     r.SiteName,
		RecordedAt:   r.RecordedAt.Format(time.RFC3339),
		DischargeCFS: r.Discharge,
		FetchedAt:    r.FetchedAt.Format(time.RFC3339),
	}
}
