package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// HealthBody represents the health check response body
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Service status"`
	Uptime string `json:"uptime" example:"1h5m0s" doc:"Time since the service started"`
}

// RegisterHealthEndpoint registers the service health endpoint.
func RegisterHealthEndpoint(api huma.API, pathPrefix string, startedAt time.Time) {
	huma.Register(api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/health",
		Summary:     "Health check",
		Description: "Reports service liveness and uptime.",
		Tags:        []string{"health"},
	}, func(_ context.Context, _ *struct{}) (*Response[HealthBody], error) {
		return &Response[HealthBody]{
			Body: HealthBody{
				Status: "ok",
				Uptime: time.Since(startedAt).Round(time.Second).String(),
			},
		}, nil
	})
}
