package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/masumi-network/registry-service/internal/registry/models"
	"github.com/masumi-network/registry-service/internal/registry/service"
)

// ListCapabilitiesInput represents the input for listing capabilities.
type ListCapabilitiesInput struct {
	Cursor string `query:"cursor" json:"cursor,omitempty" doc:"Pagination cursor (capability id)" required:"false"`
	Limit  int    `query:"limit" json:"limit,omitempty" doc:"Number of items per page" default:"10" minimum:"1" maximum:"50"`
}

// CapabilityListBody is one page of capabilities.
type CapabilityListBody struct {
	Capabilities []models.Capability `json:"capabilities"`
	Metadata     Metadata            `json:"metadata"`
}

// RegisterCapabilitiesEndpoints registers the capability listing endpoint.
func RegisterCapabilitiesEndpoints(api huma.API, pathPrefix string, registry service.RegistryService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-capabilities",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/capability",
		Summary:     "List capabilities",
		Description: "Lists capabilities claimed by currently online registry entries.",
		Tags:        []string{"capability"},
	}, func(ctx context.Context, input *ListCapabilitiesInput) (*Response[CapabilityListBody], error) {
		capabilities, err := registry.ListCapabilities(ctx, input.Cursor, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list capabilities", err)
		}
		next := ""
		if len(capabilities) == input.Limit && len(capabilities) > 0 {
			next = capabilities[len(capabilities)-1].ID
		}
		return &Response[CapabilityListBody]{
			Body: CapabilityListBody{
				Capabilities: capabilities,
				Metadata:     Metadata{NextCursor: next, Count: len(capabilities)},
			},
		}, nil
	})
}
