package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/masumi-network/registry-service/internal/registry/database"
	"github.com/masumi-network/registry-service/internal/registry/models"
	"github.com/masumi-network/registry-service/internal/registry/service"
)

// QueryEntriesInput represents the input for querying registry entries.
type QueryEntriesInput struct {
	CapabilityName     string `query:"capabilityName" json:"capabilityName,omitempty" doc:"Filter by capability name" required:"false"`
	CapabilityVersion  string `query:"capabilityVersion" json:"capabilityVersion,omitempty" doc:"Filter by capability version" required:"false"`
	Status             string `query:"status" json:"status,omitempty" doc:"Filter by entry status" required:"false" enum:"online,offline,invalid,deregistered"`
	PolicyID           string `query:"policyId" json:"policyId,omitempty" doc:"Filter by policy id prefix of the asset identifier" required:"false"`
	Identifier         string `query:"identifier" json:"identifier,omitempty" doc:"Filter by exact asset identifier" required:"false"`
	Tag                string `query:"tag" json:"tag,omitempty" doc:"Filter by tag" required:"false"`
	Cursor             string `query:"cursor" json:"cursor,omitempty" doc:"Pagination cursor (entry id)" required:"false"`
	Limit              int    `query:"limit" json:"limit,omitempty" doc:"Number of items per page" default:"10" minimum:"1" maximum:"50"`
	MinRegistryDate    string `query:"minRegistryDate" json:"minRegistryDate,omitempty" doc:"Refresh registry data at least this fresh before querying (RFC3339)" required:"false"`
	MinHealthCheckDate string `query:"minHealthCheckDate" json:"minHealthCheckDate,omitempty" doc:"Re-verify entries whose last health check predates this (RFC3339)" required:"false"`
}

// EntryListBody is one page of registry entries.
type EntryListBody struct {
	Entries  []models.RegistryEntry `json:"entries"`
	Metadata Metadata               `json:"metadata"`
}

// EntryDetailInput addresses one entry by asset identifier.
type EntryDetailInput struct {
	Identifier string `path:"identifier" json:"identifier" doc:"Asset identifier (policy id + asset name)"`
}

// RegisterEntriesEndpoints registers the registry-entry endpoints.
func RegisterEntriesEndpoints(api huma.API, pathPrefix string, registry service.RegistryService) {
	tags := []string{"registry-entry"}

	huma.Register(api, huma.Operation{
		OperationID: "query-registry-entries",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/registry-entry",
		Summary:     "Query registry entries",
		Description: "Paginated, filtered query over the agent registry with optional freshness guarantees",
		Tags:        tags,
	}, func(ctx context.Context, input *QueryEntriesInput) (*Response[EntryListBody], error) {
		query := service.EntryQuery{
			Cursor: input.Cursor,
			Limit:  input.Limit,
		}
		if input.CapabilityName != "" {
			query.CapabilityName = &input.CapabilityName
		}
		if input.CapabilityVersion != "" {
			query.CapabilityVersion = &input.CapabilityVersion
		}
		if input.Status != "" {
			query.Statuses = []models.Status{models.Status(input.Status)}
		}
		if input.PolicyID != "" {
			query.PolicyID = &input.PolicyID
		}
		if input.Identifier != "" {
			query.Identifier = &input.Identifier
		}
		if input.Tag != "" {
			query.Tag = &input.Tag
		}
		if input.MinRegistryDate != "" {
			parsed, err := time.Parse(time.RFC3339, input.MinRegistryDate)
			if err != nil {
				return nil, huma.Error400BadRequest("Invalid minRegistryDate format: expected RFC3339 timestamp")
			}
			query.MinRegistryDate = parsed
		}
		if input.MinHealthCheckDate != "" {
			parsed, err := time.Parse(time.RFC3339, input.MinHealthCheckDate)
			if err != nil {
				return nil, huma.Error400BadRequest("Invalid minHealthCheckDate format: expected RFC3339 timestamp")
			}
			query.MinHealthCheckDate = parsed
		}

		page, err := registry.QueryEntries(ctx, query)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to query registry entries", err)
		}
		return &Response[EntryListBody]{
			Body: EntryListBody{
				Entries: page.Entries,
				Metadata: Metadata{
					NextCursor: page.NextCursor,
					Count:      len(page.Entries),
				},
			},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-registry-entry",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/registry-entry/{identifier}",
		Summary:     "Get registry entry",
		Description: "Get one registry entry by its asset identifier",
		Tags:        tags,
	}, func(ctx context.Context, input *EntryDetailInput) (*Response[models.RegistryEntry], error) {
		entry, err := registry.GetEntryByIdentifier(ctx, input.Identifier)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, huma.Error404NotFound("Registry entry not found")
			}
			return nil, huma.Error500InternalServerError("Failed to get registry entry", err)
		}
		return &Response[models.RegistryEntry]{Body: *entry}, nil
	})
}
