package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/masumi-network/registry-service/internal/registry/database"
	"github.com/masumi-network/registry-service/internal/registry/models"
	"github.com/masumi-network/registry-service/internal/registry/service"
)

// ListSourcesInput represents the input for listing registry sources.
type ListSourcesInput struct {
	Cursor string `query:"cursor" json:"cursor,omitempty" doc:"Pagination cursor (source id)" required:"false"`
	Limit  int    `query:"limit" json:"limit,omitempty" doc:"Number of items per page" default:"10" minimum:"1" maximum:"50"`
}

// SourceListBody is one page of registry sources.
type SourceListBody struct {
	Sources  []models.RegistrySource `json:"sources"`
	Metadata Metadata                `json:"metadata"`
}

// AddSourceInput represents the input for registering a new source.
type AddSourceInput struct {
	Body struct {
		Network       models.Network `json:"network" doc:"Cardano network" enum:"mainnet,preprod,preview"`
		PolicyID      string         `json:"policyId" doc:"Policy id to track" minLength:"1"`
		RPCCredential string         `json:"rpcCredential" doc:"Indexer RPC credential" minLength:"1"`
		Note          string         `json:"note,omitempty" doc:"Free-form note" required:"false"`
	}
}

// UpdateSourceInput patches a source.
type UpdateSourceInput struct {
	ID   string `path:"id" json:"id" doc:"Source id"`
	Body struct {
		Note          *string `json:"note,omitempty" doc:"Free-form note" required:"false"`
		RPCCredential *string `json:"rpcCredential,omitempty" doc:"Indexer RPC credential" required:"false"`
	}
}

// SourceDetailInput addresses one source by id.
type SourceDetailInput struct {
	ID string `path:"id" json:"id" doc:"Source id"`
}

// RegisterSourcesEndpoints registers the registry-source admin endpoints.
func RegisterSourcesEndpoints(api huma.API, pathPrefix string, registry service.RegistryService) {
	tags := []string{"registry-source", "admin"}

	huma.Register(api, huma.Operation{
		OperationID: "list-registry-sources",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/registry-source",
		Summary:     "List registry sources",
		Tags:        tags,
	}, func(ctx context.Context, input *ListSourcesInput) (*Response[SourceListBody], error) {
		sources, err := registry.ListSources(ctx, input.Cursor, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list registry sources", err)
		}
		next := ""
		if len(sources) == input.Limit && len(sources) > 0 {
			next = sources[len(sources)-1].ID
		}
		return &Response[SourceListBody]{
			Body: SourceListBody{
				Sources:  sources,
				Metadata: Metadata{NextCursor: next, Count: len(sources)},
			},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-registry-source",
		Method:        http.MethodPost,
		Path:          pathPrefix + "/registry-source",
		Summary:       "Add registry source",
		DefaultStatus: http.StatusCreated,
		Tags:          tags,
	}, func(ctx context.Context, input *AddSourceInput) (*Response[models.RegistrySource], error) {
		source := &models.RegistrySource{
			Scope:         models.ScopeChainAssetV1,
			Network:       input.Body.Network,
			PolicyID:      input.Body.PolicyID,
			RPCCredential: input.Body.RPCCredential,
		}
		if input.Body.Note != "" {
			source.Note = &input.Body.Note
		}
		if err := registry.AddSource(ctx, source); err != nil {
			if errors.Is(err, database.ErrAlreadyExists) {
				return nil, huma.Error409Conflict("A source for this policy already exists")
			}
			if errors.Is(err, database.ErrInvalidInput) {
				return nil, huma.Error400BadRequest(err.Error())
			}
			return nil, huma.Error500InternalServerError("Failed to add registry source", err)
		}
		return &Response[models.RegistrySource]{Body: *source}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-registry-source",
		Method:      http.MethodPatch,
		Path:        pathPrefix + "/registry-source/{id}",
		Summary:     "Update registry source",
		Tags:        tags,
	}, func(ctx context.Context, input *UpdateSourceInput) (*Response[models.RegistrySource], error) {
		source, err := registry.UpdateSource(ctx, input.ID, input.Body.Note, input.Body.RPCCredential)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, huma.Error404NotFound("Registry source not found")
			}
			return nil, huma.Error500InternalServerError("Failed to update registry source", err)
		}
		return &Response[models.RegistrySource]{Body: *source}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-registry-source",
		Method:        http.MethodDelete,
		Path:          pathPrefix + "/registry-source/{id}",
		Summary:       "Delete registry source",
		DefaultStatus: http.StatusNoContent,
		Tags:          tags,
	}, func(ctx context.Context, input *SourceDetailInput) (*struct{}, error) {
		if err := registry.DeleteSource(ctx, input.ID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, huma.Error404NotFound("Registry source not found")
			}
			return nil, huma.Error500InternalServerError("Failed to delete registry source", err)
		}
		return &struct{}{}, nil
	})
}
