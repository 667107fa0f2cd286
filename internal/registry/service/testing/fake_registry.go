// Package testing provides a configurable fake of the registry service for
// handler tests.
package testing

import (
	"context"

	"github.com/masumi-network/registry-service/internal/registry/database"
	"github.com/masumi-network/registry-service/internal/registry/models"
	"github.com/masumi-network/registry-service/internal/registry/service"
)

// FakeRegistry implements service.RegistryService with overridable funcs.
// Unset funcs return empty results.
type FakeRegistry struct {
	QueryEntriesFn         func(ctx context.Context, query service.EntryQuery) (*service.EntryPage, error)
	GetEntryByIdentifierFn func(ctx context.Context, assetID string) (*models.RegistryEntry, error)
	ListCapabilitiesFn     func(ctx context.Context, cursor string, limit int) ([]models.Capability, error)
	ListSourcesFn          func(ctx context.Context, cursor string, limit int) ([]models.RegistrySource, error)
	AddSourceFn            func(ctx context.Context, source *models.RegistrySource) error
	UpdateSourceFn         func(ctx context.Context, id string, note *string, rpcCredential *string) (*models.RegistrySource, error)
	DeleteSourceFn         func(ctx context.Context, id string) error
}

// NewFakeRegistry builds a FakeRegistry with no behavior configured.
func NewFakeRegistry() *FakeRegistry {
	return &FakeRegistry{}
}

var _ service.RegistryService = (*FakeRegistry)(nil)

func (f *FakeRegistry) QueryEntries(ctx context.Context, query service.EntryQuery) (*service.EntryPage, error) {
	if f.QueryEntriesFn != nil {
		return f.QueryEntriesFn(ctx, query)
	}
	return &service.EntryPage{Entries: []models.RegistryEntry{}}, nil
}

func (f *FakeRegistry) GetEntryByIdentifier(ctx context.Context, assetID string) (*models.RegistryEntry, error) {
	if f.GetEntryByIdentifierFn != nil {
		return f.GetEntryByIdentifierFn(ctx, assetID)
	}
	return nil, database.ErrNotFound
}

func (f *FakeRegistry) ListCapabilities(ctx context.Context, cursor string, limit int) ([]models.Capability, error) {
	if f.ListCapabilitiesFn != nil {
		return f.ListCapabilitiesFn(ctx, cursor, limit)
	}
	return []models.Capability{}, nil
}

func (f *FakeRegistry) ListSources(ctx context.Context, cursor string, limit int) ([]models.RegistrySource, error) {
	if f.ListSourcesFn != nil {
		return f.ListSourcesFn(ctx, cursor, limit)
	}
	return []models.RegistrySource{}, nil
}

func (f *FakeRegistry) AddSource(ctx context.Context, source *models.RegistrySource) error {
	if f.AddSourceFn != nil {
		return f.AddSourceFn(ctx, source)
	}
	return nil
}

func (f *FakeRegistry) UpdateSource(ctx context.Context, id string, note *string, rpcCredential *string) (*models.RegistrySource, error) {
	if f.UpdateSourceFn != nil {
		return f.UpdateSourceFn(ctx, id, note, rpcCredential)
	}
	return nil, database.ErrNotFound
}

func (f *FakeRegistry) DeleteSource(ctx context.Context, id string) error {
	if f.DeleteSourceFn != nil {
		return f.DeleteSourceFn(ctx, id)
	}
	return nil
}
