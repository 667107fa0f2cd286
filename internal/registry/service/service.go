// Package service exposes the registry to callers: paginated, filtered
// queries with optional freshness guarantees, and source administration.
package service

import (
	"context"
	"time"

	"github.com/masumi-network/registry-service/internal/registry/models"
)

// EntryQuery is one registry query. All filters are optional.
type EntryQuery struct {
	CapabilityName    *string
	CapabilityVersion *string
	PaymentSchemes    []models.PaymentScheme
	Statuses          []models.Status
	PolicyID          *string
	Identifier        *string
	Tag               *string

	// AllPaymentSchemes suppresses the default payment scheme filter, so
	// entries without a payment record (placeholder deregistered rows)
	// are included.
	AllPaymentSchemes bool

	Cursor string
	Limit  int

	// MinRegistryDate triggers a forward-sync pass before querying so the
	// result reflects chain state at least this fresh.
	MinRegistryDate time.Time
	// MinHealthCheckDate re-verifies entries whose last health check
	// predates it before they are returned.
	MinHealthCheckDate time.Time
}

// EntryPage is one page of query results.
type EntryPage struct {
	Entries    []models.RegistryEntry
	NextCursor string
}

// RegistryService defines the interface for registry operations.
type RegistryService interface {
	// QueryEntries serves paginated, filtered queries over the registry,
	// optionally refreshing registry data and health state first.
	QueryEntries(ctx context.Context, query EntryQuery) (*EntryPage, error)
	// GetEntryByIdentifier retrieves one entry by asset identifier.
	GetEntryByIdentifier(ctx context.Context, assetID string) (*models.RegistryEntry, error)

	// ListCapabilities lists capabilities claimed by online entries.
	ListCapabilities(ctx context.Context, cursor string, limit int) ([]models.Capability, error)

	// Source administration
	ListSources(ctx context.Context, cursor string, limit int) ([]models.RegistrySource, error)
	AddSource(ctx context.Context, source *models.RegistrySource) error
	UpdateSource(ctx context.Context, id string, note *string, rpcCredential *string) (*models.RegistrySource, error)
	DeleteSource(ctx context.Context, id string) error
}
