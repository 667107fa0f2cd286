package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/masumi-network/registry-service/internal/registry/database"
	"github.com/masumi-network/registry-service/internal/registry/models"
)

const (
	defaultQueryLimit = 10
	maxQueryLimit     = 50
)

// Reconciler is the engine surface the query path uses for on-demand
// freshness.
type Reconciler interface {
	SyncLatest(ctx context.Context, onlyEntriesAfter time.Time) error
}

// HealthVerifier re-checks fetched entries against their endpoints, gated
// by a freshness cutoff.
type HealthVerifier interface {
	CheckVerifyAndUpdateEntries(ctx context.Context, entries []models.RegistryEntry, minHealthCheckDate time.Time) ([]models.RegistryEntry, error)
}

// registryServiceImpl implements the RegistryService interface using our
// Database.
type registryServiceImpl struct {
	db         database.Database
	reconciler Reconciler
	health     HealthVerifier
	logger     *zap.Logger
}

// NewRegistryService creates a new registry service with the provided
// database, reconciliation engine and health checker.
func NewRegistryService(db database.Database, reconciler Reconciler, health HealthVerifier, logger *zap.Logger) RegistryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registryServiceImpl{
		db:         db,
		reconciler: reconciler,
		health:     health,
		logger:     logger,
	}
}

// QueryEntries fetches matching entries page by page, over-fetching at
// twice the requested limit so that health re-checks have headroom, and
// accumulates until the limit is met or the store is exhausted.
func (s *registryServiceImpl) QueryEntries(ctx context.Context, query EntryQuery) (*EntryPage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	if !query.MinRegistryDate.IsZero() {
		// Freshness is best effort: reconciliation failures never surface
		// to the caller, who still gets whatever is currently stored.
		if err := s.reconciler.SyncLatest(ctx, query.MinRegistryDate); err != nil {
			s.logger.Warn("on-demand reconciliation failed", zap.Error(err))
		}
	}

	filter := database.EntryFilter{
		CapabilityName:    query.CapabilityName,
		CapabilityVersion: query.CapabilityVersion,
		PaymentSchemes:    query.PaymentSchemes,
		Statuses:          query.Statuses,
		PolicyID:          query.PolicyID,
		Identifier:        query.Identifier,
		Tag:               query.Tag,
	}
	if len(filter.PaymentSchemes) == 0 && !query.AllPaymentSchemes {
		filter.PaymentSchemes = []models.PaymentScheme{models.PaymentSchemeWeb3CardanoV1}
	}
	if len(filter.Statuses) == 0 {
		filter.Statuses = []models.Status{models.StatusOnline, models.StatusOffline}
	}

	fetchSize := limit * 2
	cursor := query.Cursor
	var accumulated []models.RegistryEntry

	for len(accumulated) < limit {
		page, err := s.db.ListEntries(ctx, filter, cursor, fetchSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		checked, err := s.health.CheckVerifyAndUpdateEntries(ctx, page, query.MinHealthCheckDate)
		if err != nil {
			return nil, err
		}
		accumulated = append(accumulated, checked...)

		cursor = page[len(page)-1].ID
		// A short page signals the backing store is exhausted.
		if len(page) < fetchSize {
			break
		}
	}

	if len(accumulated) > limit {
		accumulated = accumulated[:limit]
	}
	// Paging resumes from the tail of the last underlying page, not the last
	// returned entry.
	next := ""
	if len(accumulated) == limit {
		next = cursor
	}
	return &EntryPage{Entries: accumulated, NextCursor: next}, nil
}

// GetEntryByIdentifier retrieves one entry by its asset identifier.
func (s *registryServiceImpl) GetEntryByIdentifier(ctx context.Context, assetID string) (*models.RegistryEntry, error) {
	return s.db.GetEntryByIdentifier(ctx, assetID)
}

// ListCapabilities lists capabilities claimed by online entries.
func (s *registryServiceImpl) ListCapabilities(ctx context.Context, cursor string, limit int) ([]models.Capability, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	return s.db.ListCapabilities(ctx, cursor, limit)
}

// ListSources returns registry sources with cursor-based pagination.
func (s *registryServiceImpl) ListSources(ctx context.Context, cursor string, limit int) ([]models.RegistrySource, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	return s.db.ListSources(ctx, cursor, limit)
}

// AddSource registers a new source to poll; its cursor starts at page 1.
func (s *registryServiceImpl) AddSource(ctx context.Context, source *models.RegistrySource) error {
	return s.db.CreateSource(ctx, source)
}

// UpdateSource patches the admin-mutable fields of a source.
func (s *registryServiceImpl) UpdateSource(ctx context.Context, id string, note *string, rpcCredential *string) (*models.RegistrySource, error) {
	return s.db.UpdateSource(ctx, id, note, rpcCredential)
}

// DeleteSource removes a source and cascades to its entries.
func (s *registryServiceImpl) DeleteSource(ctx context.Context, id string) error {
	return s.db.DeleteSource(ctx, id)
}
