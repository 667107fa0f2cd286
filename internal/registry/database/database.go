// Package database implements the registry store on PostgreSQL. All
// reconciliation and query paths consume it through the Database interface
// so tests can substitute fakes.
package database

import (
	"context"
	"time"

	"github.com/masumi-network/registry-service/internal/registry/models"
)

// EntryFilter narrows ListEntries results. Nil fields are ignored.
type EntryFilter struct {
	CapabilityName    *string
	CapabilityVersion *string
	PaymentSchemes    []models.PaymentScheme
	Statuses          []models.Status
	PolicyID          *string
	Identifier        *string
	Tag               *string
}

// EntryCycleUpdate carries the mutable fields rewritten on every poll or
// health-check cycle. Identity fields set at creation are left untouched.
type EntryCycleUpdate struct {
	Status    models.Status
	Online    bool
	CheckedAt time.Time
	Pricing   []models.Amount
	Payment   models.PaymentInformation
}

// EntryTx is the transactional view the per-asset upsert runs against.
type EntryTx interface {
	// FindEntryByIdentifier looks up an entry by asset identifier, returning
	// ErrNotFound when absent.
	FindEntryByIdentifier(ctx context.Context, assetID string) (*models.RegistryEntry, error)
	// FindEntryByBaseURL finds a different entry of the same source claiming
	// the same api base url, returning ErrNotFound when there is none.
	FindEntryByBaseURL(ctx context.Context, sourceID, baseURL, excludeAssetID string) (*models.RegistryEntry, error)
	// CreateEntry inserts a new entry with all fields populated.
	CreateEntry(ctx context.Context, entry *models.RegistryEntry) error
	// UpdateEntryCycle applies the per-cycle mutable fields and increments
	// the uptime counters, returning the updated entry.
	UpdateEntryCycle(ctx context.Context, assetID string, upd EntryCycleUpdate) (*models.RegistryEntry, error)
	// FindOrCreateCapability deduplicates capabilities by their natural key.
	// The unique index on (name, version) is the race-safety backstop.
	FindOrCreateCapability(ctx context.Context, name, version string) (*models.Capability, error)
}

// Database is the interface for registry store operations.
type Database interface {
	// Sources
	CreateSource(ctx context.Context, source *models.RegistrySource) error
	UpdateSource(ctx context.Context, id string, note *string, rpcCredential *string) (*models.RegistrySource, error)
	DeleteSource(ctx context.Context, id string) error
	ListSources(ctx context.Context, cursor string, limit int) ([]models.RegistrySource, error)
	// ListEligibleSources returns sources of the given scope with a policy id
	// set whose updatedAt is at or before the cutoff.
	ListEligibleSources(ctx context.Context, scope models.SourceScope, updatedBefore time.Time) ([]models.RegistrySource, error)
	// UpdateSourceCursor persists the pagination resume point after a poll.
	UpdateSourceCursor(ctx context.Context, id string, latestPage int, latestIdentifier *string) error

	// Entries
	GetEntryByIdentifier(ctx context.Context, assetID string) (*models.RegistryEntry, error)
	// ListEntries returns a filtered page ordered by (createdAt, id) desc,
	// resuming after the given entry id cursor.
	ListEntries(ctx context.Context, filter EntryFilter, cursor string, limit int) ([]models.RegistryEntry, error)
	// ListCheckableEntries pages Online/Offline entries of one source for the
	// deregistration sweep, ordered by lastUptimeCheck desc.
	ListCheckableEntries(ctx context.Context, sourceID string, cursor string, limit int) ([]models.RegistryEntry, error)
	// ListStaleEntries returns the oldest non-deregistered entries whose last
	// health check predates the cutoff.
	ListStaleEntries(ctx context.Context, olderThan time.Time, limit int) ([]models.RegistryEntry, error)
	// MarkDeregistered flips an entry's status to deregistered.
	MarkDeregistered(ctx context.Context, assetID string) error
	// UpsertDeregistered records a burned asset that may never have had a
	// conforming registration, creating a placeholder when absent.
	UpsertDeregistered(ctx context.Context, sourceID, assetID string) error
	// ApplyHealthResult persists one health check outcome: sets the status,
	// always increments uptimeCheckCount, increments uptimeCount when the
	// status is online and stamps lastUptimeCheck.
	ApplyHealthResult(ctx context.Context, entryID string, status models.Status, checkedAt time.Time) (*models.RegistryEntry, error)

	// Capabilities
	ListCapabilities(ctx context.Context, cursor string, limit int) ([]models.Capability, error)

	// InEntryTransaction runs the per-asset upsert inside one transaction
	// with bounded wait and execution budgets.
	InEntryTransaction(ctx context.Context, fn func(ctx context.Context, tx EntryTx) error) error
}
