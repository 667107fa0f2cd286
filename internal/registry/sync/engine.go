// Package sync implements the registry reconciliation engine: incremental
// polling of the chain indexer for minted and burned assets under tracked
// policies, the per-asset upsert pipeline and the deregistration sweep.
package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/masumi-network/registry-service/internal/registry/cardano"
	"github.com/masumi-network/registry-service/internal/registry/database"
	"github.com/masumi-network/registry-service/internal/registry/models"
)

const (
	assetPageSize = 100
	sweepPageSize = 50
)

// Indexer is the chain indexer surface the engine polls.
type Indexer interface {
	AssetsByPolicy(ctx context.Context, policyID string, page, count int) ([]cardano.PolicyAsset, error)
	AssetByID(ctx context.Context, assetID string) (*cardano.Asset, error)
	AssetAddresses(ctx context.Context, assetID string, order string) ([]cardano.AssetAddress, error)
}

// IndexerFactory builds an indexer client for one source's network and RPC
// credential.
type IndexerFactory func(network models.Network, credential string) (Indexer, error)

// HealthChecker probes an agent endpoint during the upsert pipeline.
type HealthChecker interface {
	CheckEndpoint(ctx context.Context, baseURL, assetID string) models.Status
}

// KeyHashResolver derives the seller verification key hash from a holder
// address.
type KeyHashResolver func(address string) (string, error)

// Engine reconciles on-chain asset state into the registry store. Both of
// its passes are guarded by their own single-permit lock: a pass never
// overlaps itself, while forward sync and the deregistration sweep may run
// concurrently with each other.
type Engine struct {
	db         database.Database
	newIndexer IndexerFactory
	health     HealthChecker
	keyHash    KeyHashResolver
	logger     *zap.Logger

	syncLock  *semaphore.Weighted
	sweepLock *semaphore.Weighted
}

// Option mutates engine construction.
type Option func(*Engine)

// WithKeyHashResolver overrides the address derivation. Used by tests.
func WithKeyHashResolver(r KeyHashResolver) Option {
	return func(e *Engine) { e.keyHash = r }
}

// NewEngine builds an Engine. The pass locks are owned by the instance, so
// independent engines never contend with each other.
func NewEngine(db database.Database, newIndexer IndexerFactory, health HealthChecker, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		db:         db,
		newIndexer: newIndexer,
		health:     health,
		keyHash:    cardano.ResolvePaymentKeyHash,
		logger:     logger,
		syncLock:   semaphore.NewWeighted(1),
		sweepLock:  semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SyncLatest polls every eligible source for assets minted since its stored
// cursor, running the per-asset upsert on each. Sources whose updatedAt is
// later than onlyEntriesAfter are considered fresh and skipped. A zero
// cutoff is a no-op.
//
// A concurrent caller blocks on the pass lock rather than starting a second
// pass; after acquiring it, eligibility is re-checked so the caller observes
// the completed pass instead of repeating it.
func (e *Engine) SyncLatest(ctx context.Context, onlyEntriesAfter time.Time) error {
	if onlyEntriesAfter.IsZero() {
		return nil
	}

	sources, err := e.db.ListEligibleSources(ctx, models.ScopeChainAssetV1, onlyEntriesAfter)
	if err != nil {
		return fmt.Errorf("list eligible sources: %w", err)
	}
	if len(sources) == 0 {
		return nil
	}

	if !e.syncLock.TryAcquire(1) {
		if err := e.syncLock.Acquire(ctx, 1); err != nil {
			return err
		}
		// The pass that held the lock may have refreshed our sources.
		sources, err = e.db.ListEligibleSources(ctx, models.ScopeChainAssetV1, onlyEntriesAfter)
		if err != nil {
			e.syncLock.Release(1)
			return fmt.Errorf("list eligible sources: %w", err)
		}
		if len(sources) == 0 {
			e.syncLock.Release(1)
			return nil
		}
	}
	defer e.syncLock.Release(1)

	// A source without a policy id should never be returned; treat it as
	// configuration corruption and abort the pass.
	for _, source := range sources {
		if source.PolicyID == "" {
			return fmt.Errorf("source %s has no policy id", source.ID)
		}
	}

	start := time.Now()
	e.logger.Debug("updating entries from sources", zap.Int("count", len(sources)))

	g, gctx := errgroup.WithContext(ctx)
	for _, source := range sources {
		g.Go(func() error {
			if err := e.syncSource(gctx, source); err != nil {
				// One bad source must not block its siblings.
				sourceErrorsTotal.Inc()
				e.logger.Error("error updating registry entries",
					zap.String("source_id", source.ID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	syncRunsTotal.Inc()
	syncDuration.Observe(time.Since(start).Seconds())
	return nil
}

// syncSource walks the indexer pages for one source from its stored cursor
// and persists the new resume point after the walk.
func (e *Engine) syncSource(ctx context.Context, source models.RegistrySource) error {
	indexer, err := e.newIndexer(source.Network, source.RPCCredential)
	if err != nil {
		return err
	}

	pageOffset := source.LatestPage
	latestIdentifier := source.LatestIdentifier

	page, err := indexer.AssetsByPolicy(ctx, source.PolicyID, pageOffset, assetPageSize)
	if err != nil {
		return err
	}
	pageOffset++

	for len(page) != 0 {
		toProcess := assetsAfterCursor(page, latestIdentifier)
		if _, err := e.UpdateAssets(ctx, source, toProcess); err != nil {
			return err
		}

		last := page[len(page)-1].Asset
		latestIdentifier = &last

		if len(page) < assetPageSize {
			e.logger.Debug("no more assets to process",
				zap.String("source_id", source.ID), zap.Stringp("latest_identifier", latestIdentifier))
			break
		}

		page, err = indexer.AssetsByPolicy(ctx, source.PolicyID, pageOffset, assetPageSize)
		if err != nil {
			return err
		}
		pageOffset++
	}

	// The cursor only advances past pages that were fully processed.
	return e.db.UpdateSourceCursor(ctx, source.ID, pageOffset-1, latestIdentifier)
}

// assetsAfterCursor returns the slice of page strictly after the cursor
// identifier. A cursor that is not present in the page was already consumed
// or pruned upstream, in which case the whole page is processed defensively.
func assetsAfterCursor(page []cardano.PolicyAsset, cursor *string) []cardano.PolicyAsset {
	if cursor == nil {
		return page
	}
	for i, asset := range page {
		if asset.Asset == *cursor {
			return page[i+1:]
		}
	}
	return page
}

// SweepDeregistered re-checks the on-chain quantity of every Online/Offline
// entry and marks burned assets deregistered. A concurrent caller waits for
// the in-flight sweep to complete and returns without running another.
func (e *Engine) SweepDeregistered(ctx context.Context) error {
	sources, err := e.db.ListEligibleSources(ctx, models.ScopeChainAssetV1, time.Now())
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		return nil
	}

	if !e.sweepLock.TryAcquire(1) {
		if err := e.sweepLock.Acquire(ctx, 1); err != nil {
			return err
		}
		e.sweepLock.Release(1)
		return nil
	}
	defer e.sweepLock.Release(1)

	g, gctx := errgroup.WithContext(ctx)
	for _, source := range sources {
		g.Go(func() error {
			if err := e.sweepSource(gctx, source); err != nil {
				sourceErrorsTotal.Inc()
				e.logger.Error("error updating deregistered registry entries",
					zap.String("source_id", source.ID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	sweepRunsTotal.Inc()
	return nil
}

func (e *Engine) sweepSource(ctx context.Context, source models.RegistrySource) error {
	indexer, err := e.newIndexer(source.Network, source.RPCCredential)
	if err != nil {
		return err
	}

	cursor := ""
	for {
		entries, err := e.db.ListCheckableEntries(ctx, source.ID, cursor, sweepPageSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		for _, entry := range entries {
			asset, err := indexer.AssetByID(ctx, entry.Identifier)
			if err != nil {
				return err
			}
			quantity, err := strconv.ParseInt(asset.Quantity, 10, 64)
			if err != nil {
				return fmt.Errorf("asset %s has malformed quantity %q", entry.Identifier, asset.Quantity)
			}
			if quantity == 0 {
				if err := e.db.MarkDeregistered(ctx, entry.Identifier); err != nil {
					return err
				}
				entriesDeregisteredTotal.Inc()
			}
		}

		if len(entries) < sweepPageSize {
			return nil
		}
		cursor = entries[len(entries)-1].ID
	}
}
