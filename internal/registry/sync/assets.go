package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/masumi-network/registry-service/internal/registry/cardano"
	"github.com/masumi-network/registry-service/internal/registry/database"
	"github.com/masumi-network/registry-service/internal/registry/metadata"
	"github.com/masumi-network/registry-service/internal/registry/models"
)

// UpdateAssets runs the per-asset upsert for a batch of (asset, quantity)
// pairs from one source. Assets with non-conforming metadata or without a
// holder are skipped silently; re-running with identical inputs converges
// to the same stored state. Results are sorted by creation time ascending,
// best effort only since assets are processed concurrently.
func (e *Engine) UpdateAssets(ctx context.Context, source models.RegistrySource, assets []cardano.PolicyAsset) ([]models.RegistryEntry, error) {
	if len(assets) == 0 {
		return nil, nil
	}
	if source.Network == "" {
		return nil, fmt.Errorf("source %s has no network", source.ID)
	}
	if source.RPCCredential == "" {
		return nil, fmt.Errorf("source %s has no rpc credential", source.ID)
	}

	indexer, err := e.newIndexer(source.Network, source.RPCCredential)
	if err != nil {
		return nil, err
	}

	e.logger.Info("updating cardano assets",
		zap.Int("count", len(assets)), zap.String("source_id", source.ID))

	results := make([]*models.RegistryEntry, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	for i := range assets {
		g.Go(func() error {
			entry, err := e.updateAsset(gctx, indexer, source, assets[i])
			if err != nil {
				// A failed asset is retried on the next scheduled pass.
				assetsProcessedTotal.WithLabelValues(resultError).Inc()
				e.logger.Error("error updating asset",
					zap.String("asset", assets[i].Asset), zap.Error(err))
				return nil
			}
			results[i] = entry
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]models.RegistryEntry, 0, len(results))
	for _, entry := range results {
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// updateAsset resolves a single asset to a registry entry write. A nil
// entry with nil error means the asset was skipped.
func (e *Engine) updateAsset(ctx context.Context, indexer Indexer, source models.RegistrySource, asset cardano.PolicyAsset) (*models.RegistryEntry, error) {
	e.logger.Debug("updating asset",
		zap.String("asset", asset.Asset), zap.String("quantity", asset.Quantity))

	quantity, err := strconv.ParseInt(asset.Quantity, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed quantity %q", asset.Quantity)
	}

	// A burned asset is recorded immediately; the rest of the pipeline
	// does not apply to it.
	if quantity == 0 {
		if err := e.db.UpsertDeregistered(ctx, source.ID, asset.Asset); err != nil {
			return nil, err
		}
		assetsProcessedTotal.WithLabelValues(resultDeregistered).Inc()
		return nil, nil
	}

	assetData, err := indexer.AssetByID(ctx, asset.Asset)
	if err != nil {
		return nil, err
	}
	holders, err := indexer.AssetAddresses(ctx, asset.Asset, "desc")
	if err != nil {
		return nil, err
	}

	meta, metaErr := metadata.Validate(assetData.OnchainMetadata)
	if metaErr != nil || len(holders) == 0 {
		// Not a conforming registration; expected noise, not an error.
		e.logger.Debug("skipping asset",
			zap.String("asset", asset.Asset), zap.NamedError("reason", metaErr))
		assetsProcessedTotal.WithLabelValues(resultSkipped).Inc()
		return nil, nil
	}

	status := e.health.CheckEndpoint(ctx, meta.APIBaseURL, asset.Asset)
	holder := holders[0]

	var result *models.RegistryEntry
	txErr := e.db.InEntryTransaction(ctx, func(ctx context.Context, tx database.EntryTx) error {
		// A second asset claiming an already registered base url is not
		// allowed to shadow the original entry.
		if _, err := tx.FindEntryByBaseURL(ctx, source.ID, meta.APIBaseURL, asset.Asset); err == nil {
			e.logger.Info("skipping asset with duplicate api base url",
				zap.String("asset", asset.Asset), zap.String("api_base_url", meta.APIBaseURL))
			return nil
		} else if !errors.Is(err, database.ErrNotFound) {
			return err
		}

		existing, err := tx.FindEntryByIdentifier(ctx, asset.Asset)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}

		sellerVKey, err := e.keyHash(holder.Address)
		if err != nil {
			return fmt.Errorf("derive seller key hash: %w", err)
		}
		payment := models.PaymentInformation{
			Address:    holder.Address,
			SellerVKey: sellerVKey,
			Scheme:     models.PaymentSchemeWeb3CardanoV1,
		}

		if existing != nil {
			// Identity fields are set once at creation; only status,
			// counters, pricing and payment move on update.
			updated, err := tx.UpdateEntryCycle(ctx, asset.Asset, database.EntryCycleUpdate{
				Status:    status,
				Online:    status == models.StatusOnline,
				CheckedAt: time.Now(),
				Pricing:   pricingFromMetadata(meta),
				Payment:   payment,
			})
			if err != nil {
				return err
			}
			result = updated
			assetsProcessedTotal.WithLabelValues(resultUpdated).Inc()
			return nil
		}

		entry, err := e.newEntryFromMetadata(ctx, tx, source, asset.Asset, meta, status, payment)
		if err != nil {
			return err
		}
		if err := tx.CreateEntry(ctx, entry); err != nil {
			return err
		}
		result = entry
		assetsProcessedTotal.WithLabelValues(resultCreated).Inc()
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

func (e *Engine) newEntryFromMetadata(
	ctx context.Context,
	tx database.EntryTx,
	source models.RegistrySource,
	assetID string,
	meta *metadata.RegistrationMetadata,
	status models.Status,
	payment models.PaymentInformation,
) (*models.RegistryEntry, error) {
	uptimeCount := int64(0)
	if status == models.StatusOnline {
		uptimeCount = 1
	}

	entry := &models.RegistryEntry{
		Identifier:       assetID,
		SourceID:         source.ID,
		Name:             meta.Name,
		Description:      meta.Description,
		Status:           status,
		AuthorName:       meta.Author.Name,
		AuthorContact:    meta.Author.Contact,
		Image:            meta.Image,
		Tags:             meta.Tags,
		Pricing:          pricingFromMetadata(meta),
		APIBaseURL:       meta.APIBaseURL,
		UptimeCount:      uptimeCount,
		UptimeCheckCount: 1,
		LastUptimeCheck:  time.Now(),
		MetadataVersion:  meta.MetadataVersion,
		Payment:          &payment,
	}
	entry.AuthorOrganization = meta.Author.Organization
	if meta.Legal != nil {
		entry.PrivacyPolicyURL = meta.Legal.PrivacyPolicy
		entry.TermsURL = meta.Legal.Terms
		entry.OtherLegalURL = meta.Legal.Other
	}
	for _, ex := range meta.ExampleOutputs {
		entry.ExampleOutputs = append(entry.ExampleOutputs, models.ExampleOutput{
			Name:     ex.Name,
			MimeType: ex.MimeType,
			URL:      ex.URL,
		})
	}
	if meta.Capability != nil {
		capability, err := tx.FindOrCreateCapability(ctx, meta.Capability.Name, meta.Capability.Version)
		if err != nil {
			return nil, err
		}
		entry.Capability = capability
	}
	return entry, nil
}

func pricingFromMetadata(meta *metadata.RegistrationMetadata) []models.Amount {
	pricing := make([]models.Amount, 0, len(meta.Pricing))
	for _, p := range meta.Pricing {
		pricing = append(pricing, models.Amount{Amount: p.Amount, Unit: p.Unit})
	}
	return pricing
}
