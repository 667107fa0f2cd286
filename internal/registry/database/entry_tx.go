package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/masumi-network/registry-service/internal/registry/models"
)

func (t *entryTx) FindEntryByIdentifier(ctx context.Context, assetID string) (*models.RegistryEntry, error) {
	return getEntryByIdentifier(ctx, t.tx, assetID)
}

func (t *entryTx) FindEntryByBaseURL(ctx context.Context, sourceID, baseURL, excludeAssetID string) (*models.RegistryEntry, error) {
	query := `SELECT` + entryColumns + entryFrom + `
		WHERE e.source_id = $1 AND e.api_base_url = $2 AND e.identifier <> $3
		LIMIT 1`
	return scanEntry(t.tx.QueryRow(ctx, query, sourceID, baseURL, excludeAssetID))
}

func (t *entryTx) CreateEntry(ctx context.Context, entry *models.RegistryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	var capabilityID *string
	if entry.Capability != nil {
		capabilityID = &entry.Capability.ID
	}
	var paymentAddress, sellerVKey, paymentScheme *string
	if entry.Payment != nil {
		paymentAddress = &entry.Payment.Address
		sellerVKey = &entry.Payment.SellerVKey
		scheme := string(entry.Payment.Scheme)
		paymentScheme = &scheme
	}
	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}
	pricing := entry.Pricing
	if pricing == nil {
		pricing = []models.Amount{}
	}
	examples := entry.ExampleOutputs
	if examples == nil {
		examples = []models.ExampleOutput{}
	}

	query := `
		INSERT INTO registry_entries (
			id, identifier, source_id, name, description, status, capability_id,
			author_name, author_contact, author_organization,
			privacy_policy_url, terms_url, other_legal_url,
			image, tags, pricing, example_outputs, api_base_url,
			uptime_count, uptime_check_count, last_uptime_check,
			metadata_version, payment_address, seller_vkey, payment_scheme,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27
		)
	`
	_, err := t.tx.Exec(ctx, query,
		entry.ID, entry.Identifier, entry.SourceID, entry.Name, entry.Description, entry.Status, capabilityID,
		entry.AuthorName, entry.AuthorContact, entry.AuthorOrganization,
		entry.PrivacyPolicyURL, entry.TermsURL, entry.OtherLegalURL,
		entry.Image, tags, pricing, examples, entry.APIBaseURL,
		entry.UptimeCount, entry.UptimeCheckCount, entry.LastUptimeCheck,
		entry.MetadataVersion, paymentAddress, sellerVKey, paymentScheme,
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

func (t *entryTx) UpdateEntryCycle(ctx context.Context, assetID string, upd EntryCycleUpdate) (*models.RegistryEntry, error) {
	uptimeIncrement := 0
	if upd.Online {
		uptimeIncrement = 1
	}
	pricing := upd.Pricing
	if pricing == nil {
		pricing = []models.Amount{}
	}
	query := `
		UPDATE registry_entries
		SET status = $2,
			uptime_check_count = uptime_check_count + 1,
			uptime_count = uptime_count + $3,
			last_uptime_check = $4,
			pricing = $5,
			payment_address = $6,
			seller_vkey = $7,
			payment_scheme = $8,
			updated_at = NOW()
		WHERE identifier = $1
	`
	tag, err := t.tx.Exec(ctx, query,
		assetID, upd.Status, uptimeIncrement, upd.CheckedAt,
		pricing, upd.Payment.Address, upd.Payment.SellerVKey, string(upd.Payment.Scheme),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return getEntryByIdentifier(ctx, t.tx, assetID)
}

func (t *entryTx) FindOrCreateCapability(ctx context.Context, name, version string) (*models.Capability, error) {
	// Insert-or-select in one statement; the unique index on (name, version)
	// is the race-safety backstop for concurrent creators.
	query := `
		WITH ins AS (
			INSERT INTO capabilities (id, name, version)
			VALUES ($1, $2, $3)
			ON CONFLICT (name, version) DO NOTHING
			RETURNING id, name, version
		)
		SELECT id, name, version FROM ins
		UNION ALL
		SELECT id, name, version FROM capabilities WHERE name = $2 AND version = $3
		LIMIT 1
	`
	var c models.Capability
	err := t.tx.QueryRow(ctx, query, uuid.NewString(), name, version).Scan(&c.ID, &c.Name, &c.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to find or create capability: %w", ErrDatabase)
		}
		return nil, fmt.Errorf("failed to find or create capability: %w", err)
	}
	return &c, nil
}
