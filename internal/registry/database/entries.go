package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/masumi-network/registry-service/internal/registry/models"
)

const entryColumns = `
	e.id, e.identifier, e.source_id, e.name, e.description, e.status,
	e.capability_id, c.name, c.version,
	e.author_name, e.author_contact, e.author_organization,
	e.privacy_policy_url, e.terms_url, e.other_legal_url,
	e.image, e.tags, e.pricing, e.example_outputs, e.api_base_url,
	e.uptime_count, e.uptime_check_count, e.last_uptime_check,
	e.metadata_version, e.payment_address, e.seller_vkey, e.payment_scheme,
	e.created_at, e.updated_at`

const entryFrom = ` FROM registry_entries e LEFT JOIN capabilities c ON c.id = e.capability_id`

func scanEntry(row pgx.Row) (*models.RegistryEntry, error) {
	var (
		e              models.RegistryEntry
		capID          *string
		capName        *string
		capVersion     *string
		paymentAddress *string
		sellerVKey     *string
		paymentScheme  *string
	)
	err := row.Scan(
		&e.ID, &e.Identifier, &e.SourceID, &e.Name, &e.Description, &e.Status,
		&capID, &capName, &capVersion,
		&e.AuthorName, &e.AuthorContact, &e.AuthorOrganization,
		&e.PrivacyPolicyURL, &e.TermsURL, &e.OtherLegalURL,
		&e.Image, &e.Tags, &e.Pricing, &e.ExampleOutputs, &e.APIBaseURL,
		&e.UptimeCount, &e.UptimeCheckCount, &e.LastUptimeCheck,
		&e.MetadataVersion, &paymentAddress, &sellerVKey, &paymentScheme,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan entry row: %w", err)
	}
	if capID != nil && capName != nil && capVersion != nil {
		e.Capability = &models.Capability{ID: *capID, Name: *capName, Version: *capVersion}
	}
	if paymentAddress != nil {
		p := &models.PaymentInformation{Address: *paymentAddress}
		if sellerVKey != nil {
			p.SellerVKey = *sellerVKey
		}
		if paymentScheme != nil {
			p.Scheme = models.PaymentScheme(*paymentScheme)
		}
		e.Payment = p
	}
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]models.RegistryEntry, error) {
	var entries []models.RegistryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entry rows: %w", err)
	}
	return entries, nil
}

func getEntryByIdentifier(ctx context.Context, exec Executor, assetID string) (*models.RegistryEntry, error) {
	query := `SELECT` + entryColumns + entryFrom + ` WHERE e.identifier = $1`
	return scanEntry(exec.QueryRow(ctx, query, assetID))
}

// GetEntryByIdentifier looks up an entry by its asset identifier.
func (db *PostgreSQL) GetEntryByIdentifier(ctx context.Context, assetID string) (*models.RegistryEntry, error) {
	return getEntryByIdentifier(ctx, db.pool, assetID)
}

// ListEntries returns a filtered page of entries ordered by creation time
// descending, resuming after the entry id in cursor.
func (db *PostgreSQL) ListEntries(ctx context.Context, filter EntryFilter, cursor string, limit int) ([]models.RegistryEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	var conditions []string
	args := []any{}
	argIndex := 1

	addCondition := func(cond string, value any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIndex))
		args = append(args, value)
		argIndex++
	}

	if filter.CapabilityName != nil {
		addCondition("c.name = $%d", *filter.CapabilityName)
	}
	if filter.CapabilityVersion != nil {
		addCondition("c.version = $%d", *filter.CapabilityVersion)
	}
	if len(filter.PaymentSchemes) > 0 {
		addCondition("e.payment_scheme = ANY($%d)", filter.PaymentSchemes)
	}
	if len(filter.Statuses) > 0 {
		addCondition("e.status = ANY($%d)", filter.Statuses)
	}
	if filter.PolicyID != nil {
		addCondition("e.identifier LIKE $%d || '%%'", *filter.PolicyID)
	}
	if filter.Identifier != nil {
		addCondition("e.identifier = $%d", *filter.Identifier)
	}
	if filter.Tag != nil {
		addCondition("e.tags ? $%d", *filter.Tag)
	}
	if cursor != "" {
		addCondition("(e.created_at, e.id) < (SELECT created_at, id FROM registry_entries WHERE id = $%d)", cursor)
	}

	query := `SELECT` + entryColumns + entryFrom
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += fmt.Sprintf(" ORDER BY e.created_at DESC, e.id DESC LIMIT %d", limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListCheckableEntries pages the Online/Offline entries of one source for
// the deregistration sweep.
func (db *PostgreSQL) ListCheckableEntries(ctx context.Context, sourceID string, cursor string, limit int) ([]models.RegistryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT` + entryColumns + entryFrom + `
		WHERE e.source_id = $1 AND e.status = ANY($2)`
	args := []any{sourceID, []models.Status{models.StatusOnline, models.StatusOffline}}
	if cursor != "" {
		query += ` AND (e.last_uptime_check, e.id) < (SELECT last_uptime_check, id FROM registry_entries WHERE id = $3)`
		args = append(args, cursor)
	}
	query += fmt.Sprintf(` ORDER BY e.last_uptime_check DESC, e.id DESC LIMIT %d`, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkable entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListStaleEntries returns the oldest non-deregistered entries whose last
// health check predates the cutoff.
func (db *PostgreSQL) ListStaleEntries(ctx context.Context, olderThan time.Time, limit int) ([]models.RegistryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT` + entryColumns + entryFrom + `
		WHERE e.status <> $1 AND e.last_uptime_check < $2` +
		fmt.Sprintf(` ORDER BY e.last_uptime_check ASC, e.id ASC LIMIT %d`, limit)

	rows, err := db.pool.Query(ctx, query, models.StatusDeregistered, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// MarkDeregistered flips an entry's status to deregistered. Deregistration
// is terminal; entries are never hard-deleted.
func (db *PostgreSQL) MarkDeregistered(ctx context.Context, assetID string) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE registry_entries SET status = $2, updated_at = NOW() WHERE identifier = $1
	`, assetID, models.StatusDeregistered)
	if err != nil {
		return fmt.Errorf("failed to mark entry deregistered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertDeregistered records a burned asset. When the asset never had a
// conforming registration a placeholder row is created so the burn stays
// visible; an existing row only has its status flipped.
func (db *PostgreSQL) UpsertDeregistered(ctx context.Context, sourceID, assetID string) error {
	// The placeholder api url carries a unique suffix to stay clear of the
	// duplicate base url guard.
	_, err := db.pool.Exec(ctx, `
		INSERT INTO registry_entries (id, identifier, source_id, name, status, api_base_url, last_uptime_check, created_at, updated_at)
		VALUES ($1, $2, $3, '?', $4, $5, NOW(), NOW(), NOW())
		ON CONFLICT (identifier) DO UPDATE SET status = $4, updated_at = NOW()
	`, uuid.NewString(), assetID, sourceID, models.StatusDeregistered, "?_"+uuid.NewString())
	if err != nil {
		return fmt.Errorf("failed to upsert deregistered entry: %w", err)
	}
	return nil
}

// ApplyHealthResult persists one health check outcome. uptimeCheckCount
// always advances; uptimeCount advances only for an online result, which
// preserves uptime_count <= uptime_check_count.
func (db *PostgreSQL) ApplyHealthResult(ctx context.Context, entryID string, status models.Status, checkedAt time.Time) (*models.RegistryEntry, error) {
	var identifier string
	err := db.pool.QueryRow(ctx, `
		UPDATE registry_entries
		SET status = $2,
			uptime_check_count = uptime_check_count + 1,
			uptime_count = uptime_count + (CASE WHEN $2 = $3 THEN 1 ELSE 0 END),
			last_uptime_check = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING identifier
	`, entryID, status, models.StatusOnline, checkedAt).Scan(&identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to apply health result: %w", err)
	}
	return db.GetEntryByIdentifier(ctx, identifier)
}
