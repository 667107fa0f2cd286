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

const sourceColumns = `id, scope, network, policy_id, rpc_credential, latest_page, latest_identifier, note, created_at, updated_at`

func scanSource(row pgx.Row) (*models.RegistrySource, error) {
	var s models.RegistrySource
	err := row.Scan(
		&s.ID, &s.Scope, &s.Network, &s.PolicyID, &s.RPCCredential,
		&s.LatestPage, &s.LatestIdentifier, &s.Note, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan source row: %w", err)
	}
	return &s, nil
}

// CreateSource inserts a new registry source. The pagination cursor starts
// at page 1 with no identifier.
func (db *PostgreSQL) CreateSource(ctx context.Context, source *models.RegistrySource) error {
	if source.PolicyID == "" {
		return fmt.Errorf("%w: policy id is required", ErrInvalidInput)
	}
	if source.ID == "" {
		source.ID = uuid.NewString()
	}
	if source.Scope == "" {
		source.Scope = models.ScopeChainAssetV1
	}
	if source.LatestPage == 0 {
		source.LatestPage = 1
	}
	now := time.Now()
	source.CreatedAt = now
	source.UpdatedAt = now

	query := `
		INSERT INTO registry_sources (id, scope, network, policy_id, rpc_credential, latest_page, latest_identifier, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := db.pool.Exec(ctx, query,
		source.ID, source.Scope, source.Network, source.PolicyID, source.RPCCredential,
		source.LatestPage, source.LatestIdentifier, source.Note, source.CreatedAt, source.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create source: %w", err)
	}
	return nil
}

// UpdateSource patches the admin-mutable fields of a source.
func (db *PostgreSQL) UpdateSource(ctx context.Context, id string, note *string, rpcCredential *string) (*models.RegistrySource, error) {
	query := `
		UPDATE registry_sources
		SET note = COALESCE($2, note),
			rpc_credential = COALESCE($3, rpc_credential),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sourceColumns
	return scanSource(db.pool.QueryRow(ctx, query, id, note, rpcCredential))
}

// DeleteSource removes a source; its entries cascade.
func (db *PostgreSQL) DeleteSource(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM registry_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSources returns sources ordered by creation time descending, resuming
// after the given source id.
func (db *PostgreSQL) ListSources(ctx context.Context, cursor string, limit int) ([]models.RegistrySource, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + sourceColumns + ` FROM registry_sources`
	args := []any{}
	if cursor != "" {
		query += ` WHERE (created_at, id) < (SELECT created_at, id FROM registry_sources WHERE id = $1)`
		args = append(args, cursor)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()
	return collectSources(rows)
}

// ListEligibleSources returns the sources a forward-sync pass should poll:
// matching scope, policy id set and not updated since the cutoff.
func (db *PostgreSQL) ListEligibleSources(ctx context.Context, scope models.SourceScope, updatedBefore time.Time) ([]models.RegistrySource, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM registry_sources
		WHERE scope = $1 AND policy_id <> '' AND updated_at <= $2
		ORDER BY created_at ASC
	`
	rows, err := db.pool.Query(ctx, query, scope, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible sources: %w", err)
	}
	defer rows.Close()
	return collectSources(rows)
}

// UpdateSourceCursor persists the poll resume point. It also stamps
// updated_at, which removes the source from the current cutoff window.
func (db *PostgreSQL) UpdateSourceCursor(ctx context.Context, id string, latestPage int, latestIdentifier *string) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE registry_sources
		SET latest_page = $2, latest_identifier = $3, updated_at = NOW()
		WHERE id = $1
	`, id, latestPage, latestIdentifier)
	if err != nil {
		return fmt.Errorf("failed to update source cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectSources(rows pgx.Rows) ([]models.RegistrySource, error) {
	var sources []models.RegistrySource
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source rows: %w", err)
	}
	return sources, nil
}
