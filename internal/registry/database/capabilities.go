package database

import (
	"context"
	"fmt"

	"github.com/masumi-network/registry-service/internal/registry/models"
)

// ListCapabilities returns capabilities claimed by at least one online
// entry, distinct by (name, version), ordered by name.
func (db *PostgreSQL) ListCapabilities(ctx context.Context, cursor string, limit int) ([]models.Capability, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT DISTINCT c.id, c.name, c.version
		FROM capabilities c
		JOIN registry_entries e ON e.capability_id = c.id
		WHERE e.status = $1
	`
	args := []any{models.StatusOnline}
	if cursor != "" {
		query += ` AND (c.name, c.id) > (SELECT name, id FROM capabilities WHERE id = $2)`
		args = append(args, cursor)
	}
	query += fmt.Sprintf(` ORDER BY c.name ASC, c.id ASC LIMIT %d`, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list capabilities: %w", err)
	}
	defer rows.Close()

	var capabilities []models.Capability
	for rows.Next() {
		var c models.Capability
		if err := rows.Scan(&c.ID, &c.Name, &c.Version); err != nil {
			return nil, fmt.Errorf("failed to scan capability row: %w", err)
		}
		capabilities = append(capabilities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate capability rows: %w", err)
	}
	return capabilities, nil
}
