package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Migrations are append-only; each statement must be safe to re-run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS registry_sources (
		id TEXT PRIMARY KEY,
		scope TEXT NOT NULL,
		network TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		rpc_credential TEXT NOT NULL,
		latest_page INTEGER NOT NULL DEFAULT 1,
		latest_identifier TEXT,
		note TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_sources_scope_policy UNIQUE (scope, policy_id)
	)`,

	`CREATE TABLE IF NOT EXISTS capabilities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		version TEXT NOT NULL,
		CONSTRAINT uq_capabilities_name_version UNIQUE (name, version)
	)`,

	`CREATE TABLE IF NOT EXISTS registry_entries (
		id TEXT PRIMARY KEY,
		identifier TEXT NOT NULL,
		source_id TEXT NOT NULL REFERENCES registry_sources(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL,
		capability_id TEXT REFERENCES capabilities(id),
		author_name TEXT NOT NULL DEFAULT '',
		author_contact TEXT,
		author_organization TEXT,
		privacy_policy_url TEXT,
		terms_url TEXT,
		other_legal_url TEXT,
		image TEXT,
		tags JSONB NOT NULL DEFAULT '[]',
		pricing JSONB NOT NULL DEFAULT '[]',
		example_outputs JSONB NOT NULL DEFAULT '[]',
		api_base_url TEXT NOT NULL,
		uptime_count BIGINT NOT NULL DEFAULT 0,
		uptime_check_count BIGINT NOT NULL DEFAULT 0,
		last_uptime_check TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		metadata_version INTEGER NOT NULL DEFAULT 1,
		payment_address TEXT,
		seller_vkey TEXT,
		payment_scheme TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_entries_identifier UNIQUE (identifier),
		CONSTRAINT chk_entries_uptime CHECK (uptime_count <= uptime_check_count)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_entries_source_status_check
		ON registry_entries (source_id, status, last_uptime_check DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_entries_created
		ON registry_entries (created_at DESC, id DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_entries_stale
		ON registry_entries (last_uptime_check) WHERE status <> 'deregistered'`,
}

func migrate(ctx context.Context, conn *pgx.Conn) error {
	for i, stmt := range migrations {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
