package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements creates the four tables the SQL stores in this package
// address, in the teacher's forward-only migration idiom (cmd/nexus's
// migrate up applies a fixed list in order; there is no down migration
// here because nothing in spec.md names one).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS organisations (
		id                         TEXT PRIMARY KEY,
		name                       TEXT NOT NULL,
		tier                       TEXT NOT NULL,
		members                    TEXT[] NOT NULL DEFAULT '{}',
		rate_limit_per_hour        INTEGER NOT NULL DEFAULT 0,
		retention_days             INTEGER NOT NULL DEFAULT 0,
		max_members                INTEGER NOT NULL DEFAULT 0,
		max_datasets               INTEGER NOT NULL DEFAULT 0,
		experiment_retention_days  INTEGER NOT NULL DEFAULT 0,
		max_examples_per_dataset   INTEGER NOT NULL DEFAULT 0,
		created_at                 TIMESTAMPTZ NOT NULL,
		updated_at                 TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id               TEXT PRIMARY KEY,
		organisation_id  TEXT NOT NULL REFERENCES organisations(id) ON DELETE CASCADE,
		hash             TEXT NOT NULL UNIQUE,
		last4            TEXT NOT NULL,
		role             TEXT NOT NULL,
		name             TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS api_keys_organisation_id_idx ON api_keys (organisation_id)`,
	`CREATE TABLE IF NOT EXISTS datasets (
		id               TEXT PRIMARY KEY,
		organisation_id  TEXT NOT NULL REFERENCES organisations(id) ON DELETE CASCADE,
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		tags             TEXT[] NOT NULL DEFAULT '{}',
		input_schema     JSONB,
		output_schema    JSONB,
		metrics          JSONB,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS datasets_organisation_id_idx ON datasets (organisation_id)`,
	`CREATE TABLE IF NOT EXISTS experiments (
		id                     TEXT PRIMARY KEY,
		dataset_id             TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
		organisation_id        TEXT NOT NULL,
		batch_id               TEXT NOT NULL DEFAULT '',
		name                   TEXT NOT NULL DEFAULT '',
		parameters             JSONB,
		comparison_parameters  JSONB,
		status                 TEXT NOT NULL,
		summaries              JSONB,
		results                JSONB,
		trace_ids              TEXT[] NOT NULL DEFAULT '{}',
		created_at             TIMESTAMPTZ NOT NULL,
		updated_at             TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS experiments_organisation_id_idx ON experiments (organisation_id)`,
}

// ApplyMigrations runs every schema statement in order inside one
// transaction, following cmd/nexus's migrate up being a thin wrapper over a
// fixed, idempotent statement list rather than a tracked-version table —
// every statement here is itself an IF NOT EXISTS, so re-running it is a
// no-op against an already-migrated database.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration statement %d: %w", i, err)
		}
	}
	return tx.Commit()
}
