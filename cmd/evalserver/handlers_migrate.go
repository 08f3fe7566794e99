package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/aiqaio/evalserver/internal/config"
	"github.com/aiqaio/evalserver/internal/store"
)

// runMigrateUp opens DATABASE_URL directly (rather than going through
// build(), which also wires Elasticsearch/Redis/LLM providers this command
// has no use for) and applies the fixed statement list in schema.go.
func runMigrateUp(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(cmd.Context(), db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	slog.Info("schema is up to date")
	return nil
}
