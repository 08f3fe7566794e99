// Package main provides the CLI entry point for the evalserver ingestion
// and experimentation backend.
//
// evalserver accepts OTLP spans over HTTP/JSON, HTTP/Protobuf, and gRPC,
// stores them against a per-organisation Elasticsearch-compatible index,
// and scores example outputs against dataset metrics (deterministic
// comparisons, a sandboxed JavaScript metric, or an LLM-as-judge call).
//
// # Basic Usage
//
// Start the server:
//
//	evalserver serve
//
// Apply the SQL schema:
//
//	evalserver migrate up
//
// # Environment Variables
//
// Configuration is environment-driven; see internal/config for the full
// list. The essentials:
//
//   - PORT: HTTP listener (OTLP/JSON, OTLP/Protobuf, REST), default 4318
//   - GRPC_PORT: OTLP/gRPC listener, default 4317
//   - DATABASE_URL, ELASTICSEARCH_URL, REDIS_URL: backing stores
//   - JWT_SECRET: bearer-JWT signing secret (API keys need no config)
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "evalserver",
		Short:        "evalserver - multi-tenant LLM evaluation and telemetry backend",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildMigrateCmd(),
		buildOrgCmd(),
	)

	return rootCmd
}
