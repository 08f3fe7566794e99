package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts both OTLP
// listeners plus the metrics/health listener.
func buildServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the evalserver ingestion and API process",
		Long: `Start evalserver with all three ingestion transports and the REST API.

The process will:
1. Load configuration from the environment
2. Connect to Postgres, Elasticsearch, and Redis
3. Serve HTTP/JSON, HTTP/Protobuf, and the REST API on PORT
4. Serve OTLP/gRPC on GRPC_PORT
5. Serve /healthz and /metrics on METRICS_PORT

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	return cmd
}
