package main

import (
	"github.com/spf13/cobra"
)

// buildMigrateCmd creates the "migrate" command group.
func buildMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL schema",
		Long: `Create the organisations/api_keys/datasets/experiments tables this
service's Postgres store addresses, if they do not already exist.`,
	}
	cmd.AddCommand(buildMigrateUpCmd())
	return cmd
}

func buildMigrateUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Create any missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd)
		},
	}
	return cmd
}
