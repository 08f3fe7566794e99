package main

import (
	"github.com/spf13/cobra"
)

// buildOrgCmd creates the "org" command group — the only way organisation
// records are created, since spec.md section 1 excludes organisation CRUD
// from the REST surface (DESIGN.md Open Question iv).
func buildOrgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organisations",
	}
	cmd.AddCommand(buildOrgCreateCmd())
	cmd.AddCommand(buildApiKeyCreateCmd())
	return cmd
}

func buildOrgCreateCmd() *cobra.Command {
	var (
		name string
		tier string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an organisation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrgCreate(cmd, name, tier)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Organisation display name (required)")
	cmd.Flags().StringVar(&tier, "tier", "free", "Subscription tier: free, trial, pro, enterprise")
	return cmd
}

func buildApiKeyCreateCmd() *cobra.Command {
	var (
		organisationID string
		role           string
		name           string
	)
	cmd := &cobra.Command{
		Use:   "apikey-create",
		Short: "Issue an API key for an organisation, printing the plaintext once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPIKeyCreate(cmd, organisationID, role, name)
		},
	}
	cmd.Flags().StringVar(&organisationID, "organisation", "", "Organisation id (required)")
	cmd.Flags().StringVar(&role, "role", "developer", "Role: trace, developer, admin")
	cmd.Flags().StringVar(&name, "name", "", "Label for this key")
	return cmd
}
