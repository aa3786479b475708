package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the vdjaccounts CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vdjaccounts",
		Short: "VDJ account service",
		Long: `vdjaccounts manages user accounts for the VDJ platform: registration,
authentication, profile updates, password resets, and brokering OAuth
tokens from the platform authorization server.

Configuration is read from VDJ_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewTokenCmd())
	cmd.AddCommand(NewAuditCmd())

	return cmd
}
