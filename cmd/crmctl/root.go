package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	ctxlog "github.com/ErlanBelekov/crm-backend/internal/log"
)

// NewRootCmd creates the root command for crmctl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crmctl",
		Short:         "Operate the CRM backend",
		SilenceUsage:  true,
	}

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewPurgeResetTokensCmd())

	return cmd
}

func cliLogger(env string, level slog.Level) *slog.Logger {
	return ctxlog.New(os.Stderr, env, level)
}
