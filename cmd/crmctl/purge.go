package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/crm-backend/config"
	"github.com/ErlanBelekov/crm-backend/internal/cleanup"
	"github.com/ErlanBelekov/crm-backend/internal/infrastructure/postgres"
)

// NewPurgeResetTokensCmd runs a single reaper cycle.
func NewPurgeResetTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-reset-tokens",
		Short: "Delete expired password reset tokens once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadReaper()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			ctx := cmd.Context()

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			reaper := cleanup.NewResetTokenReaper(
				postgres.NewResetTokenRepository(pool),
				cfg.ResetPurgeCron,
				cliLogger(cfg.Env, cfg.SlogLevel()),
			)
			n, err := reaper.Reap(ctx)
			if err != nil {
				return oops.Code("PURGE_FAILED").Wrap(err)
			}

			cmd.Printf("Deleted %d expired reset tokens\n", n)
			return nil
		},
	}
}
