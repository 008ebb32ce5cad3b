package main

import (
	"errors"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/crm-backend/config"
	"github.com/ErlanBelekov/crm-backend/internal/domain"
	"github.com/ErlanBelekov/crm-backend/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/crm-backend/internal/password"
	"github.com/ErlanBelekov/crm-backend/internal/token"
	"github.com/ErlanBelekov/crm-backend/internal/usecase"
)

type seedOptions struct {
	email    string
	password string
	name     string
	role     string
}

// NewSeedCmd creates a demo account through the normal registration path.
func NewSeedCmd() *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Register a demo user for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "seed@test.local", "account email")
	cmd.Flags().StringVar(&opts.password, "password", "seed-password", "account password")
	cmd.Flags().StringVar(&opts.name, "name", "Seed User", "display name")
	cmd.Flags().StringVar(&opts.role, "role", string(domain.RoleAdmin), "user or admin")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *seedOptions) error {
	role := domain.Role(opts.role)
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return oops.Code("INVALID_ROLE").With("role", opts.role).Errorf("role must be user or admin")
	}

	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := cliLogger(cfg.Env, cfg.SlogLevel())
	ctx := cmd.Context()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	hasher, err := password.NewBcryptHasher(cfg.BcryptCost, 1)
	if err != nil {
		return err
	}

	uc := usecase.NewAuthUsecase(usecase.AuthDeps{
		Users:       postgres.NewUserRepository(pool),
		ResetTokens: postgres.NewResetTokenRepository(pool),
		Hasher:      hasher,
		Signer:      token.NewJWTSigner([]byte(cfg.JWTSecret), cfg.JWTTTL()),
		Logger:      logger,
		FrontendURL: cfg.FrontendURL,
	})

	payload, err := uc.Register(ctx, usecase.RegisterInput{
		Email:    opts.email,
		Password: opts.password,
		Name:     opts.name,
		Role:     role,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		cmd.Printf("User %s already exists, nothing to do\n", opts.email)
		return nil
	}
	if err != nil {
		return oops.Code("SEED_FAILED").With("email", opts.email).Wrap(err)
	}

	cmd.Printf("Seeded %s (id=%s role=%s)\n", payload.User.Email, payload.User.ID, payload.User.Role)
	cmd.Printf("Access token: %s\n", payload.AccessToken)
	return nil
}
