package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/crm-backend/internal/domain"
)

type ConsumeResetTokenInput struct {
	TokenID      string
	UserID       string
	PasswordHash string
	UsedAt       time.Time
}

type ResetTokenRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// FindByHash returns domain.ErrResetTokenNotFound when no row matches.
	FindByHash(ctx context.Context, tokenHash string) (*domain.ResetToken, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// Consume atomically sets the user's password hash, marks the token used and
	// deletes every other token of the user. If the token was consumed or expired
	// in the meantime nothing is written and domain.ErrResetTokenInvalid is returned.
	Consume(ctx context.Context, input ConsumeResetTokenInput) error

	// DeleteExpired removes tokens whose expiry is before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
