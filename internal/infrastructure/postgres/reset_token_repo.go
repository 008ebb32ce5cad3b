package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ErlanBelekov/crm-backend/internal/domain"
	"github.com/ErlanBelekov/crm-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

type ResetTokenRepository struct {
	db DB
}

func NewResetTokenRepository(db DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO password_reset_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
		userID, tokenHash, expiresAt,
	)
	if err != nil {
		return oops.Code("RESET_TOKEN_CREATE_FAILED").With("user_id", userID).Wrap(err)
	}
	return nil
}

func (r *ResetTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*domain.ResetToken, error) {
	var t domain.ResetToken
	err := r.db.QueryRow(ctx, `
		SELECT id::text, user_id::text, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1`,
		tokenHash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResetTokenNotFound
		}
		return nil, oops.Code("RESET_TOKEN_LOOKUP_FAILED").Wrap(err)
	}
	return &t, nil
}

func (r *ResetTokenRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, oops.Code("RESET_TOKEN_DELETE_FAILED").With("user_id", userID).Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// Consume claims the token with a conditional UPDATE so two concurrent resets
// with the same secret cannot both succeed. The password change and sibling
// cleanup run in the same transaction.
func (r *ResetTokenRepository) Consume(ctx context.Context, in repository.ConsumeResetTokenInput) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").With("operation", "begin").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		UPDATE password_reset_tokens
		SET used_at = $2
		WHERE id = $1 AND user_id = $3 AND used_at IS NULL AND expires_at > $2`,
		in.TokenID, in.UsedAt, in.UserID,
	)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").With("operation", "claim token").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResetTokenInvalid
	}

	tag, err = tx.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		in.UserID, in.PasswordHash,
	)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").With("operation", "update password").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	if _, err = tx.Exec(ctx,
		`DELETE FROM password_reset_tokens WHERE user_id = $1 AND id <> $2`,
		in.UserID, in.TokenID,
	); err != nil {
		return oops.Code("RESET_CONSUME_FAILED").With("operation", "delete siblings").Wrap(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return oops.Code("RESET_CONSUME_FAILED").With("operation", "commit").Wrap(err)
	}
	return nil
}

func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, oops.Code("RESET_TOKEN_PURGE_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
