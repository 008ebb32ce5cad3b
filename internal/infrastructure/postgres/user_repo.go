package postgres

import (
	"context"
	"errors"

	"github.com/ErlanBelekov/crm-backend/internal/domain"
	"github.com/ErlanBelekov/crm-backend/internal/repository"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

const userColumns = `id::text, email, password_hash, name, role, api_key, created_at, updated_at`

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("by", "email").Wrap(err)
	}
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("by", "id").With("user_id", id).Wrap(err)
	}
	return u, err
}

func (r *UserRepository) Create(ctx context.Context, input repository.CreateUserInput) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, role, api_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		input.Email, input.PasswordHash, input.Name, string(input.Role), input.APIKey,
	)

	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == "users_email_key" {
			return nil, domain.ErrEmailTaken
		}
		return nil, oops.Code("USER_CREATE_FAILED").Wrap(err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.APIKey, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
