package repository

import (
	"context"

	"github.com/ErlanBelekov/crm-backend/internal/domain"
)

type CreateUserInput struct {
	Email        string
	PasswordHash string
	Name         string
	Role         domain.Role
	APIKey       string
}

type UserRepository interface {
	// FindByEmail expects an already normalized email. Returns domain.ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create returns domain.ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
}
