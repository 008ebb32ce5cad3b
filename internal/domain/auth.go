package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrResetTokenNotFound = errors.New("reset token not found")
	// ErrResetTokenInvalid covers every reset failure: unknown account, unknown
	// token, foreign token, used token, expired token. Callers must not be able
	// to tell them apart.
	ErrResetTokenInvalid = errors.New("invalid or expired token")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	APIKey       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the projection of User that may leave the service.
type PublicUser struct {
	ID     string
	Name   string
	Email  string
	Role   Role
	APIKey string
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		APIKey: u.APIKey,
	}
}

type AuthPayload struct {
	AccessToken string
	User        PublicUser
}

type ResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token can still be consumed at now.
// Expiry is a predicate evaluated at use time, never a stored state.
func (t *ResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// NormalizeEmail is the single email identity policy: trimmed, lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
