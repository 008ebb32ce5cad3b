package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ErlanBelekov/crm-backend/internal/domain"
	"github.com/ErlanBelekov/crm-backend/internal/metrics"
	"github.com/ErlanBelekov/crm-backend/internal/repository"
	"github.com/google/uuid"
)

const defaultResetTTL = 60 * time.Minute

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) (bool, error)
	// DummyHash is compared against when the account does not exist.
	DummyHash() string
}

type TokenSigner interface {
	Sign(userID, email string) (string, error)
}

type ResetNotifier interface {
	SendPasswordResetEmail(ctx context.Context, to, resetURL string) error
}

type AuthDeps struct {
	Users       repository.UserRepository
	ResetTokens repository.ResetTokenRepository
	Hasher      PasswordHasher
	Signer      TokenSigner
	Notifier    ResetNotifier
	Logger      *slog.Logger

	// FrontendURL is the base of the emailed reset link.
	FrontendURL string
	ResetTTL    time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type AuthUsecase struct {
	users       repository.UserRepository
	resetTokens repository.ResetTokenRepository
	hasher      PasswordHasher
	signer      TokenSigner
	notifier    ResetNotifier
	logger      *slog.Logger
	frontendURL string
	resetTTL    time.Duration
	now         func() time.Time
}

func NewAuthUsecase(deps AuthDeps) *AuthUsecase {
	u := &AuthUsecase{
		users:       deps.Users,
		resetTokens: deps.ResetTokens,
		hasher:      deps.Hasher,
		signer:      deps.Signer,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		frontendURL: strings.TrimRight(deps.FrontendURL, "/"),
		resetTTL:    deps.ResetTTL,
		now:         deps.Now,
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	u.logger = u.logger.With("component", "auth")
	if u.resetTTL <= 0 {
		u.resetTTL = defaultResetTTL
	}
	if u.now == nil {
		u.now = time.Now
	}
	return u
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// Register creates an account and signs the caller in.
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*domain.AuthPayload, error) {
	email := domain.NormalizeEmail(in.Email)

	_, err := u.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		record("register", "conflict")
		return nil, domain.ErrEmailTaken
	case !errors.Is(err, domain.ErrUserNotFound):
		record("register", "error")
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := u.hasher.Hash(ctx, in.Password)
	if err != nil {
		record("register", "error")
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}

	user, err := u.users.Create(ctx, repository.CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		APIKey:       uuid.NewString(),
	})
	if err != nil {
		// Lost the unique index race to a concurrent register.
		if errors.Is(err, domain.ErrEmailTaken) {
			record("register", "conflict")
			return nil, domain.ErrEmailTaken
		}
		record("register", "error")
		return nil, fmt.Errorf("create user: %w", err)
	}

	payload, err := u.buildAuthPayload(user)
	if err != nil {
		record("register", "error")
		return nil, err
	}
	record("register", "success")
	return payload, nil
}

// Login returns domain.ErrInvalidCredentials for an unknown email and for a
// wrong password alike.
func (u *AuthUsecase) Login(ctx context.Context, email, password string) (*domain.AuthPayload, error) {
	user, err := u.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		record("login", "error")
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash := u.hasher.DummyHash()
	if user != nil {
		hash = user.PasswordHash
	}
	ok, err := u.hasher.Verify(ctx, password, hash)
	if err != nil {
		record("login", "error")
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if user == nil || !ok {
		record("login", "unauthorized")
		return nil, domain.ErrInvalidCredentials
	}

	payload, err := u.buildAuthPayload(user)
	if err != nil {
		record("login", "error")
		return nil, err
	}
	record("login", "success")
	return payload, nil
}

// ForgotPassword issues a fresh reset token and emails the link. An unknown
// email is a silent no-op. Callers should report success regardless of the
// returned error, which only carries store or delivery failures for logging.
func (u *AuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			record("forgot_password", "unknown_email")
			return nil
		}
		record("forgot_password", "error")
		return fmt.Errorf("find user: %w", err)
	}

	if _, err = u.resetTokens.DeleteByUser(ctx, user.ID); err != nil {
		record("forgot_password", "error")
		return fmt.Errorf("delete previous reset tokens: %w", err)
	}

	raw := make([]byte, 32)
	if _, err = io.ReadFull(rand.Reader, raw); err != nil {
		record("forgot_password", "error")
		return fmt.Errorf("generate token: %w", err)
	}
	rawToken := hex.EncodeToString(raw)

	expiresAt := u.now().Add(u.resetTTL)
	if err = u.resetTokens.Create(ctx, user.ID, hashToken(rawToken), expiresAt); err != nil {
		record("forgot_password", "error")
		return fmt.Errorf("store reset token: %w", err)
	}
	metrics.ResetTokensIssuedTotal.Inc()

	link := u.frontendURL + "/reset-password?token=" + rawToken + "&email=" + url.QueryEscape(user.Email)
	if err = u.notifier.SendPasswordResetEmail(ctx, user.Email, link); err != nil {
		record("forgot_password", "error")
		return fmt.Errorf("send reset email: %w", err)
	}

	u.logger.InfoContext(ctx, "password reset issued", "user_id", user.ID, "expires_at", expiresAt)
	record("forgot_password", "success")
	return nil
}

// ResetPassword sets a new password if token is a live reset token of the
// account identified by email. Every rejection is domain.ErrResetTokenInvalid.
func (u *AuthUsecase) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	user, err := u.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			record("reset_password", "invalid_token")
			return domain.ErrResetTokenInvalid
		}
		record("reset_password", "error")
		return fmt.Errorf("find user: %w", err)
	}

	rt, err := u.resetTokens.FindByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrResetTokenNotFound) {
			record("reset_password", "invalid_token")
			return domain.ErrResetTokenInvalid
		}
		record("reset_password", "error")
		return fmt.Errorf("find reset token: %w", err)
	}

	now := u.now()
	if rt.UserID != user.ID || !rt.Usable(now) {
		record("reset_password", "invalid_token")
		return domain.ErrResetTokenInvalid
	}

	hash, err := u.hasher.Hash(ctx, newPassword)
	if err != nil {
		record("reset_password", "error")
		return fmt.Errorf("hash password: %w", err)
	}

	err = u.resetTokens.Consume(ctx, repository.ConsumeResetTokenInput{
		TokenID:      rt.ID,
		UserID:       user.ID,
		PasswordHash: hash,
		UsedAt:       now,
	})
	if err != nil {
		// A concurrent reset consumed it first, or the user was deleted mid-flight.
		if errors.Is(err, domain.ErrResetTokenInvalid) || errors.Is(err, domain.ErrUserNotFound) {
			record("reset_password", "invalid_token")
			return domain.ErrResetTokenInvalid
		}
		record("reset_password", "error")
		return fmt.Errorf("consume reset token: %w", err)
	}

	u.logger.InfoContext(ctx, "password reset completed", "user_id", user.ID)
	record("reset_password", "success")
	return nil
}

// Me returns the public projection of the authenticated user.
func (u *AuthUsecase) Me(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	pub := user.Public()
	return &pub, nil
}

func (u *AuthUsecase) buildAuthPayload(user *domain.User) (*domain.AuthPayload, error) {
	signed, err := u.signer.Sign(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}
	return &domain.AuthPayload{AccessToken: signed, User: user.Public()}, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func record(operation, outcome string) {
	metrics.AuthOperationsTotal.WithLabelValues(operation, outcome).Inc()
}
