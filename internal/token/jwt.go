// Package token issues and verifies the HS256 session tokens handed out by
// register and login.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// ErrInvalid is returned by Verify for any token that is malformed, expired,
// signed with another key or algorithm, or missing a subject.
var ErrInvalid = errors.New("invalid session token")

// Claims is the JWT payload: the standard claims plus the user's email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// JWTSigner implements usecase.TokenSigner.
type JWTSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewJWTSigner(key []byte, ttl time.Duration) *JWTSigner {
	return &JWTSigner{key: key, ttl: ttl, now: time.Now}
}

// Sign returns a compact JWT with sub=userID, the email, iat and exp=iat+ttl.
func (s *JWTSigner) Sign(userID, email string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", oops.Code("JWT_SIGN_FAILED").With("user_id", userID).Wrap(err)
	}
	return signed, nil
}

// Verify parses raw and returns its claims. Only HS256 is accepted.
func (s *JWTSigner) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
