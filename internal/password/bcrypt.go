// Package password hashes and verifies user passwords with bcrypt.
//
// bcrypt is CPU-bound, so the number of concurrent hash/compare operations
// is capped by a weighted semaphore. Callers block on ctx while waiting for
// a slot.
package password

import (
	"context"
	"errors"
	"time"

	"github.com/ErlanBelekov/crm-backend/internal/metrics"
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// BcryptHasher implements usecase.PasswordHasher.
type BcryptHasher struct {
	cost  int
	slots *semaphore.Weighted
	dummy string
}

// NewBcryptHasher returns a hasher using the given bcrypt cost that allows at
// most workers concurrent operations. It computes the dummy hash up front and
// fails if the cost is out of range.
func NewBcryptHasher(cost, workers int) (*BcryptHasher, error) {
	if workers < 1 {
		workers = 1
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("crm-dummy-password"), cost)
	if err != nil {
		return nil, oops.Code("PASSWORD_HASH_FAILED").With("cost", cost).Wrap(err)
	}
	return &BcryptHasher{
		cost:  cost,
		slots: semaphore.NewWeighted(int64(workers)),
		dummy: string(dummy),
	}, nil
}

func (h *BcryptHasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	start := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	return string(hash), nil
}

// Verify reports whether plain matches hash. A mismatch is (false, nil);
// only malformed hashes or cancelled contexts return an error.
func (h *BcryptHasher) Verify(ctx context.Context, plain, hash string) (bool, error) {
	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer h.slots.Release(1)

	start := time.Now()
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("PASSWORD_VERIFY_FAILED").Wrap(err)
	}
}

// DummyHash returns a fixed hash at the hasher's cost. Comparing against it
// costs the same as comparing against a real user's hash, so login for an
// unknown email takes as long as a wrong password.
func (h *BcryptHasher) DummyHash() string {
	return h.dummy
}

func (h *BcryptHasher) acquire(ctx context.Context) error {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return oops.Code("PASSWORD_HASH_BUSY").Wrap(err)
	}
	return nil
}
