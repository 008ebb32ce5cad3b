package password_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ErlanBelekov/crm-backend/internal/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func newHasher(t *testing.T, workers int) *password.BcryptHasher {
	t.Helper()
	h, err := password.NewBcryptHasher(bcrypt.MinCost, workers)
	require.NoError(t, err)
	return h
}

func TestHash_VerifyRoundTrip(t *testing.T) {
	h := newHasher(t, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"), "unexpected hash format %q", hash)

	ok, err := h.Verify(ctx, "hunter22", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "hunter23", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_SaltsEachCall(t *testing.T) {
	h := newHasher(t, 1)
	ctx := context.Background()

	a, err := h.Hash(ctx, "same-password")
	require.NoError(t, err)
	b, err := h.Hash(ctx, "same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerify_MalformedHash(t *testing.T) {
	h := newHasher(t, 1)

	ok, err := h.Verify(context.Background(), "whatever", "not-a-bcrypt-hash")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestHash_CancelledContext(t *testing.T) {
	h := newHasher(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "hunter22")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDummyHash_NeverMatchesUserInput(t *testing.T) {
	h := newHasher(t, 1)

	dummy := h.DummyHash()
	assert.Equal(t, dummy, h.DummyHash(), "dummy hash should be stable")

	ok, err := h.Verify(context.Background(), "hunter22", dummy)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewBcryptHasher_InvalidCost(t *testing.T) {
	h, err := password.NewBcryptHasher(bcrypt.MaxCost+1, 1)
	require.Error(t, err)
	assert.Nil(t, h)
}

func TestDummyHash_ReadyAtConstruction(t *testing.T) {
	h := newHasher(t, 1)

	cost, err := bcrypt.Cost([]byte(h.DummyHash()))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestConcurrentHashing_NoLeaks(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHasher(t, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := h.Hash(ctx, "parallel")
			if err != nil {
				errs <- err
				return
			}
			if ok, err := h.Verify(ctx, "parallel", hash); err != nil || !ok {
				errs <- errors.New("verify failed")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
