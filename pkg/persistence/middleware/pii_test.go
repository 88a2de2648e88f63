package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"(?i)password", "^ssn$"})
	require.NoError(t, err)
	store := mw(underlying)

	customer := map[string]any{
		"name": "Ada",
		"ssn":  "123-45-6789",
		"login": map[string]any{
			"user":     "ada",
			"Password": "hunter2",
		},
		"history": []any{map[string]any{"ssn": "old"}},
	}
	require.NoError(t, store.Put(ctx, "customer", customer))
	require.NoError(t, store.Put(ctx, "db_password", "s3cret"))

	val, ok, err := store.Get(ctx, "customer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"name":    "Ada",
		"ssn":     middleware.Mask,
		"login":   map[string]any{"user": "ada", "Password": middleware.Mask},
		"history": []any{map[string]any{"ssn": middleware.Mask}},
	}, val)

	val, _, err = store.Get(ctx, "db_password")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, val)

	// The caller's value is untouched.
	assert.Equal(t, "123-45-6789", customer["ssn"])
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_Order(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"token"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: make([]byte, 32)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, enc)
	require.NoError(t, store.Put(ctx, "session", map[string]any{"token": "abc", "user": "ada"}))

	val, ok, err := store.Get(ctx, "session")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"token": middleware.Mask, "user": "ada"}, val)

	raw, _, err := underlying.Get(ctx, "session")
	require.NoError(t, err)
	assert.Contains(t, raw, middleware.EnvelopeField)
}
