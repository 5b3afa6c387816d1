package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/honeynil/auth-service/internal/infrastructure/redis"
	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, redis.RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(mr.Addr())
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRevocationManager_Revoke(t *testing.T) {
	mr, store := newTestStore(t)
	rm := NewRevocationManager(store)
	ctx := context.Background()

	expiresAt := time.Now().Add(time.Hour)

	revoked, err := rm.IsRevoked(ctx, "jti-1")
	assert.NoError(t, err)
	assert.False(t, revoked)

	ok, err := rm.Revoke(ctx, "jti-1", expiresAt)
	assert.NoError(t, err)
	assert.True(t, ok)

	revoked, err = rm.IsRevoked(ctx, "jti-1")
	assert.NoError(t, err)
	assert.True(t, revoked)

	// Second revoke is an idempotent no-op.
	ok, err = rm.Revoke(ctx, "jti-1", expiresAt)
	assert.NoError(t, err)
	assert.False(t, ok)

	// Entry is namespaced and carries the remaining-lifetime TTL.
	assert.True(t, mr.Exists(BlacklistPrefix+"jti-1"))
	ttl := mr.TTL(BlacklistPrefix + "jti-1")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestRevocationManager_EntryLapsesWithToken(t *testing.T) {
	mr, store := newTestStore(t)
	rm := NewRevocationManager(store)
	ctx := context.Background()

	ok, err := rm.Revoke(ctx, "jti-2", time.Now().Add(30*time.Minute))
	assert.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(31 * time.Minute)

	revoked, err := rm.IsRevoked(ctx, "jti-2")
	assert.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationManager_ExpiredTokenNeedsNoEntry(t *testing.T) {
	mr, store := newTestStore(t)
	rm := NewRevocationManager(store)
	ctx := context.Background()

	ok, err := rm.Revoke(ctx, "jti-3", time.Now().Add(-time.Minute))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists(BlacklistPrefix+"jti-3"))
}

func TestRevocationManager_StoreError(t *testing.T) {
	mr, store := newTestStore(t)
	rm := NewRevocationManager(store)
	ctx := context.Background()

	mr.SetError("store down")

	_, err := rm.IsRevoked(ctx, "jti-4")
	assert.Error(t, err)

	_, err = rm.Revoke(ctx, "jti-4", time.Now().Add(time.Hour))
	assert.Error(t, err)
}
