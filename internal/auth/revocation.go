package auth

import (
	"context"
	"time"

	"github.com/honeynil/auth-service/internal/infrastructure/redis"
)

// BlacklistPrefix is the key namespace for revoked token ids.
const BlacklistPrefix = "jwt:blacklist:"

// RevocationManager maintains the denylist of token ids in Redis.
// Entries carry a TTL equal to the remaining lifetime of the token, so
// the denylist never outlives the tokens it guards.
type RevocationManager struct {
	store redis.RedisClient
}

func NewRevocationManager(store redis.RedisClient) *RevocationManager {
	return &RevocationManager{store: store}
}

// IsRevoked reports whether the token id is on the denylist. A store
// error is returned as-is; callers must not confuse it with "not
// revoked".
func (m *RevocationManager) IsRevoked(ctx context.Context, id string) (bool, error) {
	return m.store.Exists(ctx, BlacklistPrefix+id)
}

// Revoke puts a token id on the denylist until expiresAt. It is an
// idempotent no-op returning false when the id is already revoked.
// Already-expired tokens need no entry and also return true without a
// write.
func (m *RevocationManager) Revoke(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	revoked, err := m.IsRevoked(ctx, id)
	if err != nil {
		return false, err
	}
	if revoked {
		return false, nil
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return true, nil
	}
	if err := m.store.Set(ctx, BlacklistPrefix+id, "", ttl); err != nil {
		return false, err
	}
	return true, nil
}
