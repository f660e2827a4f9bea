// Package redis holds the Redis-backed token denylist shared across server
// instances, replacing the single-process in-memory blacklist the platform
// started with.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"quizhub/internal/domain"
)

// TokenDenylist marks revoked session tokens in Redis. Entries expire on
// their own once the token itself would have expired, so the set never needs
// sweeping.
type TokenDenylist struct {
	client *redis.Client
}

func NewTokenDenylist(client *redis.Client) *TokenDenylist {
	return &TokenDenylist{client: client}
}

func (d *TokenDenylist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.key(token), "1", ttl).Err(); err != nil {
		return domain.Unavailable("revoke token: %v", err)
	}
	return nil
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := d.client.Get(ctx, d.key(token)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, domain.Unavailable("check token: %v", err)
	}
	return true, nil
}

// key hashes the token so raw credentials never land in Redis.
func (d *TokenDenylist) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:denylist:" + hex.EncodeToString(sum[:])
}
