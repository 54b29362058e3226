package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenGuard marks consumed reset tokens in Redis so a reset link cannot be
// replayed within its validity window.
// Key format: reset_used:<token_id>
type TokenGuard struct {
	client *redis.Client
}

// NewTokenGuard creates a TokenGuard wrapping the given Redis client.
func NewTokenGuard(client *redis.Client) *TokenGuard {
	return &TokenGuard{client: client}
}

// IsUsed reports whether this token has already been consumed.
func (g *TokenGuard) IsUsed(ctx context.Context, tokenID string) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("token guard check: %w", err)
	}
	return n > 0, nil
}

// MarkUsed records the token as consumed. The entry expires with the token
// itself, so the set stays bounded.
func (g *TokenGuard) MarkUsed(ctx context.Context, tokenID string, ttl time.Duration) error {
	return g.client.Set(ctx, g.key(tokenID), "1", ttl).Err()
}

func (g *TokenGuard) key(tokenID string) string {
	return "reset_used:" + tokenID
}
