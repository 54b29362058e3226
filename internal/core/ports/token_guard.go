package ports

import (
	"context"
	"time"
)

// ResetTokenGuard tracks consumed reset tokens so a leaked reset link cannot
// be replayed. Optional: when no guard is configured, reset tokens remain
// valid until expiry.
type ResetTokenGuard interface {
	IsUsed(ctx context.Context, tokenID string) (bool, error)
	MarkUsed(ctx context.Context, tokenID string, ttl time.Duration) error
}
