package ports

import (
	"context"
	"time"
)

// TokenDenylist tracks access-token IDs revoked before their natural expiry,
// so a logged-out access token stops working immediately.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
