package ports

import (
	"context"

	"github.com/forumhub/auth-service/internal/core/domain"
)

// RefreshTokenStore is the durable mapping from opaque refresh-token string
// to its owning user and expiry.
type RefreshTokenStore interface {
	// Create generates a new opaque token for the user with the store's
	// configured TTL and persists it. A token collision is an integrity
	// violation surfaced as an error, never retried.
	Create(ctx context.Context, userID string) (*domain.RefreshToken, error)

	// FindByToken resolves the opaque string, returning
	// domain.ErrTokenNotFound when absent.
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)

	// Delete removes a single record by its opaque string. Deleting an
	// absent record is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser removes every record owned by the user and reports how
	// many were deleted. Idempotent.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
