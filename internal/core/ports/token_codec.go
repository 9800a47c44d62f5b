package ports

import (
	"time"

	"github.com/forumhub/auth-service/internal/core/domain"
)

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	UserID    string
	Email     string
	Roles     []string
	TokenID   string
	ExpiresAt time.Time
}

// TokenCodec mints and verifies signed access tokens. Both operations are
// CPU-only; verification performs no I/O.
type TokenCodec interface {
	Mint(user *domain.User) (string, error)
	// Verify returns domain.ErrInvalidToken when the signature does not
	// validate or the expiry claim is in the past.
	Verify(token string) (*AccessClaims, error)
}
