package ports

import (
	"context"
	"time"

	"github.com/forumhub/auth-service/internal/core/domain"
)

// LoginResult carries the token pair issued by a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

// AuthService orchestrates the login, refresh and logout protocol flows.
// Rate limiting of refresh is applied by the transport boundary, not here.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Refresh exchanges a live refresh token for a new access token. The
	// refresh token itself is not rotated; it stays valid until its
	// original expiry or explicit revocation.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Logout revokes every refresh token owned by the user and denylists
	// the presented access token until its natural expiry. Idempotent.
	Logout(ctx context.Context, userID, tokenID string, tokenExpiry time.Time) (int64, error)
	// CurrentUser maps the ambient caller identity to the full account
	// record, for collaborator services doing ownership checks.
	CurrentUser(ctx context.Context, email string) (*domain.User, error)
}
