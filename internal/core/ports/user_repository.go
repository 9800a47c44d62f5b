package ports

import (
	"context"

	"github.com/forumhub/auth-service/internal/core/domain"
)

// UserRepository defines the persistence surface for forum accounts consumed
// by the auth core. Lookups return domain.ErrUserNotFound when absent.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}
