package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/forumhub/auth-service/internal/core/domain"
	"github.com/forumhub/auth-service/internal/core/ports"
)

// AuthService implements the login/refresh/logout protocol over the durable
// stores. It holds no mutable state of its own.
type AuthService struct {
	users    ports.UserRepository
	tokens   ports.RefreshTokenStore
	codec    ports.TokenCodec
	denylist ports.TokenDenylist
	audit    ports.AuditPublisher
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	tokens ports.RefreshTokenStore,
	codec ports.TokenCodec,
	denylist ports.TokenDenylist,
	audit ports.AuditPublisher,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		codec:    codec,
		denylist: denylist,
		audit:    audit,
		log:      log,
	}
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, domain.ErrBadCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        []string{domain.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(domain.EventRegister, created.ID, created.Email)
	return created, nil
}

// Login checks credentials and issues a fresh token pair. A missing user and
// a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrBadCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.publish(domain.EventLoginFailed, "", email)
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.publish(domain.EventLoginFailed, user.ID, email)
		return nil, domain.ErrBadCredentials
	}

	access, err := s.codec.Mint(user)
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokens.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.publish(domain.EventLoginOK, user.ID, email)
	return &ports.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		User:         user,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	record, err := s.tokens.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			s.publish(domain.EventRefreshDenied, "", "")
		}
		return "", err
	}

	if err := s.verifyExpiration(ctx, record); err != nil {
		s.publish(domain.EventRefreshDenied, record.UserID, "")
		return "", err
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		return "", err
	}

	access, err := s.codec.Mint(user)
	if err != nil {
		return "", err
	}

	s.publish(domain.EventRefreshOK, user.ID, user.Email)
	return access, nil
}

// verifyExpiration deletes the record and fails when its expiry has passed.
// This delete is the store's only self-cleaning path; a retried presentation
// of the same token yields ErrTokenNotFound.
func (s *AuthService) verifyExpiration(ctx context.Context, record *domain.RefreshToken) error {
	if !record.IsExpired(time.Now()) {
		return nil
	}
	if err := s.tokens.Delete(ctx, record.Token); err != nil {
		return err
	}
	return domain.ErrTokenExpired
}

// Logout revokes all refresh tokens for the user and denylists the presented
// access token. Calling it with no live tokens is a no-op, not an error.
func (s *AuthService) Logout(ctx context.Context, userID, tokenID string, tokenExpiry time.Time) (int64, error) {
	count, err := s.tokens.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	if ttl := time.Until(tokenExpiry); tokenID != "" && ttl > 0 {
		if err := s.denylist.Revoke(ctx, tokenID, ttl); err != nil {
			// Revocation still takes effect at natural expiry.
			s.log.Warn().Err(err).Str("user_id", userID).Msg("access token denylist failed")
		}
	}

	s.publish(domain.EventLogout, userID, "")
	return count, nil
}

// CurrentUser resolves the identity established by the auth middleware to a
// full account record.
func (s *AuthService) CurrentUser(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) publish(eventType, userID, email string) {
	if s.audit == nil {
		return
	}
	s.audit.Publish(domain.AuthEvent{
		Type:   eventType,
		UserID: userID,
		Email:  email,
		At:     time.Now().UTC(),
	})
}
