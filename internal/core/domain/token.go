package domain

import (
	"errors"
	"time"
)

var ErrTokenNotFound = errors.New("refresh token not found")
var ErrTokenExpired = errors.New("refresh token expired")
var ErrInvalidToken = errors.New("invalid access token")

// RefreshToken is a long-lived opaque credential exchanged for new access
// tokens. The opaque string is the lookup key; the expiry is fixed at
// creation and never extended — a token is deleted and replaced, not renewed.
type RefreshToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the token's expiry lies before now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
