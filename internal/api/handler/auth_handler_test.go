package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/forumhub/auth-service/internal/core/domain"
	"github.com/forumhub/auth-service/internal/core/ports"
	"github.com/forumhub/auth-service/internal/ratelimit"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, username, email, password string) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	refreshFn  func(ctx context.Context, refreshToken string) (string, error)
	logoutFn   func(ctx context.Context, userID, tokenID string, tokenExpiry time.Time) (int64, error)
	currentFn  func(ctx context.Context, email string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	return s.registerFn(ctx, username, email, password)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) Logout(ctx context.Context, userID, tokenID string, tokenExpiry time.Time) (int64, error) {
	return s.logoutFn(ctx, userID, tokenID, tokenExpiry)
}

func (s *stubAuthService) CurrentUser(ctx context.Context, email string) (*domain.User, error) {
	return s.currentFn(ctx, email)
}

type stubLimiter struct {
	result ratelimit.ConsumptionResult
	keys   []string
}

func (l *stubLimiter) TryConsume(key string) ratelimit.ConsumptionResult {
	l.keys = append(l.keys, key)
	return l.result
}

func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, username, email, password string) (*domain.User, error) {
			if username != "alice" || email != "alice@example.com" {
				t.Fatalf("unexpected args: %s %s", username, email)
			}
			return &domain.User{ID: "u1", Username: username, Email: email}, nil
		},
	}
	h := NewAuthHandler(stub, &stubLimiter{})

	c, rec := newTestContext(t, http.MethodPost, "/auth/register", `{"username":"alice","email":"alice@example.com","password":"longenough"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_ShortPassword(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, &stubLimiter{})

	c, _ := newTestContext(t, http.MethodPost, "/auth/register", `{"username":"alice","email":"alice@example.com","password":"short"}`)
	err := h.Register(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.LoginResult, error) {
			if email != "alice@example.com" || password != "s3cret-pass" {
				t.Fatalf("unexpected credentials: %s %s", email, password)
			}
			return &ports.LoginResult{
				AccessToken:  "access-token",
				RefreshToken: "refresh-token",
				User:         &domain.User{ID: "u1", Email: email},
			}, nil
		},
	}
	h := NewAuthHandler(stub, &stubLimiter{})

	c, rec := newTestContext(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"s3cret-pass"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["accessToken"] != "access-token" || resp["refreshToken"] != "refresh-token" {
		t.Fatalf("unexpected body: %v", resp)
	}
	if resp["tokenType"] != "Bearer" {
		t.Fatalf("expected Bearer token type, got %v", resp["tokenType"])
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, &stubLimiter{})

	c, _ := newTestContext(t, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":""}`)
	err := h.Login(c)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Refresh_Success(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) (string, error) {
			if refreshToken != "refresh-token" {
				t.Fatalf("unexpected token: %s", refreshToken)
			}
			return "new-access", nil
		},
	}
	limiter := &stubLimiter{result: ratelimit.ConsumptionResult{Allowed: true, RemainingTokens: 2}}
	h := NewAuthHandler(stub, limiter)

	c, rec := newTestContext(t, http.MethodPost, "/auth/refresh-token", `{"refreshToken":"refresh-token"}`)
	if err := h.RefreshToken(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Rate-Limit-Remaining"); got != "2" {
		t.Fatalf("expected remaining header 2, got %q", got)
	}

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["accessToken"] != "new-access" {
		t.Fatalf("unexpected body: %v", resp)
	}
}

func TestAuthHandler_Refresh_FromCookie(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) (string, error) {
			if refreshToken != "cookie-token" {
				t.Fatalf("unexpected token: %s", refreshToken)
			}
			return "new-access", nil
		},
	}
	h := NewAuthHandler(stub, &stubLimiter{result: ratelimit.ConsumptionResult{Allowed: true}})

	c, rec := newTestContext(t, http.MethodPost, "/auth/refresh-token", "")
	c.Request().AddCookie(&http.Cookie{Name: refreshCookie, Value: "cookie-token"})
	if err := h.RefreshToken(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Refresh_RateLimited(t *testing.T) {
	limiter := &stubLimiter{result: ratelimit.ConsumptionResult{
		Allowed:          false,
		NanosUntilRefill: int64(time.Second),
	}}
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) (string, error) {
			t.Fatalf("service must not be reached when rate limited")
			return "", nil
		},
	}
	h := NewAuthHandler(stub, limiter)

	c, rec := newTestContext(t, http.MethodPost, "/auth/refresh-token", `{"refreshToken":"refresh-token"}`)
	if err := h.RefreshToken(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Rate-Limit-Retry-After-Milliseconds"); got != "1000" {
		t.Fatalf("expected retry-after 1000ms, got %q", got)
	}
}

func TestAuthHandler_Refresh_MissingToken(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, &stubLimiter{result: ratelimit.ConsumptionResult{Allowed: true}})

	c, _ := newTestContext(t, http.MethodPost, "/auth/refresh-token", "")
	err := h.RefreshToken(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	stub := &stubAuthService{
		logoutFn: func(ctx context.Context, userID, tokenID string, tokenExpiry time.Time) (int64, error) {
			if userID != "u1" || tokenID != "jti-1" || !tokenExpiry.Equal(expiry) {
				t.Fatalf("unexpected args: %s %s %v", userID, tokenID, tokenExpiry)
			}
			return 2, nil
		},
	}
	h := NewAuthHandler(stub, &stubLimiter{})

	c, rec := newTestContext(t, http.MethodPost, "/auth/logout", "")
	c.Set("user_id", "u1")
	c.Set("email", "alice@example.com")
	c.Set("token_id", "jti-1")
	c.Set("token_expires_at", expiry)

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["revoked"] != float64(2) {
		t.Fatalf("unexpected body: %v", resp)
	}
}

func TestAuthHandler_Logout_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, &stubLimiter{})

	c, _ := newTestContext(t, http.MethodPost, "/auth/logout", "")
	err := h.Logout(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	stub := &stubAuthService{
		currentFn: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: "u1", Email: email, Username: "alice"}, nil
		},
	}
	h := NewAuthHandler(stub, &stubLimiter{})

	c, rec := newTestContext(t, http.MethodGet, "/auth/me", "")
	c.Set("user_id", "u1")
	c.Set("email", "alice@example.com")

	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["username"] != "alice" {
		t.Fatalf("unexpected body: %v", resp)
	}
}
