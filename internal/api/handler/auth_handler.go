package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/forumhub/auth-service/internal/api/metrics"
	"github.com/forumhub/auth-service/internal/core/domain"
	"github.com/forumhub/auth-service/internal/core/ports"
	"github.com/forumhub/auth-service/internal/ratelimit"
)

// refreshCookie is the fallback location for the refresh token when the JSON
// body carries none.
const refreshCookie = "refresh_token"

type AuthHandler struct {
	authService ports.AuthService
	limiter     ratelimit.Limiter
}

func NewAuthHandler(authService ports.AuthService, limiter ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{authService: authService, limiter: limiter}
}

// Register creates a new forum account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := h.authService.Register(c.Request().Context(), req.Username, req.Email, req.Password); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, messageResponse{Message: "user registered successfully"})
}

// Login authenticates a user and returns an access/refresh token pair.
//
// @Summary      Log a user in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	start := time.Now()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrBadCredentials) {
			metrics.LoginsTotal.WithLabelValues("bad_credentials").Inc()
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	metrics.LoginDuration.Observe(time.Since(start).Seconds())

	return c.JSON(http.StatusOK, loginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		User:         result.User,
	})
}

// RefreshToken exchanges a refresh token for a new access token. The endpoint
// sits behind the token bucket: a denied probe short-circuits with 429 before
// any store access.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token (falls back to the refresh_token cookie)"
// @Success      200   {object}  refreshResponse
// @Failure      403   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	probe := h.limiter.TryConsume(c.RealIP())
	if !probe.Allowed {
		metrics.TokenRefreshTotal.WithLabelValues("rate_limited").Inc()
		retryAfter := probe.NanosUntilRefill / int64(time.Millisecond)
		c.Response().Header().Set("X-Rate-Limit-Retry-After-Milliseconds", strconv.FormatInt(retryAfter, 10))
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
	}

	token := h.extractRefreshToken(c)
	if token == "" {
		metrics.TokenRefreshTotal.WithLabelValues("not_found").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "missing refresh token")
	}

	access, err := h.authService.Refresh(c.Request().Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenNotFound):
			metrics.TokenRefreshTotal.WithLabelValues("not_found").Inc()
		case errors.Is(err, domain.ErrTokenExpired):
			metrics.TokenRefreshTotal.WithLabelValues("expired").Inc()
		}
		return err
	}

	metrics.TokenRefreshTotal.WithLabelValues("ok").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()

	c.Response().Header().Set("X-Rate-Limit-Remaining", strconv.FormatInt(probe.RemainingTokens, 10))
	return c.JSON(http.StatusOK, refreshResponse{AccessToken: access, TokenType: "Bearer"})
}

// Logout revokes every refresh token of the caller and denylists the
// presented access token.
//
// @Summary      Log the current user out everywhere
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  logoutResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	tokenID, _ := c.Get("token_id").(string)
	tokenExpiry, _ := c.Get("token_expires_at").(time.Time)

	count, err := h.authService.Logout(c.Request().Context(), userID, tokenID, tokenExpiry)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, logoutResponse{Message: "logged out", Revoked: count})
}

// Me returns the account of the authenticated caller.
//
// @Summary      Get the current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	_, email, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	user, err := h.authService.CurrentUser(c.Request().Context(), email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) extractRefreshToken(c echo.Context) string {
	var req refreshRequest
	if err := c.Bind(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := c.Cookie(refreshCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
