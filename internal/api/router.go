package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/forumhub/auth-service/internal/api/handler"
	"github.com/forumhub/auth-service/internal/api/middleware"
	"github.com/forumhub/auth-service/internal/core/ports"
	"github.com/forumhub/auth-service/internal/core/service"
	mongodb "github.com/forumhub/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/forumhub/auth-service/internal/infrastructure/db/redis"
	"github.com/forumhub/auth-service/internal/pkg/config"
	"github.com/forumhub/auth-service/internal/ratelimit"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, audit ports.AuditPublisher, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("auth"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	tokenRepo := mongodb.NewRefreshTokenRepository(db, cfg.Auth.RefreshTokenTTL())
	denylist := redisdb.NewDenylist(rdb)
	codec := service.NewJWTCodec(cfg.JWTSecret, cfg.Auth.AccessTokenTTL)
	authService := service.NewAuthService(userRepo, tokenRepo, codec, denylist, audit, log)
	authHandler := handler.NewAuthHandler(authService, newRefreshLimiter(cfg))
	authMiddleware := middleware.Auth(codec, denylist, log)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/refresh-token", authHandler.RefreshToken)
	e.POST("/auth/logout", authHandler.Logout, authMiddleware)
	e.GET("/auth/me", authHandler.Me, authMiddleware)

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	return e
}

// newRefreshLimiter builds the refresh-endpoint limiter. The default scope is
// a single bucket shared by every caller; "ip" keys one bucket per client IP.
func newRefreshLimiter(cfg *config.Config) ratelimit.Limiter {
	refillPerSec := cfg.RateLimit.RefillPerSec
	if refillPerSec < 1 {
		refillPerSec = 1
	}
	refillEvery := time.Second / time.Duration(refillPerSec)
	if cfg.RateLimit.Scope == config.RateLimitScopeIP {
		return ratelimit.NewKeyed(cfg.RateLimit.Capacity, refillEvery)
	}
	return ratelimit.NewBucket(cfg.RateLimit.Capacity, refillEvery)
}
