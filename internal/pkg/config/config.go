package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Rate-limiter scopes for the refresh endpoint.
const (
	RateLimitScopeGlobal = "global"
	RateLimitScopeIP     = "ip"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Auth      AuthConfig
	RateLimit RateLimitConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

type AuthConfig struct {
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL,     default=15m"`
	// RefreshTokenTTLMs is kept in milliseconds to match the stored
	// expiry precision.
	RefreshTokenTTLMs int64 `env:"REFRESH_TOKEN_TTL_MS, default=86400000"`
}

// RefreshTokenTTL returns the refresh-token lifetime as a duration.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLMs) * time.Millisecond
}

type RateLimitConfig struct {
	Capacity     int64  `env:"RATE_LIMIT_CAPACITY,       default=3"`
	RefillPerSec int64  `env:"RATE_LIMIT_REFILL_PER_SEC, default=1"`
	Scope        string `env:"RATE_LIMIT_SCOPE,          default=global"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=forum_auth"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
