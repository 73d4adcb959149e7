package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8000"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`

	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Changing JWTSecret invalidates every token issued under the previous one.
	JWTSecret       string        `env:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	OrderRateLimit    int           `env:"ORDER_RATE_LIMIT" envDefault:"10"`
	OrderRateWindow   time.Duration `env:"ORDER_RATE_WINDOW" envDefault:"1m"`
	SearchRateLimit   int           `env:"SEARCH_RATE_LIMIT" envDefault:"50"`
	SearchRateWindow  time.Duration `env:"SEARCH_RATE_WINDOW" envDefault:"1m"`

	JaegerEndpoint string `env:"JAEGER_ENDPOINT"`
}

var ErrMissingSecret = errors.New("JWT_SECRET is not set")

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBHost == "" {
		return nil, errors.New("environment variables not loaded properly: DB_HOST is empty")
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		log.Println("JWT_SECRET not set, generating a random secret; tokens will not survive a restart")
		cfg.JWTSecret = randomSecret(32)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func randomSecret(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return base64.StdEncoding.EncodeToString(b)
}
