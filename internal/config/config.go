package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Env                string `env:"APP_ENV" envDefault:"development"`
	Port               int    `env:"PORT" envDefault:"8080"`
	DatabaseURL        string `env:"DATABASE_URL,required"`
	RedisURL           string `env:"REDIS_URL,required"`
	PublicBaseURL      string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	AdminPasswordHash  string `env:"ADMIN_PASSWORD_HASH"`
	AdminSessionSecret string `env:"ADMIN_SESSION_SECRET"`
	UserSessionSecret  string `env:"USER_SESSION_SECRET"`
	EncryptionKey      string `env:"ENCRYPTION_KEY"`

	MaibBaseURL       string `env:"MAIB_BASE_URL" envDefault:"https://api.maibmerchants.md"`
	MaibProjectID     string `env:"MAIB_PROJECT_ID"`
	MaibProjectSecret string `env:"MAIB_PROJECT_SECRET"`
	MaibSignatureKey  string `env:"MAIB_SIGNATURE_KEY"`

	MagicLinkTTLMinutes    int    `env:"MAGIC_LINK_TTL_MINUTES" envDefault:"15"`
	SessionIdleTimeoutMins int    `env:"SESSION_IDLE_TIMEOUT_MINUTES" envDefault:"30"`
	PaymentPendingTTLMins  int    `env:"PAYMENT_PENDING_TTL_MINUTES" envDefault:"60"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) MagicLinkTTL() time.Duration {
	return time.Duration(c.MagicLinkTTLMinutes) * time.Minute
}

func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleTimeoutMins) * time.Minute
}

func (c *Config) PaymentPendingTTL() time.Duration {
	return time.Duration(c.PaymentPendingTTLMins) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.AdminPasswordHash != "" {
		if !strings.HasPrefix(c.AdminPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2y$") {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if isProduction {
		if err := validateSecret("ADMIN_SESSION_SECRET", c.AdminSessionSecret); err != nil {
			return err
		}
		if err := validateSecret("USER_SESSION_SECRET", c.UserSessionSecret); err != nil {
			return err
		}

		if c.MaibSignatureKey == "" {
			log.Warn().Msg("MAIB_SIGNATURE_KEY is empty in production: payment webhook signature verification disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.EncryptionKey == "" {
			log.Warn().Msg("ENCRYPTION_KEY is empty in production: payer tokens will not be encrypted at rest")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
