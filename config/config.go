package config

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"8080"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret   string `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTTTLHours int    `env:"JWT_TTL_HOURS"       envDefault:"168" validate:"min=1,max=8760"`

	BcryptCost      int `env:"BCRYPT_COST"      envDefault:"10" validate:"min=4,max=31"`
	HashConcurrency int `env:"HASH_CONCURRENCY" envDefault:"0"  validate:"min=0,max=256"`

	FrontendURL      string `env:"FRONTEND_URL"        envDefault:"http://localhost:3000" validate:"required,url"`
	ResetTokenTTLMin int    `env:"RESET_TOKEN_TTL_MIN" envDefault:"60"          validate:"min=1,max=1440"`
	ResetPurgeCron   string `env:"RESET_PURGE_CRON"    envDefault:"@every 30m" validate:"required"`

	EmailProvider string `env:"EMAIL_PROVIDER" validate:"omitempty,oneof=log resend smtp"`
	EmailFrom     string `env:"EMAIL_FROM"     validate:"required_unless=Env local"`
	ResendAPIKey  string `env:"RESEND_API_KEY" validate:"required_if=EmailProvider resend"`
	SMTPHost      string `env:"SMTP_HOST"      validate:"required_if=EmailProvider smtp"`
	SMTPPort      int    `env:"SMTP_PORT"      envDefault:"587" validate:"min=1,max=65535"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`

	AuthRateLimitRPS   float64  `env:"AUTH_RATE_LIMIT_RPS"   envDefault:"5"  validate:"gt=0"`
	AuthRateLimitBurst int      `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10" validate:"min=1"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"  envSeparator:","`

	// Empty means X-Forwarded-For is ignored and the socket address is the client IP.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," validate:"dive,cidr|ip"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Local development logs emails unless a provider is picked explicitly.
	if cfg.EmailProvider == "" {
		if cfg.Env == "local" {
			cfg.EmailProvider = "log"
		} else {
			cfg.EmailProvider = "resend"
		}
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{cfg.FrontendURL}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	return parseLevel(c.LogLevel)
}

// ReaperConfig is what the reset token reaper needs. It leaves out the
// signing and email settings so purge processes can run without them.
type ReaperConfig struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`

	DatabaseURL    string `env:"DATABASE_URL,required" validate:"required"`
	MetricsPort    string `env:"METRICS_PORT"     envDefault:"9090"`
	ResetPurgeCron string `env:"RESET_PURGE_CRON" envDefault:"@every 30m" validate:"required"`
}

func LoadReaper() (*ReaperConfig, error) {
	cfg := &ReaperConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *ReaperConfig) SlogLevel() slog.Level {
	return parseLevel(c.LogLevel)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenTTLMin) * time.Minute
}

// HashWorkers is the number of bcrypt operations allowed to run at once.
func (c *Config) HashWorkers() int {
	if c.HashConcurrency > 0 {
		return c.HashConcurrency
	}
	return runtime.NumCPU()
}
