package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config is the whole environment-driven configuration surface, enumerated
// once at process start and passed into constructors. Business logic never
// reads the environment directly.
type Config struct {
	Port     string `env:"PORT,     default=8080"`
	Env      string `env:"ENV,      default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// JWTSecret signs session and reset tokens. Operations that need it
	// fail with a configuration error when it is empty; the process itself
	// still starts so the health endpoints stay reachable.
	JWTSecret   string `env:"JWT_SECRET"`
	FrontendURL string `env:"FRONTEND_URL, default=http://localhost:5173"`

	DefaultAdmin DefaultAdminConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Email        EmailConfig
	SMTP         SMTPConfig

	// ResetTokenSingleUse enables the Redis-backed used-token set so reset
	// links stop working after first consumption. Requires Redis.
	ResetTokenSingleUse bool `env:"RESET_TOKEN_SINGLE_USE, default=false"`
}

// DefaultAdminConfig is the bootstrap admin identity. Credentials are
// matched against the SHA-256 digests, never against plaintext.
type DefaultAdminConfig struct {
	Username       string `env:"DEFAULT_ADMIN_USER,        default=S4TAdmin"`
	UsernameSHA256 string `env:"DEFAULT_ADMIN_USER_SHA256"`
	PasswordSHA256 string `env:"DEFAULT_ADMIN_PASS_SHA256"`
	Email          string `env:"DEFAULT_ADMIN_EMAIL,       default=admin@sistema.local"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN, default=postgres://localhost:5432/sata?sslmode=disable"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// EmailConfig selects at most one HTTP email provider.
type EmailConfig struct {
	Provider string `env:"EMAIL_PROVIDER"` // resend | sendgrid | brevo
	APIKey   string `env:"EMAIL_API_KEY"`
	From     string `env:"SMTP_FROM,      default=noreply@sistema.local"`
	FromName string `env:"SMTP_FROM_NAME, default=SATA Sistema"`
}

type SMTPConfig struct {
	Host       string `env:"SMTP_HOST"`
	Port       int    `env:"SMTP_PORT"`
	Service    string `env:"SMTP_SERVICE"`
	Username   string `env:"SMTP_USER"`
	Password   string `env:"SMTP_PASS"`
	Secure     bool   `env:"SMTP_SECURE,      default=false"`
	RequireTLS bool   `env:"SMTP_REQUIRE_TLS, default=true"`
	// SkipTLSVerify disables certificate verification. Development only.
	SkipTLSVerify bool `env:"SMTP_TLS_SKIP_VERIFY, default=false"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
