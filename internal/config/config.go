package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
)

// Config holds the server's runtime settings, read from the environment
type Config struct {
	Port        string `env:"PORT" envDefault:"3000"`
	Environment string `env:"ENVIRONMENT"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"memory"`
	SQLiteFile  string `env:"SQLITE_FILE" envDefault:"dev.sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`
	// SeedDemoData fills an empty store with six teams and thirty players
	SeedDemoData bool `env:"SEED_DEMO_DATA" envDefault:"true"`

	NATSURL     string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"esccup.events"`
	NATSStream  string `env:"NATS_STREAM" envDefault:"ESCCUP_EVENTS"`

	ClickHouse ClickHouse `envPrefix:"CLICKHOUSE_"`

	AuthMode      string        `env:"AUTH_MODE"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	Authentik     Authentik     `envPrefix:"AUTHENTIK_"`

	TierSyncInterval time.Duration `env:"TIER_SYNC_INTERVAL" envDefault:"5m"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ClickHouse configures the optional tier analytics source
type ClickHouse struct {
	Addr     string `env:"ADDR"`
	Database string `env:"DB" envDefault:"default"`
	User     string `env:"USER" envDefault:"default"`
	Password string `env:"PASSWORD"`
}

// Authentik configures the OAuth2 provider used in authentik auth mode
type Authentik struct {
	BaseURL      string `env:"BASE_URL"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL" envDefault:"http://localhost:3000/auth/callback"`
}

const (
	AuthMock      = "mock"
	AuthPassword  = "password"
	AuthAuthentik = "authentik"
)

// Load parses the environment and validates the combination of settings
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	if cfg.AuthMode == "" {
		if cfg.IsDevelopment() {
			cfg.AuthMode = AuthMock
		} else {
			cfg.AuthMode = AuthAuthentik
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the server runs with local fallbacks
// (embedded NATS, no ClickHouse requirement)
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres driver")
		}
	default:
		return errors.Newf("unknown DB_DRIVER %q (valid: memory, sqlite, postgres)", c.DBDriver)
	}

	switch c.AuthMode {
	case AuthMock:
	case AuthPassword:
		if c.AdminPassword == "" || c.JWTSecret == "" {
			return errors.New("ADMIN_PASSWORD and JWT_SECRET are required for password auth")
		}
	case AuthAuthentik:
		a := c.Authentik
		if a.BaseURL == "" || a.ClientID == "" || a.ClientSecret == "" {
			return errors.New("AUTHENTIK_BASE_URL, AUTHENTIK_CLIENT_ID, and AUTHENTIK_CLIENT_SECRET are required for authentik auth")
		}
	default:
		return errors.Newf("unknown AUTH_MODE %q (valid: mock, password, authentik)", c.AuthMode)
	}

	if c.TierSyncInterval <= 0 {
		return errors.New("TIER_SYNC_INTERVAL must be positive")
	}
	return nil
}
