package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains every tunable the gateway reads from the environment.
type Config struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogLevel int    `env:"LOG_LEVEL" envDefault:"0"`

	Database     Database     `envPrefix:"DATABASE_"`
	Redis        Redis        `envPrefix:"REDIS_"`
	Registration Registration `envPrefix:"REGISTRATION_"`
	Token        Token        `envPrefix:"TOKEN_"`
	Notify       Notify       `envPrefix:"NOTIFY_"`
}

// Database selects the durable backing for codes and accounts. An empty DSN
// keeps everything in process memory, which is the default for development
// and the substrate for unit tests.
type Database struct {
	DSN string `env:"DSN"`
}

// Redis selects the backing for the pending registration store. Empty URL
// means in-memory staging (single replica deployments).
type Redis struct {
	URL string `env:"URL"`
}

// Registration holds the timing and throttling knobs of the signup flow.
type Registration struct {
	CodeWindow    time.Duration `env:"CODE_WINDOW" envDefault:"10m"`
	PendingTTL    time.Duration `env:"PENDING_TTL" envDefault:"15m"`
	IssueCeiling  int           `env:"ISSUE_CEILING" envDefault:"3"`
	IssueWindow   time.Duration `env:"ISSUE_WINDOW" envDefault:"5m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
}

// Token holds credential issuer parameters.
type Token struct {
	SigningSecret   string        `env:"SIGNING_SECRET" envDefault:"dev-secret-change-in-production"`
	Issuer          string        `env:"ISSUER" envDefault:"enrollgate"`
	AccessLifetime  time.Duration `env:"ACCESS_LIFETIME" envDefault:"15m"`
	RefreshLifetime time.Duration `env:"REFRESH_LIFETIME" envDefault:"720h"`
}

// Notify holds dispatcher parameters for outbound code delivery.
type Notify struct {
	BufferSize int `env:"BUFFER_SIZE" envDefault:"256"`
}

// Load parses configuration from the ENROLLGATE_-prefixed environment.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ENROLLGATE_"}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Registration.CodeWindow <= 0 {
		return fmt.Errorf("code window must be positive")
	}
	if c.Registration.PendingTTL < c.Registration.CodeWindow {
		// A pending record must outlive its code so Resend works without
		// re-staging.
		return fmt.Errorf("pending TTL %s must not be shorter than code window %s",
			c.Registration.PendingTTL, c.Registration.CodeWindow)
	}
	if c.Registration.IssueCeiling <= 0 {
		return fmt.Errorf("issue ceiling must be positive")
	}
	if c.Token.SigningSecret == "" {
		return fmt.Errorf("signing secret is required")
	}
	return nil
}
