// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Mailer) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// minJWTSecretLength mirrors the HS256 key size enforced by the token service.
const minJWTSecretLength = 32

// # Configuration Schema

// Config holds all runtime configuration for the shopcore API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StoreDriver selects the credential store backend.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis), backs the forgot-password cooldown.
	RedisURL string `env:"REDIS_URL"`

	// Session token signing. A private key path selects RS256, otherwise
	// JWTSecret is used with HS256.
	JWTSecret      string `env:"JWT_SECRET"`
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH"`

	// Credential lifetimes and cost
	SessionTokenTTL time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"24h"`
	ResetTokenTTL   time.Duration `env:"RESET_TOKEN_TTL"   envDefault:"1h"`
	ResetCooldown   time.Duration `env:"RESET_COOLDOWN"    envDefault:"60s"`
	BcryptCost      int           `env:"BCRYPT_COST"       envDefault:"10"`

	// Per-call deadlines for collaborators
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	MailTimeout  time.Duration `env:"MAIL_TIMEOUT"  envDefault:"10s"`

	// PublicBaseURL prefixes reset links. When empty the request origin is used.
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	// Outbound mail (SMTP). An empty host selects the log-only sender.
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM" envDefault:"no-reply@shopcore.local"`

	// SMTPMaxRetries is the number of extra attempts after a transient relay failure.
	SMTPMaxRetries uint64 `env:"SMTP_MAX_RETRIES" envDefault:"2"`

	// Cross-Origin Resource Sharing
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given key/value set instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(options env.Options) (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	if err := env.ParseWithOptions(cfg, options); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// validate enforces the cross-field rules that struct tags cannot express.
func (c *Config) validate() error {
	var problems []error

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
		if c.RedisURL == "" {
			problems = append(problems, errors.New("REDIS_URL is required when STORE_DRIVER=postgres"))
		}
	case DriverMemory:
		if c.IsProduction() {
			problems = append(problems, errors.New("STORE_DRIVER=memory is not allowed in production"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.JWTPrivKeyPath == "" && len(c.JWTSecret) < minJWTSecretLength {
		problems = append(problems, fmt.Errorf("JWT_SECRET of at least %d bytes or JWT_PRIVATE_KEY_PATH is required", minJWTSecretLength))
	}

	if c.SessionTokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		problems = append(problems, errors.New("token lifetimes must be positive"))
	}

	if c.StoreTimeout <= 0 || c.MailTimeout <= 0 {
		problems = append(problems, errors.New("STORE_TIMEOUT and MAIL_TIMEOUT must be positive"))
	}

	if c.IsProduction() && c.SMTPHost == "" {
		problems = append(problems, errors.New("SMTP_HOST is required in production"))
	}

	return errors.Join(problems...)
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
