// Package config loads typed configuration from environment variables.
// A .env file is honored in development; real environments set variables
// directly.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the root configuration for all binaries.
type Config struct {
	HTTP   HTTPConfig   `envPrefix:"HTTP_"`
	DB     DBConfig     `envPrefix:"DB_"`
	Log    LogConfig    `envPrefix:"LOG_"`
	Auth   AuthConfig   `envPrefix:"AUTH_"`
	NAV    NAVConfig    `envPrefix:"NAV_"`
	Worker WorkerConfig `envPrefix:"WORKER_"`
	Policy PolicyConfig `envPrefix:"POLICY_"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// DBConfig configures the PostgreSQL pool.
type DBConfig struct {
	URL             string        `env:"URL,required"`
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"25"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"5"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level       string `env:"LEVEL" envDefault:"info"`
	Development bool   `env:"DEV" envDefault:"false"`
}

// AuthConfig configures API authentication.
type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET,required"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"navgate"`
	AccessTokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"15m"`
}

// NAVConfig carries the software identification block sent in every
// request header, plus client tuning. Software fields are registered
// with the authority and must match the registration exactly.
type NAVConfig struct {
	// Mode selects the authority environment: "test" or "production".
	Mode               string        `env:"MODE" envDefault:"test"`
	SoftwareID         string        `env:"SOFTWARE_ID,required"`
	SoftwareName       string        `env:"SOFTWARE_NAME" envDefault:"navgate"`
	SoftwareVersion    string        `env:"SOFTWARE_VERSION" envDefault:"1.0"`
	SoftwareDevName    string        `env:"SOFTWARE_DEV_NAME,required"`
	SoftwareDevContact string        `env:"SOFTWARE_DEV_CONTACT,required"`
	SoftwareDevCountry string        `env:"SOFTWARE_DEV_COUNTRY" envDefault:"HU"`
	SoftwareDevTaxNum  string        `env:"SOFTWARE_DEV_TAX_NUMBER"`
	Timeout            time.Duration `env:"TIMEOUT" envDefault:"20s"`
	SubmitTimeout      time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"60s"`
	CompressPayloads   bool          `env:"COMPRESS_PAYLOADS" envDefault:"false"`
}

// WorkerConfig configures the background status poller.
type WorkerConfig struct {
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
}

// PolicyConfig selects the finalize-period policy.
type PolicyConfig struct {
	// Mode: "strict", "flexible" or "open"
	Mode string `env:"MODE" envDefault:"flexible"`
	// ClosedUntil: invoices dated before this day cannot be finalized
	// (format 2006-01-02, empty = no closed period)
	ClosedUntil string `env:"CLOSED_UNTIL"`
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// ClosedUntilTime parses PolicyConfig.ClosedUntil.
func (p PolicyConfig) ClosedUntilTime() (time.Time, error) {
	if p.ClosedUntil == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", p.ClosedUntil)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse POLICY_CLOSED_UNTIL: %w", err)
	}
	return t, nil
}
