package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"

	minTokenSecretLen = 32
)

// Config is resolved in three layers: code defaults, the optional YAML
// file named by CONFIG_FILE, then environment variables.
type Config struct {
	AppPort   string `yaml:"app_port" env:"APP_PORT"`
	APIPrefix string `yaml:"api_prefix" env:"API_PREFIX"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	DatabaseDriver string `yaml:"database_driver" env:"DATABASE_DRIVER"`
	DatabaseDSN    string `yaml:"database_dsn" env:"DATABASE_DSN"`

	SessionBackend string `yaml:"session_backend" env:"SESSION_BACKEND"`
	RedisAddr      string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword  string `yaml:"redis_password" env:"REDIS_PASSWORD"`

	TokenSecret  string        `yaml:"token_secret" env:"TOKEN_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	CookieSecure bool          `yaml:"cookie_secure" env:"COOKIE_SECURE"`

	OIDCIssuer   string `yaml:"oidc_issuer" env:"OIDC_ISSUER"`
	OIDCClientID string `yaml:"oidc_client_id" env:"OIDC_CLIENT_ID"`

	KafkaBrokers []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `yaml:"kafka_topic" env:"KAFKA_TOPIC"`

	BootstrapAdminID     string `yaml:"bootstrap_admin_id" env:"BOOTSTRAP_ADMIN_ID"`
	BootstrapAdminSecret string `yaml:"bootstrap_admin_secret" env:"BOOTSTRAP_ADMIN_SECRET"`
}

func defaults() Config {
	return Config{
		AppPort:         "8080",
		APIPrefix:       "/amongus/api",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		DatabaseDriver:  DriverSQLite,
		DatabaseDSN:     "data/review.db",
		SessionBackend:  SessionBackendRedis,
		RedisAddr:       "localhost:6379",
		TokenTTL:        24 * time.Hour,
		CookieSecure:    true,
		KafkaTopic:      "review.changes",
	}
}

// Load builds the configuration and validates it.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: unsupported database driver %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("config: DATABASE_DSN is required"))
	}

	switch c.SessionBackend {
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("config: REDIS_ADDR is required for redis sessions"))
		}
	case SessionBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("config: unsupported session backend %q", c.SessionBackend))
	}

	if len(c.TokenSecret) < minTokenSecretLen {
		errs = append(errs, fmt.Errorf("config: TOKEN_SECRET must be at least %d bytes", minTokenSecretLen))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("config: TOKEN_TTL must be positive"))
	}
	if c.OIDCIssuer != "" && c.OIDCClientID == "" {
		errs = append(errs, errors.New("config: OIDC_CLIENT_ID is required when OIDC_ISSUER is set"))
	}
	if (c.BootstrapAdminID == "") != (c.BootstrapAdminSecret == "") {
		errs = append(errs, errors.New("config: BOOTSTRAP_ADMIN_ID and BOOTSTRAP_ADMIN_SECRET must be set together"))
	}

	return errors.Join(errs...)
}
