package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/medcabinet/cabinet/internal/directory"
	"github.com/medcabinet/cabinet/internal/storage"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	StorageBackend   string `envconfig:"STORAGE_BACKEND" default:"sqlite"`
	StorageNamespace string `envconfig:"STORAGE_NAMESPACE" default:"cabinet"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"data/cabinet.db"`
	PGDSN            string `envconfig:"PG_DSN"`
	RedisAddr        string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SeedExamples     bool   `envconfig:"SEED_EXAMPLES" default:"true"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`

	ClinicName     string `envconfig:"CLINIC_NAME" default:"Cabinet Médical"`
	ClinicAddress  string `envconfig:"CLINIC_ADDRESS"`
	ClinicPhone    string `envconfig:"CLINIC_PHONE"`
	ClinicEmail    string `envconfig:"CLINIC_EMAIL"`
	ClinicLogoURL  string `envconfig:"CLINIC_LOGO_URL"`
	ClinicLegalIDs string `envconfig:"CLINIC_LEGAL_IDS"`

	CurrencySymbol string `envconfig:"CURRENCY_SYMBOL" default:"FCFA"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects an unknown storage backend or a missing backend setting.
func (c *Config) Validate() error {
	backend := storage.Backend(c.StorageBackend)
	if !backend.IsValid() {
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	switch backend {
	case storage.BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite path must be provided")
		}
	case storage.BackendPostgres:
		if c.PGDSN == "" {
			return errors.New("postgres dsn must be provided")
		}
	case storage.BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("redis address must be provided")
		}
	case storage.BackendMemory:
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("rate limit must not be negative")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// StorageOptions maps the storage settings.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:    storage.Backend(c.StorageBackend),
		Namespace:  c.StorageNamespace,
		SQLitePath: c.SQLitePath,
		PGDSN:      c.PGDSN,
		RedisAddr:  c.RedisAddr,
	}
}

// Clinic returns the clinic profile printed on documents.
func (c *Config) Clinic() directory.StaticClinic {
	return directory.StaticClinic{
		Nom:       c.ClinicName,
		Adresse:   c.ClinicAddress,
		Telephone: c.ClinicPhone,
		Email:     c.ClinicEmail,
		LogoURL:   c.ClinicLogoURL,
		LegalIDs:  c.ClinicLegalIDs,
	}
}
