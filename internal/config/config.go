// Package config loads process configuration from INSURER_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/pricing"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	DBPath          string        `env:"INSURER_DB"`
	SessionFile     string        `env:"INSURER_SESSION_FILE"`
	SessionSecret   string        `env:"INSURER_SESSION_SECRET"`
	SessionTTL      time.Duration `env:"INSURER_SESSION_TTL" envDefault:"168h"`
	RequestTimeout  time.Duration `env:"INSURER_REQUEST_TIMEOUT" envDefault:"15s"`
	RedisAddr       string        `env:"INSURER_REDIS_ADDR"`
	CatalogCacheTTL time.Duration `env:"INSURER_CATALOG_CACHE_TTL" envDefault:"5m"`
	BcryptCost      int           `env:"INSURER_BCRYPT_COST" envDefault:"12"`
	LogLevel        string        `env:"INSURER_LOG_LEVEL" envDefault:"warn"`
	OrphanGrace     time.Duration `env:"INSURER_ORPHAN_GRACE" envDefault:"5m"`
	Rates           string        `env:"INSURER_RATES" envDefault:"life:1.0,home:1.2,vehicle:1.5"`
	OTelEndpoint    string        `env:"INSURER_OTEL_ENDPOINT"`
	OTelEnabled     bool          `env:"INSURER_OTEL_ENABLED" envDefault:"true"`
}

// Load parses the environment and fills path defaults under ~/.insurer.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" || cfg.SessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("finding home directory: %w", err)
		}
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(home, ".insurer", "insurer.db")
		}
		if cfg.SessionFile == "" {
			cfg.SessionFile = filepath.Join(home, ".insurer", "session")
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env cannot check by type alone.
func (c Config) Validate() error {
	var errs []error
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("INSURER_SESSION_TTL must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("INSURER_REQUEST_TIMEOUT must be positive"))
	}
	if c.CatalogCacheTTL < 0 {
		errs = append(errs, errors.New("INSURER_CATALOG_CACHE_TTL must not be negative"))
	}
	if c.OrphanGrace <= 0 {
		errs = append(errs, errors.New("INSURER_ORPHAN_GRACE must be positive"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("INSURER_LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if _, err := c.RateTable(); err != nil {
		errs = append(errs, fmt.Errorf("INSURER_RATES: %w", err))
	}
	return errors.Join(errs...)
}

// RateTable parses Rates. Every domain must be priced.
func (c Config) RateTable() (map[domain.InsuranceDomain]float64, error) {
	rates, err := pricing.ParseRates(c.Rates)
	if err != nil {
		return nil, err
	}
	for _, d := range domain.AllDomains() {
		if _, ok := rates[d]; !ok {
			return nil, fmt.Errorf("no multiplier for %s", d)
		}
	}
	return rates, nil
}

// Resolver builds the static multiplier resolver from Rates.
func (c Config) Resolver() (*pricing.StaticResolver, error) {
	rates, err := c.RateTable()
	if err != nil {
		return nil, err
	}
	return pricing.NewStaticResolver(rates)
}
