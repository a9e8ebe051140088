package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the checkout provider settings.
type Config struct {
	Endpoint    string        `env:"INSURER_CHECKOUT_ENDPOINT" envDefault:"https://api.mercadopago.com"`
	AccessToken string        `env:"INSURER_CHECKOUT_ACCESS_TOKEN"`
	AppURL      string        `env:"INSURER_APP_URL" envDefault:"http://localhost:3000"`
	Timeout     time.Duration `env:"INSURER_CHECKOUT_TIMEOUT" envDefault:"15s"`
	MaxRetries  int           `env:"INSURER_CHECKOUT_MAX_RETRIES" envDefault:"1"`
}

// LoadConfig reads checkout configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse checkout env: %w", err)
	}
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	cfg.AppURL = strings.TrimRight(strings.TrimSpace(cfg.AppURL), "/")
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("INSURER_CHECKOUT_TIMEOUT must be positive")
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("INSURER_CHECKOUT_MAX_RETRIES must not be negative")
	}
	return cfg, nil
}

// Configured reports whether an access token was supplied.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}
