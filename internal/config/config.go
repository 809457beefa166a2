// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// OIDC holds the optional single sign-on settings. SSO is disabled when
// Issuer or ClientID is empty.
type OIDC struct {
	Issuer       string `env:"ISSUER"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Config is the full server configuration.
type Config struct {
	Addr   string `env:"ADDR" envDefault:":8080"`
	WebDir string `env:"WEB_DIR" envDefault:"web"`

	// StoreBackend selects the storage adapter: json, sqlite, postgres or
	// memory.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"json"`
	JSONPath     string `env:"JSON_PATH" envDefault:"microblog.json"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"microblog.db"`
	DatabaseURL  string `env:"DATABASE_URL"`

	OIDC OIDC `envPrefix:"OIDC_"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
