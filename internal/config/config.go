// Package config loads server configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the server needs to boot. With an empty
// DatabaseURL the server keeps sales in memory; with an empty
// UserServiceURL user lookups go through the sales storage.
type Config struct {
	Addr           string `envconfig:"ADDR" default:":8081"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	UserServiceURL string `envconfig:"USER_SERVICE_URL"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &c, nil
}
