// Package config loads the gateway-remote binary's configuration from a
// YAML file with environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default listen address for the embedded adapter.
const DefaultListen = "127.0.0.1:8080"

// Config is the top-level configuration.
type Config struct {
	// GatewayURL is the base address of the remote gateway.
	GatewayURL string `yaml:"gateway_url"`
	// Listen is the adapter's listen address.
	Listen string `yaml:"listen"`
	// LogLevel is a logrus level name; "info" when empty.
	LogLevel string `yaml:"log_level"`
	// TokenDir overrides the token store directory.
	TokenDir string `yaml:"token_dir"`
	// Providers lists the providers to front.
	Providers []Provider `yaml:"providers"`
}

// Provider configures one provider client.
type Provider struct {
	ID              string            `yaml:"id"`
	Name            string            `yaml:"name"`
	AllowedOrigins  []string          `yaml:"allowed_origins"`
	SupportsRefresh *bool             `yaml:"supports_refresh"`
	Credentials     map[string]string `yaml:"credentials"`
	ExtraAuthParams map[string]string `yaml:"extra_auth_params"`
}

// Load reads the configuration file, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv applies environment overrides. The environment wins over the
// file so deployments can reconfigure without editing it.
func (c *Config) applyEnv() {
	if v := os.Getenv("GATEWAY_URL"); v != "" {
		c.GatewayURL = v
	}
	if v := os.Getenv("GATEWAY_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("GATEWAY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for problems that would only surface
// later as confusing runtime failures.
func (c *Config) Validate() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("gateway_url is required")
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider id is required")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
