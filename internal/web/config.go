package web

import (
	"encoding/json"
	"os"

	"github.com/cardinal-lookup/internal/config"
)

// Config represents the web server configuration
type Config struct {
	Server   ServerConfig  `json:"server"`
	Auth     AuthConfig    `json:"auth"`
	Features FeatureConfig `json:"features"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	Enabled bool `json:"enabled"`
}

// FeatureConfig contains feature toggles
type FeatureConfig struct {
	ExportEnabled bool `json:"export_enabled"`
}

// LoadConfig loads configuration from a JSON file, starting from the defaults
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		Features: FeatureConfig{
			ExportEnabled: true,
		},
	}
}

// FromEnv converts the environment-derived web settings.
func FromEnv(c config.WebConfig) *Config {
	return &Config{
		Server:   ServerConfig{Port: c.Port, Host: c.Host},
		Auth:     AuthConfig{Enabled: c.AuthEnabled},
		Features: FeatureConfig{ExportEnabled: c.ExportEnabled},
	}
}
