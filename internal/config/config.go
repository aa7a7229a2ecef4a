package config

import (
	"fmt"
	"time"
)

// Config is the complete runtime configuration assembled from the environment.
type Config struct {
	Lookup LookupConfig
	Store  StoreConfig
	Web    WebConfig
	Log    LogConfig
}

// LookupConfig controls the parcel query client.
type LookupConfig struct {
	URL          string
	Jurisdiction string
	Timeout      time.Duration
	Retries      int
	StrictLimit  int
	CacheTTL     time.Duration
	Parser       string
}

// StoreConfig selects and configures the batch store backend.
type StoreConfig struct {
	Driver string // memory, postgres, oracle

	PGHost     string
	PGPort     string
	PGUser     string
	PGPassword string
	PGDatabase string
	PGSSLMode  string

	OracleHost     string
	OraclePort     string
	OracleService  string
	OracleUser     string
	OraclePassword string
	OracleWallet   string
	PollInterval   time.Duration
}

// WebConfig contains HTTP server settings.
type WebConfig struct {
	Host          string
	Port          int
	AuthEnabled   bool
	ExportEnabled bool
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string
	Format string
}

// DefaultURL is the Maryland iMAP property data query endpoint.
const DefaultURL = "https://mdgeodata.md.gov/imap/rest/services/PlanningCadastre/MD_PropertyData/MapServer/0/query"

// Load reads .env files and builds a Config from the environment.
func Load() (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Lookup: LookupConfig{
			URL:          GetEnv("ARCGIS_URL", DefaultURL),
			Jurisdiction: GetEnv("ARCGIS_JURISDICTION", "PRIN"),
			Timeout:      GetEnvDuration("ARCGIS_TIMEOUT", 15*time.Second),
			Retries:      GetEnvInt("ARCGIS_RETRIES", 1),
			StrictLimit:  GetEnvInt("ARCGIS_STRICT_LIMIT", 25),
			CacheTTL:     GetEnvDuration("LOOKUP_CACHE_TTL", 10*time.Minute),
			Parser:       GetEnv("ADDRESS_PARSER", "tokens"),
		},
		Store: StoreConfig{
			Driver:         GetEnv("STORE_DRIVER", "memory"),
			PGHost:         GetEnv("PGHOST", "localhost"),
			PGPort:         GetEnv("PGPORT", "5432"),
			PGUser:         GetEnv("PGUSER", "postgres"),
			PGPassword:     GetEnv("PGPASSWORD", "postgres"),
			PGDatabase:     GetEnv("PGDATABASE", "cardinal"),
			PGSSLMode:      GetEnv("PGSSLMODE", "disable"),
			OracleHost:     GetEnv("ORACLE_HOST", "localhost"),
			OraclePort:     GetEnv("ORACLE_PORT", "1521"),
			OracleService:  GetEnv("ORACLE_SERVICE", "XE"),
			OracleUser:     GetEnv("ORACLE_USERNAME", ""),
			OraclePassword: GetEnv("ORACLE_PASSWORD", ""),
			OracleWallet:   GetEnv("ORACLE_WALLET_LOCATION", ""),
			PollInterval:   GetEnvDuration("STORE_POLL_INTERVAL", 5*time.Second),
		},
		Web: WebConfig{
			Host:          GetEnv("WEB_HOST", "localhost"),
			Port:          GetEnvInt("WEB_PORT", 8080),
			AuthEnabled:   GetEnvBool("WEB_AUTH_ENABLED", true),
			ExportEnabled: GetEnvBool("ENABLE_EXPORT", true),
		},
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the system cannot work with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "postgres", "oracle":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want memory, postgres or oracle)", c.Store.Driver)
	}
	switch c.Lookup.Parser {
	case "tokens", "libpostal":
	default:
		return fmt.Errorf("unknown ADDRESS_PARSER %q (want tokens or libpostal)", c.Lookup.Parser)
	}
	if c.Lookup.Timeout <= 0 {
		return fmt.Errorf("ARCGIS_TIMEOUT must be positive")
	}
	if c.Lookup.Retries < 0 {
		return fmt.Errorf("ARCGIS_RETRIES must not be negative")
	}
	if c.Lookup.StrictLimit < 1 {
		return fmt.Errorf("ARCGIS_STRICT_LIMIT must be at least 1")
	}
	return nil
}

// PostgresDSN builds a lib/pq key/value connection string.
func (s StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		s.PGHost, s.PGPort, s.PGUser, s.PGPassword, s.PGDatabase, s.PGSSLMode)
}

// Persistent reports whether saved batches outlive the process.
func (s StoreConfig) Persistent() bool {
	return s.Driver == "postgres" || s.Driver == "oracle"
}
