// Package config loads server settings from the environment.
//
// =============================================================================
// PURPOSE
// =============================================================================
// Settings come from process environment variables, optionally seeded from a
// .env file in the working directory. Variables already set in the
// environment win over the file.
//
// SEE ALSO
//   - cmd/server/main.go: consumes Config
//   - factory/tables.go: TABLES_FILE format
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	Port         string   `mapstructure:"PORT"`
	Env          string   `mapstructure:"ENV"`
	Store        string   `mapstructure:"STORE"`
	DatabasePath string   `mapstructure:"DATABASE_PATH"`
	TablesFile   string   `mapstructure:"TABLES_FILE"`
	IPDPolicy    string   `mapstructure:"IPD_POLICY"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`
	LogLevel     string   `mapstructure:"LOG_LEVEL"`
}

var keys = []string{
	"PORT", "ENV", "STORE", "DATABASE_PATH", "TABLES_FILE",
	"IPD_POLICY", "CORS_ORIGINS", "LOG_LEVEL",
}

// Load reads envFile if it exists, then the environment. An empty envFile
// skips the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// A missing file is fine; the environment alone is enough.
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE", StoreSQLite)
	v.SetDefault("DATABASE_PATH", "optical.db")
	v.SetDefault("TABLES_FILE", "")
	v.SetDefault("IPD_POLICY", "")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate rejects unknown enum values and a sqlite store without a path.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	switch c.Store {
	case StoreSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required when STORE is sqlite"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StoreSQLite, StoreMemory, c.Store))
	}
	switch c.IPDPolicy {
	case "", "live", "strict":
	default:
		errs = append(errs, fmt.Errorf("IPD_POLICY must be \"live\" or \"strict\", got %q", c.IPDPolicy))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return ":" + c.Port
}
