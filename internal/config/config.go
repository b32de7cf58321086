// Package config handles configuration loading for cfpattern.
// It supports YAML config files, a .env file and environment variable
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CFPATTERN_API_PORT.
const EnvPrefix = "CFPATTERN"

// Config represents the complete application configuration.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"   yaml:"source"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// SourceConfig holds settings for scraping cash-flow pages.
type SourceConfig struct {
	BaseURL       string  `mapstructure:"base_url"       yaml:"base_url"`       // expands bare EDINET codes
	TableSelector string  `mapstructure:"table_selector" yaml:"table_selector"` // CSS selector of the cash-flow table
	UserAgent     string  `mapstructure:"user_agent"     yaml:"user_agent"`
	TimeoutSec    int     `mapstructure:"timeout_sec"    yaml:"timeout_sec"`
	RatePerSec    float64 `mapstructure:"rate_per_sec"   yaml:"rate_per_sec"`
	Burst         int     `mapstructure:"burst"          yaml:"burst"`
}

// AnalysisConfig holds classification pipeline settings.
type AnalysisConfig struct {
	ParsePolicy       string `mapstructure:"parse_policy"       yaml:"parse_policy"` // "abort" or "zero"
	Locale            string `mapstructure:"locale"             yaml:"locale"`       // "ja" or "en"
	ConcurrentFetches int    `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.cfpattern/config.yaml (home directory)
//  3. /etc/cfpattern/config.yaml (system)
//
// A .env file in the working directory is loaded first; variables already
// set in the environment win over it. Environment variables override config
// file values. Format: CFPATTERN_<SECTION>_<KEY>, e.g. CFPATTERN_API_PORT.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".cfpattern"))
	v.AddConfigPath("/etc/cfpattern")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return unmarshal(v)
}

// Validate checks values that the rest of the program assumes are sane.
func (c *Config) Validate() error {
	var errs []error
	switch c.Analysis.ParsePolicy {
	case "abort", "zero":
	default:
		errs = append(errs, fmt.Errorf("analysis.parse_policy: unknown value %q", c.Analysis.ParsePolicy))
	}
	switch c.Analysis.Locale {
	case "ja", "en":
	default:
		errs = append(errs, fmt.Errorf("analysis.locale: unknown value %q", c.Analysis.Locale))
	}
	if c.Analysis.ConcurrentFetches < 1 {
		errs = append(errs, fmt.Errorf("analysis.concurrent_fetches: must be positive, got %d", c.Analysis.ConcurrentFetches))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown value %q", c.Logging.Format))
	}
	if c.Source.BaseURL == "" {
		errs = append(errs, errors.New("source.base_url: must be set"))
	}
	if c.Source.TableSelector == "" {
		errs = append(errs, errors.New("source.table_selector: must be set"))
	}
	if c.Source.TimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("source.timeout_sec: must be positive, got %d", c.Source.TimeoutSec))
	}
	if c.Source.RatePerSec <= 0 || c.Source.Burst < 1 {
		errs = append(errs, fmt.Errorf("source: rate_per_sec and burst must be positive, got %v/%d", c.Source.RatePerSec, c.Source.Burst))
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port: out of range: %d", c.API.Port))
	}
	return errors.Join(errs...)
}

// Addr returns the API listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.base_url", "https://irbank.net")
	v.SetDefault("source.table_selector", "table.cs")
	v.SetDefault("source.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	v.SetDefault("source.timeout_sec", 30)
	v.SetDefault("source.rate_per_sec", 1.0) // conservative: 1 req/s
	v.SetDefault("source.burst", 1)

	// Analysis defaults
	v.SetDefault("analysis.parse_policy", "abort")
	v.SetDefault("analysis.locale", "ja")
	v.SetDefault("analysis.concurrent_fetches", 4)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// loadDotEnv loads ./.env when present. A missing file is fine.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("error loading .env: %w", err)
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
