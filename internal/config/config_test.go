package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Source defaults
	if cfg.Source.BaseURL != "https://irbank.net" {
		t.Errorf("Source.BaseURL: got %q", cfg.Source.BaseURL)
	}
	if cfg.Source.TableSelector != "table.cs" {
		t.Errorf("Source.TableSelector: got %q, want %q", cfg.Source.TableSelector, "table.cs")
	}
	if cfg.Source.TimeoutSec != 30 {
		t.Errorf("Source.TimeoutSec: got %d, want 30", cfg.Source.TimeoutSec)
	}
	if cfg.Source.RatePerSec != 1.0 || cfg.Source.Burst != 1 {
		t.Errorf("Source rate: got %v/%d, want 1/1", cfg.Source.RatePerSec, cfg.Source.Burst)
	}
	if cfg.Source.UserAgent == "" {
		t.Error("Source.UserAgent should have a default")
	}

	// Analysis defaults
	if cfg.Analysis.ParsePolicy != "abort" {
		t.Errorf("Analysis.ParsePolicy: got %q, want %q", cfg.Analysis.ParsePolicy, "abort")
	}
	if cfg.Analysis.Locale != "ja" {
		t.Errorf("Analysis.Locale: got %q, want %q", cfg.Analysis.Locale, "ja")
	}
	if cfg.Analysis.ConcurrentFetches != 4 {
		t.Errorf("Analysis.ConcurrentFetches: got %d, want 4", cfg.Analysis.ConcurrentFetches)
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if cfg.API.Addr() != "0.0.0.0:8080" {
		t.Errorf("API.Addr: got %q", cfg.API.Addr())
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CFPATTERN_API_PORT", "9191")
	t.Setenv("CFPATTERN_ANALYSIS_PARSE_POLICY", "zero")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 9191 {
		t.Errorf("API.Port: got %d, want 9191", cfg.API.Port)
	}
	if cfg.Analysis.ParsePolicy != "zero" {
		t.Errorf("Analysis.ParsePolicy: got %q, want %q", cfg.Analysis.ParsePolicy, "zero")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CFPATTERN_ANALYSIS_LOCALE=en\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("CFPATTERN_ANALYSIS_LOCALE") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Analysis.Locale != "en" {
		t.Errorf("Analysis.Locale: got %q, want %q", cfg.Analysis.Locale, "en")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	chdir(t, t.TempDir())
	cfgPath := filepath.Join(t.TempDir(), "test_config.yaml")
	content := []byte(`
source:
  base_url: "http://localhost:9999"
  rate_per_sec: 5
  burst: 2
analysis:
  parse_policy: "zero"
  locale: "en"
  concurrent_fetches: 8
api:
  port: 9090
  cors_origins: ["https://example.com"]
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Source.BaseURL != "http://localhost:9999" {
		t.Errorf("Source.BaseURL: got %q", cfg.Source.BaseURL)
	}
	if cfg.Source.RatePerSec != 5 || cfg.Source.Burst != 2 {
		t.Errorf("Source rate: got %v/%d", cfg.Source.RatePerSec, cfg.Source.Burst)
	}
	if cfg.Source.TableSelector != "table.cs" {
		t.Errorf("unset keys should keep defaults, got %q", cfg.Source.TableSelector)
	}
	if cfg.Analysis.ParsePolicy != "zero" || cfg.Analysis.Locale != "en" || cfg.Analysis.ConcurrentFetches != 8 {
		t.Errorf("Analysis: got %+v", cfg.Analysis)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "https://example.com" {
		t.Errorf("API.CORSOrigins: got %v", cfg.API.CORSOrigins)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── Validate ──

func validConfig() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL: "https://irbank.net", TableSelector: "table.cs",
			TimeoutSec: 30, RatePerSec: 1, Burst: 1,
		},
		Analysis: AnalysisConfig{ParsePolicy: "abort", Locale: "ja", ConcurrentFetches: 4},
		API:      APIConfig{Host: "0.0.0.0", Port: 8080},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad policy", func(c *Config) { c.Analysis.ParsePolicy = "skip" }, "analysis.parse_policy"},
		{"bad locale", func(c *Config) { c.Analysis.Locale = "fr" }, "analysis.locale"},
		{"zero fetches", func(c *Config) { c.Analysis.ConcurrentFetches = 0 }, "analysis.concurrent_fetches"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"no base url", func(c *Config) { c.Source.BaseURL = "" }, "source.base_url"},
		{"no selector", func(c *Config) { c.Source.TableSelector = "" }, "source.table_selector"},
		{"zero timeout", func(c *Config) { c.Source.TimeoutSec = 0 }, "source.timeout_sec"},
		{"zero rate", func(c *Config) { c.Source.RatePerSec = 0 }, "rate_per_sec"},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
