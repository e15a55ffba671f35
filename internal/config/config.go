package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend     BackendConfig `yaml:"backend"`
	Catalog     CatalogConfig `yaml:"catalog"`
	Session     SessionConfig `yaml:"session"`
	Listing     ListingConfig `yaml:"listing"`
	Logging     LoggingConfig `yaml:"logging"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Environment string        `yaml:"environment"`
}

type BackendConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	ImageBaseURL string        `yaml:"image_base_url"`
	Timezone     string        `yaml:"timezone"`
}

type CatalogConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Path      string        `yaml:"path"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
}

type SessionConfig struct {
	Path string `yaml:"path"`
}

type ListingConfig struct {
	EventsPageSize  int `yaml:"events_page_size"`
	CatalogPageSize int `yaml:"catalog_page_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// Default returns the configuration used when neither a file nor env vars say otherwise.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			BaseURL:   "https://dummyjson.com",
			Path:      "/products",
			Timeout:   5 * time.Second,
			RateLimit: 5,
		},
		Session: SessionConfig{
			Path: defaultSessionPath(),
		},
		Listing: ListingConfig{
			EventsPageSize:  5,
			CatalogPageSize: 8,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "eventhub",
			SampleRate:  1.0,
		},
		Environment: "development",
	}
}

// Load builds the configuration from defaults and env vars.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile overlays an optional YAML file on the defaults, then applies env vars.
// An empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Backend.BaseURL = getEnv("EVENTHUB_BACKEND_URL", cfg.Backend.BaseURL)
	cfg.Backend.Timeout = getEnvDuration("EVENTHUB_BACKEND_TIMEOUT", cfg.Backend.Timeout)
	cfg.Backend.ImageBaseURL = getEnv("EVENTHUB_IMAGE_BASE_URL", cfg.Backend.ImageBaseURL)
	cfg.Backend.Timezone = getEnv("EVENTHUB_TIMEZONE", cfg.Backend.Timezone)
	cfg.Catalog.BaseURL = getEnv("EVENTHUB_CATALOG_URL", cfg.Catalog.BaseURL)
	cfg.Catalog.Path = getEnv("EVENTHUB_CATALOG_PATH", cfg.Catalog.Path)
	cfg.Catalog.Timeout = getEnvDuration("EVENTHUB_CATALOG_TIMEOUT", cfg.Catalog.Timeout)
	cfg.Catalog.RateLimit = getEnvFloat("EVENTHUB_CATALOG_RATE_LIMIT", cfg.Catalog.RateLimit)
	cfg.Session.Path = getEnv("EVENTHUB_SESSION_FILE", cfg.Session.Path)
	cfg.Listing.EventsPageSize = getEnvInt("EVENTHUB_EVENTS_PAGE_SIZE", cfg.Listing.EventsPageSize)
	cfg.Listing.CatalogPageSize = getEnvInt("EVENTHUB_CATALOG_PAGE_SIZE", cfg.Listing.CatalogPageSize)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)
	cfg.Metrics.TextfilePath = getEnv("METRICS_TEXTFILE", cfg.Metrics.TextfilePath)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if err := requireHTTPURL("EVENTHUB_BACKEND_URL", c.Backend.BaseURL); err != nil {
		return err
	}
	if err := requireHTTPURL("EVENTHUB_CATALOG_URL", c.Catalog.BaseURL); err != nil {
		return err
	}
	if c.Backend.ImageBaseURL != "" {
		if err := requireHTTPURL("EVENTHUB_IMAGE_BASE_URL", c.Backend.ImageBaseURL); err != nil {
			return err
		}
	}
	if c.Backend.Timezone != "" {
		if _, err := time.LoadLocation(c.Backend.Timezone); err != nil {
			return fmt.Errorf("EVENTHUB_TIMEZONE: %w", err)
		}
	}
	if c.Session.Path == "" {
		return fmt.Errorf("EVENTHUB_SESSION_FILE is required")
	}
	if c.Listing.EventsPageSize <= 0 || c.Listing.CatalogPageSize <= 0 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.Catalog.RateLimit <= 0 {
		return fmt.Errorf("EVENTHUB_CATALOG_RATE_LIMIT must be positive")
	}
	return nil
}

// Location resolves the timezone used for entered draft dates.
func (c BackendConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func requireHTTPURL(key, value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, value)
	}
	return nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "eventhub", "session.json")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
