package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Catalog     CatalogConfig `toml:"catalog"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// CatalogConfig controls the upstream catalog fetch pipeline.
type CatalogConfig struct {
	BaseURL         string `toml:"base_url"`         // Upstream shopfront base URL (no trailing slash)
	PageSize        int    `toml:"page_size"`        // Records per page request (upstream contract: 250)
	RefreshInterval string `toml:"refresh_interval"` // e.g., "24h" - refresh cycle period and persisted-snapshot freshness window
	RequestTimeout  string `toml:"request_timeout"`  // e.g., "30s" - per-page HTTP timeout
	RateLimit       int    `toml:"rate_limit"`       // Max page requests per second against the upstream
}

type StorageConfig struct {
	SnapshotFile string `toml:"snapshot_file"` // Path of the persisted catalog snapshot
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the built-in defaults, mirroring the values the
// service shipped with before configuration existed.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Catalog: CatalogConfig{
			BaseURL:         "https://www.dennis-snkrs.com",
			PageSize:        250,
			RefreshInterval: "24h",
			RequestTimeout:  "30s",
			RateLimit:       4,
		},
		Storage: StorageConfig{
			SnapshotFile: "products_cache.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKPILE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("STOCKPILE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("STOCKPILE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if baseURL := os.Getenv("STOCKPILE_CATALOG_BASE_URL"); baseURL != "" {
		config.Catalog.BaseURL = baseURL
	}
	if pageSize := os.Getenv("STOCKPILE_CATALOG_PAGE_SIZE"); pageSize != "" {
		if n, err := strconv.Atoi(pageSize); err == nil {
			config.Catalog.PageSize = n
		}
	}
	if interval := os.Getenv("STOCKPILE_CATALOG_REFRESH_INTERVAL"); interval != "" {
		config.Catalog.RefreshInterval = interval
	}
	if timeout := os.Getenv("STOCKPILE_CATALOG_REQUEST_TIMEOUT"); timeout != "" {
		config.Catalog.RequestTimeout = timeout
	}

	if file := os.Getenv("STOCKPILE_SNAPSHOT_FILE"); file != "" {
		config.Storage.SnapshotFile = file
	}

	if level := os.Getenv("STOCKPILE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url must not be empty")
	}
	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("catalog.page_size must be positive, got %d", c.Catalog.PageSize)
	}
	if c.Catalog.RateLimit <= 0 {
		return fmt.Errorf("catalog.rate_limit must be positive, got %d", c.Catalog.RateLimit)
	}
	if _, err := time.ParseDuration(c.Catalog.RefreshInterval); err != nil {
		return fmt.Errorf("catalog.refresh_interval is not a valid duration: %w", err)
	}
	if _, err := time.ParseDuration(c.Catalog.RequestTimeout); err != nil {
		return fmt.Errorf("catalog.request_timeout is not a valid duration: %w", err)
	}
	if c.Storage.SnapshotFile == "" {
		return fmt.Errorf("storage.snapshot_file must not be empty")
	}
	return nil
}

// GetRefreshInterval parses the configured refresh interval.
func (c *CatalogConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// GetRequestTimeout parses the configured per-page request timeout.
func (c *CatalogConfig) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
