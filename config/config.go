package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Feed      FeedConfig
	Matching  MatchingConfig
	Backfill  BackfillConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig selects the canonical catalog store
type StoreConfig struct {
	Type        string        `mapstructure:"type"` // "sqlite" or "memory"
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// FeedConfig holds external product feed configuration
type FeedConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	PageSize          int           `mapstructure:"page_size"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// MatchingConfig holds the resolution thresholds and concurrency
type MatchingConfig struct {
	MergeThreshold      int `mapstructure:"merge_threshold"`
	ReviewThreshold     int `mapstructure:"review_threshold"`
	PrefilterThreshold  int `mapstructure:"prefilter_threshold"`
	MaxCandidates       int `mapstructure:"max_candidates"`
	ReviewLimit         int `mapstructure:"review_limit"`
	Workers             int `mapstructure:"workers"`
	StrategyConcurrency int `mapstructure:"strategy_concurrency"`
	MaxReportedErrors   int `mapstructure:"max_reported_errors"`
}

// BackfillConfig holds offline deduplication settings
type BackfillConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// CacheConfig holds resolved-key cache configuration
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from path, or from the default search paths when
// path is empty. Environment variables override file values.
func LoadFile(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/caskledger/")
	}

	// CASKLEDGER_MATCHING_MERGE_THRESHOLD overrides matching.merge_threshold
	v.SetEnvPrefix("CASKLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults are enough
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile exports the variables in ./.env that are not already set in the
// environment. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("set %s from .env: %w", name, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.path", "caskledger.db")
	v.SetDefault("store.busy_timeout", "5s")

	// Feed defaults
	v.SetDefault("feed.base_url", "")
	v.SetDefault("feed.api_key", "")
	v.SetDefault("feed.page_size", 100)
	v.SetDefault("feed.requests_per_second", 2.0)
	v.SetDefault("feed.burst", 5)
	v.SetDefault("feed.timeout", "30s")

	// Matching defaults
	v.SetDefault("matching.merge_threshold", 85)
	v.SetDefault("matching.review_threshold", 35)
	v.SetDefault("matching.prefilter_threshold", 50)
	v.SetDefault("matching.max_candidates", 10)
	v.SetDefault("matching.review_limit", 8)
	v.SetDefault("matching.workers", 1)
	v.SetDefault("matching.strategy_concurrency", 3)
	v.SetDefault("matching.max_reported_errors", 100)

	// Backfill defaults
	v.SetDefault("backfill.page_size", 200)

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 50000)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Store.Type {
	case "sqlite":
		if config.Store.Path == "" {
			return fmt.Errorf("store path is required when store type is 'sqlite'")
		}
	case "memory":
	default:
		return fmt.Errorf("store type must be 'sqlite' or 'memory', got: %s", config.Store.Type)
	}

	m := config.Matching
	if m.ReviewThreshold < 0 || m.MergeThreshold > 100 {
		return fmt.Errorf("matching thresholds must be within 0..100")
	}
	if !(m.ReviewThreshold < m.PrefilterThreshold && m.PrefilterThreshold < m.MergeThreshold) {
		return fmt.Errorf("matching thresholds must satisfy review (%d) < prefilter (%d) < merge (%d)",
			m.ReviewThreshold, m.PrefilterThreshold, m.MergeThreshold)
	}
	if m.MaxCandidates < 1 || m.ReviewLimit < 1 {
		return fmt.Errorf("matching max_candidates and review_limit must be positive")
	}
	if m.Workers < 1 {
		return fmt.Errorf("matching workers must be at least 1, got: %d", m.Workers)
	}

	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got: %s", config.Cache.TTL)
	}

	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging format must be 'json' or 'text', got: %s", config.Logging.Format)
	}

	return nil
}
