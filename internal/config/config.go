package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Cache backends understood by CacheBackend
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheBadger = "badger"
	CacheNone   = "none"
)

// Config holds all runtime configuration parameters
type Config struct {
	APIKey       string `json:"api_key" yaml:"api_key" toml:"api_key" validate:"required"`
	APIBaseURL   string `json:"api_base_url" yaml:"api_base_url" toml:"api_base_url" validate:"url"`
	ImageBaseURL string `json:"image_base_url" yaml:"image_base_url" toml:"image_base_url"`
	Language     string `json:"language" yaml:"language" toml:"language"`

	MaxDepth          int `json:"max_depth" yaml:"max_depth" toml:"max_depth" validate:"gte=1,lte=6"`
	MaxMoviesPerActor int `json:"max_movies_per_actor" yaml:"max_movies_per_actor" toml:"max_movies_per_actor" validate:"gte=1"`
	MaxCastPerMovie   int `json:"max_cast_per_movie" yaml:"max_cast_per_movie" toml:"max_cast_per_movie" validate:"gte=1"`

	// ExpandingActorEdgesOnly links the expanded actor to each cast member
	// without also linking the cast members to one another
	ExpandingActorEdgesOnly bool `json:"expanding_actor_edges_only" yaml:"expanding_actor_edges_only" toml:"expanding_actor_edges_only"`

	BridgeFanout           int  `json:"bridge_fanout" yaml:"bridge_fanout" toml:"bridge_fanout" validate:"gte=1"`
	BridgeBudget           int  `json:"bridge_budget" yaml:"bridge_budget" toml:"bridge_budget" validate:"gte=0"`
	BridgeCreditsPerActor  int  `json:"bridge_credits_per_actor" yaml:"bridge_credits_per_actor" toml:"bridge_credits_per_actor" validate:"gte=1"`
	BridgeSortByPopularity bool `json:"bridge_sort_by_popularity" yaml:"bridge_sort_by_popularity" toml:"bridge_sort_by_popularity"`
	KeepDuplicateTitles    bool `json:"keep_duplicate_titles" yaml:"keep_duplicate_titles" toml:"keep_duplicate_titles"`

	ConcurrentWorkers int     `json:"concurrent_workers" yaml:"concurrent_workers" toml:"concurrent_workers" validate:"gte=1"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second" validate:"gt=0"`
	RequestTimeoutMs  int     `json:"request_timeout_ms" yaml:"request_timeout_ms" toml:"request_timeout_ms" validate:"gte=1000"`
	RetryAttempts     int     `json:"retry_attempts" yaml:"retry_attempts" toml:"retry_attempts" validate:"gte=0"`
	RetryDelayMs      int     `json:"retry_delay_ms" yaml:"retry_delay_ms" toml:"retry_delay_ms" validate:"gte=0"`
	SearchTimeoutMs   int     `json:"search_timeout_ms" yaml:"search_timeout_ms" toml:"search_timeout_ms" validate:"gte=0"`

	CacheBackend    string `json:"cache_backend" yaml:"cache_backend" toml:"cache_backend" validate:"oneof=memory sqlite badger none"`
	CachePath       string `json:"cache_path" yaml:"cache_path" toml:"cache_path"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds" toml:"cache_ttl_seconds" validate:"gte=1"`

	MetricsPath    string `json:"metrics_path" yaml:"metrics_path" toml:"metrics_path"`
	PrometheusPath string `json:"prometheus_path" yaml:"prometheus_path" toml:"prometheus_path"`
	LogLevel       string `json:"log_level" yaml:"log_level" toml:"log_level" validate:"oneof=trace debug info warn warning error"`
}

var validate = validator.New()

// LoadConfig reads and validates configuration from a JSON, YAML or TOML file.
// Keys the file leaves out keep their defaults; keys it sets, zero included, win.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg := defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return finish(&cfg)
}

// Default returns a configuration built only from defaults and the environment
func Default() (*Config, error) {
	cfg := defaults()
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv lets the environment override secrets and verbosity
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("TMDB_API_KEY"); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := os.LookupEnv("WEAVER_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
}

// defaults returns the configuration files are decoded on top of
func defaults() Config {
	return Config{
		APIBaseURL:            "https://api.tmdb.org/3",
		ImageBaseURL:          "https://image.tmdb.org/t/p/w185",
		Language:              "en-US",
		MaxDepth:              2,
		MaxMoviesPerActor:     5,
		MaxCastPerMovie:       10,
		BridgeFanout:          5,
		BridgeBudget:          20,
		BridgeCreditsPerActor: 20,
		ConcurrentWorkers:     4,
		RequestsPerSecond:     20,
		RequestTimeoutMs:      5000,
		RetryAttempts:         2,
		RetryDelayMs:          500,
		SearchTimeoutMs:       120000,
		CacheBackend:          CacheMemory,
		CachePath:             "weaver-cache.db",
		CacheTTLSeconds:       3600,
		LogLevel:              "info",
	}
}

// Validate checks that required fields are present and values are sensible
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}

// RequestTimeout returns the per-request timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// RetryDelay returns the delay between retries of a transient failure
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// SearchTimeout returns the overall deadline for one search, zero meaning none
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutMs) * time.Millisecond
}

// CacheTTL returns how long provider responses stay cached
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
