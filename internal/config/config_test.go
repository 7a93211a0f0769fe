package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("WEAVER_LOG_LEVEL", "")
}

func TestLoadConfigJSONAppliesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"api_key": "k", "max_depth": 3}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, 3, cfg.MaxDepth)
	assert.Equal(t, 5, cfg.MaxMoviesPerActor)
	assert.Equal(t, 10, cfg.MaxCastPerMovie)
	assert.Equal(t, 5, cfg.BridgeFanout)
	assert.Equal(t, 20, cfg.BridgeBudget)
	assert.Equal(t, "https://api.tmdb.org/3", cfg.APIBaseURL)
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout())
}

func TestLoadConfigYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
api_key: yaml-key
max_movies_per_actor: 8
cache_backend: sqlite
keep_duplicate_titles: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-key", cfg.APIKey)
	assert.Equal(t, 8, cfg.MaxMoviesPerActor)
	assert.Equal(t, CacheSQLite, cfg.CacheBackend)
	assert.True(t, cfg.KeepDuplicateTitles)
}

func TestLoadConfigTOML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", `
api_key = "toml-key"
bridge_budget = 7
bridge_sort_by_popularity = true
requests_per_second = 2.5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "toml-key", cfg.APIKey)
	assert.Equal(t, 7, cfg.BridgeBudget)
	assert.True(t, cfg.BridgeSortByPopularity)
	assert.InDelta(t, 2.5, cfg.RequestsPerSecond, 1e-9)
}

func TestLoadConfigKeepsExplicitZeros(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{
		"api_key": "k",
		"bridge_budget": 0,
		"retry_attempts": 0,
		"retry_delay_ms": 0,
		"search_timeout_ms": 0
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Zero(t, cfg.BridgeBudget)
	assert.Zero(t, cfg.RetryAttempts)
	assert.Zero(t, cfg.RetryDelay())
	assert.Zero(t, cfg.SearchTimeout(), "zero disables the search deadline")
	assert.Equal(t, 5, cfg.BridgeFanout, "omitted keys keep their defaults")
}

func TestLoadConfigYAMLKeepsExplicitZeros(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "api_key: k\nbridge_budget: 0\nretry_attempts: 0\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.BridgeBudget)
	assert.Zero(t, cfg.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay())
}

func TestLoadConfigRejectsExplicitZeroDepth(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"api_key": "k", "max_depth": 0}`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxDepth")
}

func TestEnvOverridesAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("TMDB_API_KEY", "from-env")
	t.Setenv("WEAVER_LOG_LEVEL", "debug")

	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsBadValues(t *testing.T) {
	clearEnv(t)

	_, err := Default()
	require.Error(t, err, "missing api key must be rejected")
	assert.Contains(t, err.Error(), "APIKey")

	path := writeFile(t, "config.json", `{"api_key": "k", "max_depth": 9}`)
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxDepth")

	path = writeFile(t, "config.json", `{"api_key": "k", "cache_backend": "redis"}`)
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CacheBackend")
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := writeFile(t, "config.json", `{not json`)
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config JSON")
}
