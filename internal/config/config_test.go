package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "leadscout-cache.db", cfg.Cache.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, []string{"places", "yelp", "websearch"}, cfg.Sources.Priority)
	assert.Equal(t, 3, cfg.Sources.OverfetchFactor)
	assert.Equal(t, 1, cfg.Sources.MinSuccesses)
	assert.InDelta(t, 5.0, cfg.Sources.RatePerSecond, 0.001)
	assert.InDelta(t, 0.8, cfg.Dedupe.MergeThreshold, 0.001)
	assert.Equal(t, 25, cfg.Cascade.BroadCrawlMaxPages)
	assert.Equal(t, 2, cfg.Cascade.BroadCrawlMaxDepth)
	assert.Equal(t, 10, cfg.Cascade.SitemapPageLimit)
	assert.Equal(t, 3, cfg.Resilience.RetryMaxAttempts)
	assert.Equal(t, 500, cfg.Resilience.RetryInitialBackoffMS)
	assert.Equal(t, 5, cfg.Resilience.BreakerThreshold)
	assert.Equal(t, 30, cfg.Resilience.BreakerResetSecs)
	assert.Equal(t, 4, cfg.Job.Concurrency)
	assert.Equal(t, 10, cfg.Job.DeadlineMins)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.InDelta(t, 0.75, cfg.Monitoring.MissRateThreshold, 0.001)
	assert.Equal(t, 10, cfg.Monitoring.MinResolutions)
	assert.Empty(t, cfg.Monitoring.WebhookURL)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
cache:
  driver: memory
log:
  level: debug
  format: console
server:
  port: 9090
job:
  concurrency: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Job.Concurrency)
	// Defaults still apply for unset values
	assert.Equal(t, 25, cfg.Cascade.BroadCrawlMaxPages)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
cache:
  driver: memory
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADSCOUT_CACHE_DRIVER", "postgres")
	t.Setenv("LEADSCOUT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Cache.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEADSCOUT_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the fields validation looks at.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Cache.Driver = "sqlite"
	cfg.Job.Concurrency = 4
	cfg.Dedupe.MergeThreshold = 0.8
	cfg.Server.Port = 8080
	cfg.Places.Key = "places-key"
	return cfg
}

func TestValidateDiscover_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("discover"))
}

func TestValidateDiscover_NoSourceKeys(t *testing.T) {
	cfg := validDefaults()
	cfg.Places.Key = ""

	err := cfg.Validate("discover")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least one of")
}

func TestValidateResolve_NoKeysNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.Places.Key = ""

	// Resolution can run entirely on crawling and SMTP.
	assert.NoError(t, cfg.Validate("resolve"))
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Cache.Driver = "postgres"

	err := cfg.Validate("resolve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cache.database_url")

	cfg.Cache.DatabaseURL = "postgres://localhost/leadscout"
	assert.NoError(t, cfg.Validate("resolve"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Cache.Driver = "redis"

	err := cfg.Validate("resolve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cache.driver must be")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Job.Concurrency = 0
	err := cfg.Validate("resolve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "job.concurrency must be between 1 and 50")

	cfg.Job.Concurrency = 51
	err = cfg.Validate("resolve")
	assert.Error(t, err)

	cfg.Job.Concurrency = 50
	assert.NoError(t, cfg.Validate("resolve"))
}

func TestValidateMergeThresholdBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Dedupe.MergeThreshold = 1.2
	err := cfg.Validate("resolve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dedupe.merge_threshold")

	cfg.Dedupe.MergeThreshold = 0.8
	assert.NoError(t, cfg.Validate("resolve"))
}
