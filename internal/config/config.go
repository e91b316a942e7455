// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Places     PlacesConfig     `yaml:"places" mapstructure:"places"`
	Yelp       YelpConfig       `yaml:"yelp" mapstructure:"yelp"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Hunter     HunterConfig     `yaml:"hunter" mapstructure:"hunter"`
	Snov       SnovConfig       `yaml:"snov" mapstructure:"snov"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Dedupe     DedupeConfig     `yaml:"dedupe" mapstructure:"dedupe"`
	Cascade    CascadeConfig    `yaml:"cascade" mapstructure:"cascade"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Job        JobConfig        `yaml:"job" mapstructure:"job"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CacheConfig configures the email-cache backend.
type CacheConfig struct {
	// Driver is memory, sqlite, or postgres.
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// YelpConfig holds Yelp Fusion API settings.
type YelpConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// JinaConfig holds Jina AI reader and search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// HunterConfig holds Hunter API settings.
type HunterConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// SnovConfig holds Snov OAuth credentials.
type SnovConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
}

// AnthropicConfig holds Anthropic API settings for name extraction.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SourcesConfig configures listing aggregation.
type SourcesConfig struct {
	// Priority lists source IDs in query order.
	Priority        []string `yaml:"priority" mapstructure:"priority"`
	Required        []string `yaml:"required" mapstructure:"required"`
	OverfetchFactor int      `yaml:"overfetch_factor" mapstructure:"overfetch_factor"`
	MinSuccesses    int      `yaml:"min_successes" mapstructure:"min_successes"`
	// RatePerSecond limits each source's request rate. Zero disables.
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// DedupeConfig configures the deduplication engine.
type DedupeConfig struct {
	MergeThreshold float64 `yaml:"merge_threshold" mapstructure:"merge_threshold"`
}

// CascadeConfig configures the email discovery cascade.
type CascadeConfig struct {
	TiersPath          string `yaml:"tiers_path" mapstructure:"tiers_path"`
	BroadCrawlMaxPages int    `yaml:"broad_crawl_max_pages" mapstructure:"broad_crawl_max_pages"`
	BroadCrawlMaxDepth int    `yaml:"broad_crawl_max_depth" mapstructure:"broad_crawl_max_depth"`
	SitemapPageLimit   int    `yaml:"sitemap_page_limit" mapstructure:"sitemap_page_limit"`
	SearchResultLimit  int    `yaml:"search_result_limit" mapstructure:"search_result_limit"`
	SMTPHelloDomain    string `yaml:"smtp_hello_domain" mapstructure:"smtp_hello_domain"`
}

// ResilienceConfig configures retries and circuit breakers.
type ResilienceConfig struct {
	RetryMaxAttempts      int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryInitialBackoffMS int     `yaml:"retry_initial_backoff_ms" mapstructure:"retry_initial_backoff_ms"`
	RetryJitterFraction   float64 `yaml:"retry_jitter_fraction" mapstructure:"retry_jitter_fraction"`
	BreakerThreshold      int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs      int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	BreakerHalfOpenReqs   int     `yaml:"breaker_half_open_reqs" mapstructure:"breaker_half_open_reqs"`
}

// JobConfig configures the pipeline runner.
type JobConfig struct {
	Concurrency  int `yaml:"concurrency" mapstructure:"concurrency"`
	DeadlineMins int `yaml:"deadline_mins" mapstructure:"deadline_mins"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures webhook alerting. Alerts are disabled
// when WebhookURL is empty.
type MonitoringConfig struct {
	WebhookURL        string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	MissRateThreshold float64 `yaml:"miss_rate_threshold" mapstructure:"miss_rate_threshold"`
	MinResolutions    int     `yaml:"min_resolutions" mapstructure:"min_resolutions"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "leadscout-cache.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("sources.priority", []string{"places", "yelp", "websearch"})
	v.SetDefault("sources.overfetch_factor", 3)
	v.SetDefault("sources.min_successes", 1)
	v.SetDefault("sources.rate_per_second", 5.0)
	v.SetDefault("dedupe.merge_threshold", 0.8)
	v.SetDefault("cascade.broad_crawl_max_pages", 25)
	v.SetDefault("cascade.broad_crawl_max_depth", 2)
	v.SetDefault("cascade.sitemap_page_limit", 10)
	v.SetDefault("cascade.search_result_limit", 5)
	v.SetDefault("cascade.smtp_hello_domain", "leadscout.local")
	v.SetDefault("resilience.retry_max_attempts", 3)
	v.SetDefault("resilience.retry_initial_backoff_ms", 500)
	v.SetDefault("resilience.retry_jitter_fraction", 0.25)
	v.SetDefault("resilience.breaker_threshold", 5)
	v.SetDefault("resilience.breaker_reset_secs", 30)
	v.SetDefault("resilience.breaker_half_open_reqs", 1)
	v.SetDefault("job.concurrency", 4)
	v.SetDefault("job.deadline_mins", 10)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.miss_rate_threshold", 0.75)
	v.SetDefault("monitoring.min_resolutions", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration needed for the given run mode:
// "discover" (sources only), "resolve" (resolution stack), or "serve"
// (the full pipeline behind HTTP).
func (c *Config) Validate(mode string) error {
	var problems []string

	requireKeys := func() {
		if c.Places.Key == "" && c.Yelp.Key == "" && c.Jina.Key == "" {
			problems = append(problems, "at least one of places.key, yelp.key, jina.key is required")
		}
	}

	checkShared := func() {
		switch c.Cache.Driver {
		case "memory", "sqlite":
		case "postgres":
			if c.Cache.DatabaseURL == "" {
				problems = append(problems, "cache.database_url is required for the postgres driver")
			}
		default:
			problems = append(problems, "cache.driver must be memory, sqlite, or postgres")
		}
		if n := c.Job.Concurrency; n < 1 || n > 50 {
			problems = append(problems, "job.concurrency must be between 1 and 50")
		}
		if c.Dedupe.MergeThreshold < 0 || c.Dedupe.MergeThreshold > 1 {
			problems = append(problems, "dedupe.merge_threshold must be in [0, 1]")
		}
	}

	switch mode {
	case "discover":
		requireKeys()
		checkShared()
	case "resolve", "cache":
		checkShared()
	case "serve":
		requireKeys()
		checkShared()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
