package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Taxonomy TaxonomyConfig `yaml:"taxonomy" mapstructure:"taxonomy"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PipelineConfig configures the batch orchestrator and operating modes.
type PipelineConfig struct {
	Workers   int  `yaml:"workers" mapstructure:"workers" validate:"min=1,max=256"`
	FastMode  bool `yaml:"fast_mode" mapstructure:"fast_mode"`
	DeepFetch bool `yaml:"deep_fetch" mapstructure:"deep_fetch"`
}

// SearchConfig configures the web search collaborator.
type SearchConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	MaxResults  int     `yaml:"max_results" mapstructure:"max_results" validate:"min=1,max=50"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"min=1"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec" validate:"gt=0"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-query timeout.
func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// FetchConfig configures page fetching and the shared HTTP transport.
type FetchConfig struct {
	TimeoutSecs      int `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"min=1"`
	PageCharLimit    int `yaml:"page_char_limit" mapstructure:"page_char_limit" validate:"min=1"`
	PageConcurrency  int `yaml:"page_concurrency" mapstructure:"page_concurrency" validate:"min=1"`
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts" validate:"min=1,max=10"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms" validate:"min=0"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms" validate:"gtefield=InitialBackoffMs"`
	MaxConnsPerHost  int `yaml:"max_conns_per_host" mapstructure:"max_conns_per_host" validate:"min=1"`
}

// Timeout returns the per-page timeout.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ExtractConfig tunes the money-mention extractor.
type ExtractConfig struct {
	Window        int     `yaml:"window" mapstructure:"window" validate:"min=1"`
	MinBareAmount float64 `yaml:"min_bare_amount" mapstructure:"min_bare_amount" validate:"min=0"`
}

// TaxonomyConfig points at an optional keyword table override.
type TaxonomyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StoreConfig configures the evidence cache and run ledger.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver" validate:"oneof=none sqlite postgres"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url" validate:"required_unless=Driver none"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours" validate:"min=1"`
}

// CacheTTL returns the evidence cache lifetime.
func (c StoreConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// ServerConfig configures the HTTP upload surface.
type ServerConfig struct {
	Port        int   `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	MaxUploadMB int64 `yaml:"max_upload_mb" mapstructure:"max_upload_mb" validate:"min=1"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	return nil
}

// Load reads configuration from an optional .env file, config.yaml and
// TURNOVER_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	// Missing .env is normal; variables already set are not overridden.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TURNOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("pipeline.workers", 6)
	v.SetDefault("pipeline.fast_mode", true)
	v.SetDefault("pipeline.deep_fetch", false)
	v.SetDefault("search.base_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout_secs", 12)
	v.SetDefault("search.rate_per_sec", 2.0)
	v.SetDefault("search.user_agent", "")
	v.SetDefault("fetch.timeout_secs", 12)
	v.SetDefault("fetch.page_char_limit", 120000)
	v.SetDefault("fetch.page_concurrency", 2)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.initial_backoff_ms", 400)
	v.SetDefault("fetch.max_backoff_ms", 5000)
	v.SetDefault("fetch.max_conns_per_host", 20)
	v.SetDefault("extract.window", 80)
	v.SetDefault("extract.min_bare_amount", 1_000_000.0)
	v.SetDefault("taxonomy.path", "")
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.cache_ttl_hours", 168)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
