package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	// Default shop credentials, used when a call does not carry its own.
	ShopDomain      string `mapstructure:"shopify_shop_url"`
	ShopAccessToken string `mapstructure:"shopify_access_token"`

	ShopifyTimeoutSeconds int64         `mapstructure:"shopify_timeout_seconds"`
	ShopifyMinIntervalMs  int64         `mapstructure:"shopify_min_interval_ms"`
	ShopifyRetryAttempts  int           `mapstructure:"shopify_retry_attempts"`
	ShopifyTimeout        time.Duration `mapstructure:"-"`
	ShopifyMinInterval    time.Duration `mapstructure:"-"`

	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
	OpenAIModel   string `mapstructure:"openai_model"`

	ScheduleDBPath string `mapstructure:"schedule_db_path"`
	SinksFile      string `mapstructure:"notify_sinks_file"`

	BatchChunkSize        int           `mapstructure:"batch_chunk_size"`
	BatchPauseSeconds     int64         `mapstructure:"batch_pause_seconds"`
	BatchPause            time.Duration `mapstructure:"-"`
	SiblingLinkLimit      int           `mapstructure:"sibling_link_limit"`
	GenerationMaxAttempts int           `mapstructure:"generation_max_attempts"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "shopify-ai-seo")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("shopify_shop_url", "")
	v.SetDefault("shopify_access_token", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("shopify_timeout_seconds", 30)
	v.SetDefault("shopify_min_interval_ms", 500)
	v.SetDefault("shopify_retry_attempts", 3)
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("schedule_db_path", "./data/schedule.db")
	v.SetDefault("notify_sinks_file", "")
	v.SetDefault("batch_chunk_size", 250)
	v.SetDefault("batch_pause_seconds", 2)
	v.SetDefault("sibling_link_limit", 4)
	v.SetDefault("generation_max_attempts", 3)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ShopifyTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid shopify_timeout_seconds (must be positive)")
	}
	if cfg.ShopifyMinIntervalMs < 0 {
		return nil, fmt.Errorf("invalid shopify_min_interval_ms (must not be negative)")
	}
	if cfg.ShopifyRetryAttempts <= 0 {
		return nil, fmt.Errorf("invalid shopify_retry_attempts (must be positive)")
	}
	if cfg.BatchChunkSize <= 0 {
		return nil, fmt.Errorf("invalid batch_chunk_size (must be positive)")
	}
	if cfg.BatchPauseSeconds < 0 {
		return nil, fmt.Errorf("invalid batch_pause_seconds (must not be negative)")
	}
	cfg.ShopifyTimeout = time.Duration(cfg.ShopifyTimeoutSeconds) * time.Second
	cfg.ShopifyMinInterval = time.Duration(cfg.ShopifyMinIntervalMs) * time.Millisecond
	cfg.BatchPause = time.Duration(cfg.BatchPauseSeconds) * time.Second

	return &cfg, nil
}
