// Package config provides configuration management for the digest pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the digest pipeline.
type Config struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Arxiv contains feed and archive retrieval settings.
	Arxiv ArxivConfig `mapstructure:"arxiv"`
	// LLM contains language-model client settings.
	LLM LLMConfig `mapstructure:"llm"`
	// PapersWithCode contains repository-lookup settings.
	PapersWithCode PapersWithCodeConfig `mapstructure:"paperswithcode"`
	// Feishu contains delivery webhook settings.
	Feishu FeishuConfig `mapstructure:"feishu"`
	// History contains the sent-paper ledger settings.
	History HistoryConfig `mapstructure:"history"`
	// Digest contains run-level settings.
	Digest DigestConfig `mapstructure:"digest"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level" validate:"required,oneof=trace debug info warn error fatal panic"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format" validate:"required,oneof=json console"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output" validate:"required"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// ArxivConfig holds feed and archive retrieval configuration.
type ArxivConfig struct {
	// Categories are the subject categories to pull from the feed.
	Categories []string `mapstructure:"categories" validate:"required,min=1"`
	// MaxResults is the maximum papers fetched per run.
	MaxResults int `mapstructure:"max_results" validate:"gt=0"`
	// BaseURL is the query API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// EPrintBaseURL is the base URL for source archives.
	EPrintBaseURL string `mapstructure:"eprint_base_url" validate:"required,url"`
	// HTMLBaseURL is the base URL for rendered paper pages.
	HTMLBaseURL string `mapstructure:"html_base_url" validate:"required,url"`
	// RateLimit is the maximum requests per second against the API.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// LLMConfig holds language-model configuration.
type LLMConfig struct {
	// Provider is the model provider name ("openai" or "anthropic").
	Provider string `mapstructure:"provider" validate:"required,oneof=openai anthropic"`
	// Lang is the target natural language for summary translation.
	Lang string `mapstructure:"lang" validate:"required"`
	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	// Timeout is the timeout for model API calls.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI ProviderConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic ProviderConfig `mapstructure:"anthropic"`
}

// ProviderConfig holds per-provider model settings. API keys are loaded
// exclusively from environment variables.
type ProviderConfig struct {
	// APIKey is the provider API key (environment only).
	APIKey string `mapstructure:"-"`
	// Model is the model identifier.
	Model string `mapstructure:"model"`
	// BaseURL overrides the provider base URL (empty means default).
	BaseURL string `mapstructure:"base_url"`
}

// PapersWithCodeConfig holds repository-lookup configuration.
type PapersWithCodeConfig struct {
	// Enabled toggles code-repository lookup.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the papers index API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// FeishuConfig holds delivery webhook configuration.
type FeishuConfig struct {
	// WebhookURL is the custom bot webhook address (environment only).
	WebhookURL string `mapstructure:"-" validate:"required,url"`
	// Secret is the bot signing secret (environment only, optional).
	Secret string `mapstructure:"-"`
}

// HistoryConfig holds the sent-paper ledger configuration.
type HistoryConfig struct {
	// Path is the SQLite database file path.
	Path string `mapstructure:"path" validate:"required"`
}

// DigestConfig holds run-level configuration.
type DigestConfig struct {
	// MaxPapers caps how many papers one digest may contain.
	MaxPapers int `mapstructure:"max_papers" validate:"gt=0"`
	// SendEmpty controls whether a run with no new papers still sends the
	// rest-day card.
	SendEmpty bool `mapstructure:"send_empty"`
}

// Load reads configuration from defaults, an optional config file and
// DIGEST_-prefixed environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/arxiv-digest")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine, env vars and defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment
// variables. These fields are tagged mapstructure:"-" so they can never
// come from a config file.
func loadSecrets(cfg *Config) {
	cfg.LLM.OpenAI.APIKey = os.Getenv("DIGEST_LLM_OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = os.Getenv("DIGEST_LLM_ANTHROPIC_API_KEY")
	cfg.Feishu.WebhookURL = os.Getenv("DIGEST_FEISHU_WEBHOOK_URL")
	cfg.Feishu.Secret = os.Getenv("DIGEST_FEISHU_SECRET")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Feed defaults
	v.SetDefault("arxiv.categories", []string{"cs.CL", "cs.LG"})
	v.SetDefault("arxiv.max_results", 50)
	v.SetDefault("arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("arxiv.eprint_base_url", "https://arxiv.org/e-print")
	v.SetDefault("arxiv.html_base_url", "https://arxiv.org/html")
	v.SetDefault("arxiv.rate_limit", 0.5)
	v.SetDefault("arxiv.timeout", "30s")

	// Model defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.lang", "Chinese")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-20250514")

	// Repository lookup defaults
	v.SetDefault("paperswithcode.enabled", true)
	v.SetDefault("paperswithcode.base_url", "https://paperswithcode.com/api/v1")

	// Ledger defaults
	v.SetDefault("history.path", "digest-history.db")

	// Run defaults
	v.SetDefault("digest.max_papers", 20)
	v.SetDefault("digest.send_empty", true)
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("validation setup error: %w", err)
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("field %s failed %q validation", first.Namespace(), first.Tag())
		}
		return err
	}

	apiKey := c.LLM.OpenAI.APIKey
	if c.LLM.Provider == "anthropic" {
		apiKey = c.LLM.Anthropic.APIKey
	}
	if apiKey == "" {
		return fmt.Errorf("missing API key for provider %q", c.LLM.Provider)
	}

	return nil
}
