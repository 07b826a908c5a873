// Package config handles configuration loading for newspulse.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/seenimoa/newspulse/internal/logging"
)

// Config represents the complete application configuration.
type Config struct {
	App     AppConfig      `mapstructure:"app"     yaml:"app"`
	Feeds   FeedsConfig    `mapstructure:"feeds"   yaml:"feeds"`
	LLM     LLMConfig      `mapstructure:"llm"     yaml:"llm"`
	Quota   QuotaConfig    `mapstructure:"quota"   yaml:"quota"`
	Store   StoreConfig    `mapstructure:"store"   yaml:"store"`
	Output  OutputConfig   `mapstructure:"output"  yaml:"output"`
	Slack   SlackConfig    `mapstructure:"slack"   yaml:"slack"`
	Logging logging.Config `mapstructure:"logging" yaml:"logging"`
}

// AppConfig holds pipeline-wide settings.
type AppConfig struct {
	BatchSize      int `mapstructure:"batch_size"       yaml:"batch_size"`       // max items per invocation
	DeepCutoff     int `mapstructure:"deep_cutoff"      yaml:"deep_cutoff"`      // top-N items eligible for deep analysis
	Workers        int `mapstructure:"workers"          yaml:"workers"`          // concurrent enrichment workers
	TimeoutSeconds int `mapstructure:"timeout_seconds"  yaml:"timeout_seconds"`  // global batch timeout
}

// FeedsConfig holds RSS collection settings.
type FeedsConfig struct {
	Keywords   []string `mapstructure:"keywords"     yaml:"keywords"`     // Google News search terms
	URLs       []string `mapstructure:"urls"         yaml:"urls"`         // direct RSS feed URLs
	OPMLPath   string   `mapstructure:"opml_path"    yaml:"opml_path"`    // optional OPML feed list
	Language   string   `mapstructure:"language"     yaml:"language"`     // hl parameter, e.g. "ko"
	Country    string   `mapstructure:"country"      yaml:"country"`      // gl parameter, e.g. "KR"
	CEID       string   `mapstructure:"ceid"         yaml:"ceid"`         // ceid parameter, e.g. "KR:ko"
	MaxAgeDays int      `mapstructure:"max_age_days" yaml:"max_age_days"` // drop items older than this
	MaxPerFeed int      `mapstructure:"max_per_feed" yaml:"max_per_feed"`
}

// LLMConfig holds provider configuration.
type LLMConfig struct {
	Primary       string  `mapstructure:"primary"        yaml:"primary"` // "groq", "gemini", "openai", "anthropic"
	GroqKey       string  `mapstructure:"groq_key"       yaml:"groq_key"`
	GeminiKey     string  `mapstructure:"gemini_key"     yaml:"gemini_key"`
	OpenAIKey     string  `mapstructure:"openai_key"     yaml:"openai_key"`
	AnthropicKey  string  `mapstructure:"anthropic_key"  yaml:"anthropic_key"`
	GroqModel     string  `mapstructure:"groq_model"     yaml:"groq_model"`
	GeminiModel   string  `mapstructure:"gemini_model"   yaml:"gemini_model"`
	OpenAIModel   string  `mapstructure:"openai_model"   yaml:"openai_model"`
	AnthropicModel string `mapstructure:"anthropic_model" yaml:"anthropic_model"`
	UsePaid       bool    `mapstructure:"use_paid"       yaml:"use_paid"`
	CrossValidate bool    `mapstructure:"cross_validate" yaml:"cross_validate"`
	Temperature   float64 `mapstructure:"temperature"    yaml:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"     yaml:"max_tokens"`
}

// QuotaConfig holds per-provider call budgets.
type QuotaConfig struct {
	Groq      ProviderQuotaConfig `mapstructure:"groq"      yaml:"groq"`
	Gemini    ProviderQuotaConfig `mapstructure:"gemini"    yaml:"gemini"`
	OpenAI    ProviderQuotaConfig `mapstructure:"openai"    yaml:"openai"`
	Anthropic ProviderQuotaConfig `mapstructure:"anthropic" yaml:"anthropic"`
}

// ProviderQuotaConfig is a single provider's minute/day budget.
type ProviderQuotaConfig struct {
	MinuteLimit int `mapstructure:"minute_limit" yaml:"minute_limit"`
	DailyLimit  int `mapstructure:"daily_limit"  yaml:"daily_limit"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // SQLite file path; empty disables persistence
}

// OutputConfig holds output settings.
type OutputConfig struct {
	CSVPath string `mapstructure:"csv_path" yaml:"csv_path"`
}

// SlackConfig holds Slack webhook notification settings.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Enabled    bool   `mapstructure:"enabled"     yaml:"enabled"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.newspulse/config.yaml (home directory)
//  3. /etc/newspulse/config.yaml (system)
//
// Environment variables override config file values.
// Format: NEWSPULSE_<SECTION>_<KEY>, e.g., NEWSPULSE_LLM_PRIMARY.
// The conventional bare key names (GROQ_API_KEY, USE_PAID_API, ...)
// are also honored; see overrideFromEnv.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".newspulse"))
	v.AddConfigPath("/etc/newspulse")

	v.SetEnvPrefix("NEWSPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("NEWSPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.batch_size", 50)
	v.SetDefault("app.deep_cutoff", 10)
	v.SetDefault("app.workers", 5)
	v.SetDefault("app.timeout_seconds", 300)

	// Feed defaults
	v.SetDefault("feeds.language", "ko")
	v.SetDefault("feeds.country", "KR")
	v.SetDefault("feeds.ceid", "KR:ko")
	v.SetDefault("feeds.max_age_days", 7)
	v.SetDefault("feeds.max_per_feed", 10)
	v.SetDefault("feeds.keywords", []string{
		"PUBG 모바일 매출",
		"배틀그라운드 모바일",
		"mobile game revenue",
	})

	// LLM defaults — free tier first
	v.SetDefault("llm.primary", "groq")
	v.SetDefault("llm.groq_model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.gemini_model", "gemini-2.0-flash")
	v.SetDefault("llm.openai_model", "gpt-4o-mini")
	v.SetDefault("llm.anthropic_model", "claude-3-5-haiku-20241022")
	v.SetDefault("llm.use_paid", false)
	v.SetDefault("llm.cross_validate", false)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 1024)

	// Quota defaults — published free-tier limits
	v.SetDefault("quota.groq.minute_limit", 30)
	v.SetDefault("quota.groq.daily_limit", 14400)
	v.SetDefault("quota.gemini.minute_limit", 15)
	v.SetDefault("quota.gemini.daily_limit", 1500)
	v.SetDefault("quota.openai.minute_limit", 500)
	v.SetDefault("quota.openai.daily_limit", 10000)
	v.SetDefault("quota.anthropic.minute_limit", 50)
	v.SetDefault("quota.anthropic.daily_limit", 1000)

	// Store / output defaults
	v.SetDefault("store.path", "data/newspulse.db")
	v.SetDefault("output.csv_path", "data/news.csv")

	// Slack defaults
	v.SetDefault("slack.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file_path", "logs/newspulse.log")
}

// overrideFromEnv reads the conventional bare environment variable names
// used by deployment environments, taking precedence over file values.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		cfg.LLM.GroqKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("CLAUDE_API_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
	if v := os.Getenv("USE_PAID_API"); v != "" {
		cfg.LLM.UsePaid = parseBool(v)
	}
	if v := os.Getenv("CROSS_VALIDATE"); v != "" {
		cfg.LLM.CrossValidate = parseBool(v)
	}
	if url := os.Getenv("SLACK_WEBHOOK_URL"); url != "" {
		cfg.Slack.WebhookURL = url
		cfg.Slack.Enabled = true
	}
}

// parseBool accepts the loose truthy forms seen in CI environments.
func parseBool(s string) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return strings.EqualFold(s, "yes") || strings.EqualFold(s, "on")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
