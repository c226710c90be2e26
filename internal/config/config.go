package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envKeyReplacer maps nested config keys to environment variable form
// (gmail.max_results -> GMAIL_MAX_RESULTS).
var envKeyReplacer = strings.NewReplacer(".", "_")

// Classifier strategy names accepted by the service.
const (
	StrategyKeyword = "keyword"
	StrategyGemini  = "gemini"
)

// GmailConfig bounds the mailbox window queried on each pipeline run.
type GmailConfig struct {
	// Query is the server-side Gmail search query used by messages.list.
	Query string `mapstructure:"query"`

	// MaxResults caps how many candidate messages are fetched per run.
	// The cap bounds cost and latency against the paginated Gmail API;
	// messages beyond it are silently excluded.
	MaxResults int64 `mapstructure:"max_results"`

	// FetchConcurrency bounds the number of parallel messages.get calls.
	FetchConcurrency int `mapstructure:"fetch_concurrency"`
}

// ClassifierConfig selects and configures the relevance classifier.
type ClassifierConfig struct {
	// Strategy is "keyword" (local rules) or "gemini" (delegated).
	Strategy string `mapstructure:"strategy"`

	// GeminiAPIKey authenticates against the Generative Language API.
	// Required when Strategy is "gemini". Also read from GEMINI_API_KEY.
	GeminiAPIKey string `mapstructure:"gemini_api_key"`

	// GeminiModel is the model name used for generateContent calls.
	GeminiModel string `mapstructure:"gemini_model"`
}

// MetricsConfig configures the dedicated Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the top-level service configuration.
type Config struct {
	// HTTPAddr is the listen address of the API server.
	HTTPAddr string `mapstructure:"http_addr"`

	// GoogleClientID is the OAuth client identifier served to the browser
	// client for the Google Identity Services consent flow. Opaque to the
	// backend; the backend never runs the consent flow itself.
	GoogleClientID string `mapstructure:"google_client_id"`

	Gmail      GmailConfig      `mapstructure:"gmail"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	// Debug enables debug-level logging.
	Debug bool `mapstructure:"debug"`
}

// The default Gmail query mirrors the broad meeting/assessment search the
// service was built around.
const defaultGmailQuery = "meeting OR drive OR invite OR zoom OR calendar OR interview OR assessment OR test"

// Load reads configuration from the environment using Viper.
// All keys can be set via EVENTMAIL_-prefixed variables
// (e.g. EVENTMAIL_CLASSIFIER_STRATEGY); the Gemini API key and Google
// client ID are additionally read from their conventional names
// (GEMINI_API_KEY, GOOGLE_CLIENT_ID).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("google_client_id", "")
	v.SetDefault("gmail.query", defaultGmailQuery)
	v.SetDefault("gmail.max_results", 30)
	v.SetDefault("gmail.fetch_concurrency", 5)
	v.SetDefault("classifier.strategy", StrategyKeyword)
	v.SetDefault("classifier.gemini_api_key", "")
	v.SetDefault("classifier.gemini_model", "gemini-1.5-flash")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("debug", false)

	v.SetEnvPrefix("EVENTMAIL")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	// Conventional variable names take precedence over the prefixed forms.
	if err := v.BindEnv("classifier.gemini_api_key", "GEMINI_API_KEY", "EVENTMAIL_CLASSIFIER_GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GEMINI_API_KEY: %w", err)
	}
	if err := v.BindEnv("google_client_id", "GOOGLE_CLIENT_ID", "EVENTMAIL_GOOGLE_CLIENT_ID"); err != nil {
		return nil, fmt.Errorf("failed to bind GOOGLE_CLIENT_ID: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty")
	}

	switch c.Classifier.Strategy {
	case StrategyKeyword:
		// No further requirements.
	case StrategyGemini:
		if c.Classifier.GeminiAPIKey == "" {
			return fmt.Errorf("gemini classifier requires an API key (set GEMINI_API_KEY)")
		}
		if c.Classifier.GeminiModel == "" {
			return fmt.Errorf("gemini classifier requires a model name")
		}
	default:
		return fmt.Errorf("invalid classifier strategy %q, must be one of: %s, %s",
			c.Classifier.Strategy, StrategyKeyword, StrategyGemini)
	}

	if c.Gmail.MaxResults < 1 || c.Gmail.MaxResults > 100 {
		return fmt.Errorf("gmail max_results must be between 1 and 100, got %d", c.Gmail.MaxResults)
	}
	if c.Gmail.FetchConcurrency < 1 {
		return fmt.Errorf("gmail fetch_concurrency must be at least 1, got %d", c.Gmail.FetchConcurrency)
	}
	if c.Gmail.Query == "" {
		return fmt.Errorf("gmail query must not be empty")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics addr must not be empty when metrics are enabled")
	}

	return nil
}
