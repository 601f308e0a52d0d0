package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. An explicit file path
// skips the search path; otherwise config.yaml is looked up in the
// usual places and defaults cover everything that is missing.
func New(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/mailsift/")
		v.AddConfigPath("$HOME/.mailsift")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("MAILSIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file found, defaults apply
	}

	cfg := &Config{v: v}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "ollama")

	// Ollama defaults
	v.SetDefault("ollama.host", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3")
	v.SetDefault("ollama.timeout", "30s")
	v.SetDefault("ollama.temperature", 0.1)
	v.SetDefault("ollama.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 500)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 500)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Router defaults
	v.SetDefault("router.archive_confidence", 0.80)
	v.SetDefault("router.review_confidence", 0.55)
	v.SetDefault("router.label_prefix", "AUTO/")
	v.SetDefault("router.review_label", "AUTO/Review")

	// Sender memory defaults
	v.SetDefault("senders.store", "file")
	v.SetDefault("senders.filter_threshold", 3)
	v.SetDefault("senders.file_path", "data/senders.json")
	v.SetDefault("senders.sqlite_path", "data/senders.db")
	v.SetDefault("senders.mysql_dsn", "user:password@tcp(localhost:3306)/mailsift")

	// Safety defaults. Bare TLDs protect every domain under them.
	v.SetDefault("protected.domains", []string{
		"google.com", "apple.com", "amazon.com", "microsoft.com",
		"gov", "edu", "mil",
		"chase.com", "bankofamerica.com", "wellsfargo.com", "citi.com", "amex.com",
		"stripe.com", "paypal.com",
		"linkedin.com", "github.com", "gitlab.com",
	})
	v.SetDefault("protected.keywords", []string{
		"offer letter", "interview", "invoice", "payment", "receipt",
		"security alert", "verification code", "password reset",
		"tax", "legal", "contract", "agreement",
	})

	// Mail source defaults
	v.SetDefault("source.type", "gmail")
	v.SetDefault("gmail.credentials_file", "credentials.json")
	v.SetDefault("gmail.token_file", "token.json")
	v.SetDefault("gmail.rate_limit", 5)

	// Run defaults
	v.SetDefault("run.query", "is:unread")
	v.SetDefault("run.limit", 10)
	v.SetDefault("run.dry_run", false)

	// Inference defaults
	v.SetDefault("inference.prefetch", 1)

	// Retry defaults
	v.SetDefault("retry.initial_interval", "500ms")
	v.SetDefault("retry.max_interval", "5s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter", true)
	v.SetDefault("retry.max_retries", 2)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
}

// Validate rejects configurations the pipeline cannot run with.
// Failing here is the only acceptable fatal error in the whole
// program, so the checks are strict.
func (c *Config) Validate() error {
	router := c.GetRouter()
	if router.ArchiveConfidence < 0 || router.ArchiveConfidence > 1 {
		return fmt.Errorf("router.archive_confidence %v out of range [0,1]", router.ArchiveConfidence)
	}
	if router.ReviewConfidence < 0 || router.ReviewConfidence > 1 {
		return fmt.Errorf("router.review_confidence %v out of range [0,1]", router.ReviewConfidence)
	}
	if router.ArchiveConfidence < router.ReviewConfidence {
		return fmt.Errorf("router.archive_confidence %v below router.review_confidence %v",
			router.ArchiveConfidence, router.ReviewConfidence)
	}
	if router.LabelPrefix == "" {
		return fmt.Errorf("router.label_prefix must not be empty")
	}

	if n := c.GetInt("senders.filter_threshold"); n <= 0 {
		return fmt.Errorf("senders.filter_threshold must be positive, got %d", n)
	}

	switch s := c.GetString("senders.store"); s {
	case "file", "sqlite", "mysql", "memory":
	default:
		return fmt.Errorf("unknown senders.store %q", s)
	}

	switch s := c.GetString("source.type"); s {
	case "gmail", "mock":
	default:
		return fmt.Errorf("unknown source.type %q", s)
	}

	switch p := c.GetString("llm.provider"); p {
	case "ollama", "openai", "gemini", "bedrock":
	default:
		return fmt.Errorf("unknown llm.provider %q", p)
	}

	return nil
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// Set overrides a configuration value, used by CLI flags.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
