package config

import "time"

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// OllamaConfig represents the configuration for a local Ollama server
type OllamaConfig struct {
	Host        string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// RouterConfig represents the thresholds and labels for routing
type RouterConfig struct {
	ArchiveConfidence float64
	ReviewConfidence  float64
	LabelPrefix       string
	ReviewLabel       string
}

// SendersConfig represents the sender memory configuration
type SendersConfig struct {
	Store           string
	FilterThreshold int
	FilePath        string
	SQLitePath      string
	MySQLDSN        string
}

// ProtectedConfig represents the safety rules
type ProtectedConfig struct {
	Domains  []string
	Keywords []string
}

// SourceConfig represents the mail source selection
type SourceConfig struct {
	Type string
}

// GmailConfig represents the Gmail connection settings
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
	RateLimit       int
}

// RunConfig represents the per-run parameters
type RunConfig struct {
	Query  string
	Limit  int
	DryRun bool
}

// InferenceConfig represents pipeline-level inference settings
type InferenceConfig struct {
	Prefetch int
}

// RetryConfig represents the backoff schedule for provider calls
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          bool
	MaxRetries      int
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetOllama returns the Ollama configuration
func (c *Config) GetOllama() OllamaConfig {
	timeout, err := c.GetDuration("ollama.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return OllamaConfig{
		Host:        c.GetString("ollama.host"),
		Model:       c.GetString("ollama.model"),
		Timeout:     timeout,
		Temperature: float32(c.GetFloat64("ollama.temperature")),
		MaxBodySize: c.GetInt("ollama.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetRouter returns the router configuration
func (c *Config) GetRouter() RouterConfig {
	return RouterConfig{
		ArchiveConfidence: c.GetFloat64("router.archive_confidence"),
		ReviewConfidence:  c.GetFloat64("router.review_confidence"),
		LabelPrefix:       c.GetString("router.label_prefix"),
		ReviewLabel:       c.GetString("router.review_label"),
	}
}

// GetSenders returns the sender memory configuration
func (c *Config) GetSenders() SendersConfig {
	return SendersConfig{
		Store:           c.GetString("senders.store"),
		FilterThreshold: c.GetInt("senders.filter_threshold"),
		FilePath:        c.GetString("senders.file_path"),
		SQLitePath:      c.GetString("senders.sqlite_path"),
		MySQLDSN:        c.GetString("senders.mysql_dsn"),
	}
}

// GetProtected returns the safety rules
func (c *Config) GetProtected() ProtectedConfig {
	return ProtectedConfig{
		Domains:  c.GetStringSlice("protected.domains"),
		Keywords: c.GetStringSlice("protected.keywords"),
	}
}

// GetSource returns the mail source selection
func (c *Config) GetSource() SourceConfig {
	return SourceConfig{
		Type: c.GetString("source.type"),
	}
}

// GetGmail returns the Gmail connection settings
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		CredentialsFile: c.GetString("gmail.credentials_file"),
		TokenFile:       c.GetString("gmail.token_file"),
		RateLimit:       c.GetInt("gmail.rate_limit"),
	}
}

// GetRun returns the per-run parameters
func (c *Config) GetRun() RunConfig {
	return RunConfig{
		Query:  c.GetString("run.query"),
		Limit:  c.GetInt("run.limit"),
		DryRun: c.GetBool("run.dry_run"),
	}
}

// GetInference returns the inference pipeline settings
func (c *Config) GetInference() InferenceConfig {
	return InferenceConfig{
		Prefetch: c.GetInt("inference.prefetch"),
	}
}

// GetRetry returns the backoff schedule for provider calls
func (c *Config) GetRetry() RetryConfig {
	initial, err := c.GetDuration("retry.initial_interval")
	if err != nil {
		initial = 500 * time.Millisecond
	}
	max, err := c.GetDuration("retry.max_interval")
	if err != nil {
		max = 5 * time.Second
	}
	return RetryConfig{
		InitialInterval: initial,
		MaxInterval:     max,
		Multiplier:      c.GetFloat64("retry.multiplier"),
		Jitter:          c.GetBool("retry.jitter"),
		MaxRetries:      c.GetInt("retry.max_retries"),
	}
}
