package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/adapters/senderdb"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/factory"
	"github.com/mailsift/mailsift/internal/logging"
	"github.com/mailsift/mailsift/internal/mailparse"
	"github.com/mailsift/mailsift/internal/protect"
	"github.com/mailsift/mailsift/internal/senders"
	"github.com/mailsift/mailsift/internal/textutil"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "ollama", "LLM provider (ollama, openai, gemini, bedrock)")
	maxTokens   = flag.Int("max-tokens", 500, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.1, "Temperature for LLM generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for LLM generation")
	maxBodySize = flag.Int("max-body-size", 4096, "Maximum message body size to send to LLM")

	// Ollama flags
	ollamaHost  = flag.String("ollama-host", "http://localhost:11434", "Ollama server address")
	ollamaModel = flag.String("ollama-model", "llama3", "Ollama model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-1.5-flash", "Gemini model name")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4o-mini", "OpenAI model name")

	// Routing flags
	archiveConfidence = flag.Float64("archive-confidence", 0.80, "Confidence needed to archive and label")
	reviewConfidence  = flag.Float64("review-confidence", 0.55, "Confidence needed to label for review")

	// Input flags
	inputFile  = flag.String("file", "", "Input message file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New(*configFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	ctx := context.Background()

	// Initialize inference client
	textProcessor := textutil.NewProcessor(logger)
	llmFactory := factory.NewLLMFactory(cfg, logger, textProcessor)
	llmClient, err := llmFactory.CreateLLMClient()
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	// Protected senders and one-shot sender memory
	p := cfg.GetProtected()
	protected := protect.NewRegistry(p.Domains, p.Keywords, logger)
	memory, err := senders.NewStore(ctx, senderdb.NewMemoryStore(), cfg.GetSenders().FilterThreshold, logger)
	if err != nil {
		logger.Fatal("Failed to build sender memory", zap.Error(err))
	}

	rc := cfg.GetRouter()
	router := core.NewRouter(core.RouterConfig{
		ArchiveConfidence: rc.ArchiveConfidence,
		ReviewConfidence:  rc.ReviewConfidence,
		LabelPrefix:       rc.LabelPrefix,
		ReviewLabel:       rc.ReviewLabel,
	}, protected, memory, logger)

	// Read message from file or stdin
	var msgReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		msgReader = file
		logger.Info("Reading message from file", zap.String("file", *inputFile))
	} else {
		msgReader = os.Stdin
		logger.Info("Reading message from stdin")
	}

	msg, err := mailparse.Parse(msgReader)
	if err != nil {
		logger.Fatal("Failed to parse message", zap.Error(err))
	}

	// Print message summary
	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", msg.Sender)
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Snippet length: %d bytes\n", len(msg.Snippet))
	fmt.Printf("\n")

	// Classify and route
	fmt.Printf("=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetString("llm.provider"))
	fmt.Printf("Archive confidence: %.2f\n", rc.ArchiveConfidence)
	fmt.Printf("Review confidence: %.2f\n", rc.ReviewConfidence)

	startTime := time.Now()

	// Protected messages never reach the model, same as in a full run
	var verdict *core.Verdict
	var infErr error
	if !protected.IsProtected(msg) {
		verdict, infErr = llmClient.Classify(ctx, msg)
	}
	decision := router.Decide(ctx, msg, verdict, infErr)
	duration := time.Since(startTime)

	// Print decision
	fmt.Printf("\n=== Decision ===\n")
	fmt.Printf("Action: %s\n", decision.Action)
	fmt.Printf("Reason: %s\n", decision.Reason)
	if decision.Tier != "" {
		fmt.Printf("Tier: %s\n", decision.Tier)
	}
	if verdict != nil {
		fmt.Printf("Category: %s\n", verdict.Category)
		fmt.Printf("Confidence: %.4f\n", verdict.Confidence)
		fmt.Printf("Explanation: %s\n", verdict.Explanation)
		fmt.Printf("Model used: %s\n", verdict.ModelUsed)
	}
	if decision.Label != "" {
		fmt.Printf("Label: %s\n", decision.Label)
	}
	if decision.TriggersFilterCreation {
		fmt.Printf("Filter: would create for %s\n", decision.SenderKey)
	}
	fmt.Printf("Processing time: %v\n", duration)

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	// Set LLM provider
	v.Set("llm.provider", *provider)

	// Set provider-specific configuration
	switch *provider {
	case "ollama":
		v.Set("ollama.host", *ollamaHost)
		v.Set("ollama.model", *ollamaModel)
		v.Set("ollama.temperature", *temperature)
		v.Set("ollama.max_body_size", *maxBodySize)
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
		v.Set("bedrock.temperature", *temperature)
		v.Set("bedrock.top_p", *topP)
		v.Set("bedrock.max_body_size", *maxBodySize)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
		v.Set("gemini.max_tokens", *maxTokens)
		v.Set("gemini.temperature", *temperature)
		v.Set("gemini.top_p", *topP)
		v.Set("gemini.max_body_size", *maxBodySize)
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
		v.Set("openai.max_tokens", *maxTokens)
		v.Set("openai.temperature", *temperature)
		v.Set("openai.top_p", *topP)
		v.Set("openai.max_body_size", *maxBodySize)
	}

	// Set routing thresholds
	v.Set("router.archive_confidence", *archiveConfidence)
	v.Set("router.review_confidence", *reviewConfidence)

	return config.NewFromViper(v)
}
