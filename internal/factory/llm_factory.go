package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/adapters/bedrock"
	"github.com/mailsift/mailsift/internal/adapters/gemini"
	"github.com/mailsift/mailsift/internal/adapters/ollama"
	"github.com/mailsift/mailsift/internal/adapters/openai"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
)

// LLMFactory creates inference clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *textutil.Processor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *textutil.Processor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new inference client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.InferenceClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "ollama":
		return ollama.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateLLMClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
