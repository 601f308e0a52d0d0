package ollama

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
)

// Factory creates new instances of OllamaClient
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *textutil.Processor
}

// NewFactory creates a new factory for OllamaClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *textutil.Processor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new OllamaClient
func (f *Factory) CreateLLMClient() (core.InferenceClient, error) {
	ollamaCfg := f.cfg.GetOllama()

	var client *api.Client
	if ollamaCfg.Host == "" {
		// Fall back to OLLAMA_HOST resolution
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		client = c
	} else {
		base, err := url.Parse(ollamaCfg.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama.host %q: %w", ollamaCfg.Host, err)
		}
		client = api.NewClient(base, http.DefaultClient)
	}

	return NewOllamaClient(
		client,
		ollamaCfg.Model,
		ollamaCfg.Timeout,
		ollamaCfg.Temperature,
		ollamaCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
