package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
)

// OllamaClient classifies messages against a locally running Ollama
// server. This is the default provider: no API key, no data leaving
// the machine.
type OllamaClient struct {
	client        *api.Client
	modelName     string
	timeout       time.Duration
	temperature   float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *textutil.Processor
	promptFormat  string
}

// NewOllamaClient creates a new Ollama client
func NewOllamaClient(
	client *api.Client,
	modelName string,
	timeout time.Duration,
	temperature float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *textutil.Processor,
) *OllamaClient {
	return &OllamaClient{
		client:        client,
		modelName:     modelName,
		timeout:       timeout,
		temperature:   temperature,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are an email triage assistant. Classify the email below into exactly one category:
- marketing: promotions, sales, product announcements, course pitches
- outreach: cold outreach, recruiting, sales prospecting, link building
- newsletter: recurring digests and editorial mailings
- other: personal mail, receipts, invoices, security alerts, anything important

Email:
From: %s
Subject: %s
Body:
%s

Respond with a JSON object containing:
- category: one of "marketing", "outreach", "newsletter", "other"
- confidence: number between 0 and 1 (how confident you are)
- explanation: string (one short sentence)

Respond only with the JSON object and nothing else.`,
	}
}

// Classify produces a verdict for one message.
func (c *OllamaClient) Classify(ctx context.Context, msg *core.Message) (*core.Verdict, error) {
	body := c.textProcessor.Prepare(msg.Snippet, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, msg.Sender, msg.Subject, body)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  c.modelName,
		Prompt: prompt,
		Stream: &stream,
		Format: "json",
		Options: map[string]interface{}{
			"temperature": c.temperature,
		},
	}

	var sb strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate with Ollama: %w", err)
	}

	verdict, err := core.ParseVerdictResponse(sb.String(), c.modelName)
	if err != nil {
		c.logger.Warn("Unparseable Ollama response",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return nil, err
	}

	return verdict, nil
}

var _ core.InferenceClient = (*OllamaClient)(nil)
