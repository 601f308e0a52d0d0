package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
)

// GeminiClient classifies messages through the Google Gemini API.
type GeminiClient struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *textutil.Processor
	promptFormat  string
}

// NewGeminiClient creates a new Gemini client around an already
// authenticated genai client.
func NewGeminiClient(
	client *genai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *textutil.Processor,
) *GeminiClient {
	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"

	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
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

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify produces a verdict for one message.
func (c *GeminiClient) Classify(ctx context.Context, msg *core.Message) (*core.Verdict, error) {
	body := c.textProcessor.Prepare(msg.Snippet, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, msg.Sender, msg.Subject, body)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	verdict, err := core.ParseVerdictResponse(responseText, c.modelName)
	if err != nil {
		c.logger.Warn("Unparseable Gemini response",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return nil, err
	}

	return verdict, nil
}

var _ core.InferenceClient = (*GeminiClient)(nil)
