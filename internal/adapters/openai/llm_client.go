package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
)

// OpenAIClient classifies messages through the OpenAI chat API.
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *textutil.Processor
	promptFormat  string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *textutil.Processor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `Classify the email below into exactly one category:
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
func (c *OpenAIClient) Classify(ctx context.Context, msg *core.Message) (*core.Verdict, error) {
	body := c.textProcessor.Prepare(msg.Snippet, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, msg.Sender, msg.Subject, body)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email triage assistant. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	verdict, err := core.ParseVerdictResponse(resp.Choices[0].Message.Content, c.modelName)
	if err != nil {
		c.logger.Warn("Unparseable OpenAI response",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return nil, err
	}

	return verdict, nil
}

var _ core.InferenceClient = (*OpenAIClient)(nil)
