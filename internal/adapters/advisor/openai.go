package advisor

import (
	"context"
	"fmt"

	"github.com/mailshield/mailshield/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIAdvisor implements the PolicyAdvisor port using OpenAI
type OpenAIAdvisor struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewOpenAIAdvisor creates a new OpenAI policy advisor
func NewOpenAIAdvisor(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIAdvisor {
	return &OpenAIAdvisor{
		client:      openai.NewClient(apiKey),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// SuggestPolicy asks the model for a filtering policy suggestion based
// on the verdict history of a sender domain
func (a *OpenAIAdvisor) SuggestPolicy(ctx context.Context, domain string, history []core.VerdictRecord) (string, error) {
	prompt := buildPrompt(domain, history)

	req := openai.ChatCompletionRequest{
		Model: a.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email security policy assistant. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		TopP:        a.topP,
	}
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: "json"}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	a.logger.Debug("OpenAI suggestion received",
		zap.String("domain", domain),
		zap.String("processing_id", resp.ID))

	return parseSuggestion(resp.Choices[0].Message.Content)
}
