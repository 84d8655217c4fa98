package advisor

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiAdvisor implements the PolicyAdvisor port using Google Gemini
type GeminiAdvisor struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	logger    *zap.Logger
}

// NewGeminiAdvisor creates a new Gemini policy advisor
func NewGeminiAdvisor(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*GeminiAdvisor, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiAdvisor{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// Close closes the Gemini client
func (a *GeminiAdvisor) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// SuggestPolicy asks the model for a filtering policy suggestion based
// on the verdict history of a sender domain
func (a *GeminiAdvisor) SuggestPolicy(ctx context.Context, domain string, history []core.VerdictRecord) (string, error) {
	prompt := buildPrompt(domain, history)

	resp, err := a.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return parseSuggestion(responseText)
}
