package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mailshield/mailshield/internal/adapters/advisor"
	"github.com/mailshield/mailshield/internal/config"
	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// AdvisorFactory creates policy advisors based on configuration
type AdvisorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAdvisorFactory creates a new advisor factory
func NewAdvisorFactory(cfg *config.Config, logger *zap.Logger) *AdvisorFactory {
	return &AdvisorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreatePolicyAdvisor creates a policy advisor based on the configured
// provider, or nil when no provider is configured (the advisory surface
// is optional).
func (f *AdvisorFactory) CreatePolicyAdvisor() (core.PolicyAdvisor, error) {
	provider := f.cfg.GetString("advisor.provider")

	switch provider {
	case "":
		return nil, nil
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(f.cfg.GetString("bedrock.region")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		return advisor.NewBedrockAdvisor(
			bedrockruntime.NewFromConfig(awsCfg),
			f.cfg.GetString("bedrock.model_id"),
			f.cfg.GetInt("bedrock.max_tokens"),
			float32(f.cfg.GetFloat64("bedrock.temperature")),
			float32(f.cfg.GetFloat64("bedrock.top_p")),
			f.logger,
		), nil
	case "openai":
		return advisor.NewOpenAIAdvisor(
			f.cfg.GetString("openai.api_key"),
			f.cfg.GetString("openai.model_name"),
			f.cfg.GetInt("openai.max_tokens"),
			float32(f.cfg.GetFloat64("openai.temperature")),
			float32(f.cfg.GetFloat64("openai.top_p")),
			f.logger,
		), nil
	case "gemini":
		return advisor.NewGeminiAdvisor(
			f.cfg.GetString("gemini.api_key"),
			f.cfg.GetString("gemini.model_name"),
			f.cfg.GetInt("gemini.max_tokens"),
			float32(f.cfg.GetFloat64("gemini.temperature")),
			float32(f.cfg.GetFloat64("gemini.top_p")),
			f.logger,
		)
	default:
		return nil, fmt.Errorf("unsupported advisor provider: %s", provider)
	}
}
