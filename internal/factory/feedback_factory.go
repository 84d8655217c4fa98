package factory

import (
	"fmt"

	"github.com/mailshield/mailshield/internal/adapters/feedback"
	"github.com/mailshield/mailshield/internal/config"
	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// FeedbackStore combines the trust and HITL queue ports, which every
// feedback backend implements together.
type FeedbackStore interface {
	core.TrustStore
	core.HITLQueue
}

// FeedbackFactory creates feedback stores based on configuration
type FeedbackFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFeedbackFactory creates a new feedback factory
func NewFeedbackFactory(cfg *config.Config, logger *zap.Logger) *FeedbackFactory {
	return &FeedbackFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateFeedbackStore creates a feedback store based on the configuration
func (f *FeedbackFactory) CreateFeedbackStore() (FeedbackStore, error) {
	storeType := f.cfg.GetString("feedback.type")

	switch storeType {
	case "memory":
		return feedback.NewMemoryStore(f.logger), nil
	case "postgres":
		dsn := f.cfg.GetString("feedback.postgres_dsn")
		if dsn == "" {
			return nil, fmt.Errorf("feedback.postgres_dsn is required for the postgres store")
		}
		return feedback.NewPostgresStore(dsn, f.logger)
	default:
		return nil, fmt.Errorf("unsupported feedback store type: %s", storeType)
	}
}
