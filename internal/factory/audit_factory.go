package factory

import (
	"github.com/mailshield/mailshield/internal/adapters/audit"
	"github.com/mailshield/mailshield/internal/config"
	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// AuditFactory creates audit stores based on configuration
type AuditFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAuditFactory creates a new audit factory
func NewAuditFactory(cfg *config.Config, logger *zap.Logger) *AuditFactory {
	return &AuditFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateAuditStore creates an audit store, or nil when auditing is
// disabled (the pipeline treats a nil store as a no-op).
func (f *AuditFactory) CreateAuditStore() (core.AuditStore, error) {
	if !f.cfg.GetBool("audit.enabled") {
		return nil, nil
	}
	return audit.NewFileStore(f.cfg.GetString("audit.dir"), f.logger)
}
