package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mailshield/mailshield/internal/adapters/graph"
	"github.com/mailshield/mailshield/internal/config"
	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// GraphFactory creates sender graphs based on configuration
type GraphFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGraphFactory creates a new graph factory
func NewGraphFactory(cfg *config.Config, logger *zap.Logger) *GraphFactory {
	return &GraphFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSenderGraph creates a sender graph based on the configuration
func (f *GraphFactory) CreateSenderGraph() (core.SenderGraph, error) {
	graphType := f.cfg.GetString("graph.type")

	switch graphType {
	case "memory":
		return graph.NewMemoryGraph(f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("graph.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return graph.NewSQLiteGraph(sqlitePath, f.logger)
	default:
		return nil, fmt.Errorf("unsupported graph type: %s", graphType)
	}
}
