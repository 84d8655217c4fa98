package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// FileStore persists run documents as JSON files under a date-sharded
// directory tree: <root>/runs/YYYY/MM/DD/<run_id>_<hhmmss>.json. The
// returned key is the path relative to the root, stable enough for the
// HITL queue to reference.
type FileStore struct {
	root   string
	logger *zap.Logger
}

// NewFileStore creates a new file-backed audit store
func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit root: %w", err)
	}
	return &FileStore{root: root, logger: logger}, nil
}

// SaveRun writes one run document and returns its blob key
func (s *FileStore) SaveRun(ctx context.Context, doc *core.RunDocument) (string, error) {
	ts := doc.Timestamp.UTC()
	key := filepath.Join(
		"runs",
		ts.Format("2006"),
		ts.Format("01"),
		ts.Format("02"),
		fmt.Sprintf("%s_%s.json", doc.RunID, ts.Format("150405")),
	)

	path := filepath.Join(s.root, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create audit directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write run document: %w", err)
	}

	s.logger.Debug("Persisted run document",
		zap.String("run_id", doc.RunID),
		zap.String("key", key))
	return key, nil
}
