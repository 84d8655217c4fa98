package ports

import (
	"context"

	"github.com/mailshield/mailshield/internal/core"
)

// EmailFilter is the interface for email ingest surfaces
type EmailFilter interface {
	// Start starts the filter service
	Start() error
	// Stop stops the filter service
	Stop() error
	// ProcessEmail evaluates a single email directly, bypassing the
	// ingest transport. Used by the CLI and tests.
	ProcessEmail(ctx context.Context, email *core.CompactEmail) (*core.Decision, error)
}
