package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// CliFilter implements a command-line interface for one-shot evaluation
type CliFilter struct {
	service *core.PipelineService
	logger  *zap.Logger
	verbose bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(service *core.PipelineService, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	return &CliFilter{
		service: service,
		logger:  logger,
		verbose: verbose,
	}, nil
}

// ProcessEmail evaluates an email and displays the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.CompactEmail) (*core.Decision, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From.Addr))

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.From.Addr)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Body length: %d bytes\n", len(email.Body))

	// Print body preview if verbose
	if f.verbose {
		preview := email.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Evaluating email...\n")
	startTime := time.Now()
	decision, err := f.service.Evaluate(ctx, core.EvaluationRequest{Email: email})
	if err != nil {
		f.logger.Error("Failed to evaluate email", zap.Error(err))
		fmt.Printf("Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Verdict: %s\n", decision.Verdict)
	fmt.Printf("Sender risk: %d\n", decision.Risk)
	fmt.Printf("HITL: %s\n", decision.HITL.Status)
	for _, reason := range decision.Reasons {
		fmt.Printf("Reason: %s\n", reason)
	}
	fmt.Printf("Processing time: %v\n", duration)

	return decision, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
