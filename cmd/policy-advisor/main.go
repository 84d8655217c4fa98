package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mailshield/mailshield/internal/config"
	"github.com/mailshield/mailshield/internal/core"
	"github.com/mailshield/mailshield/internal/factory"
	"github.com/mailshield/mailshield/internal/logging"
	"go.uber.org/zap"
)

var (
	domain   = flag.String("domain", "", "Sender domain to suggest a policy for (required)")
	limit    = flag.Int("limit", 25, "Maximum number of recent verdicts to consider")
	timeout  = flag.Duration("timeout", 30*time.Second, "Timeout for the advisor call")
	verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog  = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *domain == "" {
		fmt.Println("Usage: policy-advisor -domain <sender-domain>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	store, err := factory.NewFeedbackFactory(cfg, logger).CreateFeedbackStore()
	if err != nil {
		logger.Fatal("Failed to create feedback store", zap.Error(err))
	}

	advisor, err := factory.NewAdvisorFactory(cfg, logger).CreatePolicyAdvisor()
	if err != nil {
		logger.Fatal("Failed to create policy advisor", zap.Error(err))
	}
	if advisor == nil {
		logger.Fatal("No advisor provider configured; set advisor.provider to bedrock, openai, or gemini")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	history, err := store.RecentVerdicts(ctx, *domain, *limit)
	if err != nil {
		logger.Fatal("Failed to load verdict history", zap.Error(err))
	}

	trust, err := store.TrustFor(ctx, *domain)
	if err != nil {
		logger.Fatal("Failed to derive trust tier", zap.Error(err))
	}

	fmt.Printf("\n=== Sender History ===\n")
	fmt.Printf("Domain: %s\n", *domain)
	fmt.Printf("Trust tier: %s\n", tierLabel(trust.Tier))
	fmt.Printf("Recent verdicts: %d allow, %d block\n", trust.Allows, trust.Blocks)

	fmt.Printf("\n=== Suggestion ===\n")
	suggestion, err := advisor.SuggestPolicy(ctx, *domain, history)
	if err != nil {
		logger.Fatal("Failed to get policy suggestion", zap.Error(err))
	}
	fmt.Println(suggestion)

	if closer, ok := advisor.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close policy advisor", zap.Error(err))
		}
	}
	if stopper, ok := store.(interface{ Stop() }); ok {
		stopper.Stop()
	}
}

func tierLabel(tier core.TrustTier) string {
	if tier == core.TrustTierNone {
		return "none"
	}
	return string(tier)
}
