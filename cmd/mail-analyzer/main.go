package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/mailshield/mailshield/internal/adapters/cache"
	"github.com/mailshield/mailshield/internal/adapters/feedback"
	"github.com/mailshield/mailshield/internal/adapters/filter"
	"github.com/mailshield/mailshield/internal/adapters/graph"
	"github.com/mailshield/mailshield/internal/config"
	"github.com/mailshield/mailshield/internal/core"
	"github.com/mailshield/mailshield/internal/factory"
	"github.com/mailshield/mailshield/internal/intel"
	"github.com/mailshield/mailshield/internal/logging"
	"github.com/mailshield/mailshield/internal/utils"
	"go.uber.org/zap"
)

var (
	// Intel flags
	intelBudget    = flag.String("intel-budget", "2200ms", "Wall-clock budget for OSINT probes")
	offline        = flag.Bool("offline", false, "Skip network probes entirely")
	urlscanKey     = flag.String("urlscan-api-key", "", "API key for urlscan.io")
	abuseKey       = flag.String("abuseipdb-api-key", "", "API key for AbuseIPDB")
	clientIP       = flag.String("client-ip", "", "SMTP client IP to attribute to the message")

	// Policy flags
	allowlist    = flag.String("allowlist", "", "Comma-separated allow-listed addresses or domains")
	brandDomains = flag.String("brands", "", "Comma-separated protected brand domains")

	// Decision flags
	phiEntities  = flag.Int("phi-entities", 0, "Number of PHI entities detected upstream")
	priorVerdict = flag.String("prior-verdict", "", "Upstream baseline verdict (ALLOW or QUARANTINE)")
	maxBodySize  = flag.Int("max-body-size", 65536, "Maximum email body size to analyze")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	jsonOut    = flag.Bool("json", false, "Print the decision as JSON")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	policy, err := config.LoadPolicy(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to load policy", zap.Error(err))
	}

	// One-shot runs use in-process state: nothing persists between
	// invocations, so the graph sees every sender as first-time unless
	// a shared backend is configured.
	featureCache := cache.NewMemoryCache(logger, time.Hour)
	defer featureCache.Stop()
	senderGraph := graph.NewMemoryGraph(logger)
	trustStore := feedback.NewMemoryStore(logger)

	budget, err := cfg.GetDuration("intel.budget")
	if err != nil {
		logger.Fatal("Invalid intel budget", zap.Error(err))
	}

	var domainProber core.DomainProber
	var ipProber core.IPProber
	if !*offline {
		intelFactory := factory.NewIntelFactory(cfg, logger)
		prober, err := intelFactory.CreateProber()
		if err != nil {
			logger.Fatal("Failed to create OSINT prober", zap.Error(err))
		}
		domainProber = prober
		ipProber = prober
	}

	aggregator := intel.NewAggregator(
		featureCache,
		senderGraph,
		domainProber,
		ipProber,
		policy,
		budget,
		168*time.Hour,
		24*time.Hour,
		logger,
	)

	service := core.NewPipelineService(aggregator, trustStore, nil, trustStore, logger)

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	// Parse email
	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	email, err := filter.BuildCompactEmail(msg, msg.Header.Get("From"), *clientIP, "cli-ingest")
	if err != nil {
		logger.Fatal("Failed to build compact email", zap.Error(err))
	}

	// Bound and sanitize the body before analysis
	textProcessor := utils.NewTextProcessor(logger)
	email.Body = textProcessor.ProcessText(email.Body, *maxBodySize)

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.From.Addr)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Body length: %d bytes\n", len(email.Body))
	fmt.Printf("\n")

	fmt.Printf("=== Analysis ===\n")
	startTime := time.Now()

	decision, err := service.Evaluate(context.Background(), core.EvaluationRequest{
		Email:        email,
		PHIEntities:  *phiEntities,
		PriorVerdict: core.Verdict(strings.ToUpper(*priorVerdict)),
	})
	if err != nil {
		logger.Fatal("Failed to evaluate email", zap.Error(err))
	}
	duration := time.Since(startTime)

	if *jsonOut {
		out, err := json.MarshalIndent(decision, "", "  ")
		if err != nil {
			logger.Fatal("Failed to marshal decision", zap.Error(err))
		}
		fmt.Println(string(out))
		return
	}

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Verdict: %s\n", decision.Verdict)
	fmt.Printf("Sender risk: %d\n", decision.Risk)
	fmt.Printf("HITL: %s\n", decision.HITL.Status)
	for _, reason := range decision.Reasons {
		fmt.Printf("Reason: %s\n", reason)
	}
	fmt.Printf("Processing time: %v\n", duration)
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("intel.budget", *intelBudget)
	v.Set("intel.urlscan_api_key", *urlscanKey)
	v.Set("intel.abuseipdb_api_key", *abuseKey)

	if *allowlist != "" {
		entries := strings.Split(*allowlist, ",")
		for i, entry := range entries {
			entries[i] = strings.TrimSpace(entry)
		}
		v.Set("policy.allowlist", entries)
	}
	if *brandDomains != "" {
		brands := strings.Split(*brandDomains, ",")
		for i, brand := range brands {
			brands[i] = strings.TrimSpace(brand)
		}
		v.Set("policy.brand_domains", brands)
	}

	return config.NewFromViper(v)
}
