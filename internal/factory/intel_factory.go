package factory

import (
	"fmt"

	"github.com/mailshield/mailshield/internal/adapters/osint"
	"github.com/mailshield/mailshield/internal/config"
	"github.com/mailshield/mailshield/internal/core"
	"github.com/mailshield/mailshield/internal/intel"
	"go.uber.org/zap"
)

// IntelFactory creates the OSINT prober and sender intel aggregator
type IntelFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewIntelFactory creates a new intel factory
func NewIntelFactory(cfg *config.Config, logger *zap.Logger) *IntelFactory {
	return &IntelFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateProber creates the HTTP OSINT prober
func (f *IntelFactory) CreateProber() (*osint.HTTPProber, error) {
	connectTimeout, err := f.cfg.GetDuration("intel.http_connect_timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid http connect timeout: %w", err)
	}
	totalTimeout, err := f.cfg.GetDuration("intel.http_total_timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid http total timeout: %w", err)
	}
	return osint.NewHTTPProber(
		connectTimeout,
		totalTimeout,
		f.cfg.GetString("intel.urlscan_api_key"),
		f.cfg.GetString("intel.abuseipdb_api_key"),
		f.logger,
	), nil
}

// CreateAggregator wires the sender intel aggregator
func (f *IntelFactory) CreateAggregator(
	cache core.FeatureCache,
	graph core.SenderGraph,
	prober *osint.HTTPProber,
	policy *config.Policy,
) (*intel.Aggregator, error) {
	budget, err := f.cfg.GetDuration("intel.budget")
	if err != nil {
		return nil, fmt.Errorf("invalid intel budget: %w", err)
	}
	domainTTL, err := f.cfg.GetDuration("cache.domain_ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid domain TTL: %w", err)
	}
	ipTTL, err := f.cfg.GetDuration("cache.ip_ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid IP TTL: %w", err)
	}

	return intel.NewAggregator(
		cache,
		graph,
		prober,
		prober,
		policy,
		budget,
		domainTTL,
		ipTTL,
		f.logger,
	), nil
}
