package di

import (
	"go.uber.org/dig"

	"github.com/mailshield/mailshield/internal/adapters/osint"
	"github.com/mailshield/mailshield/internal/config"
	"github.com/mailshield/mailshield/internal/core"
	"github.com/mailshield/mailshield/internal/factory"
	"github.com/mailshield/mailshield/internal/intel"
	"github.com/mailshield/mailshield/internal/logging"
	"github.com/mailshield/mailshield/internal/ports"
	"github.com/mailshield/mailshield/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register policy
	if err := container.Provide(config.LoadPolicy); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewGraphFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFeedbackFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewAuditFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewIntelFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewAdvisorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register feature cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.FeatureCache, error) {
		return f.CreateFeatureCache()
	}); err != nil {
		return nil, err
	}

	// Register sender graph
	if err := container.Provide(func(f *factory.GraphFactory) (core.SenderGraph, error) {
		return f.CreateSenderGraph()
	}); err != nil {
		return nil, err
	}

	// Register feedback store and its two ports
	if err := container.Provide(func(f *factory.FeedbackFactory) (factory.FeedbackStore, error) {
		return f.CreateFeedbackStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s factory.FeedbackStore) core.TrustStore {
		return s
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s factory.FeedbackStore) core.HITLQueue {
		return s
	}); err != nil {
		return nil, err
	}

	// Register audit store
	if err := container.Provide(func(f *factory.AuditFactory) (core.AuditStore, error) {
		return f.CreateAuditStore()
	}); err != nil {
		return nil, err
	}

	// Register OSINT prober and sender intel aggregator
	if err := container.Provide(func(f *factory.IntelFactory) (*osint.HTTPProber, error) {
		return f.CreateProber()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		f *factory.IntelFactory,
		cache core.FeatureCache,
		graph core.SenderGraph,
		prober *osint.HTTPProber,
		policy *config.Policy,
	) (*intel.Aggregator, error) {
		return f.CreateAggregator(cache, graph, prober, policy)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(a *intel.Aggregator) core.IntelSource {
		return a
	}); err != nil {
		return nil, err
	}

	// Register policy advisor
	if err := container.Provide(func(f *factory.AdvisorFactory) (core.PolicyAdvisor, error) {
		return f.CreatePolicyAdvisor()
	}); err != nil {
		return nil, err
	}

	// Register pipeline service
	if err := container.Provide(core.NewPipelineService); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
