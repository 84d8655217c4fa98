package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mailshield/mailshield/internal/core"
	"github.com/mailshield/mailshield/internal/di"
	"github.com/mailshield/mailshield/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	cache core.FeatureCache,
	graph core.SenderGraph,
	trust core.TrustStore,
	advisor core.PolicyAdvisor,
) error {
	defer logger.Sync()

	// Start the filter
	if err := emailFilter.Start(); err != nil {
		logger.Fatal("Failed to start filter", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the filter
	if err := emailFilter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	// Stop any resources that need stopping
	if stopper, ok := cache.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	if stopper, ok := graph.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	if stopper, ok := trust.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	if closer, ok := advisor.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close policy advisor", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
