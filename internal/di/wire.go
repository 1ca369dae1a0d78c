//go:build wireinject
// +build wireinject

package di

import (
	"ShredPull/pkg/config"
	"ShredPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideCache,

		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Repositories
		ProvidePoolSource,
		ProvideNotifierFactory,
		ProvideSignaturePublisher,

		// Use cases
		ProvideStrategyRegistry,
		ProvideStageFactory,
		ProvideListener,
		ProvideBenchmarkLog,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
