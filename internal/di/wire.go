//go:build wireinject
// +build wireinject

package di

import (
	"PairPulse/pkg/config"
	"PairPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideMetrics,
		ProvideLogger,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideMarketStream,
		ProvideBarStore,
		ProvideBarArchive,
		ProvideBarPublisher,

		// Use cases
		ProvideArchiveProcessor,
		ProvideTickPipeline,
		ProvideTickCollector,
		ProvidePairEngine,
		ProvidePairAnalyzer,
		ProvideBarsUseCase,
		ProvideBacktestUseCase,
		ProvideHistoryUseCase,
		ProvideKafkaBarsHandler,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
