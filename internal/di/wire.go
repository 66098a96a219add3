//go:build wireinject
// +build wireinject

package di

import (
	"YieldPull/pkg/config"
	"YieldPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Logging and metrics
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Repositories (with business logic)
		ProvidePaymentStore,
		ProvideQuoteBook,
		ProvidePriceSource,
		ProvideSnapshotPublisher,
		ProvideSnapshotStore,
		ProvidePaymentProvider,
		ProvideQuoteStream,
		ProvideCurrencyConverter,

		// Use cases
		ProvideSnapshotProcessor,
		ProvideRefresher,
		ProvideScreener,
		ProvidePriceCollector,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
