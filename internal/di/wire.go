//go:build wireinject
// +build wireinject

package di

import (
	"CoinPull/pkg/config"
	"CoinPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Fetch path
		ProvideCoinGeckoClient,
		ProvideSnapshotSinks,
		ProvidePublishingFetcher,
		ProvideSeriesCache,

		// Use cases and transport
		ProvideTickerUseCase,
		ProvideTickerHandler,
		ProvideHTTPServer,
		ProvideRefresher,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
