package di

import (
	"fmt"
	"time"

	"CoinPull/internal/domain/repository"
	"CoinPull/internal/handler/api"
	internalrepo "CoinPull/internal/repository"
	"CoinPull/internal/scheduler"
	icache "CoinPull/internal/service/cache"
	"CoinPull/internal/service/coingecko"
	"CoinPull/internal/service/ratelimit"
	"CoinPull/internal/usecase"
	pkgcache "CoinPull/pkg/cache"
	"CoinPull/pkg/config"
	xhttp "CoinPull/pkg/http"
	pkgkafka "CoinPull/pkg/kafka"
	applogger "CoinPull/pkg/logger"
	"CoinPull/pkg/metrics"
	"CoinPull/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SnapshotSinks are the optional outbound copies of each fetch.
type SnapshotSinks []repository.SnapshotPublisher

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.NewWithRegistry(reg)
}

// ProvideCoinGeckoClient creates the market_chart fetcher.
func ProvideCoinGeckoClient(cfg *config.Config, l *applogger.Logger, m repository.Metrics) *coingecko.Client {
	cg := cfg.CoinGecko
	return coingecko.New(coingecko.Config{
		BaseURL:           cg.BaseURL,
		APIKey:            cg.APIKey,
		APIKeyHeader:      cg.APIKeyHeader,
		UserAgent:         cg.UserAgent,
		AttemptTimeout:    cg.AttemptTimeout,
		MaxAttempts:       cg.MaxAttempts,
		BackoffBase:       cg.BackoffBase,
		BackoffCap:        cg.BackoffCap,
		RequestsPerMinute: cg.RequestsPerMinute,
	},
		coingecko.WithLogger(l.With(applogger.String("component", "coingecko"))),
		coingecko.WithMetrics(m),
	)
}

// ProvideSnapshotSinks connects the enabled snapshot sinks.
func ProvideSnapshotSinks(cfg *config.Config, reg *prometheus.Registry) (SnapshotSinks, error) {
	var sinks SnapshotSinks

	if cfg.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
			pkgcache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis snapshot store: %w", err)
		}
		sinks = append(sinks, internalrepo.NewRedisSnapshotStore(rc, cfg.Cache.Window))
	}

	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, 0),
			pkgkafka.WithAsync(cfg.Kafka.Async),
			pkgkafka.WithRegisterer(reg),
		)
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic))
	}

	return sinks, nil
}

// ProvidePublishingFetcher puts the snapshot sinks behind the fetcher.
func ProvidePublishingFetcher(client *coingecko.Client, sinks SnapshotSinks, l *applogger.Logger) *usecase.PublishingFetcher {
	return usecase.NewPublishingFetcher(client, l, sinks...)
}

// ProvideSeriesCache creates the bucketed cache in front of the fetcher.
func ProvideSeriesCache(cfg *config.Config, f *usecase.PublishingFetcher, m repository.Metrics, l *applogger.Logger) *icache.BucketedCache {
	return icache.NewBucketedCache(f,
		icache.WithWindow(cfg.Cache.Window),
		icache.WithCapacity(cfg.Cache.Capacity),
		icache.WithMetrics(m),
		icache.WithLogger(l.With(applogger.String("component", "cache"))),
	)
}

// ProvideTickerUseCase creates the ticker use case.
func ProvideTickerUseCase(cfg *config.Config, c *icache.BucketedCache) *usecase.TickerUseCase {
	return usecase.NewTickerUseCase(c, cfg.Coins, c.Window())
}

// ProvideTickerHandler creates the HTTP handler.
func ProvideTickerHandler(l *applogger.Logger, uc *usecase.TickerUseCase) *api.TickerEchoHandler {
	return api.NewTickerEchoHandler(l, uc)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.TickerEchoHandler, l *applogger.Logger, reg *prometheus.Registry) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithLogger(l.With(applogger.String("component", "http"))),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	if cfg.Server.RateLimit.Enabled {
		opts = append(opts, xhttp.WithRateLimiter(ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.RefillPerSec)))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideRefresher creates the cache warm-up scheduler.
func ProvideRefresher(cfg *config.Config, c *icache.BucketedCache, l *applogger.Logger) *scheduler.Refresher {
	return scheduler.NewRefresher(c, cfg.Coins, cfg.Refresher.Windows,
		scheduler.WithLogger(l.With(applogger.String("component", "refresher"))),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	refresher *scheduler.Refresher,
	f *usecase.PublishingFetcher,
) *server.App {
	return server.New(cfg, l, srv, refresher, f)
}
