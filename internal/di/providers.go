package di

import (
	"fmt"
	"time"

	"ShredPull/internal/domain/models"
	"ShredPull/internal/domain/repository"
	"ShredPull/internal/handler/api"
	internalrepo "ShredPull/internal/repository"
	"ShredPull/internal/service/ratelimit"
	"ShredPull/internal/shred"
	"ShredPull/internal/strategy"
	"ShredPull/internal/usecase"
	"ShredPull/pkg/cache"
	"ShredPull/pkg/config"
	xhttp "ShredPull/pkg/http"
	pkgkafka "ShredPull/pkg/kafka"
	applogger "ShredPull/pkg/logger"
	"ShredPull/pkg/metrics"
	"ShredPull/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers...),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(pkgkafka.BatchConfig{
			Size:   cfg.Kafka.Producer.BatchSize,
			Bytes:  cfg.Kafka.Producer.BatchBytes,
			Linger: cfg.Kafka.Producer.Linger,
		}),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithKeyedPartitioning(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger creates the application logger. Aggregated error logs are
// shipped through the producer when both are enabled.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.FlushInterval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache returns Redis behind an in-process L1 when Redis is enabled,
// otherwise a memory cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc, cache.WithL1TTL(30*time.Second)), nil
}

// ProvidePoolSource returns the cache-backed registry the arbitrage strategy
// loads at init. The configured pools are seeded on that first load, so
// capture runs and other topologies never write the registry.
func ProvidePoolSource(cfg *config.Config, c cache.Service) repository.PoolSource {
	return internalrepo.NewCachePoolSource(c, cfg.Arb.PoolsKey, cfg.Arb.Pools)
}

// ProvideNotifierFactory builds webhook notifiers sharing one HTTP client.
func ProvideNotifierFactory(cfg *config.Config, lg *applogger.Logger) strategy.NotifierFactory {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Pump.WebhookTimeout))
	var opts []internalrepo.WebhookOption
	if cfg.Pump.WebhookRate > 0 {
		opts = append(opts, internalrepo.WithRateLimit(ratelimit.New(cfg.Pump.WebhookRate, cfg.Pump.WebhookBurst)))
	}
	return func(url string) repository.Notifier {
		return internalrepo.NewWebhookNotifier(client, url, cfg.Pump.WebhookQueue, lg, opts...)
	}
}

// ProvideStrategyRegistry creates the strategy factory.
func ProvideStrategyRegistry(cfg *config.Config, lg *applogger.Logger, pools repository.PoolSource, nf strategy.NotifierFactory) *strategy.Registry {
	return strategy.NewRegistry(lg,
		strategy.WithPoolSource(pools),
		strategy.WithNotifierFactory(nf),
		strategy.WithMinPools(cfg.Arb.MinPools),
	)
}

// ProvideStageFactory returns the shred reconstruction stage constructor.
func ProvideStageFactory(cfg *config.Config) usecase.StageFactory {
	lag := cfg.Listener.MaxSlotLag
	return func(entries chan<- *models.EntryBatch, errs chan<- models.ErrorNote) repository.Reconstructor {
		return shred.NewProcessor(entries, errs, shred.WithMaxSlotLag(lag))
	}
}

// ProvideSignaturePublisher forwards sink output to Kafka, or nil when
// Kafka is disabled.
func ProvideSignaturePublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.SignaturePublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignaturePublisher(producer, cfg.Kafka.Topic)
}

// ProvideListener creates the listener use case.
func ProvideListener(
	stage usecase.StageFactory,
	registry *strategy.Registry,
	lg *applogger.Logger,
	m repository.Metrics,
	pub repository.SignaturePublisher,
) *usecase.Listener {
	var opts []usecase.ListenerOption
	if pub != nil {
		opts = append(opts, usecase.WithSignaturePublisher(pub))
	}
	return usecase.NewListener(stage, registry, lg, m, opts...)
}

// ProvideBenchmarkLog creates the log the sink records into.
func ProvideBenchmarkLog() *usecase.BenchmarkLog {
	return usecase.NewBenchmarkLog()
}

// ProvideHTTPServer creates the admin server, or nil when disabled.
func ProvideHTTPServer(cfg *config.Config, lg *applogger.Logger, bl *usecase.BenchmarkLog, listener *usecase.Listener) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	return xhttp.NewServer(api.NewBenchmarkEchoHandler(lg, bl, listener), lg,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	)
}

// ProvideApp creates the application server. Resources close in reverse
// order, so the cache goes before the producer.
func ProvideApp(
	cfg *config.Config,
	lg *applogger.Logger,
	listener *usecase.Listener,
	bl *usecase.BenchmarkLog,
	srv *xhttp.Server,
	producer *pkgkafka.Producer,
	c cache.Service,
) *server.App {
	var resources []server.Resource
	if producer != nil {
		resources = append(resources, server.Resource{Name: "kafka producer", Close: producer.Close})
	}
	resources = append(resources, server.Resource{Name: "cache", Close: c.Close})
	return server.New(cfg, lg, listener, bl, srv, resources...)
}
