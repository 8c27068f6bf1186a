package di

import (
	"context"
	"fmt"
	"time"

	"PairPulse/internal/domain/repository"
	"PairPulse/internal/handler/api"
	mid "PairPulse/internal/middleware"
	internalrepo "PairPulse/internal/repository"
	"PairPulse/internal/service/binance"
	icache "PairPulse/internal/service/cache"
	"PairPulse/internal/services/analytics"
	"PairPulse/internal/usecase"
	pkgcache "PairPulse/pkg/cache"
	pkgch "PairPulse/pkg/clickhouse"
	"PairPulse/pkg/config"
	xhttp "PairPulse/pkg/http"
	pkgkafka "PairPulse/pkg/kafka"
	applogger "PairPulse/pkg/logger"
	"PairPulse/pkg/metrics"
	"PairPulse/pkg/server"
)

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLogger creates the shared application logger. When a Kafka
// producer is live and a collect topic is configured, aggregated log
// entries are shipped there as well.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, err
	}
	if producer != nil && cfg.Log.CollectTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Log.CollectTopic,
			Publisher:      kafkaLogSink{producer: producer},
		})
	}
	return l, nil
}

// kafkaLogSink adapts the Kafka producer to the log collector's publisher.
type kafkaLogSink struct {
	producer *pkgkafka.Producer
}

func (s kafkaLogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.producer.Publish(ctx, topic, nil, payload)
}

// ProvideMarketStream creates the Binance combined-stream WebSocket client.
func ProvideMarketStream(cfg *config.Config, m repository.Metrics) repository.MarketStream {
	return binance.New(
		cfg.Binance.WebSocketURL,
		cfg.Symbols(),
		cfg.Binance.PingInterval,
		cfg.Binance.HandshakeTimeout,
		m,
	)
}

// ProvideBarStore creates the in-memory rolling bar store.
func ProvideBarStore(cfg *config.Config, m repository.Metrics) *internalrepo.MemoryBarStore {
	interval := repository.Interval(cfg.Pair.Interval)
	return internalrepo.NewMemoryBarStore(interval.Duration(), cfg.Pair.Retention, m)
}

// ProvideClickHouseClient creates a ClickHouse client when the archive
// backend asks for one. With any other backend it returns nil and the
// downstream providers wire a no-op archive.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Archive.Type != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".pair_bars (" +
			"symbol String, start DateTime64(3), end DateTime64(3), " +
			"open Float64, high Float64, low Float64, close Float64, " +
			"volume Float64, ticks UInt64" +
			") ENGINE=MergeTree ORDER BY (symbol, start)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideBarArchive creates the ClickHouse bar archive when configured.
func ProvideBarArchive(chClient *pkgch.Client, cfg *config.Config) repository.BarArchive {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseBarArchive(chClient.DB(), cfg.ClickHouse.Database+".pair_bars")
}

// ProvideKafkaProducer creates a Kafka producer when the archive backend
// publishes to Kafka.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Archive.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideBarPublisher creates the Kafka publisher repository.
func ProvideBarPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.BarsTopic, cfg.Kafka.SignalsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer that mirrors published bars
// into the ClickHouse archive. Only active when both sides are configured.
func ProvideKafkaConsumer(cfg *config.Config, archive repository.BarArchive) (*pkgkafka.Consumer, error) {
	if archive == nil || cfg.Kafka.Consumer.GroupID == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaBarsHandler registers the handler for the bars topic.
func ProvideKafkaBarsHandler(archive repository.BarArchive, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if archive == nil {
		return nil
	}
	return usecase.NewKafkaBarsHandler(cfg.Kafka.BarsTopic, archive, m)
}

// ProvideArchiveProcessor creates the processor routing closed bars to the
// configured archive backend.
func ProvideArchiveProcessor(pub repository.Publisher, archive repository.BarArchive, m repository.Metrics, cfg *config.Config) *usecase.ArchiveProcessor {
	return usecase.NewArchiveProcessor(pub, archive, m, cfg.Archive.Type)
}

// ProvideTickPipeline builds the middleware pipeline between the WebSocket
// stream and the rolling store.
func ProvideTickPipeline(store *internalrepo.MemoryBarStore, archiveProc *usecase.ArchiveProcessor, m repository.Metrics, cfg *config.Config) *mid.TickPipeline {
	opts := []mid.PipelineOption{mid.WithBufferSize(2000)}
	if cfg.Archive.Type != "none" {
		opts = append(opts, mid.WithArchive(archiveProc))
	}
	return mid.NewTickPipeline(store, m, opts...)
}

// ProvideTickCollector creates the tick collector use case.
func ProvideTickCollector(stream repository.MarketStream, pipe *mid.TickPipeline, m repository.Metrics, cfg *config.Config) *usecase.TickCollector {
	return usecase.NewTickCollector(stream, pipe, m, cfg.Binance.ReconnectBase, cfg.Binance.ReconnectMax)
}

// ProvidePairEngine creates the analytics engine for the configured pair.
func ProvidePairEngine(cfg *config.Config) (*analytics.PairEngine, error) {
	syms := cfg.Symbols()
	return analytics.NewPairEngine(analytics.Config{
		SymbolA:         syms[0],
		SymbolB:         syms[1],
		Window:          cfg.Pair.Window,
		ZscoreThreshold: cfg.Pair.ZscoreThreshold,
	})
}

// ProvidePairAnalyzer creates the analyzer owning the pair snapshot.
func ProvidePairAnalyzer(cfg *config.Config, l *applogger.Logger, engine *analytics.PairEngine, pub repository.Publisher, m repository.Metrics) *usecase.PairAnalyzer {
	syms := cfg.Symbols()
	a := usecase.NewPairAnalyzer(syms[0], syms[1], engine, pub, m, cfg.Pair.ExportCapacity)
	a.SetLogger(l)
	return a
}

// ProvideBarsUseCase creates the bar query use case.
func ProvideBarsUseCase(store *internalrepo.MemoryBarStore, cfg *config.Config) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(store, repository.Interval(cfg.Pair.Interval), cfg.Symbols())
}

// ProvideBacktestUseCase creates the backtest use case over the export ring.
func ProvideBacktestUseCase(analyzer *usecase.PairAnalyzer) *usecase.BacktestUseCase {
	return usecase.NewBacktestUseCase(analyzer)
}

// ProvideHistoryUseCase creates the archive-backed history query. Returns a
// disabled use case when no archive is configured.
func ProvideHistoryUseCase(archive repository.BarArchive, cfg *config.Config) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(archive, repository.Interval(cfg.Pair.Interval), cfg.Symbols())
}

// ProvideHTTPHandler builds the dashboard API handler with optional caching.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	bars *usecase.BarsUseCase,
	analyzer *usecase.PairAnalyzer,
	backtest *usecase.BacktestUseCase,
	history *usecase.HistoryUseCase,
) (xhttp.Handler, error) {
	h := api.NewPairsEchoHandler(l, bars, analyzer, backtest)
	if history.Enabled() {
		h.SetHistory(history)
	}
	if cfg.Cache.Enabled {
		if cfg.Cache.Redis {
			rc, err := pkgcache.NewRedisCache(
				pkgcache.WithRedisHost(cfg.Cache.Host),
				pkgcache.WithRedisPort(cfg.Cache.Port),
				pkgcache.WithRedisPassword(cfg.Cache.Password),
				pkgcache.WithRedisDB(cfg.Cache.DB),
				pkgcache.WithRedisPool(10, 2, 5*time.Second),
				pkgcache.WithRedisPrefix("pairpulse"),
			)
			if err != nil {
				return nil, fmt.Errorf("redis cache: %w", err)
			}
			layered := pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(256))
			h.SetCache(icache.NewServiceCache(layered))
		} else {
			h.SetCache(icache.NewTTLCache())
		}
	}
	return h, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	pipe *mid.TickPipeline,
	analyzer *usecase.PairAnalyzer,
	archiveProc *usecase.ArchiveProcessor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NewLoggingHook(l, time.Second))
	}
	app := server.New(cfg, l, collector, pipe, analyzer, archiveProc, consumer, kh, chClient)
	app.SetHTTPHandler(httpHandler)
	return app
}
