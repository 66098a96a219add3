package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"YieldPull/internal/domain/models"
	"YieldPull/internal/domain/repository"
	"YieldPull/internal/handler/api"
	mid "YieldPull/internal/middleware"
	internalrepo "YieldPull/internal/repository"
	"YieldPull/internal/service/quotes"
	"YieldPull/internal/service/tinvest"
	"YieldPull/internal/services/currency"
	"YieldPull/internal/usecase"
	"YieldPull/pkg/cache"
	pkgch "YieldPull/pkg/clickhouse"
	"YieldPull/pkg/config"
	pkgkafka "YieldPull/pkg/kafka"
	"YieldPull/pkg/metrics"
	"YieldPull/pkg/server"

	applogger "YieldPull/pkg/logger"
)

// kafkaLogPublisher adapts the producer to the log collector sink.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}

// ProvideLogger creates the shared structured logger. When a logs topic
// is configured the warn/error aggregation collector ships to Kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
	if err != nil {
		return nil, err
	}
	if cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      kafkaLogPublisher{producer: producer},
		})
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.payments (instrument_id String, payment_date DateTime, amount Float64, currency String, instrument_type String) ENGINE=ReplacingMergeTree ORDER BY (instrument_id, payment_date, amount)", db),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.candles_1d (symbol String, bucket DateTime, open Float64, high Float64, low Float64, close Float64, volume Float64, volatility Float64) ENGINE=MergeTree ORDER BY (symbol, bucket)", db),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.metric_snapshots (instrument_id String, ticker String, instrument_type String, computed_at DateTime, trailing_yield Nullable(Float64), forward_yield Nullable(Float64), yield_plus_growth Nullable(Float64), risk_adj_yield Nullable(Float64), dividend_cagr_3y Nullable(Float64), dividend_stability Nullable(Float64), current_yield Nullable(Float64), coupon_amount_year Nullable(Float64)) ENGINE=MergeTree ORDER BY (instrument_id, computed_at)", db),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the cache service: Redis-backed layered cache when
// enabled, in-process memory cache otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvidePaymentStore creates the ClickHouse payment storage.
func ProvidePaymentStore(chClient *pkgch.Client, cfg *config.Config) repository.PaymentStore {
	return internalrepo.NewClickHousePaymentStore(chClient.DB(), cfg.ClickHouse.Database+".payments")
}

// ProvideQuoteBook creates the live last-price book.
func ProvideQuoteBook() *quotes.Book {
	return quotes.NewBook(5 * time.Minute)
}

// ProvidePriceSource creates the candle-backed price source with the
// quote book overlay attached.
func ProvidePriceSource(chClient *pkgch.Client, cfg *config.Config, book *quotes.Book, l *applogger.Logger) repository.PriceSource {
	src := internalrepo.NewCHCandleSource(chClient, cfg.ClickHouse.Database+".candles_1d")
	src.SetLogger(l)
	src.SetQuoteBook(book)
	return src
}

// ProvideSnapshotPublisher creates the Kafka snapshot publisher.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
}

// ProvideSnapshotStore creates the ClickHouse snapshot store.
func ProvideSnapshotStore(chClient *pkgch.Client, cfg *config.Config) repository.SnapshotStore {
	return internalrepo.NewCHSnapshotStore(chClient.DB(), cfg.ClickHouse.Database+".metric_snapshots")
}

// ProvidePaymentProvider creates the brokerage REST client.
func ProvidePaymentProvider(cfg *config.Config) repository.PaymentProvider {
	return tinvest.NewClient(cfg.Tinvest.BaseURL, cfg.Tinvest.Token, cfg.Tinvest.Timeout)
}

// ProvideQuoteStream creates the brokerage WebSocket stream.
func ProvideQuoteStream(cfg *config.Config) repository.QuoteStream {
	ids := make([]string, 0, len(cfg.Tinvest.Instruments))
	for _, s := range cfg.Tinvest.Instruments {
		ids = append(ids, instrumentID(s))
	}
	return tinvest.NewStream(
		cfg.Tinvest.Token,
		cfg.Tinvest.WebSocketURL,
		ids,
		cfg.Tinvest.ReconnectDelay,
		cfg.Tinvest.PingInterval,
	)
}

// ProvideCurrencyConverter creates the rate-table converter, falling
// back to the FX pair candles for rates nobody installed explicitly.
// Pair candles are stored under the lowercased "from/to" instrument id.
func ProvideCurrencyConverter(prices repository.PriceSource) repository.CurrencyConverter {
	conv := currency.NewConverter()
	conv.SetRateSource(func(ctx context.Context, from, to string, date time.Time) (float64, bool) {
		m := prices.PriceAt(ctx, from+"/"+to, date)
		return m.Value, m.Valid
	})
	return conv
}

// ProvideSnapshotProcessor creates the snapshot backend router.
func ProvideSnapshotProcessor(
	pub repository.SnapshotPublisher,
	store repository.SnapshotStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SnapshotProcessor {
	return usecase.NewSnapshotProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideRefresher creates the metrics refresher with the configured
// instrument set tracked.
func ProvideRefresher(
	provider repository.PaymentProvider,
	prices repository.PriceSource,
	conv repository.CurrencyConverter,
	store repository.PaymentStore,
	proc *usecase.SnapshotProcessor,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.MetricsRefresher {
	r := usecase.NewMetricsRefresher(provider, prices, conv, store, proc, m,
		usecase.WithMaxAge(cfg.Refresh.MaxAge),
		usecase.WithWorkers(cfg.Refresh.Workers),
		usecase.WithProviderRate(cfg.Refresh.RatePerSec),
		usecase.WithBaseCurrency(cfg.Refresh.BaseCurrency),
		usecase.WithLogger(l),
	)
	for _, s := range cfg.Tinvest.Instruments {
		r.Track(parseInstrument(s))
	}
	return r
}

// ProvideScreener creates the ranking usecase.
func ProvideScreener(r *usecase.MetricsRefresher) *usecase.Screener {
	return usecase.NewScreener(r)
}

// ProvidePriceCollector creates the quote collector with its pipeline.
func ProvidePriceCollector(
	stream repository.QuoteStream,
	book *quotes.Book,
	m repository.Metrics,
) *usecase.PriceCollector {
	pipe := mid.NewQuotePipeline(book, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewPriceCollector(stream, book, m, pipe)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	r *usecase.MetricsRefresher,
	s *usecase.Screener,
	c cache.Service,
	cfg *config.Config,
) *api.MetricsEchoHandler {
	return api.NewMetricsEchoHandler(l, r, s, c, cfg.Cache.ScreenerTTL)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.PriceCollector,
	refresher *usecase.MetricsRefresher,
	chClient *pkgch.Client,
	handler *api.MetricsEchoHandler,
	logger *applogger.Logger,
) *server.App {
	app := server.New(cfg, collector, refresher, chClient, logger)
	app.SetHTTPHandler(handler)
	return app
}

// parseInstrument decodes a configured instrument entry. The compact
// "FIGI", "FIGI:type" and "FIGI:type:ticker" forms are all accepted;
// type defaults to stock.
func parseInstrument(s string) *models.Instrument {
	parts := strings.Split(s, ":")
	inst := &models.Instrument{ID: parts[0], Ticker: parts[0], Type: models.TypeStock}
	if len(parts) > 1 {
		if t, err := models.ParseInstrumentType(parts[1]); err == nil {
			inst.Type = t
		}
	}
	if len(parts) > 2 {
		inst.Ticker = parts[2]
	}
	if inst.Type == models.TypeBond {
		inst.Bond = &models.BondTerms{}
	}
	return inst
}

func instrumentID(s string) string {
	if i := strings.IndexByte(s, ':'); i > 0 {
		return s[:i]
	}
	return s
}
