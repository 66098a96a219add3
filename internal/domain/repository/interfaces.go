package repository

import (
	"context"
	"errors"
	"time"

	"YieldPull/internal/domain/models"
)

// ErrUpstreamUnavailable marks provider failures the caller may retry on
// the next refresh cycle. Prior computed metrics stay valid meanwhile.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// PaymentProvider is the upstream brokerage data source for cash-flow
// events. Fetches are repeatable and side-effect free; a partial window
// is a valid response. Failures surface as errors the caller may retry
// (recommended cadence: at most once per day).
type PaymentProvider interface {
	FetchPayments(ctx context.Context, instrumentID string, typ models.InstrumentType, since time.Time) ([]models.PaymentRecord, error)
	// NextAnnounced returns the nearest announced future payment, or nil
	// when the provider exposes none. Dividend instruments only.
	NextAnnounced(ctx context.Context, instrumentID string) (*models.PaymentRecord, error)
	// BondTerms returns the static bond parameters for a bond instrument,
	// nil when the provider knows none.
	BondTerms(ctx context.Context, instrumentID string) (*models.BondTerms, error)
}

// PriceSource is the externally maintained price/candle lookup. All
// methods are read-only; an unresolved value is an undefined Metric,
// not an error.
type PriceSource interface {
	PriceAt(ctx context.Context, instrumentID string, date time.Time) models.Metric
	CurrentPrice(ctx context.Context, instrumentID string) models.Metric
	Volatility(ctx context.Context, instrumentID string) models.Metric
}

// CurrencyConverter harmonizes payment amounts into a single currency
// before metric computation. Unsupported currency pairs pass the amount
// through unchanged; that is policy, not an error.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount float64, from, to string, date time.Time) float64
}

// QuoteStream delivers live last-price ticks for tracked instruments.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// PaymentStore is the external persistence of raw payment rows, keyed by
// instrument id + type. The engine writes through after each refresh;
// it never reads its working set from here mid-computation.
type PaymentStore interface {
	Init(ctx context.Context) error
	SaveBatch(ctx context.Context, instrumentID string, records []models.PaymentRecord) error
	Query(ctx context.Context, instrumentID string, typ models.InstrumentType, from, to time.Time) ([]models.PaymentRecord, error)
	Drop(ctx context.Context, instrumentID string) error
	Health(ctx context.Context) error
	Close() error
}

// SnapshotPublisher emits computed metric snapshots for downstream
// screener/reporting consumers.
type SnapshotPublisher interface {
	Publish(ctx context.Context, s *models.MetricsSnapshot) error
	PublishBatch(ctx context.Context, snaps []*models.MetricsSnapshot) error
	Close() error
}

// SnapshotStore persists metric snapshots when the backend is storage
// rather than a message bus.
type SnapshotStore interface {
	Store(ctx context.Context, s *models.MetricsSnapshot) error
	StoreBatch(ctx context.Context, snaps []*models.MetricsSnapshot) error
	Close() error
}

// Metrics records operational counters for the engine.
type Metrics interface {
	RecordRefresh(instrumentType, result string)
	RecordError(kind string)
	RecordForwardYield(ticker string, yield float64)
	RecordLatency(op string, seconds float64)
}
