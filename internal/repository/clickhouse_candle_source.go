package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"YieldPull/internal/domain/models"
	"YieldPull/internal/service/quotes"
	pkgch "YieldPull/pkg/clickhouse"
	applogger "YieldPull/pkg/logger"
)

// CHCandleSource implements PriceSource on the externally maintained
// daily candle table. A live quote book, when attached, overrides the
// stored close for CurrentPrice.
type CHCandleSource struct {
	db    *sql.DB
	table string
	book  *quotes.Book
	l     *applogger.Logger
}

func NewCHCandleSource(ch *pkgch.Client, table string) *CHCandleSource {
	return &CHCandleSource{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHCandleSource) SetLogger(l *applogger.Logger) { s.l = l }

// SetQuoteBook attaches the live last-price overlay.
func (s *CHCandleSource) SetQuoteBook(b *quotes.Book) { s.book = b }

// PriceAt returns the close of the last candle at or before date.
// An unresolved price is an undefined Metric, never an error: one missing
// candle must not fail a whole compute pass.
func (s *CHCandleSource) PriceAt(ctx context.Context, instrumentID string, date time.Time) models.Metric {
	const qtpl = `
        SELECT close
        FROM %s
        WHERE symbol = ? AND bucket <= ?
        ORDER BY bucket DESC
        LIMIT 1
    `
	return s.scanOne(ctx, fmt.Sprintf(qtpl, s.table), "price_at", instrumentID, date)
}

// CurrentPrice prefers the live quote and falls back to the latest close.
func (s *CHCandleSource) CurrentPrice(ctx context.Context, instrumentID string) models.Metric {
	if s.book != nil {
		if p := s.book.Last(instrumentID); p.Valid {
			return p
		}
	}
	const qtpl = `
        SELECT close
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT 1
    `
	return s.scanOne(ctx, fmt.Sprintf(qtpl, s.table), "current_price", instrumentID)
}

// Volatility reads the precomputed volatility column of the latest candle.
func (s *CHCandleSource) Volatility(ctx context.Context, instrumentID string) models.Metric {
	const qtpl = `
        SELECT volatility
        FROM %s
        WHERE symbol = ? AND volatility > 0
        ORDER BY bucket DESC
        LIMIT 1
    `
	return s.scanOne(ctx, fmt.Sprintf(qtpl, s.table), "volatility", instrumentID)
}

func (s *CHCandleSource) scanOne(ctx context.Context, q, op string, args ...interface{}) models.Metric {
	start := time.Now()
	row := s.db.QueryRowContext(ctx, q, args...)
	var v float64
	if err := row.Scan(&v); err != nil {
		if err != sql.ErrNoRows && s.l != nil {
			s.l.Error("clickhouse candle lookup error",
				applogger.String("op", op),
				applogger.Error(err),
			)
		}
		return models.Undefined()
	}
	if s.l != nil {
		s.l.Debug("clickhouse candle lookup ok",
			applogger.String("op", op),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	if v <= 0 {
		return models.Undefined()
	}
	return models.Defined(v)
}
