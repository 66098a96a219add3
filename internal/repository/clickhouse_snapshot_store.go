package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"YieldPull/internal/domain/models"
	"YieldPull/internal/domain/repository"
)

// CHSnapshotStore implements SnapshotStore backed by ClickHouse. Metric
// sentinels flatten to nullable columns; an undefined metric inserts NULL.
type CHSnapshotStore struct {
	db    *sql.DB
	table string
}

// NewCHSnapshotStore creates the ClickHouse snapshot store.
func NewCHSnapshotStore(db *sql.DB, table string) repository.SnapshotStore {
	return &CHSnapshotStore{db: db, table: table}
}

func (s *CHSnapshotStore) Store(ctx context.Context, snap *models.MetricsSnapshot) error {
	return s.StoreBatch(ctx, []*models.MetricsSnapshot{snap})
}

func (s *CHSnapshotStore) StoreBatch(ctx context.Context, snaps []*models.MetricsSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	values := make([]string, 0, len(snaps))
	args := make([]interface{}, 0, len(snaps)*12)
	for _, snap := range snaps {
		if snap == nil || snap.InstrumentID == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			snap.InstrumentID,
			snap.Ticker,
			string(snap.Type),
			snap.ComputedAt,
			nullable(dividendMetric(snap, func(d *models.DividendMetrics) models.Metric { return d.TrailingYield })),
			nullable(dividendMetric(snap, func(d *models.DividendMetrics) models.Metric { return d.ForwardYield })),
			nullable(dividendMetric(snap, func(d *models.DividendMetrics) models.Metric { return d.YieldPlusGrowth })),
			nullable(dividendMetric(snap, func(d *models.DividendMetrics) models.Metric { return d.RiskAdjYield })),
			nullable(dividendMetric(snap, func(d *models.DividendMetrics) models.Metric { return d.DividendCAGR3Y })),
			nullable(dividendMetric(snap, func(d *models.DividendMetrics) models.Metric { return d.DividendStability })),
			nullable(couponMetric(snap, func(c *models.CouponMetrics) models.Metric { return c.CurrentYield })),
			nullable(couponMetric(snap, func(c *models.CouponMetrics) models.Metric { return c.AmountYear })),
		)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (instrument_id, ticker, instrument_type, computed_at, trailing_yield, forward_yield, yield_plus_growth, risk_adj_yield, dividend_cagr_3y, dividend_stability, current_yield, coupon_amount_year) VALUES %s",
		s.table, strings.Join(values, ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *CHSnapshotStore) Close() error {
	return nil // Managed by pkg
}

func dividendMetric(snap *models.MetricsSnapshot, pick func(*models.DividendMetrics) models.Metric) models.Metric {
	if snap.Dividends == nil {
		return models.Undefined()
	}
	return pick(snap.Dividends)
}

func couponMetric(snap *models.MetricsSnapshot, pick func(*models.CouponMetrics) models.Metric) models.Metric {
	if snap.Coupons == nil {
		return models.Undefined()
	}
	return pick(snap.Coupons)
}

func nullable(m models.Metric) interface{} {
	if !m.Valid {
		return nil
	}
	return m.Value
}
