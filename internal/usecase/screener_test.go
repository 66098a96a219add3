package usecase

import (
	"context"
	"testing"
	"time"

	"YieldPull/internal/domain/models"
)

func trackedStock(r *MetricsRefresher, id, ticker string, forward models.Metric) {
	r.Track(&models.Instrument{ID: id, Ticker: ticker, Type: models.TypeStock})
	r.mu.Lock()
	r.instruments[id].Dividends = &models.DividendMetrics{ForwardYield: forward}
	r.mu.Unlock()
}

func newScreenerFixture() (*MetricsRefresher, *Screener) {
	p := &fakeProvider{}
	prices := &fakePrices{}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	r := newTestRefresher(p, prices, pub, m)
	return r, NewScreener(r)
}

func TestScreenRanksDescending(t *testing.T) {
	r, s := newScreenerFixture()
	trackedStock(r, "A", "AAA", models.Defined(3))
	trackedStock(r, "B", "BBB", models.Defined(7))
	trackedStock(r, "C", "CCC", models.Defined(5))

	rows := s.Screen(models.TypeStock, "forward_yield", 10)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Ticker != "BBB" || rows[1].Ticker != "CCC" || rows[2].Ticker != "AAA" {
		t.Fatalf("wrong order: %s %s %s", rows[0].Ticker, rows[1].Ticker, rows[2].Ticker)
	}
}

func TestScreenUndefinedSortsLast(t *testing.T) {
	r, s := newScreenerFixture()
	trackedStock(r, "A", "AAA", models.Undefined())
	trackedStock(r, "B", "BBB", models.Defined(1))

	rows := s.Screen(models.TypeStock, "forward_yield", 10)
	if rows[0].Ticker != "BBB" {
		t.Fatalf("undefined metric ranked above defined: %s first", rows[0].Ticker)
	}
	if rows[1].Value.Valid {
		t.Fatalf("expected undefined value last")
	}
}

func TestScreenAppliesLimit(t *testing.T) {
	r, s := newScreenerFixture()
	for i, id := range []string{"A", "B", "C", "D"} {
		trackedStock(r, id, id+id, models.Defined(float64(i)))
	}
	rows := s.Screen(models.TypeStock, "forward_yield", 2)
	if len(rows) != 2 {
		t.Fatalf("limit not applied: %d rows", len(rows))
	}
}

func TestScreenFiltersByType(t *testing.T) {
	r, s := newScreenerFixture()
	trackedStock(r, "A", "AAA", models.Defined(3))
	r.Track(&models.Instrument{ID: "BND", Ticker: "BND", Type: models.TypeBond})

	rows := s.Screen(models.TypeStock, "forward_yield", 10)
	if len(rows) != 1 || rows[0].Ticker != "AAA" {
		t.Fatalf("type filter failed: %+v", rows)
	}
}

func TestScreenBondDefaultKeyIsCurrentYield(t *testing.T) {
	r, s := newScreenerFixture()
	r.Track(&models.Instrument{ID: "B1", Ticker: "B1", Type: models.TypeBond})
	r.Track(&models.Instrument{ID: "B2", Ticker: "B2", Type: models.TypeBond})
	r.mu.Lock()
	r.instruments["B1"].Coupons = &models.CouponMetrics{CurrentYield: models.Defined(6)}
	r.instruments["B2"].Coupons = &models.CouponMetrics{CurrentYield: models.Defined(9)}
	r.mu.Unlock()

	rows := s.Screen(models.TypeBond, "", 10)
	if rows[0].Ticker != "B2" {
		t.Fatalf("bond ranking wrong: %s first", rows[0].Ticker)
	}
}

// Screening must stay safe while refreshes replace metrics; the race
// detector verifies the interleaving.
func TestScreenDuringRefreshAll(t *testing.T) {
	now := time.Now().UTC()
	p := &fakeProvider{batches: map[string][]models.PaymentRecord{
		"A": {pastDividend(now, 100, 10)},
		"B": {pastDividend(now, 100, 20)},
		"C": {pastDividend(now, 100, 30)},
	}}
	prices := &fakePrices{current: models.Defined(1000)}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	r := newTestRefresher(p, prices, pub, m)
	for _, id := range []string{"A", "B", "C"} {
		r.Track(&models.Instrument{ID: id, Ticker: id, Type: models.TypeStock})
	}
	s := NewScreener(r)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			s.Screen(models.TypeStock, "forward_yield", 10)
		}
	}()
	for i := 0; i < 5; i++ {
		r.RefreshAll(context.Background(), true)
	}
	<-done

	rows := s.Screen(models.TypeStock, "forward_yield", 10)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows after concurrent refreshes, got %d", len(rows))
	}
	if !rows[0].Value.Valid {
		t.Fatalf("top row lost its metric: %+v", rows[0])
	}
}
