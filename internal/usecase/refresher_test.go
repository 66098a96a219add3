package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"YieldPull/internal/domain/models"
	"YieldPull/internal/domain/repository"
	"YieldPull/internal/services/currency"
)

type fakeProvider struct {
	mu      sync.Mutex
	batches map[string][]models.PaymentRecord
	next    map[string]*models.PaymentRecord
	terms   map[string]*models.BondTerms
	fail    bool
	calls   int
}

func (f *fakeProvider) FetchPayments(_ context.Context, id string, _ models.InstrumentType, _ time.Time) ([]models.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errors.New("upstream unavailable")
	}
	return f.batches[id], nil
}

func (f *fakeProvider) NextAnnounced(_ context.Context, id string) (*models.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next[id], nil
}

func (f *fakeProvider) BondTerms(_ context.Context, id string) (*models.BondTerms, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terms[id], nil
}

type fakePrices struct {
	current models.Metric
	at      models.Metric
	vol     models.Metric
}

func (f *fakePrices) PriceAt(context.Context, string, time.Time) models.Metric { return f.at }
func (f *fakePrices) CurrentPrice(context.Context, string) models.Metric       { return f.current }
func (f *fakePrices) Volatility(context.Context, string) models.Metric         { return f.vol }

type fakePublisher struct {
	mu    sync.Mutex
	snaps []*models.MetricsSnapshot
}

func (f *fakePublisher) Publish(_ context.Context, s *models.MetricsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, s)
	return nil
}

func (f *fakePublisher) PublishBatch(_ context.Context, snaps []*models.MetricsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, snaps...)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeMetrics struct {
	mu        sync.Mutex
	refreshes map[string]int
	errs      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{refreshes: make(map[string]int), errs: make(map[string]int)}
}

func (m *fakeMetrics) RecordRefresh(typ, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes[typ+"/"+result]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func (m *fakeMetrics) RecordForwardYield(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)      {}

func pastDividend(now time.Time, daysAgo int, amount float64) models.PaymentRecord {
	return models.PaymentRecord{
		PaymentDate:    now.AddDate(0, 0, -daysAgo),
		Amount:         amount,
		Currency:       "rub",
		InstrumentType: models.TypeStock,
	}
}

func newTestRefresher(p *fakeProvider, prices *fakePrices, pub *fakePublisher, m *fakeMetrics, opts ...RefresherOption) *MetricsRefresher {
	proc := NewSnapshotProcessor(pub, nil, m, "kafka")
	base := []RefresherOption{WithBaseCurrency("rub"), WithWorkers(2), WithProviderRate(1000)}
	return NewMetricsRefresher(p, prices, currency.NewConverter(), nil, proc, m, append(base, opts...)...)
}

func TestRefreshComputesDividendMetrics(t *testing.T) {
	now := time.Now().UTC()
	p := &fakeProvider{batches: map[string][]models.PaymentRecord{
		"BBG1": {pastDividend(now, 500, 40), pastDividend(now, 200, 40)},
	}}
	prices := &fakePrices{current: models.Defined(2000)}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	r := newTestRefresher(p, prices, pub, m)

	r.Track(&models.Instrument{ID: "BBG1", Ticker: "TST", Type: models.TypeStock, Currency: "rub"})
	if err := r.Refresh(context.Background(), "BBG1", true); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	inst, _ := r.Get("BBG1")
	if inst.Dividends == nil {
		t.Fatalf("no dividend metrics computed")
	}
	if !inst.Dividends.ForwardYield.Valid {
		t.Fatalf("forward yield undefined: %+v", inst.Dividends)
	}
	if len(pub.snaps) != 1 {
		t.Fatalf("expected 1 published snapshot, got %d", len(pub.snaps))
	}
	if pub.snaps[0].Dividends == nil || pub.snaps[0].InstrumentID != "BBG1" {
		t.Fatalf("snapshot malformed: %+v", pub.snaps[0])
	}
	if m.refreshes["stock/ok"] != 1 {
		t.Fatalf("refresh result not recorded: %v", m.refreshes)
	}
}

func TestRefreshFailSoftKeepsPriorMetrics(t *testing.T) {
	now := time.Now().UTC()
	p := &fakeProvider{batches: map[string][]models.PaymentRecord{
		"BBG1": {pastDividend(now, 500, 40), pastDividend(now, 200, 40)},
	}}
	prices := &fakePrices{current: models.Defined(2000)}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	r := newTestRefresher(p, prices, pub, m)

	r.Track(&models.Instrument{ID: "BBG1", Ticker: "TST", Type: models.TypeStock})
	if err := r.Refresh(context.Background(), "BBG1", true); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	inst, _ := r.Get("BBG1")
	before := inst.Dividends

	p.mu.Lock()
	p.fail = true
	p.mu.Unlock()
	err := r.Refresh(context.Background(), "BBG1", true)
	if err == nil {
		t.Fatalf("expected error from failing provider")
	}
	if !errors.Is(err, repository.ErrUpstreamUnavailable) {
		t.Fatalf("provider failure not marked upstream-unavailable: %v", err)
	}

	inst, _ = r.Get("BBG1")
	if inst.Dividends != before {
		t.Fatalf("failed refresh replaced prior metrics")
	}
	if m.refreshes["stock/failed"] != 1 {
		t.Fatalf("failure not recorded: %v", m.refreshes)
	}
}

func TestRefreshSkipsFreshSeries(t *testing.T) {
	now := time.Now().UTC()
	p := &fakeProvider{batches: map[string][]models.PaymentRecord{
		"BBG1": {pastDividend(now, 200, 40)},
	}}
	prices := &fakePrices{current: models.Defined(2000)}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	r := newTestRefresher(p, prices, pub, m, WithMaxAge(time.Hour))

	r.Track(&models.Instrument{ID: "BBG1", Ticker: "TST", Type: models.TypeStock})
	if err := r.Refresh(context.Background(), "BBG1", true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := r.Refresh(context.Background(), "BBG1", false); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("fresh series should not re-fetch, provider calls = %d", p.calls)
	}
	if m.refreshes["stock/skipped"] != 1 {
		t.Fatalf("skip not recorded: %v", m.refreshes)
	}
}

func TestRefreshConvertsCurrency(t *testing.T) {
	now := time.Now().UTC()
	usd := models.PaymentRecord{
		PaymentDate:    now.AddDate(0, 0, -100),
		Amount:         1,
		Currency:       "usd",
		InstrumentType: models.TypeStock,
	}
	p := &fakeProvider{batches: map[string][]models.PaymentRecord{"BBG1": {usd}}}
	prices := &fakePrices{current: models.Defined(900)}
	pub := &fakePublisher{}
	m := newFakeMetrics()

	conv := currency.NewConverter()
	conv.SetRate("usd", "rub", 90)
	proc := NewSnapshotProcessor(pub, nil, m, "kafka")
	r := NewMetricsRefresher(p, prices, conv, nil, proc, m,
		WithBaseCurrency("rub"), WithProviderRate(1000))

	r.Track(&models.Instrument{ID: "BBG1", Ticker: "TST", Type: models.TypeStock})
	if err := r.Refresh(context.Background(), "BBG1", true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	inst, _ := r.Get("BBG1")
	// 1 usd -> 90 rub in the trailing window against price 900 -> 10%.
	ty := inst.Dividends.TrailingYield
	if !ty.Valid || ty.Value < 9.99 || ty.Value > 10.01 {
		t.Fatalf("trailing yield after conversion = %+v, want ~10", ty)
	}
}

func TestRefreshBondComputesCoupons(t *testing.T) {
	now := time.Now().UTC()
	c1 := models.PaymentRecord{PaymentDate: now.AddDate(0, 0, -300), Amount: 40, Currency: "rub", InstrumentType: models.TypeBond}
	c2 := models.PaymentRecord{PaymentDate: now.AddDate(0, 0, -120), Amount: 40, Currency: "rub", InstrumentType: models.TypeBond}
	p := &fakeProvider{batches: map[string][]models.PaymentRecord{"BBGB": {c1, c2}}}
	prices := &fakePrices{current: models.Defined(1000), at: models.Defined(1000)}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	r := newTestRefresher(p, prices, pub, m)

	r.Track(&models.Instrument{
		ID: "BBGB", Ticker: "BND", Type: models.TypeBond,
		Bond: &models.BondTerms{
			Nominal:        1000,
			InitialNominal: 1000,
			CouponsPerYear: 2,
			MaturityDate:   now.AddDate(2, 0, 0),
		},
	})
	if err := r.Refresh(context.Background(), "BBGB", true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	inst, _ := r.Get("BBGB")
	if inst.Coupons == nil {
		t.Fatalf("no coupon metrics computed")
	}
	cy := inst.Coupons.CurrentYield
	if !cy.Valid || cy.Value < 7.99 || cy.Value > 8.01 {
		t.Fatalf("current yield = %+v, want ~8.0", cy)
	}
	if len(inst.Coupons.FutureCashFlows) == 0 {
		t.Fatalf("expected projected cash flows for a live bond")
	}
}

func TestRefreshFetchesBondTerms(t *testing.T) {
	now := time.Now().UTC()
	c1 := models.PaymentRecord{PaymentDate: now.AddDate(0, 0, -300), Amount: 40, Currency: "rub", InstrumentType: models.TypeBond}
	c2 := models.PaymentRecord{PaymentDate: now.AddDate(0, 0, -120), Amount: 40, Currency: "rub", InstrumentType: models.TypeBond}
	p := &fakeProvider{
		batches: map[string][]models.PaymentRecord{"BBGB": {c1, c2}},
		terms: map[string]*models.BondTerms{"BBGB": {
			Nominal:         500,
			InitialNominal:  1000,
			NominalCurrency: "rub",
			CouponsPerYear:  2,
			MaturityDate:    now.AddDate(2, 0, 0),
			FloatingCoupon:  true,
			Amortization:    true,
		}},
	}
	prices := &fakePrices{current: models.Defined(500), at: models.Defined(500)}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	r := newTestRefresher(p, prices, pub, m)

	// Instrument discovery only knows the id; the terms come from the
	// provider during the first refresh.
	r.Track(&models.Instrument{ID: "BBGB", Ticker: "BND", Type: models.TypeBond, Bond: &models.BondTerms{}})
	if err := r.Refresh(context.Background(), "BBGB", true); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	inst, _ := r.Get("BBGB")
	if inst.Bond == nil || inst.Bond.MaturityDate.IsZero() {
		t.Fatalf("bond terms not populated from the provider: %+v", inst.Bond)
	}
	if inst.Coupons == nil {
		t.Fatalf("no coupon metrics computed")
	}
	if !inst.Coupons.IsApproximate {
		t.Fatalf("floating amortizing bond must be flagged approximate")
	}
	// Latest coupon 40 scaled by the 500/1000 outstanding nominal, twice a year.
	ay := inst.Coupons.AmountYear
	if !ay.Valid || ay.Value < 39.99 || ay.Value > 40.01 {
		t.Fatalf("annual amount = %+v, want ~40", ay)
	}
	if len(inst.Coupons.FutureCashFlows) == 0 {
		t.Fatalf("expected projected cash flows once the maturity is known")
	}
}

func TestRefreshAllSweepsEveryInstrument(t *testing.T) {
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
	r.RefreshAll(context.Background(), true)

	if len(pub.snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(pub.snaps))
	}
	if m.refreshes["stock/ok"] != 3 {
		t.Fatalf("refresh counts: %v", m.refreshes)
	}
}
