package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"YieldPull/internal/domain/models"
	drepo "YieldPull/internal/domain/repository"
	"YieldPull/internal/service/ratelimit"
	"YieldPull/internal/services/payments"
	applogger "YieldPull/pkg/logger"
	"YieldPull/pkg/util"
)

// historyWindow is how far back a refresh fetches payments. Five years
// leaves slack beyond the three complete years the growth metrics need.
const historyWindow = 5

// RefresherOption configures the MetricsRefresher.
type RefresherOption func(*MetricsRefresher)

// WithMaxAge sets the staleness threshold below which Refresh is a no-op.
func WithMaxAge(d time.Duration) RefresherOption {
	return func(r *MetricsRefresher) {
		if d > 0 {
			r.maxAge = d
		}
	}
}

// WithWorkers sets the RefreshAll concurrency.
func WithWorkers(n int) RefresherOption {
	return func(r *MetricsRefresher) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithProviderRate caps provider calls per second across all workers.
func WithProviderRate(perSec float64) RefresherOption {
	return func(r *MetricsRefresher) {
		if perSec > 0 {
			r.rate = perSec
		}
	}
}

// WithBaseCurrency sets the currency payments are converted into.
func WithBaseCurrency(cur string) RefresherOption {
	return func(r *MetricsRefresher) {
		if cur != "" {
			r.baseCur = cur
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) RefresherOption {
	return func(r *MetricsRefresher) { r.log = l }
}

// MetricsRefresher is the orchestration facade over the payment engine:
// fetch, convert, ingest, compute, persist, publish, release. It owns
// the tracked instrument set and the transient per-instrument series.
//
// A refresh is fail-soft: any upstream failure leaves the previously
// computed metrics in place and surfaces as an error to the caller.
type MetricsRefresher struct {
	provider drepo.PaymentProvider
	prices   drepo.PriceSource
	conv     drepo.CurrencyConverter
	store    drepo.PaymentStore
	proc     *SnapshotProcessor
	metrics  drepo.Metrics
	limiter  *ratelimit.Limiter
	log      *applogger.Logger

	maxAge  time.Duration
	workers int
	rate    float64
	baseCur string

	mu          sync.RWMutex
	instruments map[string]*models.Instrument
	series      map[string]*payments.Series
	locks       map[string]*sync.Mutex
}

// NewMetricsRefresher creates the refresher facade.
func NewMetricsRefresher(
	provider drepo.PaymentProvider,
	prices drepo.PriceSource,
	conv drepo.CurrencyConverter,
	store drepo.PaymentStore,
	proc *SnapshotProcessor,
	metrics drepo.Metrics,
	opts ...RefresherOption,
) *MetricsRefresher {
	r := &MetricsRefresher{
		provider:    provider,
		prices:      prices,
		conv:        conv,
		store:       store,
		proc:        proc,
		metrics:     metrics,
		limiter:     ratelimit.New(),
		maxAge:      24 * time.Hour,
		workers:     4,
		rate:        5,
		baseCur:     "rub",
		instruments: make(map[string]*models.Instrument),
		series:      make(map[string]*payments.Series),
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Track registers an instrument for refresh cycles. Re-tracking an id
// replaces the static terms but keeps any computed metrics and history.
func (r *MetricsRefresher) Track(inst *models.Instrument) {
	if inst == nil || inst.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.instruments[inst.ID]; ok {
		inst.Coupons = prev.Coupons
		inst.Dividends = prev.Dividends
		inst.LastComputed = prev.LastComputed
	} else {
		r.series[inst.ID] = payments.NewSeries(inst.ID, inst.Type)
		r.locks[inst.ID] = &sync.Mutex{}
	}
	r.instruments[inst.ID] = inst
}

// Get returns a copy of the tracked instrument with its latest computed
// metrics. Refresh replaces the metric pointers wholesale and never
// mutates a published metrics struct, so the copy is safe to serialize.
func (r *MetricsRefresher) Get(id string) (*models.Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instruments[id]
	if !ok {
		return nil, false
	}
	cp := *inst
	return &cp, true
}

// List returns copies of the tracked instruments, filtered by type when
// typ is set.
func (r *MetricsRefresher) List(typ models.InstrumentType) []*models.Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Instrument, 0, len(r.instruments))
	for _, inst := range r.instruments {
		if typ != "" && inst.Type != typ {
			continue
		}
		cp := *inst
		out = append(out, &cp)
	}
	return out
}

// Refresh runs one full cycle for an instrument. A fresh series is left
// untouched unless force is set; staleness itself never triggers a
// refresh, the caller's cadence does.
func (r *MetricsRefresher) Refresh(ctx context.Context, id string, force bool) error {
	r.mu.RLock()
	inst, ok := r.instruments[id]
	series := r.series[id]
	lock := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("refresh: instrument %s not tracked", id)
	}

	lock.Lock()
	defer lock.Unlock()

	if !force && !series.IsStale(r.maxAge) {
		r.metrics.RecordRefresh(string(inst.Type), "skipped")
		return nil
	}

	start := time.Now()
	now := start.UTC()
	// Align the window to a year boundary so the growth metrics see only
	// whole calendar years.
	since := util.StartOfYear(now.AddDate(-historyWindow, 0, 0))

	batch, err := r.provider.FetchPayments(ctx, id, inst.Type, since)
	if err != nil {
		r.metrics.RecordRefresh(string(inst.Type), "failed")
		r.metrics.RecordError("provider_fetch")
		return fmt.Errorf("fetch payments %s: %w: %v", id, drepo.ErrUpstreamUnavailable, err)
	}

	for i := range batch {
		if batch[i].Currency != "" && batch[i].Currency != r.baseCur {
			batch[i].Amount = r.conv.Convert(ctx, batch[i].Amount, batch[i].Currency, r.baseCur, batch[i].PaymentDate)
			batch[i].Currency = r.baseCur
		}
	}

	if err := series.Ingest(batch); err != nil {
		r.metrics.RecordRefresh(string(inst.Type), "rejected")
		r.metrics.RecordError("ingest")
		return err
	}

	if r.store != nil {
		if err := r.store.SaveBatch(ctx, id, batch); err != nil {
			// raw persistence is write-through, not load-bearing
			r.metrics.RecordError("payment_store")
			if r.log != nil {
				r.log.Warn("payment store save failed", applogger.String("instrument", id), applogger.Error(err))
			}
		}
	}

	snap := &models.MetricsSnapshot{
		InstrumentID: id,
		Ticker:       inst.Ticker,
		Type:         inst.Type,
		ComputedAt:   now,
	}

	if inst.Type == models.TypeBond {
		terms := r.ensureBondTerms(ctx, inst)
		snap.Coupons = r.computeCoupons(ctx, inst, terms, series, now)
	} else {
		snap.Dividends = r.computeDividends(ctx, inst, series, now)
		if snap.Dividends.ForwardYield.Valid {
			r.metrics.RecordForwardYield(inst.Ticker, snap.Dividends.ForwardYield.Value)
		}
	}

	// Publish the results under the registry lock; Get, List and the
	// screener read concurrently with the refresh loop.
	r.mu.Lock()
	if snap.Coupons != nil {
		inst.Coupons = snap.Coupons
	}
	if snap.Dividends != nil {
		inst.Dividends = snap.Dividends
	}
	inst.LastComputed = now
	r.mu.Unlock()

	if r.proc != nil {
		if err := r.proc.Process(ctx, snap); err != nil {
			if r.log != nil {
				r.log.Warn("snapshot publish failed", applogger.String("instrument", id), applogger.Error(err))
			}
		}
	}

	series.Clear()
	r.metrics.RecordRefresh(string(inst.Type), "ok")
	r.metrics.RecordLatency("refresh", time.Since(start).Seconds())
	return nil
}

// ensureBondTerms returns the bond's static terms, looking them up from
// the provider when the tracked instrument carries none. The lookup is
// fail-soft; computation proceeds with whatever terms are known.
func (r *MetricsRefresher) ensureBondTerms(ctx context.Context, inst *models.Instrument) *models.BondTerms {
	r.mu.RLock()
	var known *models.BondTerms
	if inst.Bond != nil {
		cp := *inst.Bond
		known = &cp
	}
	r.mu.RUnlock()
	if known != nil && !known.MaturityDate.IsZero() {
		return known
	}

	fetched, err := r.provider.BondTerms(ctx, inst.ID)
	if err != nil || fetched == nil {
		if err != nil {
			r.metrics.RecordError("provider_terms")
			if r.log != nil {
				r.log.Warn("bond terms lookup failed", applogger.String("instrument", inst.ID), applogger.Error(err))
			}
		}
		return known
	}

	r.mu.Lock()
	inst.Bond = fetched
	r.mu.Unlock()
	cp := *fetched
	return &cp
}

func (r *MetricsRefresher) computeCoupons(ctx context.Context, inst *models.Instrument, terms *models.BondTerms, s *payments.Series, now time.Time) *models.CouponMetrics {
	in := payments.CouponInputs{
		PriceAt: func(date time.Time) models.Metric {
			return r.prices.PriceAt(ctx, inst.ID, date)
		},
		CurrentPrice: r.prices.CurrentPrice(ctx, inst.ID),
		Now:          now,
	}
	if b := terms; b != nil {
		in.Nominal = b.Nominal
		in.InitialNominal = b.InitialNominal
		in.FloatingCoupon = b.FloatingCoupon
		in.Amortization = b.Amortization
		in.MaturityDate = b.MaturityDate
		in.CouponsPerYear = b.CouponsPerYear
	}
	return payments.ComputeCoupons(s, in)
}

func (r *MetricsRefresher) computeDividends(ctx context.Context, inst *models.Instrument, s *payments.Series, now time.Time) *models.DividendMetrics {
	in := payments.DividendInputs{
		CurrentPrice: r.prices.CurrentPrice(ctx, inst.ID),
		Volatility:   r.prices.Volatility(ctx, inst.ID),
		Now:          now,
	}
	next, err := r.provider.NextAnnounced(ctx, inst.ID)
	if err != nil {
		// announced payment is an enrichment, not a requirement
		r.metrics.RecordError("provider_next")
	} else {
		in.NextPayment = next
	}
	return payments.ComputeDividends(s, in)
}

// RefreshAll refreshes every tracked instrument with bounded concurrency
// and a shared provider rate limit. Per-instrument failures are counted
// and logged, never fatal to the sweep.
func (r *MetricsRefresher) RefreshAll(ctx context.Context, force bool) {
	ids := make([]string, 0)
	r.mu.RLock()
	for id := range r.instruments {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			r.waitForSlot(ctx)
			if err := r.Refresh(ctx, id, force); err != nil && r.log != nil {
				r.log.Warn("refresh failed", applogger.String("instrument", id), applogger.Error(err))
			}
		}(id)
	}
	wg.Wait()
}

func (r *MetricsRefresher) waitForSlot(ctx context.Context) {
	for !r.limiter.Allow("provider", r.rate, r.rate) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Close releases processor-held backends.
func (r *MetricsRefresher) Close() {
	if r.proc != nil {
		r.proc.Close()
	}
}
