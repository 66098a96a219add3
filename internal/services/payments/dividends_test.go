package payments

import (
	"math"
	"testing"

	"YieldPull/internal/domain/models"
)

const tol = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func seriesWith(t *testing.T, recs ...models.PaymentRecord) *Series {
	t.Helper()
	s := NewSeries("BBG000TEST01", models.TypeStock)
	if err := s.Ingest(recs); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	return s
}

func TestDividendCAGRThreeCompleteYears(t *testing.T) {
	// Annual totals 2021:10, 2022:12, 2023:14.4 with 2024 in progress.
	now := date(2024, 6, 1)
	s := seriesWith(t,
		dividend(2021, 5, 1, 10),
		dividend(2022, 5, 1, 12),
		dividend(2023, 5, 1, 14.4),
	)
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(1000), Now: now})
	if !m.DividendCAGR3Y.Valid {
		t.Fatalf("expected CAGR defined")
	}
	want := (math.Sqrt(14.4/10) - 1) * 100 // ~20.0
	if !almostEqual(m.DividendCAGR3Y.Value, want) {
		t.Fatalf("cagr = %v, want %v", m.DividendCAGR3Y.Value, want)
	}
}

func TestDividendCAGRUndefinedWithTwoYears(t *testing.T) {
	now := date(2024, 6, 1)
	s := seriesWith(t,
		dividend(2022, 5, 1, 12),
		dividend(2023, 5, 1, 14.4),
	)
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(1000), Now: now})
	if m.DividendCAGR3Y.Valid {
		t.Fatalf("expected CAGR undefined with 2 complete years, got %v", m.DividendCAGR3Y.Value)
	}
}

func TestDividendCAGRUndefinedWithZeroStart(t *testing.T) {
	now := date(2024, 6, 1)
	s := seriesWith(t,
		dividend(2021, 5, 1, 0),
		dividend(2022, 5, 1, 12),
		dividend(2023, 5, 1, 14.4),
	)
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(1000), Now: now})
	if m.DividendCAGR3Y.Valid {
		t.Fatalf("expected CAGR undefined with zero starting total")
	}
}

func TestDividendStabilityConstantTotals(t *testing.T) {
	now := date(2024, 2, 1)
	s := seriesWith(t,
		dividend(2021, 5, 1, 10),
		dividend(2022, 5, 1, 10),
		dividend(2023, 5, 1, 10),
	)
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(1000), Now: now})
	if !m.DividendStability.Valid {
		t.Fatalf("expected stability defined")
	}
	if !almostEqual(m.DividendStability.Value, 1.0) {
		t.Fatalf("stability = %v, want 1.0", m.DividendStability.Value)
	}
}

func TestDividendStabilityUndefinedSingleYear(t *testing.T) {
	now := date(2024, 2, 1)
	s := seriesWith(t, dividend(2023, 5, 1, 10))
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(1000), Now: now})
	if m.DividendStability.Valid {
		t.Fatalf("single-year history must not claim stability, got %v", m.DividendStability.Value)
	}
}

func TestPayoutFrequencyAnnual(t *testing.T) {
	now := date(2024, 2, 1)
	s := seriesWith(t,
		dividend(2021, 6, 1, 10),
		dividend(2022, 6, 1, 10),
		dividend(2023, 6, 1, 10),
	)
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(1000), Now: now})
	if !m.PayoutFrequency.Valid {
		t.Fatalf("expected frequency defined")
	}
	if math.Abs(m.PayoutFrequency.Value-1.0) > 0.01 {
		t.Fatalf("frequency = %v, want ~1.0", m.PayoutFrequency.Value)
	}
}

func TestPayoutFrequencyQuarterly(t *testing.T) {
	now := date(2024, 2, 1)
	s := seriesWith(t,
		dividend(2023, 1, 10, 5),
		dividend(2023, 4, 10, 5),
		dividend(2023, 7, 10, 5),
		dividend(2023, 10, 10, 5),
	)
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(1000), Now: now})
	if !m.PayoutFrequency.Valid {
		t.Fatalf("expected frequency defined")
	}
	if m.PayoutFrequency.Value < 3.5 || m.PayoutFrequency.Value > 4.5 {
		t.Fatalf("frequency = %v, want ~4", m.PayoutFrequency.Value)
	}
}

func TestPayoutFrequencyUndefinedSinglePayment(t *testing.T) {
	now := date(2024, 2, 1)
	s := seriesWith(t, dividend(2023, 6, 1, 10))
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(1000), Now: now})
	if m.PayoutFrequency.Valid {
		t.Fatalf("frequency must be undefined with one payment")
	}
}

func TestTrailingYieldWindow(t *testing.T) {
	// 100 paid 200 days ago counts, 100 paid 400 days ago does not.
	now := date(2024, 6, 1)
	s := seriesWith(t,
		dividend(2023, 11, 14, 100), // ~200 days before now
		dividend(2023, 4, 28, 100),  // ~400 days before now
	)
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(4000), Now: now})
	if !m.TrailingYield.Valid {
		t.Fatalf("expected trailing yield defined")
	}
	if !almostEqual(m.TrailingYield.Value, 2.5) {
		t.Fatalf("trailing yield = %v, want 2.5", m.TrailingYield.Value)
	}
}

func TestTrailingYieldUndefinedWithoutPrice(t *testing.T) {
	now := date(2024, 6, 1)
	s := seriesWith(t, dividend(2024, 1, 1, 100))
	m := ComputeDividends(s, DividendInputs{Now: now})
	if m.TrailingYield.Valid {
		t.Fatalf("missing price must leave trailing yield undefined, got %v", m.TrailingYield.Value)
	}
}

func TestForwardYieldAnnualFallback(t *testing.T) {
	// last_annual_dividend = 80, price = 2000 -> 4.0%.
	now := date(2024, 6, 1)
	s := seriesWith(t,
		dividend(2023, 5, 1, 40),
		dividend(2023, 11, 1, 40),
	)
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(2000), Now: now})
	if m.LastAnnualDividend != 80 {
		t.Fatalf("last annual dividend = %v, want 80", m.LastAnnualDividend)
	}
	if !m.ForwardYield.Valid || !almostEqual(m.ForwardYield.Value, 4.0) {
		t.Fatalf("forward yield = %+v, want 4.0", m.ForwardYield)
	}
}

func TestForwardYieldAnnouncedPath(t *testing.T) {
	now := date(2024, 6, 1)
	s := seriesWith(t,
		dividend(2023, 1, 10, 5),
		dividend(2023, 4, 10, 5),
		dividend(2023, 7, 10, 5),
		dividend(2023, 10, 10, 5),
	)
	next := dividend(2024, 7, 10, 6)
	m := ComputeDividends(s, DividendInputs{
		CurrentPrice: models.Defined(1000),
		NextPayment:  &next,
		Now:          now,
	})
	if !m.ForwardYield.Valid {
		t.Fatalf("expected forward yield defined")
	}
	want := 6 * m.PayoutFrequency.Value / 1000 * 100
	if !almostEqual(m.ForwardYield.Value, want) {
		t.Fatalf("forward yield = %v, want %v", m.ForwardYield.Value, want)
	}
}

func TestZeroHistoryPolicy(t *testing.T) {
	now := date(2024, 6, 1)
	s := NewSeries("BBG000TEST01", models.TypeStock)
	m := ComputeDividends(s, DividendInputs{
		CurrentPrice: models.Defined(1000),
		Volatility:   models.Defined(2.0),
		Now:          now,
	})
	for name, got := range map[string]models.Metric{
		"trailing_yield":    m.TrailingYield,
		"forward_yield":     m.ForwardYield,
		"yield_plus_growth": m.YieldPlusGrowth,
		"risk_adj_yield":    m.RiskAdjYield,
	} {
		if !got.Valid || got.Value != 0 {
			t.Fatalf("%s = %+v, want defined 0.0", name, got)
		}
	}
	if m.PayoutFrequency.Valid || m.DividendStability.Valid || m.DividendCAGR3Y.Valid {
		t.Fatalf("history-shape metrics must stay undefined with zero history")
	}
}

func TestYieldPlusGrowthDegradesWithoutCAGR(t *testing.T) {
	now := date(2024, 6, 1)
	s := seriesWith(t,
		dividend(2023, 5, 1, 40),
		dividend(2023, 11, 1, 40),
	)
	m := ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(2000), Now: now})
	if m.DividendCAGR3Y.Valid {
		t.Fatalf("precondition: CAGR should be undefined here")
	}
	if !m.YieldPlusGrowth.Valid || !almostEqual(m.YieldPlusGrowth.Value, m.ForwardYield.Value) {
		t.Fatalf("yield+growth = %+v, want forward yield %v", m.YieldPlusGrowth, m.ForwardYield.Value)
	}
}

func TestRiskAdjYield(t *testing.T) {
	now := date(2024, 6, 1)
	s := seriesWith(t,
		dividend(2023, 5, 1, 40),
		dividend(2023, 11, 1, 40),
	)
	m := ComputeDividends(s, DividendInputs{
		CurrentPrice: models.Defined(2000),
		Volatility:   models.Defined(2.0),
		Now:          now,
	})
	if !m.RiskAdjYield.Valid || !almostEqual(m.RiskAdjYield.Value, 2.0) {
		t.Fatalf("risk-adjusted yield = %+v, want 2.0", m.RiskAdjYield)
	}

	m = ComputeDividends(s, DividendInputs{CurrentPrice: models.Defined(2000), Now: now})
	if m.RiskAdjYield.Valid {
		t.Fatalf("missing volatility must leave risk-adjusted yield undefined")
	}
}

func TestComputeClearRecomputeRoundTrip(t *testing.T) {
	now := date(2024, 6, 1)
	batch := []models.PaymentRecord{
		dividend(2021, 5, 1, 10),
		dividend(2022, 5, 1, 12),
		dividend(2023, 5, 1, 14.4),
	}
	in := DividendInputs{CurrentPrice: models.Defined(1000), Volatility: models.Defined(1.5), Now: now}

	s := NewSeries("BBG000TEST01", models.TypeStock)
	if err := s.Ingest(batch); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	first := ComputeDividends(s, in)
	s.Clear()
	if err := s.Ingest(batch); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	second := ComputeDividends(s, in)

	pairs := [][2]models.Metric{
		{first.PayoutFrequency, second.PayoutFrequency},
		{first.DividendStability, second.DividendStability},
		{first.DividendCAGR3Y, second.DividendCAGR3Y},
		{first.TrailingYield, second.TrailingYield},
		{first.ForwardYield, second.ForwardYield},
		{first.YieldPlusGrowth, second.YieldPlusGrowth},
		{first.RiskAdjYield, second.RiskAdjYield},
	}
	for i, p := range pairs {
		if p[0].Valid != p[1].Valid {
			t.Fatalf("metric %d validity differs after round-trip: %+v vs %+v", i, p[0], p[1])
		}
		if p[0].Valid && math.Abs(p[0].Value-p[1].Value) > tol {
			t.Fatalf("metric %d differs after round-trip: %v vs %v", i, p[0].Value, p[1].Value)
		}
	}
}
