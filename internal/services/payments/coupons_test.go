package payments

import (
	"testing"
	"time"

	"YieldPull/internal/domain/models"
)

func coupon(y int, m time.Month, d int, amount float64) models.PaymentRecord {
	return models.PaymentRecord{
		PaymentDate:    date(y, m, d),
		Amount:         amount,
		Currency:       "rub",
		InstrumentType: models.TypeBond,
	}
}

func bondSeries(t *testing.T, recs ...models.PaymentRecord) *Series {
	t.Helper()
	s := NewSeries("BBG000BOND01", models.TypeBond)
	if err := s.Ingest(recs); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	return s
}

func TestCouponYieldsAgainstHistoricalPrices(t *testing.T) {
	now := date(2024, 6, 1)
	s := bondSeries(t,
		coupon(2023, 6, 1, 30),
		coupon(2023, 12, 1, 30),
	)
	prices := map[time.Time]models.Metric{
		date(2023, 6, 1):  models.Defined(1000),
		date(2023, 12, 1): models.Undefined(),
	}
	in := CouponInputs{
		PriceAt:      func(d time.Time) models.Metric { return prices[d] },
		CurrentPrice: models.Defined(1000),
		Nominal:      1000,
		Now:          now,
	}
	m := ComputeCoupons(s, in)
	if len(m.Yields) != 2 {
		t.Fatalf("expected 2 yields, got %d", len(m.Yields))
	}
	if !m.Yields[0].Yield.Valid || !almostEqual(m.Yields[0].Yield.Value, 3.0) {
		t.Fatalf("first yield = %+v, want 3.0", m.Yields[0].Yield)
	}
	if m.Yields[1].Yield.Valid {
		t.Fatalf("missing historical price must leave that yield undefined")
	}
}

func TestCurrentYieldFromDeclaredFrequency(t *testing.T) {
	now := date(2024, 6, 1)
	s := bondSeries(t,
		coupon(2023, 12, 1, 40),
		coupon(2024, 3, 1, 40),
	)
	m := ComputeCoupons(s, CouponInputs{
		CurrentPrice:   models.Defined(1000),
		Nominal:        1000,
		CouponsPerYear: 2,
		MaturityDate:   date(2026, 3, 1),
		Now:            now,
	})
	if !m.AmountYear.Valid || !almostEqual(m.AmountYear.Value, 80) {
		t.Fatalf("annual amount = %+v, want 80", m.AmountYear)
	}
	if !m.CurrentYield.Valid || !almostEqual(m.CurrentYield.Value, 8.0) {
		t.Fatalf("current yield = %+v, want 8.0", m.CurrentYield)
	}
}

func TestCouponsPerYearObservedFallback(t *testing.T) {
	now := date(2024, 6, 1)
	// Quarterly cadence, no declared frequency.
	s := bondSeries(t,
		coupon(2023, 3, 1, 20),
		coupon(2023, 6, 1, 20),
		coupon(2023, 9, 1, 20),
		coupon(2023, 12, 1, 20),
	)
	m := ComputeCoupons(s, CouponInputs{
		CurrentPrice: models.Defined(1000),
		Nominal:      1000,
		Now:          now,
	})
	if !m.AmountYear.Valid || !almostEqual(m.AmountYear.Value, 80) {
		t.Fatalf("annual amount = %+v, want 80 (4 observed coupons of 20)", m.AmountYear)
	}
}

func TestFloatingCouponUsesMostRecentAmount(t *testing.T) {
	now := date(2024, 6, 1)
	s := bondSeries(t,
		coupon(2023, 6, 1, 20),
		coupon(2023, 12, 1, 30),
		coupon(2024, 5, 1, 50),
	)
	m := ComputeCoupons(s, CouponInputs{
		CurrentPrice:   models.Defined(1000),
		Nominal:        1000,
		FloatingCoupon: true,
		CouponsPerYear: 2,
		Now:            now,
	})
	if !m.AmountYear.Valid || !almostEqual(m.AmountYear.Value, 100) {
		t.Fatalf("annual amount = %+v, want 100 (latest coupon 50 x 2)", m.AmountYear)
	}
}

func TestAmortizationScalesProjection(t *testing.T) {
	now := date(2024, 6, 1)
	s := bondSeries(t,
		coupon(2023, 12, 1, 40),
		coupon(2024, 5, 1, 40),
	)
	m := ComputeCoupons(s, CouponInputs{
		CurrentPrice:   models.Defined(500),
		Nominal:        500,
		InitialNominal: 1000,
		Amortization:   true,
		CouponsPerYear: 2,
		Now:            now,
	})
	// Half the nominal outstanding halves the projected coupon.
	if !m.AmountYear.Valid || !almostEqual(m.AmountYear.Value, 40) {
		t.Fatalf("annual amount = %+v, want 40", m.AmountYear)
	}
}

func TestIsApproximateTruthTable(t *testing.T) {
	now := date(2024, 6, 1)
	cases := []struct {
		floating, amortizing, want bool
	}{
		{false, false, false},
		{true, false, false},
		{false, true, false},
		{true, true, true},
	}
	for _, c := range cases {
		s := bondSeries(t, coupon(2023, 12, 1, 40))
		m := ComputeCoupons(s, CouponInputs{
			CurrentPrice:   models.Defined(1000),
			Nominal:        1000,
			FloatingCoupon: c.floating,
			Amortization:   c.amortizing,
			Now:            now,
		})
		if m.IsApproximate != c.want {
			t.Fatalf("floating=%v amortizing=%v: is_approximate=%v, want %v",
				c.floating, c.amortizing, m.IsApproximate, c.want)
		}
	}
}

func TestFutureCashFlowsEndAtMaturityWithRedemption(t *testing.T) {
	now := date(2024, 6, 1)
	s := bondSeries(t,
		coupon(2023, 12, 1, 40),
		coupon(2024, 6, 1, 40),
	)
	m := ComputeCoupons(s, CouponInputs{
		CurrentPrice:   models.Defined(1000),
		Nominal:        1000,
		CouponsPerYear: 2,
		MaturityDate:   date(2025, 6, 1),
		Now:            now,
	})
	if len(m.FutureCashFlows) == 0 {
		t.Fatalf("expected future flows before maturity")
	}
	last := m.FutureCashFlows[len(m.FutureCashFlows)-1]
	if last.Date.After(date(2025, 6, 1)) {
		t.Fatalf("flow past maturity: %v", last.Date)
	}
	if last.Amount < 1000 {
		t.Fatalf("final flow %v does not include the nominal redemption", last.Amount)
	}
	for _, f := range m.FutureCashFlows {
		if !f.Date.After(now) {
			t.Fatalf("flow not in the future: %v", f.Date)
		}
	}
}

func TestFutureCashFlowsUseAnnouncedSchedule(t *testing.T) {
	now := date(2024, 6, 1)
	// Two realized coupons plus two announced ones, the second announced
	// without an amount yet.
	s := bondSeries(t,
		coupon(2023, 12, 1, 40),
		coupon(2024, 6, 1, 40),
		coupon(2024, 12, 1, 45),
		coupon(2025, 6, 1, 0),
	)
	m := ComputeCoupons(s, CouponInputs{
		CurrentPrice:   models.Defined(1000),
		Nominal:        1000,
		CouponsPerYear: 2,
		MaturityDate:   date(2026, 6, 1),
		Now:            now,
	})
	flows := m.FutureCashFlows
	if len(flows) != 4 {
		t.Fatalf("expected 4 future flows, got %d: %+v", len(flows), flows)
	}
	if !flows[0].Date.Equal(date(2024, 12, 1)) || !almostEqual(flows[0].Amount, 45) {
		t.Fatalf("announced coupon not taken as-is: %+v", flows[0])
	}
	if !flows[1].Date.Equal(date(2025, 6, 1)) || !almostEqual(flows[1].Amount, 40) {
		t.Fatalf("announced date without amount should use the projected coupon: %+v", flows[1])
	}
	if !flows[2].Date.Equal(date(2025, 12, 1)) || !almostEqual(flows[2].Amount, 40) {
		t.Fatalf("projection should continue past the announced horizon: %+v", flows[2])
	}
	last := flows[3]
	if !sameDay(last.Date, date(2026, 6, 1)) || !almostEqual(last.Amount, 1000) {
		t.Fatalf("expected the redemption at maturity, got %+v", last)
	}
}

func TestFutureCashFlowsEmptyPastMaturity(t *testing.T) {
	now := date(2024, 6, 1)
	s := bondSeries(t, coupon(2023, 12, 1, 40))
	m := ComputeCoupons(s, CouponInputs{
		CurrentPrice: models.Defined(1000),
		Nominal:      1000,
		MaturityDate: date(2024, 1, 1),
		Now:          now,
	})
	if len(m.FutureCashFlows) != 0 {
		t.Fatalf("matured bond reported %d future flows", len(m.FutureCashFlows))
	}
}

func TestEmptySeriesCouponMetrics(t *testing.T) {
	now := date(2024, 6, 1)
	s := NewSeries("BBG000BOND01", models.TypeBond)
	m := ComputeCoupons(s, CouponInputs{
		CurrentPrice: models.Defined(1000),
		Nominal:      1000,
		MaturityDate: date(2025, 6, 1),
		Now:          now,
	})
	if m.AverageAmount.Valid || m.AmountYear.Valid || m.CurrentYield.Valid {
		t.Fatalf("empty series must leave coupon aggregates undefined: %+v", m)
	}
	if len(m.Yields) != 0 {
		t.Fatalf("empty series produced %d yields", len(m.Yields))
	}
	// Only the redemption remains knowable.
	if len(m.FutureCashFlows) != 1 || !almostEqual(m.FutureCashFlows[0].Amount, 1000) {
		t.Fatalf("expected redemption-only cash flow, got %+v", m.FutureCashFlows)
	}
}
