package payments

import (
	"math"
	"sort"
	"time"

	"YieldPull/internal/domain/models"
)

// recentYears is the span of complete calendar years used for CAGR.
const recentYears = 3

// DividendInputs carries the external observations the dividend engine
// combines with the series: the current price, the externally computed
// volatility, and the nearest announced future payment when the provider
// exposes one.
type DividendInputs struct {
	CurrentPrice models.Metric
	Volatility   models.Metric
	NextPayment  *models.PaymentRecord
	Now          time.Time
}

// ComputeDividends derives the full dividend analytics of a stock/ETF
// series. An instrument with no dividend history at all reports 0.0 for
// the yield metrics (the documented "pays nothing" state) while the
// history-shape metrics (frequency, stability, CAGR) stay undefined.
func ComputeDividends(s *Series, in DividendInputs) *models.DividendMetrics {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	realized := s.Realized(now)
	yearly := yearlyTotals(realized)

	m := &models.DividendMetrics{
		NextPayment: in.NextPayment,
	}

	m.PayoutFrequency = payoutFrequency(realized)
	m.DividendStability = dividendStability(yearly)
	m.DividendCAGR3Y = dividendCAGR(yearly, now.Year())
	m.LastAnnualDividend = lastAnnualDividend(yearly, now.Year())
	m.TrailingYield = trailingYield(realized, in.CurrentPrice, now)
	m.ForwardYield = forwardYield(realized, m, in)

	// Yield + growth: undefined CAGR degrades to the forward yield
	// alone rather than poisoning the composite.
	switch {
	case !m.ForwardYield.Valid:
		m.YieldPlusGrowth = models.Undefined()
	case !m.DividendCAGR3Y.Valid:
		m.YieldPlusGrowth = m.ForwardYield
	default:
		m.YieldPlusGrowth = models.Defined(m.ForwardYield.Value + m.DividendCAGR3Y.Value)
	}

	if m.ForwardYield.Valid && in.Volatility.Valid && in.Volatility.Value > 0 {
		m.RiskAdjYield = models.Defined(m.ForwardYield.Value / in.Volatility.Value)
	}

	return m
}

// yearlyTotals sums realized payments per calendar year.
func yearlyTotals(realized []models.PaymentRecord) map[int]float64 {
	totals := make(map[int]float64, 8)
	for _, r := range realized {
		totals[r.PaymentDate.Year()] += r.Amount
	}
	return totals
}

// payoutFrequency estimates payments per year from the mean gap between
// consecutive payments. Undefined with fewer than two payments: a single
// observation carries no cadence.
func payoutFrequency(realized []models.PaymentRecord) models.Metric {
	if len(realized) < 2 {
		return models.Undefined()
	}
	gaps := make([]float64, 0, len(realized)-1)
	for i := 1; i < len(realized); i++ {
		d := realized[i].PaymentDate.Sub(realized[i-1].PaymentDate).Hours() / 24
		if d > 0 {
			gaps = append(gaps, d)
		}
	}
	if len(gaps) == 0 {
		return models.Undefined()
	}
	return models.Defined(daysPerYear / mean(gaps))
}

// dividendStability is 1 minus the coefficient of variation of positive
// annual totals. A single year of history is insufficient evidence of
// stability, so the metric stays undefined rather than reporting 1.0.
// The result is deliberately not clamped to [0,1]: out-of-range values
// flag degenerate input.
func dividendStability(yearly map[int]float64) models.Metric {
	totals := make([]float64, 0, len(yearly))
	for _, v := range yearly {
		if v > 0 {
			totals = append(totals, v)
		}
	}
	if len(totals) < 2 {
		return models.Undefined()
	}
	m := mean(totals)
	if m <= 0 {
		return models.Undefined()
	}
	return models.Defined(1 - sampleStdDev(totals)/m)
}

// dividendCAGR is the compound annual growth rate across the three most
// recent complete calendar years (a 2-year compounding span over 3
// year-end totals). The current partial year is excluded; a zero or
// negative starting total leaves the growth rate undefined.
func dividendCAGR(yearly map[int]float64, currentYear int) models.Metric {
	complete := make([]int, 0, len(yearly))
	for y := range yearly {
		if y < currentYear {
			complete = append(complete, y)
		}
	}
	if len(complete) < recentYears {
		return models.Undefined()
	}
	sort.Ints(complete)
	recent := complete[len(complete)-recentYears:]

	start := yearly[recent[0]]
	end := yearly[recent[len(recent)-1]]
	if start <= 0 {
		return models.Undefined()
	}
	cagr := math.Pow(end/start, 1/float64(recentYears-1)) - 1
	return models.Defined(cagr * 100)
}

// lastAnnualDividend is the total of the most recently completed calendar
// year, 0.0 when none exists.
func lastAnnualDividend(yearly map[int]float64, currentYear int) float64 {
	best := 0
	for y := range yearly {
		if y < currentYear && y > best {
			best = y
		}
	}
	if best == 0 {
		return 0
	}
	return yearly[best]
}

// trailingYield sums the payments of the trailing 365 days against the
// current price. No payments in the window is a real 0.0; an unresolved
// price makes the metric undefined (unless there is no history at all,
// which reports the documented 0.0).
func trailingYield(realized []models.PaymentRecord, price models.Metric, now time.Time) models.Metric {
	if len(realized) == 0 {
		return models.Defined(0)
	}
	if !price.Valid || price.Value <= 0 {
		return models.Undefined()
	}
	cutoff := now.AddDate(0, 0, -365)
	var sum float64
	for _, r := range realized {
		if r.PaymentDate.After(cutoff) {
			sum += r.Amount
		}
	}
	return models.Defined(sum / price.Value * 100)
}

// forwardYield prefers the announced-payment path (next amount times the
// observed payout frequency) and falls back to the last complete annual
// total. With no price and no history the metric is a real 0.0 per the
// "no dividends" policy; history without a price stays undefined.
func forwardYield(realized []models.PaymentRecord, m *models.DividendMetrics, in DividendInputs) models.Metric {
	noHistory := len(realized) == 0 && in.NextPayment == nil
	if noHistory {
		return models.Defined(0)
	}
	if !in.CurrentPrice.Valid || in.CurrentPrice.Value <= 0 {
		return models.Undefined()
	}

	var annual float64
	if in.NextPayment != nil && in.NextPayment.Amount > 0 && m.PayoutFrequency.Valid {
		annual = in.NextPayment.Amount * m.PayoutFrequency.Value
	} else {
		annual = m.LastAnnualDividend
	}
	return models.Defined(annual / in.CurrentPrice.Value * 100)
}
