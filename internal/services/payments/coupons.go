package payments

import (
	"time"

	"YieldPull/internal/domain/models"
)

// CouponInputs carries everything the coupon engine needs beyond the
// series itself: the price lookup, the bond's static terms, and the
// computation time. PriceAt returns an undefined Metric when no price
// exists for a date; that never fails the whole pass.
type CouponInputs struct {
	PriceAt        func(date time.Time) models.Metric
	CurrentPrice   models.Metric
	Nominal        float64
	InitialNominal float64
	FloatingCoupon bool
	Amortization   bool
	MaturityDate   time.Time
	CouponsPerYear int
	Now            time.Time
}

// ComputeCoupons derives the coupon analytics of a bond series: per-coupon
// point-in-time yields, the historical average, the projected annual
// coupon total, and the future cash-flow stream a yield-to-maturity
// solver consumes downstream.
func ComputeCoupons(s *Series, in CouponInputs) *models.CouponMetrics {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	realized := s.Realized(now)

	m := &models.CouponMetrics{
		IsApproximate: in.FloatingCoupon && in.Amortization,
	}

	m.Yields = couponYields(realized, in.PriceAt)

	amounts := make([]float64, len(realized))
	for i, r := range realized {
		amounts[i] = r.Amount
	}
	if len(amounts) > 0 {
		m.AverageAmount = models.Defined(mean(amounts))
	}

	perCoupon := projectedCoupon(realized, in)
	perYear := couponsPerYear(realized, in.CouponsPerYear)
	if perCoupon.Valid && perYear > 0 {
		m.AmountYear = models.Defined(perCoupon.Value * float64(perYear))
	}

	if m.AmountYear.Valid && in.CurrentPrice.Valid && in.CurrentPrice.Value > 0 {
		m.CurrentYield = models.Defined(m.AmountYear.Value / in.CurrentPrice.Value * 100)
	}

	m.FutureCashFlows = futureCashFlows(realized, s.Future(now), perCoupon, perYear, in, now)
	return m
}

func couponYields(realized []models.PaymentRecord, priceAt func(time.Time) models.Metric) []models.CouponYield {
	if len(realized) == 0 {
		return nil
	}
	out := make([]models.CouponYield, len(realized))
	for i, r := range realized {
		y := models.CouponYield{Date: r.PaymentDate, Amount: r.Amount}
		if priceAt != nil {
			if p := priceAt(r.PaymentDate); p.Valid && p.Value > 0 {
				y.Yield = models.Defined(r.Amount / p.Value * 100)
			}
		}
		out[i] = y
	}
	return out
}

// projectedCoupon is the best estimate of one future coupon payment.
// Fixed-rate bonds use the historical average. Floating-rate bonds use
// the most recent realized coupon: the rate resets, and averaging across
// rate regimes is misleading. Amortizing bonds scale by the outstanding
// nominal fraction, the coarse stand-in for a full amortization schedule.
func projectedCoupon(realized []models.PaymentRecord, in CouponInputs) models.Metric {
	if len(realized) == 0 {
		return models.Undefined()
	}

	var base float64
	if in.FloatingCoupon {
		base = realized[len(realized)-1].Amount
	} else {
		amounts := make([]float64, len(realized))
		for i, r := range realized {
			amounts[i] = r.Amount
		}
		base = mean(amounts)
	}

	if in.Amortization && in.InitialNominal > 0 && in.Nominal > 0 {
		base *= in.Nominal / in.InitialNominal
	}
	return models.Defined(base)
}

// couponsPerYear prefers the declared frequency and falls back to the
// observed periodicity when the terms don't carry one.
func couponsPerYear(realized []models.PaymentRecord, declared int) int {
	if declared > 0 {
		return declared
	}
	iv := observedInterval(realized)
	if iv <= 0 {
		return 0
	}
	n := int(daysPerYear/iv + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

// observedInterval is the mean gap in days between consecutive realized
// payments; 0 with fewer than two payments.
func observedInterval(realized []models.PaymentRecord) float64 {
	if len(realized) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(realized)-1)
	for i := 1; i < len(realized); i++ {
		d := realized[i].PaymentDate.Sub(realized[i-1].PaymentDate).Hours() / 24
		if d > 0 {
			gaps = append(gaps, d)
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	return mean(gaps)
}

// futureCashFlows enumerates the payment stream from now to maturity:
// the announced future coupons first, then projected payments at the
// series' observed periodicity beyond the announced horizon, plus the
// nominal redemption. A bond past maturity has no future flows; a bond
// with no coupons left before maturity has a redemption-only entry.
func futureCashFlows(realized, future []models.PaymentRecord, perCoupon models.Metric, perYear int, in CouponInputs, now time.Time) []models.CashFlow {
	if in.MaturityDate.IsZero() || !in.MaturityDate.After(now) {
		return nil
	}

	flows := make([]models.CashFlow, 0, 8)
	var anchor time.Time
	for _, r := range future {
		if r.PaymentDate.After(in.MaturityDate) {
			break
		}
		amount := r.Amount
		if amount <= 0 {
			// announced date whose amount is not set yet
			amount = perCoupon.Or(0)
		}
		if amount > 0 {
			flows = append(flows, models.CashFlow{Date: r.PaymentDate, Amount: amount})
		}
		anchor = r.PaymentDate
	}

	interval := observedInterval(realized)
	if interval <= 0 && perYear > 0 {
		interval = daysPerYear / float64(perYear)
	}
	if interval > 0 && perCoupon.Valid {
		step := time.Duration(interval * 24 * float64(time.Hour))
		next := now.Add(step)
		switch {
		case !anchor.IsZero():
			next = anchor.Add(step)
		case len(realized) > 0:
			next = realized[len(realized)-1].PaymentDate.Add(step)
			for !next.After(now) {
				next = next.Add(step)
			}
		}
		for !next.After(in.MaturityDate) {
			flows = append(flows, models.CashFlow{Date: next, Amount: perCoupon.Value})
			next = next.Add(step)
		}
	}

	// Nominal redemption at maturity, folded into the final coupon when
	// the dates land on the same day.
	if n := len(flows); n > 0 && sameDay(flows[n-1].Date, in.MaturityDate) {
		flows[n-1].Amount += in.Nominal
	} else {
		flows = append(flows, models.CashFlow{Date: in.MaturityDate, Amount: in.Nominal})
	}
	return flows
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
