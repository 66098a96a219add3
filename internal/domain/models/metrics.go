package models

import "time"

// CashFlow is one projected future payment, input to a downstream
// yield-to-maturity solver.
type CashFlow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// CouponYield is the point-in-time yield of a single realized coupon.
// Yield is undefined when no price could be resolved for the payment date.
type CouponYield struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
	Yield  Metric    `json:"yield"`
}

// CouponMetrics is the derived analytics of a bond's coupon series.
type CouponMetrics struct {
	Yields        []CouponYield `json:"yields,omitempty"`
	AverageAmount Metric        `json:"average_amount"`
	AmountYear    Metric        `json:"amount_year"`
	CurrentYield  Metric        `json:"current_yield"`
	// IsApproximate is set when the bond is both floating-rate and
	// amortizing; two compounding uncertainty sources make the
	// projection unreliable.
	IsApproximate   bool       `json:"is_approximate"`
	FutureCashFlows []CashFlow `json:"future_cash_flows,omitempty"`
}

// DividendMetrics is the derived analytics of a stock/ETF dividend series.
type DividendMetrics struct {
	PayoutFrequency    Metric `json:"payout_frequency"`
	DividendStability  Metric `json:"dividend_stability"`
	DividendCAGR3Y     Metric `json:"dividend_cagr_3y"`
	TrailingYield      Metric `json:"trailing_yield"`
	ForwardYield       Metric `json:"forward_yield"`
	YieldPlusGrowth    Metric `json:"yield_plus_growth"`
	RiskAdjYield       Metric `json:"risk_adj_yield"`
	LastAnnualDividend float64 `json:"last_annual_dividend"`
	// NextPayment is the nearest announced future payment if the
	// provider exposes one.
	NextPayment *PaymentRecord `json:"next_payment,omitempty"`
}

// MetricsSnapshot is the flattened per-instrument result published to the
// snapshot backend after each refresh cycle.
type MetricsSnapshot struct {
	InstrumentID string           `json:"instrument_id"`
	Ticker       string           `json:"ticker"`
	Type         InstrumentType   `json:"instrument_type"`
	ComputedAt   time.Time        `json:"computed_at"`
	Coupons      *CouponMetrics   `json:"coupons,omitempty"`
	Dividends    *DividendMetrics `json:"dividends,omitempty"`
}

// Candle is one daily OHLCV record read from the externally maintained
// candle storage; Volatility is the precomputed stat column.
type Candle struct {
	Bucket     time.Time
	Symbol     string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	Volatility float64
}
