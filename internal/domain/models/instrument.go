package models

import "time"

// BondTerms carries the static bond parameters the coupon engine needs.
// Nominal is the current outstanding nominal; InitialNominal the nominal
// at placement (they differ for amortizing bonds).
type BondTerms struct {
	Nominal         float64   `json:"nominal"`
	InitialNominal  float64   `json:"initial_nominal"`
	NominalCurrency string    `json:"nominal_currency"`
	CouponsPerYear  int       `json:"coupon_quantity_per_year"`
	MaturityDate    time.Time `json:"maturity_date"`
	FloatingCoupon  bool      `json:"floating_coupon_flag"`
	Amortization    bool      `json:"amortization_flag"`
}

// Instrument is one tracked security plus its durable computed metrics.
// The raw payment series is transient and owned by the refresher; only
// the scalar results live here between refresh cycles.
type Instrument struct {
	ID       string         `json:"id"` // provider instrument id (FIGI)
	Ticker   string         `json:"ticker"`
	Name     string         `json:"name,omitempty"`
	Type     InstrumentType `json:"instrument_type"`
	Currency string         `json:"currency"`
	Bond     *BondTerms     `json:"bond,omitempty"` // nil unless Type == TypeBond

	Coupons   *CouponMetrics   `json:"coupons,omitempty"`
	Dividends *DividendMetrics `json:"dividends,omitempty"`

	LastComputed time.Time `json:"last_computed,omitempty"`
}

// DaysToMaturity returns the whole days until bond maturity, negative if
// the bond has already matured. Zero-value terms yield zero.
func (i *Instrument) DaysToMaturity(now time.Time) int {
	if i.Bond == nil || i.Bond.MaturityDate.IsZero() {
		return 0
	}
	return int(i.Bond.MaturityDate.Sub(now).Hours() / 24)
}
