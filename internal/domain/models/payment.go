package models

import (
	"fmt"
	"time"

	"YieldPull/pkg/util"
)

// InstrumentType discriminates the payment semantics of an instrument:
// bonds pay coupons, stocks and ETFs pay dividends.
type InstrumentType string

const (
	TypeBond  InstrumentType = "bond"
	TypeStock InstrumentType = "stock"
	TypeETF   InstrumentType = "etf"
)

// ParseInstrumentType converts a raw string to a known instrument type.
func ParseInstrumentType(s string) (InstrumentType, error) {
	switch InstrumentType(s) {
	case TypeBond, TypeStock, TypeETF:
		return InstrumentType(s), nil
	default:
		return "", fmt.Errorf("unknown instrument type: %q", s)
	}
}

// IsDividendPaying reports whether the type uses dividend metrics.
func (t InstrumentType) IsDividendPaying() bool {
	return t == TypeStock || t == TypeETF
}

// PaymentRecord is one cash-flow event: a coupon or a dividend.
// Records are immutable values; a correction from upstream arrives as a
// new record, never as a mutation.
type PaymentRecord struct {
	PaymentDate    time.Time      `json:"payment_date"`
	Amount         float64        `json:"amount"`
	Currency       string         `json:"currency"`
	InstrumentType InstrumentType `json:"instrument_type"`
}

// Realized reports whether the payment has already occurred as of now.
func (r PaymentRecord) Realized(now time.Time) bool {
	return !r.PaymentDate.After(now)
}

// Key identifies a record for deduplication. Upstream occasionally resends
// the same payment with a refreshed update_time; (date, amount) is the
// stable identity.
func (r PaymentRecord) Key() PaymentKey {
	return PaymentKey{Date: util.TruncateToDay(r.PaymentDate).Unix(), Amount: r.Amount}
}

// PaymentKey is the dedup identity of a PaymentRecord.
type PaymentKey struct {
	Date   int64
	Amount float64
}
