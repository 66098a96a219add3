package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMetricJSONNullRoundTrip(t *testing.T) {
	b, err := json.Marshal(Undefined())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "null" {
		t.Fatalf("undefined marshals to %s, want null", b)
	}

	var m Metric
	if err := json.Unmarshal([]byte("null"), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Valid {
		t.Fatalf("null decoded as defined: %+v", m)
	}

	if err := json.Unmarshal([]byte("4.2"), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !m.Valid || m.Value != 4.2 {
		t.Fatalf("got %+v, want defined 4.2", m)
	}
}

func TestMetricOr(t *testing.T) {
	if got := Undefined().Or(-1); got != -1 {
		t.Fatalf("Or on undefined = %v", got)
	}
	if got := Defined(3).Or(-1); got != 3 {
		t.Fatalf("Or on defined = %v", got)
	}
}

func TestPaymentKeyIgnoresTimeOfDay(t *testing.T) {
	a := PaymentRecord{PaymentDate: time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC), Amount: 10}
	b := PaymentRecord{PaymentDate: time.Date(2024, 5, 1, 21, 30, 0, 0, time.UTC), Amount: 10}
	if a.Key() != b.Key() {
		t.Fatalf("same day, same amount must share a key")
	}
	c := PaymentRecord{PaymentDate: a.PaymentDate, Amount: 11}
	if a.Key() == c.Key() {
		t.Fatalf("different amounts must not collide")
	}
}

func TestDaysToMaturity(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	i := &Instrument{Type: TypeBond, Bond: &BondTerms{MaturityDate: now.AddDate(0, 0, 90)}}
	if got := i.DaysToMaturity(now); got != 90 {
		t.Fatalf("days to maturity = %d, want 90", got)
	}
	if got := (&Instrument{Type: TypeStock}).DaysToMaturity(now); got != 0 {
		t.Fatalf("non-bond must report 0, got %d", got)
	}
}
