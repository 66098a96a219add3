package models

import (
	"encoding/json"
	"math"
)

// Metric is a computed scalar that may be undefined when the input data is
// insufficient (missing price, too little history). Undefined is distinct
// from a real 0.0: "no dividends paid" is a valid zero, "fewer than two
// payments" is not a value at all.
type Metric struct {
	Value float64
	Valid bool
}

// Defined wraps a concrete value.
func Defined(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// Undefined returns the undefined sentinel.
func Undefined() Metric {
	return Metric{}
}

// Or returns the metric value or def when undefined.
func (m Metric) Or(def float64) float64 {
	if !m.Valid {
		return def
	}
	return m.Value
}

// MarshalJSON encodes undefined metrics as null so consumers can tell
// "no value" apart from zero.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid || math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON decodes null as undefined.
func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Metric{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Metric{Value: v, Valid: true}
	return nil
}
