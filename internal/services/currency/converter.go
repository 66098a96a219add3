package currency

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RateFunc resolves the rate for one unit of from expressed in to as of
// date. ok is false when no rate is available for the pair.
type RateFunc func(ctx context.Context, from, to string, date time.Time) (rate float64, ok bool)

// Converter harmonizes payment amounts into a single base currency using
// a rate table maintained by the caller, with an optional fallback source
// for pairs not in the table. Unsupported pairs pass the amount through
// unchanged; a skewed metric beats a hole in the series.
type Converter struct {
	mu     sync.RWMutex
	rates  map[string]float64 // "usd/rub" -> rate
	lookup RateFunc
}

func NewConverter() *Converter {
	return &Converter{rates: make(map[string]float64)}
}

// SetRateSource installs the fallback rate lookup.
func (c *Converter) SetRateSource(fn RateFunc) {
	c.mu.Lock()
	c.lookup = fn
	c.mu.Unlock()
}

// SetRate installs the rate for one unit of from expressed in to.
func (c *Converter) SetRate(from, to string, rate float64) {
	if rate <= 0 {
		return
	}
	c.mu.Lock()
	c.rates[pairKey(from, to)] = rate
	c.mu.Unlock()
}

// Convert converts amount from one currency to another. Same-currency and
// unknown pairs return the amount unchanged. Explicit table entries win
// over the fallback source.
func (c *Converter) Convert(ctx context.Context, amount float64, from, to string, date time.Time) float64 {
	from = strings.ToLower(from)
	to = strings.ToLower(to)
	if from == "" || to == "" || from == to {
		return amount
	}

	c.mu.RLock()
	lookup := c.lookup
	if r, ok := c.rates[pairKey(from, to)]; ok {
		c.mu.RUnlock()
		return amount * r
	}
	// try the inverse pair
	if r, ok := c.rates[pairKey(to, from)]; ok && r > 0 {
		c.mu.RUnlock()
		return amount / r
	}
	c.mu.RUnlock()

	if lookup != nil {
		if r, ok := lookup(ctx, from, to, date); ok && r > 0 {
			return amount * r
		}
		if r, ok := lookup(ctx, to, from, date); ok && r > 0 {
			return amount / r
		}
	}
	return amount
}

func pairKey(from, to string) string {
	return strings.ToLower(from) + "/" + strings.ToLower(to)
}
