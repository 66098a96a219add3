package quotes

import (
	"context"
	"sync"
	"time"

	"YieldPull/internal/domain/models"
)

type entry struct {
	quote models.Quote
	exp   time.Time
}

// Book holds the freshest last-price quote per instrument with a TTL.
// It is the live overlay in front of the candle storage: a quote younger
// than the TTL wins over yesterday's close.
type Book struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
}

func NewBook(ttl time.Duration) *Book {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Book{ttl: ttl, m: make(map[string]entry)}
}

// Accept stores a quote; implements the pipeline sink.
func (b *Book) Accept(_ context.Context, q *models.Quote) error {
	if q == nil || q.InstrumentID == "" {
		return nil
	}
	b.mu.Lock()
	b.m[q.InstrumentID] = entry{quote: *q, exp: time.Now().Add(b.ttl)}
	b.mu.Unlock()
	return nil
}

// Last returns the live price for an instrument, undefined once expired.
func (b *Book) Last(instrumentID string) models.Metric {
	b.mu.RLock()
	e, ok := b.m[instrumentID]
	b.mu.RUnlock()
	if !ok {
		return models.Undefined()
	}
	if time.Now().After(e.exp) {
		b.mu.Lock()
		delete(b.m, instrumentID)
		b.mu.Unlock()
		return models.Undefined()
	}
	return models.Defined(e.quote.Price)
}

// Len returns the number of live entries, expired ones included until read.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.m)
}
