package currency

import (
	"context"
	"testing"
	"time"
)

func TestConvertSameCurrency(t *testing.T) {
	c := NewConverter()
	got := c.Convert(context.Background(), 100, "rub", "rub", time.Now())
	if got != 100 {
		t.Fatalf("same-currency convert changed the amount: %v", got)
	}
}

func TestConvertKnownPair(t *testing.T) {
	c := NewConverter()
	c.SetRate("usd", "rub", 90)
	got := c.Convert(context.Background(), 2, "usd", "rub", time.Now())
	if got != 180 {
		t.Fatalf("usd->rub = %v, want 180", got)
	}
}

func TestConvertInversePair(t *testing.T) {
	c := NewConverter()
	c.SetRate("usd", "rub", 90)
	got := c.Convert(context.Background(), 180, "rub", "usd", time.Now())
	if got != 2 {
		t.Fatalf("rub->usd via inverse = %v, want 2", got)
	}
}

func TestConvertUnknownPairPassesThrough(t *testing.T) {
	c := NewConverter()
	got := c.Convert(context.Background(), 50, "hkd", "rub", time.Now())
	if got != 50 {
		t.Fatalf("unknown pair must pass through, got %v", got)
	}
}

func TestConvertFallsBackToRateSource(t *testing.T) {
	c := NewConverter()
	c.SetRateSource(func(_ context.Context, from, to string, _ time.Time) (float64, bool) {
		if from == "usd" && to == "rub" {
			return 90, true
		}
		return 0, false
	})

	if got := c.Convert(context.Background(), 2, "usd", "rub", time.Now()); got != 180 {
		t.Fatalf("source-backed usd->rub = %v, want 180", got)
	}
	// inverse direction through the same source
	if got := c.Convert(context.Background(), 180, "rub", "usd", time.Now()); got != 2 {
		t.Fatalf("source-backed rub->usd = %v, want 2", got)
	}

	// explicit table entries win over the source
	c.SetRate("usd", "rub", 100)
	if got := c.Convert(context.Background(), 1, "usd", "rub", time.Now()); got != 100 {
		t.Fatalf("table must override the source, got %v", got)
	}
}

func TestSetRateIgnoresNonPositive(t *testing.T) {
	c := NewConverter()
	c.SetRate("usd", "rub", 0)
	got := c.Convert(context.Background(), 10, "usd", "rub", time.Now())
	if got != 10 {
		t.Fatalf("zero rate must not be installed, got %v", got)
	}
}
