package quotes

import (
	"context"
	"testing"
	"time"

	"YieldPull/internal/domain/models"
)

func TestBookAcceptAndLast(t *testing.T) {
	b := NewBook(time.Minute)
	err := b.Accept(context.Background(), &models.Quote{
		InstrumentID: "BBG000TEST01",
		Timestamp:    time.Now().Unix(),
		Price:        123.45,
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	p := b.Last("BBG000TEST01")
	if !p.Valid || p.Value != 123.45 {
		t.Fatalf("last = %+v, want 123.45", p)
	}
}

func TestBookUnknownInstrument(t *testing.T) {
	b := NewBook(time.Minute)
	if p := b.Last("BBG000NOPE00"); p.Valid {
		t.Fatalf("unknown instrument returned %v", p.Value)
	}
}

func TestBookExpiry(t *testing.T) {
	b := NewBook(10 * time.Millisecond)
	_ = b.Accept(context.Background(), &models.Quote{
		InstrumentID: "BBG000TEST01",
		Timestamp:    time.Now().Unix(),
		Price:        10,
	})
	time.Sleep(25 * time.Millisecond)
	if p := b.Last("BBG000TEST01"); p.Valid {
		t.Fatalf("expired quote still served: %v", p.Value)
	}
}
