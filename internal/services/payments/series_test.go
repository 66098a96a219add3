package payments

import (
	"errors"
	"testing"
	"time"

	"YieldPull/internal/domain/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dividend(y int, m time.Month, d int, amount float64) models.PaymentRecord {
	return models.PaymentRecord{
		PaymentDate:    date(y, m, d),
		Amount:         amount,
		Currency:       "rub",
		InstrumentType: models.TypeStock,
	}
}

func TestIngestSortsAndDeduplicates(t *testing.T) {
	s := NewSeries("BBG000TEST01", models.TypeStock)
	batch := []models.PaymentRecord{
		dividend(2023, 7, 10, 25),
		dividend(2023, 1, 10, 20),
		dividend(2023, 7, 10, 25), // exact duplicate
	}
	if err := s.Ingest(batch); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", s.Len())
	}
	recs := s.Records()
	if !recs[0].PaymentDate.Before(recs[1].PaymentDate) {
		t.Fatalf("records not sorted ascending: %v, %v", recs[0].PaymentDate, recs[1].PaymentDate)
	}
}

func TestIngestIdempotent(t *testing.T) {
	s := NewSeries("BBG000TEST01", models.TypeStock)
	batch := []models.PaymentRecord{
		dividend(2022, 1, 10, 10),
		dividend(2022, 7, 10, 12),
	}
	if err := s.Ingest(batch); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if err := s.Ingest(batch); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("re-ingesting the same batch changed the set: len=%d", s.Len())
	}
}

func TestIngestPreservesKnownRecordsOnPartialWindow(t *testing.T) {
	s := NewSeries("BBG000TEST01", models.TypeStock)
	if err := s.Ingest([]models.PaymentRecord{dividend(2021, 3, 1, 5)}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	// Later fetch covers only the recent window.
	if err := s.Ingest([]models.PaymentRecord{dividend(2023, 3, 1, 6)}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("partial refresh dropped history: len=%d", s.Len())
	}
}

func TestIngestRejectsNegativeAmount(t *testing.T) {
	s := NewSeries("BBG000TEST01", models.TypeStock)
	if err := s.Ingest([]models.PaymentRecord{dividend(2023, 3, 1, 4)}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	batch := []models.PaymentRecord{
		dividend(2023, 6, 1, 4),
		dividend(2023, 9, 1, -1),
	}
	err := s.Ingest(batch)
	var ie *IngestionError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IngestionError, got %v", err)
	}
	// All-or-nothing: the valid record of the bad batch must not leak in.
	if s.Len() != 1 {
		t.Fatalf("rejected batch partially merged: len=%d", s.Len())
	}
}

func TestIngestRejectsTypeMismatch(t *testing.T) {
	s := NewSeries("BBG000TEST01", models.TypeBond)
	err := s.Ingest([]models.PaymentRecord{dividend(2023, 3, 1, 4)})
	var ie *IngestionError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IngestionError, got %v", err)
	}
}

func TestClearKeepsNothingButAllowsReingest(t *testing.T) {
	s := NewSeries("BBG000TEST01", models.TypeStock)
	batch := []models.PaymentRecord{
		dividend(2022, 1, 10, 10),
		dividend(2022, 7, 10, 12),
	}
	if err := s.Ingest(batch); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("clear left %d records", s.Len())
	}
	// Round-trip: re-ingesting the identical window restores the set.
	if err := s.Ingest(batch); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("re-ingest after clear: len=%d", s.Len())
	}
}

func TestIsStale(t *testing.T) {
	s := NewSeries("BBG000TEST01", models.TypeStock)
	if !s.IsStale(time.Hour) {
		t.Fatalf("fresh series with no refresh must be stale")
	}
	if err := s.Ingest(nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if s.IsStale(24 * time.Hour) {
		t.Fatalf("just-refreshed series reported stale")
	}
}
