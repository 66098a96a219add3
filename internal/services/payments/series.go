package payments

import (
	"fmt"
	"sort"
	"time"

	"YieldPull/internal/domain/models"
)

// IngestionError reports an invalid batch: a negative amount or a record
// whose instrument type does not match the series. The batch is rejected
// as a whole; nothing is merged.
type IngestionError struct {
	InstrumentID string
	Reason       string
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s: %s", e.InstrumentID, e.Reason)
}

// Series is the ordered payment history of one instrument. It is the
// transient working set of the metrics engine: populated by Ingest,
// consumed by a compute pass, then released with Clear. Only computed
// scalars outlive it.
//
// A Series is not safe for concurrent use; the refresher sequences
// ingest and compute per instrument.
type Series struct {
	instrumentID string
	typ          models.InstrumentType

	records     []models.PaymentRecord
	lastRefresh time.Time
}

// NewSeries creates an empty series for one instrument.
func NewSeries(instrumentID string, typ models.InstrumentType) *Series {
	return &Series{instrumentID: instrumentID, typ: typ}
}

// InstrumentID returns the owning instrument id.
func (s *Series) InstrumentID() string { return s.instrumentID }

// Type returns the series' instrument type.
func (s *Series) Type() models.InstrumentType { return s.typ }

// Ingest merges a freshly fetched batch into the series. Previously known
// records absent from the batch are preserved (partial-window refreshes),
// duplicates on (date, amount) collapse, and the result is re-sorted
// ascending by payment date. The whole batch is validated before any
// merge, so a rejected batch leaves the series untouched.
func (s *Series) Ingest(batch []models.PaymentRecord) error {
	for _, r := range batch {
		if r.Amount < 0 {
			return &IngestionError{
				InstrumentID: s.instrumentID,
				Reason:       fmt.Sprintf("negative amount %.6f at %s", r.Amount, r.PaymentDate.Format("2006-01-02")),
			}
		}
		if r.InstrumentType != s.typ {
			return &IngestionError{
				InstrumentID: s.instrumentID,
				Reason:       fmt.Sprintf("instrument type %s does not match series type %s", r.InstrumentType, s.typ),
			}
		}
	}

	seen := make(map[models.PaymentKey]struct{}, len(s.records)+len(batch))
	merged := make([]models.PaymentRecord, 0, len(s.records)+len(batch))
	for _, r := range s.records {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range batch {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		merged = append(merged, r)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].PaymentDate.Before(merged[j].PaymentDate)
	})

	s.records = merged
	s.lastRefresh = time.Now().UTC()
	return nil
}

// Clear discards the raw buffer. Already computed metrics are unaffected.
// Calling a compute pass again without a prior Ingest yields stale
// results; that sequencing is the caller's responsibility.
func (s *Series) Clear() {
	s.records = nil
}

// Records returns the raw buffer, valid only between Ingest and Clear.
func (s *Series) Records() []models.PaymentRecord { return s.records }

// Len returns the number of buffered records.
func (s *Series) Len() int { return len(s.records) }

// LastRefresh returns the time of the last successful ingestion.
func (s *Series) LastRefresh() time.Time { return s.lastRefresh }

// IsStale reports whether the series has not been refreshed within
// maxAge. Pure query; the refresh cadence itself is caller policy.
func (s *Series) IsStale(maxAge time.Duration) bool {
	if s.lastRefresh.IsZero() {
		return true
	}
	return time.Since(s.lastRefresh) > maxAge
}

// Realized returns the records paid at or before now, in date order.
func (s *Series) Realized(now time.Time) []models.PaymentRecord {
	out := make([]models.PaymentRecord, 0, len(s.records))
	for _, r := range s.records {
		if r.Realized(now) {
			out = append(out, r)
		}
	}
	return out
}

// Future returns the records dated strictly after now, in date order.
func (s *Series) Future(now time.Time) []models.PaymentRecord {
	out := make([]models.PaymentRecord, 0)
	for _, r := range s.records {
		if !r.Realized(now) {
			out = append(out, r)
		}
	}
	return out
}
