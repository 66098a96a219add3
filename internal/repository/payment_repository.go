package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"YieldPull/internal/domain/models"
	"YieldPull/internal/domain/repository"
	pkgkafka "YieldPull/pkg/kafka"
)

// ClickHousePaymentStore implements PaymentStore for ClickHouse.
type ClickHousePaymentStore struct {
	db    *sql.DB
	table string
}

// NewClickHousePaymentStore creates ClickHouse payment storage.
func NewClickHousePaymentStore(db *sql.DB, table string) repository.PaymentStore {
	return &ClickHousePaymentStore{db: db, table: table}
}

func (s *ClickHousePaymentStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

// SaveBatch writes one refresh window. ReplacingMergeTree on
// (instrument_id, payment_date, amount) absorbs the re-sent rows.
func (s *ClickHousePaymentStore) SaveBatch(ctx context.Context, instrumentID string, records []models.PaymentRecord) error {
	if len(records) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, r := range records[start:end] {
			if r.PaymentDate.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args,
				instrumentID,
				r.PaymentDate,
				r.Amount,
				r.Currency,
				string(r.InstrumentType),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (instrument_id, payment_date, amount, currency, instrument_type) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHousePaymentStore) Query(ctx context.Context, instrumentID string, typ models.InstrumentType, from, to time.Time) ([]models.PaymentRecord, error) {
	q := fmt.Sprintf("SELECT payment_date, amount, currency, instrument_type FROM %s WHERE instrument_id = ? AND instrument_type = ? AND payment_date >= ? AND payment_date <= ? ORDER BY payment_date ASC", s.table)
	rows, err := s.db.QueryContext(ctx, q, instrumentID, string(typ), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.PaymentRecord
	for rows.Next() {
		var r models.PaymentRecord
		var t string
		if err := rows.Scan(&r.PaymentDate, &r.Amount, &r.Currency, &t); err != nil {
			return nil, err
		}
		r.InstrumentType = models.InstrumentType(t)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *ClickHousePaymentStore) Drop(ctx context.Context, instrumentID string) error {
	q := fmt.Sprintf("ALTER TABLE %s DELETE WHERE instrument_id = ?", s.table)
	_, err := s.db.ExecContext(ctx, q, instrumentID)
	return err
}

func (s *ClickHousePaymentStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHousePaymentStore) Close() error {
	return nil // Managed by pkg
}

// KafkaSnapshotPublisher implements SnapshotPublisher for Kafka.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSnapshotPublisher creates a Kafka snapshot publisher.
func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) repository.SnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, s *models.MetricsSnapshot) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.InstrumentID), s)
}

func (p *KafkaSnapshotPublisher) PublishBatch(ctx context.Context, snaps []*models.MetricsSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(snaps))
	for i, s := range snaps {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(s.InstrumentID),
			Value: s,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
