package usecase

import (
	"context"

	"YieldPull/internal/domain/models"
	drepo "YieldPull/internal/domain/repository"
	mid "YieldPull/internal/middleware"
	"YieldPull/internal/service/quotes"
)

// PriceCollector consumes the live quote stream and keeps the quote book
// current so CurrentPrice lookups see intraday prices.
type PriceCollector struct {
	stream  drepo.QuoteStream
	book    *quotes.Book
	metrics drepo.Metrics
	pipe    *mid.QuotePipeline
}

// NewPriceCollector creates a new PriceCollector instance.
func NewPriceCollector(stream drepo.QuoteStream, book *quotes.Book, metrics drepo.Metrics, pipe *mid.QuotePipeline) *PriceCollector {
	return &PriceCollector{stream: stream, book: book, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the quote stream is connected.
func (c *PriceCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *PriceCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	qCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, qCh, errCh)
	return nil
}

func (c *PriceCollector) consume(ctx context.Context, qCh <-chan *models.Quote, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok || err != nil {
				if err != nil {
					c.metrics.RecordError("stream")
				}
				if ctx.Err() != nil {
					return
				}
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.metrics.RecordError("stream_reconnect")
				}
				// the old channels are closed after an error
				qCh, errCh = c.stream.Read(ctx)
			}
		case q, ok := <-qCh:
			if !ok || q == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, q)
			} else {
				_ = c.book.Accept(ctx, q)
			}
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *PriceCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
