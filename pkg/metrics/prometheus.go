package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	refreshes    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	forwardYield *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		refreshes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yieldpull_refreshes_total",
				Help: "Total number of instrument refresh cycles by result",
			},
			[]string{"instrument_type", "result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yieldpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		forwardYield: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "yieldpull_forward_yield_percent",
				Help: "Last computed forward yield for a ticker",
			},
			[]string{"ticker"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yieldpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRefresh records the outcome of one refresh cycle.
func (r *Recorder) RecordRefresh(instrumentType, result string) {
	r.refreshes.WithLabelValues(instrumentType, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordForwardYield records the last computed forward yield for a ticker.
func (r *Recorder) RecordForwardYield(ticker string, yield float64) {
	r.forwardYield.WithLabelValues(ticker).Set(yield)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
