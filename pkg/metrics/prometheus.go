package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksIngested *prometheus.CounterVec
	ticksDropped  *prometheus.CounterVec
	reconnects    prometheus.Counter
	barsClosed    *prometheus.CounterVec
	signals       *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairpulse_ticks_ingested_total",
				Help: "Total number of accepted ticks",
			},
			[]string{"symbol"},
		),
		ticksDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairpulse_ticks_dropped_total",
				Help: "Total number of ticks dropped before bar construction",
			},
			[]string{"reason", "symbol"},
		),
		reconnects: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pairpulse_stream_reconnects_total",
				Help: "Total number of feed reconnect attempts",
			},
		),
		barsClosed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairpulse_bars_closed_total",
				Help: "Total number of finalized bars",
			},
			[]string{"symbol"},
		),
		signals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairpulse_signal_transitions_total",
				Help: "Total number of signal state transitions",
			},
			[]string{"pair", "signal"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pairpulse_last_price",
				Help: "Last accepted trade price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pairpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick records one accepted tick for a symbol.
func (r *Recorder) RecordTick(symbol string) {
	r.ticksIngested.WithLabelValues(symbol).Inc()
}

// RecordDrop records a dropped tick with its reason (malformed, duplicate,
// out_of_order, ...).
func (r *Recorder) RecordDrop(reason, symbol string) {
	r.ticksDropped.WithLabelValues(reason, symbol).Inc()
}

// RecordReconnect records one feed reconnect attempt.
func (r *Recorder) RecordReconnect() {
	r.reconnects.Inc()
}

// RecordBarClosed records one finalized bar.
func (r *Recorder) RecordBarClosed(symbol string) {
	r.barsClosed.WithLabelValues(symbol).Inc()
}

// RecordSignal records a signal state transition for a pair.
func (r *Recorder) RecordSignal(pair string, signal string) {
	r.signals.WithLabelValues(pair, signal).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
