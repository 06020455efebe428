package repository

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultNoop    = "noop"
	resultFailure = "failure"
)

// Metrics exposes Prometheus collectors for coordinator writes. A nil *Metrics records nothing.
type Metrics struct {
	writes   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the repository collectors against registerer, falling back to the
// default registerer when nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_repository_writes_total",
		Help: "Coordinator writes partitioned by entity, operation and result.",
	}, []string{"entity", "op", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_repository_write_duration_seconds",
		Help:    "Duration in seconds of coordinator writes, including the surrounding transaction.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity", "op"})
	registerer.MustRegister(writes, duration)
	return &Metrics{writes: writes, duration: duration}
}

func (m *Metrics) observe(entity, op, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(entity, op, result).Inc()
	m.duration.WithLabelValues(entity, op).Observe(elapsed.Seconds())
}
