// Package jobmetrics holds the prometheus collectors of the background jobs.
package jobmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records job runs and the findings of the last integrity scan.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	anomalies   *prometheus.CounterVec
	open        *prometheus.GaugeVec
}

// NewMetrics registers the collectors. A nil registerer means prometheus.DefaultRegisterer and
// must then only be used once per process.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_jobs_total",
			Help: "Job runs by task type and result.",
		}, []string{"job", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_job_duration_seconds",
			Help:    "Job run duration by task type.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run by task type.",
		}, []string{"job"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_integrity_anomalies_total",
			Help: "Anomalies reported by integrity scans, by kind.",
		}, []string{"kind"}),
		open: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_integrity_open_anomalies",
			Help: "Anomalies found by the most recent integrity scan, by kind.",
		}, []string{"kind"}),
	}
	registerer.MustRegister(m.runs, m.duration, m.lastSuccess, m.anomalies, m.open)
	return m
}

// ObserveRun records one run of job that started at start.
func (m *Metrics) ObserveRun(job string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	} else {
		m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
	}
	m.runs.WithLabelValues(job, result).Inc()
	m.duration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

// RecordScan stores the per-kind findings of a completed scan. Kinds missing from counts drop
// to zero on the open gauge.
func (m *Metrics) RecordScan(counts map[string]int) {
	if m == nil {
		return
	}
	m.open.Reset()
	for kind, n := range counts {
		m.open.WithLabelValues(kind).Set(float64(n))
		if n > 0 {
			m.anomalies.WithLabelValues(kind).Add(float64(n))
		}
	}
}
