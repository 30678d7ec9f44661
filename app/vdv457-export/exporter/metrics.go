package exporter

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects export statistics in its own registry
type Metrics struct {
	reg *prometheus.Registry

	TripsProcessed       *prometheus.CounterVec // status label: exported|dubious|failed
	PlaceholdersAdded    prometheus.Counter
	RepairedViolations   prometheus.Counter
	UnresolvedViolations prometheus.Counter
	BatchDuration        prometheus.Histogram
	LastBatchFinished    prometheus.Gauge
}

// NewMetrics creates Metrics and registers all collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		TripsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vdv457_export_trips_total",
			Help: "Trips processed by export status.",
		}, []string{"status"}),
		PlaceholdersAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vdv457_export_placeholders_total",
			Help: "Run through placeholders added for stops without counting data.",
		}),
		RepairedViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vdv457_export_temporal_violations_repaired_total",
			Help: "Temporal ordering violations repaired by moving an event.",
		}),
		UnresolvedViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vdv457_export_temporal_violations_unresolved_total",
			Help: "Temporal ordering violations left unresolved.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vdv457_export_batch_duration_seconds",
			Help:    "Duration of one export batch.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}),
		LastBatchFinished: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vdv457_export_last_batch_finished_timestamp_seconds",
			Help: "Unix time the last export batch finished.",
		}),
	}
	reg.MustRegister(
		m.TripsProcessed,
		m.PlaceholdersAdded,
		m.RepairedViolations,
		m.UnresolvedViolations,
		m.BatchDuration,
		m.LastBatchFinished,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// observeOutcome counts the trip and the repairs made to it
func (m *Metrics) observeOutcome(outcome TripOutcome) {
	m.TripsProcessed.WithLabelValues(string(outcome.Status)).Inc()
	m.PlaceholdersAdded.Add(float64(outcome.Placeholders))
	m.RepairedViolations.Add(float64(outcome.RepairedViolations))
	m.UnresolvedViolations.Add(float64(outcome.UnresolvedViolations))
}

// observeReport records duration and completion time of a batch
func (m *Metrics) observeReport(report *BatchReport) {
	m.BatchDuration.Observe(report.Finished.Sub(report.Started).Seconds())
	m.LastBatchFinished.Set(float64(report.Finished.Unix()))
}
