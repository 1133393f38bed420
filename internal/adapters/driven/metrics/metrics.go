// Package metrics exports pipeline activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.RunMetrics = (*Metrics)(nil)

// Metrics records runs, extractions and scheduled fires.
type Metrics struct {
	gatherer prometheus.Gatherer

	runs          *prometheus.CounterVec
	persisted     prometheus.Counter
	runDuration   prometheus.Histogram
	extractedRows prometheus.Histogram
	fires         *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWith(reg, reg)
}

// NewWith registers the collectors on reg and serves them from gatherer.
func NewWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "actharvest_ingest_runs_total",
			Help: "Ingest runs by outcome",
		}, []string{"status"}),
		persisted: f.NewCounter(prometheus.CounterOpts{
			Name: "actharvest_acts_persisted_total",
			Help: "Acts inserted by committed ingests",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "actharvest_ingest_duration_seconds",
			Help:    "Duration of ingest runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~163s
		}),
		extractedRows: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "actharvest_extracted_rows",
			Help:    "Rows returned by one registry extraction",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1 to ~16k
		}),
		fires: f.NewCounterVec(prometheus.CounterOpts{
			Name: "actharvest_job_fires_total",
			Help: "Scheduled job fires by job and outcome",
		}, []string{"job_id", "outcome"}),
	}
}

// ObserveRun implements driven.RunMetrics.
func (m *Metrics) ObserveRun(summary domain.RunSummary) {
	m.runs.WithLabelValues(string(summary.Status)).Inc()
	m.persisted.Add(float64(summary.RecordsPersisted))
	m.runDuration.Observe(summary.DurationSeconds)
}

// ObserveExtraction implements driven.RunMetrics.
func (m *Metrics) ObserveExtraction(rows int) {
	m.extractedRows.Observe(float64(rows))
}

// ObserveFire implements driven.RunMetrics.
func (m *Metrics) ObserveFire(jobID string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.fires.WithLabelValues(jobID, outcome).Inc()
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
