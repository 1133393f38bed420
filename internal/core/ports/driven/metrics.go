package driven

import "github.com/custodia-labs/actharvest/internal/core/domain"

// RunMetrics observes pipeline activity.
type RunMetrics interface {
	// ObserveRun records the outcome of one ingest.
	ObserveRun(summary domain.RunSummary)

	// ObserveExtraction records how many rows one extraction produced.
	ObserveExtraction(rows int)

	// ObserveFire records one scheduled job firing.
	ObserveFire(jobID string, success bool)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

// ObserveRun implements RunMetrics.
func (NopMetrics) ObserveRun(domain.RunSummary) {}

// ObserveExtraction implements RunMetrics.
func (NopMetrics) ObserveExtraction(int) {}

// ObserveFire implements RunMetrics.
func (NopMetrics) ObserveFire(string, bool) {}
