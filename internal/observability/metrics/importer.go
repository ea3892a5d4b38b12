package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Status labels used with RecordOperation.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// ImportMetrics contains the Prometheus metrics of the import pipeline.
type ImportMetrics struct {
	Operations     *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	Errors         *prometheus.CounterVec
	RecipesFound   prometheus.Gauge
	RecipesSaved   prometheus.Gauge
	LabelsSaved    prometheus.Gauge
	LastRunSuccess prometheus.Gauge
	registry       *prometheus.Registry
}

// NewImportMetrics creates and registers the import metrics on registry.
func NewImportMetrics(registry *prometheus.Registry) (*ImportMetrics, error) {
	m := &ImportMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register import metrics: %w", err)
	}
	return m, nil
}

func (m *ImportMetrics) initMetrics() {
	m.Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lcbimport_operations_total",
		Help: "Total number of import operations by outcome.",
	}, []string{"operation", "status"})

	m.StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lcbimport_operation_duration_seconds",
		Help:    "Duration of import stages and operations in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
	}, []string{"operation"})

	m.Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lcbimport_errors_total",
		Help: "Total number of import errors by operation and type.",
	}, []string{"operation", "error_type"})

	m.RecipesFound = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lcbimport_recipes_found",
		Help: "Legacy recipes that passed the import filter in the last run.",
	})

	m.RecipesSaved = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lcbimport_recipes_saved",
		Help: "Recipes written to the target store in the last run.",
	})

	m.LabelsSaved = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lcbimport_labels_saved",
		Help: "Distinct labels linked in the last run.",
	})

	m.LastRunSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lcbimport_last_run_success",
		Help: "1 if the last import run completed, 0 if it failed.",
	})
}

// RecordOperation implements Recorder.
func (m *ImportMetrics) RecordOperation(operation, status string) {
	m.Operations.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *ImportMetrics) RecordDuration(operation string, seconds float64) {
	m.StageDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *ImportMetrics) RecordError(operation, errorType string) {
	m.Errors.WithLabelValues(operation, errorType).Inc()
}

// SetRunResult records the outcome counters of a finished run.
func (m *ImportMetrics) SetRunResult(success bool, found, saved, labels int) {
	m.RecipesFound.Set(float64(found))
	m.RecipesSaved.Set(float64(saved))
	m.LabelsSaved.Set(float64(labels))
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *ImportMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Operations.Collect(ch)
	m.StageDuration.Collect(ch)
	m.Errors.Collect(ch)
	ch <- m.RecipesFound
	ch <- m.RecipesSaved
	ch <- m.LabelsSaved
	ch <- m.LastRunSuccess
}

// Describe implements the prometheus.Collector interface.
func (m *ImportMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Operations.Describe(ch)
	m.StageDuration.Describe(ch)
	m.Errors.Describe(ch)
	ch <- m.RecipesFound.Desc()
	ch <- m.RecipesSaved.Desc()
	ch <- m.LabelsSaved.Desc()
	ch <- m.LastRunSuccess.Desc()
}
