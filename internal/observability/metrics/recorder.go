// Package metrics provides Prometheus metrics for import runs.
package metrics

// Recorder defines a minimal interface for recording metrics, so pipeline
// stages depend on an abstraction instead of concrete collectors.
type Recorder interface {
	// RecordOperation records an operation with its status, e.g. ("image_upload", "success").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	RecordError(operation, errorType string)
}

// NopRecorder discards all metrics.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string) {}
