// Package observability wires the Prometheus registry of an import run and
// publishes it to a Pushgateway; a batch job has no scrape endpoint.
package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tphakala/lcbimport/internal/observability/metrics"
)

// Metrics holds all the metric collectors of the importer.
type Metrics struct {
	registry *prometheus.Registry
	Import   *metrics.ImportMetrics
}

// NewMetrics creates a fresh registry with all collectors registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	importMetrics, err := metrics.NewImportMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create import metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Import:   importMetrics,
	}, nil
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the registry to the Pushgateway at gatewayURL under job,
// grouped by user so concurrent imports of different users don't overwrite each other.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job, userID string) error {
	pusher := push.New(gatewayURL, job).Gatherer(m.registry)
	if userID != "" {
		pusher = pusher.Grouping("user_id", userID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
