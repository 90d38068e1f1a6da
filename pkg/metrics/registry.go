// Package metrics provides Prometheus metrics collection for Larder
// components.
//
// All metrics are optional - if not initialized, components skip
// instrumentation entirely. Larder runs as a short-lived command, so metrics
// are exported by writing the registry to a node_exporter textfile when the
// command finishes rather than by serving an HTTP endpoint.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	backend = instrument.Wrap(backend, metrics.NewStorageMetrics())
//	registry.SetMetrics(metrics.NewTaskMetrics())
//
//	// Export before exiting
//	metrics.WriteTextfile("/var/lib/node_exporter/larder.prom")
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "larder"

var (
	// registry is the global Prometheus registry for all Larder metrics
	// Protected by registryOnce for write-once, read-many pattern
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// This must be called before creating any metrics instances. It's safe to call
// multiple times - subsequent calls are ignored.
//
// If not called, GetRegistry() will return nil and all metrics constructors
// will return nil, which components treat as "no metrics".
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry.
//
// Returns nil if InitRegistry() has not been called, indicating metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if metrics collection is enabled.
//
// Metrics are enabled if InitRegistry() has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// WriteTextfile writes every metric in the global registry to filename in
// the Prometheus text exposition format.
//
// The file is written to a temporary name and renamed into place, so a
// collector never reads a partial file.
//
// Returns an error if metrics are disabled or the file cannot be written.
func WriteTextfile(filename string) error {
	reg := GetRegistry()
	if reg == nil {
		return fmt.Errorf("metrics are not enabled")
	}
	if err := prometheus.WriteToTextfile(filename, reg); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", filename, err)
	}
	return nil
}
