package metrics

import (
	"sync"
	"time"

	"github.com/marmos91/larder/pkg/storage/instrument"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storageMetrics is the Prometheus implementation of instrument.Metrics.
//
// This implementation collects metrics about backend operations including:
//   - Operation counts by outcome
//   - Operation latency
//   - Bytes stored and retrieved
type storageMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTotal        *prometheus.CounterVec
}

var (
	storageOnce     sync.Once
	storageInstance *storageMetrics
)

// NewStorageMetrics returns the Prometheus-backed instrument.Metrics for the
// global registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes instrument.Wrap return the backend unwrapped. Repeated calls share
// one set of collectors.
func NewStorageMetrics() instrument.Metrics {
	if !IsEnabled() {
		return nil
	}

	storageOnce.Do(func() {
		storageInstance = newStorageMetrics(GetRegistry())
	})
	return storageInstance
}

func newStorageMetrics(reg prometheus.Registerer) *storageMetrics {
	return &storageMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations by operation type and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "storage_operation_duration_seconds",
				Help:      "Duration of storage operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
					5.0,    // 5s
				},
			},
			[]string{"operation"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "storage_bytes_total",
				Help:      "Total bytes of content stored or retrieved",
			},
			[]string{"operation"},
		),
	}
}

func (m *storageMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(operation, instrument.Outcome(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *storageMetrics) RecordBytes(operation string, bytes int) {
	m.bytesTotal.WithLabelValues(operation).Add(float64(bytes))
}

var _ instrument.Metrics = (*storageMetrics)(nil)
