package metrics

import (
	"sync"
	"time"

	"github.com/marmos91/larder/pkg/storage/instrument"
	"github.com/marmos91/larder/pkg/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// taskMetrics is the Prometheus implementation of task.Metrics.
type taskMetrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

var (
	taskOnce     sync.Once
	taskInstance *taskMetrics
)

// NewTaskMetrics returns the Prometheus-backed task.Metrics for the global
// registry, or nil if metrics are not enabled.
func NewTaskMetrics() task.Metrics {
	if !IsEnabled() {
		return nil
	}

	taskOnce.Do(func() {
		taskInstance = newTaskMetrics(GetRegistry())
	})
	return taskInstance
}

func newTaskMetrics(reg prometheus.Registerer) *taskMetrics {
	return &taskMetrics{
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "task_runs_total",
				Help:      "Total number of task runs by task and status",
			},
			[]string{"task", "status"},
		),
		runDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "task_duration_seconds",
				Help:      "Duration of task runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"task"},
		),
		lastSuccess: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "task_last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run of each task",
			},
			[]string{"task"},
		),
	}
}

func (m *taskMetrics) ObserveTask(name string, duration time.Duration, err error) {
	m.runsTotal.WithLabelValues(name, instrument.Outcome(err)).Inc()
	m.runDuration.WithLabelValues(name).Observe(duration.Seconds())
	if err == nil {
		m.lastSuccess.WithLabelValues(name).SetToCurrentTime()
	}
}

var _ task.Metrics = (*taskMetrics)(nil)
