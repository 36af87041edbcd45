package prometheus

import (
	"github.com/aescanero/challenge/internal/application/workers"
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names and label values exported for the worker pool
const (
	PoolThreadsMetric = "managed_async_executor_threads"
	PoolTasksMetric   = "managed_async_executor_tasks"
	PoolQueueMetric   = "managed_async_executor_queue"

	TypeCore      = "core"
	TypeMax       = "max"
	TypeCurrent   = "current"
	TypeActive    = "active"
	TypeCreated   = "total_created"
	TypeCompleted = "completed"
)

// SnapshotSource provides pool counters on demand
type SnapshotSource interface {
	Snapshot() workers.Snapshot
}

// PoolCollector exports pool counters as gauges. Nothing is pushed: the
// pool is sampled each time the registry is gathered, so values are only
// as fresh as the scrape.
type PoolCollector struct {
	source  SnapshotSource
	threads *prometheus.Desc
	tasks   *prometheus.Desc
	queue   *prometheus.Desc
}

// NewPoolCollector creates a collector reading from source
func NewPoolCollector(source SnapshotSource) *PoolCollector {
	return &PoolCollector{
		source: source,
		threads: prometheus.NewDesc(
			PoolThreadsMetric,
			"Worker counts of the managed async executor by type",
			[]string{"type"}, nil,
		),
		tasks: prometheus.NewDesc(
			PoolTasksMetric,
			"Task counts of the managed async executor by type",
			[]string{"type"}, nil,
		),
		queue: prometheus.NewDesc(
			PoolQueueMetric,
			"Number of tasks waiting in the managed async executor queue",
			nil, nil,
		),
	}
}

// RegisterPoolCollector registers a collector for source on reg
func RegisterPoolCollector(reg prometheus.Registerer, source SnapshotSource) (*PoolCollector, error) {
	c := NewPoolCollector(source)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Describe implements prometheus.Collector
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.threads
	ch <- c.tasks
	ch <- c.queue
}

// Collect implements prometheus.Collector
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Snapshot()

	ch <- gauge(c.threads, float64(snap.CoreSize), TypeCore)
	ch <- gauge(c.threads, float64(snap.MaxSize), TypeMax)
	ch <- gauge(c.threads, float64(snap.PoolSize), TypeCurrent)
	ch <- gauge(c.threads, float64(snap.ActiveCount), TypeActive)

	ch <- gauge(c.tasks, float64(snap.TaskCount), TypeCreated)
	ch <- gauge(c.tasks, float64(snap.CompletedTaskCount), TypeCompleted)

	ch <- gauge(c.queue, float64(snap.QueueLength))
}

func gauge(desc *prometheus.Desc, value float64, labels ...string) prometheus.Metric {
	return prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, value, labels...)
}
