// Package metric exports arena metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, err := metric.NewPrometheusCollector(reg, "players")
//	arena, err := genarena.New[Player](genarena.WithMetricsCollector(mc))
package metric

import (
	"errors"
	"time"

	"github.com/hupe1980/genarena"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "genarena"

// PrometheusCollector implements genarena.MetricsCollector with Prometheus
// counters and histograms. Every series carries an "arena" label so several
// arenas can share one registry.
type PrometheusCollector struct {
	opLatency     *prometheus.HistogramVec
	borrows       *prometheus.CounterVec
	snapshotBytes prometheus.Histogram
	restoredSlots prometheus.Counter
}

var _ genarena.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its series on reg.
func NewPrometheusCollector(reg prometheus.Registerer, arena string) (*PrometheusCollector, error) {
	labels := prometheus.Labels{"arena": arena}
	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "operation_latency_seconds",
			Help:        "Latency of arena operations",
			Buckets:     prometheus.ExponentialBuckets(1e-7, 4, 12),
			ConstLabels: labels,
		}, []string{"op", "status"}),
		borrows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "borrows_total",
			Help:        "Borrow attempts by mode and outcome",
			ConstLabels: labels,
		}, []string{"mode", "status"}),
		snapshotBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "snapshot_size_bytes",
			Help:        "Size of written snapshots",
			Buckets:     prometheus.ExponentialBuckets(1024, 4, 10),
			ConstLabels: labels,
		}),
		restoredSlots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "restored_slots_total",
			Help:        "Slots read by successful restores",
			ConstLabels: labels,
		}),
	}

	for _, col := range []prometheus.Collector{c.opLatency, c.borrows, c.snapshotBytes, c.restoredSlots} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, genarena.ErrStaleHandle):
		return "stale"
	case errors.Is(err, genarena.ErrBorrowConflict):
		return "conflict"
	case errors.Is(err, genarena.ErrOutOfMemory):
		return "oom"
	default:
		return "error"
	}
}

// RecordInsert implements genarena.MetricsCollector.
func (c *PrometheusCollector) RecordInsert(d time.Duration, err error) {
	c.opLatency.WithLabelValues("insert", status(err)).Observe(d.Seconds())
}

// RecordFree implements genarena.MetricsCollector.
func (c *PrometheusCollector) RecordFree(d time.Duration, err error) {
	c.opLatency.WithLabelValues("free", status(err)).Observe(d.Seconds())
}

// RecordBorrow implements genarena.MetricsCollector.
func (c *PrometheusCollector) RecordBorrow(mode genarena.BorrowMode, err error) {
	c.borrows.WithLabelValues(mode.String(), status(err)).Inc()
}

// RecordSnapshot implements genarena.MetricsCollector.
func (c *PrometheusCollector) RecordSnapshot(bytes int64, d time.Duration, err error) {
	c.opLatency.WithLabelValues("snapshot", status(err)).Observe(d.Seconds())
	if err == nil {
		c.snapshotBytes.Observe(float64(bytes))
	}
}

// RecordRestore implements genarena.MetricsCollector.
func (c *PrometheusCollector) RecordRestore(slots int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("restore", status(err)).Observe(d.Seconds())
	if err == nil {
		c.restoredSlots.Add(float64(slots))
	}
}
