// Package metric provides Prometheus metrics for BloomGate.
//
// It exposes command rates, check outcomes, filter population, and
// snapshot health for monitoring.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics, registered on a private registry
// so tests can build as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	// Protocol metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	ConnectionsOpen prometheus.Gauge
	RateLimited     prometheus.Counter

	// Filter metrics
	FiltersActive prometheus.Gauge
	KeysSetTotal  prometheus.Counter
	ChecksTotal   *prometheus.CounterVec

	// Snapshot metrics
	SnapshotDuration  prometheus.Histogram
	SnapshotSizeBytes prometheus.Gauge
	SnapshotFailures  prometheus.Counter
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,

		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloomgate",
			Name:      "commands_total",
			Help:      "Protocol commands processed, by command and status.",
		}, []string{"command", "status"}),

		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bloomgate",
			Name:      "command_duration_seconds",
			Help:      "Command processing latency.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"command"}),

		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bloomgate",
			Name:      "connections_open",
			Help:      "Currently open client connections.",
		}),

		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bloomgate",
			Name:      "rate_limited_total",
			Help:      "Commands rejected by the per-client rate limiter.",
		}),

		FiltersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bloomgate",
			Name:      "filters_active",
			Help:      "Number of registered filters.",
		}),

		KeysSetTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bloomgate",
			Name:      "keys_set_total",
			Help:      "Keys added across all filters.",
		}),

		ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloomgate",
			Name:      "checks_total",
			Help:      "Membership checks, by result (true/false).",
		}, []string{"result"}),

		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bloomgate",
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent writing a snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),

		SnapshotSizeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bloomgate",
			Name:      "snapshot_size_bytes",
			Help:      "Size of the most recent snapshot file.",
		}),

		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bloomgate",
			Name:      "snapshot_failures_total",
			Help:      "Snapshot attempts that did not produce a file.",
		}),
	}

	reg.MustRegister(
		m.CommandsTotal,
		m.CommandDuration,
		m.ConnectionsOpen,
		m.RateLimited,
		m.FiltersActive,
		m.KeysSetTotal,
		m.ChecksTotal,
		m.SnapshotDuration,
		m.SnapshotSizeBytes,
		m.SnapshotFailures,
	)

	return m
}

// Handler returns the HTTP handler serving this registry in Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
