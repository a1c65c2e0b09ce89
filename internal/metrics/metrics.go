// Package metrics exposes sync outcome counters on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/transfer"
)

// Metrics holds the agent's Prometheus collectors on a dedicated
// registry, so /metrics never leaks unrelated default-registry series.
type Metrics struct {
	registry *prometheus.Registry

	syncRuns     *prometheus.CounterVec
	syncDuration prometheus.Histogram

	filesTransferred prometheus.Counter
	filesFailed      prometheus.Counter
	filesSkipped     *prometheus.CounterVec
	bytesTransferred prometheus.Counter
	listErrors       prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_sync_runs_total",
			Help: "Completed sync passes by result",
		}, []string{"result"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agent_sync_duration_seconds",
			Help:    "Wall-clock duration of sync passes",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		filesTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_files_transferred_total",
			Help: "Files copied to the destination",
		}),
		filesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_files_failed_total",
			Help: "Files that exhausted retries or failed permanently",
		}),
		filesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_files_skipped_total",
			Help: "Files skipped without transfer, by reason",
		}, []string{"reason"}),
		bytesTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_bytes_transferred_total",
			Help: "Bytes copied to the destination",
		}),
		listErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_list_errors_total",
			Help: "Source listing failures (per date prefix per pass)",
		}),
	}

	reg.MustRegister(
		m.syncRuns,
		m.syncDuration,
		m.filesTransferred,
		m.filesFailed,
		m.filesSkipped,
		m.bytesTransferred,
		m.listErrors,
	)
	return m
}

// ObserveSync records one completed pass.
func (m *Metrics) ObserveSync(stats *transfer.Statistics, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.syncRuns.WithLabelValues(result).Inc()

	if stats == nil {
		return
	}
	m.syncDuration.Observe(stats.Duration.Seconds())
	m.filesTransferred.Add(float64(stats.Transferred))
	m.filesFailed.Add(float64(stats.Failed))
	m.filesSkipped.WithLabelValues("up_to_date").Add(float64(stats.SkippedUpToDate))
	m.filesSkipped.WithLabelValues("oversize").Add(float64(stats.SkippedOversize))
	m.bytesTransferred.Add(float64(stats.BytesTransferred))
	m.listErrors.Add(float64(stats.ListErrors))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
