// Package metrics provides Prometheus metrics for notechain.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the chain service. A nil
// *Metrics is valid and records nothing, so tests and tooling that do
// not scrape can pass nil without registering collectors.
type Metrics struct {
	// Vault processing metrics
	RebuildsTotal        prometheus.Counter
	NoteUpdatesTotal     prometheus.Counter
	NoteDeletesTotal     prometheus.Counter
	NoteRenamesTotal     prometheus.Counter
	HealsTotal           prometheus.Counter
	RewriteFailuresTotal prometheus.Counter

	// Graph state metrics
	GraphNodes prometheus.Gauge
	GraphEdges prometheus.Gauge

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	m := &Metrics{}

	m.RebuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notechain_rebuilds_total",
			Help: "Total number of full graph rebuilds",
		},
	)
	m.NoteUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notechain_note_updates_total",
			Help: "Total number of incremental note updates",
		},
	)
	m.NoteDeletesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notechain_note_deletes_total",
			Help: "Total number of note deletions processed",
		},
	)
	m.NoteRenamesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notechain_note_renames_total",
			Help: "Total number of note renames processed",
		},
	)
	m.HealsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notechain_heals_total",
			Help: "Total number of chain heals after deletions",
		},
	)
	m.RewriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notechain_rewrite_failures_total",
			Help: "Total number of failed frontmatter rewrites",
		},
	)

	m.GraphNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notechain_graph_nodes",
			Help: "Current number of notes in the graph",
		},
	)
	m.GraphEdges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notechain_graph_edges",
			Help: "Current number of parent references in the graph",
		},
	)

	m.HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notechain_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notechain_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	return m
}

// RecordRebuild counts a full rebuild and updates the graph gauges.
func (m *Metrics) RecordRebuild(nodes, edges int) {
	if m == nil {
		return
	}
	m.RebuildsTotal.Inc()
	m.setGraphSize(nodes, edges)
}

// RecordNoteUpdate counts an incremental update.
func (m *Metrics) RecordNoteUpdate(nodes, edges int) {
	if m == nil {
		return
	}
	m.NoteUpdatesTotal.Inc()
	m.setGraphSize(nodes, edges)
}

// RecordNoteDelete counts a deletion and the heals it caused.
func (m *Metrics) RecordNoteDelete(healed int, nodes, edges int) {
	if m == nil {
		return
	}
	m.NoteDeletesTotal.Inc()
	if healed > 0 {
		m.HealsTotal.Add(float64(healed))
	}
	m.setGraphSize(nodes, edges)
}

// RecordNoteRename counts a rename.
func (m *Metrics) RecordNoteRename(nodes, edges int) {
	if m == nil {
		return
	}
	m.NoteRenamesTotal.Inc()
	m.setGraphSize(nodes, edges)
}

// RecordRewriteFailure counts a frontmatter write-back that failed.
func (m *Metrics) RecordRewriteFailure() {
	if m == nil {
		return
	}
	m.RewriteFailuresTotal.Inc()
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) setGraphSize(nodes, edges int) {
	m.GraphNodes.Set(float64(nodes))
	m.GraphEdges.Set(float64(edges))
}

// statusClass buckets status codes to keep label cardinality down.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
