package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Batch outcomes.
const (
	ResultOK     = "ok"
	ResultEmpty  = "empty"
	ResultFailed = "failed"
)

// Registry holds the generator's Prometheus collectors.
type Registry struct {
	EventsTotal        *prometheus.CounterVec
	BatchesTotal       *prometheus.CounterVec
	BatchDuration      prometheus.Histogram
	PreMergeNodes      prometheus.Counter
	PreMergeEdges      prometheus.Counter
	MergedNodes        prometheus.Counter
	MergedEdges        prometheus.Counter
	PayloadBytes       prometheus.Histogram
	SinkWriteErrors    *prometheus.CounterVec
	DeadLetteredEvents prometheus.Counter

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every collector registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Registry{
		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subgraphgen_events_total",
			Help: "Raw events seen, by outcome",
		}, []string{"result"}),
		BatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subgraphgen_batches_total",
			Help: "Processed batches, by outcome",
		}, []string{"result"}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "subgraphgen_batch_duration_seconds",
			Help:    "Time to build, merge and encode one batch",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		PreMergeNodes: f.NewCounter(prometheus.CounterOpts{
			Name: "subgraphgen_pre_merge_nodes_total",
			Help: "Nodes contributed by fragments before merging",
		}),
		PreMergeEdges: f.NewCounter(prometheus.CounterOpts{
			Name: "subgraphgen_pre_merge_edges_total",
			Help: "Edges contributed by fragments before merging",
		}),
		MergedNodes: f.NewCounter(prometheus.CounterOpts{
			Name: "subgraphgen_merged_nodes_total",
			Help: "Nodes in merged batch graphs",
		}),
		MergedEdges: f.NewCounter(prometheus.CounterOpts{
			Name: "subgraphgen_merged_edges_total",
			Help: "Edges in merged batch graphs",
		}),
		PayloadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "subgraphgen_payload_bytes",
			Help:    "Compressed payload size",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}),
		SinkWriteErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subgraphgen_sink_write_errors_total",
			Help: "Failed sink writes, by sink",
		}, []string{"sink"}),
		DeadLetteredEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "subgraphgen_dead_lettered_events_total",
			Help: "Raw events pushed to the dead letter sink",
		}),
		registry: reg,
	}
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
