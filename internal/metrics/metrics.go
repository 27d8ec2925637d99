// Package metrics exposes call graph run statistics as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go-callgraph-precision/internal/analysis"
)

// Recorder collects the statistics of every run into its own registry. It
// implements analysis.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	edges          *prometheus.GaugeVec
	nodes          *prometheus.GaugeVec
	methodsVisited *prometheus.GaugeVec
	skipped        *prometheus.CounterVec
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "callgraph_runs_total",
			Help: "Total call graph runs by algorithm",
		}, []string{"algorithm"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callgraph_run_duration_seconds",
			Help:    "Call graph construction time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		}, []string{"algorithm"}),
		edges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "callgraph_edges",
			Help: "Edges in the most recent call graph by algorithm",
		}, []string{"algorithm"}),
		nodes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "callgraph_nodes",
			Help: "Nodes in the most recent call graph by algorithm",
		}, []string{"algorithm"}),
		methodsVisited: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "callgraph_methods_visited",
			Help: "Method bodies analysed in the most recent run by algorithm",
		}, []string{"algorithm"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "callgraph_skipped_total",
			Help: "Invocations and methods skipped by algorithm and reason",
		}, []string{"algorithm", "reason"}),
	}
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// RecordRun updates the metrics from one finished run.
func (r *Recorder) RecordRun(s analysis.Stats) {
	alg := s.Algorithm.String()
	r.runs.WithLabelValues(alg).Inc()
	r.duration.WithLabelValues(alg).Observe(s.Duration.Seconds())
	r.edges.WithLabelValues(alg).Set(float64(s.Edges))
	r.nodes.WithLabelValues(alg).Set(float64(s.Nodes))
	r.methodsVisited.WithLabelValues(alg).Set(float64(s.MethodsVisited))

	for reason, n := range map[string]int{
		"unresolved":         s.Unresolved,
		"missing_body":       s.MissingBodies,
		"out_of_scope":       s.OutOfScope,
		"untracked_receiver": s.UntrackedReceivers,
	} {
		r.skipped.WithLabelValues(alg, reason).Add(float64(n))
	}
}

// WriteFile writes the current metrics to path in the text exposition
// format, for node_exporter's textfile collector.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

var _ analysis.Recorder = (*Recorder)(nil)
