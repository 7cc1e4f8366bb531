package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements MetricsRecorder with Prometheus collectors.
// Node metrics are labelled by node type only, keeping cardinality bounded
// no matter how many flowcharts are executed.
type PrometheusRecorder struct {
	nodeExecutions *prometheus.CounterVec
	nodeErrors     *prometheus.CounterVec
	nodeDuration   *prometheus.HistogramVec
	runs           *prometheus.CounterVec
	runSteps       prometheus.Histogram
	evalFaults     *prometheus.CounterVec
	checkpointSize prometheus.Histogram
}

var _ MetricsRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the flowchart collectors with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics
// handler. Registering twice with the same registry panics.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	f := promauto.With(reg)
	return &PrometheusRecorder{
		nodeExecutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowchart_node_executions_total",
			Help: "Number of node executions",
		}, []string{"node_type"}),
		nodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowchart_node_errors_total",
			Help: "Number of node executions that failed the run",
		}, []string{"node_type"}),
		nodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowchart_node_duration_seconds",
			Help:    "Node execution latency",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"node_type"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowchart_runs_total",
			Help: "Number of run segments by outcome",
		}, []string{"outcome"}),
		runSteps: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowchart_run_steps",
			Help:    "Nodes executed per run segment",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		evalFaults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowchart_evaluation_faults_total",
			Help: "Recovered expression evaluation failures",
		}, []string{"node_type"}),
		checkpointSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowchart_checkpoint_size_bytes",
			Help:    "Checkpoint size in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}),
	}
}

// RecordNodeExecution records a node execution.
func (p *PrometheusRecorder) RecordNodeExecution(_ context.Context, _, nodeType string, duration time.Duration, err error) {
	p.nodeExecutions.WithLabelValues(nodeType).Inc()
	p.nodeDuration.WithLabelValues(nodeType).Observe(duration.Seconds())
	if err != nil {
		p.nodeErrors.WithLabelValues(nodeType).Inc()
	}
}

// RecordRun records a run segment.
func (p *PrometheusRecorder) RecordRun(_ context.Context, outcome string, steps int, _ time.Duration) {
	p.runs.WithLabelValues(outcome).Inc()
	p.runSteps.Observe(float64(steps))
}

// RecordEvaluationFault records a recovered expression failure.
func (p *PrometheusRecorder) RecordEvaluationFault(_ context.Context, nodeType string) {
	p.evalFaults.WithLabelValues(nodeType).Inc()
}

// RecordCheckpoint records a checkpoint save.
func (p *PrometheusRecorder) RecordCheckpoint(_ context.Context, _ string, sizeBytes int64) {
	p.checkpointSize.Observe(float64(sizeBytes))
}
