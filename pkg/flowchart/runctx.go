package flowchart

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/flowchart/pkg/flowchart/expr"
	"github.com/randalmurphal/flowchart/pkg/flowchart/observability"
)

// RunContext provides run-scoped services to handlers.
// It extends context.Context with the logger, evaluator and input source
// of the current run.
//
// RunContext is immutable. The executor derives one per node with NodeID set
// and the logger enriched.
type RunContext interface {
	context.Context

	// Logger returns the run logger, enriched with run_id, node_id and node_type.
	// Never returns nil.
	Logger() *slog.Logger

	// Evaluator returns the expression evaluator shared by the run.
	Evaluator() *expr.Evaluator

	// Inputs returns the external input source, or nil if none was configured.
	Inputs() InputSource

	// Metrics returns the metrics recorder. Never returns nil.
	Metrics() observability.MetricsRecorder

	// RunID returns the unique identifier of this run.
	RunID() string

	// NodeID returns the node being executed.
	NodeID() string
}

// runContext is the internal implementation of RunContext.
type runContext struct {
	context.Context

	logger    *slog.Logger
	evaluator *expr.Evaluator
	inputs    InputSource
	metrics   observability.MetricsRecorder
	runID     string
	nodeID    string
}

func (c *runContext) Logger() *slog.Logger                   { return c.logger }
func (c *runContext) Evaluator() *expr.Evaluator             { return c.evaluator }
func (c *runContext) Inputs() InputSource                    { return c.inputs }
func (c *runContext) Metrics() observability.MetricsRecorder { return c.metrics }
func (c *runContext) RunID() string                          { return c.runID }
func (c *runContext) NodeID() string                         { return c.nodeID }

// forNode returns a derived context for executing n.
func (c *runContext) forNode(ctx context.Context, n *Node) *runContext {
	return &runContext{
		Context:   ctx,
		logger:    observability.EnrichLogger(c.logger, c.runID, n.ID, string(n.Type)),
		evaluator: c.evaluator,
		inputs:    c.inputs,
		metrics:   c.metrics,
		runID:     c.runID,
		nodeID:    n.ID,
	}
}

// NewRunContext creates a RunContext for calling handlers directly, outside
// an Executor. Options other than logging, inputs and metrics are ignored.
func NewRunContext(ctx context.Context, nodeID string, opts ...RunOption) RunContext {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &runContext{
		Context:   ctx,
		logger:    cfg.logger,
		evaluator: cfg.evaluator,
		inputs:    cfg.inputs,
		metrics:   cfg.metrics,
		runID:     cfg.runID,
		nodeID:    nodeID,
	}
}
