package flowchart

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/flowchart/pkg/flowchart/checkpoint"
	"github.com/randalmurphal/flowchart/pkg/flowchart/expr"
	"github.com/randalmurphal/flowchart/pkg/flowchart/observability"
)

// DefaultMaxSteps is the default step budget of a run.
const DefaultMaxSteps = 10000

// runConfig holds configuration for a run.
type runConfig struct {
	maxSteps          int
	ignoreBreakpoints bool
	graphName         string
	runID             string

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool

	evaluator *expr.Evaluator
	inputs    InputSource
	handlers  *Handlers

	checkpointStore checkpoint.Store
	serializer      *checkpoint.Serializer
}

// defaultRunConfig returns the default run configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps:   DefaultMaxSteps,
		graphName:  "flowchart",
		runID:      uuid.NewString(),
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
		spans:      observability.NoopSpanManager{},
		evaluator:  expr.New(),
		handlers:   DefaultHandlers(),
		serializer: checkpoint.DefaultSerializer(),
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxSteps sets the maximum number of node executions.
// Default: 10000
//
// This turns a cycle that never reaches END into a FAILED run with a
// *StepLimitError instead of a hang. Values below 1 are ignored.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithIgnoreBreakpoints runs straight through breakpointed nodes.
func WithIgnoreBreakpoints(ignore bool) RunOption {
	return func(c *runConfig) {
		c.ignoreBreakpoints = ignore
	}
}

// WithRunID sets the run identifier used in logs, spans and checkpoints.
// Default: a random UUID.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithGraphName names the flowchart in spans. Default: "flowchart".
func WithGraphName(name string) RunOption {
	return func(c *runConfig) {
		if name != "" {
			c.graphName = name
		}
	}
}

// WithLogger sets the run logger. Default: slog.Default().
// A nil logger discards all output.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: observability.NoopMetrics{}.
//
// Example:
//
//	exec := flowchart.NewExecutor(g, flowchart.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m == nil {
			m = observability.NoopMetrics{}
		}
		c.metrics = m
	}
}

// WithTracing enables OpenTelemetry spans for run segments and nodes, using
// the global tracer provider.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithInputs sets the source INPUT nodes read from. Without one, reaching an
// INPUT node fails the run with ErrInputUnavailable.
func WithInputs(src InputSource) RunOption {
	return func(c *runConfig) {
		c.inputs = src
	}
}

// WithEvaluator replaces the expression evaluator, e.g. to change its limits.
func WithEvaluator(ev *expr.Evaluator) RunOption {
	return func(c *runConfig) {
		if ev != nil {
			c.evaluator = ev
		}
	}
}

// WithHandler overrides the handler for one node type in this run.
func WithHandler(t NodeType, h Handler) RunOption {
	return func(c *runConfig) {
		c.handlers = c.handlers.Clone()
		c.handlers.Register(t, h)
	}
}

// WithCheckpointing saves a checkpoint to store every time the run pauses,
// so it can be continued with ResumeFromCheckpoint.
func WithCheckpointing(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithCheckpointSerializer sets how the execution context is encoded in
// checkpoints. Default: msgpack, uncompressed.
func WithCheckpointSerializer(s *checkpoint.Serializer) RunOption {
	return func(c *runConfig) {
		if s != nil {
			c.serializer = s
		}
	}
}
