package flowchart

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/flowchart/pkg/flowchart/checkpoint"
	"github.com/randalmurphal/flowchart/pkg/flowchart/observability"
)

// Status is the lifecycle state of an Executor.
type Status string

// Executor states.
const (
	StatusReady   Status = "READY"
	StatusRunning Status = "RUNNING"
	StatusPaused  Status = "PAUSED"
	StatusDone    Status = "DONE"
	StatusFailed  Status = "FAILED"
)

// Terminal reports whether no further execution is possible.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Executor drives one run of a Graph: a cursor, an ExecutionContext and a
// status. It starts READY at the START node.
//
//	READY --Run--> RUNNING --END--> DONE
//	                  |  \--fault--> FAILED
//	                  \--breakpoint / Step--> PAUSED --Resume--> RUNNING
//
// An Executor is not safe for concurrent use; one goroutine drives one run.
// Any number of Executors may share a Graph.
type Executor struct {
	graph *Graph
	cfg   runConfig
	rc    *runContext
	ec    *ExecutionContext

	status  Status
	current string
	steps   int
	err     error
}

// NewExecutor creates a READY executor positioned at the graph's START node
// with a fresh ExecutionContext.
func NewExecutor(g *Graph, opts ...RunOption) *Executor {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newExecutor(g, cfg, NewExecutionContext(), g.Start(), 0)
}

func newExecutor(g *Graph, cfg runConfig, ec *ExecutionContext, cursor string, steps int) *Executor {
	return &Executor{
		graph: g,
		cfg:   cfg,
		rc: &runContext{
			Context:   context.Background(),
			logger:    cfg.logger,
			evaluator: cfg.evaluator,
			inputs:    cfg.inputs,
			metrics:   cfg.metrics,
			runID:     cfg.runID,
		},
		ec:      ec,
		status:  StatusReady,
		current: cursor,
		steps:   steps,
	}
}

// Status returns the current lifecycle state.
func (e *Executor) Status() Status { return e.status }

// Current returns the id of the node that will execute next. After DONE it
// is the END node; after FAILED it is the node that failed.
func (e *Executor) Current() string { return e.current }

// Context returns the run's ExecutionContext.
func (e *Executor) Context() *ExecutionContext { return e.ec }

// Err returns the error that failed the run, or nil.
func (e *Executor) Err() error { return e.err }

// Steps returns the number of nodes executed so far.
func (e *Executor) Steps() int { return e.steps }

// RunID returns the run identifier.
func (e *Executor) RunID() string { return e.cfg.runID }

// Run executes nodes until the run reaches END (DONE), fails (FAILED), or
// arrives at a breakpointed node (PAUSED, before that node executes).
// Calling Run on a PAUSED executor continues it: the node it paused on is
// executed without pausing again.
//
// A nil return with Status() == StatusPaused means the run is suspended.
// Calling Run on a DONE or FAILED executor returns ErrNotRunnable.
func (e *Executor) Run(ctx context.Context) error {
	return e.drive(ctx, false)
}

// Resume continues a PAUSED run. It is equivalent to Run.
func (e *Executor) Resume(ctx context.Context) error {
	return e.drive(ctx, false)
}

// Step executes exactly one node, breakpoint or not, and leaves the run
// PAUSED unless that node finished or failed it.
func (e *Executor) Step(ctx context.Context) error {
	return e.drive(ctx, true)
}

// RunAll executes g from START to completion, ignoring breakpoints, and
// returns the final ExecutionContext. On failure the context reflects every
// node that executed before the fault.
func RunAll(ctx context.Context, g *Graph, opts ...RunOption) (*ExecutionContext, error) {
	opts = append(opts, WithIgnoreBreakpoints(true))
	exec := NewExecutor(g, opts...)
	err := exec.Run(ctx)
	return exec.Context(), err
}

func (e *Executor) drive(ctx context.Context, single bool) (runErr error) {
	if ctx == nil {
		return ErrNilContext
	}
	if e.status.Terminal() {
		return fmt.Errorf("%w: status %s", ErrNotRunnable, e.status)
	}

	// The node a paused run stopped on executes on resume.
	skipBreakpoint := e.status == StatusPaused
	if e.status == StatusReady {
		observability.LogRunStart(e.cfg.logger, e.cfg.runID, e.current)
	}
	e.status = StatusRunning

	elapsed := observability.TimedOperation()
	stepsBefore := e.steps

	runCtx := ctx
	var runSpan trace.Span
	if e.cfg.tracingEnabled {
		runCtx, runSpan = e.cfg.spans.StartRunSpan(ctx, e.cfg.graphName, e.cfg.runID)
		defer func() {
			e.cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	for {
		node, ok := e.graph.Node(e.current)
		if !ok {
			return e.fail(runCtx, &NodeError{NodeID: e.current, Op: "lookup", Err: fmt.Errorf("%w: %s", ErrInvalidResumeNode, e.current)}, elapsed, stepsBefore)
		}

		if !single && !skipBreakpoint && !e.cfg.ignoreBreakpoints && node.Breakpoint() {
			e.cfg.spans.AddSpanEvent(runCtx, "breakpoint", attribute.String("node.id", node.ID))
			return e.pause(runCtx, elapsed, stepsBefore)
		}
		skipBreakpoint = false

		if err := e.advance(runCtx, node); err != nil {
			return e.fail(runCtx, err, elapsed, stepsBefore)
		}

		if e.status == StatusDone {
			e.cfg.metrics.RecordRun(runCtx, observability.RunDone, e.steps-stepsBefore, elapsed())
			observability.LogRunComplete(e.cfg.logger, e.cfg.runID, observability.Millis(elapsed()), e.steps)
			return nil
		}
		if single {
			return e.pause(runCtx, elapsed, stepsBefore)
		}
	}
}

// advance executes node and moves the cursor along the selected edge.
func (e *Executor) advance(ctx context.Context, node *Node) error {
	if e.steps >= e.cfg.maxSteps {
		return &StepLimitError{Max: e.cfg.maxSteps, NodeID: node.ID}
	}
	if err := ctx.Err(); err != nil {
		return &CancellationError{NodeID: node.ID, Cause: err}
	}

	e.steps++
	e.ec.visit(node.ID)

	dir, err := e.execute(ctx, node)
	if err != nil {
		return err
	}

	if node.Type == NodeEnd {
		e.status = StatusDone
		return nil
	}

	label := dir.Next
	if label == "" {
		label = ConditionAuto
	}
	edge, err := e.graph.next(node.ID, label)
	if err != nil {
		return err
	}
	e.current = edge.Target
	return nil
}

// execute runs node's handler with panic recovery, metrics, tracing and logging.
func (e *Executor) execute(ctx context.Context, node *Node) (dir Directive, err error) {
	handler, ok := e.cfg.handlers.Get(node.Type)
	if !ok {
		return Directive{}, &NodeError{NodeID: node.ID, NodeType: node.Type, Op: "lookup", Err: fmt.Errorf("%w: %s", ErrNoHandler, node.Type)}
	}

	rc := e.rc.forNode(ctx, node)
	observability.LogNodeStart(rc.logger, node.ID)

	nodeCtx := ctx
	var span trace.Span
	if e.cfg.tracingEnabled {
		nodeCtx, span = e.cfg.spans.StartNodeSpan(ctx, node.ID, string(node.Type))
		rc.Context = nodeCtx
	}

	done := observability.TimedOperation()
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{NodeID: node.ID, Value: r, Stack: string(debug.Stack())}
		}

		duration := done()
		e.cfg.metrics.RecordNodeExecution(nodeCtx, node.ID, string(node.Type), duration, err)
		if e.cfg.tracingEnabled {
			e.cfg.spans.EndSpanWithError(span, err)
		}
		if err != nil {
			observability.LogNodeError(rc.logger, node.ID, err)
			return
		}
		observability.LogNodeComplete(rc.logger, node.ID, dir.Next, observability.Millis(duration))
	}()

	dir, err = handler(rc, node, e.ec)
	if err != nil {
		return Directive{}, &NodeError{NodeID: node.ID, NodeType: node.Type, Op: "execute", Err: err}
	}
	return dir, nil
}

func (e *Executor) pause(ctx context.Context, elapsed func() time.Duration, stepsBefore int) error {
	e.status = StatusPaused
	e.cfg.metrics.RecordRun(ctx, observability.RunPaused, e.steps-stepsBefore, elapsed())
	observability.LogRunPaused(e.cfg.logger, e.cfg.runID, e.current, e.steps)

	if e.cfg.checkpointStore == nil {
		return nil
	}
	if err := e.saveCheckpoint(ctx); err != nil {
		e.status = StatusFailed
		e.err = err
		return err
	}
	return nil
}

func (e *Executor) fail(ctx context.Context, err error, elapsed func() time.Duration, stepsBefore int) error {
	e.status = StatusFailed
	e.err = err
	e.cfg.metrics.RecordRun(ctx, observability.RunFailed, e.steps-stepsBefore, elapsed())
	observability.LogRunError(e.cfg.logger, e.cfg.runID, err, observability.Millis(elapsed()), e.current)
	return err
}

// saveCheckpoint persists the paused run. Failures are fatal: a pause the
// caller cannot resume from is reported rather than silently lost.
func (e *Executor) saveCheckpoint(ctx context.Context) error {
	if e.cfg.runID == "" {
		return ErrRunIDRequired
	}

	state, err := e.cfg.serializer.Serialize(e.ec.Snapshot())
	if err != nil {
		observability.LogCheckpointError(e.cfg.logger, e.current, "serialize", err)
		return &CheckpointError{NodeID: e.current, Op: "serialize", Err: err}
	}

	cp := checkpoint.New(e.cfg.runID, e.current, e.steps, state, e.cfg.serializer.Name())
	if err := e.cfg.checkpointStore.Save(ctx, cp); err != nil {
		observability.LogCheckpointError(e.cfg.logger, e.current, "save", err)
		return &CheckpointError{NodeID: e.current, Op: "save", Err: err}
	}

	observability.LogCheckpoint(e.cfg.logger, e.current, len(state))
	e.cfg.metrics.RecordCheckpoint(ctx, e.current, int64(len(state)))
	return nil
}
