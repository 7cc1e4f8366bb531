/*
Package flowchart executes visual flowchart programs.

# Overview

A flowchart is a directed graph of typed nodes connected by labeled edges,
as drawn in a visual editor. Nodes declare and assign variables, print
values, read input and branch on conditions; edges carry a branch label
("auto", "true" or "false") that decides which one a node follows. The
package turns the editor's wire payload into a validated Graph, supports
structural edits, and interprets the graph one node at a time with an
expression evaluator that never executes host code.

# Basic Usage

Hydrate a payload (or use the Builder) and run it to completion:

	g, err := flowchart.NewBuilder().
	    Start("s").
	    Declare("d", "x", 2, "int").
	    Assign("a", "x", "x + 3").
	    Output("o", "x").
	    End("e").
	    Connect("s", "d").Connect("d", "a").Connect("a", "o").Connect("o", "e").
	    Build()
	if err != nil {
	    log.Fatal(err)
	}

	ec, err := flowchart.RunAll(ctx, g)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(ec.Output()) // [5]

# Node Types

	start      entry point, exactly one per graph
	end        exit point, exactly one per graph; entering it finishes the run
	declare    binds a new variable: data.name, data.value, data.varType
	assign     evaluates data.expression and stores it in data.variable
	output     prints data.message (see OutputHandler for its three rules)
	input      reads data.variable from the run's InputSource
	condition  evaluates data.expression and follows "true" or "false"

Node data is kept verbatim; accessors such as Node.Declaration accept the
alternative keys editors produce.

# Branching and Loops

A condition node follows the outgoing edge labeled with the truthiness of
its expression. Every other node follows its "auto" edge; an edge with an
empty condition counts as "auto". Loops are edges back to earlier nodes.
A node whose label has no edge fails the run with *DanglingEdgeError, and
two matching edges fail it with *AmbiguousEdgeError. Graph.Lint reports
both situations ahead of time without rejecting the graph.

# Debugging

Set data.breakpoint on a node and drive the run with an Executor. Run stops
before the breakpointed node executes, leaving the executor PAUSED; Resume
executes that node and continues. Step executes exactly one node.

	exec := flowchart.NewExecutor(g)
	for exec.Status() != flowchart.StatusDone {
	    if err := exec.Step(ctx); err != nil {
	        return err
	    }
	    fmt.Println(exec.Current(), exec.Context().Variables())
	}

With WithCheckpointing, every pause is saved to a checkpoint.Store and
ResumeFromCheckpoint rebuilds the paused executor in another process.

# Errors

Structural problems are returned from Hydrate and InsertNodeOnEdge as
*ValidationError, *NotFoundError and *ConflictError. Runtime faults fail the
run: handler errors are wrapped in *NodeError, panics become *PanicError,
a cycle that never reaches END ends with *StepLimitError, and caller
cancellation with *CancellationError. Assignment faults inside OUTPUT text
do not stop the run; they are recorded in ExecutionContext.Diagnostics.
FaultNodeID extracts the offending node id from any of them.

# Observability

Runs log through slog (WithLogger), record metrics through an
observability.MetricsRecorder (WithMetrics) and emit OpenTelemetry spans for
run segments and nodes (WithTracing).
*/
package flowchart
