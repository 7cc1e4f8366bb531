package flowchart

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph structure.
var (
	// ErrMissingStart indicates a graph without a START node.
	ErrMissingStart = errors.New("graph has no start node")

	// ErrMissingEnd indicates a graph without an END node.
	ErrMissingEnd = errors.New("graph has no end node")

	// ErrMultipleStart indicates more than one START node.
	ErrMultipleStart = errors.New("graph has more than one start node")

	// ErrMultipleEnd indicates more than one END node.
	ErrMultipleEnd = errors.New("graph has more than one end node")

	// ErrDuplicateID indicates a node or edge id is used twice.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrUnknownEndpoint indicates an edge references a node id that does not exist.
	ErrUnknownEndpoint = errors.New("edge endpoint does not exist")

	// ErrUnknownNodeType indicates a node type outside the supported vocabulary.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrMissingField indicates a required record field is empty.
	ErrMissingField = errors.New("required field missing")
)

// Sentinel errors for execution.
var (
	// ErrStepLimitExceeded indicates the run executed more nodes than its step budget.
	ErrStepLimitExceeded = errors.New("step limit exceeded")

	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNotRunnable indicates the executor is already DONE or FAILED.
	ErrNotRunnable = errors.New("executor is not runnable")

	// ErrNoHandler indicates no handler is registered for a node type.
	ErrNoHandler = errors.New("no handler for node type")

	// ErrInputUnavailable indicates an INPUT node found no externally supplied value.
	ErrInputUnavailable = errors.New("input value not supplied")

	// ErrInvalidVariableName indicates an empty or malformed variable name in node data.
	ErrInvalidVariableName = errors.New("invalid variable name")
)

// Sentinel errors for checkpointed pauses.
var (
	// ErrRunIDRequired indicates checkpointing was enabled without a run ID.
	ErrRunIDRequired = errors.New("run ID required for checkpointing")

	// ErrNoCheckpoint indicates no paused checkpoint exists for the run.
	ErrNoCheckpoint = errors.New("no checkpoint found for run")

	// ErrInvalidResumeNode indicates the checkpointed node doesn't exist in the graph.
	ErrInvalidResumeNode = errors.New("invalid resume node")

	// ErrCheckpointVersionMismatch indicates the checkpoint version is incompatible.
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")
)

// ValidationError reports a structural problem found while hydrating a
// payload or editing a graph. ID names the offending node or edge; records
// without an id are named by position ("nodes[2]").
type ValidationError struct {
	// ID is the offending node or edge id.
	ID string
	// Field is the record field at fault, if any.
	Field string
	// Err is the underlying sentinel.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s (%s): %v", e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.ID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates an edit referenced an edge or node that does not exist.
type NotFoundError struct {
	// Kind is "edge" or "node".
	Kind string
	// ID is the missing id.
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConflictError indicates an edit would introduce an id that already exists.
type ConflictError struct {
	// Kind is "edge" or "node".
	Kind string
	// ID is the conflicting id.
	ID string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Kind, e.ID)
}

// TypeCoercionError indicates a literal could not be converted to a
// variable's declared type.
type TypeCoercionError struct {
	// Variable is the variable being declared.
	Variable string
	// VarType is the requested type.
	VarType string
	// Value is the literal that failed to convert.
	Value any
	// Err is the parse error, if any.
	Err error
}

// Error implements the error interface.
func (e *TypeCoercionError) Error() string {
	msg := fmt.Sprintf("variable %s: cannot convert %#v to %s", e.Variable, e.Value, e.VarType)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TypeCoercionError) Unwrap() error {
	return e.Err
}

// DanglingEdgeError indicates a node emitted a branch label with no matching
// outgoing edge.
type DanglingEdgeError struct {
	// NodeID is the node whose branch has no edge.
	NodeID string
	// Condition is the label the node emitted.
	Condition string
}

// Error implements the error interface.
func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("node %s: no outgoing edge for condition %q", e.NodeID, e.Condition)
}

// AmbiguousEdgeError indicates more than one outgoing edge matches the
// emitted branch label.
type AmbiguousEdgeError struct {
	// NodeID is the branching node.
	NodeID string
	// Condition is the label the node emitted.
	Condition string
	// EdgeIDs lists the matching edges.
	EdgeIDs []string
}

// Error implements the error interface.
func (e *AmbiguousEdgeError) Error() string {
	return fmt.Sprintf("node %s: %d outgoing edges for condition %q: %v", e.NodeID, len(e.EdgeIDs), e.Condition, e.EdgeIDs)
}

// NodeError wraps an error with node context.
// It provides information about which node failed and what operation was attempted.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// NodeType is the type of the failing node.
	NodeType NodeType
	// Op is the operation that failed (e.g., "execute").
	Op string
	// Err is the underlying error from the handler.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s): %s: %v", e.NodeID, e.NodeType, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from a handler.
// It includes the stack trace for debugging.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// CancellationError reports that the caller's context ended the run.
type CancellationError struct {
	// NodeID is the node that was about to execute.
	NodeID string
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before node %s: %v", e.NodeID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// StepLimitError provides context when the step budget is exhausted.
type StepLimitError struct {
	// Max is the configured step limit.
	Max int
	// NodeID is the node that would have executed next.
	NodeID string
}

// Error implements the error interface.
func (e *StepLimitError) Error() string {
	return fmt.Sprintf("exceeded step limit (%d) at node %s", e.Max, e.NodeID)
}

// Unwrap returns ErrStepLimitExceeded for errors.Is support.
func (e *StepLimitError) Unwrap() error {
	return ErrStepLimitExceeded
}

// CheckpointError wraps errors from checkpoint operations.
type CheckpointError struct {
	// NodeID is the node where the run paused.
	NodeID string
	// Op is the operation that failed ("save", "load", "restore").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at node %s: %v", e.Op, e.NodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// FaultNodeID extracts the node or edge id carried by a fault returned from
// this package, or "" when err carries none.
func FaultNodeID(err error) string {
	var (
		nodeErr    *NodeError
		dangling   *DanglingEdgeError
		ambiguous  *AmbiguousEdgeError
		stepErr    *StepLimitError
		cancelErr  *CancellationError
		panicErr   *PanicError
		coerceErr  *TypeCoercionError
		validErr   *ValidationError
		notFound   *NotFoundError
		conflict   *ConflictError
		checkpoint *CheckpointError
	)
	switch {
	case errors.As(err, &nodeErr):
		return nodeErr.NodeID
	case errors.As(err, &dangling):
		return dangling.NodeID
	case errors.As(err, &ambiguous):
		return ambiguous.NodeID
	case errors.As(err, &stepErr):
		return stepErr.NodeID
	case errors.As(err, &cancelErr):
		return cancelErr.NodeID
	case errors.As(err, &panicErr):
		return panicErr.NodeID
	case errors.As(err, &coerceErr):
		return coerceErr.Variable
	case errors.As(err, &validErr):
		return validErr.ID
	case errors.As(err, &notFound):
		return notFound.ID
	case errors.As(err, &conflict):
		return conflict.ID
	case errors.As(err, &checkpoint):
		return checkpoint.NodeID
	}
	return ""
}
