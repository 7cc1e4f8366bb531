package service

import (
	"github.com/randalmurphal/flowchart/pkg/flowchart"
	ferrors "github.com/randalmurphal/flowchart/pkg/flowchart/errors"
)

// SaveRequest stores a flowchart definition.
type SaveRequest struct {
	FlowchartID string                 `json:"flowchartId" validate:"required"`
	Name        string                 `json:"name"`
	Nodes       []flowchart.NodeRecord `json:"nodes" validate:"required,min=2"`
	Edges       []flowchart.EdgeRecord `json:"edges"`
	// ExpectedVersion, when set, makes the save conditional on the stored
	// version (0 means "must not exist yet"). When nil the save replaces
	// whatever is stored.
	ExpectedVersion *int64 `json:"expectedVersion,omitempty" validate:"omitempty,min=0"`
}

// SaveResponse reports the stored version.
type SaveResponse struct {
	OK      bool            `json:"ok"`
	Version int64           `json:"version,omitempty"`
	Error   *ferrors.Detail `json:"error,omitempty"`
}

// InsertNodeRequest splices a node into an existing edge.
// Node.ID may be empty; the service then assigns a random id.
type InsertNodeRequest struct {
	FlowchartID string               `json:"flowchartId" validate:"required"`
	EdgeID      string               `json:"edgeId" validate:"required"`
	Node        flowchart.NodeRecord `json:"node"`
}

// InsertNodeResponse returns the node as stored.
type InsertNodeResponse struct {
	OK           bool                  `json:"ok"`
	InsertedNode *flowchart.NodeRecord `json:"insertedNode,omitempty"`
	Version      int64                 `json:"version,omitempty"`
	Error        *ferrors.Detail       `json:"error,omitempty"`
}

// ExecuteOptions tune a single run.
type ExecuteOptions struct {
	IgnoreBreakpoints bool `json:"ignoreBreakpoints,omitempty"`
	// MaxSteps overrides the service's step budget when positive.
	MaxSteps int `json:"maxSteps,omitempty" validate:"min=0"`
	// RunID names the run; a random id is used when empty.
	RunID string `json:"runId,omitempty"`
	// Inputs supplies INPUT node values, consumed in order per variable.
	Inputs map[string][]any `json:"inputs,omitempty"`
}

// ExecuteRequest runs a stored flowchart.
type ExecuteRequest struct {
	FlowchartID string         `json:"flowchartId" validate:"required"`
	Options     ExecuteOptions `json:"options"`
}

// ResumeRequest continues a run that paused on a breakpoint.
type ResumeRequest struct {
	FlowchartID string `json:"flowchartId" validate:"required"`
	RunID       string `json:"runId" validate:"required"`
	// Inputs supplies INPUT node values for the rest of the run.
	Inputs map[string][]any `json:"inputs,omitempty"`
}

// VariableView is a variable in a response.
type VariableView struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Type  string `json:"type,omitempty"`
}

// ContextView is the execution context in a response.
type ContextView struct {
	Variables []VariableView `json:"variables"`
	Output    []any          `json:"output"`
}

// DiagnosticView is a recovered fault in a response.
type DiagnosticView struct {
	NodeID  string `json:"nodeId"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ExecuteResponse reports the state a run stopped in.
type ExecuteResponse struct {
	OK          bool             `json:"ok"`
	Status      string           `json:"status,omitempty"`
	RunID       string           `json:"runId,omitempty"`
	Steps       int              `json:"steps,omitempty"`
	Current     string           `json:"current,omitempty"`
	Context     *ContextView     `json:"context,omitempty"`
	Diagnostics []DiagnosticView `json:"diagnostics,omitempty"`
	Error       *ferrors.Detail  `json:"error,omitempty"`
}

// NewContextView converts an execution context for a response.
func NewContextView(ec *flowchart.ExecutionContext) *ContextView {
	vars := ec.Variables()
	view := &ContextView{
		Variables: make([]VariableView, len(vars)),
		Output:    ec.Output(),
	}
	for i, v := range vars {
		view.Variables[i] = VariableView{Name: v.Name, Value: v.Value, Type: string(v.DeclaredType)}
	}
	if view.Output == nil {
		view.Output = []any{}
	}
	return view
}

func diagnosticViews(ds []flowchart.Diagnostic) []DiagnosticView {
	if len(ds) == 0 {
		return nil
	}
	out := make([]DiagnosticView, len(ds))
	for i, d := range ds {
		out[i] = DiagnosticView{NodeID: d.NodeID, Kind: d.Kind, Message: d.Message}
	}
	return out
}
