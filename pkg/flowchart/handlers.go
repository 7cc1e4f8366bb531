package flowchart

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/randalmurphal/flowchart/pkg/flowchart/expr"
	"github.com/randalmurphal/flowchart/pkg/flowchart/observability"
)

// Directive tells the executor which outgoing edge to follow.
type Directive struct {
	// Next is the branch label to follow: "auto", "true" or "false".
	Next string
}

var autoDirective = Directive{Next: ConditionAuto}

// Handler executes one node against the run's ExecutionContext and returns
// the branch label to follow. A returned error fails the run.
//
// Handlers mutate variables only through the ExecutionContext API.
type Handler func(rc RunContext, node *Node, ec *ExecutionContext) (Directive, error)

// Handlers maps node types to handlers. It is safe for concurrent use.
type Handlers struct {
	mu      sync.RWMutex
	entries map[NodeType]Handler
}

// NewHandlers creates an empty handler table.
func NewHandlers() *Handlers {
	return &Handlers{entries: make(map[NodeType]Handler)}
}

// DefaultHandlers returns a table with the built-in handler for every node type.
func DefaultHandlers() *Handlers {
	h := NewHandlers()
	h.Register(NodeStart, NoopHandler)
	h.Register(NodeEnd, NoopHandler)
	h.Register(NodeDeclare, DeclareHandler)
	h.Register(NodeAssign, AssignHandler)
	h.Register(NodeOutput, OutputHandler)
	h.Register(NodeInput, InputHandler)
	h.Register(NodeCondition, ConditionHandler)
	return h
}

// Register adds or replaces the handler for a node type.
func (h *Handlers) Register(t NodeType, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[t] = fn
}

// Get returns the handler for a node type and whether it exists.
func (h *Handlers) Get(t NodeType) (Handler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.entries[t]
	return fn, ok
}

// Types returns the registered node types, sorted.
func (h *Handlers) Types() []NodeType {
	h.mu.RLock()
	defer h.mu.RUnlock()
	types := make([]NodeType, 0, len(h.entries))
	for t := range h.entries {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Clone returns an independent copy of the table.
func (h *Handlers) Clone() *Handlers {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c := NewHandlers()
	for t, fn := range h.entries {
		c.entries[t] = fn
	}
	return c
}

// NoopHandler does nothing and follows the "auto" edge. START and END use it.
func NoopHandler(RunContext, *Node, *ExecutionContext) (Directive, error) {
	return autoDirective, nil
}

// DeclareHandler binds a new variable from the node's name, value and
// varType, coercing the literal to the declared type.
//
// Declaring a name that is already bound keeps the existing binding; the
// redeclaration is recorded as a diagnostic.
func DeclareHandler(rc RunContext, node *Node, ec *ExecutionContext) (Directive, error) {
	d := node.Declaration()
	name, err := variableName(d.Name)
	if err != nil {
		return Directive{}, err
	}

	var (
		value any
		typ   VarType
	)
	if d.HasValue {
		value, typ, err = coerceDeclared(name, d.Value, d.VarType)
		if err != nil {
			return Directive{}, err
		}
	} else {
		var ok bool
		if typ, ok = ParseVarType(d.VarType); !ok {
			return Directive{}, &TypeCoercionError{Variable: name, VarType: d.VarType, Err: fmt.Errorf("unknown type %q", d.VarType)}
		}
	}

	if !ec.Declare(name, value, typ) {
		msg := fmt.Sprintf("variable %s is already declared; keeping its current value", name)
		ec.addDiagnostic(Diagnostic{NodeID: node.ID, Kind: DiagnosticRedeclaration, Message: msg})
		rc.Logger().Warn("variable redeclared", slog.String("variable", name))
	}
	return autoDirective, nil
}

// AssignHandler evaluates the node's expression and stores the result.
// Evaluation failures are fatal.
func AssignHandler(rc RunContext, node *Node, ec *ExecutionContext) (Directive, error) {
	variable, expression := node.Assignment()
	name, err := variableName(variable)
	if err != nil {
		return Directive{}, err
	}
	v, err := rc.Evaluator().Evaluate(expression, ec)
	if err != nil {
		return Directive{}, err
	}
	ec.Set(name, v)
	return autoDirective, nil
}

// OutputHandler resolves the node's trimmed message with three rules, tried
// in order:
//
//  1. the text exactly names a bound variable: emit its value
//  2. the text contains "=": split on the first "=", evaluate the right side,
//     assign it to the name on the left, emit nothing
//  3. otherwise: emit the text literally
//
// This precedence is a known source of surprise. A literal that happens to
// equal a variable name prints the variable, and any literal containing "="
// (including "a == b") is treated as an assignment. It is kept exactly as
// flowchart authors have come to rely on it.
//
// Failures in rule 2 never stop the run: they are logged, recorded as a
// diagnostic, and execution continues on the "auto" edge.
func OutputHandler(rc RunContext, node *Node, ec *ExecutionContext) (Directive, error) {
	text := strings.TrimSpace(node.Message())

	if text != "" && ec.Has(text) {
		ec.Emit(ec.Get(text))
		return autoDirective, nil
	}

	if lhs, rhs, found := strings.Cut(text, "="); found {
		name := CanonicalName(lhs)
		if !expr.IsIdentifier(name) {
			outputFault(rc, node, ec, text, &expr.EvaluationError{
				Expr: text,
				Pos:  -1,
				Err:  fmt.Errorf("%w: %q is not an assignable name", expr.ErrSyntax, strings.TrimSpace(lhs)),
			})
			return autoDirective, nil
		}
		v, err := rc.Evaluator().Evaluate(strings.TrimSpace(rhs), ec)
		if err != nil {
			outputFault(rc, node, ec, text, err)
			return autoDirective, nil
		}
		ec.Set(name, v)
		return autoDirective, nil
	}

	ec.Emit(text)
	return autoDirective, nil
}

func outputFault(rc RunContext, node *Node, ec *ExecutionContext, text string, err error) {
	observability.LogEvaluationFault(rc.Logger(), node.ID, text, err)
	rc.Metrics().RecordEvaluationFault(rc, string(node.Type))
	ec.addDiagnostic(Diagnostic{
		NodeID:     node.ID,
		Kind:       DiagnosticEvaluation,
		Message:    err.Error(),
		Expression: text,
	})
}

// ConditionHandler evaluates the node's expression and follows the "true"
// edge when the result is truthy, the "false" edge otherwise.
func ConditionHandler(rc RunContext, node *Node, ec *ExecutionContext) (Directive, error) {
	ok, err := rc.Evaluator().EvaluateBool(node.Expression(), ec)
	if err != nil {
		return Directive{}, err
	}
	if ok {
		return Directive{Next: ConditionTrue}, nil
	}
	return Directive{Next: ConditionFalse}, nil
}

// InputHandler reads a value from the run's InputSource, coerces it to the
// node's varType and binds it: a new variable is declared, an existing one is
// overwritten.
func InputHandler(rc RunContext, node *Node, ec *ExecutionContext) (Directive, error) {
	variable, varType, prompt := node.InputBinding()
	name, err := variableName(variable)
	if err != nil {
		return Directive{}, err
	}

	src := rc.Inputs()
	if src == nil {
		return Directive{}, fmt.Errorf("%w: %s (no input source configured)", ErrInputUnavailable, name)
	}
	raw, err := src.Input(rc, name, prompt)
	if err != nil {
		return Directive{}, err
	}

	value, typ, err := coerceDeclared(name, raw, varType)
	if err != nil {
		return Directive{}, err
	}
	if !ec.Declare(name, value, typ) {
		ec.Set(name, value)
	}
	return autoDirective, nil
}

func variableName(raw string) (string, error) {
	name := CanonicalName(raw)
	if !expr.IsIdentifier(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVariableName, raw)
	}
	return name, nil
}
