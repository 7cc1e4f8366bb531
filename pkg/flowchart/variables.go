package flowchart

import (
	"math"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/randalmurphal/flowchart/pkg/flowchart/expr"
)

// VarType is a variable's declared type.
type VarType string

// Declared variable types.
const (
	VarInt    VarType = "int"
	VarFloat  VarType = "float"
	VarBool   VarType = "bool"
	VarString VarType = "string"
)

// ParseVarType canonicalizes a declared type name. The empty string is
// returned unchanged and means "infer from the literal".
func ParseVarType(s string) (VarType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", true
	case "int", "integer":
		return VarInt, true
	case "float", "double", "number", "real":
		return VarFloat, true
	case "bool", "boolean":
		return VarBool, true
	case "string", "str", "text":
		return VarString, true
	}
	return "", false
}

// InferVarType returns the declared type matching a runtime value.
func InferVarType(v any) VarType {
	switch expr.Normalize(v).(type) {
	case int64:
		return VarInt
	case float64:
		return VarFloat
	case bool:
		return VarBool
	default:
		return VarString
	}
}

// Variable is a named binding in an ExecutionContext.
type Variable struct {
	Name         string
	Value        any
	DeclaredType VarType
}

// Diagnostic kinds.
const (
	// DiagnosticEvaluation records a recovered expression failure.
	DiagnosticEvaluation = "evaluation"
	// DiagnosticRedeclaration records a DECLARE of a name that was already bound.
	DiagnosticRedeclaration = "redeclaration"
)

// Diagnostic is a handler-level fault that did not stop the run.
type Diagnostic struct {
	NodeID     string `json:"nodeId" msgpack:"nodeId"`
	Kind       string `json:"kind" msgpack:"kind"`
	Message    string `json:"message" msgpack:"message"`
	Expression string `json:"expression,omitempty" msgpack:"expression,omitempty"`
}

type binding struct {
	Variable
	seq int
}

// ExecutionContext is the live state of one run: the variable store, the
// append-only output stream, recovered diagnostics and the visited-node trace.
//
// The variable map is the single source of truth; declaration order is
// derived from a per-binding sequence number.
// Variable names are trimmed and NFC-normalized on every access, so
// visually identical names from different editors bind the same variable.
//
// An ExecutionContext belongs to one run and is not safe for concurrent use.
type ExecutionContext struct {
	vars        map[string]*binding
	nextSeq     int
	output      []any
	diagnostics []Diagnostic
	trace       []string
}

// NewExecutionContext creates an empty context.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{vars: make(map[string]*binding)}
}

// CanonicalName returns the normalized form of a variable name.
func CanonicalName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Set overwrites an existing variable's value in place, keeping its declared
// type and position, or appends a new variable whose type is inferred from
// value. Values are not coerced to the declared type.
func (c *ExecutionContext) Set(name string, value any) {
	name = CanonicalName(name)
	value = expr.Normalize(value)
	if b, ok := c.vars[name]; ok {
		b.Value = value
		return
	}
	c.insert(Variable{Name: name, Value: value, DeclaredType: InferVarType(value)})
}

// Declare binds a new variable. If the name is already bound the existing
// binding is kept unchanged and Declare returns false.
func (c *ExecutionContext) Declare(name string, value any, typ VarType) bool {
	name = CanonicalName(name)
	if _, ok := c.vars[name]; ok {
		return false
	}
	c.insert(Variable{Name: name, Value: expr.Normalize(value), DeclaredType: typ})
	return true
}

func (c *ExecutionContext) insert(v Variable) {
	c.vars[v.Name] = &binding{Variable: v, seq: c.nextSeq}
	c.nextSeq++
}

// Get returns a variable's value, or nil (undefined) when it is not bound.
func (c *ExecutionContext) Get(name string) any {
	v, _ := c.Lookup(name)
	return v
}

// Lookup returns a variable's value and whether it is bound.
// It makes ExecutionContext an expr.Scope.
func (c *ExecutionContext) Lookup(name string) (any, bool) {
	b, ok := c.vars[CanonicalName(name)]
	if !ok {
		return nil, false
	}
	return b.Value, true
}

// Has reports whether a variable is bound.
func (c *ExecutionContext) Has(name string) bool {
	_, ok := c.vars[CanonicalName(name)]
	return ok
}

// Variable returns a copy of a binding.
func (c *ExecutionContext) Variable(name string) (Variable, bool) {
	b, ok := c.vars[CanonicalName(name)]
	if !ok {
		return Variable{}, false
	}
	return b.Variable, true
}

// Variables returns copies of all bindings in declaration order.
func (c *ExecutionContext) Variables() []Variable {
	bs := make([]*binding, 0, len(c.vars))
	for _, b := range c.vars {
		bs = append(bs, b)
	}
	slices.SortFunc(bs, func(a, b *binding) int { return a.seq - b.seq })

	out := make([]Variable, len(bs))
	for i, b := range bs {
		out[i] = b.Variable
	}
	return out
}

// Emit appends a value to the output stream.
func (c *ExecutionContext) Emit(value any) {
	c.output = append(c.output, expr.Normalize(value))
}

// Output returns a copy of the output stream.
func (c *ExecutionContext) Output() []any {
	return slices.Clone(c.output)
}

// Diagnostics returns a copy of the recovered faults.
func (c *ExecutionContext) Diagnostics() []Diagnostic {
	return slices.Clone(c.diagnostics)
}

// Trace returns the ids of executed nodes in order.
func (c *ExecutionContext) Trace() []string {
	return slices.Clone(c.trace)
}

func (c *ExecutionContext) addDiagnostic(d Diagnostic) {
	c.diagnostics = append(c.diagnostics, d)
}

func (c *ExecutionContext) visit(nodeID string) {
	c.trace = append(c.trace, nodeID)
}

// VariableRecord is the serializable form of a Variable.
type VariableRecord struct {
	Name         string `json:"name" msgpack:"name"`
	Value        any    `json:"value" msgpack:"value"`
	DeclaredType string `json:"declaredType,omitempty" msgpack:"declaredType,omitempty"`
}

// Snapshot is the serializable form of an ExecutionContext.
type Snapshot struct {
	Variables   []VariableRecord `json:"variables" msgpack:"variables"`
	Output      []any            `json:"output" msgpack:"output"`
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty" msgpack:"diagnostics,omitempty"`
	Trace       []string         `json:"trace,omitempty" msgpack:"trace,omitempty"`
}

// Snapshot captures the context in serializable form.
func (c *ExecutionContext) Snapshot() Snapshot {
	vars := c.Variables()
	s := Snapshot{
		Variables:   make([]VariableRecord, len(vars)),
		Output:      c.Output(),
		Diagnostics: c.Diagnostics(),
		Trace:       c.Trace(),
	}
	if s.Output == nil {
		s.Output = []any{}
	}
	for i, v := range vars {
		s.Variables[i] = VariableRecord{Name: v.Name, Value: v.Value, DeclaredType: string(v.DeclaredType)}
	}
	return s
}

// Restore rebuilds a context from a snapshot. Decoded values are normalized,
// then numbers bound to int or float variables are widened back to the
// declared type, since codecs such as JSON do not keep the distinction.
func Restore(s Snapshot) *ExecutionContext {
	c := NewExecutionContext()
	for _, rec := range s.Variables {
		typ, ok := ParseVarType(rec.DeclaredType)
		if !ok || typ == "" {
			typ = InferVarType(rec.Value)
		}
		value := expr.Normalize(rec.Value)
		switch v := value.(type) {
		case float64:
			if typ == VarInt && v == math.Trunc(v) {
				value = int64(v)
			}
		case int64:
			if typ == VarFloat {
				value = float64(v)
			}
		}
		c.insert(Variable{Name: CanonicalName(rec.Name), Value: value, DeclaredType: typ})
	}
	for _, v := range s.Output {
		c.Emit(v)
	}
	c.diagnostics = slices.Clone(s.Diagnostics)
	c.trace = slices.Clone(s.Trace)
	return c
}
