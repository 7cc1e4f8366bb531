package flowchart

import (
	"fmt"
	"maps"
	"strings"

	"github.com/randalmurphal/flowchart/pkg/flowchart/expr"
)

// NodeType identifies a node's execution semantics.
type NodeType string

// Supported node types. Wire payloads may spell them in any case; they are
// stored in this canonical lowercase form.
const (
	NodeStart     NodeType = "start"
	NodeEnd       NodeType = "end"
	NodeDeclare   NodeType = "declare"
	NodeAssign    NodeType = "assign"
	NodeOutput    NodeType = "output"
	NodeInput     NodeType = "input"
	NodeCondition NodeType = "condition"
)

var nodeTypes = map[NodeType]bool{
	NodeStart:     true,
	NodeEnd:       true,
	NodeDeclare:   true,
	NodeAssign:    true,
	NodeOutput:    true,
	NodeInput:     true,
	NodeCondition: true,
}

// ParseNodeType canonicalizes a wire type name.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(strings.ToLower(strings.TrimSpace(s)))
	if !nodeTypes[t] {
		return "", fmt.Errorf("%w: %q", ErrUnknownNodeType, s)
	}
	return t, nil
}

// Branching reports whether nodes of this type emit labels other than "auto".
func (t NodeType) Branching() bool {
	return t == NodeCondition
}

// Labels returns the branch labels a node of this type can emit.
func (t NodeType) Labels() []string {
	if t.Branching() {
		return []string{ConditionTrue, ConditionFalse}
	}
	return []string{ConditionAuto}
}

// Node is a single step of a flowchart program.
// Data holds the type-specific payload verbatim; the accessor methods below
// read it with the key fallbacks editors are known to produce.
type Node struct {
	ID   string
	Type NodeType
	Data map[string]any

	// wireType is the type as spelled in the payload the node came from.
	wireType string
}

// WireType returns the type as it was spelled on the wire, falling back to
// the canonical name for nodes built in code.
func (n *Node) WireType() string {
	if n.wireType != "" {
		return n.wireType
	}
	return string(n.Type)
}

// Clone returns a copy of the node with a shallow copy of its data map.
func (n *Node) Clone() *Node {
	return &Node{ID: n.ID, Type: n.Type, Data: maps.Clone(n.Data), wireType: n.wireType}
}

// Breakpoint reports whether the node carries a breakpoint flag.
func (n *Node) Breakpoint() bool {
	switch v := n.Data["breakpoint"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// Declaration is the DECLARE payload.
type Declaration struct {
	Name     string
	Value    any
	HasValue bool
	VarType  string
}

// Declaration reads the DECLARE payload.
func (n *Node) Declaration() Declaration {
	v, ok := n.Data["value"]
	return Declaration{
		Name:     n.text("name", "variable"),
		Value:    v,
		HasValue: ok && v != nil,
		VarType:  n.text("varType", "type"),
	}
}

// Assignment reads the ASSIGN payload: target variable and expression text.
func (n *Node) Assignment() (variable, expression string) {
	return n.text("variable", "name"), n.text("value", "expression")
}

// Message reads the OUTPUT payload.
func (n *Node) Message() string {
	return n.text("message", "value", "text")
}

// Expression reads the CONDITION payload.
func (n *Node) Expression() string {
	return n.text("expression", "condition", "value")
}

// InputBinding reads the INPUT payload.
func (n *Node) InputBinding() (variable, varType, prompt string) {
	return n.text("variable", "name"), n.text("varType", "type"), n.text("prompt")
}

// text returns the first present key as a string. Non-string scalars are
// rendered the way the expression language prints them.
func (n *Node) text(keys ...string) string {
	for _, k := range keys {
		v, ok := n.Data[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
		return expr.FormatValue(v)
	}
	return ""
}
