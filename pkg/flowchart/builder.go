package flowchart

// Builder assembles a payload in code. It is the programmatic counterpart
// of a wire payload; Build runs the same validation as Hydrate.
//
// Builder is NOT thread-safe. Use a single goroutine to construct the graph.
//
// Example:
//
//	g, err := flowchart.NewBuilder().
//	    Start("start").
//	    Declare("d", "x", "2", "int").
//	    Output("o", "x").
//	    End("end").
//	    Connect("start", "d").
//	    Connect("d", "o").
//	    Connect("o", "end").
//	    Build()
type Builder struct {
	payload Payload
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Node adds a node of any type with the given data.
func (b *Builder) Node(id string, typ NodeType, data map[string]any) *Builder {
	b.payload.Nodes = append(b.payload.Nodes, NodeRecord{ID: id, Type: string(typ), Data: data})
	return b
}

// Start adds the START node.
func (b *Builder) Start(id string) *Builder {
	return b.Node(id, NodeStart, map[string]any{})
}

// End adds the END node.
func (b *Builder) End(id string) *Builder {
	return b.Node(id, NodeEnd, map[string]any{})
}

// Declare adds a DECLARE node.
func (b *Builder) Declare(id, name string, value any, varType string) *Builder {
	return b.Node(id, NodeDeclare, map[string]any{"name": name, "value": value, "varType": varType})
}

// Assign adds an ASSIGN node.
func (b *Builder) Assign(id, variable, expression string) *Builder {
	return b.Node(id, NodeAssign, map[string]any{"variable": variable, "value": expression})
}

// Output adds an OUTPUT node.
func (b *Builder) Output(id, message string) *Builder {
	return b.Node(id, NodeOutput, map[string]any{"message": message})
}

// Input adds an INPUT node.
func (b *Builder) Input(id, variable, varType string) *Builder {
	return b.Node(id, NodeInput, map[string]any{"variable": variable, "varType": varType})
}

// Condition adds a CONDITION node.
func (b *Builder) Condition(id, expression string) *Builder {
	return b.Node(id, NodeCondition, map[string]any{"expression": expression})
}

// Breakpoint flags an already added node with a breakpoint.
func (b *Builder) Breakpoint(id string) *Builder {
	for i := range b.payload.Nodes {
		if b.payload.Nodes[i].ID == id {
			if b.payload.Nodes[i].Data == nil {
				b.payload.Nodes[i].Data = map[string]any{}
			}
			b.payload.Nodes[i].Data["breakpoint"] = true
		}
	}
	return b
}

// Connect adds an "auto" edge with a generated id.
func (b *Builder) Connect(source, target string) *Builder {
	return b.Branch(source, target, ConditionAuto)
}

// Branch adds an edge with the given condition label and a generated id.
func (b *Builder) Branch(source, target, condition string) *Builder {
	id := "e" + source + "-" + target
	if condition != ConditionAuto {
		id += "-" + condition
	}
	b.payload.Edges = append(b.payload.Edges, EdgeRecord{ID: id, Source: source, Target: target, Condition: condition})
	return b
}

// Payload returns the accumulated payload.
func (b *Builder) Payload() Payload {
	return b.payload
}

// Build validates the accumulated payload and returns the graph.
func (b *Builder) Build(opts ...HydrateOption) (*Graph, error) {
	return Hydrate(b.payload, opts...)
}
