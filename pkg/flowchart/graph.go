package flowchart

import "slices"

// Graph is a hydrated flowchart: nodes and labeled edges in wire order, plus
// id and adjacency indexes derived from them.
//
// A Graph is read-only during execution, so any number of Executors may
// traverse it concurrently. InsertNodeOnEdge mutates it in place and must not
// run while an Executor holds the graph.
//
// Graphs are created by Hydrate (or Builder.Build); the zero value is not usable.
type Graph struct {
	nodes []*Node
	edges []*Edge

	// Derived from nodes/edges by reindex; never edited directly.
	nodeByID map[string]*Node
	edgeByID map[string]*Edge
	outgoing map[string][]*Edge
	start    string
	end      string
}

// reindex rebuilds every derived index from the ordered lists.
func (g *Graph) reindex() {
	g.nodeByID = make(map[string]*Node, len(g.nodes))
	g.edgeByID = make(map[string]*Edge, len(g.edges))
	g.outgoing = make(map[string][]*Edge, len(g.nodes))
	g.start, g.end = "", ""

	for _, n := range g.nodes {
		g.nodeByID[n.ID] = n
		switch n.Type {
		case NodeStart:
			g.start = n.ID
		case NodeEnd:
			g.end = n.ID
		}
	}
	for _, e := range g.edges {
		g.edgeByID[e.ID] = e
		g.outgoing[e.Source] = append(g.outgoing[e.Source], e)
	}
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodeByID[id]
	return n, ok
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id string) (*Edge, bool) {
	e, ok := g.edgeByID[id]
	return e, ok
}

// Nodes returns the nodes in wire order.
func (g *Graph) Nodes() []*Node {
	return slices.Clone(g.nodes)
}

// Edges returns the edges in wire order.
func (g *Graph) Edges() []*Edge {
	return slices.Clone(g.edges)
}

// Outgoing returns the edges leaving a node, in wire order.
func (g *Graph) Outgoing(nodeID string) []*Edge {
	return slices.Clone(g.outgoing[nodeID])
}

// Start returns the id of the START node.
func (g *Graph) Start() string {
	return g.start
}

// End returns the id of the END node.
func (g *Graph) End() string {
	return g.end
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// HasNode reports whether a node id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeByID[id]
	return ok
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes: make([]*Node, len(g.nodes)),
		edges: make([]*Edge, len(g.edges)),
	}
	for i, n := range g.nodes {
		c.nodes[i] = n.Clone()
	}
	for i, e := range g.edges {
		cp := *e
		c.edges[i] = &cp
	}
	c.reindex()
	return c
}

// next selects the unique outgoing edge of nodeID labeled cond.
func (g *Graph) next(nodeID, cond string) (*Edge, error) {
	var match []*Edge
	for _, e := range g.outgoing[nodeID] {
		if e.Label() == cond {
			match = append(match, e)
		}
	}
	switch len(match) {
	case 0:
		return nil, &DanglingEdgeError{NodeID: nodeID, Condition: cond}
	case 1:
		return match[0], nil
	default:
		ids := make([]string, len(match))
		for i, e := range match {
			ids[i] = e.ID
		}
		return nil, &AmbiguousEdgeError{NodeID: nodeID, Condition: cond, EdgeIDs: ids}
	}
}
