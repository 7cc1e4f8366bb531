package flowchart

import (
	"fmt"
	"maps"
	"slices"
)

// InsertOption configures InsertNodeOnEdge.
type InsertOption func(*insertConfig)

type insertConfig struct {
	inEdgeID  string
	outEdgeID string
}

// WithEdgeIDs sets explicit ids for the two edges created by an insert:
// in (source -> new node) and out (new node -> target). Empty values fall back
// to generated ids.
func WithEdgeIDs(in, out string) InsertOption {
	return func(c *insertConfig) {
		c.inEdgeID = in
		c.outEdgeID = out
	}
}

// InsertNodeOnEdge splits an edge by inserting a new node into it.
//
// Given edge e = (source -> target, condition c), the graph afterwards has
// (source -> node, c) in e's position, (node -> target, "auto") appended to
// the edge list, and node appended to the node list. Nothing else changes.
//
// Errors, checked before anything is modified:
//   - *NotFoundError if edgeID does not exist
//   - *ValidationError if the node has no id, an unknown type, or is a START/END node
//   - *ConflictError if the node id, or an explicit edge id, already exists
//
// Generated edge ids follow the editor convention "e<source>-<target>",
// with "-2", "-3", ... appended on collision.
func (g *Graph) InsertNodeOnEdge(edgeID string, node Node, opts ...InsertOption) (*Node, error) {
	cfg := insertConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	split, ok := g.edgeByID[edgeID]
	if !ok {
		return nil, &NotFoundError{Kind: "edge", ID: edgeID}
	}

	if node.ID == "" {
		return nil, &ValidationError{ID: "node", Field: "id", Err: ErrMissingField}
	}
	typ, err := ParseNodeType(string(node.Type))
	if err != nil {
		return nil, &ValidationError{ID: node.ID, Field: "type", Err: err}
	}
	switch typ {
	case NodeStart:
		return nil, &ValidationError{ID: node.ID, Field: "type", Err: ErrMultipleStart}
	case NodeEnd:
		return nil, &ValidationError{ID: node.ID, Field: "type", Err: ErrMultipleEnd}
	}
	if g.HasNode(node.ID) {
		return nil, &ConflictError{Kind: "node", ID: node.ID}
	}

	// The split edge's id is released by the insert and may be reused.
	taken := func(id string) bool {
		if id == split.ID {
			return false
		}
		_, exists := g.edgeByID[id]
		return exists
	}

	inID, outID := cfg.inEdgeID, cfg.outEdgeID
	for _, id := range []string{inID, outID} {
		if id != "" && taken(id) {
			return nil, &ConflictError{Kind: "edge", ID: id}
		}
	}
	if inID != "" && inID == outID {
		return nil, &ConflictError{Kind: "edge", ID: outID}
	}
	if inID == "" {
		inID = uniqueEdgeID(split.Source, node.ID, func(id string) bool { return taken(id) || id == outID })
	}
	if outID == "" {
		outID = uniqueEdgeID(node.ID, split.Target, func(id string) bool { return taken(id) || id == inID })
	}

	inserted := &Node{ID: node.ID, Type: typ, Data: maps.Clone(node.Data), wireType: node.WireType()}
	idx := slices.Index(g.edges, split)

	g.edges[idx] = &Edge{ID: inID, Source: split.Source, Target: inserted.ID, Condition: split.Condition}
	g.edges = append(g.edges, &Edge{ID: outID, Source: inserted.ID, Target: split.Target, Condition: ConditionAuto})
	g.nodes = append(g.nodes, inserted)
	g.reindex()

	return inserted, nil
}

func uniqueEdgeID(source, target string, taken func(string) bool) string {
	base := fmt.Sprintf("e%s-%s", source, target)
	id := base
	for i := 2; taken(id); i++ {
		id = fmt.Sprintf("%s-%d", base, i)
	}
	return id
}
