package flowchart

import (
	"fmt"
	"slices"
)

// Warning is a non-fatal finding about a graph that is structurally valid
// but likely to misbehave at run time.
type Warning struct {
	// ID is the node or edge the warning is about.
	ID      string
	Message string
}

// Lint reports findings that do not prevent hydration:
//   - nodes not reachable from START
//   - branching nodes missing an edge for one of their labels
//   - nodes with several edges for the same label
//   - edges whose label the source node never emits
//   - END nodes with outgoing edges
//
// Findings are returned in graph order, so output is deterministic.
func (g *Graph) Lint() []Warning {
	var warnings []Warning

	reachable := g.reachable()
	for _, n := range g.nodes {
		if !reachable[n.ID] {
			warnings = append(warnings, Warning{ID: n.ID, Message: "node is unreachable from start"})
		}
	}

	for _, n := range g.nodes {
		out := g.outgoing[n.ID]
		if n.Type == NodeEnd {
			if len(out) > 0 {
				warnings = append(warnings, Warning{ID: n.ID, Message: "end node has outgoing edges"})
			}
			continue
		}

		labels := n.Type.Labels()
		counts := make(map[string]int, len(out))
		for _, e := range out {
			counts[e.Label()]++
			if !slices.Contains(labels, e.Label()) {
				warnings = append(warnings, Warning{
					ID:      e.ID,
					Message: fmt.Sprintf("%s node %s never emits condition %q", n.Type, n.ID, e.Label()),
				})
			}
		}
		for _, label := range labels {
			switch c := counts[label]; {
			case c == 0:
				warnings = append(warnings, Warning{ID: n.ID, Message: fmt.Sprintf("no outgoing edge for condition %q", label)})
			case c > 1:
				warnings = append(warnings, Warning{ID: n.ID, Message: fmt.Sprintf("%d outgoing edges for condition %q", c, label)})
			}
		}
	}

	return warnings
}

// reachable returns the set of nodes reachable from START, following edges
// of every label.
func (g *Graph) reachable() map[string]bool {
	seen := make(map[string]bool, len(g.nodes))
	if g.start == "" {
		return seen
	}

	queue := []string{g.start}
	seen[g.start] = true
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range g.outgoing[current] {
			if !seen[e.Target] {
				seen[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}
	return seen
}
