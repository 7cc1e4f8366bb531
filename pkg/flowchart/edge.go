package flowchart

// Branch labels carried on edges.
const (
	// ConditionAuto labels the unconditional edge leaving a non-branching node.
	ConditionAuto = "auto"
	// ConditionTrue labels the edge taken when a CONDITION node evaluates truthy.
	ConditionTrue = "true"
	// ConditionFalse labels the edge taken when a CONDITION node evaluates falsy.
	ConditionFalse = "false"
)

// Edge is a directed, labeled connection between two nodes.
type Edge struct {
	ID        string
	Source    string
	Target    string
	Condition string
}

// Label returns the branch label the edge is selected under. An empty
// condition is treated as "auto".
func (e *Edge) Label() string {
	if e.Condition == "" {
		return ConditionAuto
	}
	return e.Condition
}
