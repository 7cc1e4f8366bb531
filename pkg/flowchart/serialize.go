package flowchart

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Payload is the wire form of a flowchart.
type Payload struct {
	Nodes []NodeRecord `json:"nodes" yaml:"nodes" msgpack:"nodes" validate:"dive"`
	Edges []EdgeRecord `json:"edges" yaml:"edges" msgpack:"edges" validate:"dive"`
}

// NodeRecord is the wire form of a node.
type NodeRecord struct {
	ID   string         `json:"id" yaml:"id" msgpack:"id" validate:"required"`
	Type string         `json:"type" yaml:"type" msgpack:"type" validate:"required"`
	Data map[string]any `json:"data" yaml:"data" msgpack:"data"`
}

// EdgeRecord is the wire form of an edge.
type EdgeRecord struct {
	ID        string `json:"id" yaml:"id" msgpack:"id" validate:"required"`
	Source    string `json:"source" yaml:"source" msgpack:"source" validate:"required"`
	Target    string `json:"target" yaml:"target" msgpack:"target" validate:"required"`
	Condition string `json:"condition" yaml:"condition" msgpack:"condition"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// HydrateOption configures Hydrate.
type HydrateOption func(*hydrateConfig)

type hydrateConfig struct {
	logger *slog.Logger
}

// WithLintLogger sets the logger that receives lint warnings
// (unreachable nodes, incomplete branches). Default: slog.Default().
// Pass nil to silence them.
func WithLintLogger(logger *slog.Logger) HydrateOption {
	return func(c *hydrateConfig) {
		c.logger = logger
	}
}

// Hydrate validates a payload and builds a Graph from it.
// Returns an error if validation fails. Every problem is reported as a
// *ValidationError naming the offending id, joined together.
//
// Validation checks:
//  1. Every record has an id; nodes have a type; edges have both endpoints
//  2. Node types are known
//  3. Node ids and edge ids are unique
//  4. Every edge endpoint names an existing node
//  5. Exactly one START and one END node
//
// Lint findings (see Graph.Lint) are logged as warnings but do not cause
// hydration to fail.
func Hydrate(p Payload, opts ...HydrateOption) (*Graph, error) {
	cfg := hydrateConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	errs := recordErrors(p)

	g := &Graph{
		nodes: make([]*Node, 0, len(p.Nodes)),
		edges: make([]*Edge, 0, len(p.Edges)),
	}
	seenNodes := make(map[string]bool, len(p.Nodes))
	var starts, ends []string

	for _, rec := range p.Nodes {
		if rec.ID == "" || rec.Type == "" {
			continue // reported by recordErrors
		}
		if seenNodes[rec.ID] {
			errs = append(errs, &ValidationError{ID: rec.ID, Field: "id", Err: ErrDuplicateID})
			continue
		}
		seenNodes[rec.ID] = true

		typ, err := ParseNodeType(rec.Type)
		if err != nil {
			errs = append(errs, &ValidationError{ID: rec.ID, Field: "type", Err: err})
			continue
		}
		switch typ {
		case NodeStart:
			starts = append(starts, rec.ID)
		case NodeEnd:
			ends = append(ends, rec.ID)
		}
		g.nodes = append(g.nodes, &Node{ID: rec.ID, Type: typ, Data: maps.Clone(rec.Data), wireType: rec.Type})
	}

	switch {
	case len(starts) == 0:
		errs = append(errs, &ValidationError{ID: "graph", Err: ErrMissingStart})
	case len(starts) > 1:
		errs = append(errs, &ValidationError{ID: starts[1], Field: "type", Err: ErrMultipleStart})
	}
	switch {
	case len(ends) == 0:
		errs = append(errs, &ValidationError{ID: "graph", Err: ErrMissingEnd})
	case len(ends) > 1:
		errs = append(errs, &ValidationError{ID: ends[1], Field: "type", Err: ErrMultipleEnd})
	}

	seenEdges := make(map[string]bool, len(p.Edges))
	for _, rec := range p.Edges {
		if rec.ID == "" || rec.Source == "" || rec.Target == "" {
			continue
		}
		if seenEdges[rec.ID] {
			errs = append(errs, &ValidationError{ID: rec.ID, Field: "id", Err: ErrDuplicateID})
			continue
		}
		seenEdges[rec.ID] = true

		if !seenNodes[rec.Source] {
			errs = append(errs, &ValidationError{ID: rec.ID, Field: "source", Err: fmt.Errorf("%w: %s", ErrUnknownEndpoint, rec.Source)})
			continue
		}
		if !seenNodes[rec.Target] {
			errs = append(errs, &ValidationError{ID: rec.ID, Field: "target", Err: fmt.Errorf("%w: %s", ErrUnknownEndpoint, rec.Target)})
			continue
		}
		g.edges = append(g.edges, &Edge{ID: rec.ID, Source: rec.Source, Target: rec.Target, Condition: rec.Condition})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g.reindex()
	if cfg.logger != nil {
		for _, w := range g.Lint() {
			cfg.logger.Warn("flowchart lint", slog.String("id", w.ID), slog.String("warning", w.Message))
		}
	}
	return g, nil
}

// recordErrors runs struct-tag validation and names each failure by the
// offending record's id, or by its position when the id itself is missing.
func recordErrors(p Payload) []error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []error{&ValidationError{ID: "payload", Err: err}}
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, &ValidationError{
			ID:    recordName(p, fe.Namespace()),
			Field: fe.Field(),
			Err:   ErrMissingField,
		})
	}
	return errs
}

// recordName maps a validator namespace like "Payload.edges[3].source" to
// the record's id, falling back to "edges[3]".
func recordName(p Payload, namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) < 2 {
		return namespace
	}
	ref := parts[1]
	open := strings.IndexByte(ref, '[')
	if open < 0 || !strings.HasSuffix(ref, "]") {
		return ref
	}
	idx, err := strconv.Atoi(ref[open+1 : len(ref)-1])
	if err != nil {
		return ref
	}
	switch ref[:open] {
	case "nodes":
		if idx < len(p.Nodes) && p.Nodes[idx].ID != "" {
			return p.Nodes[idx].ID
		}
	case "edges":
		if idx < len(p.Edges) && p.Edges[idx].ID != "" {
			return p.Edges[idx].ID
		}
	}
	return ref
}

// Dehydrate converts a Graph back to its wire form, preserving node and edge
// order, node data and the spelling of node types verbatim.
func Dehydrate(g *Graph) Payload {
	p := Payload{
		Nodes: make([]NodeRecord, len(g.nodes)),
		Edges: make([]EdgeRecord, len(g.edges)),
	}
	for i, n := range g.nodes {
		p.Nodes[i] = NodeRecord{ID: n.ID, Type: n.WireType(), Data: maps.Clone(n.Data)}
	}
	for i, e := range g.edges {
		p.Edges[i] = EdgeRecord{ID: e.ID, Source: e.Source, Target: e.Target, Condition: e.Condition}
	}
	return p
}

// DecodePayload parses a JSON payload.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("parse json payload: %w", err)
	}
	return p, nil
}

// DecodeYAMLPayload parses a YAML payload.
func DecodeYAMLPayload(data []byte) (Payload, error) {
	var p Payload
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("parse yaml payload: %w", err)
	}
	return p, nil
}

// EncodePayload renders a payload as indented JSON.
func EncodePayload(p Payload) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
