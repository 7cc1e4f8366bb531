package expr

import (
	"fmt"
	"math"
	"sync"
)

const (
	defaultMaxDepth  = 64
	defaultMaxLength = 4096
)

// Scope resolves variable names for an evaluation. Only names the scope
// reports as bound are visible to an expression.
type Scope interface {
	Lookup(name string) (any, bool)
}

// MapScope is a Scope backed by a plain map.
type MapScope map[string]any

// Lookup implements Scope.
func (m MapScope) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Evaluator parses and evaluates expressions. Parsed trees are cached by
// source text, so an Evaluator is cheap to reuse across a run.
// An Evaluator is safe for concurrent use.
type Evaluator struct {
	maxDepth  int
	maxLength int
	cache     sync.Map // string -> Node
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxDepth limits operator nesting depth. Default: 64.
func WithMaxDepth(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithMaxLength limits expression length in bytes. Default: 4096.
func WithMaxLength(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxLength = n
		}
	}
}

// New creates a new Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{maxDepth: defaultMaxDepth, maxLength: defaultMaxLength}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate parses src and evaluates it against scope.
// Every failure is returned as *EvaluationError carrying src.
func (e *Evaluator) Evaluate(src string, scope Scope) (any, error) {
	n, err := e.compile(src)
	if err != nil {
		return nil, err
	}
	v, err := eval(n, scope)
	if err != nil {
		return nil, wrap(src, err)
	}
	return v, nil
}

// EvaluateBool evaluates src and reduces the result to its truthiness.
func (e *Evaluator) EvaluateBool(src string, scope Scope) (bool, error) {
	v, err := e.Evaluate(src, scope)
	if err != nil {
		return false, err
	}
	return IsTruthy(v), nil
}

// Eval is a convenience function that evaluates an expression using
// a default evaluator.
func Eval(src string, vars map[string]any) (any, error) {
	return New().Evaluate(src, MapScope(vars))
}

func (e *Evaluator) compile(src string) (Node, error) {
	if len(src) > e.maxLength {
		return nil, &EvaluationError{Expr: src, Pos: -1, Err: fmt.Errorf("%w: longer than %d bytes", ErrTooComplex, e.maxLength)}
	}
	if n, ok := e.cache.Load(src); ok {
		return n.(Node), nil
	}
	n, err := parse(src, e.maxDepth)
	if err != nil {
		return nil, err
	}
	e.cache.Store(src, n)
	return n, nil
}

func eval(n Node, scope Scope) (any, error) {
	switch n := n.(type) {
	case Literal:
		return n.Value, nil
	case Ident:
		if scope == nil {
			return nil, &posError{pos: n.Pos, err: fmt.Errorf("%w: %s", ErrUndefinedVariable, n.Name)}
		}
		v, ok := scope.Lookup(n.Name)
		if !ok {
			return nil, &posError{pos: n.Pos, err: fmt.Errorf("%w: %s", ErrUndefinedVariable, n.Name)}
		}
		return Normalize(v), nil
	case Unary:
		x, err := eval(n.X, scope)
		if err != nil {
			return nil, err
		}
		return unary(n.Op, x)
	case Binary:
		return binary(n, scope)
	default:
		return nil, fmt.Errorf("%w: unknown node %T", ErrSyntax, n)
	}
}

func unary(op string, x any) (any, error) {
	if op == "!" {
		return !IsTruthy(x), nil
	}
	i, f, isInt, ok := numeric(x)
	if !ok {
		return nil, fmt.Errorf("%w: %s%s", ErrTypeMismatch, op, TypeName(x))
	}
	if op == "+" {
		return x, nil
	}
	if isInt {
		if i == math.MinInt64 {
			return nil, fmt.Errorf("%w: -(%d)", ErrIntegerOverflow, i)
		}
		return -i, nil
	}
	return -f, nil
}

func binary(n Binary, scope Scope) (any, error) {
	l, err := eval(n.L, scope)
	if err != nil {
		return nil, err
	}

	// && and || short-circuit and yield booleans.
	switch n.Op {
	case "&&":
		if !IsTruthy(l) {
			return false, nil
		}
		r, err := eval(n.R, scope)
		if err != nil {
			return nil, err
		}
		return IsTruthy(r), nil
	case "||":
		if IsTruthy(l) {
			return true, nil
		}
		r, err := eval(n.R, scope)
		if err != nil {
			return nil, err
		}
		return IsTruthy(r), nil
	}

	r, err := eval(n.R, scope)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "==", "!=", "<", ">", "<=", ">=":
		ok, err := Compare(l, r, n.Op)
		if err != nil {
			return nil, &posError{pos: n.Pos, err: err}
		}
		return ok, nil
	default:
		v, err := arithmetic(n.Op, l, r)
		if err != nil {
			return nil, &posError{pos: n.Pos, err: err}
		}
		return v, nil
	}
}
