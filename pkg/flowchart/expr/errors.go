package expr

import (
	"errors"
	"fmt"
)

// Sentinel errors for expression evaluation.
var (
	// ErrSyntax indicates the expression text could not be parsed.
	ErrSyntax = errors.New("syntax error")

	// ErrUndefinedVariable indicates a reference to a name with no binding.
	ErrUndefinedVariable = errors.New("undefined variable")

	// ErrTypeMismatch indicates an operator was applied to unsupported operand types.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDivisionByZero indicates integer or float division (or modulo) by zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrIntegerOverflow indicates an integer result outside the int64 range.
	ErrIntegerOverflow = errors.New("integer overflow")

	// ErrTooComplex indicates the expression exceeds the evaluator's length or depth limits.
	ErrTooComplex = errors.New("expression too complex")
)

// EvaluationError is returned for every failure to parse or evaluate an
// expression. It carries the offending expression text.
type EvaluationError struct {
	// Expr is the full expression text.
	Expr string
	// Pos is the byte offset of the failure, or -1 when not positional.
	Pos int
	// Err is the underlying cause (one of the sentinels above, possibly wrapped).
	Err error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("evaluate %q at offset %d: %v", e.Expr, e.Pos, e.Err)
	}
	return fmt.Sprintf("evaluate %q: %v", e.Expr, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *EvaluationError) Unwrap() error {
	return e.Err
}

func syntaxErr(pos int, format string, args ...any) error {
	return &posError{pos: pos, err: fmt.Errorf("%w: "+format, append([]any{ErrSyntax}, args...)...)}
}

// posError carries a position from the lexer/parser up to Evaluate, which
// wraps it into an EvaluationError with the expression text.
type posError struct {
	pos int
	err error
}

func (e *posError) Error() string { return e.err.Error() }
func (e *posError) Unwrap() error { return e.err }
