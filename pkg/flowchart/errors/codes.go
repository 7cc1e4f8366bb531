package errors

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/randalmurphal/flowchart/pkg/flowchart"
	"github.com/randalmurphal/flowchart/pkg/flowchart/checkpoint"
	"github.com/randalmurphal/flowchart/pkg/flowchart/expr"
	"github.com/randalmurphal/flowchart/pkg/flowchart/store"
)

// Code is a stable, machine-readable error identifier for responses.
type Code string

// Response codes.
const (
	CodeInvalidRequest         Code = "INVALID_REQUEST"
	CodeInvalidGraph           Code = "INVALID_GRAPH"
	CodeNotFound               Code = "NOT_FOUND"
	CodeConflict               Code = "CONFLICT"
	CodeVersionConflict        Code = "VERSION_CONFLICT"
	CodeCheckpointIncompatible Code = "CHECKPOINT_INCOMPATIBLE"
	CodeTypeCoercion           Code = "TYPE_COERCION"
	CodeEvaluation             Code = "EVALUATION_ERROR"
	CodeInputUnavailable       Code = "INPUT_UNAVAILABLE"
	CodeDanglingEdge           Code = "DANGLING_EDGE"
	CodeAmbiguousEdge          Code = "AMBIGUOUS_EDGE"
	CodeStepLimit              Code = "STEP_LIMIT_EXCEEDED"
	CodeCancelled              Code = "CANCELLED"
	CodeDeadlineExceeded       Code = "DEADLINE_EXCEEDED"
	CodeUnavailable            Code = "UNAVAILABLE"
	CodeCheckpoint             Code = "CHECKPOINT_ERROR"
	CodePanic                  Code = "PANIC"
	CodeInternal               Code = "INTERNAL"
)

// Classify maps err onto a category and a response code.
// Unknown errors are internal (fail safe).
func Classify(err error) (Category, Code) {
	if err == nil {
		return CategoryInternal, CodeInternal
	}

	// Explicit categories win, but the code still comes from the cause.
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		_, code := Classify(catErr.Err)
		if code == CodeInternal {
			code = defaultCode(catErr.Category)
		}
		return catErr.Category, code
	}

	var (
		valErrs   validator.ValidationErrors
		graphErr  *flowchart.ValidationError
		notFound  *flowchart.NotFoundError
		conflict  *flowchart.ConflictError
		coerceErr *flowchart.TypeCoercionError
		evalErr   *expr.EvaluationError
		dangling  *flowchart.DanglingEdgeError
		ambiguous *flowchart.AmbiguousEdgeError
		stepErr   *flowchart.StepLimitError
		cancelErr *flowchart.CancellationError
		panicErr  *flowchart.PanicError
		cpErr     *flowchart.CheckpointError
	)
	switch {
	case errors.As(err, &valErrs), errors.Is(err, ErrInvalidRequest):
		return CategoryInvalid, CodeInvalidRequest
	case errors.As(err, &graphErr):
		return CategoryInvalid, CodeInvalidGraph

	case errors.Is(err, store.ErrVersionConflict):
		return CategoryConflict, CodeVersionConflict
	case errors.As(err, &conflict):
		return CategoryConflict, CodeConflict

	case errors.Is(err, store.ErrNotFound), errors.Is(err, flowchart.ErrNoCheckpoint), errors.As(err, &notFound):
		return CategoryNotFound, CodeNotFound

	case errors.Is(err, flowchart.ErrInvalidResumeNode),
		errors.Is(err, flowchart.ErrCheckpointVersionMismatch),
		errors.Is(err, checkpoint.ErrUnknownEncoding):
		return CategoryInvalid, CodeCheckpointIncompatible

	case errors.As(err, &panicErr):
		return CategoryInternal, CodePanic
	case errors.As(err, &coerceErr):
		return CategoryRuntime, CodeTypeCoercion
	case errors.As(err, &evalErr):
		return CategoryRuntime, CodeEvaluation
	case errors.Is(err, flowchart.ErrInputUnavailable):
		return CategoryRuntime, CodeInputUnavailable
	case errors.As(err, &dangling):
		return CategoryRuntime, CodeDanglingEdge
	case errors.As(err, &ambiguous):
		return CategoryRuntime, CodeAmbiguousEdge
	case errors.As(err, &stepErr):
		return CategoryRuntime, CodeStepLimit
	case errors.As(err, &cancelErr):
		if errors.Is(cancelErr.Cause, context.DeadlineExceeded) {
			return CategoryRuntime, CodeDeadlineExceeded
		}
		return CategoryRuntime, CodeCancelled

	case pgconn.SafeToRetry(err), pgconn.Timeout(err):
		return CategoryTransient, CodeUnavailable
	case errors.As(err, &cpErr):
		return CategoryInternal, CodeCheckpoint
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTransient, CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return CategoryInternal, CodeCancelled
	}
	return CategoryInternal, CodeInternal
}

// CodeOf returns the response code for err.
func CodeOf(err error) Code {
	_, code := Classify(err)
	return code
}

func defaultCode(c Category) Code {
	switch c {
	case CategoryInvalid:
		return CodeInvalidRequest
	case CategoryNotFound:
		return CodeNotFound
	case CategoryConflict:
		return CodeConflict
	case CategoryTransient:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// Detail is the response form of an error.
type Detail struct {
	Code     Code   `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
	// NodeID names the node or edge the failure is attributed to, if any.
	NodeID string `json:"nodeId,omitempty"`
}

// Describe builds the response form of err. It returns nil for a nil error.
func Describe(err error) *Detail {
	if err == nil {
		return nil
	}
	cat, code := Classify(err)
	msg := err
	if c, ok := err.(*CategorizedError); ok && c.Err != nil {
		msg = c.Err
	}
	return &Detail{
		Code:     code,
		Category: cat.String(),
		Message:  msg.Error(),
		NodeID:   flowchart.FaultNodeID(err),
	}
}
