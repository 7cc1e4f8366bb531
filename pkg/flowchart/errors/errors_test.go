package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowchart/pkg/flowchart"
	"github.com/randalmurphal/flowchart/pkg/flowchart/checkpoint"
	"github.com/randalmurphal/flowchart/pkg/flowchart/expr"
	"github.com/randalmurphal/flowchart/pkg/flowchart/store"
)

// fast keeps retry tests quick.
var fast = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     2 * time.Millisecond,
	BackoffFactor:  2,
}

func validationErrors() error {
	type req struct {
		ID string `validate:"required"`
	}
	return validator.New().Struct(req{})
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		expected string
	}{
		{CategoryInternal, "internal"},
		{CategoryInvalid, "invalid"},
		{CategoryNotFound, "not_found"},
		{CategoryConflict, "conflict"},
		{CategoryTransient, "transient"},
		{CategoryRuntime, "runtime"},
		{Category(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.category.String())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category Category
		code     Code
	}{
		{"nil", nil, CategoryInternal, CodeInternal},
		{"unknown", errors.New("boom"), CategoryInternal, CodeInternal},
		{"request validation", validationErrors(), CategoryInvalid, CodeInvalidRequest},
		{"invalid request sentinel", fmt.Errorf("%w: flowchartId required", ErrInvalidRequest), CategoryInvalid, CodeInvalidRequest},
		{"graph validation", errors.Join(&flowchart.ValidationError{ID: "graph", Err: flowchart.ErrMissingStart}), CategoryInvalid, CodeInvalidGraph},
		{"version conflict", fmt.Errorf("save: %w", store.ErrVersionConflict), CategoryConflict, CodeVersionConflict},
		{"id conflict", &flowchart.ConflictError{Kind: "node", ID: "n"}, CategoryConflict, CodeConflict},
		{"flowchart missing", fmt.Errorf("%w: f1", store.ErrNotFound), CategoryNotFound, CodeNotFound},
		{"edge missing", &flowchart.NotFoundError{Kind: "edge", ID: "e1"}, CategoryNotFound, CodeNotFound},
		{"no checkpoint", fmt.Errorf("%w: r", flowchart.ErrNoCheckpoint), CategoryNotFound, CodeNotFound},
		{"resume node gone", flowchart.ErrInvalidResumeNode, CategoryInvalid, CodeCheckpointIncompatible},
		{"unknown encoding", checkpoint.ErrUnknownEncoding, CategoryInvalid, CodeCheckpointIncompatible},
		{
			"coercion inside node error",
			&flowchart.NodeError{NodeID: "d", Op: "execute", Err: &flowchart.TypeCoercionError{Variable: "x", VarType: "int", Value: "abc"}},
			CategoryRuntime, CodeTypeCoercion,
		},
		{
			"evaluation",
			&flowchart.NodeError{NodeID: "a", Op: "execute", Err: &expr.EvaluationError{Expr: "1/0", Pos: -1, Err: expr.ErrDivisionByZero}},
			CategoryRuntime, CodeEvaluation,
		},
		{"input", &flowchart.NodeError{NodeID: "i", Err: flowchart.ErrInputUnavailable}, CategoryRuntime, CodeInputUnavailable},
		{"dangling", &flowchart.DanglingEdgeError{NodeID: "c", Condition: "false"}, CategoryRuntime, CodeDanglingEdge},
		{"ambiguous", &flowchart.AmbiguousEdgeError{NodeID: "s"}, CategoryRuntime, CodeAmbiguousEdge},
		{"step limit", &flowchart.StepLimitError{Max: 10, NodeID: "c"}, CategoryRuntime, CodeStepLimit},
		{"cancelled", &flowchart.CancellationError{NodeID: "s", Cause: context.Canceled}, CategoryRuntime, CodeCancelled},
		{"deadline", &flowchart.CancellationError{NodeID: "s", Cause: context.DeadlineExceeded}, CategoryRuntime, CodeDeadlineExceeded},
		{"panic", &flowchart.PanicError{NodeID: "p", Value: "oops"}, CategoryInternal, CodePanic},
		{"checkpoint save", &flowchart.CheckpointError{Op: "save", Err: checkpoint.ErrStoreClosed}, CategoryInternal, CodeCheckpoint},
		{"bare deadline", context.DeadlineExceeded, CategoryTransient, CodeDeadlineExceeded},
		{"explicit transient", Transient(errors.New("db restarting"), "save"), CategoryTransient, CodeUnavailable},
		{"explicit category keeps cause code", Invalid(&flowchart.StepLimitError{}, "x"), CategoryInvalid, CodeStepLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, code := Classify(tt.err)
			assert.Equal(t, tt.category, cat)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Nil(t, Describe(nil))

	d := Describe(&flowchart.NodeError{NodeID: "d", NodeType: flowchart.NodeDeclare, Op: "execute",
		Err: &flowchart.TypeCoercionError{Variable: "x", VarType: "int", Value: "abc"}})

	require.NotNil(t, d)
	assert.Equal(t, CodeTypeCoercion, d.Code)
	assert.Equal(t, "runtime", d.Category)
	assert.Equal(t, "d", d.NodeID)
	assert.Contains(t, d.Message, "variable x")
}

func TestCategorizedError(t *testing.T) {
	t.Run("error message with context", func(t *testing.T) {
		err := NewCategorized(errors.New("failed"), CategoryTransient, "save flowchart")
		assert.Equal(t, "save flowchart: failed (category: transient, attempts: 0)", err.Error())
	})

	t.Run("error message without context", func(t *testing.T) {
		err := &CategorizedError{Err: errors.New("failed"), Category: CategoryConflict}
		assert.Equal(t, "failed (category: conflict, attempts: 0)", err.Error())
	})

	t.Run("unwrap", func(t *testing.T) {
		err := NewCategorized(store.ErrVersionConflict, CategoryConflict, "save")
		assert.ErrorIs(t, err, store.ErrVersionConflict)
	})
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsRetryable(Transient(errors.New("x"), "")))
	assert.False(t, IsRetryable(store.ErrVersionConflict))
	assert.True(t, IsConflict(store.ErrVersionConflict))
	assert.False(t, IsConflict(store.ErrNotFound))
}

func TestWithRetry(t *testing.T) {
	t.Run("success on first try", func(t *testing.T) {
		calls := 0
		result := WithRetry(fast, func() (string, error) {
			calls++
			return "ok", nil
		})

		require.NoError(t, result.Err)
		assert.Equal(t, "ok", result.Value)
		assert.Equal(t, 1, result.Attempts)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient then success", func(t *testing.T) {
		calls := 0
		result := WithRetry(fast, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, Transient(errors.New("flaky"), "")
			}
			return 42, nil
		})

		require.NoError(t, result.Err)
		assert.Equal(t, 42, result.Value)
		assert.Equal(t, 3, result.Attempts)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		calls := 0
		result := WithRetry(fast, func() (int, error) {
			calls++
			return 0, &flowchart.DanglingEdgeError{NodeID: "c", Condition: "false"}
		})

		require.Error(t, result.Err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, CodeDanglingEdge, CodeOf(result.Err))
		var dangling *flowchart.DanglingEdgeError
		assert.ErrorAs(t, result.Err, &dangling)
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		calls := 0
		result := WithRetry(fast, func() (int, error) {
			calls++
			return 0, Transient(errors.New("down"), "")
		})

		var catErr *CategorizedError
		require.ErrorAs(t, result.Err, &catErr)
		assert.Equal(t, "max retries exceeded", catErr.Context)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 3, result.Attempts)
		assert.True(t, IsRetryable(result.Err))
	})

	t.Run("conflict retry policy", func(t *testing.T) {
		cfg := NewRetryConfig(ConflictRetry, WithInitialBackoff(time.Millisecond), WithJitter(0))
		calls := 0
		result := WithRetry(cfg, func() (int64, error) {
			calls++
			if calls == 1 {
				return 0, fmt.Errorf("save: %w", store.ErrVersionConflict)
			}
			return 2, nil
		})

		require.NoError(t, result.Err)
		assert.Equal(t, int64(2), result.Value)
		assert.Equal(t, 2, calls)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		result := WithRetry(RetryConfig{}, func() (int, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, result.Err)
		assert.Equal(t, 1, calls)
	})
}

func TestWithRetryContext(t *testing.T) {
	t.Run("cancelled before first attempt", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := WithRetryContext(ctx, fast, func(context.Context) (int, error) {
			t.Fatal("must not run")
			return 0, nil
		})

		assert.ErrorIs(t, result.Err, context.Canceled)
		assert.Equal(t, 0, result.Attempts)
	})

	t.Run("cancelled during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := NewRetryConfig(fast, WithInitialBackoff(time.Hour), WithMaxBackoff(time.Hour))

		result := WithRetryContext(ctx, cfg, func(context.Context) (int, error) {
			cancel()
			return 0, Transient(errors.New("flaky"), "")
		})

		assert.ErrorIs(t, result.Err, context.Canceled)
		assert.Equal(t, 1, result.Attempts)
	})
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, calculateBackoff(100*time.Millisecond, 0))
	for i := 0; i < 50; i++ {
		d := calculateBackoff(100*time.Millisecond, 0.2)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}

func TestHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	var exhausted error
	h := NewHandler(
		WithRetryConfig(NewRetryConfig(ConflictRetry, WithInitialBackoff(time.Millisecond), WithMaxAttempts(2))),
		WithLogger(logger),
		WithOnExhausted(func(err error) { exhausted = err }),
	)

	t.Run("retries and logs", func(t *testing.T) {
		buf.Reset()
		calls := 0
		v, err := ExecuteWithValue(context.Background(), h, "save", func(context.Context) (int64, error) {
			calls++
			if calls == 1 {
				return 0, store.ErrVersionConflict
			}
			return 7, nil
		})

		require.NoError(t, err)
		assert.Equal(t, int64(7), v)
		assert.Contains(t, buf.String(), "retrying operation")
		assert.Contains(t, buf.String(), "op=save")
		assert.Contains(t, buf.String(), "code=VERSION_CONFLICT")
	})

	t.Run("exhausted callback", func(t *testing.T) {
		err := h.Execute(context.Background(), "save", func(context.Context) error {
			return store.ErrVersionConflict
		})

		require.Error(t, err)
		assert.ErrorIs(t, exhausted, store.ErrVersionConflict)
		assert.Equal(t, CodeVersionConflict, CodeOf(err))
	})
}
