package flowchart

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// quiet silences run logging in tests.
var quiet = WithLogger(nil)

// noLint silences lint warnings while hydrating test graphs.
var noLint = WithLintLogger(nil)

// mustBuild builds a graph or fails the test.
func mustBuild(t *testing.T, b *Builder) *Graph {
	t.Helper()
	g, err := b.Build(noLint)
	require.NoError(t, err)
	return g
}

// linear chains the given node ids with "auto" edges.
func linear(b *Builder, ids ...string) *Builder {
	for i := 0; i+1 < len(ids); i++ {
		b.Connect(ids[i], ids[i+1])
	}
	return b
}

// addFive: DECLARE x=2 (int), ASSIGN x = x + 3, OUTPUT x.
func addFive() *Builder {
	b := NewBuilder().
		Start("s").
		Declare("d", "x", "2", "int").
		Assign("a", "x", "x + 3").
		Output("o", "x").
		End("e")
	return linear(b, "s", "d", "a", "o", "e")
}

// countdown loops i from n down to 0, printing each value.
func countdown(n int) *Builder {
	b := NewBuilder().
		Start("s").
		Declare("d", "i", n, "int").
		Condition("c", "i >= 0").
		Output("o", "i").
		Assign("dec", "i", "i - 1").
		End("e")
	b.Connect("s", "d").
		Connect("d", "c").
		Branch("c", "o", ConditionTrue).
		Branch("c", "e", ConditionFalse).
		Connect("o", "dec").
		Connect("dec", "c")
	return b
}

// endless loops forever without reaching END.
func endless() *Builder {
	b := NewBuilder().
		Start("s").
		Declare("d", "n", 0, "int").
		Assign("inc", "n", "n + 1").
		End("e")
	b.Connect("s", "d").Connect("d", "inc").Connect("inc", "inc")
	return b
}

// newTestRunContext returns a quiet RunContext for calling handlers directly.
func newTestRunContext(opts ...RunOption) RunContext {
	opts = append([]RunOption{quiet}, opts...)
	return NewRunContext(context.Background(), "test", opts...)
}

// discard is a logger that drops everything.
func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
