package expr

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestEvaluate_Arithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr string
		vars map[string]any
		want any
	}{
		{name: "int addition", expr: "x + 3", vars: map[string]any{"x": int64(2)}, want: int64(5)},
		{name: "precedence", expr: "2 + 3 * 4", want: int64(14)},
		{name: "parentheses", expr: "(2 + 3) * 4", want: int64(20)},
		{name: "left associative subtraction", expr: "10 - 3 - 2", want: int64(5)},
		{name: "exact division stays int", expr: "8 / 2", want: int64(4)},
		{name: "inexact division is float", expr: "5 / 2", want: 2.5},
		{name: "modulo", expr: "17 % 5", want: int64(2)},
		{name: "float promotion", expr: "1 + 0.5", want: 1.5},
		{name: "add up to max", expr: "x + 1", vars: map[string]any{"x": int64(math.MaxInt64 - 1)}, want: int64(math.MaxInt64)},
		{name: "subtract down to min", expr: "x - 1", vars: map[string]any{"x": int64(math.MinInt64 + 1)}, want: int64(math.MinInt64)},
		{name: "negative product", expr: "x * 2", vars: map[string]any{"x": int64(math.MinInt64 / 2)}, want: int64(math.MinInt64)},
		{name: "min modulo minus one", expr: "x % -1", vars: map[string]any{"x": int64(math.MinInt64)}, want: int64(0)},
		{name: "unary minus", expr: "-x * 2", vars: map[string]any{"x": int64(3)}, want: int64(-6)},
		{name: "double negation", expr: "--4", want: int64(4)},
		{name: "go int widened", expr: "n + 1", vars: map[string]any{"n": 41}, want: int64(42)},
		{name: "string concatenation", expr: "'a' + 'b'", want: "ab"},
		{name: "string and number", expr: `"n=" + n`, vars: map[string]any{"n": int64(3)}, want: "n=3"},
		{name: "number and string", expr: `1 + 2 + "x"`, want: "3x"},
		{name: "string repeat step", expr: "line + '*'", vars: map[string]any{"line": "**"}, want: "***"},
		{name: "float formatting in concat", expr: `"v" + 2.50`, want: "v2.5"},
		{name: "escapes", expr: `'it\'s' + "\t"`, want: "it's\t"},
		{name: "exponent literal", expr: "1e3", want: 1000.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.expr, tt.vars)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %#v, want %#v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Comparison(t *testing.T) {
	vars := map[string]any{"x": int64(5), "f": 5.0, "s": "abc", "b": true}
	tests := []struct {
		expr string
		want bool
	}{
		{"x == 5", true},
		{"x != 5", false},
		{"x == f", true},
		{"x < 10", true},
		{"x >= 5", true},
		{"x > 5", false},
		{"s == 'abc'", true},
		{"s < 'abd'", true},
		{"s == 5", false},
		{"b == true", true},
		{"b != false", true},
		{"x > 1 && x < 10", true},
		{"x > 1 and x > 10", false},
		{"x > 10 || s == 'abc'", true},
		{"!b", false},
		{"not (x == 5)", false},
		{"!s", false},
		{"x == 5 == true", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := New().EvaluateBool(tt.expr, MapScope(vars))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateBool(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_ShortCircuit(t *testing.T) {
	// The right side references an unbound name; short-circuiting must skip it.
	got, err := Eval("false && missing", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != false {
		t.Errorf("got %v, want false", got)
	}

	got, err = Eval("true || missing", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != true {
		t.Errorf("got %v, want true", got)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		vars map[string]any
		want error
	}{
		{name: "undefined variable", expr: "y + 1", want: ErrUndefinedVariable},
		{name: "dangling operator", expr: "1 +", want: ErrSyntax},
		{name: "single equals", expr: "x = 1", vars: map[string]any{"x": int64(1)}, want: ErrSyntax},
		{name: "unbalanced paren", expr: "(1 + 2", want: ErrSyntax},
		{name: "unterminated string", expr: "'abc", want: ErrSyntax},
		{name: "trailing tokens", expr: "1 2", want: ErrSyntax},
		{name: "empty", expr: "   ", want: ErrSyntax},
		{name: "identifier after number", expr: "2x", want: ErrSyntax},
		{name: "unsupported character", expr: "a.b()", vars: map[string]any{"a": int64(1)}, want: ErrSyntax},
		{name: "division by zero", expr: "1 / 0", want: ErrDivisionByZero},
		{name: "modulo by zero", expr: "1 % 0", want: ErrDivisionByZero},
		{name: "add past max", expr: "x + 1", vars: map[string]any{"x": int64(math.MaxInt64)}, want: ErrIntegerOverflow},
		{name: "subtract past min", expr: "x - 1", vars: map[string]any{"x": int64(math.MinInt64)}, want: ErrIntegerOverflow},
		{name: "multiply past max", expr: "x * 2", vars: map[string]any{"x": int64(math.MaxInt64/2 + 1)}, want: ErrIntegerOverflow},
		{name: "multiply min by minus one", expr: "x * -1", vars: map[string]any{"x": int64(math.MinInt64)}, want: ErrIntegerOverflow},
		{name: "divide min by minus one", expr: "x / -1", vars: map[string]any{"x": int64(math.MinInt64)}, want: ErrIntegerOverflow},
		{name: "negate min", expr: "-x", vars: map[string]any{"x": int64(math.MinInt64)}, want: ErrIntegerOverflow},
		{name: "bool arithmetic", expr: "true + 1", want: ErrTypeMismatch},
		{name: "mixed ordering", expr: "'a' < 1", want: ErrTypeMismatch},
		{name: "negate string", expr: "-'a'", want: ErrTypeMismatch},
		{name: "undefined value arithmetic", expr: "u + 1", vars: map[string]any{"u": nil}, want: ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Eval(tt.expr, tt.vars)
			if err == nil {
				t.Fatalf("expected error for %q", tt.expr)
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected *EvaluationError, got %T", err)
			}
			if evalErr.Expr != tt.expr {
				t.Errorf("Expr = %q, want %q", evalErr.Expr, tt.expr)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error %v does not wrap %v", err, tt.want)
			}
		})
	}
}

func TestEvaluate_ErrorPosition(t *testing.T) {
	_, err := Eval("1 + missing", nil)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvaluationError, got %v", err)
	}
	if evalErr.Pos != 4 {
		t.Errorf("Pos = %d, want 4", evalErr.Pos)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error %q should name the variable", err.Error())
	}
}

func TestEvaluate_Limits(t *testing.T) {
	e := New(WithMaxDepth(4), WithMaxLength(20))

	if _, err := e.Evaluate("((((((1))))))", nil); !errors.Is(err, ErrTooComplex) {
		t.Errorf("deep nesting: got %v, want ErrTooComplex", err)
	}
	if _, err := e.Evaluate(strings.Repeat("1+", 20)+"1", nil); !errors.Is(err, ErrTooComplex) {
		t.Errorf("long input: got %v, want ErrTooComplex", err)
	}
	if v, err := e.Evaluate("(1 + 2)", nil); err != nil || v != int64(3) {
		t.Errorf("small input: got %v, %v", v, err)
	}
}

func TestEvaluate_CachedParseIsReused(t *testing.T) {
	e := New()
	for i := int64(0); i < 3; i++ {
		got, err := e.Evaluate("i * 2", MapScope{"i": i})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != i*2 {
			t.Errorf("got %v, want %v", got, i*2)
		}
	}
}

func TestParse_Tree(t *testing.T) {
	n, err := Parse("a + b * -c == 1 || !d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "(((a + (b * (-c))) == 1) || (!d))"
	if n.String() != want {
		t.Errorf("tree = %s, want %s", n.String(), want)
	}
}

func TestIsIdentifier(t *testing.T) {
	tests := map[string]bool{
		"x":       true,
		"_tmp":    true,
		"count2":  true,
		"línea":   true,
		"2x":      false,
		"":        false,
		"a b":     false,
		"true":    false,
		"and":     false,
		"x+1":     false,
		"$dollar": true,
	}
	for in, want := range tests {
		if got := IsIdentifier(in); got != want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{int64(5), "5"},
		{5.0, "5"},
		{2.5, "2.5"},
		{-0.125, "-0.125"},
		{"s", "s"},
		{true, "true"},
		{nil, "undefined"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"x", true},
		{int64(0), false},
		{int64(-1), true},
		{0.0, false},
		{0.5, true},
		{3, true},
	}
	for _, tt := range tests {
		if got := IsTruthy(tt.in); got != tt.want {
			t.Errorf("IsTruthy(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
