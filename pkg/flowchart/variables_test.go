package flowchart

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowchart/pkg/flowchart/checkpoint"
)

func TestExecutionContext_SetAndDeclare(t *testing.T) {
	ec := NewExecutionContext()

	assert.True(t, ec.Declare("x", 1, VarInt))
	assert.False(t, ec.Declare("x", 2, VarInt))
	assert.Equal(t, int64(1), ec.Get("x"))

	ec.Set("x", "text")
	v, _ := ec.Variable("x")
	assert.Equal(t, "text", v.Value)
	assert.Equal(t, VarInt, v.DeclaredType, "set keeps the declared type")

	ec.Set("y", 2.5)
	v, _ = ec.Variable("y")
	assert.Equal(t, VarFloat, v.DeclaredType)

	assert.Nil(t, ec.Get("missing"))
	_, ok := ec.Lookup("missing")
	assert.False(t, ok)
}

func TestExecutionContext_NamesAreNormalized(t *testing.T) {
	ec := NewExecutionContext()
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	ec.Set(" "+decomposed+" ", int64(1))

	assert.True(t, ec.Has(composed))
	assert.Equal(t, int64(1), ec.Get(composed))
	require.Len(t, ec.Variables(), 1)
	assert.Equal(t, composed, ec.Variables()[0].Name)
}

func TestExecutionContext_DeclarationOrder(t *testing.T) {
	ec := NewExecutionContext()
	for _, name := range []string{"b", "a", "c"} {
		ec.Set(name, int64(0))
	}
	ec.Set("a", int64(9))

	var names []string
	for _, v := range ec.Variables() {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
}

func TestExecutionContext_OutputIsCopied(t *testing.T) {
	ec := NewExecutionContext()
	ec.Emit("a")

	out := ec.Output()
	out[0] = "changed"

	assert.Equal(t, []any{"a"}, ec.Output())
}

func TestSnapshotRestore(t *testing.T) {
	ec := NewExecutionContext()
	ec.Declare("i", int64(3), VarInt)
	ec.Declare("f", 1.5, VarFloat)
	ec.Declare("s", "hi", VarString)
	ec.Declare("b", true, VarBool)
	ec.Declare("u", nil, VarInt)
	ec.Emit(int64(3))
	ec.Emit("hi")
	ec.addDiagnostic(Diagnostic{NodeID: "o", Kind: DiagnosticEvaluation, Message: "boom"})
	ec.visit("s")

	restored := Restore(ec.Snapshot())

	assert.Equal(t, ec.Variables(), restored.Variables())
	assert.Equal(t, ec.Output(), restored.Output())
	assert.Equal(t, ec.Diagnostics(), restored.Diagnostics())
	assert.Equal(t, ec.Trace(), restored.Trace())
}

func TestRestore_RepairsJSONNumbers(t *testing.T) {
	ec := NewExecutionContext()
	ec.Declare("i", int64(3), VarInt)
	ec.Declare("f", 2.0, VarFloat)
	ec.Emit(int64(7))
	ec.Emit(1.5)

	ser, err := checkpoint.NewSerializer("json", "")
	require.NoError(t, err)
	data, err := ser.Serialize(ec.Snapshot())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, ser.Deserialize(data, &snap))

	restored := Restore(snap)

	assert.Equal(t, int64(3), restored.Get("i"))
	assert.Equal(t, 2.0, restored.Get("f"))
	assert.Equal(t, []any{int64(7), 1.5}, restored.Output())
}

func TestRestore_PlainJSONFloats(t *testing.T) {
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"variables":[{"name":"n","value":4,"declaredType":"int"}],"output":[]}`), &snap))

	restored := Restore(snap)

	assert.Equal(t, int64(4), restored.Get("n"))
}

func TestParseVarType(t *testing.T) {
	tests := []struct {
		in   string
		want VarType
		ok   bool
	}{
		{"int", VarInt, true},
		{" Integer ", VarInt, true},
		{"double", VarFloat, true},
		{"Boolean", VarBool, true},
		{"text", VarString, true},
		{"", "", true},
		{"list", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseVarType(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		typ     VarType
		want    any
		wantErr bool
	}{
		{"int from int", 5, VarInt, int64(5), false},
		{"int from negative float", -2.7, VarInt, int64(-2), false},
		{"int from padded text", " 12 ", VarInt, int64(12), false},
		{"int from bool", true, VarInt, nil, true},
		{"int from infinity text", "Inf", VarInt, nil, true},
		{"int at max", "9223372036854775807", VarInt, int64(math.MaxInt64), false},
		{"int at min", "-9223372036854775808", VarInt, int64(math.MinInt64), false},
		{"int one past max", "9223372036854775808", VarInt, nil, true},
		{"int from 2^63 float", 0x1p63, VarInt, nil, true},
		{"int from float below min", -0x1p64, VarInt, nil, true},
		{"int from float truncating to min", -9223372036854775808.0, VarInt, int64(math.MinInt64), false},
		{"float from int", int64(2), VarFloat, 2.0, false},
		{"float from NaN text", "NaN", VarFloat, nil, true},
		{"bool from bool", false, VarBool, false, false},
		{"bool from text", "True", VarBool, true, false},
		{"string from float", 2.0, VarString, "2", false},
		{"infer float", "1.25", "", 1.25, false},
		{"infer bool", "FALSE", "", false, false},
		{"infer keeps text", "1,000", "", "1,000", false},
		{"nil stays undefined", nil, VarInt, nil, false},
		{"unknown type", "x", "list", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.typ)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueueInputs(t *testing.T) {
	q := NewQueueInputs(map[string][]any{"n": {1, 2}})
	ctx := t.Context()

	v, err := q.Input(ctx, "n", "")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = q.Input(ctx, "n", "")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = q.Input(ctx, "n", "")
	assert.ErrorIs(t, err, ErrInputUnavailable)
	_, err = q.Input(ctx, "other", "")
	assert.ErrorIs(t, err, ErrInputUnavailable)
}
