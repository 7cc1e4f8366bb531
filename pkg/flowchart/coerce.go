package flowchart

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/randalmurphal/flowchart/pkg/flowchart/expr"
)

var (
	errNotNumeric = errors.New("not a number")
	errNotFinite  = errors.New("not a finite number")
	errOutOfRange = errors.New("out of int64 range")
)

// Coerce converts a literal to a declared type:
//   - int: integer parse; decimal text and floats are truncated toward zero
//   - float: floating-point parse
//   - bool: true only for a case-insensitive "true"
//   - string: identity, other values formatted as the program would print them
//   - "" (no declared type): numbers and true/false text are recognized,
//     everything else stays a string
//
// nil passes through as undefined.
func Coerce(value any, typ VarType) (any, error) {
	value = expr.Normalize(value)
	if value == nil {
		return nil, nil
	}

	switch typ {
	case VarInt:
		return toInt(value)
	case VarFloat:
		return toFloat(value)
	case VarBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return strings.EqualFold(strings.TrimSpace(expr.FormatValue(value)), "true"), nil
	case VarString:
		return expr.FormatValue(value), nil
	case "":
		return infer(value), nil
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}
}

func toInt(v any) (any, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case float64:
		return truncate(val)
	case string:
		s := strings.TrimSpace(val)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errNotNumeric
		}
		return truncate(f)
	}
	return nil, errNotNumeric
}

// truncate rounds f toward zero. float64(math.MaxInt64) rounds up to 2^63,
// so the bounds are written as exact powers of two.
func truncate(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errNotFinite
	}
	t := math.Trunc(f)
	if t >= 0x1p63 || t < -0x1p63 {
		return nil, errOutOfRange
	}
	return int64(t), nil
}

func toFloat(v any) (any, error) {
	switch val := v.(type) {
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, errNotNumeric
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errNotFinite
		}
		return f, nil
	}
	return nil, errNotNumeric
}

func infer(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	t := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	switch strings.ToLower(t) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// coerceDeclared resolves the declared type name and coerces value to it,
// reporting failures as *TypeCoercionError naming the variable.
func coerceDeclared(name string, value any, typeName string) (any, VarType, error) {
	typ, ok := ParseVarType(typeName)
	if !ok {
		return nil, "", &TypeCoercionError{Variable: name, VarType: typeName, Value: value, Err: fmt.Errorf("unknown type %q", typeName)}
	}
	v, err := Coerce(value, typ)
	if err != nil {
		return nil, "", &TypeCoercionError{Variable: name, VarType: typeName, Value: value, Err: err}
	}
	if typ == "" {
		typ = InferVarType(v)
	}
	return v, typ, nil
}
