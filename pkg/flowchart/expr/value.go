package expr

import (
	"encoding/json"
	"math"
	"strconv"
)

// Normalize converts a value from an external source (JSON, msgpack, Go
// callers) into the evaluator's value domain: int64, float64, string, bool or
// nil. Other integer and float widths are widened; json.Number becomes int64
// when integral. Values outside the domain are returned unchanged.
func Normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val)
		}
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

// IsTruthy returns whether a value is truthy.
// nil is false, bools return their value, empty strings are false,
// zero and NaN are false, everything else is true.
func IsTruthy(v any) bool {
	switch val := Normalize(v).(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int64:
		return val != 0
	case float64:
		return val != 0 && !math.IsNaN(val)
	default:
		return true
	}
}

// FormatValue renders a value the way string concatenation and program
// output show it: integers in decimal, floats in shortest round-trip form,
// whole floats without a fractional part, nil as "undefined".
func FormatValue(v any) string {
	switch val := Normalize(v).(type) {
	case nil:
		return "undefined"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		switch {
		case math.IsNaN(val):
			return "NaN"
		case math.IsInf(val, 1):
			return "Infinity"
		case math.IsInf(val, -1):
			return "-Infinity"
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "<unprintable>"
		}
		return string(b)
	}
}

// TypeName returns the expression-language name of a value's type.
func TypeName(v any) string {
	switch Normalize(v).(type) {
	case nil:
		return "undefined"
	case bool:
		return "bool"
	case string:
		return "string"
	case int64:
		return "int"
	case float64:
		return "float"
	default:
		return "unknown"
	}
}

// numeric reports whether v is an int64 or float64 and returns it as both.
func numeric(v any) (i int64, f float64, isInt, ok bool) {
	switch val := v.(type) {
	case int64:
		return val, float64(val), true, true
	case float64:
		return 0, val, false, true
	}
	return 0, 0, false, false
}
