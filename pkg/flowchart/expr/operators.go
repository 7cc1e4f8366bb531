package expr

import (
	"fmt"
	"math"
)

// arithmetic applies + - * / % to two evaluated operands.
// Integer operands stay integral except for inexact division.
func arithmetic(op string, l, r any) (any, error) {
	if op == "+" {
		_, ls := l.(string)
		_, rs := r.(string)
		if ls || rs {
			return FormatValue(l) + FormatValue(r), nil
		}
	}

	li, lf, lInt, lok := numeric(l)
	ri, rf, rInt, rok := numeric(r)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s %s %s", ErrTypeMismatch, TypeName(l), op, TypeName(r))
	}

	if lInt && rInt {
		switch op {
		case "+", "-", "*":
			v, ok := checkedInt(op, li, ri)
			if !ok {
				return nil, fmt.Errorf("%w: %d %s %d", ErrIntegerOverflow, li, op, ri)
			}
			return v, nil
		case "/":
			if ri == 0 {
				return nil, ErrDivisionByZero
			}
			if li == math.MinInt64 && ri == -1 {
				return nil, fmt.Errorf("%w: %d / %d", ErrIntegerOverflow, li, ri)
			}
			if li%ri == 0 {
				return li / ri, nil
			}
			return float64(li) / float64(ri), nil
		case "%":
			if ri == 0 {
				return nil, ErrDivisionByZero
			}
			return li % ri, nil
		}
	}

	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, ErrDivisionByZero
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, ErrDivisionByZero
		}
		return math.Mod(lf, rf), nil
	}
	return nil, fmt.Errorf("%w: unknown operator %s", ErrSyntax, op)
}

// checkedInt applies + - * to int64 operands and reports false when the
// result does not fit.
func checkedInt(op string, a, b int64) (int64, bool) {
	switch op {
	case "+":
		s := a + b
		return s, (b >= 0) == (s >= a)
	case "-":
		d := a - b
		return d, (b >= 0) == (d <= a)
	default:
		if a == 0 || b == 0 {
			return 0, true
		}
		if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return 0, false
		}
		p := a * b
		return p, p/b == a
	}
}

// Compare compares two values using the specified operator.
// Equality never fails: numbers compare numerically and values of different
// kinds are unequal. Ordering requires two numbers or two strings.
func Compare(left, right any, op string) (bool, error) {
	left, right = Normalize(left), Normalize(right)
	switch op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "<", ">", "<=", ">=":
		c, err := order(left, right)
		if err != nil {
			return false, fmt.Errorf("%w: %s %s %s", err, TypeName(left), op, TypeName(right))
		}
		switch op {
		case "<":
			return c < 0, nil
		case ">":
			return c > 0, nil
		case "<=":
			return c <= 0, nil
		default:
			return c >= 0, nil
		}
	default:
		return false, fmt.Errorf("%w: unknown operator %s", ErrSyntax, op)
	}
}

func equal(l, r any) bool {
	li, lf, lInt, lok := numeric(l)
	ri, rf, rInt, rok := numeric(r)
	if lok && rok {
		if lInt && rInt {
			return li == ri
		}
		return lf == rf
	}
	switch lv := l.(type) {
	case nil:
		return r == nil
	case string:
		rv, ok := r.(string)
		return ok && lv == rv
	case bool:
		rv, ok := r.(bool)
		return ok && lv == rv
	}
	return false
}

func order(l, r any) (int, error) {
	li, lf, lInt, lok := numeric(l)
	ri, rf, rInt, rok := numeric(r)
	if lok && rok {
		switch {
		case lInt && rInt && li < ri, !(lInt && rInt) && lf < rf:
			return -1, nil
		case lInt && rInt && li > ri, !(lInt && rInt) && lf > rf:
			return 1, nil
		}
		return 0, nil
	}
	ls, lsok := l.(string)
	rs, rsok := r.(string)
	if lsok && rsok {
		switch {
		case ls < rs:
			return -1, nil
		case ls > rs:
			return 1, nil
		}
		return 0, nil
	}
	return 0, ErrTypeMismatch
}
