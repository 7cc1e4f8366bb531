/*
Package expr evaluates the expressions written inside flowchart nodes.

# Overview

Expressions are parsed by a recursive-descent parser into a small syntax
tree (Literal, Ident, Unary, Binary) and evaluated by a tree-walking
interpreter. The interpreter sees only the names supplied through a Scope:
there is no ambient scope, no function calls and no side effects.

# Expression Syntax

	<expr>    := <expr> ('||' | 'or') <expr>
	           | <expr> ('&&' | 'and') <expr>
	           | <expr> ('==' | '!=' | '<' | '>' | '<=' | '>=') <expr>
	           | <expr> ('+' | '-' | '*' | '/' | '%') <expr>
	           | ('!' | 'not' | '-' | '+') <expr>
	           | '(' <expr> ')'
	           | <value>
	<value>   := number | 'string' | "string" | true | false | identifier

Precedence from lowest to highest: ||, &&, equality, ordering, additive,
multiplicative, unary. Binary operators associate to the left.

# Values

Values are int64, float64, string, bool, or nil for an undefined binding.

  - Integer arithmetic stays integral; / yields an int64 when the division
    is exact and a float64 otherwise.
  - Mixing int and float promotes to float.
  - + with a string on either side concatenates, formatting the other side
    with FormatValue (so "n=" + 3 is "n=3").
  - == and != never fail; values of different kinds are simply unequal.
  - <, >, <=, >= need two numbers or two strings.
  - &&, || and ! work on truthiness and produce bools.

# Errors

Every failure is an *EvaluationError holding the expression text. Use
errors.Is with ErrSyntax, ErrUndefinedVariable, ErrTypeMismatch,
ErrDivisionByZero or ErrTooComplex to tell them apart.

# Examples

	vars := expr.MapScope{"x": int64(2)}
	v, err := expr.New().Evaluate("x + 3", vars) // int64(5)

	ok, err := expr.New().EvaluateBool("x > 1 and x < 10", vars) // true

# Truthiness

  - nil: false
  - bool: the boolean value
  - string: false if empty, true otherwise
  - numbers: false if zero or NaN, true otherwise
*/
package expr
