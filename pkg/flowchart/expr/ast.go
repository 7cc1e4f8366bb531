package expr

import (
	"fmt"
	"strconv"
)

// Node is an expression syntax tree node. The concrete variants are
// Literal, Ident, Unary and Binary.
type Node interface {
	fmt.Stringer
	node()
}

// Literal is a constant number, string or boolean.
type Literal struct {
	Value any
}

// Ident is a reference to a variable binding.
type Ident struct {
	Name string
	Pos  int
}

// Unary applies a prefix operator ("!", "-", "+").
type Unary struct {
	Op string
	X  Node
}

// Binary applies an infix operator.
type Binary struct {
	Op   string
	L, R Node
	Pos  int
}

func (Literal) node() {}
func (Ident) node()   {}
func (Unary) node()   {}
func (Binary) node()  {}

func (l Literal) String() string {
	if s, ok := l.Value.(string); ok {
		return strconv.Quote(s)
	}
	return FormatValue(l.Value)
}

func (i Ident) String() string { return i.Name }

func (u Unary) String() string { return "(" + u.Op + u.X.String() + ")" }

func (b Binary) String() string {
	return "(" + b.L.String() + " " + b.Op + " " + b.R.String() + ")"
}
