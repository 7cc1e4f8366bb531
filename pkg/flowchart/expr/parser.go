package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// precedence levels for binary operators, lowest first.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

type parser struct {
	toks     []token
	pos      int
	depth    int
	maxDepth int
}

// Parse parses src into a syntax tree without evaluating it.
// Errors are *EvaluationError wrapping ErrSyntax or ErrTooComplex.
func Parse(src string) (Node, error) {
	return parse(src, defaultMaxDepth)
}

func parse(src string, maxDepth int) (Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &EvaluationError{Expr: src, Pos: 0, Err: fmt.Errorf("%w: empty expression", ErrSyntax)}
	}
	toks, err := lex(src)
	if err != nil {
		return nil, wrap(src, err)
	}
	p := &parser{toks: toks, maxDepth: maxDepth}
	n, err := p.binary(1)
	if err != nil {
		return nil, wrap(src, err)
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, wrap(src, syntaxErr(tok.pos, "unexpected %q", tok.text))
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// binary parses a chain of infix operators at or above minPrec using
// precedence climbing. All binary operators are left associative.
func (p *parser) binary(minPrec int) (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		prec, ok := precedence[tok.text]
		if tok.kind != tokOp || !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = Binary{Op: tok.text, L: left, R: right, Pos: tok.pos}
	}
}

func (p *parser) unary() (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, &posError{pos: p.peek().pos, err: fmt.Errorf("%w: nesting deeper than %d", ErrTooComplex, p.maxDepth)}
	}

	tok := p.peek()
	if tok.kind == tokOp && (tok.text == "!" || tok.text == "-" || tok.text == "+") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: tok.text, X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		v, err := parseNumber(tok.text)
		if err != nil {
			return nil, syntaxErr(tok.pos, "invalid number %q", tok.text)
		}
		return Literal{Value: v}, nil
	case tokString:
		return Literal{Value: tok.text}, nil
	case tokIdent:
		switch tok.text {
		case "true":
			return Literal{Value: true}, nil
		case "false":
			return Literal{Value: false}, nil
		}
		return Ident{Name: tok.text, Pos: tok.pos}, nil
	case tokLParen:
		n, err := p.binary(1)
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, syntaxErr(closing.pos, "expected ')'")
		}
		return n, nil
	case tokEOF:
		return nil, syntaxErr(tok.pos, "unexpected end of expression")
	default:
		return nil, syntaxErr(tok.pos, "unexpected %q", tok.text)
	}
}

// parseNumber returns int64 for integral literals and float64 otherwise.
func parseNumber(s string) (any, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	return strconv.ParseFloat(s, 64)
}

func wrap(src string, err error) error {
	if pe, ok := err.(*posError); ok {
		return &EvaluationError{Expr: src, Pos: pe.pos, Err: pe.err}
	}
	return &EvaluationError{Expr: src, Pos: -1, Err: err}
}
