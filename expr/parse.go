package expr

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

var ErrSyntax = errors.New("expr: syntax error")

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokOp
	tokNot
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	toks := []token{}
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_' || runes[i] == '.') {
				i++
			}
			toks = append(toks, token{tokIdent, string(runes[start:i]), start})
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			i++
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			toks = append(toks, token{tokInt, string(runes[start:i]), start})
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == '&' || r == '|':
			if i+1 >= len(runes) || runes[i+1] != r {
				return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, r, i)
			}
			kind := tokAnd
			if r == '|' {
				kind = tokOr
			}
			toks = append(toks, token{kind, string(runes[i : i+2]), i})
			i += 2
		case r == '<' || r == '>' || r == '=' || r == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				toks = append(toks, token{tokOp, string(runes[i : i+2]), i})
				i += 2
				continue
			}
			switch r {
			case '!':
				toks = append(toks, token{tokNot, "!", i})
			case '=':
				return nil, fmt.Errorf("%w: lone '=' at %d", ErrSyntax, i)
			default:
				toks = append(toks, token{tokOp, string(r), i})
			}
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, r, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(runes)}), nil
}

type parser struct {
	toks []token
	pos  int
}

// Parses the textual form produced by Expr.String.
//
//	or    := and ('||' and)*
//	and   := unary ('&&' unary)*
//	unary := '!' unary | '(' or ')' | 'true' | 'false' | ident op int
func Parse(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.or()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: trailing %q at %d", ErrSyntax, t.text, t.pos)
	}
	return e, nil
}

// Like Parse but panics on error. Intended for constants and tests.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) or() (Expr, error) {
	l, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		l = Or{L: l, R: r}
	}
	return l, nil
}

func (p *parser) and() (Expr, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = And{L: l, R: r}
	}
	return l, nil
}

func (p *parser) unary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNot:
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Not{X: x}, nil
	case tokLParen:
		e, err := p.or()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ')' at %d", ErrSyntax, c.pos)
		}
		return e, nil
	case tokIdent:
		if p.peek().kind == tokOp {
			return p.cmp(t.text)
		}
		switch t.text {
		case "true":
			return True, nil
		case "false":
			return False, nil
		}
		return p.cmp(t.text)
	}
	return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
}

func (p *parser) cmp(v string) (Expr, error) {
	opTok := p.next()
	if opTok.kind != tokOp {
		return nil, fmt.Errorf("%w: expected comparison after %q at %d", ErrSyntax, v, opTok.pos)
	}
	op, ok := parseOp(opTok.text)
	if !ok {
		return nil, fmt.Errorf("%w: unknown operator %q", ErrSyntax, opTok.text)
	}
	valTok := p.next()
	if valTok.kind != tokInt {
		return nil, fmt.Errorf("%w: expected integer at %d", ErrSyntax, valTok.pos)
	}
	n, err := strconv.ParseInt(valTok.text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return Cmp{Var: v, Op: op, Value: n}, nil
}

func parseOp(s string) (Op, bool) {
	for op, text := range opText {
		if text == s {
			return Op(op), true
		}
	}
	return 0, false
}
