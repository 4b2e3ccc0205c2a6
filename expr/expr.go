package expr

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// A constraint over integer variables.
//
// Every implementation is a comparable value type, so expressions can be compared with == and
// used as map keys. Structural equality is identity for the purposes of the interpolation tree.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// Comparison operator of a Cmp atom
type Op int

const (
	Lt Op = iota
	Le
	Gt
	Ge
	Eq
	Ne
)

var opText = [...]string{
	Lt: "<",
	Le: "<=",
	Gt: ">",
	Ge: ">=",
	Eq: "==",
	Ne: "!=",
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opText) {
		return fmt.Sprintf("Op(%d)", int(o))
	}
	return opText[o]
}

// The negated operator, i.e. !(x o c) == x o.Negate() c
func (o Op) Negate() Op {
	switch o {
	case Lt:
		return Ge
	case Le:
		return Gt
	case Gt:
		return Le
	case Ge:
		return Lt
	case Eq:
		return Ne
	default:
		return Eq
	}
}

// A boolean constant
type Bool bool

const (
	True  = Bool(true)
	False = Bool(false)
)

// Compares a variable with a constant: Var Op Value
type Cmp struct {
	Var   string
	Op    Op
	Value int64
}

type Not struct {
	X Expr
}

type And struct {
	L, R Expr
}

type Or struct {
	L, R Expr
}

func (Bool) isExpr() {}
func (Cmp) isExpr()  {}
func (Not) isExpr()  {}
func (And) isExpr()  {}
func (Or) isExpr()   {}

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (c Cmp) String() string {
	return fmt.Sprintf("%s %s %d", c.Var, c.Op, c.Value)
}

func (n Not) String() string {
	return "!(" + n.X.String() + ")"
}

func (a And) String() string {
	return "(" + a.L.String() + " && " + a.R.String() + ")"
}

func (o Or) String() string {
	return "(" + o.L.String() + " || " + o.R.String() + ")"
}

// Shorthand constructors used when building constraints by hand.

func Lts(v string, c int64) Cmp { return Cmp{Var: v, Op: Lt, Value: c} }
func Les(v string, c int64) Cmp { return Cmp{Var: v, Op: Le, Value: c} }
func Gts(v string, c int64) Cmp { return Cmp{Var: v, Op: Gt, Value: c} }
func Ges(v string, c int64) Cmp { return Cmp{Var: v, Op: Ge, Value: c} }
func Eqs(v string, c int64) Cmp { return Cmp{Var: v, Op: Eq, Value: c} }
func Nes(v string, c int64) Cmp { return Cmp{Var: v, Op: Ne, Value: c} }

// Structural equality
func Equal(a, b Expr) bool {
	return a == b
}

// A total order on expressions, consistent with Equal.
//
// Returns a negative number if a sorts before b, 0 if they are equal and a positive number otherwise.
func Compare(a, b Expr) int {
	if a == b {
		return 0
	}
	return strings.Compare(a.String(), b.String())
}

// Returns the logical negation of e, pushing the negation into atoms and constants.
func Negate(e Expr) Expr {
	switch t := e.(type) {
	case Bool:
		return !t
	case Cmp:
		return Cmp{Var: t.Var, Op: t.Op.Negate(), Value: t.Value}
	case Not:
		return t.X
	default:
		return Not{X: e}
	}
}

// Folds the expressions into a left-nested conjunction. The empty conjunction is True.
func Ands(es ...Expr) Expr {
	if len(es) == 0 {
		return True
	}
	out := es[0]
	for _, e := range es[1:] {
		out = And{L: out, R: e}
	}
	return out
}

// Returns the sorted set of variables occurring in the expressions
func Vars(es ...Expr) []string {
	seen := map[string]bool{}
	var walk func(Expr)
	walk = func(e Expr) {
		switch t := e.(type) {
		case Cmp:
			seen[t.Var] = true
		case Not:
			walk(t.X)
		case And:
			walk(t.L)
			walk(t.R)
		case Or:
			walk(t.L)
			walk(t.R)
		}
	}
	for _, e := range es {
		walk(e)
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Evaluates e under a full assignment of its variables.
// Variables missing from env evaluate as 0.
func Eval(e Expr, env map[string]int64) bool {
	switch t := e.(type) {
	case Bool:
		return bool(t)
	case Cmp:
		v := env[t.Var]
		switch t.Op {
		case Lt:
			return v < t.Value
		case Le:
			return v <= t.Value
		case Gt:
			return v > t.Value
		case Ge:
			return v >= t.Value
		case Eq:
			return v == t.Value
		default:
			return v != t.Value
		}
	case Not:
		return !Eval(t.X, env)
	case And:
		return Eval(t.L, env) && Eval(t.R, env)
	case Or:
		return Eval(t.L, env) || Eval(t.R, env)
	}
	panic(fmt.Sprintf("expr: unknown expression %T", e))
}
