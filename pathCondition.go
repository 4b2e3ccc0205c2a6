package itree

import (
	"fmt"
	"io"

	"itree/expr"
)

// One link of a backward chained path condition.
//
// Links are shared between the nodes of a subtree up to the point where the paths diverge.
// A link is reference counted: every node whose chain head it is and every link whose tail it is holds one reference.
// When the last reference is dropped the link releases its tail.
type PathCondition struct {
	constraint    expr.Expr
	inInterpolant bool
	tail          *PathCondition

	refs int
}

func newPathCondition(constraint expr.Expr, tail *PathCondition) *PathCondition {
	tail.retain()
	return &PathCondition{
		constraint: constraint,
		tail:       tail,
	}
}

func (pc *PathCondition) retain() {
	if pc != nil {
		pc.refs++
	}
}

// Drop one reference, releasing every link that is no longer referenced
func (pc *PathCondition) release() {
	for pc != nil {
		pc.refs--
		if pc.refs > 0 {
			return
		}
		next := pc.tail
		pc.tail = nil
		pc = next
	}
}

// The constraint of this link
func (pc *PathCondition) Car() expr.Expr {
	return pc.constraint
}

// The rest of the chain, nil at the end
func (pc *PathCondition) Cdr() *PathCondition {
	return pc.tail
}

func (pc *PathCondition) IncludeInInterpolant() {
	pc.inInterpolant = true
}

func (pc *PathCondition) CarInInterpolant() bool {
	return pc.inInterpolant
}

// Number of nodes and links currently referencing this link
func (pc *PathCondition) Refs() int {
	return pc.refs
}

// Collect the marked constraints from this link to the end of the chain, newest first.
func (pc *PathCondition) PackInterpolant() []expr.Expr {
	res := []expr.Expr{}
	for it := pc; it != nil; it = it.tail {
		if it.inInterpolant {
			res = append(res, it.constraint)
		}
	}
	return res
}

func (pc *PathCondition) Print(w io.Writer) {
	fmt.Fprint(w, "[")
	for it := pc; it != nil; it = it.tail {
		kind := "non-interpolant constraint"
		if it.inInterpolant {
			kind = "interpolant constraint"
		}
		fmt.Fprintf(w, "%v: %s", it.constraint, kind)
		if it.tail != nil {
			fmt.Fprint(w, ", ")
		}
	}
	fmt.Fprint(w, "]")
}

// Gates the marking of one link during a subsumption check.
// The link is only marked if every interpolant query that needed it succeeded.
type marker struct {
	mayInclude bool
	pc         *PathCondition
}

func (m *marker) mayIncludeInInterpolant() {
	m.mayInclude = true
}

func (m *marker) includeInInterpolant() {
	if m.mayInclude {
		m.pc.IncludeInInterpolant()
	}
}

// Transient side table built for one subsumption check.
type markerMap map[expr.Expr]*marker

// Open the gate of the link holding constraint, if it is on the chain
func (mm markerMap) mayInclude(constraint expr.Expr) {
	if m, ok := mm[constraint]; ok {
		m.mayIncludeInInterpolant()
	}
}

func (mm markerMap) commit() {
	for _, m := range mm {
		m.includeInInterpolant()
	}
}
