package itree

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/exp/slices"

	"itree/expr"
	"itree/solver"
)

// An immutable record of a fully explored node: its program point and the interpolant that was sufficient for it.
type Entry struct {
	location    ProgramPoint
	interpolant []expr.Expr
}

// Snapshot a node into an entry
func NewEntry(n *Node) *Entry {
	return &Entry{
		location:    n.location,
		interpolant: n.Interpolant(),
	}
}

// Create an entry from a stored program point and interpolant, e.g. when loading a table recorded by an earlier run.
func MakeEntry(pp ProgramPoint, interpolant []expr.Expr) *Entry {
	return &Entry{
		location:    pp,
		interpolant: slices.Clone(interpolant),
	}
}

func (e *Entry) Location() ProgramPoint {
	return e.location
}

func (e *Entry) Interpolant() []expr.Expr {
	return slices.Clone(e.interpolant)
}

// Returns true if the state is subsumed by the entry.
//
// Every interpolant constraint must be proven valid under the state's constraints within the timeout.
// Only when all of them are, the state's path constraints that appeared in the unsat cores are marked as interpolant constraints.
func (e *Entry) Subsumed(s solver.Solver, state State, timeout time.Duration) bool {
	ok, _ := e.check(s, state, timeout)
	return ok
}

// Like Subsumed, but also reports why a solver query made the check fail.
func (e *Entry) check(s solver.Solver, state State, timeout time.Duration) (bool, error) {
	n := state.ITreeNode()
	if n == nil {
		return false, nil
	}
	if pp, ok := n.Location(); !ok || pp != e.location {
		return false, nil
	}

	markers := n.makeMarkerMap()
	for _, query := range e.interpolant {
		s.SetTimeout(timeout)
		v, err := s.Evaluate(state, query)
		s.SetTimeout(0)
		if err != nil {
			return false, fmt.Errorf("query %v: %w", query, err)
		}
		if v != solver.True {
			return false, nil
		}
		for _, c := range s.UnsatCore() {
			markers.mayInclude(c)
		}
	}

	markers.commit()
	return true, nil
}

func (e *Entry) Print(w io.Writer) {
	fmt.Fprintln(w, "------------ Subsumption Table Entry ------------")
	fmt.Fprintf(w, "Program point = %v\n", e.location)
	fmt.Fprint(w, "interpolant = [")
	for i, c := range e.interpolant {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w, "]")
}
