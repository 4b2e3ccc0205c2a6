package itree

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/exp/slices"

	"itree/expr"
	"itree/solver"
)

// Create some dummy states and solvers for use when testing
type MockState struct {
	constraints []expr.Expr
	node        *Node
}

func NewMockState(cs ...expr.Expr) *MockState {
	return &MockState{constraints: cs}
}

func (s *MockState) Constraints() []expr.Expr { return s.constraints }
func (s *MockState) ITreeNode() *Node { return s.node }
func (s *MockState) SetITreeNode(n *Node) { s.node = n }

// A copy of the state with c appended to its constraints
func (s *MockState) Fork(c ...expr.Expr) *MockState {
	return &MockState{constraints: append(slices.Clone(s.constraints), c...)}
}

type answer struct {
	validity solver.Validity
	err      error
	core     []expr.Expr
}

// A solver that answers from a script keyed by query. Unscripted queries are Unknown.
type MockSolver struct {
	answers  map[expr.Expr]answer
	queries  []expr.Expr
	timeouts []time.Duration
	core     []expr.Expr
}

func NewMockSolver() *MockSolver {
	return &MockSolver{answers: map[expr.Expr]answer{}}
}

func (s *MockSolver) answer(q expr.Expr, v solver.Validity, core ...expr.Expr) *MockSolver {
	s.answers[q] = answer{validity: v, core: core}
	return s
}

func (s *MockSolver) fail(q expr.Expr, err error) *MockSolver {
	s.answers[q] = answer{err: err}
	return s
}

func (s *MockSolver) SetTimeout(d time.Duration) {
	s.timeouts = append(s.timeouts, d)
}

func (s *MockSolver) Evaluate(_ solver.Constraints, q expr.Expr) (solver.Validity, error) {
	s.queries = append(s.queries, q)
	a := s.answers[q]
	s.core = a.core
	return a.validity, a.err
}

func (s *MockSolver) UnsatCore() []expr.Expr {
	return s.core
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTree(root State, opts ...Option) *Tree {
	return New(root, append([]Option{WithLogger(discardLogger()), WithRunID("test")}, opts...)...)
}

// Fails the test unless f panics with an error wrapping target
func requirePanicsWith(t *testing.T, target error, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("Expected a panic wrapping %v. Got: %v", target, r)
		}
	}()
	f()
}

// The constraints of the chain starting at pc, head first, with their marks
func chain(pc *PathCondition) ([]expr.Expr, []bool) {
	cs, marks := []expr.Expr{}, []bool{}
	for it := pc; it != nil; it = it.Cdr() {
		cs = append(cs, it.Car())
		marks = append(marks, it.CarInInterpolant())
	}
	return cs, marks
}

var (
	xPos  = expr.Gts("x", 0)
	xNPos = expr.Les("x", 0)
	yPos  = expr.Gts("y", 0)
	yNPos = expr.Les("y", 0)
	x5    = expr.Eqs("x", 5)
	xN5   = expr.Nes("x", 5)
)
