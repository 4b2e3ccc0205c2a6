package solver

import (
	"errors"
	"time"

	"itree/expr"
)

// Result of a validity query
type Validity int

const (
	// The query may be either true or false under the constraints
	Unknown Validity = iota
	// The query is implied by the constraints
	True
	// The negation of the query is implied by the constraints
	False
)

func (v Validity) String() string {
	switch v {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// Something that carries an ordered set of constraints, e.g. an execution state.
type Constraints interface {
	Constraints() []expr.Expr
}

// Decides validity of queries under the constraints of a state.
//
// Evaluate returns a non-nil error when it was unable to decide the query, e.g. because of a timeout.
// After a query is decided True, UnsatCore returns the subset of the state's constraints that was needed to prove it.
type Solver interface {
	SetTimeout(time.Duration)
	Evaluate(s Constraints, query expr.Expr) (Validity, error)
	UnsatCore() []expr.Expr
}

var (
	ErrTimeout     = errors.New("solver: query timed out")
	ErrUndecided   = errors.New("solver: unable to decide query")
	ErrUnavailable = errors.New("solver: backend unavailable")
)

// A plain constraint list
type Set []expr.Expr

func (s Set) Constraints() []expr.Expr {
	return s
}
