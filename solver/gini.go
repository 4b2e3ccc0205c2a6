package solver

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"itree/expr"
)

// A complete decision procedure for the constraint language in package expr, backed by the gini SAT solver.
//
// Integer variables are order encoded: for every constant k a variable x is compared against, a literal stands for x <= k,
// and consecutive thresholds are chained by implications. Every state constraint is guarded by an activation literal
// that is passed to the solver as an assumption, so the failed assumptions of an UNSAT answer are the unsat core.
//
// A Gini solver is not safe for concurrent use.
type Gini struct {
	timeout time.Duration
	core    []expr.Expr
	logger  *slog.Logger

	queries int
}

func NewGini(logger *slog.Logger) *Gini {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gini{logger: logger}
}

// Bound the time spent on each subsequent query. 0 disables the bound.
func (s *Gini) SetTimeout(d time.Duration) {
	s.timeout = d
}

// The unsat core of the last query that was decided True.
func (s *Gini) UnsatCore() []expr.Expr {
	return slices.Clone(s.core)
}

// Number of queries issued so far
func (s *Gini) Queries() int {
	return s.queries
}

func (s *Gini) Evaluate(cs Constraints, query expr.Expr) (Validity, error) {
	s.queries++
	s.core = nil

	constraints := cs.Constraints()
	enc := newEncoder()
	guarded := make([]z.Lit, len(constraints))
	acts := make([]z.Lit, len(constraints))
	for i, c := range constraints {
		guarded[i] = enc.encode(c)
		acts[i] = enc.c.Lit()
	}
	q := enc.encode(query)

	g := gini.New()
	enc.c.ToCnf(g)
	enc.addOrder(g)
	g.Add(enc.c.T)
	g.Add(0)
	index := make(map[z.Lit]int, len(acts))
	for i := range constraints {
		g.Add(acts[i].Not())
		g.Add(guarded[i])
		g.Add(0)
		index[acts[i]] = i
	}

	// Valid iff constraints && !query is unsatisfiable
	res, err := s.solve(g, append(slices.Clone(acts), q.Not()))
	if err != nil {
		return Unknown, err
	}
	if res < 0 {
		s.core = s.coreOf(g.Why(nil), index, constraints)
		return True, nil
	}

	res, err = s.solve(g, append(slices.Clone(acts), q))
	if err != nil {
		return Unknown, err
	}
	if res < 0 {
		return False, nil
	}
	return Unknown, nil
}

func (s *Gini) solve(g *gini.Gini, assumptions []z.Lit) (int, error) {
	g.Assume(assumptions...)
	if s.timeout <= 0 {
		return g.Solve(), nil
	}
	res := g.GoSolve().Try(s.timeout)
	if res == 0 {
		s.logger.Debug("solver query timed out", slog.Duration("timeout", s.timeout))
		return 0, ErrTimeout
	}
	return res, nil
}

// Maps the failed assumptions back to constraints, keeping the order of the state's constraints.
func (s *Gini) coreOf(failed []z.Lit, index map[z.Lit]int, constraints []expr.Expr) []expr.Expr {
	positions := []int{}
	for _, m := range failed {
		if i, ok := index[m]; ok {
			positions = append(positions, i)
		}
	}
	slices.Sort(positions)
	core := make([]expr.Expr, 0, len(positions))
	for _, i := range positions {
		core = append(core, constraints[i])
	}
	return core
}

type encoder struct {
	c *logic.C
	// variable -> threshold k -> literal for (variable <= k)
	thresholds map[string]map[int64]z.Lit
}

func newEncoder() *encoder {
	return &encoder{
		c:          logic.NewC(),
		thresholds: map[string]map[int64]z.Lit{},
	}
}

func (e *encoder) le(v string, k int64) z.Lit {
	if k == math.MaxInt64 {
		return e.c.T
	}
	ks, ok := e.thresholds[v]
	if !ok {
		ks = map[int64]z.Lit{}
		e.thresholds[v] = ks
	}
	if m, ok := ks[k]; ok {
		return m
	}
	m := e.c.Lit()
	ks[k] = m
	return m
}

// Literal for v < k, i.e. v <= k-1
func (e *encoder) lt(v string, k int64) z.Lit {
	if k == math.MinInt64 {
		return e.c.F
	}
	return e.le(v, k-1)
}

func (e *encoder) encode(x expr.Expr) z.Lit {
	switch t := x.(type) {
	case expr.Bool:
		if t {
			return e.c.T
		}
		return e.c.F
	case expr.Cmp:
		switch t.Op {
		case expr.Le:
			return e.le(t.Var, t.Value)
		case expr.Lt:
			return e.lt(t.Var, t.Value)
		case expr.Gt:
			return e.le(t.Var, t.Value).Not()
		case expr.Ge:
			return e.lt(t.Var, t.Value).Not()
		case expr.Eq:
			return e.c.And(e.le(t.Var, t.Value), e.lt(t.Var, t.Value).Not())
		default:
			return e.c.And(e.le(t.Var, t.Value), e.lt(t.Var, t.Value).Not()).Not()
		}
	case expr.Not:
		return e.encode(t.X).Not()
	case expr.And:
		return e.c.And(e.encode(t.L), e.encode(t.R))
	case expr.Or:
		return e.c.Or(e.encode(t.L), e.encode(t.R))
	}
	panic(fmt.Sprintf("solver: cannot encode %T", x))
}

// Chains the thresholds of every variable: (v <= k1) implies (v <= k2) for k1 < k2.
// Any monotone assignment of the thresholds is realised by some integer, which makes the encoding exact.
func (e *encoder) addOrder(g *gini.Gini) {
	for _, ks := range e.thresholds {
		sorted := maps.Keys(ks)
		slices.Sort(sorted)
		for i := 0; i+1 < len(sorted); i++ {
			g.Add(ks[sorted[i]].Not())
			g.Add(ks[sorted[i+1]])
			g.Add(0)
		}
	}
}
