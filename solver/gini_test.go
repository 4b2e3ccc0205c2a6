package solver

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itree/expr"
)

var evaluateTest = []struct {
	constraints Set
	query       expr.Expr
	expected    Validity
}{
	{Set{expr.Eqs("x", 5)}, expr.Gts("x", 0), True},
	{Set{expr.Gts("x", 0)}, expr.Les("x", 0), False},
	{Set{expr.Gts("x", 0)}, expr.Gts("x", 5), Unknown},
	{Set{}, expr.True, True},
	{Set{}, expr.Gts("x", 0), Unknown},
	{Set{expr.Gts("x", 0), expr.Lts("x", 0)}, expr.Eqs("y", 9), True},
	{Set{expr.Ges("x", 3), expr.Les("x", 3)}, expr.Eqs("x", 3), True},
	{Set{expr.Nes("x", 3), expr.Ges("x", 3)}, expr.Gts("x", 3), True},
	{Set{expr.Lts("x", math.MinInt64)}, expr.False, True},
	{Set{expr.Ges("x", math.MinInt64)}, expr.True, True},
	{Set{expr.Or{L: expr.Eqs("x", 1), R: expr.Eqs("x", 2)}}, expr.And{L: expr.Ges("x", 1), R: expr.Les("x", 2)}, True},
	{Set{expr.Gts("x", 2), expr.Lts("x", 4)}, expr.Not{X: expr.Eqs("x", 3)}, False},
}

func TestGiniEvaluate(t *testing.T) {
	for i, test := range evaluateTest {
		s := NewGini(nil)
		v, err := s.Evaluate(test.constraints, test.query)
		require.NoError(t, err, "test %v", i)
		assert.Equal(t, test.expected, v, "test %v: %v |= %v", i, test.constraints, test.query)
	}
}

func TestGiniUnsatCore(t *testing.T) {
	s := NewGini(nil)
	cs := Set{expr.Eqs("y", 1), expr.Eqs("x", 5), expr.Lts("z", 0)}
	v, err := s.Evaluate(cs, expr.Gts("x", 0))
	require.NoError(t, err)
	require.Equal(t, True, v)
	assert.Equal(t, []expr.Expr{expr.Eqs("x", 5)}, s.UnsatCore())

	// A query that is not valid clears the core
	v, err = s.Evaluate(cs, expr.Gts("x", 7))
	require.NoError(t, err)
	assert.Equal(t, False, v)
	assert.Empty(t, s.UnsatCore())
	assert.Equal(t, 2, s.Queries())
}

func TestGiniCoreKeepsConstraintOrder(t *testing.T) {
	s := NewGini(nil)
	cs := Set{expr.Gts("x", 0), expr.Eqs("q", 4), expr.Lts("x", 2)}
	v, err := s.Evaluate(cs, expr.Eqs("x", 1))
	require.NoError(t, err)
	require.Equal(t, True, v)
	assert.Equal(t, []expr.Expr{expr.Gts("x", 0), expr.Lts("x", 2)}, s.UnsatCore())
}

func TestGiniTimeout(t *testing.T) {
	s := NewGini(nil)
	s.SetTimeout(time.Second)
	v, err := s.Evaluate(Set{expr.Eqs("x", 5)}, expr.Gts("x", 0))
	require.NoError(t, err)
	assert.Equal(t, True, v)
	s.SetTimeout(0)
}

// Compare against a brute force evaluation over a window that covers every threshold used.
func TestGiniAgainstBruteForce(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	vars := []string{"x", "y"}
	var gen func(depth int) expr.Expr
	gen = func(depth int) expr.Expr {
		if depth == 0 || rnd.Intn(3) == 0 {
			return expr.Cmp{Var: vars[rnd.Intn(len(vars))], Op: expr.Op(rnd.Intn(6)), Value: int64(rnd.Intn(7) - 3)}
		}
		switch rnd.Intn(3) {
		case 0:
			return expr.Not{X: gen(depth - 1)}
		case 1:
			return expr.And{L: gen(depth - 1), R: gen(depth - 1)}
		default:
			return expr.Or{L: gen(depth - 1), R: gen(depth - 1)}
		}
	}
	holdsEverywhere := func(cs []expr.Expr, q expr.Expr, want bool) bool {
		for x := int64(-6); x <= 6; x++ {
			for y := int64(-6); y <= 6; y++ {
				env := map[string]int64{"x": x, "y": y}
				if expr.Eval(expr.Ands(cs...), env) && expr.Eval(q, env) != want {
					return false
				}
			}
		}
		return true
	}

	for i := 0; i < 200; i++ {
		cs := Set{gen(2), gen(2)}
		q := gen(2)
		expected := Unknown
		if holdsEverywhere(cs, q, true) {
			expected = True
		} else if holdsEverywhere(cs, q, false) {
			expected = False
		}
		s := NewGini(nil)
		v, err := s.Evaluate(cs, q)
		require.NoError(t, err)
		require.Equal(t, expected, v, "iteration %v: %v |= %v", i, cs, q)
		if v == True {
			// The core alone must still prove the query
			assert.True(t, holdsEverywhere(s.UnsatCore(), q, true), "iteration %v: core %v", i, s.UnsatCore())
		}
	}

	var boundTest = []struct {
		cs       Set
		q        expr.Expr
		expected Validity
	}{
		{Set{}, expr.Les("x", math.MaxInt64), True},
		{Set{}, expr.Ges("x", math.MinInt64), True},
		{Set{}, expr.Gts("x", math.MaxInt64), False},
		{Set{}, expr.Lts("x", math.MinInt64), False},
		{Set{expr.Gts("x", math.MaxInt64)}, expr.False, True},
		{Set{expr.Lts("x", math.MinInt64)}, expr.False, True},
		{Set{}, expr.Eqs("x", math.MaxInt64), Unknown},
		{Set{expr.Ges("x", math.MaxInt64)}, expr.Eqs("x", math.MaxInt64), True},
	}
	for i, test := range boundTest {
		v, err := NewGini(nil).Evaluate(test.cs, test.q)
		require.NoError(t, err)
		assert.Equal(t, test.expected, v, "bound %v: %v |= %v", i, test.cs, test.q)
	}
}
