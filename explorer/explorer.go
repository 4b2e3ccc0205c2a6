package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"itree"
	"itree/expr"
	"itree/program"
	"itree/scheduler"
	"itree/solver"
	"itree/state"
)

var ErrUnknownBlock = errors.New("Explorer: state is at a block that is not part of the program")

// Statistics of one exploration
type Stats struct {
	// Blocks executed across all paths
	Steps int
	// Paths that reached a terminal block
	Completed int
	// Paths pruned because a table entry subsumed them
	Subsumed int
	// Branches and assumptions found infeasible
	Infeasible int
	// Paths that reached an error block
	Errors int
	// Paths cut by the depth bound
	Cut int
	// True if the step budget ended the exploration
	Truncated bool
	// Solver queries that failed or timed out
	SolverFailures int
}

// The outcome of a run
type Result struct {
	Stats Stats
	// The interpolation tree of the run. Its table holds every entry stored during the run.
	Tree *itree.Tree
}

// Symbolically executes a program, pruning paths with the interpolation tree.
//
// Every path of the program is a state. A state runs block by block until it branches on a condition that can go both ways,
// ends, or is subsumed. A branch splits the state's tree node and the two new states are handed to the scheduler.
// Infeasible branches mark the constraints that made them infeasible, so that finished subtrees are tabled with an interpolant
// that later states at the same program point can be checked against.
type Explorer struct {
	prog   *program.Program
	solver solver.Solver
	sch    scheduler.Scheduler

	timeout  time.Duration
	maxSteps int
	maxDepth int

	ignoreErrors bool
	ignorePanics bool

	treeOpts    []itree.Option
	preload     []*itree.Entry
	constraints []expr.Expr
	logger      *slog.Logger

	// per run
	tree   *itree.Tree
	stats  Stats
	nextId int
}

// Create an explorer for prog that decides branches with s
func New(prog *program.Program, s solver.Solver, opts ...Option) *Explorer {
	e := &Explorer{
		prog:   prog,
		solver: s,
	}
	for _, opt := range opts {
		switch o := opt.(type) {
		case schedulerOption:
			e.sch = o.sch
		case timeoutOption:
			e.timeout = o.d
		case maxStepsOption:
			e.maxSteps = o.n
		case maxDepthOption:
			e.maxDepth = o.n
		case ignoreErrorsOption:
			e.ignoreErrors = true
		case ignorePanicsOption:
			e.ignorePanics = true
		case treeOptions:
			e.treeOpts = append(e.treeOpts, o.opts...)
		case loggerOption:
			e.logger = o.logger
		case preloadOption:
			e.preload = append(e.preload, o.entries...)
		case initialConstraintsOption:
			e.constraints = append(e.constraints, o.constraints...)
		}
	}
	if e.sch == nil {
		e.sch = scheduler.NewDFS()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Explore the program from its entry until every path has ended, the step budget is spent, or an error is reached.
//
// Returns an error if an error block was reached, the context was cancelled or exploring panicked.
// If errors are ignored all reached errors are returned together at the end.
func (e *Explorer) Run(ctx context.Context) (res *Result, err error) {
	initial := state.New(e.newId(), e.prog.Entry, e.constraints...)
	e.stats = Stats{}
	e.tree = itree.New(initial, append(append([]itree.Option{}, e.treeOpts...), itree.WithLogger(e.logger))...)
	e.tree.Preload(e.preload...)
	e.sch.AddState(initial)

	res = &Result{Tree: e.tree}
	if !e.ignorePanics {
		// Panics are caused by faults in the tree or the program and are reported as errors
		defer func() {
			if p := recover(); p != nil {
				res.Stats = e.stats
				err = fmt.Errorf("Explorer: panicked while exploring: %v \nStack Trace:\n %s", p, debug.Stack())
			}
		}()
	}

	errorSlice := []error{}
	for {
		if err := ctx.Err(); err != nil {
			res.Stats = e.stats
			return res, fmt.Errorf("Explorer: exploration interrupted: %w", err)
		}
		s, err := e.sch.GetState()
		if errors.Is(err, scheduler.NoStatesError) {
			break
		} else if err != nil {
			res.Stats = e.stats
			return res, err
		}

		err = e.runState(s)
		if errors.Is(err, errBudget) {
			e.stats.Truncated = true
			e.logger.Info("step budget spent", slog.Int("steps", e.stats.Steps), slog.Int("pending", e.sch.Len()))
			break
		}
		if err != nil {
			if !e.ignoreErrors {
				res.Stats = e.stats
				return res, err
			}
			errorSlice = append(errorSlice, err)
		}
	}
	// Drop what the budget left behind so the scheduler can be reused
	for e.sch.Len() > 0 {
		e.sch.GetState()
	}

	res.Stats = e.stats
	if len(errorSlice) > 0 {
		return res, explorationError{errorSlice: errorSlice}
	}
	return res, nil
}

var errBudget = errors.New("Explorer: step budget spent")

// Run the state until it splits, ends or is subsumed
func (e *Explorer) runState(s *state.ExecutionState) error {
	for {
		node := s.ITreeNode()
		e.tree.SetCurrentINode(node)

		// A fresh node is located at the first block it executes and checked against the table
		if _, located := node.Location(); !located {
			node.SetNodeLocation(s.Pc)
			if e.tree.CheckCurrentStateSubsumption(e.solver, s, e.timeout) {
				e.stats.Subsumed++
				e.tree.Remove(node)
				return nil
			}
		}

		if e.maxSteps > 0 && e.stats.Steps >= e.maxSteps {
			return errBudget
		}
		if e.maxDepth > 0 && s.Depth >= e.maxDepth {
			e.stats.Cut++
			e.logger.Debug("path cut", slog.Int("state", s.Id), slog.Any("block", s.Pc))
			return nil
		}

		block, ok := e.prog.Block(s.Pc)
		if !ok {
			return fmt.Errorf("%w: %v", ErrUnknownBlock, s.Pc)
		}
		e.stats.Steps++
		s.Depth++
		e.tree.RecordBlock(block.Id)

		if block.Error != "" {
			e.stats.Errors++
			e.logger.Info("error block reached", slog.Any("block", block.Id), slog.String("message", block.Error))
			e.tree.Remove(node)
			return ReachedError{Block: block.Id, Message: block.Error, Constraints: append([]expr.Expr{}, s.Constraints()...)}
		}

		if block.Assume != nil {
			feasible, implied := e.decide(s, block.Assume)
			if !feasible {
				e.tree.Remove(node)
				return nil
			}
			if !implied {
				// The assumption is recorded on the node's chain by splitting off the states that violate it
				s = e.assume(node, s, block.Assume)
			}
		}

		switch {
		case block.Branch != nil:
			cond := block.Branch.Cond
			thenFeasible, elseInfeasible := e.decide(s, cond)
			switch {
			case !thenFeasible:
				s.Pc = block.Branch.Else
			case elseInfeasible:
				s.Pc = block.Branch.Then
			default:
				e.split(s, cond, block.Branch.Then, block.Branch.Else)
				return nil
			}
		case block.Next != nil:
			s.Pc = *block.Next
		default:
			e.stats.Completed++
			e.tree.Remove(s.ITreeNode())
			return nil
		}
	}
}

// Decide whether cond can hold in s, and whether it must.
//
// The constraints of s that make a side infeasible are marked on the current node's chain.
// Solver failures count as undecided.
func (e *Explorer) decide(s *state.ExecutionState, cond expr.Expr) (feasible bool, implied bool) {
	v, err := e.evaluate(s, cond)
	if err != nil || v == solver.Unknown {
		return true, false
	}
	if v == solver.True {
		e.infeasible(cond, expr.Negate(cond))
		return true, true
	}

	// cond is unsatisfiable. Its negation is valid and the solver reports why.
	v, err = e.evaluate(s, expr.Negate(cond))
	if err != nil || v != solver.True {
		// Without a core the side cannot be pruned
		return true, false
	}
	e.infeasible(cond, cond)
	return false, false
}

func (e *Explorer) infeasible(cond, side expr.Expr) {
	e.stats.Infeasible++
	core := e.solver.UnsatCore()
	e.logger.Debug("infeasible side",
		slog.String("cond", cond.String()),
		slog.String("side", side.String()),
		slog.Int("coreSize", len(core)),
	)
	e.tree.MarkPathCondition(core)
}

func (e *Explorer) evaluate(s *state.ExecutionState, q expr.Expr) (solver.Validity, error) {
	e.solver.SetTimeout(e.timeout)
	v, err := e.solver.Evaluate(s, q)
	e.solver.SetTimeout(0)
	if err != nil {
		e.stats.SolverFailures++
		e.logger.Debug("solver query failed", slog.String("query", q.String()), slog.String("error", err.Error()))
	}
	return v, err
}

// Split node into a state that continues under the assumption and one violating it, which is dropped.
func (e *Explorer) assume(node *itree.Node, s *state.ExecutionState, a expr.Expr) *state.ExecutionState {
	holds := s.Fork(e.newId())
	holds.AddConstraint(a)
	violates := s.Fork(e.newId())
	violates.AddConstraint(expr.Negate(a))
	e.tree.Split(node, holds, violates)
	e.tree.Remove(violates.ITreeNode())
	// The new node is located at the next block it starts
	e.tree.SetCurrentINode(holds.ITreeNode())
	return holds
}

func (e *Explorer) split(s *state.ExecutionState, cond expr.Expr, then, els itree.ProgramPoint) {
	l := s.Fork(e.newId())
	l.AddConstraint(cond)
	l.Pc = then
	r := s.Fork(e.newId())
	r.AddConstraint(expr.Negate(cond))
	r.Pc = els
	e.tree.Split(s.ITreeNode(), l, r)

	// With depth first search the then side is explored first
	e.sch.AddState(r)
	e.sch.AddState(l)
}

func (e *Explorer) newId() int {
	id := e.nextId
	e.nextId++
	return id
}
