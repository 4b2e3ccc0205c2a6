package itree

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"itree/expr"
	"itree/solver"
)

var (
	ErrStateMismatch = errors.New("itree: state is not owned by the current node")
	ErrAlreadySplit  = errors.New("itree: node has already been split")
	ErrNotLeaf       = errors.New("itree: only leaf nodes can be removed")
)

// The interpolation tree of one analysis run.
//
// Mirrors the symbolic execution tree explored by the interpreter and owns the subsumption table.
// The tree must only be used from the goroutine driving the interpreter.
type Tree struct {
	root    *Node
	current *Node

	table      []*Entry
	maxEntries int

	blocks *blockTable

	runID   string
	logger  *slog.Logger
	metrics *Metrics
}

// Create a tree whose root wraps the initial state.
func New(initial State, opts ...Option) *Tree {
	t := &Tree{
		blocks: newBlockTable(),
	}
	for _, opt := range opts {
		switch o := opt.(type) {
		case maxTableEntriesOption:
			t.maxEntries = o.n
		case loggerOption:
			t.logger = o.logger
		case metricsOption:
			t.metrics = o.m
		case runIDOption:
			t.runID = o.id
		}
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.metrics == nil {
		t.metrics = NewMetrics(nil)
	}
	if t.runID == "" {
		t.runID = uuid.NewString()
	}
	t.logger = t.logger.With(slog.String("run", t.runID))

	t.root = newNode(nil, initial)
	initial.SetITreeNode(t.root)
	t.current = t.root
	return t
}

func (t *Tree) Root() *Node {
	return t.root
}

func (t *Tree) CurrentINode() *Node {
	return t.current
}

func (t *Tree) RunID() string {
	return t.runID
}

// Make node the active node. Called by the driver whenever it switches to stepping another state.
func (t *Tree) SetCurrentINode(node *Node) {
	t.current = node
}

// Returns true if the state of the current node is subsumed by some entry of the table.
//
// Entries are tried in insertion order and the first one that subsumes the state wins.
// The current node is then marked as subsumed so that it is never tabled itself.
// Panics if state is not the state of the current node.
func (t *Tree) CheckCurrentStateSubsumption(s solver.Solver, state State, timeout time.Duration) bool {
	if state.ITreeNode() != t.current {
		panic(fmt.Errorf("%w: state node %v, current node %v", ErrStateMismatch, state.ITreeNode(), t.current))
	}
	t.metrics.SubsumptionChecks.Inc()

	for _, entry := range t.table {
		ok, err := entry.check(s, state, timeout)
		if err != nil {
			t.metrics.SolverFailures.Inc()
			t.logger.Debug("subsumption query failed",
				slog.Any("programPoint", entry.Location()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			t.current.subsumed = true
			t.metrics.SubsumptionHits.Inc()
			t.logger.Info("state subsumed", slog.Any("programPoint", entry.Location()))
			return true
		}
	}
	return false
}

// Append the entry to the subsumption table, evicting the oldest entry if the table is bounded and full.
func (t *Tree) Store(entry *Entry) {
	if t.maxEntries > 0 && len(t.table) >= t.maxEntries {
		evicted := t.table[0]
		t.table = slices.Delete(t.table, 0, 1)
		t.metrics.EntriesEvicted.Inc()
		t.logger.Debug("subsumption table entry evicted", slog.Any("programPoint", evicted.Location()))
	}
	t.table = append(t.table, entry)
	t.metrics.EntriesStored.Inc()
	t.metrics.TableSize.Set(float64(len(t.table)))
	t.logger.Debug("subsumption table entry stored",
		slog.Any("programPoint", entry.Location()),
		slog.Int("interpolantSize", len(entry.interpolant)),
	)
}

// Store entries recorded elsewhere, e.g. by an earlier run, in order.
func (t *Tree) Preload(entries ...*Entry) {
	for _, e := range entries {
		t.Store(e)
	}
}

// A copy of the subsumption table in insertion order
func (t *Tree) Table() []*Entry {
	return slices.Clone(t.table)
}

// Split parent into two children owning the provided states and return the children.
// Panics if parent already has children.
func (t *Tree) Split(parent *Node, leftState, rightState State) (*Node, *Node) {
	parent.split(leftState, rightState)
	return parent.left, parent.right
}

// Mark the constraints of the current node's chain that appear in the unsat core of an infeasible path.
//
// The core is matched from its last element backwards against the chain from its head.
// Marking is immediate. Matching stops when the chain is exhausted.
func (t *Tree) MarkPathCondition(unsatCore []expr.Expr) {
	if len(unsatCore) == 0 || t.current == nil {
		return
	}

	pc := t.current.pathCondition
	for i := len(unsatCore) - 1; i >= 0 && pc != nil; i-- {
		for pc != nil {
			matched := expr.Equal(pc.Car(), unsatCore[i])
			if matched {
				pc.IncludeInInterpolant()
			}
			pc = pc.Cdr()
			if matched {
				break
			}
		}
	}
}

// Remove a fully explored leaf.
//
// The removal cascades to every ancestor that becomes childless. Each removed node that was not subsumed
// and introduced a marked constraint is tabled before it is destroyed.
// Panics if node is not a leaf.
func (t *Tree) Remove(node *Node) {
	if !node.IsLeaf() {
		panic(fmt.Errorf("%w: node %v", ErrNotLeaf, node))
	}
	for node != nil && node.IsLeaf() {
		p := node.parent

		// The node has been completely traversed, so its interpolant is final
		if !node.subsumed && node.located && node.IntroducesMarkedConstraint() {
			t.Store(NewEntry(node))
		}

		node.destroy()
		t.metrics.NodesRemoved.Inc()
		if p != nil {
			if node == p.left {
				p.left = nil
			} else if node == p.right {
				p.right = nil
			} else {
				panic(fmt.Sprintf("itree: node %v is not a child of its parent %v", node, p))
			}
		} else {
			t.root = nil
		}
		if t.current == node {
			t.current = nil
		}
		node = p
	}
}

// Record a visit of a program point
func (t *Tree) RecordBlock(pp ProgramPoint) {
	t.blocks.add(pp)
}
