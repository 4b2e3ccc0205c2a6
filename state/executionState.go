package state

import (
	"fmt"

	"golang.org/x/exp/slices"

	"itree"
	"itree/expr"
)

// The state of one path through the analysed program.
//
// Holds the program counter, the path constraints collected so far and the node of the interpolation tree that owns the state.
// The interpreter is the only one mutating the state.
type ExecutionState struct {
	Id int

	// The program point that will be executed next
	Pc itree.ProgramPoint

	// Number of blocks executed on the path
	Depth int

	constraints []expr.Expr
	node        *itree.Node
}

// Create the initial state of a run, starting at entry
func New(id int, entry itree.ProgramPoint, constraints ...expr.Expr) *ExecutionState {
	return &ExecutionState{
		Id:          id,
		Pc:          entry,
		constraints: slices.Clone(constraints),
	}
}

func (s *ExecutionState) Constraints() []expr.Expr {
	return s.constraints
}

func (s *ExecutionState) AddConstraint(c expr.Expr) {
	s.constraints = append(s.constraints, c)
}

func (s *ExecutionState) ITreeNode() *itree.Node {
	return s.node
}

func (s *ExecutionState) SetITreeNode(n *itree.Node) {
	s.node = n
}

// Create a copy of the state with a new id.
//
// The copy does not belong to any tree node until the tree splits the owner of s.
func (s *ExecutionState) Fork(id int) *ExecutionState {
	return &ExecutionState{
		Id:          id,
		Pc:          s.Pc,
		Depth:       s.Depth,
		constraints: slices.Clone(s.constraints),
	}
}

func (s *ExecutionState) String() string {
	return fmt.Sprintf("State %v: pc %v, depth %v, constraints %v", s.Id, s.Pc, s.Depth, s.constraints)
}
