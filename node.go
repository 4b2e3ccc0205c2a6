package itree

import (
	"fmt"

	"itree/expr"
	"itree/solver"
)

// An identifier of a location in the analysed program
type ProgramPoint uint64

// The execution state driven by the interpreter.
//
// The tree only reads the constraints and maintains the back reference to the node that owns the state.
type State interface {
	solver.Constraints
	ITreeNode() *Node
	SetITreeNode(*Node)
}

// A node of the binary symbolic execution tree
type Node struct {
	parent      *Node
	left, right *Node

	location ProgramPoint
	located  bool

	subsumed bool
	removed  bool

	pathCondition *PathCondition
	state         State
}

// Create a node for state below parent.
//
// The node inherits the parent's chain head and prepends one link if the last constraint of the state differs from it.
// A root chains every constraint of its state, so initial constraints can be marked like any other.
func newNode(parent *Node, state State) *Node {
	n := &Node{
		parent: parent,
		state:  state,
	}
	cs := state.Constraints()
	if parent == nil {
		for _, c := range cs {
			n.pathCondition = newPathCondition(c, n.pathCondition)
		}
		n.pathCondition.retain()
		return n
	}
	n.pathCondition = parent.pathCondition
	if len(cs) > 0 {
		last := cs[len(cs)-1]
		if n.pathCondition == nil || !expr.Equal(n.pathCondition.Car(), last) {
			n.pathCondition = newPathCondition(last, n.pathCondition)
		}
	}
	n.pathCondition.retain()
	return n
}

func (n *Node) split(leftState, rightState State) {
	if n.left != nil || n.right != nil {
		panic(fmt.Errorf("%w: node %v", ErrAlreadySplit, n))
	}
	n.left = newNode(n, leftState)
	leftState.SetITreeNode(n.left)
	n.right = newNode(n, rightState)
	rightState.SetITreeNode(n.right)
}

// Drop the node's reference to its chain
func (n *Node) destroy() {
	n.pathCondition.release()
	n.pathCondition = nil
	n.removed = true
}

// Assign the program point of the node. Only the first assignment has an effect.
func (n *Node) SetNodeLocation(pp ProgramPoint) {
	if !n.located {
		n.location = pp
		n.located = true
	}
}

// The program point of the node, and whether it has been assigned
func (n *Node) Location() (ProgramPoint, bool) {
	return n.location, n.located
}

// The marked constraints of the node's chain
func (n *Node) Interpolant() []expr.Expr {
	return n.pathCondition.PackInterpolant()
}

// Build the marker map for a subsumption check. When a constraint occurs more than once the link nearest the head is used.
func (n *Node) makeMarkerMap() markerMap {
	mm := markerMap{}
	for it := n.pathCondition; it != nil; it = it.Cdr() {
		if _, ok := mm[it.Car()]; !ok {
			mm[it.Car()] = &marker{pc: it}
		}
	}
	return mm
}

// True if the node added its own link to the chain and that link is marked
func (n *Node) IntroducesMarkedConstraint() bool {
	return n.parent != nil &&
		n.pathCondition != n.parent.pathCondition &&
		n.pathCondition.CarInInterpolant()
}

func (n *Node) IsLeaf() bool {
	return n.left == nil && n.right == nil
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Left() *Node {
	return n.left
}

func (n *Node) Right() *Node {
	return n.right
}

func (n *Node) IsSubsumed() bool {
	return n.subsumed
}

// True once the node has been removed from its tree
func (n *Node) Removed() bool {
	return n.removed
}

// Head of the node's chain. nil if no constraint has been recorded on the path.
func (n *Node) PathCondition() *PathCondition {
	return n.pathCondition
}

func (n *Node) State() State {
	return n.state
}

func (n *Node) String() string {
	if !n.located {
		return "?"
	}
	return fmt.Sprint(n.location)
}
