package scheduler

import "itree/state"

// Depth first search.
//
// The most recently added state is stepped first, so a path is followed to its end before its siblings are explored.
// This keeps the subsumption table filled with completed subtrees as early as possible.
type DFS struct {
	pendingStates []*state.ExecutionState
}

func NewDFS() *DFS {
	return &DFS{
		pendingStates: make([]*state.ExecutionState, 0),
	}
}

func (d *DFS) GetState() (*state.ExecutionState, error) {
	if len(d.pendingStates) == 0 {
		return nil, NoStatesError
	}
	// Pop the last element from the pending states
	s := d.pendingStates[len(d.pendingStates)-1]
	d.pendingStates[len(d.pendingStates)-1] = nil
	d.pendingStates = d.pendingStates[:len(d.pendingStates)-1]
	return s, nil
}

func (d *DFS) AddState(s *state.ExecutionState) {
	d.pendingStates = append(d.pendingStates, s)
}

func (d *DFS) Len() int {
	return len(d.pendingStates)
}
