package scheduler

import "itree/state"

// Breadth first search. States are stepped in the order they were added.
type BFS struct {
	pendingStates []*state.ExecutionState
}

func NewBFS() *BFS {
	return &BFS{
		pendingStates: make([]*state.ExecutionState, 0),
	}
}

func (b *BFS) GetState() (*state.ExecutionState, error) {
	if len(b.pendingStates) == 0 {
		return nil, NoStatesError
	}
	s := b.pendingStates[0]
	b.pendingStates[0] = nil
	b.pendingStates = b.pendingStates[1:]
	return s, nil
}

func (b *BFS) AddState(s *state.ExecutionState) {
	b.pendingStates = append(b.pendingStates, s)
}

func (b *BFS) Len() int {
	return len(b.pendingStates)
}
