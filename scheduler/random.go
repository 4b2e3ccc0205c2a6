package scheduler

import (
	"math/rand"

	"itree/state"
)

// A scheduler that randomly picks the next state from the pending states.
//
// Useful for spreading the exploration over the program when it is too large to be explored exhaustively within the step budget.
// The same seed gives the same order of states.
type Random struct {
	pendingStates []*state.ExecutionState

	rand *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{
		pendingStates: make([]*state.ExecutionState, 0),
		rand:          rand.New(rand.NewSource(seed)),
	}
}

func (r *Random) GetState() (*state.ExecutionState, error) {
	if len(r.pendingStates) == 0 {
		return nil, NoStatesError
	}

	index := r.rand.Intn(len(r.pendingStates))
	s := r.pendingStates[index]

	// Remove the element from the slice. This changes the order of the remaining states, which does not matter since we are drawing randomly
	r.pendingStates[index] = r.pendingStates[len(r.pendingStates)-1]
	r.pendingStates[len(r.pendingStates)-1] = nil
	r.pendingStates = r.pendingStates[:len(r.pendingStates)-1]

	return s, nil
}

func (r *Random) AddState(s *state.ExecutionState) {
	r.pendingStates = append(r.pendingStates, s)
}

func (r *Random) Len() int {
	return len(r.pendingStates)
}
