package scheduler

import (
	"errors"
	"fmt"

	"itree/state"
)

// Selects the next execution state to step.
//
// Pending states are the frontier of the exploration. The explorer adds the states created by a branch and repeatedly asks for the next one until there are none left.
type Scheduler interface {
	// Get the next state. Will return NoStatesError if there are no pending states.
	GetState() (*state.ExecutionState, error)
	// Add a state to the pending states
	AddState(*state.ExecutionState)
	// Number of pending states
	Len() int
}

var (
	NoStatesError      = errors.New("scheduler: No pending states")
	UnknownSearchError = errors.New("scheduler: Unknown search strategy")
)

// Create a scheduler from the name of its search strategy: "dfs", "bfs" or "random".
//
// The seed is only used by the random strategy.
func New(strategy string, seed int64) (Scheduler, error) {
	switch strategy {
	case "dfs", "":
		return NewDFS(), nil
	case "bfs":
		return NewBFS(), nil
	case "random":
		return NewRandom(seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", UnknownSearchError, strategy)
	}
}
