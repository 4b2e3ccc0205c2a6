package explorer

import (
	"fmt"

	"itree"
	"itree/expr"
)

// A path that reached an error block
type ReachedError struct {
	Block   itree.ProgramPoint
	Message string
	// The path constraints of the state that reached the block
	Constraints []expr.Expr
}

func (re ReachedError) Error() string {
	return fmt.Sprintf("Explorer: block %v reached: %v. Path constraints: %v", re.Block, re.Message, re.Constraints)
}

// Aggregates the errors that ocurred during an exploration
type explorationError struct {
	errorSlice []error
}

func (ee explorationError) Error() string {
	return fmt.Sprintf("Explorer: %v Errors occurred while exploring. \nError 1: %v", len(ee.errorSlice), ee.errorSlice[0])
}

// Allows errors.Is and errors.As to inspect every aggregated error
func (ee explorationError) Unwrap() []error {
	return ee.errorSlice
}
