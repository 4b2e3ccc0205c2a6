package itree

import (
	"fmt"
	"io"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Counts how often each program point has been visited during the run
type blockTable struct {
	visits map[ProgramPoint]int
}

func newBlockTable() *blockTable {
	return &blockTable{visits: map[ProgramPoint]int{}}
}

func (bt *blockTable) add(pp ProgramPoint) {
	bt.visits[pp]++
}

func (bt *blockTable) dump(w io.Writer) {
	fmt.Fprintln(w, "------------------------- Visited Blocks ----------------------------")
	points := maps.Keys(bt.visits)
	slices.Sort(points)
	for _, pp := range points {
		fmt.Fprintf(w, "block %v: %v\n", pp, bt.visits[pp])
	}
}
