package graph

import (
	"sort"

	"github.com/starfinanz/realm-core/pkg/types"
)

// tableColumn is one public (user-visible) column of a table: a singular
// link column or a link-list column. Backlink columns are bookkeeping owned
// by the target table and are not part of this interface.
type tableColumn interface {
	colName() string
	isList() bool
	linkKind() types.LinkKind
	targetTable() *Table

	// Structural row mutations of the origin table. broken reports that
	// the reciprocal backlinks of the affected cells were already severed
	// by a cascade scan.
	insertRows(at, n int) error
	eraseRowCells(row int, broken bool) error
	moveLastOverCells(row, prior int, broken bool) error
	swapRowsCells(i, j int) error
	clearCells(broken bool) error

	// Cascade scan entry points.
	cascadeBreak(row int, st *cascadeState) error
	cascadeBreakAll(st *cascadeState) error

	// pairedBacklink returns the backlink column living in the target
	// table on behalf of this column.
	pairedBacklink() *backlinkColumn
}

func sortedKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
