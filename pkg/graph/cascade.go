package graph

import (
	"sort"

	"github.com/starfinanz/realm-core/pkg/types"
)

// cascadeState is the shared state bag of one orphan-collection run. Rows
// scheduled for removal are kept sorted by (table, row) with no duplicates;
// link nullifications destined for the observer accumulate in discovery
// order.
type cascadeState struct {
	g     *Group
	rows  []types.CascadeRow
	links []types.CascadeLink

	// onlyStrong restricts recursion to strong links. Always true for the
	// current entry points; retained for generality.
	onlyStrong bool

	// stopOnTable keeps a whole-table clear from treating the table being
	// cleared as an orphan of itself.
	stopOnTable *Table

	// stopOnList pins the list cell whose clear seeded this run, so the
	// scan cannot re-enter it and sever its backlinks twice.
	stopOnList    *linkListColumn
	stopOnListRow int

	// track enables recording of severed incoming edges for the observer.
	track bool
}

func (g *Group) newCascadeState() *cascadeState {
	return &cascadeState{
		g:          g,
		onlyStrong: true,
		track:      g.onCascade != nil,
	}
}

func (st *cascadeState) find(entry types.CascadeRow) int {
	return sort.Search(len(st.rows), func(i int) bool {
		r := st.rows[i]
		if r.Table != entry.Table {
			return r.Table >= entry.Table
		}
		return r.Row >= entry.Row
	})
}

func (st *cascadeState) isScheduled(entry types.CascadeRow) bool {
	i := st.find(entry)
	return i < len(st.rows) && st.rows[i] == entry
}

// schedule inserts entry at its sorted position.
func (st *cascadeState) schedule(entry types.CascadeRow) {
	i := st.find(entry)
	st.rows = append(st.rows, types.CascadeRow{})
	copy(st.rows[i+1:], st.rows[i:])
	st.rows[i] = entry
}

// check schedules target row and recurses into it when the row has just
// lost its last strong backlink and is not already scheduled.
func (st *cascadeState) check(target *Table, row int) error {
	if target.strongBacklinkCount(row) > 0 {
		return nil
	}
	entry := types.CascadeRow{Table: target.ID(), Row: types.RowID(row)}
	if st.isScheduled(entry) {
		return nil
	}
	st.schedule(entry)
	return target.cascadeBreakBacklinksTo(row, st)
}

// cascadeBreakBacklinksTo scans one scheduled row: the forward columns
// sever their reciprocal backlinks and recurse into freshly orphaned
// targets, then the backlink columns record the row's surviving incoming
// edges for the observer.
func (t *Table) cascadeBreakBacklinksTo(row int, st *cascadeState) error {
	for _, col := range t.cols {
		if err := col.cascadeBreak(row, st); err != nil {
			return err
		}
	}
	for _, bl := range t.backlinks {
		if err := bl.cascadeBreak(row, st); err != nil {
			return err
		}
	}
	return nil
}

// notifyCascade hands the combined payload to the observer before any
// physical deletion. The handler must not mutate the group during the
// call.
func (g *Group) notifyCascade(st *cascadeState) {
	if g.onCascade == nil {
		return
	}
	if len(st.rows) == 0 && len(st.links) == 0 {
		return
	}
	g.onCascade(&types.CascadeNotification{
		Rows:  append([]types.CascadeRow(nil), st.rows...),
		Links: append([]types.CascadeLink(nil), st.links...),
	})
}

// cascadeSeed distinguishes the user-requested removal from the rows the
// cascade discovered; the seed may use the shifting erase instead of
// move-last-over.
type cascadeSeed struct {
	entry types.CascadeRow
	erase bool
}

// removeBrokenRows executes the physical removals, highest (table, row)
// first so pending row indices stay valid. Every removal runs with the
// reciprocal backlinks of the row's own forward edges already severed by
// the scan.
func (g *Group) removeBrokenRows(st *cascadeState, seed *cascadeSeed) error {
	for i := len(st.rows) - 1; i >= 0; i-- {
		entry := st.rows[i]
		tbl := g.tables[entry.Table]
		if seed != nil && entry == seed.entry && seed.erase {
			if err := tbl.physicalEraseRow(int(entry.Row)); err != nil {
				return err
			}
			continue
		}
		if err := tbl.physicalMoveLastOver(int(entry.Row)); err != nil {
			return err
		}
	}
	return nil
}

// cascadeOrphan seeds a run for a single target row that may just have
// lost its last strong backlink.
func (g *Group) cascadeOrphan(target *Table, row int) error {
	if target.strongBacklinkCount(row) > 0 {
		return nil
	}
	st := g.newCascadeState()
	st.schedule(types.CascadeRow{Table: target.ID(), Row: types.RowID(row)})
	if err := target.cascadeBreakBacklinksTo(row, st); err != nil {
		return err
	}
	g.notifyCascade(st)
	return g.removeBrokenRows(st, nil)
}
