package graph

import (
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"weak"

	"github.com/starfinanz/realm-core/internal/alloc"
	"github.com/starfinanz/realm-core/internal/intcol"
	"github.com/starfinanz/realm-core/pkg/types"
)

// linkListColumn is a list-valued forward link column. A cell holds the ref
// of an ordered int store of target row indices, or 0 for the degenerate
// empty list. The column keeps a registry of live ListViews, sorted by
// origin row, so outstanding handles track their rows across renumbering.
type linkListColumn struct {
	tbl      *Table // origin table
	name     string
	idx      types.ColID
	target   *Table
	backlink *backlinkColumn
	kind     types.LinkKind
	cells    []uint64

	views []listEntry
	// tombstones is set from the view finalizer; collected views leave
	// expired entries behind that are reaped at the next mutator.
	tombstones atomic.Bool
}

// listEntry pairs an origin row with a weak handle to its live view.
type listEntry struct {
	row  int
	view weak.Pointer[ListView]
}

var _ tableColumn = (*linkListColumn)(nil)
var _ originColumn = (*linkListColumn)(nil)

func (c *linkListColumn) colName() string { return c.name }
func (c *linkListColumn) isList() bool { return true }
func (c *linkListColumn) linkKind() types.LinkKind { return c.kind }
func (c *linkListColumn) targetTable() *Table { return c.target }

func (c *linkListColumn) pairedBacklink() *backlinkColumn { return c.backlink }

func (c *linkListColumn) originTable() *Table { return c.tbl }
func (c *linkListColumn) originColID() types.ColID { return c.idx }

func (c *linkListColumn) allocator() *alloc.Allocator {
	return c.tbl.g.alloc
}

// targets reads the list contents of row. A degenerate cell yields nil.
func (c *linkListColumn) targets(row int) ([]int, error) {
	ref := alloc.Ref(c.cells[row])
	if ref == 0 {
		return nil, nil
	}
	list := intcol.FromRef(c.allocator(), ref)
	n := list.Size()
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		v, err := list.Get(i)
		if err != nil {
			return nil, err
		}
		out = append(out, int(v))
	}
	return out, nil
}

// insertRows shifts in n empty cells at position at. Every backlink held by
// the moved origin rows is renamed, highest row first.
func (c *linkListColumn) insertRows(at, n int) error {
	for r := len(c.cells) - 1; r >= at; r-- {
		ts, err := c.targets(r)
		if err != nil {
			return err
		}
		for _, target := range ts {
			if err := c.backlink.rename(target, r, r+n); err != nil {
				return err
			}
		}
	}

	c.cells = append(c.cells, make([]uint64, n)...)
	copy(c.cells[at+n:], c.cells[at:])
	for i := at; i < at+n; i++ {
		c.cells[i] = 0
	}

	c.adjInsertRows(at, n)
	return nil
}

func (c *linkListColumn) eraseRowCells(row int, broken bool) error {
	if ref := alloc.Ref(c.cells[row]); ref != 0 {
		if !broken {
			ts, err := c.targets(row)
			if err != nil {
				return err
			}
			for _, target := range ts {
				if err := c.backlink.removeOne(target, row); err != nil {
					return err
				}
			}
		}
		c.allocator().Free(ref)
	}

	for r := row + 1; r < len(c.cells); r++ {
		ts, err := c.targets(r)
		if err != nil {
			return err
		}
		for _, target := range ts {
			if err := c.backlink.rename(target, r, r-1); err != nil {
				return err
			}
		}
	}
	c.cells = append(c.cells[:row], c.cells[row+1:]...)

	c.adjEraseRows(row, 1)
	return nil
}

func (c *linkListColumn) moveLastOverCells(row, prior int, broken bool) error {
	if ref := alloc.Ref(c.cells[row]); ref != 0 {
		if !broken {
			ts, err := c.targets(row)
			if err != nil {
				return err
			}
			for _, target := range ts {
				if err := c.backlink.removeOne(target, row); err != nil {
					return err
				}
			}
		}
		c.allocator().Free(ref)
		c.cells[row] = 0
	}

	last := prior - 1
	if row != last {
		ts, err := c.targets(last)
		if err != nil {
			return err
		}
		for _, target := range ts {
			if err := c.backlink.rename(target, last, row); err != nil {
				return err
			}
		}
		c.cells[row] = c.cells[last]
	}
	c.cells = c.cells[:last]

	c.adjMoveOver(last, row)
	return nil
}

// swapRowsCells swaps two origin rows. Each unique target referenced by
// either cell has its backlink cell rewritten exactly once; a per-entry
// rewrite would cancel itself when a cell lists the same target twice.
func (c *linkListColumn) swapRowsCells(i, j int) error {
	unique := make(map[int]bool)
	for _, row := range [2]int{i, j} {
		ts, err := c.targets(row)
		if err != nil {
			return err
		}
		for _, t := range ts {
			unique[t] = true
		}
	}
	for _, target := range sortedKeys(unique) {
		if err := c.backlink.swapOrigins(target, i, j); err != nil {
			return err
		}
	}
	c.cells[i], c.cells[j] = c.cells[j], c.cells[i]

	c.adjSwap(i, j)
	return nil
}

func (c *linkListColumn) clearCells(broken bool) error {
	if !broken {
		c.backlink.removeAllBacklinks()
	}
	for row, cell := range c.cells {
		if ref := alloc.Ref(cell); ref != 0 {
			c.allocator().Free(ref)
		}
		c.cells[row] = 0
	}
	c.cells = c.cells[:0]

	c.discardViews()
	return nil
}

// cascadeBreak severs the reciprocal backlink of every outgoing edge of row
// and schedules targets left without strong backlinks. The cell pinned by
// the state's stopping condition is skipped: its backlinks were already
// removed by the clear that seeded the cascade.
func (c *linkListColumn) cascadeBreak(row int, st *cascadeState) error {
	if c == st.stopOnList && row == st.stopOnListRow {
		return nil
	}
	ts, err := c.targets(row)
	if err != nil {
		return err
	}
	for _, target := range ts {
		if err := c.backlink.removeOne(target, row); err != nil {
			return err
		}
		if c.kind == types.Weak && st.onlyStrong {
			continue
		}
		if c.target == st.stopOnTable {
			continue
		}
		if err := st.check(c.target, target); err != nil {
			return err
		}
	}
	return nil
}

func (c *linkListColumn) cascadeBreakAll(st *cascadeState) error {
	c.backlink.removeAllBacklinks()
	if c.kind == types.Weak && st.onlyStrong {
		return nil
	}
	if c.target == st.stopOnTable {
		return nil
	}
	for row := range c.cells {
		ts, err := c.targets(row)
		if err != nil {
			return err
		}
		for _, target := range ts {
			if err := st.check(c.target, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// Forward-side entry points driven by the backlink column.

func (c *linkListColumn) nullifyForward(originRow, oldTarget int) error {
	v, err := c.getOrCreateView(originRow)
	if err != nil {
		return err
	}
	return v.doNullify(oldTarget)
}

func (c *linkListColumn) updateForward(originRow, oldTarget, newTarget int) error {
	v, err := c.getOrCreateView(originRow)
	if err != nil {
		return err
	}
	return v.doUpdate(oldTarget, newTarget)
}

func (c *linkListColumn) swapForward(originRow, t1, t2 int) error {
	v, err := c.getOrCreateView(originRow)
	if err != nil {
		return err
	}
	return v.doSwapTargets(t1, t2)
}

// View registry.

// markTombstones runs as the view finalizer. Pruning races with concurrent
// collection are benign: tombstones created after a scan remain until the
// next one.
func markTombstones(c *linkListColumn) {
	c.tombstones.Store(true)
}

func (c *linkListColumn) lowerBound(row int) int {
	return sort.Search(len(c.views), func(i int) bool { return c.views[i].row >= row })
}

// pruneTombstones drops expired registry entries, best effort.
func (c *linkListColumn) pruneTombstones() {
	if !c.tombstones.Swap(false) {
		return
	}
	kept := c.views[:0]
	for _, e := range c.views {
		if e.view.Value() != nil {
			kept = append(kept, e)
		}
	}
	c.views = kept
}

// getOrCreateView returns the live view of row, creating and registering
// one if needed. At most one live view exists per row; repeated lookups
// return the same handle while it lives.
func (c *linkListColumn) getOrCreateView(row int) (*ListView, error) {
	if row < 0 || row >= len(c.cells) {
		return nil, fmt.Errorf("list accessor for row %d of %d: %w", row, len(c.cells), types.ErrIndexOutOfRange)
	}
	c.pruneTombstones()

	i := c.lowerBound(row)
	if i < len(c.views) && c.views[i].row == row {
		if v := c.views[i].view.Value(); v != nil {
			return v, nil
		}
		v := c.newView(row)
		c.views[i].view = weak.Make(v)
		return v, nil
	}

	v := c.newView(row)
	entry := listEntry{row: row, view: weak.Make(v)}
	c.views = append(c.views, listEntry{})
	copy(c.views[i+1:], c.views[i:])
	c.views[i] = entry
	return v, nil
}

func (c *linkListColumn) newView(row int) *ListView {
	v := &ListView{col: c, row: row, attached: true}
	if ref := alloc.Ref(c.cells[row]); ref != 0 {
		v.attachStore(ref)
	}
	runtime.AddCleanup(v, markTombstones, c)
	return v
}

// adjustViews applies fn to every live entry, drops detached ones, and
// restores the sorted order. fn returns the entry's new row, or -1 to
// detach and drop it.
func (c *linkListColumn) adjustViews(fn func(row int) int) {
	c.pruneTombstones()
	kept := c.views[:0]
	for _, e := range c.views {
		v := e.view.Value()
		newRow := fn(e.row)
		if newRow < 0 {
			if v != nil {
				v.detach()
			}
			continue
		}
		e.row = newRow
		if v != nil {
			v.row = newRow
		}
		kept = append(kept, e)
	}
	c.views = kept
	sort.SliceStable(c.views, func(i, j int) bool { return c.views[i].row < c.views[j].row })
}

func (c *linkListColumn) adjInsertRows(at, n int) {
	c.adjustViews(func(row int) int {
		if row >= at {
			return row + n
		}
		return row
	})
}

func (c *linkListColumn) adjEraseRows(at, n int) {
	c.adjustViews(func(row int) int {
		switch {
		case row < at:
			return row
		case row < at+n:
			return -1
		default:
			return row - n
		}
	})
}

func (c *linkListColumn) adjMoveOver(from, to int) {
	c.adjustViews(func(row int) int {
		switch row {
		case to:
			return -1
		case from:
			return to
		default:
			return row
		}
	})
}

func (c *linkListColumn) adjSwap(i, j int) {
	c.adjustViews(func(row int) int {
		switch row {
		case i:
			return j
		case j:
			return i
		default:
			return row
		}
	})
}

// discardViews detaches every live view and empties the registry.
func (c *linkListColumn) discardViews() {
	for _, e := range c.views {
		if v := e.view.Value(); v != nil {
			v.detach()
		}
	}
	c.views = nil
}
