package graph

import (
	"fmt"

	"github.com/starfinanz/realm-core/internal/alloc"
	"github.com/starfinanz/realm-core/internal/intcol"
	"github.com/starfinanz/realm-core/pkg/types"
)

// originColumn is the forward side of a link relation as seen from its
// paired backlink column. The backlink side drives these entry points when
// target rows are destroyed, renumbered or swapped.
type originColumn interface {
	// nullifyForward breaks the first forward edge (originRow -> oldTarget)
	// without touching the backlink cell, which the caller is dismantling.
	nullifyForward(originRow, oldTarget int) error

	// updateForward retargets the first forward edge (originRow -> oldTarget)
	// to newTarget. Called once per backlink occurrence, so duplicate edges
	// are rewritten one at a time.
	updateForward(originRow, oldTarget, newTarget int) error

	// swapForward rewrites every occurrence of t1 to t2 and vice versa in
	// the origin row's cell.
	swapForward(originRow, t1, t2 int) error

	originTable() *Table
	originColID() types.ColID
	linkKind() types.LinkKind
}

// backlinkColumn stores, for each row of its target table, the multiset of
// origin rows referencing it through one particular origin column. A cell
// word is 0 when empty, a tagged inline value (origin<<1 | 1) for a single
// backlink, or an even ref to an ordered int store for two or more.
type backlinkColumn struct {
	tbl    *Table // target table
	origin originColumn
	cells  []uint64
}

func newBacklinkColumn(target *Table, origin originColumn) *backlinkColumn {
	return &backlinkColumn{
		tbl:    target,
		origin: origin,
		cells:  make([]uint64, target.sz),
	}
}

func (c *backlinkColumn) allocator() *alloc.Allocator {
	return c.tbl.g.alloc
}

// store attaches a transient handle to the backlink list of targetRow and
// binds the cell as its parent.
func (c *backlinkColumn) store(targetRow int, ref alloc.Ref) *intcol.Column {
	col := intcol.FromRef(c.allocator(), ref)
	col.SetParent(func(newRef alloc.Ref) error {
		c.cells[targetRow] = uint64(newRef)
		return nil
	})
	return col
}

// add appends originRow to the backlink cell of targetRow. A single backlink
// is stored as a tagged inline value; the second backlink promotes the cell
// to a backing store seeded with the prior inline value.
func (c *backlinkColumn) add(targetRow, originRow int) error {
	value := c.cells[targetRow]

	if value == 0 {
		c.cells[targetRow] = uint64(originRow)<<1 | 1
		return nil
	}

	var list *intcol.Column
	if value&1 != 0 {
		prior := value >> 1
		created, err := intcol.Create(c.allocator(), prior)
		if err != nil {
			return fmt.Errorf("promoting backlink cell: %w", err)
		}
		c.cells[targetRow] = uint64(created.Ref())
		list = c.store(targetRow, created.Ref())
	} else {
		list = c.store(targetRow, alloc.Ref(value))
	}
	if err := list.Add(uint64(originRow)); err != nil {
		return fmt.Errorf("appending backlink: %w", err)
	}
	return nil
}

// removeOne removes exactly one occurrence of originRow from the backlink
// cell of targetRow. A store that falls back to one element is demoted to
// the inline form and its backing store freed.
func (c *backlinkColumn) removeOne(targetRow, originRow int) error {
	value := c.cells[targetRow]
	if value == 0 {
		return fmt.Errorf("removing backlink %d<-%d: cell empty: %w",
			targetRow, originRow, types.ErrInvariantViolation)
	}

	if value&1 != 0 {
		if value>>1 != uint64(originRow) {
			return fmt.Errorf("removing backlink %d<-%d: cell holds %d: %w",
				targetRow, originRow, value>>1, types.ErrInvariantViolation)
		}
		c.cells[targetRow] = 0
		return nil
	}

	list := c.store(targetRow, alloc.Ref(value))
	ndx := list.FindFirst(uint64(originRow))
	if ndx < 0 {
		return fmt.Errorf("removing backlink %d<-%d: not found: %w",
			targetRow, originRow, types.ErrInvariantViolation)
	}
	if err := list.Erase(ndx); err != nil {
		return err
	}

	if list.Size() == 1 {
		remaining, err := list.Get(0)
		if err != nil {
			return err
		}
		list.Destroy()
		c.cells[targetRow] = remaining<<1 | 1
	}
	return nil
}

// count returns the number of backlinks of targetRow.
func (c *backlinkColumn) count(targetRow int) int {
	value := c.cells[targetRow]
	switch {
	case value == 0:
		return 0
	case value&1 != 0:
		return 1
	default:
		return intcol.FromRef(c.allocator(), alloc.Ref(value)).Size()
	}
}

// backlink returns the n'th origin row of targetRow.
func (c *backlinkColumn) backlink(targetRow, n int) (int, error) {
	value := c.cells[targetRow]
	if value == 0 {
		return 0, fmt.Errorf("backlink %d of empty cell %d: %w", n, targetRow, types.ErrIndexOutOfRange)
	}
	if value&1 != 0 {
		if n != 0 {
			return 0, fmt.Errorf("backlink %d of inline cell %d: %w", n, targetRow, types.ErrIndexOutOfRange)
		}
		return int(value >> 1), nil
	}
	v, err := c.store(targetRow, alloc.Ref(value)).Get(n)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// rename replaces the first occurrence of oldOrigin with newOrigin in the
// backlink cell of targetRow. Used when origin rows are renumbered.
func (c *backlinkColumn) rename(targetRow, oldOrigin, newOrigin int) error {
	value := c.cells[targetRow]
	if value == 0 {
		return fmt.Errorf("renaming backlink %d<-%d: cell empty: %w",
			targetRow, oldOrigin, types.ErrInvariantViolation)
	}

	if value&1 != 0 {
		if value>>1 != uint64(oldOrigin) {
			return fmt.Errorf("renaming backlink %d<-%d: cell holds %d: %w",
				targetRow, oldOrigin, value>>1, types.ErrInvariantViolation)
		}
		c.cells[targetRow] = uint64(newOrigin)<<1 | 1
		return nil
	}

	list := c.store(targetRow, alloc.Ref(value))
	ndx := list.FindFirst(uint64(oldOrigin))
	if ndx < 0 {
		return fmt.Errorf("renaming backlink %d<-%d: not found: %w",
			targetRow, oldOrigin, types.ErrInvariantViolation)
	}
	return list.Set(ndx, uint64(newOrigin))
}

// swapOrigins rewrites, within the single cell of targetRow, every
// occurrence of origin a to b and vice versa.
func (c *backlinkColumn) swapOrigins(targetRow, a, b int) error {
	value := c.cells[targetRow]
	if value == 0 {
		return nil
	}

	if value&1 != 0 {
		switch value >> 1 {
		case uint64(a):
			c.cells[targetRow] = uint64(b)<<1 | 1
		case uint64(b):
			c.cells[targetRow] = uint64(a)<<1 | 1
		}
		return nil
	}

	list := c.store(targetRow, alloc.Ref(value))
	n := list.Size()
	for i := 0; i < n; i++ {
		v, err := list.Get(i)
		if err != nil {
			return err
		}
		switch v {
		case uint64(a):
			if err := list.Set(i, uint64(b)); err != nil {
				return err
			}
		case uint64(b):
			if err := list.Set(i, uint64(a)); err != nil {
				return err
			}
		}
	}
	return nil
}

// forEach calls fn with every origin row of targetRow, one call per
// occurrence. With drain set, a store-form cell's backing store is freed
// afterwards; the caller is about to reset the cell.
func (c *backlinkColumn) forEach(targetRow int, drain bool, fn func(originRow int) error) error {
	value := c.cells[targetRow]
	if value == 0 {
		return nil
	}

	if value&1 != 0 {
		return fn(int(value >> 1))
	}

	list := c.store(targetRow, alloc.Ref(value))
	n := list.Size()
	origins := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		v, err := list.Get(i)
		if err != nil {
			return err
		}
		origins = append(origins, v)
	}
	for _, v := range origins {
		if err := fn(int(v)); err != nil {
			return err
		}
	}
	if drain {
		list.Destroy()
	}
	return nil
}

// insertRows inserts n empty cells at position at, then retargets forward
// edges pointing at the shifted rows. Shifted rows are visited from the
// highest down so a rewritten value can never collide with one still
// pending.
func (c *backlinkColumn) insertRows(at, n int) error {
	c.cells = append(c.cells, make([]uint64, n)...)
	copy(c.cells[at+n:], c.cells[at:])
	for i := at; i < at+n; i++ {
		c.cells[i] = 0
	}

	for r := len(c.cells) - 1; r >= at+n; r-- {
		old, now := r-n, r
		err := c.forEach(now, false, func(origin int) error {
			return c.origin.updateForward(origin, old, now)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// eraseRow nullifies every forward edge into row, then shifts the cells
// above it down by one, retargeting forward edges from the lowest shifted
// row up.
func (c *backlinkColumn) eraseRow(row int) error {
	err := c.forEach(row, true, func(origin int) error {
		return c.origin.nullifyForward(origin, row)
	})
	if err != nil {
		return err
	}
	c.cells[row] = 0

	for r := row + 1; r < len(c.cells); r++ {
		err := c.forEach(r, false, func(origin int) error {
			return c.origin.updateForward(origin, r, r-1)
		})
		if err != nil {
			return err
		}
	}
	c.cells = append(c.cells[:row], c.cells[row+1:]...)
	return nil
}

// moveLastOver nullifies every forward edge into row, retargets edges into
// the last row to point at row instead, and moves the last cell over.
func (c *backlinkColumn) moveLastOver(row, prior int) error {
	err := c.forEach(row, true, func(origin int) error {
		return c.origin.nullifyForward(origin, row)
	})
	if err != nil {
		return err
	}
	c.cells[row] = 0

	last := prior - 1
	if row != last {
		err := c.forEach(last, false, func(origin int) error {
			return c.origin.updateForward(origin, last, row)
		})
		if err != nil {
			return err
		}
		c.cells[row] = c.cells[last]
	}
	c.cells = c.cells[:last]
	return nil
}

// swapRows propagates a target-row swap to the forward side, visiting each
// unique origin exactly once, then swaps the two cells.
func (c *backlinkColumn) swapRows(i, j int) error {
	unique := make(map[int]bool)
	collect := func(origin int) error {
		unique[origin] = true
		return nil
	}
	if err := c.forEach(i, false, collect); err != nil {
		return err
	}
	if err := c.forEach(j, false, collect); err != nil {
		return err
	}
	for _, origin := range sortedKeys(unique) {
		if err := c.origin.swapForward(origin, i, j); err != nil {
			return err
		}
	}
	c.cells[i], c.cells[j] = c.cells[j], c.cells[i]
	return nil
}

// clearCells nullifies every remaining forward edge into this table through
// the paired origin column, frees all backing stores, and zeroes the cells.
func (c *backlinkColumn) clearCells() error {
	for row := range c.cells {
		err := c.forEach(row, true, func(origin int) error {
			return c.origin.nullifyForward(origin, row)
		})
		if err != nil {
			return err
		}
		c.cells[row] = 0
	}
	c.cells = c.cells[:0]
	return nil
}

// removeAllBacklinks frees every backing store and zeroes every cell
// without touching the forward side. The origin column is clearing itself
// and dismantles its own cells.
func (c *backlinkColumn) removeAllBacklinks() {
	for row, value := range c.cells {
		if value != 0 && value&1 == 0 {
			c.allocator().Free(alloc.Ref(value))
		}
		c.cells[row] = 0
	}
}

// cascadeBreak records, for the observer, every remaining incoming edge of
// row. The edges themselves are severed when the row is physically removed.
func (c *backlinkColumn) cascadeBreak(row int, st *cascadeState) error {
	if !st.track {
		return nil
	}
	return c.forEach(row, false, func(origin int) error {
		st.links = append(st.links, types.CascadeLink{
			OriginTable: c.origin.originTable().ID(),
			OriginCol:   c.origin.originColID(),
			OriginRow:   types.RowID(origin),
			OldTarget:   types.RowID(row),
		})
		return nil
	})
}

// cascadeBreakAll is the whole-table variant of cascadeBreak.
func (c *backlinkColumn) cascadeBreakAll(st *cascadeState) error {
	if !st.track {
		return nil
	}
	for row := range c.cells {
		if err := c.cascadeBreak(row, st); err != nil {
			return err
		}
	}
	return nil
}

// destroy frees all backing stores. Used when the target table goes away.
func (c *backlinkColumn) destroy() {
	c.removeAllBacklinks()
}
