package graph

import (
	"fmt"

	"github.com/starfinanz/realm-core/pkg/types"
)

// linkColumn is a singular forward link column. A cell holds target+1, with
// 0 denoting null, so that a zeroed cell is a null link.
type linkColumn struct {
	tbl      *Table // origin table
	name     string
	idx      types.ColID
	target   *Table
	backlink *backlinkColumn
	kind     types.LinkKind
	cells    []uint64
}

var _ tableColumn = (*linkColumn)(nil)
var _ originColumn = (*linkColumn)(nil)

func (c *linkColumn) colName() string { return c.name }
func (c *linkColumn) isList() bool { return false }
func (c *linkColumn) linkKind() types.LinkKind { return c.kind }
func (c *linkColumn) targetTable() *Table { return c.target }

func (c *linkColumn) pairedBacklink() *backlinkColumn { return c.backlink }

func (c *linkColumn) originTable() *Table { return c.tbl }
func (c *linkColumn) originColID() types.ColID { return c.idx }

// get returns the target row and whether the cell is non-null.
func (c *linkColumn) get(row int) (int, bool) {
	v := c.cells[row]
	if v == 0 {
		return 0, false
	}
	return int(v - 1), true
}

// set rewrites the cell and maintains both backlink cells. It returns the
// prior target, if any. The caller has already emitted the replication
// event and handles any strong-link cascade on the old target.
func (c *linkColumn) set(row, target int) (int, bool, error) {
	old, hadOld := c.get(row)
	if hadOld {
		if err := c.backlink.removeOne(old, row); err != nil {
			return 0, false, err
		}
	}

	if target < 0 {
		c.cells[row] = 0
	} else {
		c.cells[row] = uint64(target) + 1
		if err := c.backlink.add(target, row); err != nil {
			return 0, false, err
		}
	}
	return old, hadOld, nil
}

// nullifyForward is invoked from the backlink side while the target row is
// being destroyed; the backlink cell is already being dismantled.
func (c *linkColumn) nullifyForward(originRow, oldTarget int) error {
	if c.cells[originRow] != uint64(oldTarget)+1 {
		return fmt.Errorf("nullifying link %d->%d: cell holds %d: %w",
			originRow, oldTarget, c.cells[originRow], types.ErrInvariantViolation)
	}
	c.cells[originRow] = 0
	return nil
}

// updateForward retargets the cell when the target row is renumbered.
func (c *linkColumn) updateForward(originRow, oldTarget, newTarget int) error {
	if c.cells[originRow] != uint64(oldTarget)+1 {
		return fmt.Errorf("updating link %d->%d: cell holds %d: %w",
			originRow, oldTarget, c.cells[originRow], types.ErrInvariantViolation)
	}
	c.cells[originRow] = uint64(newTarget) + 1
	return nil
}

// swapForward rewrites the cell when two target rows trade places.
func (c *linkColumn) swapForward(originRow, t1, t2 int) error {
	switch c.cells[originRow] {
	case uint64(t1) + 1:
		c.cells[originRow] = uint64(t2) + 1
	case uint64(t2) + 1:
		c.cells[originRow] = uint64(t1) + 1
	}
	return nil
}

// insertRows shifts in n null cells at position at. Backlinks of the moved
// origin rows are renamed from the highest row down.
func (c *linkColumn) insertRows(at, n int) error {
	for r := len(c.cells) - 1; r >= at; r-- {
		if target, ok := c.get(r); ok {
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
	return nil
}

func (c *linkColumn) eraseRowCells(row int, broken bool) error {
	if !broken {
		if target, ok := c.get(row); ok {
			if err := c.backlink.removeOne(target, row); err != nil {
				return err
			}
		}
	}

	for r := row + 1; r < len(c.cells); r++ {
		if target, ok := c.get(r); ok {
			if err := c.backlink.rename(target, r, r-1); err != nil {
				return err
			}
		}
	}
	c.cells = append(c.cells[:row], c.cells[row+1:]...)
	return nil
}

func (c *linkColumn) moveLastOverCells(row, prior int, broken bool) error {
	if !broken {
		if target, ok := c.get(row); ok {
			if err := c.backlink.removeOne(target, row); err != nil {
				return err
			}
		}
	}

	last := prior - 1
	if row != last {
		if target, ok := c.get(last); ok {
			if err := c.backlink.rename(target, last, row); err != nil {
				return err
			}
		}
		c.cells[row] = c.cells[last]
	}
	c.cells = c.cells[:last]
	return nil
}

// swapRowsCells swaps two origin rows, renaming each unique target's
// backlink entry exactly once so duplicate edges cannot cancel out.
func (c *linkColumn) swapRowsCells(i, j int) error {
	unique := make(map[int]bool)
	if t, ok := c.get(i); ok {
		unique[t] = true
	}
	if t, ok := c.get(j); ok {
		unique[t] = true
	}
	for _, target := range sortedKeys(unique) {
		if err := c.backlink.swapOrigins(target, i, j); err != nil {
			return err
		}
	}
	c.cells[i], c.cells[j] = c.cells[j], c.cells[i]
	return nil
}

func (c *linkColumn) clearCells(broken bool) error {
	if !broken {
		c.backlink.removeAllBacklinks()
	}
	c.cells = c.cells[:0]
	return nil
}

// cascadeBreak severs the reciprocal backlink of the outgoing edge of row
// and schedules the target when it was kept alive only by this edge.
func (c *linkColumn) cascadeBreak(row int, st *cascadeState) error {
	target, ok := c.get(row)
	if !ok {
		return nil
	}
	if err := c.backlink.removeOne(target, row); err != nil {
		return err
	}
	if c.kind == types.Weak && st.onlyStrong {
		return nil
	}
	if c.target == st.stopOnTable {
		return nil
	}
	return st.check(c.target, target)
}

func (c *linkColumn) cascadeBreakAll(st *cascadeState) error {
	c.backlink.removeAllBacklinks()
	if c.kind == types.Weak && st.onlyStrong {
		return nil
	}
	if c.target == st.stopOnTable {
		return nil
	}
	for row := range c.cells {
		if target, ok := c.get(row); ok {
			if err := st.check(c.target, target); err != nil {
				return err
			}
		}
	}
	return nil
}
