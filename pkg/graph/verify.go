package graph

import (
	"fmt"

	"github.com/starfinanz/realm-core/pkg/types"
)

// Verify checks the universal invariants of the whole group: reciprocity
// between every forward column and its paired backlink column, absence of
// dangling row indices, and sortedness of the view registries. A failure
// wraps ErrInvariantViolation. Intended for tests and the CLI; a correct
// sequence of mutations can never make it fail.
func (g *Group) Verify() error {
	for _, t := range g.tables {
		if err := t.verify(); err != nil {
			return fmt.Errorf("table %q: %w", t.name, err)
		}
	}
	return nil
}

type edge struct {
	origin, target int
}

func (t *Table) verify() error {
	for _, col := range t.cols {
		if err := t.verifyColumn(col); err != nil {
			return fmt.Errorf("column %q: %w", col.colName(), err)
		}
	}
	for _, bl := range t.backlinks {
		for row := range bl.cells {
			err := bl.forEach(row, false, func(origin int) error {
				if origin < 0 || origin >= bl.origin.originTable().sz {
					return fmt.Errorf("backlink cell %d holds dangling origin %d: %w",
						row, origin, types.ErrInvariantViolation)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// verifyColumn recomputes the forward edge multiset of one column and
// matches it against the paired backlink cells. A forward edge
// (origin -> target) with multiplicity N must exist if, and only if, the
// backlink cell at target holds origin with multiplicity N.
func (t *Table) verifyColumn(col tableColumn) error {
	target := col.targetTable()
	forward := make(map[edge]int)

	switch c := col.(type) {
	case *linkColumn:
		for row := range c.cells {
			if tgt, ok := c.get(row); ok {
				if tgt < 0 || tgt >= target.sz {
					return fmt.Errorf("row %d links to dangling target %d: %w", row, tgt, types.ErrInvariantViolation)
				}
				forward[edge{row, tgt}]++
			}
		}
	case *linkListColumn:
		for row := range c.cells {
			ts, err := c.targets(row)
			if err != nil {
				return err
			}
			for _, tgt := range ts {
				if tgt < 0 || tgt >= target.sz {
					return fmt.Errorf("row %d lists dangling target %d: %w", row, tgt, types.ErrInvariantViolation)
				}
				forward[edge{row, tgt}]++
			}
		}
		if err := c.verifyRegistry(); err != nil {
			return err
		}
	}

	bl := col.pairedBacklink()
	if len(bl.cells) != target.sz {
		return fmt.Errorf("backlink column spans %d cells for %d rows: %w",
			len(bl.cells), target.sz, types.ErrInvariantViolation)
	}
	backward := make(map[edge]int)
	for row := range bl.cells {
		err := bl.forEach(row, false, func(origin int) error {
			backward[edge{origin, row}]++
			return nil
		})
		if err != nil {
			return err
		}
	}

	for e, n := range forward {
		if backward[e] != n {
			return fmt.Errorf("edge %d->%d has %d forward, %d backward: %w",
				e.origin, e.target, n, backward[e], types.ErrInvariantViolation)
		}
	}
	for e, n := range backward {
		if forward[e] != n {
			return fmt.Errorf("edge %d->%d has %d forward, %d backward: %w",
				e.origin, e.target, forward[e], n, types.ErrInvariantViolation)
		}
	}
	return nil
}

// verifyRegistry checks that the live view registry is sorted by origin row
// with no duplicates, tombstones ignored, and that every live view agrees
// with its registry entry.
func (c *linkListColumn) verifyRegistry() error {
	prev := -1
	for _, e := range c.views {
		if e.row <= prev {
			return fmt.Errorf("view registry unsorted at row %d: %w", e.row, types.ErrInvariantViolation)
		}
		prev = e.row
		if v := e.view.Value(); v != nil {
			if !v.attached || v.row != e.row {
				return fmt.Errorf("view registry entry %d disagrees with its view: %w", e.row, types.ErrInvariantViolation)
			}
		}
	}
	return nil
}
