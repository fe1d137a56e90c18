package graph

import (
	"fmt"

	"github.com/starfinanz/realm-core/internal/alloc"
	"github.com/starfinanz/realm-core/internal/intcol"
	"github.com/starfinanz/realm-core/pkg/types"
)

// ListView is a live, stable handle onto one link-list cell. It survives
// renumbering of its origin row; structural mutations of the owning column
// keep the handle's row current. A view whose row or column is destroyed is
// detached, and every further operation fails with ErrDetachedAccessor.
//
// While attached, a view is either degenerate (no backing store, size 0) or
// realized. The backing store is allocated on first insert and freed again
// when the list becomes empty through Remove, Clear, or nullification.
type ListView struct {
	col      *linkListColumn
	row      int
	attached bool
	store    *intcol.Column // nil while degenerate
}

// OriginRow returns the current origin row of the view, or RowNone when
// detached.
func (v *ListView) OriginRow() types.RowID {
	if !v.attached {
		return types.RowNone
	}
	return types.RowID(v.row)
}

// IsAttached reports whether the view is still bound to a live cell.
func (v *ListView) IsAttached() bool {
	return v.attached
}

// Size returns the number of links in the list.
func (v *ListView) Size() (int, error) {
	if !v.attached {
		return 0, types.ErrDetachedAccessor
	}
	if v.store == nil {
		return 0, nil
	}
	return v.store.Size(), nil
}

// Get returns the target row at position ndx.
func (v *ListView) Get(ndx int) (types.RowID, error) {
	if !v.attached {
		return types.RowNone, types.ErrDetachedAccessor
	}
	if v.store == nil {
		return types.RowNone, fmt.Errorf("link list get %d of empty list: %w", ndx, types.ErrIndexOutOfRange)
	}
	val, err := v.store.Get(ndx)
	if err != nil {
		return types.RowNone, err
	}
	return types.RowID(val), nil
}

// Targets returns a copy of the whole list.
func (v *ListView) Targets() ([]types.RowID, error) {
	n, err := v.Size()
	if err != nil {
		return nil, err
	}
	out := make([]types.RowID, 0, n)
	for i := 0; i < n; i++ {
		t, err := v.Get(i)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Insert adds a link to target at position ndx. A degenerate cell is
// realized first: the backing store is allocated and registered with the
// parent cell.
func (v *ListView) Insert(ndx int, target types.RowID) error {
	if !v.attached {
		return types.ErrDetachedAccessor
	}
	size := 0
	if v.store != nil {
		size = v.store.Size()
	}
	if ndx < 0 || ndx > size {
		return fmt.Errorf("link list insert at %d of %d: %w", ndx, size, types.ErrIndexOutOfRange)
	}
	if err := v.checkTarget(target); err != nil {
		return err
	}

	if repl := v.repl(); repl != nil {
		repl.LinkListInsert(v.listRef(), ndx, target)
	}

	if v.store == nil {
		created, err := intcol.Create(v.col.allocator())
		if err != nil {
			return fmt.Errorf("realizing link list: %w", err)
		}
		v.col.cells[v.row] = uint64(created.Ref())
		v.attachStore(created.Ref())
	}
	if err := v.store.Insert(ndx, uint64(target)); err != nil {
		return err
	}
	return v.col.backlink.add(int(target), v.row)
}

// Set overwrites the link at position ndx. When the column is strong and
// the old target loses its last strong backlink, the target row is removed
// by cascade.
func (v *ListView) Set(ndx int, target types.RowID) error {
	if !v.attached {
		return types.ErrDetachedAccessor
	}
	if v.store == nil || ndx < 0 || ndx >= v.store.Size() {
		return fmt.Errorf("link list set at %d: %w", ndx, types.ErrIndexOutOfRange)
	}
	if err := v.checkTarget(target); err != nil {
		return err
	}

	if repl := v.repl(); repl != nil {
		repl.LinkListSet(v.listRef(), ndx, target)
	}

	oldVal, err := v.store.Get(ndx)
	if err != nil {
		return err
	}
	old := int(oldVal)
	if err := v.col.backlink.removeOne(old, v.row); err != nil {
		return err
	}
	if err := v.col.backlink.add(int(target), v.row); err != nil {
		return err
	}
	if err := v.store.Set(ndx, uint64(target)); err != nil {
		return err
	}

	if v.col.kind == types.Strong {
		return v.col.tbl.g.cascadeOrphan(v.col.target, old)
	}
	return nil
}

// Remove erases the link at position ndx, with the same cascade rule as
// Set. When the list becomes empty the backing store is freed and the cell
// reverts to its degenerate form.
func (v *ListView) Remove(ndx int) error {
	if !v.attached {
		return types.ErrDetachedAccessor
	}
	if v.store == nil || ndx < 0 || ndx >= v.store.Size() {
		return fmt.Errorf("link list remove at %d: %w", ndx, types.ErrIndexOutOfRange)
	}

	if repl := v.repl(); repl != nil {
		repl.LinkListErase(v.listRef(), ndx)
	}

	oldVal, err := v.store.Get(ndx)
	if err != nil {
		return err
	}
	old := int(oldVal)
	if err := v.col.backlink.removeOne(old, v.row); err != nil {
		return err
	}
	if err := v.store.Erase(ndx); err != nil {
		return err
	}
	if v.store.Size() == 0 {
		v.dropStore()
	}

	if v.col.kind == types.Strong {
		return v.col.tbl.g.cascadeOrphan(v.col.target, old)
	}
	return nil
}

// Move reorders one link. No backlinks change.
func (v *ListView) Move(from, to int) error {
	if !v.attached {
		return types.ErrDetachedAccessor
	}
	size := 0
	if v.store != nil {
		size = v.store.Size()
	}
	if from < 0 || from >= size || to < 0 || to >= size {
		return fmt.Errorf("link list move %d->%d of %d: %w", from, to, size, types.ErrIndexOutOfRange)
	}
	if from == to {
		return nil
	}

	if repl := v.repl(); repl != nil {
		repl.LinkListMove(v.listRef(), from, to)
	}

	target, err := v.store.Get(from)
	if err != nil {
		return err
	}
	if err := v.store.Erase(from); err != nil {
		return err
	}
	return v.store.Insert(to, target)
}

// Swap exchanges two links. Indices are canonicalized so that the smaller
// one is reported first; peers consuming the replication event rely on it.
// No backlinks change.
func (v *ListView) Swap(ndx1, ndx2 int) error {
	if !v.attached {
		return types.ErrDetachedAccessor
	}
	size := 0
	if v.store != nil {
		size = v.store.Size()
	}
	if ndx1 < 0 || ndx1 >= size || ndx2 < 0 || ndx2 >= size {
		return fmt.Errorf("link list swap %d,%d of %d: %w", ndx1, ndx2, size, types.ErrIndexOutOfRange)
	}
	if ndx1 == ndx2 {
		return nil
	}
	if ndx1 > ndx2 {
		ndx1, ndx2 = ndx2, ndx1
	}

	if repl := v.repl(); repl != nil {
		repl.LinkListSwap(v.listRef(), ndx1, ndx2)
	}

	a, err := v.store.Get(ndx1)
	if err != nil {
		return err
	}
	b, err := v.store.Get(ndx2)
	if err != nil {
		return err
	}
	if err := v.store.Set(ndx1, b); err != nil {
		return err
	}
	return v.store.Set(ndx2, a)
}

// Clear removes every link. For weak columns each backlink is removed
// individually. For strong columns the cascade protocol runs: every unique
// orphaned target seeds a scan whose stopping condition is pinned to this
// cell, so recursion cannot re-enter it and double-remove backlinks.
func (v *ListView) Clear() error {
	if !v.attached {
		return types.ErrDetachedAccessor
	}
	if v.store == nil {
		return nil
	}

	if repl := v.repl(); repl != nil {
		repl.LinkListClear(v.listRef())
	}

	g := v.col.tbl.g
	if v.col.kind == types.Weak {
		n := v.store.Size()
		for i := 0; i < n; i++ {
			val, err := v.store.Get(i)
			if err != nil {
				return err
			}
			if err := v.col.backlink.removeOne(int(val), v.row); err != nil {
				return err
			}
		}
		v.dropStore()
		return nil
	}

	st := g.newCascadeState()
	st.stopOnList = v.col
	st.stopOnListRow = v.row

	n := v.store.Size()
	for i := 0; i < n; i++ {
		val, err := v.store.Get(i)
		if err != nil {
			return err
		}
		target := int(val)
		if err := v.col.backlink.removeOne(target, v.row); err != nil {
			return err
		}
		if v.col.target.strongBacklinkCount(target) > 0 {
			continue
		}
		entry := types.CascadeRow{Table: v.col.target.ID(), Row: types.RowID(target)}
		if st.isScheduled(entry) {
			continue
		}
		st.schedule(entry)
		if err := v.col.target.cascadeBreakBacklinksTo(target, st); err != nil {
			return err
		}
	}

	g.notifyCascade(st)
	v.dropStore()
	return g.removeBrokenRows(st, nil)
}

// RemoveTargetRow erases the target row at position ndx from the target
// table. The removal transitively unlinks this and any other reference to
// that row.
func (v *ListView) RemoveTargetRow(ndx int) error {
	if !v.attached {
		return types.ErrDetachedAccessor
	}
	if v.store == nil || ndx < 0 || ndx >= v.store.Size() {
		return fmt.Errorf("link list delete target at %d: %w", ndx, types.ErrIndexOutOfRange)
	}
	target, err := v.store.Get(ndx)
	if err != nil {
		return err
	}
	return v.col.target.MoveLastOver(types.RowID(target))
}

// RemoveAllTargetRows erases every row this list points at from the target
// table. Each removal nullifies the corresponding entries, so the list
// drains as the targets disappear.
func (v *ListView) RemoveAllTargetRows() error {
	if !v.attached {
		return types.ErrDetachedAccessor
	}
	for v.store != nil && v.store.Size() > 0 {
		if err := v.RemoveTargetRow(0); err != nil {
			return err
		}
	}
	return nil
}

// doNullify erases the first occurrence of oldTarget. Invoked from the
// backlink side while the target row is destroyed; the reciprocal backlink
// cell is already being dismantled.
func (v *ListView) doNullify(oldTarget int) error {
	if v.store == nil {
		return fmt.Errorf("nullifying link to %d in empty list: %w", oldTarget, types.ErrInvariantViolation)
	}
	pos := v.store.FindFirst(uint64(oldTarget))
	if pos < 0 {
		return fmt.Errorf("nullifying link to %d: not found: %w", oldTarget, types.ErrInvariantViolation)
	}

	if repl := v.repl(); repl != nil {
		repl.LinkListNullify(v.listRef(), pos)
	}

	if err := v.store.Erase(pos); err != nil {
		return err
	}
	if v.store.Size() == 0 {
		v.dropStore()
	}
	return nil
}

// doUpdate rewrites the first occurrence of oldTarget. The backlink side
// calls it once per occurrence when the target row is renumbered.
func (v *ListView) doUpdate(oldTarget, newTarget int) error {
	if v.store == nil {
		return fmt.Errorf("updating link to %d in empty list: %w", oldTarget, types.ErrInvariantViolation)
	}
	pos := v.store.FindFirst(uint64(oldTarget))
	if pos < 0 {
		return fmt.Errorf("updating link to %d: not found: %w", oldTarget, types.ErrInvariantViolation)
	}
	return v.store.Set(pos, uint64(newTarget))
}

// doSwapTargets rewrites every occurrence of t1 to t2 and vice versa.
func (v *ListView) doSwapTargets(t1, t2 int) error {
	if v.store == nil {
		return nil
	}
	n := v.store.Size()
	for i := 0; i < n; i++ {
		val, err := v.store.Get(i)
		if err != nil {
			return err
		}
		switch int(val) {
		case t1:
			if err := v.store.Set(i, uint64(t2)); err != nil {
				return err
			}
		case t2:
			if err := v.store.Set(i, uint64(t1)); err != nil {
				return err
			}
		}
	}
	return nil
}

// attachStore binds the backing store at ref and registers the parent cell
// so a copied-on-write root is persisted back.
func (v *ListView) attachStore(ref alloc.Ref) {
	v.store = intcol.FromRef(v.col.allocator(), ref)
	v.store.SetParent(func(newRef alloc.Ref) error {
		v.col.cells[v.row] = uint64(newRef)
		return nil
	})
}

// dropStore frees the backing store and reverts the cell to its degenerate
// form.
func (v *ListView) dropStore() {
	v.store.Destroy()
	v.store = nil
	v.col.cells[v.row] = 0
}

// detach permanently severs the view from its cell. One-way: there is no
// re-attach.
func (v *ListView) detach() {
	if !v.attached {
		return
	}
	if repl := v.repl(); repl != nil {
		repl.OnListViewDestroyed(v.listRef())
	}
	v.attached = false
	v.store = nil
}

func (v *ListView) checkTarget(target types.RowID) error {
	if target < 0 || int(target) >= v.col.target.sz {
		return fmt.Errorf("link target %d of %d rows: %w", target, v.col.target.sz, types.ErrIndexOutOfRange)
	}
	return nil
}

func (v *ListView) repl() types.Replication {
	return v.col.tbl.g.repl
}

func (v *ListView) listRef() types.ListRef {
	return types.ListRef{Table: v.col.tbl.ID(), Col: v.col.idx, Row: types.RowID(v.row)}
}
