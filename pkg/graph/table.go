package graph

import (
	"fmt"

	"github.com/starfinanz/realm-core/pkg/types"
)

// Table is one typed table of the group. Rows carry no payload of their
// own; a table is the set of link and link-list columns rooted at it, plus
// the hidden backlink columns it keeps on behalf of columns in origin
// tables targeting it.
type Table struct {
	g        *Group
	name     string
	sz       int
	detached bool

	cols      []tableColumn
	backlinks []*backlinkColumn
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Size returns the current number of rows.
func (t *Table) Size() int { return t.sz }

// IsAttached reports whether the table still belongs to its group. A table
// removed from the group is detached; operations on it fail.
func (t *Table) IsAttached() bool { return !t.detached }

// ID returns the table's current index within its group, or -1 when
// detached. Indices shift when tables are removed.
func (t *Table) ID() types.TableID {
	if t.detached {
		return types.TableID(-1)
	}
	for i, tbl := range t.g.tables {
		if tbl == t {
			return types.TableID(i)
		}
	}
	return types.TableID(-1)
}

func (t *Table) guard() error {
	if t.detached {
		return fmt.Errorf("table %q: %w", t.name, types.ErrDetachedAccessor)
	}
	return nil
}

func (t *Table) checkRow(row types.RowID) error {
	if row < 0 || int(row) >= t.sz {
		return fmt.Errorf("row %d of %d in table %q: %w", row, t.sz, t.name, types.ErrIndexOutOfRange)
	}
	return nil
}

// Schema operations.

// AddLinkColumn appends a singular link column targeting target and creates
// the paired backlink column in the target table.
func (t *Table) AddLinkColumn(name string, target *Table, kind types.LinkKind) (types.ColID, error) {
	if err := t.checkNewColumn(name, target); err != nil {
		return 0, err
	}
	col := &linkColumn{
		tbl:    t,
		name:   name,
		idx:    types.ColID(len(t.cols)),
		target: target,
		kind:   kind,
		cells:  make([]uint64, t.sz),
	}
	col.backlink = newBacklinkColumn(target, col)
	t.cols = append(t.cols, col)
	target.backlinks = append(target.backlinks, col.backlink)
	return col.idx, nil
}

// AddLinkListColumn appends a list-valued link column targeting target and
// creates the paired backlink column in the target table.
func (t *Table) AddLinkListColumn(name string, target *Table, kind types.LinkKind) (types.ColID, error) {
	if err := t.checkNewColumn(name, target); err != nil {
		return 0, err
	}
	col := &linkListColumn{
		tbl:    t,
		name:   name,
		idx:    types.ColID(len(t.cols)),
		target: target,
		kind:   kind,
		cells:  make([]uint64, t.sz),
	}
	col.backlink = newBacklinkColumn(target, col)
	t.cols = append(t.cols, col)
	target.backlinks = append(target.backlinks, col.backlink)
	return col.idx, nil
}

func (t *Table) checkNewColumn(name string, target *Table) error {
	if err := t.guard(); err != nil {
		return err
	}
	if target == nil || target.detached || target.g != t.g {
		return fmt.Errorf("column %q: target table not in this group: %w", name, types.ErrIllegalCombination)
	}
	for _, col := range t.cols {
		if col.colName() == name {
			return fmt.Errorf("column %q already exists: %w", name, types.ErrIllegalCombination)
		}
	}
	return nil
}

// ColumnCount returns the number of public columns.
func (t *Table) ColumnCount() int { return len(t.cols) }

// ColumnName returns the name of column col.
func (t *Table) ColumnName(col types.ColID) (string, error) {
	c, err := t.columnAt(col)
	if err != nil {
		return "", err
	}
	return c.colName(), nil
}

// ColumnIsList reports whether column col is list-valued.
func (t *Table) ColumnIsList(col types.ColID) (bool, error) {
	c, err := t.columnAt(col)
	if err != nil {
		return false, err
	}
	return c.isList(), nil
}

// ColumnKind returns the link kind of column col.
func (t *Table) ColumnKind(col types.ColID) (types.LinkKind, error) {
	c, err := t.columnAt(col)
	if err != nil {
		return 0, err
	}
	return c.linkKind(), nil
}

// ColumnTarget returns the current index of the target table of column col.
func (t *Table) ColumnTarget(col types.ColID) (types.TableID, error) {
	c, err := t.columnAt(col)
	if err != nil {
		return 0, err
	}
	return c.targetTable().ID(), nil
}

func (t *Table) columnAt(col types.ColID) (tableColumn, error) {
	if col < 0 || int(col) >= len(t.cols) {
		return nil, fmt.Errorf("column %d of %d in table %q: %w", col, len(t.cols), t.name, types.ErrIndexOutOfRange)
	}
	return t.cols[col], nil
}

func (t *Table) linkColAt(col types.ColID) (*linkColumn, error) {
	c, err := t.columnAt(col)
	if err != nil {
		return nil, err
	}
	lc, ok := c.(*linkColumn)
	if !ok {
		return nil, fmt.Errorf("column %q is a link list: %w", c.colName(), types.ErrIllegalCombination)
	}
	return lc, nil
}

func (t *Table) listColAt(col types.ColID) (*linkListColumn, error) {
	c, err := t.columnAt(col)
	if err != nil {
		return nil, err
	}
	lc, ok := c.(*linkListColumn)
	if !ok {
		return nil, fmt.Errorf("column %q is a singular link: %w", c.colName(), types.ErrIllegalCombination)
	}
	return lc, nil
}

// Row operations.

// AddRows appends n empty rows.
func (t *Table) AddRows(n int) error {
	if err := t.guard(); err != nil {
		return err
	}
	return t.InsertRows(types.RowID(t.sz), n)
}

// InsertRows shifts in n empty rows at position at. Live list views on
// rows at or above the insertion point keep tracking their rows.
func (t *Table) InsertRows(at types.RowID, n int) error {
	if err := t.guard(); err != nil {
		return err
	}
	if at < 0 || int(at) > t.sz {
		return fmt.Errorf("inserting rows at %d of %d: %w", at, t.sz, types.ErrIndexOutOfRange)
	}
	if n <= 0 {
		return nil
	}
	for _, col := range t.cols {
		if err := col.insertRows(int(at), n); err != nil {
			return err
		}
	}
	for _, bl := range t.backlinks {
		if err := bl.insertRows(int(at), n); err != nil {
			return err
		}
	}
	t.sz += n
	return nil
}

// MoveLastOver removes row by moving the last row into its place. Strong
// links out of the removed rows cascade; the observer sees the combined
// notification before any physical change.
func (t *Table) MoveLastOver(row types.RowID) error {
	return t.cascadeRemove(row, false)
}

// RemoveRecursive removes row and every row orphaned by the removal,
// exactly as MoveLastOver does.
func (t *Table) RemoveRecursive(row types.RowID) error {
	return t.cascadeRemove(row, false)
}

// EraseRow removes row, shifting all higher rows down by one.
func (t *Table) EraseRow(row types.RowID) error {
	return t.cascadeRemove(row, true)
}

func (t *Table) cascadeRemove(row types.RowID, erase bool) error {
	if err := t.guard(); err != nil {
		return err
	}
	if err := t.checkRow(row); err != nil {
		return err
	}

	st := t.g.newCascadeState()
	seed := types.CascadeRow{Table: t.ID(), Row: row}
	st.schedule(seed)
	if err := t.cascadeBreakBacklinksTo(int(row), st); err != nil {
		return err
	}
	t.g.notifyCascade(st)
	return t.g.removeBrokenRows(st, &cascadeSeed{entry: seed, erase: erase})
}

// SwapRows exchanges two rows in place. Links to and from both rows follow
// the swap; live list views trade their origin rows.
func (t *Table) SwapRows(i, j types.RowID) error {
	if err := t.guard(); err != nil {
		return err
	}
	if err := t.checkRow(i); err != nil {
		return err
	}
	if err := t.checkRow(j); err != nil {
		return err
	}
	if i == j {
		return nil
	}
	for _, col := range t.cols {
		if err := col.swapRowsCells(int(i), int(j)); err != nil {
			return err
		}
	}
	for _, bl := range t.backlinks {
		if err := bl.swapRows(int(i), int(j)); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every row. The observer payload carries no per-row entries
// for the cleared table itself, only externally cascaded rows and the
// severed incoming links.
func (t *Table) Clear() error {
	if err := t.guard(); err != nil {
		return err
	}

	st := t.g.newCascadeState()
	st.stopOnTable = t
	for _, col := range t.cols {
		if err := col.cascadeBreakAll(st); err != nil {
			return err
		}
	}
	for _, bl := range t.backlinks {
		if err := bl.cascadeBreakAll(st); err != nil {
			return err
		}
	}
	t.g.notifyCascade(st)
	if err := t.g.removeBrokenRows(st, nil); err != nil {
		return err
	}

	for _, col := range t.cols {
		if err := col.clearCells(true); err != nil {
			return err
		}
	}
	for _, bl := range t.backlinks {
		if err := bl.clearCells(); err != nil {
			return err
		}
	}
	t.sz = 0
	return nil
}

func (t *Table) physicalMoveLastOver(row int) error {
	prior := t.sz
	for _, col := range t.cols {
		if err := col.moveLastOverCells(row, prior, true); err != nil {
			return err
		}
	}
	for _, bl := range t.backlinks {
		if err := bl.moveLastOver(row, prior); err != nil {
			return err
		}
	}
	t.sz--
	return nil
}

func (t *Table) physicalEraseRow(row int) error {
	for _, col := range t.cols {
		if err := col.eraseRowCells(row, true); err != nil {
			return err
		}
	}
	for _, bl := range t.backlinks {
		if err := bl.eraseRow(row); err != nil {
			return err
		}
	}
	t.sz--
	return nil
}

// Link cell operations.

// GetLink returns the target of the singular link cell, or RowNone when
// the cell is null.
func (t *Table) GetLink(col types.ColID, row types.RowID) (types.RowID, error) {
	if err := t.guard(); err != nil {
		return types.RowNone, err
	}
	c, err := t.linkColAt(col)
	if err != nil {
		return types.RowNone, err
	}
	if err := t.checkRow(row); err != nil {
		return types.RowNone, err
	}
	target, ok := c.get(int(row))
	if !ok {
		return types.RowNone, nil
	}
	return types.RowID(target), nil
}

// IsNullLink reports whether the singular link cell is null.
func (t *Table) IsNullLink(col types.ColID, row types.RowID) (bool, error) {
	target, err := t.GetLink(col, row)
	if err != nil {
		return false, err
	}
	return target == types.RowNone, nil
}

// SetLink assigns the singular link cell and returns the prior target, if
// any. The replication event is emitted before any bookkeeping. When the
// column is strong and the prior target loses its last strong backlink, the
// prior target is removed by cascade.
func (t *Table) SetLink(col types.ColID, row, target types.RowID) (types.RowID, error) {
	if err := t.guard(); err != nil {
		return types.RowNone, err
	}
	c, err := t.linkColAt(col)
	if err != nil {
		return types.RowNone, err
	}
	if err := t.checkRow(row); err != nil {
		return types.RowNone, err
	}
	if target != types.RowNone {
		if target < 0 || int(target) >= c.target.sz {
			return types.RowNone, fmt.Errorf("link target %d of %d rows: %w", target, c.target.sz, types.ErrIndexOutOfRange)
		}
	}

	if t.g.repl != nil {
		t.g.repl.SetLink(t.ID(), col, row, target)
	}

	old, hadOld, err := c.set(int(row), int(target))
	if err != nil {
		return types.RowNone, err
	}
	if !hadOld {
		return types.RowNone, nil
	}
	if c.kind == types.Strong {
		if err := t.g.cascadeOrphan(c.target, old); err != nil {
			return types.RowNone, err
		}
	}
	return types.RowID(old), nil
}

// NullifyLink clears the singular link cell.
func (t *Table) NullifyLink(col types.ColID, row types.RowID) error {
	_, err := t.SetLink(col, row, types.RowNone)
	return err
}

// LinkList returns the live view of the link-list cell at (col, row). At
// most one live view exists per cell; repeated lookups return the same
// handle while it lives.
func (t *Table) LinkList(col types.ColID, row types.RowID) (*ListView, error) {
	if err := t.guard(); err != nil {
		return nil, err
	}
	c, err := t.listColAt(col)
	if err != nil {
		return nil, err
	}
	if err := t.checkRow(row); err != nil {
		return nil, err
	}
	return c.getOrCreateView(int(row))
}

// Backlink introspection.

func (t *Table) backlinkFor(originTable types.TableID, originCol types.ColID) (*backlinkColumn, error) {
	for _, bl := range t.backlinks {
		if bl.origin.originTable().ID() == originTable && bl.origin.originColID() == originCol {
			return bl, nil
		}
	}
	return nil, fmt.Errorf("no backlinks from table %d column %d into %q: %w",
		originTable, originCol, t.name, types.ErrIndexOutOfRange)
}

// BacklinkCount returns the number of links into row through the named
// origin column, counting duplicate list entries with their multiplicity.
func (t *Table) BacklinkCount(row types.RowID, originTable types.TableID, originCol types.ColID) (int, error) {
	if err := t.guard(); err != nil {
		return 0, err
	}
	if err := t.checkRow(row); err != nil {
		return 0, err
	}
	bl, err := t.backlinkFor(originTable, originCol)
	if err != nil {
		return 0, err
	}
	return bl.count(int(row)), nil
}

// Backlink returns the n'th origin row linking into row through the named
// origin column.
func (t *Table) Backlink(row types.RowID, originTable types.TableID, originCol types.ColID, n int) (types.RowID, error) {
	if err := t.guard(); err != nil {
		return types.RowNone, err
	}
	if err := t.checkRow(row); err != nil {
		return types.RowNone, err
	}
	bl, err := t.backlinkFor(originTable, originCol)
	if err != nil {
		return types.RowNone, err
	}
	origin, err := bl.backlink(int(row), n)
	if err != nil {
		return types.RowNone, err
	}
	return types.RowID(origin), nil
}

// strongBacklinkCount counts the backlinks of row whose origin column is
// strong; weak links do not keep a row alive.
func (t *Table) strongBacklinkCount(row int) int {
	total := 0
	for _, bl := range t.backlinks {
		if bl.origin.linkKind() == types.Strong {
			total += bl.count(row)
		}
	}
	return total
}
