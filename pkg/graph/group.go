// Package graph implements the link-graph subsystem of the database: typed
// tables whose columns hold singular or list-valued references into other
// tables, with reciprocal backlink bookkeeping, live list views, and
// cascading removal of orphaned rows.
//
// Implements: docs/ARCHITECTURE § Link Graph.
package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/starfinanz/realm-core/internal/alloc"
	"github.com/starfinanz/realm-core/pkg/types"
)

// Group is one database image: an ordered set of tables sharing an
// allocator, an optional replication sink, and an optional cascade
// observer. A Group is single-threaded; callers provide external
// synchronization when sharing one across goroutines.
type Group struct {
	id     string
	alloc  *alloc.Allocator
	tables []*Table

	repl      types.Replication
	onCascade types.CascadeFunc
}

// NewGroup creates an empty group with a fresh identity.
func NewGroup() *Group {
	return &Group{
		id:    generateUUID(),
		alloc: alloc.New(),
	}
}

// generateUUID generates a new UUID v7 for group identities.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// ID returns the group's identity, preserved across snapshots.
func (g *Group) ID() string { return g.id }

// Size returns the number of tables.
func (g *Group) Size() int { return len(g.tables) }

// SetReplication installs the replication sink observing every semantic
// mutation. Pass nil to detach.
func (g *Group) SetReplication(r types.Replication) { g.repl = r }

// SetCascadeHandler installs the cascade observer. The handler runs
// synchronously before physical deletion and must not mutate the group.
func (g *Group) SetCascadeHandler(fn types.CascadeFunc) { g.onCascade = fn }

// AddTable appends an empty table.
func (g *Group) AddTable(name string) (*Table, error) {
	for _, t := range g.tables {
		if t.name == name {
			return nil, fmt.Errorf("table %q already exists: %w", name, types.ErrIllegalCombination)
		}
	}
	t := &Table{g: g, name: name}
	g.tables = append(g.tables, t)
	return t, nil
}

// Table returns the table at index i.
func (g *Group) Table(i types.TableID) (*Table, error) {
	if i < 0 || int(i) >= len(g.tables) {
		return nil, fmt.Errorf("table %d of %d: %w", i, len(g.tables), types.ErrIndexOutOfRange)
	}
	return g.tables[i], nil
}

// TableByName returns the table with the given name.
func (g *Group) TableByName(name string) (*Table, error) {
	for _, t := range g.tables {
		if t.name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("table %q: %w", name, types.ErrTableNotFound)
}

// RemoveTable removes the table at index i, moving the last table into the
// vacated slot. Tables referenced by a link column of another table cannot
// be removed; self-links do not count, they die with the table. Outstanding
// *Table handles stay valid for the surviving tables and turn detached for
// the removed one.
func (g *Group) RemoveTable(i types.TableID) error {
	t, err := g.Table(i)
	if err != nil {
		return err
	}

	for _, other := range g.tables {
		if other == t {
			continue
		}
		for _, col := range other.cols {
			if col.targetTable() == t {
				return fmt.Errorf("removing table %q: column %q of table %q targets it: %w",
					t.name, col.colName(), other.name, types.ErrCrossTableLink)
			}
		}
	}

	// Dismantle the removed table's own link columns: free the list
	// stores, drop the paired backlink columns from their target tables.
	for _, col := range t.cols {
		if lc, ok := col.(*linkListColumn); ok {
			lc.discardViews()
			for _, cell := range lc.cells {
				if ref := alloc.Ref(cell); ref != 0 {
					g.alloc.Free(ref)
				}
			}
		}
		bl := col.pairedBacklink()
		bl.destroy()
		bl.tbl.dropBacklinkColumn(bl)
	}

	last := len(g.tables) - 1
	g.tables[i] = g.tables[last]
	g.tables = g.tables[:last]
	t.detached = true
	t.cols = nil
	t.backlinks = nil
	return nil
}

func (t *Table) dropBacklinkColumn(bl *backlinkColumn) {
	for i, b := range t.backlinks {
		if b == bl {
			t.backlinks = append(t.backlinks[:i], t.backlinks[i+1:]...)
			return
		}
	}
}
