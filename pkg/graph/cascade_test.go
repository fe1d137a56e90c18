package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfinanz/realm-core/pkg/types"
)

// setupWeakStrongMix builds the mixed-kind configuration: a target table
// with 100 rows, and an origin table with a strong link, a strong link
// list, a weak link and a weak link list, all into the target.
func setupWeakStrongMix(t *testing.T) (*Group, *Table, *Table) {
	t.Helper()
	g := NewGroup()
	target, err := g.AddTable("target")
	require.NoError(t, err)
	origin, err := g.AddTable("origin")
	require.NoError(t, err)

	_, err = origin.AddLinkColumn("link", target, types.Strong)
	require.NoError(t, err)
	_, err = origin.AddLinkListColumn("linklist", target, types.Strong)
	require.NoError(t, err)
	_, err = origin.AddLinkColumn("link2", target, types.Weak)
	require.NoError(t, err)
	_, err = origin.AddLinkListColumn("linklist2", target, types.Weak)
	require.NoError(t, err)

	require.NoError(t, target.AddRows(100))
	require.NoError(t, origin.AddRows(30))

	_, err = origin.SetLink(0, 20, 30)
	require.NoError(t, err)
	list, err := origin.LinkList(1, 20)
	require.NoError(t, err)
	require.NoError(t, list.Insert(0, 31))
	_, err = origin.SetLink(2, 25, 31)
	require.NoError(t, err)
	list2, err := origin.LinkList(3, 25)
	require.NoError(t, err)
	require.NoError(t, list2.Insert(0, 30))

	return g, target, origin
}

func TestCascadeWeakStrongMix(t *testing.T) {
	g, target, origin := setupWeakStrongMix(t)

	var seen []*types.CascadeNotification
	g.SetCascadeHandler(func(n *types.CascadeNotification) { seen = append(seen, n) })

	require.NoError(t, origin.MoveLastOver(20))

	require.Len(t, seen, 1)
	assert.Equal(t, []types.CascadeRow{
		{Table: 0, Row: 30},
		{Table: 0, Row: 31},
		{Table: 1, Row: 20},
	}, seen[0].Rows, "rows sorted by (table, row)")
	assert.Equal(t, []types.CascadeLink{
		{OriginTable: 1, OriginCol: 3, OriginRow: 25, OldTarget: 30},
		{OriginTable: 1, OriginCol: 2, OriginRow: 25, OldTarget: 31},
	}, seen[0].Links, "links in discovery order")

	assert.Equal(t, 98, target.Size())
	assert.Equal(t, 29, origin.Size())

	// The weak cells of the surviving origin row were nullified.
	isNull, err := origin.IsNullLink(2, 25)
	require.NoError(t, err)
	assert.True(t, isNull)
	list2, err := origin.LinkList(3, 25)
	require.NoError(t, err)
	size, err := list2.Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, g.Verify())
}

func TestCascadeNullifyEmitsReplication(t *testing.T) {
	g, _, origin := setupWeakStrongMix(t)

	rec := &recorder{}
	g.SetReplication(rec)

	require.NoError(t, origin.MoveLastOver(20))

	// Nullification of the surviving weak list entry reaches the sink.
	assert.Contains(t, rec.events, "list_nullify t1 c3 r25 [0]")

	require.NoError(t, g.Verify())
}

func TestSelfLinkingCycleRemovesAllRows(t *testing.T) {
	g := NewGroup()
	tbl, err := g.AddTable("t")
	require.NoError(t, err)
	col, err := tbl.AddLinkColumn("l", tbl, types.Strong)
	require.NoError(t, err)
	require.NoError(t, tbl.AddRows(3))

	_, err = tbl.SetLink(col, 0, 1)
	require.NoError(t, err)
	_, err = tbl.SetLink(col, 1, 2)
	require.NoError(t, err)
	_, err = tbl.SetLink(col, 2, 0)
	require.NoError(t, err)

	var seen []*types.CascadeNotification
	g.SetCascadeHandler(func(n *types.CascadeNotification) { seen = append(seen, n) })

	require.NoError(t, tbl.RemoveRecursive(0))

	require.Len(t, seen, 1)
	assert.Equal(t, []types.CascadeRow{
		{Table: 0, Row: 0},
		{Table: 0, Row: 1},
		{Table: 0, Row: 2},
	}, seen[0].Rows)
	assert.Empty(t, seen[0].Links)

	assert.Zero(t, tbl.Size())
	require.NoError(t, g.Verify())
}

func TestSelfLinkKeepsRowAlive(t *testing.T) {
	g := NewGroup()
	tbl, err := g.AddTable("t")
	require.NoError(t, err)
	col, err := tbl.AddLinkColumn("l", tbl, types.Strong)
	require.NoError(t, err)
	other, err := g.AddTable("other")
	require.NoError(t, err)
	ocol, err := other.AddLinkColumn("o", tbl, types.Strong)
	require.NoError(t, err)

	require.NoError(t, tbl.AddRows(2))
	require.NoError(t, other.AddRows(1))

	// tbl[1] links to itself and is held by other[0].
	_, err = tbl.SetLink(col, 1, 1)
	require.NoError(t, err)
	_, err = other.SetLink(ocol, 0, 1)
	require.NoError(t, err)

	// Dropping the external edge leaves the self-link, which contributes
	// to the row's own backlink count and keeps it alive.
	require.NoError(t, other.NullifyLink(ocol, 0))
	assert.Equal(t, 2, tbl.Size())

	n, err := tbl.BacklinkCount(1, tbl.ID(), col)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, g.Verify())
}

func TestListViewClearStrongCascades(t *testing.T) {
	g := NewGroup()
	target, err := g.AddTable("target")
	require.NoError(t, err)
	origin, err := g.AddTable("origin")
	require.NoError(t, err)
	col, err := origin.AddLinkListColumn("list", target, types.Strong)
	require.NoError(t, err)
	require.NoError(t, target.AddRows(2))
	require.NoError(t, origin.AddRows(1))

	v, err := origin.LinkList(col, 0)
	require.NoError(t, err)
	require.NoError(t, v.Insert(0, 0))
	require.NoError(t, v.Insert(1, 1))

	var seen []*types.CascadeNotification
	g.SetCascadeHandler(func(n *types.CascadeNotification) { seen = append(seen, n) })

	require.NoError(t, v.Clear())

	require.Len(t, seen, 1)
	assert.Equal(t, []types.CascadeRow{
		{Table: 0, Row: 0},
		{Table: 0, Row: 1},
	}, seen[0].Rows)

	assert.Zero(t, target.Size())
	assert.Equal(t, 1, origin.Size())
	size, err := v.Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, g.Verify())
}

func TestListViewClearStopsOnOwnCell(t *testing.T) {
	// target[0] strong-links back to origin[0], so clearing the list
	// cascades into the origin row itself. The scan must not re-enter the
	// cell being cleared.
	g := NewGroup()
	target, err := g.AddTable("target")
	require.NoError(t, err)
	origin, err := g.AddTable("origin")
	require.NoError(t, err)
	col, err := origin.AddLinkListColumn("list", target, types.Strong)
	require.NoError(t, err)
	back, err := target.AddLinkColumn("back", origin, types.Strong)
	require.NoError(t, err)
	require.NoError(t, target.AddRows(1))
	require.NoError(t, origin.AddRows(1))

	v, err := origin.LinkList(col, 0)
	require.NoError(t, err)
	require.NoError(t, v.Insert(0, 0))
	_, err = target.SetLink(back, 0, 0)
	require.NoError(t, err)

	require.NoError(t, v.Clear())

	assert.Zero(t, target.Size())
	assert.Zero(t, origin.Size())
	assert.False(t, v.IsAttached())
	require.NoError(t, g.Verify())
}

func TestClearTableReportsWeakLinksWithoutRows(t *testing.T) {
	g := NewGroup()
	target, err := g.AddTable("target")
	require.NoError(t, err)
	origin, err := g.AddTable("origin")
	require.NoError(t, err)
	wcol, err := origin.AddLinkColumn("wlink", target, types.Weak)
	require.NoError(t, err)
	wlist, err := origin.AddLinkListColumn("wlist", target, types.Weak)
	require.NoError(t, err)
	require.NoError(t, target.AddRows(3))
	require.NoError(t, origin.AddRows(2))

	_, err = origin.SetLink(wcol, 0, 1)
	require.NoError(t, err)
	v, err := origin.LinkList(wlist, 1)
	require.NoError(t, err)
	require.NoError(t, v.Insert(0, 2))

	var seen []*types.CascadeNotification
	g.SetCascadeHandler(func(n *types.CascadeNotification) { seen = append(seen, n) })

	require.NoError(t, target.Clear())

	require.Len(t, seen, 1)
	assert.Empty(t, seen[0].Rows, "clearing bypasses per-row enumeration")
	assert.Equal(t, []types.CascadeLink{
		{OriginTable: 1, OriginCol: 0, OriginRow: 0, OldTarget: 1},
		{OriginTable: 1, OriginCol: 1, OriginRow: 1, OldTarget: 2},
	}, seen[0].Links)

	assert.Zero(t, target.Size())
	isNull, err := origin.IsNullLink(wcol, 0)
	require.NoError(t, err)
	assert.True(t, isNull)
	size, err := v.Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, g.Verify())
}

func TestClearTableCascadesExternally(t *testing.T) {
	g := NewGroup()
	a, err := g.AddTable("a")
	require.NoError(t, err)
	b, err := g.AddTable("b")
	require.NoError(t, err)
	col, err := a.AddLinkColumn("l", b, types.Strong)
	require.NoError(t, err)
	require.NoError(t, b.AddRows(2))
	require.NoError(t, a.AddRows(1))

	_, err = a.SetLink(col, 0, 0)
	require.NoError(t, err)

	var seen []*types.CascadeNotification
	g.SetCascadeHandler(func(n *types.CascadeNotification) { seen = append(seen, n) })

	require.NoError(t, a.Clear())

	require.Len(t, seen, 1)
	assert.Equal(t, []types.CascadeRow{{Table: 1, Row: 0}}, seen[0].Rows,
		"the orphaned external row is reported")
	assert.Zero(t, a.Size())
	assert.Equal(t, 1, b.Size())

	require.NoError(t, g.Verify())
}

func TestRemoveTargetRowThroughView(t *testing.T) {
	g, target, origin, col := setupListPair(t)

	v, err := origin.LinkList(col, 0)
	require.NoError(t, err)
	require.NoError(t, v.Insert(0, 2))
	require.NoError(t, v.Insert(1, 3))

	require.NoError(t, v.RemoveTargetRow(0))

	assert.Equal(t, 4, target.Size())
	assert.Equal(t, []types.RowID{3}, targets(t, v))
	require.NoError(t, g.Verify())
}

func TestRemoveAllTargetRowsDrainsList(t *testing.T) {
	g, target, origin, col := setupListPair(t)

	v, err := origin.LinkList(col, 0)
	require.NoError(t, err)
	require.NoError(t, v.Insert(0, 1))
	require.NoError(t, v.Insert(1, 3))
	require.NoError(t, v.Insert(2, 1))

	require.NoError(t, v.RemoveAllTargetRows())

	size, err := v.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Equal(t, 3, target.Size())
	require.NoError(t, g.Verify())
}
