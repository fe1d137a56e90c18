package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfinanz/realm-core/pkg/types"
)

func TestVerifyDetectsBrokenReciprocity(t *testing.T) {
	g, target, origin, col := setupPair(t)

	_, err := origin.SetLink(col, 0, 1)
	require.NoError(t, err)
	require.NoError(t, g.Verify())

	// Break reciprocity behind the public API's back.
	target.backlinks[0].cells[1] = 0
	assert.ErrorIs(t, g.Verify(), types.ErrInvariantViolation)
}

func TestVerifyDetectsDanglingTarget(t *testing.T) {
	g, _, origin, col := setupPair(t)

	_, err := origin.SetLink(col, 0, 1)
	require.NoError(t, err)

	lc := origin.cols[col].(*linkColumn)
	lc.cells[0] = uint64(40) + 1
	assert.ErrorIs(t, g.Verify(), types.ErrInvariantViolation)
}

// TestRandomizedMutationsKeepInvariants drives a mixed workload with a
// fixed seed and checks the full invariant set after every step:
// reciprocity, no dangling rows, and a sorted, duplicate-free view
// registry.
func TestRandomizedMutationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(0x5eed))

	g := NewGroup()
	x, err := g.AddTable("x")
	require.NoError(t, err)
	y, err := g.AddTable("y")
	require.NoError(t, err)

	xlink, err := x.AddLinkColumn("link", y, types.Weak)
	require.NoError(t, err)
	xlist, err := x.AddLinkListColumn("list", y, types.Weak)
	require.NoError(t, err)
	yself, err := y.AddLinkListColumn("self", y, types.Weak)
	require.NoError(t, err)

	require.NoError(t, x.AddRows(4))
	require.NoError(t, y.AddRows(4))

	randRow := func(tbl *Table) types.RowID {
		return types.RowID(rng.Intn(tbl.Size()))
	}

	for step := 0; step < 400; step++ {
		switch op := rng.Intn(12); op {
		case 0:
			require.NoError(t, x.AddRows(1))
		case 1:
			require.NoError(t, y.InsertRows(randRow(y), 1))
		case 2:
			_, err := x.SetLink(xlink, randRow(x), randRow(y))
			require.NoError(t, err)
		case 3:
			require.NoError(t, x.NullifyLink(xlink, randRow(x)))
		case 4:
			v, err := x.LinkList(xlist, randRow(x))
			require.NoError(t, err)
			size, err := v.Size()
			require.NoError(t, err)
			require.NoError(t, v.Insert(rng.Intn(size+1), randRow(y)))
		case 5:
			v, err := y.LinkList(yself, randRow(y))
			require.NoError(t, err)
			size, err := v.Size()
			require.NoError(t, err)
			require.NoError(t, v.Insert(rng.Intn(size+1), randRow(y)))
		case 6:
			v, err := x.LinkList(xlist, randRow(x))
			require.NoError(t, err)
			size, err := v.Size()
			require.NoError(t, err)
			if size > 0 {
				require.NoError(t, v.Remove(rng.Intn(size)))
			}
		case 7:
			v, err := x.LinkList(xlist, randRow(x))
			require.NoError(t, err)
			size, err := v.Size()
			require.NoError(t, err)
			if size > 1 {
				require.NoError(t, v.Swap(rng.Intn(size), rng.Intn(size)))
			}
		case 8:
			if x.Size() > 1 {
				require.NoError(t, x.SwapRows(randRow(x), randRow(x)))
			}
		case 9:
			if y.Size() > 1 {
				require.NoError(t, y.SwapRows(randRow(y), randRow(y)))
			}
		case 10:
			if x.Size() > 2 {
				require.NoError(t, x.MoveLastOver(randRow(x)))
			}
		case 11:
			if y.Size() > 2 {
				require.NoError(t, y.EraseRow(randRow(y)))
			}
		}

		require.NoError(t, g.Verify(), "step %d broke an invariant", step)
	}
}
