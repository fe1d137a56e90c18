package intcol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfinanz/realm-core/internal/alloc"
	"github.com/starfinanz/realm-core/pkg/types"
)

func newColumn(t *testing.T, initial ...uint64) (*alloc.Allocator, *Column) {
	t.Helper()
	a := alloc.New()
	c, err := Create(a, initial...)
	require.NoError(t, err)
	return a, c
}

func contents(t *testing.T, c *Column) []uint64 {
	t.Helper()
	out := make([]uint64, 0, c.Size())
	for i := 0; i < c.Size(); i++ {
		v, err := c.Get(i)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestColumnBasicOps(t *testing.T) {
	_, c := newColumn(t, 10)

	require.NoError(t, c.Add(20))
	require.NoError(t, c.Insert(1, 15))
	assert.Equal(t, []uint64{10, 15, 20}, contents(t, c))

	require.NoError(t, c.Set(0, 11))
	assert.Equal(t, 1, c.FindFirst(15))
	assert.Equal(t, -1, c.FindFirst(99))

	require.NoError(t, c.Erase(1))
	assert.Equal(t, []uint64{11, 20}, contents(t, c))
}

func TestColumnBounds(t *testing.T) {
	_, c := newColumn(t, 1)

	_, err := c.Get(1)
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)
	assert.ErrorIs(t, c.Set(1, 0), types.ErrIndexOutOfRange)
	assert.ErrorIs(t, c.Insert(2, 0), types.ErrIndexOutOfRange)
	assert.ErrorIs(t, c.Erase(1), types.ErrIndexOutOfRange)
}

func TestColumnDestroyFreesSlot(t *testing.T) {
	a, c := newColumn(t, 1, 2, 3)
	assert.Equal(t, 1, a.Live())
	c.Destroy()
	assert.Equal(t, 0, a.Live())
}

func TestCopyOnWriteRebindsParent(t *testing.T) {
	a := alloc.New()
	require.NoError(t, a.Restore(64, []uint64{5, 6}))

	var parentRef alloc.Ref
	c := FromRef(a, 64)
	c.SetParent(func(ref alloc.Ref) error {
		parentRef = ref
		return nil
	})

	// Reads leave the frozen root alone.
	v, err := c.Get(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)
	assert.Zero(t, parentRef)

	// The first write clones the root and persists the new ref into the
	// parent cell.
	require.NoError(t, c.Set(0, 50))
	assert.NotZero(t, parentRef)
	assert.NotEqual(t, alloc.Ref(64), parentRef)
	assert.Equal(t, parentRef, c.Ref())
	assert.False(t, a.IsReadOnly(c.Ref()))
	assert.Equal(t, []uint64{50, 6}, contents(t, c))

	// The frozen original is gone.
	_, err = a.Words(64)
	assert.ErrorIs(t, err, types.ErrInvariantViolation)
}
