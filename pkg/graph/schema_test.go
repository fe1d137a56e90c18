package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfinanz/realm-core/pkg/types"
)

const fixtureSchema = `
tables:
  - name: people
    rows: 3
    columns:
      - name: best_friend
        type: link
        target: people
        kind: weak
      - name: dogs
        type: linklist
        target: dogs
  - name: dogs
    rows: 2
`

func TestLoadSchema(t *testing.T) {
	g, err := LoadSchema([]byte(fixtureSchema))
	require.NoError(t, err)

	require.Equal(t, 2, g.Size())
	people, err := g.TableByName("people")
	require.NoError(t, err)
	dogs, err := g.TableByName("dogs")
	require.NoError(t, err)

	assert.Equal(t, 3, people.Size())
	assert.Equal(t, 2, dogs.Size())
	assert.Equal(t, 2, people.ColumnCount())

	kind, err := people.ColumnKind(0)
	require.NoError(t, err)
	assert.Equal(t, types.Weak, kind)
	isList, err := people.ColumnIsList(0)
	require.NoError(t, err)
	assert.False(t, isList)

	kind, err = people.ColumnKind(1)
	require.NoError(t, err)
	assert.Equal(t, types.Strong, kind, "kind defaults to strong")
	isList, err = people.ColumnIsList(1)
	require.NoError(t, err)
	assert.True(t, isList)
	targetID, err := people.ColumnTarget(1)
	require.NoError(t, err)
	assert.Equal(t, dogs.ID(), targetID)

	require.NoError(t, g.Verify())
}

func TestLoadSchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		want   error
	}{
		{
			name: "unknown column type",
			schema: `
tables:
  - name: a
    columns:
      - name: c
        type: graph
        target: a
`,
			want: types.ErrIllegalCombination,
		},
		{
			name: "unknown link kind",
			schema: `
tables:
  - name: a
    columns:
      - name: c
        type: link
        target: a
        kind: firm
`,
			want: types.ErrIllegalCombination,
		},
		{
			name: "unknown target table",
			schema: `
tables:
  - name: a
    columns:
      - name: c
        type: link
        target: b
`,
			want: types.ErrTableNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSchema([]byte(tt.schema))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
