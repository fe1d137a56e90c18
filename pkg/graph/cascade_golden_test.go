package graph

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/starfinanz/realm-core/pkg/types"
)

// TestCascadeNotificationGolden pins the exact observer payload of the
// mixed weak/strong removal, ordering included.
func TestCascadeNotificationGolden(t *testing.T) {
	g, _, origin := setupWeakStrongMix(t)

	var captured *types.CascadeNotification
	g.SetCascadeHandler(func(n *types.CascadeNotification) { captured = n })

	require.NoError(t, origin.MoveLastOver(20))
	require.NotNil(t, captured)

	data, err := json.MarshalIndent(captured, "", "  ")
	require.NoError(t, err)

	gold := goldie.New(t)
	gold.Assert(t, "cascade_weak_strong_mix", data)
}
