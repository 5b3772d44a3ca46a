package dal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

func TestPlanBatchKeepsOmittedPlayers(t *testing.T) {
	current := []models.Player{
		{ID: 1, TeamID: models.Int64(1)},
		{ID: 2, TeamID: models.Int64(1)},
		{ID: 3},
		{ID: 4},
	}
	teams := map[int64]struct{}{1: {}, 2: {}}

	plan, err := planBatch(current, teams, []models.AssignRequest{assign(3, 1), assign(1, 2)})
	require.NoError(t, err)
	require.Len(t, plan, 4)

	got := map[int64]placement{}
	for _, p := range plan {
		got[p.PlayerID] = p
	}
	assert.Equal(t, int64(1), *got[3].TeamID)
	assert.Equal(t, 0, got[3].Slot)
	assert.Equal(t, 1, got[2].Slot, "omitted players follow batch entries")
	assert.Equal(t, int64(2), *got[1].TeamID)
	assert.Nil(t, got[4].TeamID)
	assert.Equal(t, 0, got[4].Slot)
}

func TestPlanBatchEmpty(t *testing.T) {
	plan, err := planBatch(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestNormalizeNewPlayer(t *testing.T) {
	p := models.Player{Name: " Keria#KR ", Position: " sup ", Tier: " Master "}
	require.NoError(t, normalizeNewPlayer(&p))
	assert.Equal(t, "Keria#KR", p.Name)
	assert.Equal(t, models.PositionSupport, p.Position)
	assert.Equal(t, "Master", p.HighestTier)
}

func TestTierRank(t *testing.T) {
	tests := []struct {
		tier string
		want int
	}{
		{"Iron", 1},
		{"GOLD", 4},
		{"Diamond II", 7},
		{"GrandMaster", 9},
		{"GRAND_MASTER", 9},
		{"challenger", 10},
		{"", 0},
		{"Unranked", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierRank(tt.tier), tt.tier)
	}

	assert.Equal(t, "Master", HigherTier("", "Master"))
	assert.Equal(t, "Challenger", HigherTier("Challenger", "Gold"))
	assert.Equal(t, "Diamond", HigherTier("Emerald", "Diamond"))
	assert.Equal(t, "Gold", HigherTier("Gold", "Gold"))
}
