package tourney

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTeams(n int) []Team {
	teams := make([]Team, n)
	for i := range teams {
		teams[i] = Team{ID: uuid.New(), DraftOrder: i + 1}
	}
	return teams
}

func TestNextPicker_SnakeOrder(t *testing.T) {
	teams := makeTeams(4)

	// Two full rounds: 1,2,3,4 then 4,3,2,1.
	wantOrder := []int{0, 1, 2, 3, 3, 2, 1, 0}
	for pick, want := range wantOrder {
		team, err := NextPicker(teams, pick)
		require.NoError(t, err)
		assert.Equal(t, teams[want].ID, team.ID, "pick %d", pick)
	}

	// Round three runs forward again.
	team, err := NextPicker(teams, 8)
	require.NoError(t, err)
	assert.Equal(t, teams[0].ID, team.ID)
}

func TestNextPicker_EveryTeamPicksOncePerRound(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		teams := makeTeams(n)
		for round := 0; round < 4; round++ {
			seen := make(map[uuid.UUID]bool, n)
			for i := 0; i < n; i++ {
				team, err := NextPicker(teams, round*n+i)
				require.NoError(t, err)
				seen[team.ID] = true
			}
			assert.Len(t, seen, n, "n=%d round=%d", n, round)
		}
	}
}

func TestNextPicker_RoundBoundary(t *testing.T) {
	teams := makeTeams(3)

	// The last picker of an odd round also opens the next round.
	last, err := NextPicker(teams, 5)
	require.NoError(t, err)
	first, err := NextPicker(teams, 6)
	require.NoError(t, err)
	assert.Equal(t, teams[2].ID, last.ID)
	assert.Equal(t, teams[0].ID, first.ID)
}

func TestNextPicker_Errors(t *testing.T) {
	_, err := NextPicker(nil, 0)
	assert.ErrorIs(t, err, ErrNoTeams)

	_, err = NextPicker(makeTeams(2), -1)
	assert.ErrorIs(t, err, ErrInvalidPick)
}

func TestNextTier(t *testing.T) {
	next, ok := NextTier(TierA)
	require.True(t, ok)
	assert.Equal(t, TierB, next)

	next, ok = NextTier(TierB)
	require.True(t, ok)
	assert.Equal(t, TierMisc, next)

	_, ok = NextTier(TierMisc)
	assert.False(t, ok)

	// S-Tier players are captains; the pool never reaches them.
	_, ok = NextTier(TierS)
	assert.False(t, ok)
}
