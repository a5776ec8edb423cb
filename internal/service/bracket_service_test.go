package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageleague/tourney-hub/internal/realtime"
	"github.com/ageleague/tourney-hub/internal/store"
	"github.com/ageleague/tourney-hub/internal/tourney"
)

type bracketFixture struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	matches     *store.MatchStore
	service     *BracketService

	adminID      uuid.UUID
	tournamentID uuid.UUID
	teams        []tourney.Team
}

func buildBracketFixture(t *testing.T, db *sqlx.DB, numTeams int) *bracketFixture {
	t.Helper()
	ctx := context.Background()

	f := &bracketFixture{
		db:          db,
		tournaments: store.NewTournamentStore(db),
		matches:     store.NewMatchStore(db),
	}
	f.service = NewBracketService(db, f.matches, f.tournaments, realtime.NewHub())

	f.adminID = createTestUser(t, db, "admin")
	f.tournamentID = uuid.New()

	// Create captain users before opening the transaction: the pool is
	// capped at one connection, so a db.Exec while the tx is open deadlocks.
	captainIDs := make([]uuid.UUID, numTeams)
	for i := 0; i < numTeams; i++ {
		captainIDs[i] = createTestUser(t, db, "captain"+string(rune('1'+i)))
	}

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.tournaments.CreateTournament(ctx, tx, &tourney.Tournament{
		ID:       f.tournamentID,
		AdminID:  f.adminID,
		Name:     "Bracket Test",
		Status:   tourney.StatusTeamsFinalized,
		TeamSize: tourney.TeamSize,
	}))
	for i := 0; i < numTeams; i++ {
		captainID := captainIDs[i]
		team := tourney.Team{
			ID:           uuid.New(),
			TournamentID: f.tournamentID,
			CaptainID:    captainID,
			Name:         "Team " + string(rune('1'+i)),
			DraftOrder:   i + 1,
		}
		require.NoError(t, f.tournaments.CreateTeam(ctx, tx, &team))
		f.teams = append(f.teams, team)
	}
	require.NoError(t, tx.Commit())
	return f
}

// reportRoundRobin completes every round robin match so that f.teams[i]
// beats every team after it, giving a strict standings order.
func (f *bracketFixture) reportRoundRobin(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	matches, err := f.matches.ListMatches(ctx, f.tournamentID.String())
	require.NoError(t, err)

	rank := make(map[uuid.UUID]int, len(f.teams))
	for i, team := range f.teams {
		rank[team.ID] = i
	}
	for _, m := range matches {
		if m.Phase != tourney.PhaseRoundRobin {
			continue
		}
		winner := *m.Team1ID
		score1, score2 := 3, 1
		if rank[*m.Team2ID] < rank[*m.Team1ID] {
			winner = *m.Team2ID
			score1, score2 = 1, 3
		}
		_, err := f.service.ReportResult(ctx, m.ID, score1, score2, winner, f.adminID)
		require.NoError(t, err)
	}
}

func (f *bracketFixture) semifinal(t *testing.T, number int) *tourney.Match {
	t.Helper()
	ctx := context.Background()
	matches, err := f.matches.ListMatches(ctx, f.tournamentID.String())
	require.NoError(t, err)
	for i := range matches {
		if matches[i].Phase == tourney.PhaseSemifinal && matches[i].MatchNumber == number {
			return &matches[i]
		}
	}
	t.Fatalf("semifinal %d not found", number)
	return nil
}

func (f *bracketFixture) grandFinal(t *testing.T) *tourney.Match {
	t.Helper()
	ctx := context.Background()
	matches, err := f.matches.ListMatches(ctx, f.tournamentID.String())
	require.NoError(t, err)
	for i := range matches {
		if matches[i].Phase == tourney.PhaseGrandFinal {
			return &matches[i]
		}
	}
	t.Fatal("grand final not found")
	return nil
}

func TestGenerateBracket(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	f := buildBracketFixture(t, db, 4)
	ctx := context.Background()

	matches, err := f.service.GenerateBracket(ctx, f.tournamentID, f.adminID)
	require.NoError(t, err)
	require.Len(t, matches, 9)

	stored, err := f.matches.ListMatches(ctx, f.tournamentID.String())
	require.NoError(t, err)
	require.Len(t, stored, 9)

	var roundRobin, semis, finals []tourney.Match
	for _, m := range stored {
		switch m.Phase {
		case tourney.PhaseRoundRobin:
			roundRobin = append(roundRobin, m)
		case tourney.PhaseSemifinal:
			semis = append(semis, m)
		case tourney.PhaseGrandFinal:
			finals = append(finals, m)
		}
	}
	require.Len(t, roundRobin, 6)
	require.Len(t, semis, 2)
	require.Len(t, finals, 1)

	// Every pair of teams meets exactly once.
	pairs := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, m := range roundRobin {
		require.NotNil(t, m.Team1ID)
		require.NotNil(t, m.Team2ID)
		assert.Equal(t, 1, m.BestOf)
		for _, id := range []uuid.UUID{*m.Team1ID, *m.Team2ID} {
			if pairs[id] == nil {
				pairs[id] = make(map[uuid.UUID]bool)
			}
		}
		assert.False(t, pairs[*m.Team1ID][*m.Team2ID], "pair scheduled twice")
		pairs[*m.Team1ID][*m.Team2ID] = true
		pairs[*m.Team2ID][*m.Team1ID] = true
	}
	for _, team := range f.teams {
		assert.Len(t, pairs[team.ID], len(f.teams)-1)
	}

	// Playoff slots stay empty until seeding.
	for _, m := range semis {
		assert.Nil(t, m.Team1ID)
		assert.Nil(t, m.Team2ID)
		assert.Equal(t, 3, m.BestOf)
	}
	assert.Nil(t, finals[0].Team1ID)
	assert.Nil(t, finals[0].Team2ID)
	assert.Equal(t, 5, finals[0].BestOf)
}

func TestGenerateBracket_LargerFields(t *testing.T) {
	for _, numTeams := range []int{5, 6} {
		t.Run(string(rune('0'+numTeams))+" teams", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()
			f := buildBracketFixture(t, db, numTeams)
			ctx := context.Background()

			matches, err := f.service.GenerateBracket(ctx, f.tournamentID, f.adminID)
			require.NoError(t, err)

			numPairs := numTeams * (numTeams - 1) / 2
			require.Len(t, matches, numPairs+3)

			seen := make(map[int]bool)
			meetings := make(map[uuid.UUID]int)
			for _, m := range matches {
				if m.Phase != tourney.PhaseRoundRobin {
					continue
				}
				assert.False(t, seen[m.MatchNumber], "match number reused")
				seen[m.MatchNumber] = true
				meetings[*m.Team1ID]++
				meetings[*m.Team2ID]++
			}
			// Match numbers run 1..C(N,2) with no gaps.
			require.Len(t, seen, numPairs)
			for n := 1; n <= numPairs; n++ {
				assert.True(t, seen[n], "missing match number %d", n)
			}
			for _, team := range f.teams {
				assert.Equal(t, numTeams-1, meetings[team.ID])
			}
		})
	}
}

func TestGenerateBracket_Preconditions(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	f := buildBracketFixture(t, db, 3)
	ctx := context.Background()

	_, err := f.service.GenerateBracket(ctx, f.tournamentID, f.adminID)
	assert.ErrorIs(t, err, tourney.ErrInsufficientTeams)

	_, err = f.service.GenerateBracket(ctx, f.tournamentID, uuid.New())
	assert.ErrorIs(t, err, tourney.ErrNotAdmin)
}

func TestGenerateBracket_RejectsSecondGeneration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	f := buildBracketFixture(t, db, 4)
	ctx := context.Background()

	_, err := f.service.GenerateBracket(ctx, f.tournamentID, f.adminID)
	require.NoError(t, err)

	_, err = f.service.GenerateBracket(ctx, f.tournamentID, f.adminID)
	assert.ErrorIs(t, err, tourney.ErrBracketExists)

	// Explicit delete makes regeneration possible.
	require.NoError(t, f.service.DeleteBracket(ctx, f.tournamentID, f.adminID))
	matches, err := f.matches.ListMatches(ctx, f.tournamentID.String())
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = f.service.GenerateBracket(ctx, f.tournamentID, f.adminID)
	require.NoError(t, err)
}

func TestStandingsAndPlayoffSeeding(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	f := buildBracketFixture(t, db, 4)
	ctx := context.Background()

	_, err := f.service.GenerateBracket(ctx, f.tournamentID, f.adminID)
	require.NoError(t, err)
	f.reportRoundRobin(t)

	standings, err := f.service.Standings(ctx, f.tournamentID.String())
	require.NoError(t, err)
	require.Len(t, standings, 4)
	for i, s := range standings {
		assert.Equal(t, f.teams[i].ID, s.TeamID)
		assert.Equal(t, (3-i)*3, s.Points)
	}

	top4, err := f.service.AssignPlayoffTeams(ctx, f.tournamentID, f.adminID)
	require.NoError(t, err)
	require.Len(t, top4, 4)

	sf1 := f.semifinal(t, 1)
	require.NotNil(t, sf1.Team1ID)
	require.NotNil(t, sf1.Team2ID)
	assert.Equal(t, f.teams[0].ID, *sf1.Team1ID)
	assert.Equal(t, f.teams[3].ID, *sf1.Team2ID)

	sf2 := f.semifinal(t, 2)
	require.NotNil(t, sf2.Team1ID)
	require.NotNil(t, sf2.Team2ID)
	assert.Equal(t, f.teams[1].ID, *sf2.Team1ID)
	assert.Equal(t, f.teams[2].ID, *sf2.Team2ID)
}

func TestGrandFinalPopulatesAfterBothSemifinals(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	f := buildBracketFixture(t, db, 4)
	ctx := context.Background()

	_, err := f.service.GenerateBracket(ctx, f.tournamentID, f.adminID)
	require.NoError(t, err)
	f.reportRoundRobin(t)
	_, err = f.service.AssignPlayoffTeams(ctx, f.tournamentID, f.adminID)
	require.NoError(t, err)

	sf1 := f.semifinal(t, 1)
	_, err = f.service.ReportResult(ctx, sf1.ID, 2, 0, *sf1.Team1ID, f.adminID)
	require.NoError(t, err)

	// One semifinal in: the grand final must stay untouched.
	final := f.grandFinal(t)
	assert.Nil(t, final.Team1ID)
	assert.Nil(t, final.Team2ID)

	sf2 := f.semifinal(t, 2)
	_, err = f.service.ReportResult(ctx, sf2.ID, 1, 2, *sf2.Team2ID, f.adminID)
	require.NoError(t, err)

	final = f.grandFinal(t)
	require.NotNil(t, final.Team1ID)
	require.NotNil(t, final.Team2ID)
	assert.Equal(t, *sf1.Team1ID, *final.Team1ID)
	assert.Equal(t, *sf2.Team2ID, *final.Team2ID)
}

func TestReportResult_Validation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	f := buildBracketFixture(t, db, 4)
	ctx := context.Background()

	_, err := f.service.GenerateBracket(ctx, f.tournamentID, f.adminID)
	require.NoError(t, err)

	matches, err := f.matches.ListMatches(ctx, f.tournamentID.String())
	require.NoError(t, err)
	var rr *tourney.Match
	for i := range matches {
		if matches[i].Phase == tourney.PhaseRoundRobin {
			rr = &matches[i]
			break
		}
	}
	require.NotNil(t, rr)

	_, err = f.service.ReportResult(ctx, rr.ID, 3, 0, *rr.Team1ID, uuid.New())
	assert.ErrorIs(t, err, tourney.ErrNotAdmin)

	_, err = f.service.ReportResult(ctx, rr.ID, 3, 0, uuid.New(), f.adminID)
	assert.Error(t, err)

	reported, err := f.service.ReportResult(ctx, rr.ID, 3, 1, *rr.Team1ID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, tourney.MatchCompleted, reported.Status)
	assert.Equal(t, 3, reported.Team1Score)
	assert.Equal(t, 1, reported.Team2Score)
}
