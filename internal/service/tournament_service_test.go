package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageleague/tourney-hub/internal/realtime"
	"github.com/ageleague/tourney-hub/internal/store"
	"github.com/ageleague/tourney-hub/internal/tourney"
)

func TestCreateTournament_Validation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	tournaments := store.NewTournamentStore(db)
	drafts := store.NewDraftStore(db)
	svc := NewTournamentService(db, tournaments, drafts, realtime.NewHub())

	adminID := createTestUser(t, db, "admin")
	maps := seedTestMaps(t, db)
	mapIDs := []uuid.UUID{maps[0].ID, maps[1].ID, maps[2].ID}

	var validation *tourney.ValidationError

	_, err := svc.Create(ctx, adminID, "  ", "", mapIDs)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "name", validation.Field)

	_, err = svc.Create(ctx, adminID, "Cup", "", mapIDs[:2])
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "maps", validation.Field)

	tournament, err := svc.Create(ctx, adminID, "Cup", "weekly 3v3", mapIDs)
	require.NoError(t, err)
	assert.Equal(t, tourney.StatusDraft, tournament.Status)
	assert.Equal(t, tourney.TeamSize, tournament.TeamSize)

	names, err := tournaments.GetTournamentMapNames(ctx, tournament.ID.String())
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestAdvanceStatus_Rules(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	tournaments := store.NewTournamentStore(db)
	drafts := store.NewDraftStore(db)
	svc := NewTournamentService(db, tournaments, drafts, realtime.NewHub())

	adminID := createTestUser(t, db, "admin")
	maps := seedTestMaps(t, db)
	tournament, err := svc.Create(ctx, adminID, "Cup", "", []uuid.UUID{maps[0].ID, maps[1].ID, maps[2].ID})
	require.NoError(t, err)

	// Skipping a step is rejected.
	_, err = svc.AdvanceStatus(ctx, tournament.ID, adminID, tourney.StatusCategorizing)
	assert.ErrorIs(t, err, tourney.ErrInvalidTransition)

	// Only the admin advances.
	_, err = svc.AdvanceStatus(ctx, tournament.ID, uuid.New(), tourney.StatusRegistrationOpen)
	assert.ErrorIs(t, err, tourney.ErrNotAdmin)

	updated, err := svc.AdvanceStatus(ctx, tournament.ID, adminID, tourney.StatusRegistrationOpen)
	require.NoError(t, err)
	assert.Equal(t, tourney.StatusRegistrationOpen, updated.Status)

	// Going backwards is not a thing.
	_, err = svc.AdvanceStatus(ctx, tournament.ID, adminID, tourney.StatusDraft)
	assert.ErrorIs(t, err, tourney.ErrInvalidTransition)
}

func TestAdvanceStatus_DraftReadyCreatesSession(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	f := buildDraftReadyTournament(t, db)

	session, err := f.drafts.GetSessionByTournament(context.Background(), f.tournamentID.String())
	require.NoError(t, err)
	assert.Equal(t, tourney.DraftWaitingForCaptains, session.Status)
	assert.Nil(t, session.CurrentCategory)
	assert.Equal(t, 120, session.PickTimerSeconds)

	// The draft service owns the next two statuses.
	_, err = f.tournamentService.AdvanceStatus(context.Background(), f.tournamentID, f.adminID, tourney.StatusDraftInProgress)
	assert.ErrorIs(t, err, tourney.ErrInvalidTransition)
}

func TestRegister_Rules(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	tournaments := store.NewTournamentStore(db)
	drafts := store.NewDraftStore(db)
	svc := NewTournamentService(db, tournaments, drafts, realtime.NewHub())

	adminID := createTestUser(t, db, "admin")
	maps := seedTestMaps(t, db)
	tournament, err := svc.Create(ctx, adminID, "Cup", "", []uuid.UUID{maps[0].ID, maps[1].ID, maps[2].ID})
	require.NoError(t, err)

	playerID := createTestUser(t, db, "player")

	// Registration is closed until the admin opens it.
	_, err = svc.Register(ctx, tournament.ID, playerID, testRegistration("player"))
	assert.ErrorIs(t, err, tourney.ErrRegistrationClosed)

	_, err = svc.AdvanceStatus(ctx, tournament.ID, adminID, tourney.StatusRegistrationOpen)
	require.NoError(t, err)

	// Preferred maps must come from the tournament pool.
	bad := testRegistration("player")
	bad.PreferredMaps = tourney.StringList{"Arabia", "Arena", "Atlantis"}
	var validation *tourney.ValidationError
	_, err = svc.Register(ctx, tournament.ID, playerID, bad)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "preferred_maps", validation.Field)

	created, err := svc.Register(ctx, tournament.ID, playerID, testRegistration("player"))
	require.NoError(t, err)
	assert.Equal(t, playerID, created.UserID)

	// One registration per player.
	_, err = svc.Register(ctx, tournament.ID, playerID, testRegistration("player"))
	assert.ErrorIs(t, err, tourney.ErrAlreadyRegistered)
}

func TestWithdraw_Rules(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	tournaments := store.NewTournamentStore(db)
	drafts := store.NewDraftStore(db)
	svc := NewTournamentService(db, tournaments, drafts, realtime.NewHub())

	adminID := createTestUser(t, db, "admin")
	maps := seedTestMaps(t, db)
	tournament, err := svc.Create(ctx, adminID, "Cup", "", []uuid.UUID{maps[0].ID, maps[1].ID, maps[2].ID})
	require.NoError(t, err)
	_, err = svc.AdvanceStatus(ctx, tournament.ID, adminID, tourney.StatusRegistrationOpen)
	require.NoError(t, err)

	playerID := createTestUser(t, db, "player")
	otherID := createTestUser(t, db, "other")
	_, err = svc.Register(ctx, tournament.ID, playerID, testRegistration("player"))
	require.NoError(t, err)

	// Players cannot remove each other.
	err = svc.Withdraw(ctx, tournament.ID, playerID, otherID)
	assert.ErrorIs(t, err, tourney.ErrNotAdmin)

	require.NoError(t, svc.Withdraw(ctx, tournament.ID, playerID, playerID))

	regs, err := tournaments.ListRegistrations(ctx, tournament.ID.String())
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestWithdraw_FrozenAfterDraftStart(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	f := buildDraftReadyTournament(t, db)
	ctx := context.Background()

	f.heartbeatCaptains()
	require.NoError(t, f.draftService.StartDraft(ctx, f.tournamentID, f.adminID))

	player := f.aTierIDs[0]
	err := f.tournamentService.Withdraw(ctx, f.tournamentID, player, player)
	assert.ErrorIs(t, err, tourney.ErrRegistrationClosed)

	// The admin can still drop a no-show.
	require.NoError(t, f.tournamentService.Withdraw(ctx, f.tournamentID, player, f.adminID))
}

func TestAssignCategory_AndStats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	tournaments := store.NewTournamentStore(db)
	drafts := store.NewDraftStore(db)
	svc := NewTournamentService(db, tournaments, drafts, realtime.NewHub())

	adminID := createTestUser(t, db, "admin")
	maps := seedTestMaps(t, db)
	tournament, err := svc.Create(ctx, adminID, "Cup", "", []uuid.UUID{maps[0].ID, maps[1].ID, maps[2].ID})
	require.NoError(t, err)

	playerID := createTestUser(t, db, "player")

	err = svc.AssignCategory(ctx, tournament.ID, adminID, playerID, "Z-Tier")
	var validation *tourney.ValidationError
	assert.ErrorAs(t, err, &validation)

	err = svc.AssignCategory(ctx, tournament.ID, playerID, playerID, tourney.TierA)
	assert.ErrorIs(t, err, tourney.ErrNotAdmin)

	require.NoError(t, svc.AssignCategory(ctx, tournament.ID, adminID, playerID, tourney.TierA))

	// Reassignment overwrites.
	require.NoError(t, svc.AssignCategory(ctx, tournament.ID, adminID, playerID, tourney.TierB))

	category, err := tournaments.GetCategory(ctx, tournament.ID.String(), playerID.String())
	require.NoError(t, err)
	assert.Equal(t, tourney.TierB, category.Category)

	stats, err := svc.CategoryStats(ctx, tournament.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.BTier)
	assert.Equal(t, 0, stats.ATier)
	assert.Equal(t, 1, stats.Total)

	require.NoError(t, svc.RemoveCategory(ctx, tournament.ID, adminID, playerID))
	stats, err = svc.CategoryStats(ctx, tournament.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestRankCaptains_Rules(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	f := buildDraftReadyTournament(t, db)

	// Teams came out in ranking order with the captains as first members.
	require.Len(t, f.teams, 4)
	for i, team := range f.teams {
		assert.Equal(t, f.captainIDs[i], team.CaptainID)
		assert.Equal(t, i+1, team.DraftOrder)
		assert.Equal(t, "Team captain"+string(rune('1'+i)), team.Name)

		members, err := f.tournaments.ListTeamMembers(context.Background(), team.ID.String())
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.True(t, members[0].IsCaptain)
		assert.Equal(t, tourney.TierS, members[0].CategoryWhenDrafted)
	}

	// Ranking again after teams exist is rejected.
	_, err := f.tournamentService.RankCaptains(context.Background(), f.tournamentID, f.adminID, f.captainIDs)
	assert.ErrorIs(t, err, tourney.ErrInvalidTransition)
}

func TestRankCaptains_RequiresSTier(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	tournaments := store.NewTournamentStore(db)
	drafts := store.NewDraftStore(db)
	svc := NewTournamentService(db, tournaments, drafts, realtime.NewHub())

	adminID := createTestUser(t, db, "admin")
	maps := seedTestMaps(t, db)
	tournament, err := svc.Create(ctx, adminID, "Cup", "", []uuid.UUID{maps[0].ID, maps[1].ID, maps[2].ID})
	require.NoError(t, err)

	for _, next := range []tourney.TournamentStatus{
		tourney.StatusRegistrationOpen, tourney.StatusRegistrationClosed,
		tourney.StatusCategorizing, tourney.StatusAwaitingCaptainRanking,
	} {
		_, err = svc.AdvanceStatus(ctx, tournament.ID, adminID, next)
		require.NoError(t, err)
	}

	uncategorized := createTestUser(t, db, "nobody")
	_, err = svc.RankCaptains(ctx, tournament.ID, adminID, []uuid.UUID{uncategorized})
	assert.ErrorContains(t, err, "not categorized")
}
