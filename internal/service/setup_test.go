package service

import (
	"context"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ageleague/tourney-hub/internal/realtime"
	"github.com/ageleague/tourney-hub/internal/store"
	"github.com/ageleague/tourney-hub/internal/tourney"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// In-memory databases are per connection; keep the pool at one.
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

func createTestUser(t *testing.T, db *sqlx.DB, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec("INSERT INTO users (id, email, username) VALUES (?, ?, ?)",
		id, name+"@example.com", name)
	require.NoError(t, err)
	return id
}

func seedTestMaps(t *testing.T, db *sqlx.DB) []tourney.GameMap {
	t.Helper()
	maps := []tourney.GameMap{
		{ID: uuid.New(), Name: "Arabia", IsActive: true, DisplayOrder: 1},
		{ID: uuid.New(), Name: "Arena", IsActive: true, DisplayOrder: 2},
		{ID: uuid.New(), Name: "Nomad", IsActive: true, DisplayOrder: 3},
	}
	require.NoError(t, store.NewTournamentStore(db).CreateMaps(context.Background(), maps))
	return maps
}

func testRegistration(username string) *tourney.Registration {
	return &tourney.Registration{
		DiscordUsername:     username,
		InsightsURL:         "https://www.aoe2insights.com/user/1/",
		PreferredPosition:   tourney.PositionFlexible,
		PreferredCivsFlank:  tourney.StringList{"Britons", "Mayans"},
		PreferredCivsPocket: tourney.StringList{"Franks", "Huns"},
		PreferredMaps:       tourney.StringList{"Arabia", "Arena", "Nomad"},
	}
}

// draftFixture is a tournament driven through the whole pre-draft
// lifecycle: registered players, categories assigned, captains ranked and
// the draft session created.
type draftFixture struct {
	db       *sqlx.DB
	hub      *realtime.Hub
	presence *realtime.Presence

	tournaments *store.TournamentStore
	drafts      *store.DraftStore
	matches     *store.MatchStore

	tournamentService *TournamentService
	draftService      *DraftService

	adminID      uuid.UUID
	tournamentID uuid.UUID
	captainIDs   []uuid.UUID
	aTierIDs     []uuid.UUID
	bTierIDs     []uuid.UUID
	teams        []tourney.Team
	sessionID    uuid.UUID
}

func buildDraftReadyTournament(t *testing.T, db *sqlx.DB) *draftFixture {
	t.Helper()
	ctx := context.Background()

	f := &draftFixture{
		db:          db,
		hub:         realtime.NewHub(),
		presence:    realtime.NewPresence(realtime.DefaultPresenceTTL),
		tournaments: store.NewTournamentStore(db),
		drafts:      store.NewDraftStore(db),
		matches:     store.NewMatchStore(db),
	}
	f.tournamentService = NewTournamentService(db, f.tournaments, f.drafts, f.hub)
	f.draftService = NewDraftService(db, f.drafts, f.tournaments, f.hub, f.presence)

	f.adminID = createTestUser(t, db, "admin")
	maps := seedTestMaps(t, db)
	mapIDs := []uuid.UUID{maps[0].ID, maps[1].ID, maps[2].ID}

	tournament, err := f.tournamentService.Create(ctx, f.adminID, "Community Cup", "", mapIDs)
	require.NoError(t, err)
	f.tournamentID = tournament.ID

	_, err = f.tournamentService.AdvanceStatus(ctx, f.tournamentID, f.adminID, tourney.StatusRegistrationOpen)
	require.NoError(t, err)

	register := func(name string) uuid.UUID {
		userID := createTestUser(t, db, name)
		_, err := f.tournamentService.Register(ctx, f.tournamentID, userID, testRegistration(name))
		require.NoError(t, err)
		return userID
	}
	for i := 0; i < 4; i++ {
		f.captainIDs = append(f.captainIDs, register("captain"+string(rune('1'+i))))
	}
	for i := 0; i < 4; i++ {
		f.aTierIDs = append(f.aTierIDs, register("alpha"+string(rune('1'+i))))
	}
	for i := 0; i < 4; i++ {
		f.bTierIDs = append(f.bTierIDs, register("bravo"+string(rune('1'+i))))
	}

	_, err = f.tournamentService.AdvanceStatus(ctx, f.tournamentID, f.adminID, tourney.StatusRegistrationClosed)
	require.NoError(t, err)
	_, err = f.tournamentService.AdvanceStatus(ctx, f.tournamentID, f.adminID, tourney.StatusCategorizing)
	require.NoError(t, err)

	for _, id := range f.captainIDs {
		require.NoError(t, f.tournamentService.AssignCategory(ctx, f.tournamentID, f.adminID, id, tourney.TierS))
	}
	for _, id := range f.aTierIDs {
		require.NoError(t, f.tournamentService.AssignCategory(ctx, f.tournamentID, f.adminID, id, tourney.TierA))
	}
	for _, id := range f.bTierIDs {
		require.NoError(t, f.tournamentService.AssignCategory(ctx, f.tournamentID, f.adminID, id, tourney.TierB))
	}

	_, err = f.tournamentService.AdvanceStatus(ctx, f.tournamentID, f.adminID, tourney.StatusAwaitingCaptainRanking)
	require.NoError(t, err)

	f.teams, err = f.tournamentService.RankCaptains(ctx, f.tournamentID, f.adminID, f.captainIDs)
	require.NoError(t, err)

	_, err = f.tournamentService.AdvanceStatus(ctx, f.tournamentID, f.adminID, tourney.StatusDraftReady)
	require.NoError(t, err)

	session, err := f.drafts.GetSessionByTournament(ctx, f.tournamentID.String())
	require.NoError(t, err)
	f.sessionID = session.ID

	return f
}

// heartbeatCaptains marks every captain present on the draft channel.
func (f *draftFixture) heartbeatCaptains() {
	for _, id := range f.captainIDs {
		f.presence.Heartbeat(realtime.DraftChannel(f.tournamentID), id)
	}
}
