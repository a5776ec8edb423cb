package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ageleague/tourney-hub/internal/tourney"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, t *tourney.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, admin_id, name, description, status, team_size)
		VALUES (:id, :admin_id, :name, :description, :status, :team_size)`, t)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id string) (*tourney.Tournament, error) {
	var t tourney.Tournament
	err := s.db.GetContext(ctx, &t, "SELECT * FROM tournaments WHERE id = ?", id)
	return &t, err
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id string) (*tourney.Tournament, error) {
	var t tourney.Tournament
	err := tx.GetContext(ctx, &t, "SELECT * FROM tournaments WHERE id = ?", id)
	return &t, err
}

func (s *TournamentStore) ListTournamentsByAdmin(ctx context.Context, adminID uuid.UUID) ([]tourney.Tournament, error) {
	var tournaments []tourney.Tournament
	err := s.db.SelectContext(ctx, &tournaments,
		"SELECT * FROM tournaments WHERE admin_id = ? ORDER BY created_at DESC", adminID)
	return tournaments, err
}

func (s *TournamentStore) ListPublicTournaments(ctx context.Context) ([]tourney.Tournament, error) {
	var tournaments []tourney.Tournament
	err := s.db.SelectContext(ctx, &tournaments,
		"SELECT * FROM tournaments WHERE status != ? ORDER BY created_at DESC", tourney.StatusDraft)
	return tournaments, err
}

func (s *TournamentStore) UpdateTournamentStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status tourney.TournamentStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ? WHERE id = ?", status, id)
	return err
}

func (s *TournamentStore) CreateMaps(ctx context.Context, maps []tourney.GameMap) error {
	if len(maps) == 0 {
		return nil
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO maps (id, name, description, is_active, display_order)
		VALUES (:id, :name, :description, :is_active, :display_order)`, maps)
	return err
}

func (s *TournamentStore) ListActiveMaps(ctx context.Context) ([]tourney.GameMap, error) {
	var maps []tourney.GameMap
	err := s.db.SelectContext(ctx, &maps, "SELECT * FROM maps WHERE is_active = 1 ORDER BY display_order")
	return maps, err
}

func (s *TournamentStore) AddTournamentMaps(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, mapIDs []uuid.UUID) error {
	for _, mapID := range mapIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tournament_maps (tournament_id, map_id) VALUES (?, ?)", tournamentID, mapID); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) GetTournamentMapNames(ctx context.Context, tournamentID string) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `SELECT m.name FROM tournament_maps tm
		JOIN maps m ON m.id = tm.map_id
		WHERE tm.tournament_id = ? ORDER BY m.display_order`, tournamentID)
	return names, err
}

func (s *TournamentStore) CreateRegistration(ctx context.Context, tx *sqlx.Tx, r *tourney.Registration) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO registrations
		(id, tournament_id, user_id, discord_username, discord_avatar_url, insights_url,
		 preferred_position, preferred_civs_flank, preferred_civs_pocket, preferred_maps, notes)
		VALUES (:id, :tournament_id, :user_id, :discord_username, :discord_avatar_url, :insights_url,
		 :preferred_position, :preferred_civs_flank, :preferred_civs_pocket, :preferred_maps, :notes)`, r)
	return err
}

func (s *TournamentStore) GetRegistration(ctx context.Context, tournamentID, userID string) (*tourney.Registration, error) {
	var r tourney.Registration
	err := s.db.GetContext(ctx, &r,
		"SELECT * FROM registrations WHERE tournament_id = ? AND user_id = ?", tournamentID, userID)
	return &r, err
}

func (s *TournamentStore) GetRegistrationTx(ctx context.Context, tx *sqlx.Tx, tournamentID, userID string) (*tourney.Registration, error) {
	var r tourney.Registration
	err := tx.GetContext(ctx, &r,
		"SELECT * FROM registrations WHERE tournament_id = ? AND user_id = ?", tournamentID, userID)
	return &r, err
}

func (s *TournamentStore) ListRegistrations(ctx context.Context, tournamentID string) ([]tourney.Registration, error) {
	var regs []tourney.Registration
	err := s.db.SelectContext(ctx, &regs,
		"SELECT * FROM registrations WHERE tournament_id = ? ORDER BY registered_at", tournamentID)
	return regs, err
}

func (s *TournamentStore) DeleteRegistration(ctx context.Context, tx *sqlx.Tx, tournamentID, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM registrations WHERE tournament_id = ? AND user_id = ?", tournamentID, userID)
	return err
}

func (s *TournamentStore) UpsertCategory(ctx context.Context, tx *sqlx.Tx, c *tourney.PlayerCategory) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO player_categories (tournament_id, user_id, category, assigned_by)
		VALUES (:tournament_id, :user_id, :category, :assigned_by)
		ON CONFLICT (tournament_id, user_id) DO UPDATE SET category = :category, assigned_by = :assigned_by`, c)
	return err
}

func (s *TournamentStore) DeleteCategory(ctx context.Context, tx *sqlx.Tx, tournamentID, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM player_categories WHERE tournament_id = ? AND user_id = ?", tournamentID, userID)
	return err
}

func (s *TournamentStore) GetCategory(ctx context.Context, tournamentID, userID string) (*tourney.PlayerCategory, error) {
	var c tourney.PlayerCategory
	err := s.db.GetContext(ctx, &c,
		"SELECT * FROM player_categories WHERE tournament_id = ? AND user_id = ?", tournamentID, userID)
	return &c, err
}

func (s *TournamentStore) GetCategoryTx(ctx context.Context, tx *sqlx.Tx, tournamentID, userID string) (*tourney.PlayerCategory, error) {
	var c tourney.PlayerCategory
	err := tx.GetContext(ctx, &c,
		"SELECT * FROM player_categories WHERE tournament_id = ? AND user_id = ?", tournamentID, userID)
	return &c, err
}

func (s *TournamentStore) GetCategoryStats(ctx context.Context, tournamentID string) (*tourney.CategoryStats, error) {
	var stats tourney.CategoryStats
	err := s.db.GetContext(ctx, &stats, `SELECT
		COUNT(CASE WHEN category = 'S-Tier' THEN 1 END) AS s_tier,
		COUNT(CASE WHEN category = 'A-Tier' THEN 1 END) AS a_tier,
		COUNT(CASE WHEN category = 'B-Tier' THEN 1 END) AS b_tier,
		COUNT(CASE WHEN category = 'Misc' THEN 1 END) AS misc,
		COUNT(*) AS total
		FROM player_categories WHERE tournament_id = ?`, tournamentID)
	return &stats, err
}

func (s *TournamentStore) CreateTeam(ctx context.Context, tx *sqlx.Tx, t *tourney.Team) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO teams (id, tournament_id, captain_id, name, draft_order)
		VALUES (:id, :tournament_id, :captain_id, :name, :draft_order)`, t)
	return err
}

func (s *TournamentStore) GetTeam(ctx context.Context, id string) (*tourney.Team, error) {
	var t tourney.Team
	err := s.db.GetContext(ctx, &t, "SELECT * FROM teams WHERE id = ?", id)
	return &t, err
}

func (s *TournamentStore) GetTeamTx(ctx context.Context, tx *sqlx.Tx, id string) (*tourney.Team, error) {
	var t tourney.Team
	err := tx.GetContext(ctx, &t, "SELECT * FROM teams WHERE id = ?", id)
	return &t, err
}

func (s *TournamentStore) GetTeams(ctx context.Context, tournamentID string) ([]tourney.Team, error) {
	var teams []tourney.Team
	err := s.db.SelectContext(ctx, &teams,
		"SELECT * FROM teams WHERE tournament_id = ? ORDER BY draft_order ASC", tournamentID)
	return teams, err
}

func (s *TournamentStore) GetTeamsTx(ctx context.Context, tx *sqlx.Tx, tournamentID string) ([]tourney.Team, error) {
	var teams []tourney.Team
	err := tx.SelectContext(ctx, &teams,
		"SELECT * FROM teams WHERE tournament_id = ? ORDER BY draft_order ASC", tournamentID)
	return teams, err
}

func (s *TournamentStore) CreateTeamMember(ctx context.Context, tx *sqlx.Tx, m *tourney.TeamMember) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO team_members
		(team_id, user_id, is_captain, category_when_drafted, draft_round, draft_pick_number)
		VALUES (:team_id, :user_id, :is_captain, :category_when_drafted, :draft_round, :draft_pick_number)`, m)
	return err
}

func (s *TournamentStore) ListTeamMembers(ctx context.Context, teamID string) ([]tourney.TeamMember, error) {
	var members []tourney.TeamMember
	err := s.db.SelectContext(ctx, &members,
		"SELECT * FROM team_members WHERE team_id = ? ORDER BY draft_pick_number ASC", teamID)
	return members, err
}
