package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ageleague/tourney-hub/internal/tourney"
)

type DraftStore struct {
	db *sqlx.DB
}

func NewDraftStore(db *sqlx.DB) *DraftStore {
	return &DraftStore{db: db}
}

func (s *DraftStore) CreateSession(ctx context.Context, tx *sqlx.Tx, session *tourney.DraftSession) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO draft_sessions
		(id, tournament_id, status, current_category, pick_timer_seconds)
		VALUES (:id, :tournament_id, :status, :current_category, :pick_timer_seconds)`, session)
	return err
}

func (s *DraftStore) GetSessionByTournament(ctx context.Context, tournamentID string) (*tourney.DraftSession, error) {
	var session tourney.DraftSession
	err := s.db.GetContext(ctx, &session,
		"SELECT * FROM draft_sessions WHERE tournament_id = ?", tournamentID)
	return &session, err
}

func (s *DraftStore) GetSessionByTournamentTx(ctx context.Context, tx *sqlx.Tx, tournamentID string) (*tourney.DraftSession, error) {
	var session tourney.DraftSession
	err := tx.GetContext(ctx, &session,
		"SELECT * FROM draft_sessions WHERE tournament_id = ?", tournamentID)
	return &session, err
}

func (s *DraftStore) GetSessionTx(ctx context.Context, tx *sqlx.Tx, id string) (*tourney.DraftSession, error) {
	var session tourney.DraftSession
	err := tx.GetContext(ctx, &session, "SELECT * FROM draft_sessions WHERE id = ?", id)
	return &session, err
}

func (s *DraftStore) UpdateSessionTx(ctx context.Context, tx *sqlx.Tx, session *tourney.DraftSession) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE draft_sessions SET
		status = :status,
		current_category = :current_category,
		started_at = :started_at,
		completed_at = :completed_at
		WHERE id = :id`, session)
	return err
}

func (s *DraftStore) CountPicksTx(ctx context.Context, tx *sqlx.Tx, sessionID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM draft_picks WHERE draft_session_id = ?", sessionID)
	return count, err
}

func (s *DraftStore) InsertPickTx(ctx context.Context, tx *sqlx.Tx, pick *tourney.DraftPick) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO draft_picks
		(id, draft_session_id, team_id, user_id, pick_number, round_number, category)
		VALUES (:id, :draft_session_id, :team_id, :user_id, :pick_number, :round_number, :category)`, pick)
	return err
}

func (s *DraftStore) ListPicks(ctx context.Context, sessionID string) ([]tourney.DraftPick, error) {
	var picks []tourney.DraftPick
	err := s.db.SelectContext(ctx, &picks,
		"SELECT * FROM draft_picks WHERE draft_session_id = ? ORDER BY pick_number ASC", sessionID)
	return picks, err
}

// AvailablePlayersTx returns the user ids still draftable for a tier:
// registered, categorized into it, and not yet on any team (captains are
// team members from team creation, so they are excluded automatically).
func (s *DraftStore) AvailablePlayersTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, tier tourney.Tier) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.SelectContext(ctx, &ids, `SELECT r.user_id FROM registrations r
		JOIN player_categories pc
			ON pc.tournament_id = r.tournament_id AND pc.user_id = r.user_id
		WHERE r.tournament_id = ? AND pc.category = ?
		AND r.user_id NOT IN (
			SELECT tm.user_id FROM team_members tm
			JOIN teams t ON t.id = tm.team_id
			WHERE t.tournament_id = ?
		)
		ORDER BY r.registered_at ASC`, tournamentID, tier, tournamentID)
	return ids, err
}

// AvailablePlayers is the read-only variant used for display; it may lag
// behind concurrent picks, which SubmitPick re-checks inside its
// transaction.
func (s *DraftStore) AvailablePlayers(ctx context.Context, tournamentID uuid.UUID, tier tourney.Tier) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.SelectContext(ctx, &ids, `SELECT r.user_id FROM registrations r
		JOIN player_categories pc
			ON pc.tournament_id = r.tournament_id AND pc.user_id = r.user_id
		WHERE r.tournament_id = ? AND pc.category = ?
		AND r.user_id NOT IN (
			SELECT tm.user_id FROM team_members tm
			JOIN teams t ON t.id = tm.team_id
			WHERE t.tournament_id = ?
		)
		ORDER BY r.registered_at ASC`, tournamentID, tier, tournamentID)
	return ids, err
}

// InsertEvent is best-effort audit logging; callers log and ignore errors.
func (s *DraftStore) InsertEvent(ctx context.Context, event *tourney.DraftEvent) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO draft_events
		(id, draft_session_id, event_type, actor_id, team_id, detail)
		VALUES (:id, :draft_session_id, :event_type, :actor_id, :team_id, :detail)`, event)
	return err
}

func (s *DraftStore) ListEvents(ctx context.Context, sessionID string) ([]tourney.DraftEvent, error) {
	var events []tourney.DraftEvent
	err := s.db.SelectContext(ctx, &events,
		"SELECT * FROM draft_events WHERE draft_session_id = ? ORDER BY rowid ASC", sessionID)
	return events, err
}
