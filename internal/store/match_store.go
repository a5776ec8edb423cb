package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ageleague/tourney-hub/internal/tourney"
)

type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

func (s *MatchStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []tourney.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO matches
		(id, tournament_id, phase, round, match_number, team1_id, team2_id,
		 team1_score, team2_score, winner_id, status, best_of, scheduled_at)
		VALUES (:id, :tournament_id, :phase, :round, :match_number, :team1_id, :team2_id,
		 :team1_score, :team2_score, :winner_id, :status, :best_of, :scheduled_at)`, matches)
	return err
}

func (s *MatchStore) GetMatch(ctx context.Context, id string) (*tourney.Match, error) {
	var m tourney.Match
	err := s.db.GetContext(ctx, &m, "SELECT * FROM matches WHERE id = ?", id)
	return &m, err
}

func (s *MatchStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id string) (*tourney.Match, error) {
	var m tourney.Match
	err := tx.GetContext(ctx, &m, "SELECT * FROM matches WHERE id = ?", id)
	return &m, err
}

func (s *MatchStore) ListMatches(ctx context.Context, tournamentID string) ([]tourney.Match, error) {
	var matches []tourney.Match
	err := s.db.SelectContext(ctx, &matches,
		"SELECT * FROM matches WHERE tournament_id = ? ORDER BY phase ASC, match_number ASC", tournamentID)
	return matches, err
}

func (s *MatchStore) ListCompletedRoundRobin(ctx context.Context, tournamentID string) ([]tourney.Match, error) {
	var matches []tourney.Match
	err := s.db.SelectContext(ctx, &matches, `SELECT * FROM matches
		WHERE tournament_id = ? AND phase = ? AND status = ?
		ORDER BY match_number ASC`, tournamentID, tourney.PhaseRoundRobin, tourney.MatchCompleted)
	return matches, err
}

func (s *MatchStore) ListUpcoming(ctx context.Context, tournamentID string, limit int) ([]tourney.Match, error) {
	var matches []tourney.Match
	err := s.db.SelectContext(ctx, &matches, `SELECT * FROM matches
		WHERE tournament_id = ? AND scheduled_at IS NOT NULL AND status IN (?, ?)
		ORDER BY scheduled_at ASC LIMIT ?`,
		tournamentID, tourney.MatchScheduled, tourney.MatchInProgress, limit)
	return matches, err
}

func (s *MatchStore) CountMatchesTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM matches WHERE tournament_id = ?", tournamentID)
	return count, err
}

func (s *MatchStore) UpdateMatchTx(ctx context.Context, tx *sqlx.Tx, m *tourney.Match) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE matches SET
		team1_id = :team1_id,
		team2_id = :team2_id,
		team1_score = :team1_score,
		team2_score = :team2_score,
		winner_id = :winner_id,
		status = :status,
		scheduled_at = :scheduled_at
		WHERE id = :id`, m)
	return err
}

func (s *MatchStore) SetMatchTeamsTx(ctx context.Context, tx *sqlx.Tx, matchID, team1ID, team2ID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE matches SET team1_id = ?, team2_id = ? WHERE id = ?", team1ID, team2ID, matchID)
	return err
}

func (s *MatchStore) SetScheduleTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE matches SET scheduled_at = ?, status = ? WHERE id = ?", at, tourney.MatchScheduled, matchID)
	return err
}

func (s *MatchStore) GetByPhaseNumberTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, phase tourney.MatchPhase, matchNumber int) (*tourney.Match, error) {
	var m tourney.Match
	err := tx.GetContext(ctx, &m,
		"SELECT * FROM matches WHERE tournament_id = ? AND phase = ? AND match_number = ?",
		tournamentID, phase, matchNumber)
	return &m, err
}

func (s *MatchStore) ListByPhaseTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, phase tourney.MatchPhase) ([]tourney.Match, error) {
	var matches []tourney.Match
	err := tx.SelectContext(ctx, &matches,
		"SELECT * FROM matches WHERE tournament_id = ? AND phase = ? ORDER BY match_number ASC",
		tournamentID, phase)
	return matches, err
}

func (s *MatchStore) DeleteMatchesTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE tournament_id = ?", tournamentID)
	return err
}

func (s *MatchStore) CreateProposalTx(ctx context.Context, tx *sqlx.Tx, p *tourney.ScheduleProposal) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO schedule_proposals
		(id, match_id, proposed_by, proposed_time, status, response_notes, responded_by)
		VALUES (:id, :match_id, :proposed_by, :proposed_time, :status, :response_notes, :responded_by)`, p)
	return err
}

func (s *MatchStore) GetProposal(ctx context.Context, id string) (*tourney.ScheduleProposal, error) {
	var p tourney.ScheduleProposal
	err := s.db.GetContext(ctx, &p, "SELECT * FROM schedule_proposals WHERE id = ?", id)
	return &p, err
}

func (s *MatchStore) GetProposalTx(ctx context.Context, tx *sqlx.Tx, id string) (*tourney.ScheduleProposal, error) {
	var p tourney.ScheduleProposal
	err := tx.GetContext(ctx, &p, "SELECT * FROM schedule_proposals WHERE id = ?", id)
	return &p, err
}

func (s *MatchStore) UpdateProposalTx(ctx context.Context, tx *sqlx.Tx, p *tourney.ScheduleProposal) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE schedule_proposals SET
		status = :status,
		response_notes = :response_notes,
		responded_by = :responded_by
		WHERE id = :id`, p)
	return err
}

func (s *MatchStore) ListProposals(ctx context.Context, matchID string) ([]tourney.ScheduleProposal, error) {
	var proposals []tourney.ScheduleProposal
	err := s.db.SelectContext(ctx, &proposals,
		"SELECT * FROM schedule_proposals WHERE match_id = ? ORDER BY rowid DESC", matchID)
	return proposals, err
}

func (s *MatchStore) HasPendingProposalTx(ctx context.Context, tx *sqlx.Tx, matchID, proposerID uuid.UUID) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM schedule_proposals
		WHERE match_id = ? AND proposed_by = ? AND status = ?`,
		matchID, proposerID, tourney.ProposalPending)
	return count > 0, err
}

// ExpirePendingBefore marks stale pending proposals expired. Invoked by an
// external sweep, never by the request path.
func (s *MatchStore) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE schedule_proposals SET status = ?
		WHERE status = ? AND created_at < ?`,
		tourney.ProposalExpired, tourney.ProposalPending, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
