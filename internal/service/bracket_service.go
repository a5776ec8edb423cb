package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ageleague/tourney-hub/internal/realtime"
	"github.com/ageleague/tourney-hub/internal/store"
	"github.com/ageleague/tourney-hub/internal/tourney"
)

type BracketService struct {
	db          *sqlx.DB
	matches     *store.MatchStore
	tournaments *store.TournamentStore
	hub         *realtime.Hub
}

func NewBracketService(db *sqlx.DB, matches *store.MatchStore, tournaments *store.TournamentStore, hub *realtime.Hub) *BracketService {
	return &BracketService{db: db, matches: matches, tournaments: tournaments, hub: hub}
}

const (
	minBracketTeams = 4

	semifinal1Number = 1 // seed 1 vs seed 4
	semifinal2Number = 2 // seed 2 vs seed 3
)

// buildRoundRobin pairs every two teams exactly once, match numbers
// sequential from 1. Round robin matches are AP3 series tracked as a
// single aggregate score, hence best_of 1.
func buildRoundRobin(tournamentID uuid.UUID, teams []tourney.Team) []tourney.Match {
	var matches []tourney.Match
	matchNumber := 1
	for i := 0; i < len(teams); i++ {
		for j := i + 1; j < len(teams); j++ {
			matches = append(matches, tourney.Match{
				ID:           uuid.New(),
				TournamentID: tournamentID,
				Phase:        tourney.PhaseRoundRobin,
				Round:        1,
				MatchNumber:  matchNumber,
				Team1ID:      &teams[i].ID,
				Team2ID:      &teams[j].ID,
				Status:       tourney.MatchPending,
				BestOf:       1,
			})
			matchNumber++
		}
	}
	return matches
}

// buildPlayoffs creates the two semifinals and the grand final with empty
// team slots; seeding fills them after round robin completes.
func buildPlayoffs(tournamentID uuid.UUID) []tourney.Match {
	return []tourney.Match{
		{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Phase:        tourney.PhaseSemifinal,
			Round:        1,
			MatchNumber:  semifinal1Number,
			Status:       tourney.MatchPending,
			BestOf:       3,
		},
		{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Phase:        tourney.PhaseSemifinal,
			Round:        1,
			MatchNumber:  semifinal2Number,
			Status:       tourney.MatchPending,
			BestOf:       3,
		},
		{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Phase:        tourney.PhaseGrandFinal,
			Round:        1,
			MatchNumber:  1,
			Status:       tourney.MatchPending,
			BestOf:       5,
		},
	}
}

// GenerateBracket creates the full round robin plus the playoff skeleton.
// Regeneration requires an explicit DeleteBracket first.
func (s *BracketService) GenerateBracket(ctx context.Context, tournamentID, actingUserID uuid.UUID) ([]tourney.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.tournaments.GetTournamentTx(ctx, tx, tournamentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament.AdminID != actingUserID {
		return nil, tourney.ErrNotAdmin
	}

	teams, err := s.tournaments.GetTeamsTx(ctx, tx, tournamentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	if len(teams) < minBracketTeams {
		return nil, tourney.ErrInsufficientTeams
	}

	existing, err := s.matches.CountMatchesTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing matches: %w", err)
	}
	if existing > 0 {
		return nil, tourney.ErrBracketExists
	}

	matches := buildRoundRobin(tournamentID, teams)
	matches = append(matches, buildPlayoffs(tournamentID)...)

	if err := s.matches.CreateMatches(ctx, tx, matches); err != nil {
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.hub.Publish(realtime.Event{
		Table:        "matches",
		Action:       realtime.ActionInsert,
		TournamentID: tournamentID,
	})
	return matches, nil
}

// DeleteBracket removes every match so the bracket can be regenerated.
func (s *BracketService) DeleteBracket(ctx context.Context, tournamentID, actingUserID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := s.tournaments.GetTournamentTx(ctx, tx, tournamentID.String())
	if err != nil {
		return fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament.AdminID != actingUserID {
		return tourney.ErrNotAdmin
	}

	if err := s.matches.DeleteMatchesTx(ctx, tx, tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.hub.Publish(realtime.Event{
		Table:        "matches",
		Action:       realtime.ActionDelete,
		TournamentID: tournamentID,
	})
	return nil
}

// Standings computes the current round robin table.
func (s *BracketService) Standings(ctx context.Context, tournamentID string) ([]tourney.TeamStanding, error) {
	teams, err := s.tournaments.GetTeams(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.ListCompletedRoundRobin(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return tourney.ComputeStandings(teams, matches), nil
}

// AssignPlayoffTeams seeds the semifinals from the round robin standings:
// first versus fourth, second versus third.
func (s *BracketService) AssignPlayoffTeams(ctx context.Context, tournamentID, actingUserID uuid.UUID) ([]tourney.TeamStanding, error) {
	standings, err := s.Standings(ctx, tournamentID.String())
	if err != nil {
		return nil, err
	}
	if len(standings) < minBracketTeams {
		return nil, tourney.ErrInsufficientTeams
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.tournaments.GetTournamentTx(ctx, tx, tournamentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament.AdminID != actingUserID {
		return nil, tourney.ErrNotAdmin
	}

	sf1, err := s.matches.GetByPhaseNumberTx(ctx, tx, tournamentID, tourney.PhaseSemifinal, semifinal1Number)
	if err != nil {
		return nil, fmt.Errorf("failed to get semifinal 1: %w", err)
	}
	sf2, err := s.matches.GetByPhaseNumberTx(ctx, tx, tournamentID, tourney.PhaseSemifinal, semifinal2Number)
	if err != nil {
		return nil, fmt.Errorf("failed to get semifinal 2: %w", err)
	}

	if err := s.matches.SetMatchTeamsTx(ctx, tx, sf1.ID, standings[0].TeamID, standings[3].TeamID); err != nil {
		return nil, fmt.Errorf("failed to seed semifinal 1: %w", err)
	}
	if err := s.matches.SetMatchTeamsTx(ctx, tx, sf2.ID, standings[1].TeamID, standings[2].TeamID); err != nil {
		return nil, fmt.Errorf("failed to seed semifinal 2: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.hub.Publish(realtime.Event{
		Table:        "matches",
		Action:       realtime.ActionUpdate,
		TournamentID: tournamentID,
	})
	return standings[:minBracketTeams], nil
}

// ReportResult records a completed match. When the second semifinal
// completes, the grand final's slots are filled with both winners; a
// single completed semifinal leaves the grand final untouched.
func (s *BracketService) ReportResult(ctx context.Context, matchID uuid.UUID, team1Score, team2Score int, winnerID, actingUserID uuid.UUID) (*tourney.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.matches.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	tournament, err := s.tournaments.GetTournamentTx(ctx, tx, match.TournamentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament.AdminID != actingUserID {
		return nil, tourney.ErrNotAdmin
	}

	if !match.HasTeam(winnerID) {
		return nil, fmt.Errorf("winner is not part of this match")
	}

	match.Team1Score = team1Score
	match.Team2Score = team2Score
	match.WinnerID = &winnerID
	match.Status = tourney.MatchCompleted
	if err := s.matches.UpdateMatchTx(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	if match.Phase == tourney.PhaseSemifinal {
		if err := s.propagateGrandFinalTx(ctx, tx, match.TournamentID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.hub.Publish(realtime.Event{
		Table:        "matches",
		Action:       realtime.ActionUpdate,
		TournamentID: match.TournamentID,
		Payload:      match,
	})
	return match, nil
}

func (s *BracketService) propagateGrandFinalTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	semis, err := s.matches.ListByPhaseTx(ctx, tx, tournamentID, tourney.PhaseSemifinal)
	if err != nil {
		return fmt.Errorf("failed to list semifinals: %w", err)
	}

	var sf1Winner, sf2Winner *uuid.UUID
	for _, m := range semis {
		if m.Status != tourney.MatchCompleted || m.WinnerID == nil {
			continue
		}
		switch m.MatchNumber {
		case semifinal1Number:
			sf1Winner = m.WinnerID
		case semifinal2Number:
			sf2Winner = m.WinnerID
		}
	}
	if sf1Winner == nil || sf2Winner == nil {
		// Not both semifinals decided yet.
		return nil
	}

	final, err := s.matches.GetByPhaseNumberTx(ctx, tx, tournamentID, tourney.PhaseGrandFinal, 1)
	if err != nil {
		return fmt.Errorf("failed to get grand final: %w", err)
	}
	if err := s.matches.SetMatchTeamsTx(ctx, tx, final.ID, *sf1Winner, *sf2Winner); err != nil {
		return fmt.Errorf("failed to set grand final teams: %w", err)
	}
	return nil
}
