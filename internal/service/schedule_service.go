package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ageleague/tourney-hub/internal/realtime"
	"github.com/ageleague/tourney-hub/internal/store"
	"github.com/ageleague/tourney-hub/internal/tourney"
	"github.com/ageleague/tourney-hub/internal/utils"
)

type ScheduleService struct {
	db          *sqlx.DB
	matches     *store.MatchStore
	tournaments *store.TournamentStore
	hub         *realtime.Hub
}

func NewScheduleService(db *sqlx.DB, matches *store.MatchStore, tournaments *store.TournamentStore, hub *realtime.Hub) *ScheduleService {
	return &ScheduleService{db: db, matches: matches, tournaments: tournaments, hub: hub}
}

// matchCaptainsTx resolves the two captains of a match's teams. Both team
// slots must be populated before scheduling makes sense.
func (s *ScheduleService) matchCaptainsTx(ctx context.Context, tx *sqlx.Tx, match *tourney.Match) (captain1, captain2 uuid.UUID, err error) {
	if match.Team1ID == nil || match.Team2ID == nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("match teams are not assigned yet")
	}
	team1, err := s.tournaments.GetTeamTx(ctx, tx, match.Team1ID.String())
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("failed to get team 1: %w", err)
	}
	team2, err := s.tournaments.GetTeamTx(ctx, tx, match.Team2ID.String())
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("failed to get team 2: %w", err)
	}
	return team1.CaptainID, team2.CaptainID, nil
}

// Propose creates a pending schedule proposal by one of the match's
// captains. Admins schedule directly through AdminSetSchedule instead.
func (s *ScheduleService) Propose(ctx context.Context, matchID, actingUserID uuid.UUID, proposedTime time.Time, notes string) (*tourney.ScheduleProposal, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.matches.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if !match.Schedulable() {
		return nil, fmt.Errorf("match can no longer be scheduled")
	}

	captain1, captain2, err := s.matchCaptainsTx(ctx, tx, match)
	if err != nil {
		return nil, err
	}
	if actingUserID != captain1 && actingUserID != captain2 {
		return nil, tourney.ErrNotCaptain
	}

	pending, err := s.matches.HasPendingProposalTx(ctx, tx, matchID, actingUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending proposals: %w", err)
	}
	if pending {
		return nil, tourney.ErrDuplicateProposal
	}

	proposal := &tourney.ScheduleProposal{
		ID:            uuid.New(),
		MatchID:       matchID,
		ProposedBy:    actingUserID,
		ProposedTime:  proposedTime,
		Status:        tourney.ProposalPending,
		ResponseNotes: utils.StringOrNil(notes),
	}
	if err := s.matches.CreateProposalTx(ctx, tx, proposal); err != nil {
		if store.IsUniqueViolation(err) {
			// The partial unique index caught a concurrent duplicate.
			return nil, tourney.ErrDuplicateProposal
		}
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.publishProposal(match.TournamentID, proposal)
	return proposal, nil
}

// Respond approves or rejects a pending proposal. Only the other team's
// captain or the tournament admin may respond; approval also sets the
// match's scheduled time in the same transaction. Sibling pending
// proposals are left untouched.
func (s *ScheduleService) Respond(ctx context.Context, proposalID, actingUserID uuid.UUID, approve bool, notes string) (*tourney.ScheduleProposal, error) {
	status := tourney.ProposalRejected
	if approve {
		status = tourney.ProposalApproved
	}
	return s.respond(ctx, proposalID, actingUserID, status, notes, nil)
}

// CounterPropose marks the original proposal countered and creates a new
// pending proposal from the responder, as one transaction: if either
// write fails, neither sticks.
func (s *ScheduleService) CounterPropose(ctx context.Context, proposalID, actingUserID uuid.UUID, newTime time.Time, notes string) (*tourney.ScheduleProposal, error) {
	return s.respond(ctx, proposalID, actingUserID, tourney.ProposalCountered, notes, &newTime)
}

func (s *ScheduleService) respond(ctx context.Context, proposalID, actingUserID uuid.UUID, status tourney.ProposalStatus, notes string, counterTime *time.Time) (*tourney.ScheduleProposal, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	proposal, err := s.matches.GetProposalTx(ctx, tx, proposalID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	if proposal.Status != tourney.ProposalPending {
		return nil, tourney.ErrProposalResolved
	}
	if proposal.ProposedBy == actingUserID {
		return nil, tourney.ErrOwnProposal
	}

	match, err := s.matches.GetMatchTx(ctx, tx, proposal.MatchID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	tournament, err := s.tournaments.GetTournamentTx(ctx, tx, match.TournamentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	captain1, captain2, err := s.matchCaptainsTx(ctx, tx, match)
	if err != nil {
		return nil, err
	}
	isCaptain := actingUserID == captain1 || actingUserID == captain2
	isAdmin := actingUserID == tournament.AdminID
	if !isCaptain && !isAdmin {
		return nil, tourney.ErrNotCaptain
	}
	if status == tourney.ProposalCountered && !isCaptain {
		// Countering always comes from the opposing captain, not the admin.
		return nil, tourney.ErrNotCaptain
	}

	proposal.Status = status
	proposal.RespondedBy = &actingUserID
	proposal.ResponseNotes = utils.StringOrNil(notes)
	if err := s.matches.UpdateProposalTx(ctx, tx, proposal); err != nil {
		return nil, fmt.Errorf("failed to update proposal: %w", err)
	}

	if status == tourney.ProposalApproved {
		if err := s.matches.SetScheduleTx(ctx, tx, match.ID, proposal.ProposedTime); err != nil {
			return nil, fmt.Errorf("failed to schedule match: %w", err)
		}
	}

	var counter *tourney.ScheduleProposal
	if counterTime != nil {
		counter = &tourney.ScheduleProposal{
			ID:            uuid.New(),
			MatchID:       match.ID,
			ProposedBy:    actingUserID,
			ProposedTime:  *counterTime,
			Status:        tourney.ProposalPending,
			ResponseNotes: utils.StringOrNil(notes),
		}
		if err := s.matches.CreateProposalTx(ctx, tx, counter); err != nil {
			if store.IsUniqueViolation(err) {
				return nil, tourney.ErrDuplicateProposal
			}
			return nil, fmt.Errorf("failed to create counter proposal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.publishProposal(match.TournamentID, proposal)
	if counter != nil {
		s.publishProposal(match.TournamentID, counter)
		return counter, nil
	}
	return proposal, nil
}

// AdminSetSchedule bypasses the proposal flow entirely.
func (s *ScheduleService) AdminSetSchedule(ctx context.Context, matchID, actingUserID uuid.UUID, at time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	match, err := s.matches.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		return fmt.Errorf("failed to get match: %w", err)
	}
	tournament, err := s.tournaments.GetTournamentTx(ctx, tx, match.TournamentID.String())
	if err != nil {
		return fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament.AdminID != actingUserID {
		return tourney.ErrNotAdmin
	}

	if err := s.matches.SetScheduleTx(ctx, tx, matchID, at); err != nil {
		return fmt.Errorf("failed to schedule match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.hub.Publish(realtime.Event{
		Table:        "matches",
		Action:       realtime.ActionUpdate,
		TournamentID: match.TournamentID,
	})
	return nil
}

func (s *ScheduleService) Proposals(ctx context.Context, matchID string) ([]tourney.ScheduleProposal, error) {
	return s.matches.ListProposals(ctx, matchID)
}

// ExpirePending sweeps pending proposals created before the cutoff. Meant
// to be called from an external scheduler; the request path never expires.
func (s *ScheduleService) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.matches.ExpirePendingBefore(ctx, cutoff)
}

func (s *ScheduleService) publishProposal(tournamentID uuid.UUID, p *tourney.ScheduleProposal) {
	s.hub.Publish(realtime.Event{
		Table:        "schedule_proposals",
		Action:       realtime.ActionUpdate,
		TournamentID: tournamentID,
		Payload:      p,
	})
}
