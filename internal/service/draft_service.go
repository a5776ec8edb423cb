package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ageleague/tourney-hub/internal/realtime"
	"github.com/ageleague/tourney-hub/internal/store"
	"github.com/ageleague/tourney-hub/internal/tourney"
	"github.com/ageleague/tourney-hub/internal/utils"
)

type DraftService struct {
	db          *sqlx.DB
	drafts      *store.DraftStore
	tournaments *store.TournamentStore
	hub         *realtime.Hub
	presence    *realtime.Presence
}

func NewDraftService(db *sqlx.DB, drafts *store.DraftStore, tournaments *store.TournamentStore, hub *realtime.Hub, presence *realtime.Presence) *DraftService {
	return &DraftService{db: db, drafts: drafts, tournaments: tournaments, hub: hub, presence: presence}
}

// DraftState is the aggregated view a draft room renders: the session,
// teams in draft order, the pick log, whose turn it is, and the remaining
// pool for the current tier.
type DraftState struct {
	Session          *tourney.DraftSession `json:"session"`
	Teams            []tourney.Team        `json:"teams"`
	Picks            []tourney.DraftPick   `json:"picks"`
	NextTeam         *tourney.Team         `json:"next_team"`
	AvailablePlayers []uuid.UUID           `json:"available_players"`
}

func (s *DraftService) GetDraftState(ctx context.Context, tournamentID string) (*DraftState, error) {
	session, err := s.drafts.GetSessionByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	teams, err := s.tournaments.GetTeams(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	picks, err := s.drafts.ListPicks(ctx, session.ID.String())
	if err != nil {
		return nil, err
	}

	state := &DraftState{Session: session, Teams: teams, Picks: picks}

	if session.Status == tourney.DraftInProgress && session.CurrentCategory != nil {
		if next, err := tourney.NextPicker(teams, len(picks)); err == nil {
			state.NextTeam = next
		}

		// Display-only pool; SubmitPick re-validates inside its transaction.
		available, err := s.drafts.AvailablePlayers(ctx, session.TournamentID, *session.CurrentCategory)
		if err != nil {
			slog.Warn("failed to load available players", "tournament", tournamentID, "error", err)
			available = nil
		}
		state.AvailablePlayers = available
	}

	return state, nil
}

// StartDraft moves a waiting session to in_progress. Admin-only, and every
// captain must be live on the draft presence channel.
func (s *DraftService) StartDraft(ctx context.Context, tournamentID, actingUserID uuid.UUID) error {
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
	if tournament.Status != tourney.StatusDraftReady {
		return tourney.ErrInvalidTransition
	}

	session, err := s.drafts.GetSessionByTournamentTx(ctx, tx, tournamentID.String())
	if err != nil {
		return fmt.Errorf("failed to get draft session: %w", err)
	}
	if session.Status != tourney.DraftWaitingForCaptains {
		return tourney.ErrInvalidTransition
	}

	teams, err := s.tournaments.GetTeamsTx(ctx, tx, tournamentID.String())
	if err != nil {
		return fmt.Errorf("failed to get teams: %w", err)
	}
	captains := make([]uuid.UUID, len(teams))
	for i, t := range teams {
		captains[i] = t.CaptainID
	}
	if !s.presence.AllOnline(realtime.DraftChannel(tournamentID), captains) {
		return tourney.ErrCaptainsNotReady
	}

	now := time.Now().UTC()
	first := tourney.FirstDraftTier
	session.Status = tourney.DraftInProgress
	session.CurrentCategory = &first
	session.StartedAt = &now
	if err := s.drafts.UpdateSessionTx(ctx, tx, session); err != nil {
		return fmt.Errorf("failed to update draft session: %w", err)
	}

	if err := s.tournaments.UpdateTournamentStatusTx(ctx, tx, tournamentID.String(), tourney.StatusDraftInProgress); err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logEvent(ctx, session.ID, tourney.EventDraftStarted, actingUserID, nil, nil)
	s.hub.Publish(realtime.Event{
		Table:        "draft_sessions",
		Action:       realtime.ActionUpdate,
		TournamentID: tournamentID,
		Payload:      session,
	})
	return nil
}

// SubmitPick appends a draft pick for the team whose turn it is. All
// preconditions are re-checked against freshly read state inside one
// transaction; the unique indexes on (session, pick_number) and
// (session, user) reject the loser of any race at write time.
func (s *DraftService) SubmitPick(ctx context.Context, sessionID, teamID, pickedUserID, actingUserID uuid.UUID) (*tourney.DraftPick, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	session, err := s.drafts.GetSessionTx(ctx, tx, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get draft session: %w", err)
	}
	if session.Status != tourney.DraftInProgress || session.CurrentCategory == nil {
		return nil, tourney.ErrSessionNotActive
	}
	category := *session.CurrentCategory

	tournament, err := s.tournaments.GetTournamentTx(ctx, tx, session.TournamentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	teams, err := s.tournaments.GetTeamsTx(ctx, tx, session.TournamentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}

	pickCount, err := s.drafts.CountPicksTx(ctx, tx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count picks: %w", err)
	}

	team, err := tourney.NextPicker(teams, pickCount)
	if err != nil {
		return nil, err
	}
	if team.ID != teamID {
		return nil, tourney.ErrNotYourTurn
	}
	if actingUserID != team.CaptainID && actingUserID != tournament.AdminID {
		return nil, tourney.ErrNotYourTeam
	}

	available, err := s.drafts.AvailablePlayersTx(ctx, tx, session.TournamentID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load available players: %w", err)
	}
	found := false
	for _, id := range available {
		if id == pickedUserID {
			found = true
			break
		}
	}
	if !found {
		return nil, tourney.ErrPlayerUnavailable
	}

	pick := &tourney.DraftPick{
		ID:             uuid.New(),
		DraftSessionID: session.ID,
		TeamID:         team.ID,
		UserID:         pickedUserID,
		PickNumber:     pickCount,
		RoundNumber:    pickCount/len(teams) + 1,
		Category:       category,
	}
	if err := s.drafts.InsertPickTx(ctx, tx, pick); err != nil {
		if store.IsUniqueViolation(err) {
			// Lost a race: another submission claimed this pick number or
			// this player between our read and our write.
			if strings.Contains(err.Error(), "user_id") {
				return nil, tourney.ErrPlayerUnavailable
			}
			return nil, tourney.ErrNotYourTurn
		}
		return nil, fmt.Errorf("failed to insert pick: %w", err)
	}

	member := &tourney.TeamMember{
		TeamID:              team.ID,
		UserID:              pickedUserID,
		IsCaptain:           false,
		CategoryWhenDrafted: category,
		DraftRound:          pick.RoundNumber,
		DraftPickNumber:     pick.PickNumber,
	}
	if err := s.tournaments.CreateTeamMember(ctx, tx, member); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, tourney.ErrPlayerUnavailable
		}
		return nil, fmt.Errorf("failed to insert team member: %w", err)
	}

	draftDone := false
	tierAdvanced := false
	if len(available) == 1 {
		// Pool for the current tier is now empty. Advance past any tier
		// nobody registered in.
		next, ok := tourney.NextTier(category)
		for ok {
			pool, err := s.drafts.AvailablePlayersTx(ctx, tx, session.TournamentID, next)
			if err != nil {
				return nil, fmt.Errorf("failed to load next tier pool: %w", err)
			}
			if len(pool) > 0 {
				break
			}
			next, ok = tourney.NextTier(next)
		}
		if ok {
			session.CurrentCategory = &next
			tierAdvanced = true
		} else {
			now := time.Now().UTC()
			session.Status = tourney.DraftCompleted
			session.CurrentCategory = nil
			session.CompletedAt = &now
			draftDone = true
		}
		if err := s.drafts.UpdateSessionTx(ctx, tx, session); err != nil {
			return nil, fmt.Errorf("failed to update draft session: %w", err)
		}
		if draftDone {
			if err := s.tournaments.UpdateTournamentStatusTx(ctx, tx, session.TournamentID.String(), tourney.StatusTeamsFinalized); err != nil {
				return nil, fmt.Errorf("failed to update tournament status: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logEvent(ctx, session.ID, tourney.EventPickMade, actingUserID, &team.ID,
		utils.Ptr(fmt.Sprintf("pick %d: %s", pick.PickNumber, pickedUserID)))
	if tierAdvanced {
		s.logEvent(ctx, session.ID, tourney.EventTierAdvanced, actingUserID, nil,
			utils.Ptr(string(*session.CurrentCategory)))
	}
	if draftDone {
		s.logEvent(ctx, session.ID, tourney.EventDraftCompleted, actingUserID, nil, nil)
	}

	s.hub.Publish(realtime.Event{
		Table:        "draft_picks",
		Action:       realtime.ActionInsert,
		TournamentID: session.TournamentID,
		Payload:      pick,
	})
	if tierAdvanced || draftDone {
		s.hub.Publish(realtime.Event{
			Table:        "draft_sessions",
			Action:       realtime.ActionUpdate,
			TournamentID: session.TournamentID,
			Payload:      session,
		})
	}

	return pick, nil
}

func (s *DraftService) Timeline(ctx context.Context, sessionID string) ([]tourney.DraftEvent, error) {
	return s.drafts.ListEvents(ctx, sessionID)
}

// logEvent appends to the draft audit log. Failures are logged and
// swallowed; the log is not authoritative state.
func (s *DraftService) logEvent(ctx context.Context, sessionID uuid.UUID, eventType string, actorID uuid.UUID, teamID *uuid.UUID, detail *string) {
	event := &tourney.DraftEvent{
		ID:             uuid.New(),
		DraftSessionID: sessionID,
		EventType:      eventType,
		ActorID:        actorID,
		TeamID:         teamID,
		Detail:         detail,
	}
	if err := s.drafts.InsertEvent(ctx, event); err != nil {
		slog.Warn("failed to log draft event", "event", eventType, "error", err)
	}
}
