package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ageleague/tourney-hub/internal/realtime"
	"github.com/ageleague/tourney-hub/internal/store"
	"github.com/ageleague/tourney-hub/internal/tourney"
	"github.com/ageleague/tourney-hub/internal/utils"
)

type TournamentService struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	drafts      *store.DraftStore
	hub         *realtime.Hub
}

func NewTournamentService(db *sqlx.DB, tournaments *store.TournamentStore, drafts *store.DraftStore, hub *realtime.Hub) *TournamentService {
	return &TournamentService{db: db, tournaments: tournaments, drafts: drafts, hub: hub}
}

// Create sets up a tournament in draft status with its map pool.
func (s *TournamentService) Create(ctx context.Context, actingUserID uuid.UUID, name, description string, mapIDs []uuid.UUID) (*tourney.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &tourney.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(mapIDs) < tourney.MinMapPool {
		return nil, &tourney.ValidationError{Field: "maps", Reason: fmt.Sprintf("select at least %d maps", tourney.MinMapPool)}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament := &tourney.Tournament{
		ID:          uuid.New(),
		AdminID:     actingUserID,
		Name:        name,
		Description: utils.StringOrNil(description),
		Status:      tourney.StatusDraft,
		TeamSize:    tourney.TeamSize,
	}
	if err := s.tournaments.CreateTournament(ctx, tx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	if err := s.tournaments.AddTournamentMaps(ctx, tx, tournament.ID, mapIDs); err != nil {
		return nil, fmt.Errorf("failed to add tournament maps: %w", err)
	}

	return tournament, tx.Commit()
}

// AdvanceStatus moves the tournament to the next lifecycle status. Only
// the immediate successor is allowed; entering draft_ready also creates
// the draft session. draft_in_progress and teams_finalized are owned by
// the draft service and cannot be entered here.
func (s *TournamentService) AdvanceStatus(ctx context.Context, tournamentID, actingUserID uuid.UUID, next tourney.TournamentStatus) (*tourney.Tournament, error) {
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

	expected, ok := tourney.NextStatus(tournament.Status)
	if !ok || expected != next {
		return nil, tourney.ErrInvalidTransition
	}
	switch next {
	case tourney.StatusDraftInProgress, tourney.StatusTeamsFinalized:
		return nil, tourney.ErrInvalidTransition
	}

	if err := s.tournaments.UpdateTournamentStatusTx(ctx, tx, tournamentID.String(), next); err != nil {
		return nil, fmt.Errorf("failed to update tournament status: %w", err)
	}
	tournament.Status = next

	if next == tourney.StatusDraftReady {
		session := &tourney.DraftSession{
			ID:               uuid.New(),
			TournamentID:     tournamentID,
			Status:           tourney.DraftWaitingForCaptains,
			PickTimerSeconds: 120,
		}
		if err := s.drafts.CreateSession(ctx, tx, session); err != nil {
			return nil, fmt.Errorf("failed to create draft session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.hub.Publish(realtime.Event{
		Table:        "tournaments",
		Action:       realtime.ActionUpdate,
		TournamentID: tournamentID,
		Payload:      tournament,
	})
	return tournament, nil
}

// Register validates and stores a player's registration while the
// tournament is open. Validation failures never touch the database.
func (s *TournamentService) Register(ctx context.Context, tournamentID, userID uuid.UUID, reg *tourney.Registration) (*tourney.Registration, error) {
	tournament, err := s.tournaments.GetTournament(ctx, tournamentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament.Status != tourney.StatusRegistrationOpen {
		return nil, tourney.ErrRegistrationClosed
	}

	poolMaps, err := s.tournaments.GetTournamentMapNames(ctx, tournamentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament maps: %w", err)
	}

	reg.ID = uuid.New()
	reg.TournamentID = tournamentID
	reg.UserID = userID
	if err := reg.Validate(poolMaps); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.tournaments.CreateRegistration(ctx, tx, reg); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, tourney.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.hub.Publish(realtime.Event{
		Table:        "registrations",
		Action:       realtime.ActionInsert,
		TournamentID: tournamentID,
		Payload:      reg,
	})
	return reg, nil
}

// Withdraw removes a registration. Once the draft has started the roster
// is frozen and only the admin may remove players.
func (s *TournamentService) Withdraw(ctx context.Context, tournamentID, userID, actingUserID uuid.UUID) error {
	tournament, err := s.tournaments.GetTournament(ctx, tournamentID.String())
	if err != nil {
		return fmt.Errorf("failed to get tournament: %w", err)
	}
	isAdmin := actingUserID == tournament.AdminID
	if userID != actingUserID && !isAdmin {
		return tourney.ErrNotAdmin
	}
	if tournament.DraftStarted() && !isAdmin {
		return tourney.ErrRegistrationClosed
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.tournaments.DeleteRegistration(ctx, tx, tournamentID, userID); err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.hub.Publish(realtime.Event{
		Table:        "registrations",
		Action:       realtime.ActionDelete,
		TournamentID: tournamentID,
	})
	return nil
}

// AssignCategory places a registered player into a tier. Admin-only,
// before the draft starts.
func (s *TournamentService) AssignCategory(ctx context.Context, tournamentID, actingUserID, userID uuid.UUID, tier tourney.Tier) error {
	if !tourney.ValidTier(tier) {
		return &tourney.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown tier %q", tier)}
	}

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
	if tournament.DraftStarted() {
		return tourney.ErrInvalidTransition
	}

	category := &tourney.PlayerCategory{
		TournamentID: tournamentID,
		UserID:       userID,
		Category:     tier,
		AssignedBy:   actingUserID,
	}
	if err := s.tournaments.UpsertCategory(ctx, tx, category); err != nil {
		return fmt.Errorf("failed to assign category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.hub.Publish(realtime.Event{
		Table:        "player_categories",
		Action:       realtime.ActionUpdate,
		TournamentID: tournamentID,
		Payload:      category,
	})
	return nil
}

func (s *TournamentService) RemoveCategory(ctx context.Context, tournamentID, actingUserID, userID uuid.UUID) error {
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
	if tournament.DraftStarted() {
		return tourney.ErrInvalidTransition
	}

	if err := s.tournaments.DeleteCategory(ctx, tx, tournamentID, userID); err != nil {
		return fmt.Errorf("failed to remove category: %w", err)
	}
	return tx.Commit()
}

func (s *TournamentService) CategoryStats(ctx context.Context, tournamentID string) (*tourney.CategoryStats, error) {
	return s.tournaments.GetCategoryStats(ctx, tournamentID)
}

// RankCaptains creates one team per S-Tier captain in the given order;
// position in the list becomes the team's draft order. Each captain is
// inserted as their team's first member.
func (s *TournamentService) RankCaptains(ctx context.Context, tournamentID, actingUserID uuid.UUID, orderedCaptainIDs []uuid.UUID) ([]tourney.Team, error) {
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
	if tournament.Status != tourney.StatusAwaitingCaptainRanking {
		return nil, tourney.ErrInvalidTransition
	}

	existing, err := s.tournaments.GetTeamsTx(ctx, tx, tournamentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("teams already created for this tournament")
	}

	teams := make([]tourney.Team, 0, len(orderedCaptainIDs))
	for i, captainID := range orderedCaptainIDs {
		category, err := s.tournaments.GetCategoryTx(ctx, tx, tournamentID.String(), captainID.String())
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("captain %s is not categorized", captainID)
			}
			return nil, fmt.Errorf("failed to get captain category: %w", err)
		}
		if category.Category != tourney.TierS {
			return nil, fmt.Errorf("captain %s does not hold S-Tier", captainID)
		}

		name := fmt.Sprintf("Team %d", i+1)
		if reg, err := s.tournaments.GetRegistrationTx(ctx, tx, tournamentID.String(), captainID.String()); err == nil {
			name = "Team " + reg.DiscordUsername
		}

		team := tourney.Team{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			CaptainID:    captainID,
			Name:         name,
			DraftOrder:   i + 1,
		}
		if err := s.tournaments.CreateTeam(ctx, tx, &team); err != nil {
			return nil, fmt.Errorf("failed to create team: %w", err)
		}

		member := tourney.TeamMember{
			TeamID:              team.ID,
			UserID:              captainID,
			IsCaptain:           true,
			CategoryWhenDrafted: tourney.TierS,
			DraftRound:          0,
			DraftPickNumber:     0,
		}
		if err := s.tournaments.CreateTeamMember(ctx, tx, &member); err != nil {
			return nil, fmt.Errorf("failed to create captain member: %w", err)
		}
		teams = append(teams, team)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.hub.Publish(realtime.Event{
		Table:        "teams",
		Action:       realtime.ActionInsert,
		TournamentID: tournamentID,
	})
	return teams, nil
}
