package tourney

import (
	"time"

	"github.com/google/uuid"
)

type DraftStatus string

const (
	DraftWaitingForCaptains DraftStatus = "waiting_for_captains"
	DraftInProgress         DraftStatus = "in_progress"
	DraftCompleted          DraftStatus = "completed"
)

type DraftSession struct {
	ID               uuid.UUID   `db:"id" json:"id"`
	TournamentID     uuid.UUID   `db:"tournament_id" json:"tournament_id"`
	Status           DraftStatus `db:"status" json:"status"`
	CurrentCategory  *Tier       `db:"current_category" json:"current_category"`
	PickTimerSeconds int         `db:"pick_timer_seconds" json:"pick_timer_seconds"` // advisory, not enforced
	StartedAt        *time.Time  `db:"started_at" json:"started_at"`
	CompletedAt      *time.Time  `db:"completed_at" json:"completed_at"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
}

type DraftPick struct {
	ID             uuid.UUID `db:"id" json:"id"`
	DraftSessionID uuid.UUID `db:"draft_session_id" json:"draft_session_id"`
	TeamID         uuid.UUID `db:"team_id" json:"team_id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	PickNumber     int       `db:"pick_number" json:"pick_number"`
	RoundNumber    int       `db:"round_number" json:"round_number"`
	Category       Tier      `db:"category" json:"category"`
	PickedAt       time.Time `db:"picked_at" json:"picked_at"`
}

// DraftEvent is an append-only audit row. Writing one is best-effort and
// never fails the operation that produced it.
type DraftEvent struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	DraftSessionID uuid.UUID  `db:"draft_session_id" json:"draft_session_id"`
	EventType      string     `db:"event_type" json:"event_type"`
	ActorID        uuid.UUID  `db:"actor_id" json:"actor_id"`
	TeamID         *uuid.UUID `db:"team_id" json:"team_id"`
	Detail         *string    `db:"detail" json:"detail"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

const (
	EventDraftStarted   = "draft_started"
	EventPickMade       = "pick_made"
	EventTierAdvanced   = "tier_advanced"
	EventDraftCompleted = "draft_completed"
)

// NextPicker returns the team that makes pick pickNumber (0-based) in a
// snake draft. Teams must be sorted ascending by draft order; odd rounds
// run in reverse, producing 1..N, N..1, 1..N and so on.
func NextPicker(teams []Team, pickNumber int) (*Team, error) {
	n := len(teams)
	if n == 0 {
		return nil, ErrNoTeams
	}
	if pickNumber < 0 {
		return nil, ErrInvalidPick
	}

	roundIndex := pickNumber / n
	position := pickNumber % n
	if roundIndex%2 == 1 {
		position = n - 1 - position
	}
	return &teams[position], nil
}
