package tourney

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	StatusDraft                  TournamentStatus = "draft"
	StatusRegistrationOpen       TournamentStatus = "registration_open"
	StatusRegistrationClosed     TournamentStatus = "registration_closed"
	StatusCategorizing           TournamentStatus = "categorizing"
	StatusAwaitingCaptainRanking TournamentStatus = "awaiting_captain_ranking"
	StatusDraftReady             TournamentStatus = "draft_ready"
	StatusDraftInProgress        TournamentStatus = "draft_in_progress"
	StatusTeamsFinalized         TournamentStatus = "teams_finalized"
	StatusInProgress             TournamentStatus = "in_progress"
	StatusCompleted              TournamentStatus = "completed"
)

// The admin-driven lifecycle is strictly sequential; each status has
// exactly one successor and backward transitions are not supported.
var statusOrder = []TournamentStatus{
	StatusDraft,
	StatusRegistrationOpen,
	StatusRegistrationClosed,
	StatusCategorizing,
	StatusAwaitingCaptainRanking,
	StatusDraftReady,
	StatusDraftInProgress,
	StatusTeamsFinalized,
	StatusInProgress,
	StatusCompleted,
}

// NextStatus returns the successor of the given lifecycle status, or
// false when the status is terminal or unknown.
func NextStatus(cur TournamentStatus) (TournamentStatus, bool) {
	for i, s := range statusOrder {
		if s == cur && i+1 < len(statusOrder) {
			return statusOrder[i+1], true
		}
	}
	return "", false
}

// TeamSize is fixed for the round-robin-with-grand-final format.
const TeamSize = 3

// MinMapPool is the smallest map pool a tournament may open registration with.
const MinMapPool = 3

type Tournament struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	AdminID     uuid.UUID        `db:"admin_id" json:"admin_id"`
	Name        string           `db:"name" json:"name"`
	Description *string          `db:"description" json:"description"`
	Status      TournamentStatus `db:"status" json:"status"`
	TeamSize    int              `db:"team_size" json:"team_size"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// DraftStarted reports whether the draft has begun, after which
// registrations and category assignments are frozen for non-admins.
func (t *Tournament) DraftStarted() bool {
	switch t.Status {
	case StatusDraftInProgress, StatusTeamsFinalized, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type GameMap struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  *string   `db:"description" json:"description"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
}
