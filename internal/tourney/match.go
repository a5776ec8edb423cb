package tourney

import (
	"time"

	"github.com/google/uuid"
)

type MatchPhase string

const (
	PhaseRoundRobin MatchPhase = "round_robin"
	PhaseSemifinal  MatchPhase = "semifinal"
	PhaseGrandFinal MatchPhase = "grandfinal"
)

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchScheduled  MatchStatus = "scheduled"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchDisputed   MatchStatus = "disputed"
	MatchCancelled  MatchStatus = "cancelled"
)

type Match struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	TournamentID uuid.UUID   `db:"tournament_id" json:"tournament_id"`
	Phase        MatchPhase  `db:"phase" json:"phase"`
	Round        int         `db:"round" json:"round"`
	MatchNumber  int         `db:"match_number" json:"match_number"`
	Team1ID      *uuid.UUID  `db:"team1_id" json:"team1_id"`
	Team2ID      *uuid.UUID  `db:"team2_id" json:"team2_id"`
	Team1Score   int         `db:"team1_score" json:"team1_score"`
	Team2Score   int         `db:"team2_score" json:"team2_score"`
	WinnerID     *uuid.UUID  `db:"winner_id" json:"winner_id"`
	Status       MatchStatus `db:"status" json:"status"`
	BestOf       int         `db:"best_of" json:"best_of"`
	ScheduledAt  *time.Time  `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// HasTeam reports whether the given team occupies either slot.
func (m *Match) HasTeam(teamID uuid.UUID) bool {
	if m.Team1ID != nil && *m.Team1ID == teamID {
		return true
	}
	return m.Team2ID != nil && *m.Team2ID == teamID
}

// Schedulable reports whether captains may still propose times for the
// match: unscheduled, or scheduled and being rescheduled.
func (m *Match) Schedulable() bool {
	return m.Status == MatchPending || m.Status == MatchScheduled
}
