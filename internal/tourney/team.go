package tourney

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	CaptainID    uuid.UUID `db:"captain_id" json:"captain_id"`
	Name         string    `db:"name" json:"name"`
	DraftOrder   int       `db:"draft_order" json:"draft_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type TeamMember struct {
	TeamID              uuid.UUID `db:"team_id" json:"team_id"`
	UserID              uuid.UUID `db:"user_id" json:"user_id"`
	IsCaptain           bool      `db:"is_captain" json:"is_captain"`
	CategoryWhenDrafted Tier      `db:"category_when_drafted" json:"category_when_drafted"`
	DraftRound          int       `db:"draft_round" json:"draft_round"`
	DraftPickNumber     int       `db:"draft_pick_number" json:"draft_pick_number"`
}
