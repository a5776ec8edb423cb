package tourney

import (
	"time"

	"github.com/google/uuid"
)

type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalApproved  ProposalStatus = "approved"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalCountered ProposalStatus = "countered"
	ProposalExpired   ProposalStatus = "expired"
)

type ScheduleProposal struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	MatchID       uuid.UUID      `db:"match_id" json:"match_id"`
	ProposedBy    uuid.UUID      `db:"proposed_by" json:"proposed_by"`
	ProposedTime  time.Time      `db:"proposed_time" json:"proposed_time"`
	Status        ProposalStatus `db:"status" json:"status"`
	ResponseNotes *string        `db:"response_notes" json:"response_notes"`
	RespondedBy   *uuid.UUID     `db:"responded_by" json:"responded_by"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
