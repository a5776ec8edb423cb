package tourney

import "github.com/google/uuid"

type Tier string

const (
	TierS    Tier = "S-Tier"
	TierA    Tier = "A-Tier"
	TierB    Tier = "B-Tier"
	TierMisc Tier = "Misc"
)

// draftTierOrder is the order tiers are drafted in. S-Tier players are
// captains and never enter the pool.
var draftTierOrder = []Tier{TierA, TierB, TierMisc}

// FirstDraftTier is the tier a freshly started draft begins with.
const FirstDraftTier = TierA

// ValidTier reports whether t is one of the four assignable tiers.
func ValidTier(t Tier) bool {
	switch t {
	case TierS, TierA, TierB, TierMisc:
		return true
	}
	return false
}

// NextTier returns the tier drafted after cur, or false when cur is the
// last drafted tier and the draft is complete.
func NextTier(cur Tier) (Tier, bool) {
	for i, t := range draftTierOrder {
		if t == cur && i+1 < len(draftTierOrder) {
			return draftTierOrder[i+1], true
		}
	}
	return "", false
}

type PlayerCategory struct {
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	Category     Tier      `db:"category" json:"category"`
	AssignedBy   uuid.UUID `db:"assigned_by" json:"assigned_by"`
}

// CategoryStats counts categorized players per tier.
type CategoryStats struct {
	STier int `db:"s_tier" json:"s_tier"`
	ATier int `db:"a_tier" json:"a_tier"`
	BTier int `db:"b_tier" json:"b_tier"`
	Misc  int `db:"misc" json:"misc"`
	Total int `db:"total" json:"total"`
}
