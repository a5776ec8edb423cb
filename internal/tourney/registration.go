package tourney

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Position string

const (
	PositionFlank    Position = "flank"
	PositionPocket   Position = "pocket"
	PositionFlexible Position = "flexible"
)

// StringList stores a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

type Registration struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	TournamentID        uuid.UUID  `db:"tournament_id" json:"tournament_id"`
	UserID              uuid.UUID  `db:"user_id" json:"user_id"`
	DiscordUsername     string     `db:"discord_username" json:"discord_username"`
	DiscordAvatarURL    *string    `db:"discord_avatar_url" json:"discord_avatar_url"`
	InsightsURL         string     `db:"insights_url" json:"insights_url"`
	PreferredPosition   Position   `db:"preferred_position" json:"preferred_position"`
	PreferredCivsFlank  StringList `db:"preferred_civs_flank" json:"preferred_civs_flank"`
	PreferredCivsPocket StringList `db:"preferred_civs_pocket" json:"preferred_civs_pocket"`
	PreferredMaps       StringList `db:"preferred_maps" json:"preferred_maps"`
	Notes               *string    `db:"notes" json:"notes"`
	RegisteredAt        time.Time  `db:"registered_at" json:"registered_at"`
}

const (
	civsPerRole   = 2
	mapsPerPlayer = 3
)

// ValidationError is a malformed-input rejection, surfaced verbatim and
// never persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks a registration's preference data against the
// tournament's map pool before anything is written.
func (r *Registration) Validate(poolMaps []string) error {
	switch r.PreferredPosition {
	case PositionFlank, PositionPocket, PositionFlexible:
	default:
		return &ValidationError{Field: "preferred_position", Reason: "must be flank, pocket or flexible"}
	}
	if len(r.PreferredCivsFlank) != civsPerRole {
		return &ValidationError{Field: "preferred_civs_flank", Reason: fmt.Sprintf("select exactly %d civilizations", civsPerRole)}
	}
	if len(r.PreferredCivsPocket) != civsPerRole {
		return &ValidationError{Field: "preferred_civs_pocket", Reason: fmt.Sprintf("select exactly %d civilizations", civsPerRole)}
	}
	if len(r.PreferredMaps) != mapsPerPlayer {
		return &ValidationError{Field: "preferred_maps", Reason: fmt.Sprintf("select exactly %d maps", mapsPerPlayer)}
	}

	pool := make(map[string]bool, len(poolMaps))
	for _, m := range poolMaps {
		pool[m] = true
	}
	for _, m := range r.PreferredMaps {
		if !pool[m] {
			return &ValidationError{Field: "preferred_maps", Reason: fmt.Sprintf("%q is not in the tournament map pool", m)}
		}
	}
	return nil
}
