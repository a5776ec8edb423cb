package tourney

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() *Registration {
	return &Registration{
		DiscordUsername:     "player",
		InsightsURL:         "https://www.aoe2insights.com/user/1/",
		PreferredPosition:   PositionFlank,
		PreferredCivsFlank:  StringList{"Britons", "Mayans"},
		PreferredCivsPocket: StringList{"Franks", "Huns"},
		PreferredMaps:       StringList{"Arabia", "Arena", "Nomad"},
	}
}

var testPool = []string{"Arabia", "Arena", "Nomad", "Black Forest"}

func TestRegistrationValidate(t *testing.T) {
	require.NoError(t, validRegistration().Validate(testPool))
}

func TestRegistrationValidate_Position(t *testing.T) {
	reg := validRegistration()
	reg.PreferredPosition = "goalkeeper"

	err := reg.Validate(testPool)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "preferred_position", validation.Field)
}

func TestRegistrationValidate_CivCounts(t *testing.T) {
	reg := validRegistration()
	reg.PreferredCivsFlank = StringList{"Britons"}
	err := reg.Validate(testPool)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "preferred_civs_flank", validation.Field)

	reg = validRegistration()
	reg.PreferredCivsPocket = StringList{"Franks", "Huns", "Persians"}
	err = reg.Validate(testPool)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "preferred_civs_pocket", validation.Field)
}

func TestRegistrationValidate_Maps(t *testing.T) {
	reg := validRegistration()
	reg.PreferredMaps = StringList{"Arabia", "Arena"}
	err := reg.Validate(testPool)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "preferred_maps", validation.Field)

	reg = validRegistration()
	reg.PreferredMaps = StringList{"Arabia", "Arena", "Atlantis"}
	err = reg.Validate(testPool)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "preferred_maps", validation.Field)
	assert.Contains(t, validation.Reason, "Atlantis")
}

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"Arabia", "Arena"}
	value, err := list.Value()
	require.NoError(t, err)

	var scanned StringList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, list, scanned)

	var empty StringList
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)
}
