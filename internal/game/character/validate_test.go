package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkrasner/grimoire/internal/game/character"
)

func TestValidateBase_Valid(t *testing.T) {
	require.NoError(t, character.ValidateBase(baseFixture()))
}

func TestValidateBase_AbilityBounds(t *testing.T) {
	b := baseFixture()
	b.Strength = 0
	err := character.ValidateBase(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strength")

	b = baseFixture()
	b.Charisma = 21
	err = character.ValidateBase(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charisma")
}

func TestValidateBase_PoolBounds(t *testing.T) {
	b := baseFixture()
	b.Health = 0
	require.Error(t, character.ValidateBase(b))

	b = baseFixture()
	b.Mana = -5
	require.Error(t, character.ValidateBase(b))

	// Pools have no upper bound.
	b = baseFixture()
	b.Health = 10000
	require.NoError(t, character.ValidateBase(b))
}

func TestValidateBase_ReportsAllViolations(t *testing.T) {
	b := character.BaseAttributes{} // everything zero
	err := character.ValidateBase(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health")
	assert.Contains(t, err.Error(), "stamina")
	assert.Contains(t, err.Error(), "mana")
	assert.Contains(t, err.Error(), "strength")
	assert.Contains(t, err.Error(), "wisdom")
}

func TestValidSlot(t *testing.T) {
	for _, s := range character.Slots {
		assert.True(t, character.ValidSlot(s), string(s))
	}
	assert.False(t, character.ValidSlot("belt"))
}
