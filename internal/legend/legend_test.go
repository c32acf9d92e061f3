package legend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, id := range IDs() {
		l, err := Lookup(id)
		require.NoError(t, err)
		assert.Equal(t, id, l.ID())
		assert.Positive(t, l.Cooldown())
	}

	_, err := Lookup("octane")
	assert.ErrorIs(t, err, ErrUnknownLegend)
}

func TestCooldowns_Use(t *testing.T) {
	c := NewCooldowns()
	l, err := Lookup("wraith")
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cd, err := c.Use("p1", l, now)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Second, cd)

	left, err := c.Use("p1", l, now.Add(10*time.Second))
	assert.ErrorIs(t, err, ErrOnCooldown)
	assert.Equal(t, 15*time.Second, left)

	_, err = c.Use("p2", l, now.Add(10*time.Second))
	assert.NoError(t, err, "cooldowns are per player")

	_, err = c.Use("p1", l, now.Add(25*time.Second))
	assert.NoError(t, err)

	c.Reset("p1")
	_, err = c.Use("p1", l, now.Add(26*time.Second))
	assert.NoError(t, err)
	_, err = c.Use("p2", l, now.Add(26*time.Second))
	assert.ErrorIs(t, err, ErrOnCooldown, "reset is per player")
}
