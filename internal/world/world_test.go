package world

import (
	"sync"
	"testing"

	"github.com/DoyleJ11/royale-backend/internal/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionUnknownUntilReported(t *testing.T) {
	w := New(0)
	w.Spawn("p1")

	_, ok := w.Position("p1")
	assert.False(t, ok)
	assert.False(t, w.SetPosition("ghost", ring.Point{X: 1}))

	require.True(t, w.SetPosition("p1", ring.Point{X: 3, Z: 4}))
	p, ok := w.Position("p1")
	require.True(t, ok)
	assert.Equal(t, ring.Point{X: 3, Z: 4}, p)
}

func TestDamageAndRestore(t *testing.T) {
	w := New(0)
	w.Spawn("p1")

	h, ok := w.Health("p1")
	require.True(t, ok)
	assert.Equal(t, DefaultMaxHealth, h)

	w.ApplyDamage("p1", 7.5)
	w.ApplyDamage("p1", -3)
	h, _ = w.Health("p1")
	assert.Equal(t, 12.5, h)
	assert.False(t, w.IsEliminated("p1"))

	w.ApplyDamage("p1", 100)
	h, _ = w.Health("p1")
	assert.Zero(t, h, "health never goes negative")
	assert.True(t, w.IsEliminated("p1"))

	require.True(t, w.Restore("p1"))
	assert.False(t, w.IsEliminated("p1"))
	assert.False(t, w.Restore("ghost"))
	assert.False(t, w.IsEliminated("ghost"))

	w.Remove("p1")
	_, ok = w.Health("p1")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	w := New(1000)
	w.Spawn("p1")

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w.SetPosition("p1", ring.Point{X: float64(i)})
		}()
		go func() {
			defer wg.Done()
			w.ApplyDamage("p1", 1)
			w.Position("p1")
		}()
	}
	wg.Wait()

	h, _ := w.Health("p1")
	assert.Equal(t, 990.0, h)
	assert.Len(t, w.Healths(), 1)
}
