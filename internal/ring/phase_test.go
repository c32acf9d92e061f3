package ring

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factor(f float64) *float64 { return &f }

func TestNewPhaseTable_Validation(t *testing.T) {
	cases := []struct {
		name    string
		phases  []PhaseConfig
		wantErr bool
	}{
		{name: "default table", phases: DefaultPhases()},
		{name: "empty", phases: nil, wantErr: true},
		{name: "negative wait", phases: []PhaseConfig{{Phase: 1, WaitSeconds: -1}}, wantErr: true},
		{name: "negative shrink", phases: []PhaseConfig{{Phase: 1, ShrinkSeconds: -1}}, wantErr: true},
		{name: "negative damage", phases: []PhaseConfig{{Phase: 1, DamagePerSecond: -0.5}}, wantErr: true},
		{
			name: "end radius grows",
			phases: []PhaseConfig{
				{Phase: 1, EndRadius: radius(100)},
				{Phase: 2, EndRadius: radius(150)},
			},
			wantErr: true,
		},
		{
			name: "phase numbers out of order",
			phases: []PhaseConfig{
				{Phase: 2},
				{Phase: 1},
			},
			wantErr: true,
		},
		{name: "factor above one", phases: []PhaseConfig{{Phase: 1, ShrinkFactor: factor(1.5)}}, wantErr: true},
		{name: "zero durations allowed", phases: []PhaseConfig{{Phase: 1}, {Phase: 2}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPhaseTable(tc.phases)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewPhaseTable_CollectsEveryProblem(t *testing.T) {
	_, err := NewPhaseTable([]PhaseConfig{{Phase: 1, WaitSeconds: -1, ShrinkSeconds: -1, DamagePerSecond: -1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative wait")
	assert.Contains(t, err.Error(), "negative shrink")
	assert.Contains(t, err.Error(), "negative damage")
}

func TestTargetRadius(t *testing.T) {
	cases := []struct {
		name    string
		cfg     PhaseConfig
		current float64
		want    float64
	}{
		{name: "explicit end radius", cfg: PhaseConfig{Phase: 1, EndRadius: radius(40)}, current: 100, want: 40},
		{name: "explicit factor", cfg: PhaseConfig{Phase: 1, ShrinkFactor: factor(0.25)}, current: 100, want: 25},
		{name: "phase factor table", cfg: PhaseConfig{Phase: 3}, current: 100, want: 50},
		{name: "last phase closes", cfg: PhaseConfig{Phase: 7}, current: 100, want: 0},
		{name: "unknown phase falls back", cfg: PhaseConfig{Phase: 12}, current: 100, want: 80},
		{name: "never grows", cfg: PhaseConfig{Phase: 1, EndRadius: radius(500)}, current: 100, want: 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.cfg.TargetRadius(tc.current), 1e-9)
		})
	}
}

func TestInside_BoundaryIsInclusive(t *testing.T) {
	center := Point{}
	assert.True(t, Inside(Point{X: 3, Z: 4}, center, 5))
	assert.True(t, Inside(Point{X: -5, Z: 0}, center, 5))
	assert.False(t, Inside(Point{X: 3, Z: 4.0001}, center, 5))
}

func TestNextCenter_StaysWithinDrift(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cur := Point{X: 10, Z: -20}
	for range 200 {
		c, ok := nextCenter(rng, cur, 100, 50, Bounds{})
		require.True(t, ok)
		assert.LessOrEqual(t, c.Distance(cur), 30.0)
	}
}

func TestNextCenter_FallsBackWhenEveryCandidateIsOffMap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cur := Point{X: 0, Z: 0}
	farAway := Bounds{MinX: 1000, MinZ: 1000, MaxX: 2000, MaxZ: 2000}

	c, ok := nextCenter(rng, cur, 100, 10, farAway)
	assert.False(t, ok)
	assert.Equal(t, cur, c)
}

func TestBounds_CircleOutside(t *testing.T) {
	b := SquareBounds(Point{}, 100)
	assert.False(t, b.CircleOutside(Point{X: 50}, 1))
	assert.False(t, b.CircleOutside(Point{X: 150}, 60), "circle overlaps the edge")
	assert.True(t, b.CircleOutside(Point{X: 150}, 40))
	assert.False(t, Bounds{}.CircleOutside(Point{X: 1e9}, 0), "zero bounds never reject")
}

func TestLoadPhaseTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"phase": 1, "wait_seconds": 30, "shrink_seconds": 20, "damage_per_second": 0.5, "end_radius": 300},
		{"phase": 2, "wait_seconds": 20, "shrink_seconds": 20, "damage_per_second": 1, "shrink_factor": 0.5}
	]`), 0o600))

	table, err := LoadPhaseTable(path)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	p, ok := table.Phase(1)
	require.True(t, ok)
	assert.InDelta(t, 150.0, p.TargetRadius(300), 1e-9)

	_, ok = table.Phase(2)
	assert.False(t, ok)
}
