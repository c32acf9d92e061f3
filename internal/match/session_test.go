package match

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/royale-backend/internal/engine"
	"github.com/DoyleJ11/royale-backend/internal/legend"
	"github.com/DoyleJ11/royale-backend/internal/ring"
	"github.com/DoyleJ11/royale-backend/internal/roster"
	"github.com/DoyleJ11/royale-backend/internal/scheduler"
	"github.com/DoyleJ11/royale-backend/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const wait = 200 * time.Millisecond

func ptr(f float64) *float64 { return &f }

type statsRecorder struct {
	mu  sync.Mutex
	got []Summary
}

func (r *statsRecorder) Record(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, s)
}

func (r *statsRecorder) all() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Summary(nil), r.got...)
}

type harness struct {
	t     *testing.T
	s     *Session
	sched *scheduler.Scheduler
	clock *scheduler.ManualClock
	world *world.World
	stats *statsRecorder
}

// slowRing waits a minute with 5 damage per second, so a player outside
// dies on the fourth damage tick.
var slowRing = []ring.PhaseConfig{
	{Phase: 1, WaitSeconds: 60, ShrinkSeconds: 60, DamagePerSecond: 5, EndRadius: ptr(50)},
}

func duoSettings() engine.Settings {
	return engine.Settings{MinPlayers: 2, MaxPlayers: 2, TeamSize: 1}
}

func newHarness(t *testing.T, phases []ring.PhaseConfig, settings engine.Settings) *harness {
	t.Helper()
	clock := scheduler.NewManualClock(t0)
	sched := scheduler.New(clock, time.Second, nil)
	w := world.New(0)
	stats := &statsRecorder{}

	s, err := NewSession(context.Background(), "m1", settings, Deps{
		Table:          ring.MustPhaseTable(phases),
		Arena:          Arena{Radius: 100},
		Vitals:         w,
		Scheduler:      sched,
		TickInterval:   time.Second,
		DamageInterval: time.Second,
		Stats:          stats,
		Rand:           rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &harness{t: t, s: s, sched: sched, clock: clock, world: w, stats: stats}
}

func (h *harness) ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	h.t.Cleanup(cancel)
	return ctx
}

func (h *harness) join(id string, at ring.Point, placed bool) roster.Player {
	h.t.Helper()
	p, err := h.s.Join(h.ctx(), id, "", "", "")
	require.NoError(h.t, err)
	if placed {
		require.True(h.t, h.s.ReportPosition(id, at))
	}
	return p
}

// tick advances the clock one second and fires due tasks.
func (h *harness) tick(n int) {
	for range n {
		h.sched.Fire(h.clock.Advance(time.Second))
	}
}

func (h *harness) view() View {
	h.t.Helper()
	v, err := h.s.State(h.ctx())
	require.NoError(h.t, err)
	return v
}

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func TestNewSession_ConfigurationErrors(t *testing.T) {
	deps := Deps{
		Table:     ring.MustPhaseTable(slowRing),
		Arena:     Arena{Radius: 100},
		Vitals:    world.New(0),
		Scheduler: scheduler.New(scheduler.NewManualClock(t0), time.Second, nil),
	}
	var cfgErr *engine.ConfigurationError

	_, err := NewSession(context.Background(), "bad", engine.Settings{MinPlayers: 4, MaxPlayers: 2, TeamSize: 0}, deps)
	require.True(t, errors.As(err, &cfgErr), "got %v", err)

	small := deps
	small.Arena.Radius = 10
	_, err = NewSession(context.Background(), "bad", duoSettings(), small)
	require.True(t, errors.As(err, &cfgErr), "arena smaller than an explicit end radius: %v", err)
}

func TestSession_Lifecycle(t *testing.T) {
	h := newHarness(t, slowRing, duoSettings())
	h.join("a", ring.Point{}, true)

	err := h.s.Start(h.ctx())
	require.ErrorIs(t, err, engine.ErrInvalidState)
	require.ErrorIs(t, err, engine.ErrNotEnoughPlayers)
	require.ErrorIs(t, h.s.Finish(h.ctx(), ""), engine.ErrInvalidState, "cannot finish while waiting")

	h.join("b", ring.Point{}, true)
	_, err = h.s.Join(h.ctx(), "c", "", "", "")
	require.ErrorIs(t, err, roster.ErrRosterFull)

	require.NoError(t, h.s.Start(h.ctx()))
	v := h.view()
	assert.Equal(t, engine.StateActive, v.Match.State)
	require.NotNil(t, v.Match.StartTime)
	require.NotNil(t, v.Status)
	assert.Equal(t, 2, v.Tasks)
	assert.Equal(t, 2, h.sched.Len())

	_, err = h.s.Join(h.ctx(), "c", "", "", "")
	require.ErrorIs(t, err, engine.ErrInvalidState)

	require.NoError(t, h.s.Finish(h.ctx(), ""))
	require.NoError(t, h.s.Finish(h.ctx(), "someone"), "finish is idempotent")
	require.ErrorIs(t, h.s.Start(h.ctx()), engine.ErrInvalidState)

	v = h.view()
	assert.Equal(t, engine.StateFinished, v.Match.State)
	assert.Empty(t, v.Match.WinnerTeamID)
	require.NotNil(t, v.Verdict)
	assert.Equal(t, engine.OutcomeDraw, v.Verdict.Kind)
	assert.Zero(t, h.sched.Len(), "finish cancels scheduled ticks")
	assert.Len(t, h.stats.all(), 1, "statistics recorded once")
}

func TestSession_RingDamageDecidesTwoTeamMatch(t *testing.T) {
	h := newHarness(t, slowRing, duoSettings())
	a := h.join("a", ring.Point{}, true)
	h.join("b", ring.Point{X: 500}, true)
	require.NoError(t, h.s.Start(h.ctx()))

	h.tick(3)
	v := h.view()
	assert.Equal(t, engine.StateActive, v.Match.State)
	hp, _ := h.world.Health("b")
	assert.InDelta(t, 5.0, hp, 1e-9)
	hp, _ = h.world.Health("a")
	assert.InDelta(t, world.DefaultMaxHealth, hp, 1e-9, "inside players take no damage")

	h.tick(1)
	v = h.view()
	assert.Equal(t, engine.StateFinished, v.Match.State)
	assert.Equal(t, a.TeamID, v.Match.WinnerTeamID)
	assert.Zero(t, h.sched.Len())

	got := h.stats.all()
	require.Len(t, got, 1)
	assert.Equal(t, engine.OutcomeTeamWin, got[0].Outcome)
	assert.Equal(t, a.TeamID, got[0].WinnerTeamID)
	for _, p := range got[0].Players {
		if p.ID == "b" {
			assert.Equal(t, 1, p.Deaths)
			assert.InDelta(t, 4.0, p.SurvivalSeconds, 1e-9)
		}
	}
}

func TestSession_LateDamageTickCatchesUp(t *testing.T) {
	h := newHarness(t, slowRing, duoSettings())
	h.join("a", ring.Point{}, true)
	h.join("b", ring.Point{X: 500}, true)
	require.NoError(t, h.s.Start(h.ctx()))

	// One fire after a three second stall.
	require.Equal(t, 2, h.sched.Fire(h.clock.Advance(3*time.Second)))
	h.view()
	hp, _ := h.world.Health("b")
	assert.InDelta(t, 5.0, hp, 1e-9)
}

func TestSession_SimultaneousEliminationIsDraw(t *testing.T) {
	h := newHarness(t, slowRing, duoSettings())
	h.join("a", ring.Point{X: -500}, true)
	h.join("b", ring.Point{X: 500}, true)
	require.NoError(t, h.s.Start(h.ctx()))

	h.tick(4)
	v := h.view()
	assert.Equal(t, engine.StateFinished, v.Match.State)
	assert.Empty(t, v.Match.WinnerTeamID)
	require.NotNil(t, v.Verdict)
	assert.Equal(t, engine.OutcomeDraw, v.Verdict.Kind)
	assert.Empty(t, v.Roster.AliveTeams())

	got := h.stats.all()
	require.Len(t, got, 1)
	assert.Equal(t, engine.OutcomeDraw, got[0].Outcome)
	require.Len(t, got[0].Teams, 2)
	for _, tr := range got[0].Teams {
		assert.Equal(t, 1, tr.Placement, "team %s", tr.Name)
	}
}

func TestSession_UnplacedPlayersAreSkipped(t *testing.T) {
	h := newHarness(t, slowRing, duoSettings())
	h.join("a", ring.Point{}, false)
	h.join("b", ring.Point{}, false)
	require.NoError(t, h.s.Start(h.ctx()))

	h.tick(10)
	v := h.view()
	assert.Equal(t, engine.StateActive, v.Match.State)
	assert.Len(t, v.Roster.AliveTeams(), 2)
}

func TestSession_StaleTicksAreDropped(t *testing.T) {
	h := newHarness(t, slowRing, duoSettings())
	h.join("a", ring.Point{X: -500}, true)
	h.join("b", ring.Point{X: 500}, true)
	require.NoError(t, h.s.Start(h.ctx()))
	started := h.view().Epoch

	require.NoError(t, h.s.Finish(h.ctx(), ""))
	before := h.view()
	assert.Greater(t, before.Epoch, started)

	// Ticks that were already queued when the match stopped.
	h.s.Inbox() <- damageTick{epoch: started, now: t0.Add(time.Second)}
	h.s.Inbox() <- timelineTick{epoch: started, now: t0.Add(2 * time.Second)}
	h.tick(5)

	after := h.view()
	assert.Equal(t, before.Version, after.Version)
	hp, _ := h.world.Health("a")
	assert.InDelta(t, world.DefaultMaxHealth, hp, 1e-9)
}

func TestSession_RingClosureForcesFinish(t *testing.T) {
	quick := []ring.PhaseConfig{
		{Phase: 1, WaitSeconds: 1, ShrinkSeconds: 1, DamagePerSecond: 0, EndRadius: ptr(0)},
	}
	h := newHarness(t, quick, duoSettings())
	h.join("a", ring.Point{}, false)
	h.join("b", ring.Point{}, false)
	require.NoError(t, h.s.Start(h.ctx()))

	h.tick(1)
	assert.Equal(t, engine.StateActive, h.view().Match.State)

	h.tick(1)
	v := h.view()
	assert.Equal(t, engine.StateFinished, v.Match.State)
	require.NotNil(t, v.Verdict)
	assert.Equal(t, engine.OutcomeDraw, v.Verdict.Kind, "two teams still alive")
	require.NotNil(t, v.Status)
	assert.True(t, v.Status.Closed)
	assert.Zero(t, h.sched.Len())
}

func TestSession_RingPhaseAdvancesMatch(t *testing.T) {
	phases := []ring.PhaseConfig{
		{Phase: 1, WaitSeconds: 1, ShrinkSeconds: 1, EndRadius: ptr(80)},
		{Phase: 2, WaitSeconds: 10, ShrinkSeconds: 10, EndRadius: ptr(40)},
	}
	h := newHarness(t, phases, duoSettings())
	h.join("a", ring.Point{}, false)
	h.join("b", ring.Point{}, false)

	out := make(chan Snapshot, 16)
	require.NoError(t, h.s.Subscribe(h.ctx(), "c1", out))
	recvSnapshot(t, out, wait)

	require.NoError(t, h.s.Start(h.ctx()))
	h.tick(2)

	v := h.view()
	assert.Equal(t, 1, v.Match.CurrentRingPhase)
	require.NotNil(t, v.Ring)
	assert.InDelta(t, 80.0, v.Ring.CurrentRadius, 1e-9)

	var kinds []ring.NotificationKind
	for len(out) > 0 {
		snap := recvSnapshot(t, out, wait)
		for _, n := range snap.Notifications {
			kinds = append(kinds, n.Kind)
		}
	}
	assert.Equal(t, []ring.NotificationKind{
		ring.NotePhaseStarted,
		ring.NoteShrinkStarted,
		ring.NotePhaseCompleted,
		ring.NotePhaseStarted,
	}, kinds)
}

func TestSession_EliminationKillsRevivesAbilities(t *testing.T) {
	h := newHarness(t, slowRing, engine.Settings{MinPlayers: 2, MaxPlayers: 4, TeamSize: 2})
	a1 := h.join("a1", ring.Point{}, false)
	b1 := h.join("b1", ring.Point{}, false)
	h.join("a2", ring.Point{}, false)
	h.join("b2", ring.Point{}, false)

	require.ErrorIs(t, h.s.Eliminate(h.ctx(), "a1", "b1"), engine.ErrInvalidState)
	require.NoError(t, h.s.Start(h.ctx()))

	res, err := h.s.UseAbility(h.ctx(), "b1")
	require.NoError(t, err)
	require.NoError(t, res.Err)
	res, err = h.s.UseAbility(h.ctx(), "b1")
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, legend.ErrOnCooldown)
	assert.Positive(t, res.Remaining)
	res, err = h.s.UseAbility(h.ctx(), "a1")
	require.NoError(t, err)
	require.NoError(t, res.Err)

	require.NoError(t, h.s.Eliminate(h.ctx(), "a1", "b1"))
	require.ErrorIs(t, h.s.Eliminate(h.ctx(), "a1", ""), roster.ErrAlreadyEliminated)
	require.ErrorIs(t, h.s.Eliminate(h.ctx(), "ghost", ""), roster.ErrUnknownPlayer)

	require.NoError(t, h.s.Revive(h.ctx(), "a1"))
	require.ErrorIs(t, h.s.Revive(h.ctx(), "a1"), roster.ErrPlayerAlive)
	res, err = h.s.UseAbility(h.ctx(), "a1")
	require.NoError(t, err)
	assert.NoError(t, res.Err, "revived players get their ability back")

	require.NoError(t, h.s.Damage(h.ctx(), "b2", "a2", 25))
	require.ErrorIs(t, h.s.Damage(h.ctx(), "b2", "a2", 1), ErrPlayerDead)
	require.ErrorIs(t, h.s.Damage(h.ctx(), "a2", "b1", 5), ErrPlayerDead, "dead attackers deal no damage")
	require.ErrorIs(t, h.s.Damage(h.ctx(), "ghost", "b1", 5), roster.ErrUnknownPlayer)
	hp, _ := h.world.Health("b1")
	assert.InDelta(t, world.DefaultMaxHealth, hp, 1e-9)
	assert.Equal(t, engine.StateActive, h.view().Match.State)

	require.NoError(t, h.s.Leave(h.ctx(), "a1"))

	v := h.view()
	assert.Equal(t, engine.StateFinished, v.Match.State)
	assert.Equal(t, b1.TeamID, v.Match.WinnerTeamID)
	assert.NotEqual(t, a1.TeamID, v.Match.WinnerTeamID)

	players := map[string]roster.Player{}
	for _, p := range v.Roster.Players {
		players[p.ID] = p
	}
	assert.Equal(t, 1, players["b1"].Kills)
	assert.Equal(t, 1, players["b2"].Kills)
	assert.InDelta(t, 25.0, players["b2"].DamageDealt, 1e-9)
	assert.Zero(t, players["a2"].DamageDealt)
	assert.Equal(t, 1, players["a1"].Revives)
}

func TestSession_LeaveWhileWaiting(t *testing.T) {
	h := newHarness(t, slowRing, duoSettings())
	h.join("a", ring.Point{}, false)
	require.NoError(t, h.s.Leave(h.ctx(), "a"))
	require.ErrorIs(t, h.s.Leave(h.ctx(), "a"), roster.ErrUnknownPlayer)

	_, ok := h.world.Health("a")
	assert.False(t, ok)
	assert.Empty(t, h.view().Roster.Players)
}

func TestSession_SubscribeAndDropSlowClient(t *testing.T) {
	h := newHarness(t, slowRing, duoSettings())

	fast := make(chan Snapshot, 4)
	require.NoError(t, h.s.Subscribe(h.ctx(), "fast", fast))
	first := recvSnapshot(t, fast, wait)
	assert.Equal(t, 0, first.Version)

	slow := make(chan Snapshot, 1)
	require.NoError(t, h.s.Subscribe(h.ctx(), "slow", slow))

	h.join("a", ring.Point{}, false)
	next := recvSnapshot(t, fast, wait)
	assert.Equal(t, 1, next.Version)
	require.Len(t, next.Roster.Players, 1)

	assert.Equal(t, 1, h.view().NumClients, "slow client dropped")

	h.s.Unsubscribe("fast")
	assert.Zero(t, h.view().NumClients)
}

func TestSession_CloseEndsRequests(t *testing.T) {
	h := newHarness(t, slowRing, duoSettings())
	out := make(chan Snapshot, 1)
	require.NoError(t, h.s.Subscribe(h.ctx(), "c1", out))
	recvSnapshot(t, out, wait)

	h.s.Close()
	_, ok := <-out
	assert.False(t, ok, "outbox closed on shutdown")

	_, err := h.s.State(h.ctx())
	assert.True(t, errors.Is(err, ErrClosed) || errors.Is(err, context.DeadlineExceeded), "got %v", err)
}
