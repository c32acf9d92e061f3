package ring

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotInitialized = errors.New("ring not initialized")
	ErrAlreadyRunning = errors.New("ring timeline already running")
	ErrStopped        = errors.New("ring engine stopped")
)

// DefaultWarnings are the remaining-seconds marks announced while waiting.
var DefaultWarnings = []int{60, 30, 10, 5}

// State is the live ring of one match.
type State struct {
	MatchID         string    `json:"match_id"`
	PhaseIndex      int       `json:"phase_index"`
	CurrentCenter   Point     `json:"current_center"`
	CurrentRadius   float64   `json:"current_radius"`
	NextCenter      *Point    `json:"next_center,omitempty"`
	NextRadius      *float64  `json:"next_radius,omitempty"`
	IsShrinking     bool      `json:"is_shrinking"`
	PhaseStartTime  time.Time `json:"phase_start_time"`
	PhaseEndTime    time.Time `json:"phase_end_time"`
	DamagePerSecond float64   `json:"damage_per_second"`
}

// Status is the query view of the ring.
type Status struct {
	PhaseIndex       int     `json:"phase_index"`
	Center           Point   `json:"center"`
	Radius           float64 `json:"radius"`
	DamagePerSecond  float64 `json:"damage_per_second"`
	IsShrinking      bool    `json:"is_shrinking"`
	SecondsRemaining float64 `json:"seconds_remaining"`
	Closed           bool    `json:"closed"`
}

type subPhase int

const (
	subIdle subPhase = iota
	subWaiting
	subShrinking
	subClosed
)

// Options wires an Engine to its collaborators. Nil sinks are allowed.
type Options struct {
	Bounds    Bounds
	Rand      *rand.Rand
	Positions PositionProvider
	Health    HealthMutator
	Sink      NotificationSink
	Boundary  BoundaryAdapter
	Warnings  []int
	Logger    *zap.Logger
}

// Engine drives one match's ring. It is not safe for concurrent use: the
// owning match actor is its only caller, which serializes timeline and
// damage ticks.
type Engine struct {
	matchID string
	table   *PhaseTable
	opts    Options
	log     *zap.Logger

	state       State
	initialized bool
	running     bool
	stopped     bool

	sub      subPhase
	subStart time.Time
	subEnd   time.Time

	shrinkFromCenter Point
	shrinkFromRadius float64

	lastDamage time.Time

	warned map[int]bool
}

func New(matchID string, table *PhaseTable, opts Options) *Engine {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Warnings == nil {
		opts.Warnings = DefaultWarnings
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		matchID: matchID,
		table:   table,
		opts:    opts,
		log:     log.With(zap.String("component", "ring"), zap.String("match_id", matchID)),
	}
}

// Initialize places the ring at phase 0, not shrinking.
func (e *Engine) Initialize(center Point, radius float64) error {
	if err := e.table.ValidateStart(radius); err != nil {
		return err
	}
	e.state = State{
		MatchID:       e.matchID,
		CurrentCenter: center,
		CurrentRadius: radius,
	}
	e.initialized = true
	e.mirror()
	return nil
}

// BeginTimeline enters phase 0 at now.
func (e *Engine) BeginTimeline(now time.Time) error {
	switch {
	case !e.initialized:
		return ErrNotInitialized
	case e.stopped:
		return ErrStopped
	case e.running:
		return ErrAlreadyRunning
	}
	e.running = true
	e.lastDamage = now
	e.enterPhase(0, now)
	return nil
}

// Advance moves the timeline to now, crossing as many sub-phase boundaries
// as are due. It returns true only on the call that closes the ring.
func (e *Engine) Advance(now time.Time) bool {
	if !e.running {
		return false
	}
	for e.running && !now.Before(e.subEnd) {
		at := e.subEnd
		switch e.sub {
		case subWaiting:
			e.beginShrink(at)
		case subShrinking:
			e.completePhase(at)
			e.enterPhase(e.state.PhaseIndex+1, at)
		}
	}

	switch e.sub {
	case subWaiting:
		e.warn(now)
	case subShrinking:
		e.interpolate(now)
	case subClosed:
		return true
	}
	return false
}

// DamageTick applies the damage accrued since the previous tick to every
// player outside the current boundary and returns the players it killed.
// A late tick covers the whole gap at the current phase's rate.
func (e *Engine) DamageTick(now time.Time, players []string) []string {
	if !e.running {
		return nil
	}
	elapsed := now.Sub(e.lastDamage)
	if elapsed <= 0 {
		return nil
	}
	e.lastDamage = now
	amount := e.state.DamagePerSecond * elapsed.Seconds()
	if amount <= 0 || e.opts.Positions == nil || e.opts.Health == nil {
		return nil
	}

	var deaths []string
	for _, id := range players {
		if e.opts.Health.IsEliminated(id) {
			continue
		}
		pos, ok := e.opts.Positions.Position(id)
		if !ok {
			e.log.Debug("player position unavailable, skipping damage", zap.String("player_id", id))
			continue
		}
		if e.inside(pos) {
			continue
		}
		e.opts.Health.ApplyDamage(id, amount)
		if e.opts.Health.IsEliminated(id) {
			deaths = append(deaths, id)
		}
	}
	return deaths
}

// Stop cancels the timeline and damage. Safe to call repeatedly.
func (e *Engine) Stop() {
	if e.stopped {
		return
	}
	e.stopped = true
	e.running = false
	e.state.IsShrinking = false
	e.log.Debug("ring stopped", zap.Int("phase", e.state.PhaseIndex))
}

// Running reports whether ticks still have an effect.
func (e *Engine) Running() bool { return e.running }

// State returns a copy of the live ring.
func (e *Engine) State() State {
	s := e.state
	if s.NextCenter != nil {
		c := *s.NextCenter
		s.NextCenter = &c
	}
	if s.NextRadius != nil {
		r := *s.NextRadius
		s.NextRadius = &r
	}
	return s
}

func (e *Engine) Status(now time.Time) Status {
	st := Status{
		PhaseIndex:      e.state.PhaseIndex,
		Center:          e.state.CurrentCenter,
		Radius:          e.state.CurrentRadius,
		DamagePerSecond: e.state.DamagePerSecond,
		IsShrinking:     e.state.IsShrinking,
		Closed:          e.sub == subClosed,
	}
	if e.running && now.Before(e.subEnd) {
		st.SecondsRemaining = e.subEnd.Sub(now).Seconds()
	}
	return st
}

// inside classifies p against the current boundary.
func (e *Engine) inside(p Point) bool {
	return Inside(p, e.state.CurrentCenter, e.state.CurrentRadius)
}

func (e *Engine) enterPhase(idx int, at time.Time) {
	e.state.PhaseIndex = idx
	cfg, ok := e.table.Phase(idx)
	if !ok {
		e.close(at)
		return
	}

	nextR := cfg.TargetRadius(e.state.CurrentRadius)
	nextC, moved := nextCenter(e.opts.Rand, e.state.CurrentCenter, e.state.CurrentRadius, nextR, e.opts.Bounds)
	if !moved {
		e.log.Debug("no in-bounds center found, keeping previous", zap.Int("phase", idx))
	}

	wait := seconds(cfg.WaitSeconds)
	e.state.NextCenter = &nextC
	e.state.NextRadius = &nextR
	e.state.IsShrinking = false
	e.state.DamagePerSecond = cfg.DamagePerSecond
	e.state.PhaseStartTime = at
	e.state.PhaseEndTime = at.Add(wait + seconds(cfg.ShrinkSeconds))

	e.sub = subWaiting
	e.subStart = at
	e.subEnd = at.Add(wait)
	e.warned = make(map[int]bool, len(e.opts.Warnings))
	for _, w := range e.opts.Warnings {
		if w >= cfg.WaitSeconds {
			e.warned[w] = true
		}
	}

	e.log.Info("ring phase started",
		zap.Int("phase", idx),
		zap.Int("wait_seconds", cfg.WaitSeconds),
		zap.Float64("next_radius", nextR),
		zap.Float64("damage_per_second", cfg.DamagePerSecond),
	)
	e.notify(NotePhaseStarted, at, cfg.WaitSeconds)
}

func (e *Engine) beginShrink(at time.Time) {
	cfg, _ := e.table.Phase(e.state.PhaseIndex)
	e.sub = subShrinking
	e.subStart = at
	e.subEnd = at.Add(seconds(cfg.ShrinkSeconds))
	e.shrinkFromCenter = e.state.CurrentCenter
	e.shrinkFromRadius = e.state.CurrentRadius
	e.state.IsShrinking = true
	e.notify(NoteShrinkStarted, at, cfg.ShrinkSeconds)
}

func (e *Engine) interpolate(now time.Time) {
	total := e.subEnd.Sub(e.subStart)
	if total <= 0 || e.state.NextCenter == nil || e.state.NextRadius == nil {
		return
	}
	t := math.Min(1, math.Max(0, float64(now.Sub(e.subStart))/float64(total)))
	e.state.CurrentCenter = e.shrinkFromCenter.Lerp(*e.state.NextCenter, t)
	e.state.CurrentRadius = e.shrinkFromRadius + (*e.state.NextRadius-e.shrinkFromRadius)*t
	e.mirror()
}

func (e *Engine) completePhase(at time.Time) {
	if e.state.NextCenter != nil {
		e.state.CurrentCenter = *e.state.NextCenter
	}
	if e.state.NextRadius != nil {
		e.state.CurrentRadius = *e.state.NextRadius
	}
	e.state.NextCenter = nil
	e.state.NextRadius = nil
	e.state.IsShrinking = false
	e.mirror()

	e.log.Info("ring phase completed", zap.Int("phase", e.state.PhaseIndex), zap.Float64("radius", e.state.CurrentRadius))
	e.notify(NotePhaseCompleted, at, 0)
}

func (e *Engine) close(at time.Time) {
	e.sub = subClosed
	e.running = false
	e.state.IsShrinking = false
	e.state.NextCenter = nil
	e.state.NextRadius = nil
	e.log.Info("ring fully closed")
	e.notify(NoteRingClosed, at, 0)
}

func (e *Engine) warn(now time.Time) {
	remaining := e.subEnd.Sub(now)
	for _, w := range e.opts.Warnings {
		if e.warned[w] || remaining > seconds(w) {
			continue
		}
		e.warned[w] = true
		e.notify(NoteWarning, now, w)
	}
}

func (e *Engine) notify(kind NotificationKind, at time.Time, secs int) {
	n := Notification{
		Kind:             kind,
		MatchID:          e.matchID,
		PhaseIndex:       e.state.PhaseIndex,
		SecondsRemaining: secs,
		Radius:           e.state.CurrentRadius,
		DamagePerSecond:  e.state.DamagePerSecond,
		At:               at,
	}
	if e.state.NextRadius != nil {
		n.NextRadius = *e.state.NextRadius
	}
	e.opts.Sink.Notify(n)
}

func (e *Engine) mirror() {
	if e.opts.Boundary != nil {
		e.opts.Boundary.SetBoundary(e.matchID, e.state.CurrentCenter, e.state.CurrentRadius)
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
