// Package match runs one match as an actor: a single goroutine owns the
// lifecycle record, the roster and the ring, and every change arrives
// through its inbox.
package match

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/royale-backend/internal/engine"
	"github.com/DoyleJ11/royale-backend/internal/legend"
	"github.com/DoyleJ11/royale-backend/internal/ring"
	"github.com/DoyleJ11/royale-backend/internal/roster"
	"github.com/DoyleJ11/royale-backend/internal/scheduler"
)

var (
	ErrClosed     = errors.New("match session closed")
	ErrPlayerDead = errors.New("player is eliminated")
)

// Vitals is the world state the match reads and writes.
type Vitals interface {
	ring.PositionProvider
	ring.HealthMutator
	Spawn(playerID string)
	Remove(playerID string)
	Restore(playerID string) bool
	SetPosition(playerID string, p ring.Point) bool
	Healths() map[string]float64
}

type Arena struct {
	Center ring.Point
	Radius float64
	Bounds ring.Bounds
}

type Deps struct {
	Table          *ring.PhaseTable
	Arena          Arena
	PlayerLimit    int
	Vitals         Vitals
	Scheduler      *scheduler.Scheduler
	TickInterval   time.Duration
	DamageInterval time.Duration
	Boundary       ring.BoundaryAdapter
	Notify         ring.NotificationSink
	Stats          StatisticsSink
	Rand           *rand.Rand
	Logger         *zap.Logger
	// OnFinished runs on the match goroutine right after the transition.
	OnFinished func(matchID string, at time.Time)
}

type Session struct {
	id    string
	inbox chan Msg
	deps  Deps
	clock scheduler.Clock
	log   *zap.Logger

	match     engine.Match
	roster    *roster.Roster
	ring      *ring.Engine
	cooldowns *legend.Cooldowns
	verdict   *engine.Verdict

	version int
	clients map[string]chan Snapshot
	dirty   bool
	pending []ring.Notification

	epoch  uint64
	tokens []scheduler.Token

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession validates settings against the arena and starts the actor in
// WAITING.
func NewSession(parent context.Context, id string, settings engine.Settings, deps Deps) (*Session, error) {
	if deps.Scheduler == nil || deps.Vitals == nil {
		return nil, errors.New("match: scheduler and vitals are required")
	}
	if deps.Table == nil {
		return nil, &engine.ConfigurationError{Err: ring.ErrEmptyTable}
	}
	if err := deps.Table.ValidateStart(deps.Arena.Radius); err != nil {
		return nil, &engine.ConfigurationError{Err: err}
	}

	clock := deps.Scheduler.Clock()
	m, err := engine.NewMatch(id, settings, deps.PlayerLimit, clock.Now())
	if err != nil {
		return nil, err
	}

	if deps.TickInterval <= 0 {
		deps.TickInterval = time.Second
	}
	if deps.DamageInterval <= 0 {
		deps.DamageInterval = time.Second
	}
	if deps.Stats == nil {
		deps.Stats = nopStats{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:        id,
		inbox:     make(chan Msg, 64),
		deps:      deps,
		clock:     clock,
		log:       deps.Logger.With(zap.String("component", "match"), zap.String("match_id", id)),
		match:     m,
		roster:    roster.New(settings.TeamCount(), settings.TeamSize),
		cooldowns: legend.NewCooldowns(),
		clients:   make(map[string]chan Snapshot),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go s.loop()
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Inbox exposes the actor so sockets and tests can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the actor has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// ReportPosition writes straight to the world; no actor round trip.
func (s *Session) ReportPosition(playerID string, p ring.Point) bool {
	return s.deps.Vitals.SetPosition(playerID, p)
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			if _, ok := m.(Shutdown); ok {
				s.shutdown()
				return
			}
			s.handle(m)
			s.flush()
		}
	}
}

func (s *Session) handle(m Msg) {
	switch msg := m.(type) {
	case Subscribe:
		// Register client + send current snapshot immediately
		s.clients[msg.ClientID] = msg.Outbox
		select {
		case msg.Outbox <- s.snapshot(nil):
		default:
			close(msg.Outbox)
			delete(s.clients, msg.ClientID)
		}

	case Unsubscribe:
		if ch, ok := s.clients[msg.ClientID]; ok {
			close(ch)
			delete(s.clients, msg.ClientID)
		}

	case Join:
		p, err := s.join(msg)
		msg.Reply <- JoinResult{Player: p, Err: err}

	case Leave:
		msg.Reply <- s.leave(msg.PlayerID)

	case Start:
		msg.Reply <- s.start()

	case Finish:
		v := engine.Verdict{Kind: engine.OutcomeDraw}
		if msg.WinnerTeamID != "" {
			v = engine.Verdict{Kind: engine.OutcomeTeamWin, WinnerTeamID: msg.WinnerTeamID}
		}
		msg.Reply <- s.finish(v, s.clock.Now())

	case Eliminate:
		msg.Reply <- s.eliminate(msg.PlayerID, msg.KillerID)

	case Damage:
		msg.Reply <- s.damage(msg)

	case Revive:
		msg.Reply <- s.revive(msg.PlayerID)

	case UseAbility:
		left, err := s.useAbility(msg.PlayerID)
		msg.Reply <- AbilityResult{Remaining: left, Err: err}

	case GetState:
		msg.Reply <- s.view()

	case timelineTick:
		if !s.current(msg.epoch, "timeline") {
			return
		}
		if s.ring.Advance(msg.now) {
			s.forceFinish(msg.now)
		}

	case damageTick:
		if !s.current(msg.epoch, "damage") {
			return
		}
		if s.ring.Advance(msg.now) {
			s.forceFinish(msg.now)
			return
		}
		deaths := s.ring.DamageTick(msg.now, s.roster.AlivePlayerIDs())
		if len(deaths) > 0 {
			s.log.Info("ring eliminated players", zap.Strings("player_ids", deaths))
		}
		s.eliminateAll(deaths, msg.now)
		s.dirty = true
	}
}

// current drops ticks scheduled by an earlier epoch.
func (s *Session) current(epoch uint64, kind string) bool {
	if epoch == s.epoch && s.ring != nil && s.ring.Running() && s.match.State == engine.StateActive {
		return true
	}
	s.log.Debug("stale tick dropped",
		zap.String("tick", kind),
		zap.Uint64("tick_epoch", epoch),
		zap.Uint64("epoch", s.epoch),
	)
	return false
}

func (s *Session) join(msg Join) (roster.Player, error) {
	if s.match.State != engine.StateWaiting {
		return roster.Player{}, fmt.Errorf("%w: players join only while waiting", engine.ErrInvalidState)
	}
	if s.roster.Size() >= s.match.Settings.MaxPlayers {
		return roster.Player{}, roster.ErrRosterFull
	}
	legendID := msg.LegendID
	if legendID == "" {
		legendID = legend.DefaultID
	}
	if _, err := legend.Lookup(legendID); err != nil {
		return roster.Player{}, err
	}
	name := msg.Name
	if name == "" {
		name = msg.PlayerID
	}
	p, err := s.roster.Add(msg.PlayerID, name, legendID, msg.TeamID)
	if err != nil {
		return roster.Player{}, err
	}
	s.deps.Vitals.Spawn(p.ID)
	s.dirty = true
	s.log.Info("player joined", zap.String("player_id", p.ID), zap.String("team_id", p.TeamID))
	return p, nil
}

func (s *Session) leave(playerID string) error {
	switch s.match.State {
	case engine.StateWaiting:
		if err := s.roster.Remove(playerID); err != nil {
			return err
		}
		s.deps.Vitals.Remove(playerID)
		s.dirty = true
		s.log.Info("player left", zap.String("player_id", playerID))
		return nil
	case engine.StateActive:
		return s.eliminate(playerID, "")
	default:
		return fmt.Errorf("%w: match is finished", engine.ErrInvalidState)
	}
}

func (s *Session) start() error {
	now := s.clock.Now()
	events, next, err := engine.Apply(s.match, engine.Command{
		Type:       engine.CmdStart,
		At:         now,
		RosterSize: s.roster.Size(),
	})
	if err != nil {
		return err
	}

	eng := ring.New(s.id, s.deps.Table, ring.Options{
		Bounds:    s.deps.Arena.Bounds,
		Rand:      s.deps.Rand,
		Positions: s.deps.Vitals,
		Health:    s.deps.Vitals,
		Sink:      ring.SinkFunc(s.onNotification),
		Boundary:  s.deps.Boundary,
		Logger:    s.deps.Logger,
	})
	if err := eng.Initialize(s.deps.Arena.Center, s.deps.Arena.Radius); err != nil {
		return &engine.ConfigurationError{Err: err}
	}

	s.match = next
	s.ring = eng
	s.epoch++
	epoch := s.epoch
	if err := eng.BeginTimeline(now); err != nil {
		return err
	}

	// Timeline first so damage always sees the current phase.
	sched := s.deps.Scheduler
	s.tokens = []scheduler.Token{
		sched.Every(s.deps.TickInterval, func(at time.Time) { s.post(timelineTick{epoch: epoch, now: at}) }),
		sched.Every(s.deps.DamageInterval, func(at time.Time) { s.post(damageTick{epoch: epoch, now: at}) }),
	}

	s.dirty = true
	s.logEvents(events)
	return nil
}

// finish is a no-op once finished.
func (s *Session) finish(v engine.Verdict, now time.Time) error {
	events, next, err := engine.Apply(s.match, engine.Command{
		Type:         engine.CmdFinish,
		At:           now,
		WinnerTeamID: v.WinnerTeamID,
	})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	s.stopRing()
	s.match = next
	s.verdict = &v
	s.dirty = true
	s.logEvents(events)

	s.deps.Stats.Record(Summarize(s.match, s.roster.Snapshot(), v))
	if s.deps.OnFinished != nil {
		s.deps.OnFinished(s.id, now)
	}
	return nil
}

// forceFinish ends a match whose ring has fully closed.
func (s *Session) forceFinish(now time.Time) {
	v := engine.Evaluate(s.roster.Snapshot(), s.match.Settings)
	if !v.Decisive() {
		v = engine.Verdict{Kind: engine.OutcomeDraw}
	}
	s.log.Info("ring closed, forcing finish", zap.String("outcome", string(v.Kind)))
	if err := s.finish(v, now); err != nil {
		s.log.Warn("forced finish failed", zap.Error(err))
	}
}

func (s *Session) eliminate(playerID, killerID string) error {
	if s.match.State != engine.StateActive {
		return fmt.Errorf("%w: eliminations only while active", engine.ErrInvalidState)
	}
	p, ok := s.roster.Player(playerID)
	if !ok {
		return roster.ErrUnknownPlayer
	}
	if !p.Alive {
		return roster.ErrAlreadyEliminated
	}
	if killerID != "" && killerID != playerID {
		if err := s.roster.RecordKill(killerID); err != nil {
			return err
		}
	}
	s.eliminateAll([]string{playerID}, s.clock.Now())
	s.dirty = true
	return nil
}

// eliminateAll applies one pass of deaths and evaluates once, so teams
// emptied together draw.
func (s *Session) eliminateAll(ids []string, now time.Time) {
	if len(ids) == 0 {
		return
	}
	var emptied []string
	for _, id := range ids {
		ev, err := s.roster.Eliminate(id, now)
		if err != nil {
			s.log.Debug("elimination skipped", zap.String("player_id", id), zap.Error(err))
			continue
		}
		if ev != nil {
			emptied = append(emptied, ev.TeamID)
		}
	}
	if len(emptied) > 0 {
		place := s.roster.Rank(emptied)
		s.log.Info("teams eliminated",
			zap.Strings("team_ids", emptied),
			zap.Int("placement", place),
			zap.Int("remaining_teams", place-1),
		)
	}

	v := engine.Evaluate(s.roster.Snapshot(), s.match.Settings)
	if !v.Decisive() {
		return
	}
	if err := s.finish(v, now); err != nil {
		s.log.Warn("finish after elimination failed", zap.Error(err))
	}
}

func (s *Session) damage(msg Damage) error {
	if s.match.State != engine.StateActive {
		return fmt.Errorf("%w: damage only while active", engine.ErrInvalidState)
	}
	if msg.Amount <= 0 {
		return nil
	}
	target, ok := s.roster.Player(msg.TargetID)
	if !ok {
		return roster.ErrUnknownPlayer
	}
	if !target.Alive {
		return ErrPlayerDead
	}
	if msg.AttackerID != "" {
		attacker, ok := s.roster.Player(msg.AttackerID)
		if !ok {
			return roster.ErrUnknownPlayer
		}
		if !attacker.Alive {
			return ErrPlayerDead
		}
		if err := s.roster.RecordDamage(msg.AttackerID, msg.Amount); err != nil {
			return err
		}
	}

	s.deps.Vitals.ApplyDamage(msg.TargetID, msg.Amount)
	s.dirty = true
	if !s.deps.Vitals.IsEliminated(msg.TargetID) {
		return nil
	}
	if msg.AttackerID != "" && msg.AttackerID != msg.TargetID {
		if err := s.roster.RecordKill(msg.AttackerID); err != nil {
			s.log.Debug("kill not credited", zap.String("player_id", msg.AttackerID), zap.Error(err))
		}
	}
	s.eliminateAll([]string{msg.TargetID}, s.clock.Now())
	return nil
}

func (s *Session) revive(playerID string) error {
	if s.match.State != engine.StateActive {
		return fmt.Errorf("%w: revives only while active", engine.ErrInvalidState)
	}
	if err := s.roster.Revive(playerID); err != nil {
		return err
	}
	s.deps.Vitals.Restore(playerID)
	s.cooldowns.Reset(playerID)
	s.dirty = true
	s.log.Info("player revived", zap.String("player_id", playerID))
	return nil
}

func (s *Session) useAbility(playerID string) (time.Duration, error) {
	if s.match.State != engine.StateActive {
		return 0, fmt.Errorf("%w: abilities only while active", engine.ErrInvalidState)
	}
	p, ok := s.roster.Player(playerID)
	if !ok {
		return 0, roster.ErrUnknownPlayer
	}
	if !p.Alive {
		return 0, ErrPlayerDead
	}
	l, err := legend.Lookup(p.LegendID)
	if err != nil {
		return 0, err
	}
	return s.cooldowns.Use(playerID, l, s.clock.Now())
}

func (s *Session) stopRing() {
	for _, tok := range s.tokens {
		s.deps.Scheduler.Cancel(tok)
	}
	s.tokens = nil
	s.epoch++
	if s.ring != nil {
		s.ring.Stop()
	}
}

// post hands a tick to the actor without ever blocking the scheduler.
func (s *Session) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	default:
		s.log.Warn("match inbox full, tick dropped")
	}
}

// onNotification runs inside ring calls on the match goroutine.
func (s *Session) onNotification(n ring.Notification) {
	s.pending = append(s.pending, n)
	if s.deps.Notify != nil {
		s.deps.Notify.Notify(n)
	}
}

// flush folds ring notifications into the lifecycle record and broadcasts
// whatever changed during the last message.
func (s *Session) flush() {
	notes := s.pending
	s.pending = nil
	for _, n := range notes {
		if n.Kind != ring.NotePhaseStarted || s.match.State != engine.StateActive {
			continue
		}
		events, next, err := engine.Apply(s.match, engine.Command{
			Type:      engine.CmdAdvanceRing,
			At:        n.At,
			RingPhase: n.PhaseIndex,
		})
		if err != nil {
			s.log.Warn("ring phase rejected", zap.Int("phase", n.PhaseIndex), zap.Error(err))
			continue
		}
		s.match = next
		s.logEvents(events)
	}

	if !s.dirty && len(notes) == 0 {
		return
	}
	s.dirty = false
	s.version++
	s.broadcast(s.snapshot(notes))
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) snapshot(notes []ring.Notification) Snapshot {
	snap := Snapshot{
		Version:       s.version,
		Match:         s.match,
		Roster:        s.roster.Snapshot(),
		Health:        s.deps.Vitals.Healths(),
		Verdict:       s.verdict,
		Notifications: notes,
	}
	if s.ring != nil {
		st := s.ring.Status(s.clock.Now())
		snap.Ring = &st
	}
	return snap
}

func (s *Session) view() View {
	v := View{
		Version:    s.version,
		NumClients: len(s.clients),
		Epoch:      s.epoch,
		Tasks:      len(s.tokens),
		Match:      s.match,
		Roster:     s.roster.Snapshot(),
		Verdict:    s.verdict,
	}
	if s.ring != nil {
		rs := s.ring.State()
		st := s.ring.Status(s.clock.Now())
		v.Ring = &rs
		v.Status = &st
	}
	return v
}

func (s *Session) logEvents(events []engine.Event) {
	for _, e := range events {
		s.log.Info("match event",
			zap.String("event", string(e.Type)),
			zap.Time("at", e.At),
			zap.String("winner_team_id", e.WinnerTeamID),
			zap.Int("ring_phase", e.RingPhase),
		)
	}
}

func (s *Session) shutdown() {
	s.stopRing()
	for id, ch := range s.clients {
		close(ch) // Tell client no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
}
