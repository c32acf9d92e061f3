// Package hub owns every live match in the process and is the controller
// the transport layers talk to.
package hub

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/royale-backend/internal/engine"
	"github.com/DoyleJ11/royale-backend/internal/match"
	"github.com/DoyleJ11/royale-backend/internal/ring"
	"github.com/DoyleJ11/royale-backend/internal/scheduler"
	"github.com/DoyleJ11/royale-backend/internal/world"
)

var ErrMatchNotFound = errors.New("match not found")
var ErrHubClosed = errors.New("hub closed")

type Options struct {
	Table          *ring.PhaseTable
	Arena          match.Arena
	Defaults       engine.Settings
	PlayerLimit    int
	TickInterval   time.Duration
	DamageInterval time.Duration
	MaxHealth      float64
	// Finished matches are dropped this long after they end.
	Retention    time.Duration
	ReapInterval time.Duration
	Stats        match.StatisticsSink
	Notify       ring.NotificationSink
	Boundary     ring.BoundaryAdapter
	Logger       *zap.Logger
}

type HubMsg interface{ isHubMsg() }

type CreateResult struct {
	Session *match.Session
	Err     error
}

type CreateMatch struct {
	Settings engine.Settings
	Reply    chan CreateResult
}

type GetMatch struct {
	ID    string
	Reply chan *match.Session
}

type ListMatches struct {
	Reply chan []string
}

type RemoveMatch struct {
	ID string
}

type ShutdownHub struct{}

type matchFinished struct {
	id string
	at time.Time
}

type reap struct{ now time.Time }

func (CreateMatch) isHubMsg()   {}
func (GetMatch) isHubMsg()      {}
func (ListMatches) isHubMsg()   {}
func (RemoveMatch) isHubMsg()   {}
func (ShutdownHub) isHubMsg()   {}
func (matchFinished) isHubMsg() {}
func (reap) isHubMsg()          {}

type entry struct {
	session    *match.Session
	finishedAt *time.Time
}

type Hub struct {
	inbox   chan HubMsg
	matches map[string]*entry
	opts    Options
	sched   *scheduler.Scheduler
	reapTok scheduler.Token
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, sched *scheduler.Scheduler, opts Options) *Hub {
	if opts.Table == nil {
		opts.Table = ring.DefaultTable()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Retention <= 0 {
		opts.Retention = 5 * time.Minute
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		matches: make(map[string]*entry),
		opts:    opts,
		sched:   sched,
		log:     opts.Logger.With(zap.String("component", "hub")),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	h.reapTok = sched.Every(opts.ReapInterval, func(now time.Time) { h.post(reap{now: now}) })
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateMatch:
				s, err := h.create(msg.Settings)
				msg.Reply <- CreateResult{Session: s, Err: err}

			case GetMatch:
				var s *match.Session
				if e := h.matches[msg.ID]; e != nil {
					s = e.session
				}
				msg.Reply <- s // May be nil

			case ListMatches:
				ids := make([]string, 0, len(h.matches))
				for id := range h.matches {
					ids = append(ids, id)
				}
				msg.Reply <- ids

			case RemoveMatch:
				h.remove(msg.ID)

			case matchFinished:
				if e := h.matches[msg.id]; e != nil {
					at := msg.at
					e.finishedAt = &at
				}

			case reap:
				for id, e := range h.matches {
					if e.finishedAt != nil && !msg.now.Before(e.finishedAt.Add(h.opts.Retention)) {
						h.log.Info("reaping finished match", zap.String("match_id", id))
						h.remove(id)
					}
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(settings engine.Settings) (*match.Session, error) {
	id := uuid.NewString()
	s, err := match.NewSession(h.ctx, id, settings, match.Deps{
		Table:          h.opts.Table,
		Arena:          h.opts.Arena,
		PlayerLimit:    h.opts.PlayerLimit,
		Vitals:         world.New(h.opts.MaxHealth),
		Scheduler:      h.sched,
		TickInterval:   h.opts.TickInterval,
		DamageInterval: h.opts.DamageInterval,
		Boundary:       h.opts.Boundary,
		Notify:         h.opts.Notify,
		Stats:          h.opts.Stats,
		Rand:           rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:         h.opts.Logger,
		OnFinished: func(matchID string, at time.Time) {
			h.post(matchFinished{id: matchID, at: at})
		},
	})
	if err != nil {
		h.log.Info("match rejected", zap.Error(err))
		return nil, err
	}
	h.matches[id] = &entry{session: s}
	h.log.Info("match created",
		zap.String("match_id", id),
		zap.Int("min_players", settings.MinPlayers),
		zap.Int("max_players", settings.MaxPlayers),
		zap.Int("team_size", settings.TeamSize),
	)
	return s, nil
}

func (h *Hub) remove(id string) {
	e := h.matches[id]
	if e == nil {
		return
	}
	delete(h.matches, id)
	e.session.Close()
}

// post never blocks; callers run on other actors' goroutines.
func (h *Hub) post(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	default:
		h.log.Warn("hub inbox full, message dropped")
	}
}

func (h *Hub) shutdown() {
	h.sched.Cancel(h.reapTok)
	for id := range h.matches {
		h.remove(id)
	}
	h.cancel()
}

// Close stops every match and waits for the hub to exit.
func (h *Hub) Close() {
	h.cancel()
	<-h.done
}
