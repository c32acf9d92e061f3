package hub

import (
	"context"

	"github.com/DoyleJ11/royale-backend/internal/engine"
	"github.com/DoyleJ11/royale-backend/internal/match"
	"github.com/DoyleJ11/royale-backend/internal/ring"
	"github.com/DoyleJ11/royale-backend/internal/roster"
)

// Controller is the match surface used by HTTP and sockets.
type Controller interface {
	Create(ctx context.Context, settings *engine.Settings) (*match.Session, error)
	Get(ctx context.Context, matchID string) (*match.Session, error)
	List(ctx context.Context) ([]string, error)
	Start(ctx context.Context, matchID string) error
	Finish(ctx context.Context, matchID, winnerTeamID string) error
	OnPlayerEliminated(ctx context.Context, matchID, playerID, killerID string) error
	Join(ctx context.Context, matchID, playerID, name, legendID, teamID string) (roster.Player, error)
	Leave(ctx context.Context, matchID, playerID string) error
	Revive(ctx context.Context, matchID, playerID string) error
	Status(ctx context.Context, matchID string) (*ring.Status, error)
}

var _ Controller = (*Hub)(nil)

func send[T any](ctx context.Context, h *Hub, msg HubMsg, reply chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- msg:
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create starts a match in WAITING. A nil settings uses the configured
// defaults.
func (h *Hub) Create(ctx context.Context, settings *engine.Settings) (*match.Session, error) {
	s := h.opts.Defaults
	if settings != nil {
		s = *settings
	}
	reply := make(chan CreateResult, 1)
	res, err := send(ctx, h, CreateMatch{Settings: s, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return res.Session, res.Err
}

func (h *Hub) Get(ctx context.Context, matchID string) (*match.Session, error) {
	reply := make(chan *match.Session, 1)
	s, err := send(ctx, h, GetMatch{ID: matchID, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrMatchNotFound
	}
	return s, nil
}

func (h *Hub) List(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	return send(ctx, h, ListMatches{Reply: reply}, reply)
}

func (h *Hub) Start(ctx context.Context, matchID string) error {
	s, err := h.Get(ctx, matchID)
	if err != nil {
		return err
	}
	return s.Start(ctx)
}

func (h *Hub) Finish(ctx context.Context, matchID, winnerTeamID string) error {
	s, err := h.Get(ctx, matchID)
	if err != nil {
		return err
	}
	return s.Finish(ctx, winnerTeamID)
}

func (h *Hub) OnPlayerEliminated(ctx context.Context, matchID, playerID, killerID string) error {
	s, err := h.Get(ctx, matchID)
	if err != nil {
		return err
	}
	return s.Eliminate(ctx, playerID, killerID)
}

func (h *Hub) Join(ctx context.Context, matchID, playerID, name, legendID, teamID string) (roster.Player, error) {
	s, err := h.Get(ctx, matchID)
	if err != nil {
		return roster.Player{}, err
	}
	return s.Join(ctx, playerID, name, legendID, teamID)
}

func (h *Hub) Leave(ctx context.Context, matchID, playerID string) error {
	s, err := h.Get(ctx, matchID)
	if err != nil {
		return err
	}
	return s.Leave(ctx, playerID)
}

func (h *Hub) Revive(ctx context.Context, matchID, playerID string) error {
	s, err := h.Get(ctx, matchID)
	if err != nil {
		return err
	}
	return s.Revive(ctx, playerID)
}

func (h *Hub) Status(ctx context.Context, matchID string) (*ring.Status, error) {
	s, err := h.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return s.RingStatus(ctx)
}
