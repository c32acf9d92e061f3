package match

import (
	"context"

	"github.com/DoyleJ11/royale-backend/internal/ring"
	"github.com/DoyleJ11/royale-backend/internal/roster"
)

// ask sends one request built around a fresh reply channel and waits for
// the answer, the caller's context, or the actor exiting.
func ask[T any](ctx context.Context, s *Session, build func(reply chan T) Msg) (T, error) {
	var zero T
	reply := make(chan T, 1)
	select {
	case s.inbox <- build(reply):
	case <-s.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func askErr(ctx context.Context, s *Session, build func(reply chan error) Msg) error {
	err, sendErr := ask(ctx, s, build)
	if sendErr != nil {
		return sendErr
	}
	return err
}

func (s *Session) Join(ctx context.Context, playerID, name, legendID, teamID string) (roster.Player, error) {
	res, err := ask(ctx, s, func(r chan JoinResult) Msg {
		return Join{PlayerID: playerID, Name: name, LegendID: legendID, TeamID: teamID, Reply: r}
	})
	if err != nil {
		return roster.Player{}, err
	}
	return res.Player, res.Err
}

func (s *Session) Leave(ctx context.Context, playerID string) error {
	return askErr(ctx, s, func(r chan error) Msg { return Leave{PlayerID: playerID, Reply: r} })
}

func (s *Session) Start(ctx context.Context) error {
	return askErr(ctx, s, func(r chan error) Msg { return Start{Reply: r} })
}

func (s *Session) Finish(ctx context.Context, winnerTeamID string) error {
	return askErr(ctx, s, func(r chan error) Msg { return Finish{WinnerTeamID: winnerTeamID, Reply: r} })
}

func (s *Session) Eliminate(ctx context.Context, playerID, killerID string) error {
	return askErr(ctx, s, func(r chan error) Msg { return Eliminate{PlayerID: playerID, KillerID: killerID, Reply: r} })
}

func (s *Session) Damage(ctx context.Context, attackerID, targetID string, amount float64) error {
	return askErr(ctx, s, func(r chan error) Msg {
		return Damage{AttackerID: attackerID, TargetID: targetID, Amount: amount, Reply: r}
	})
}

func (s *Session) Revive(ctx context.Context, playerID string) error {
	return askErr(ctx, s, func(r chan error) Msg { return Revive{PlayerID: playerID, Reply: r} })
}

func (s *Session) UseAbility(ctx context.Context, playerID string) (AbilityResult, error) {
	return ask(ctx, s, func(r chan AbilityResult) Msg { return UseAbility{PlayerID: playerID, Reply: r} })
}

func (s *Session) State(ctx context.Context) (View, error) {
	return ask(ctx, s, func(r chan View) Msg { return GetState{Reply: r} })
}

// RingStatus is nil until the match has started.
func (s *Session) RingStatus(ctx context.Context) (*ring.Status, error) {
	v, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return v.Status, nil
}

// Subscribe registers outbox for snapshots; the first one is sent at once.
func (s *Session) Subscribe(ctx context.Context, clientID string, outbox chan Snapshot) error {
	select {
	case s.inbox <- Subscribe{ClientID: clientID, Outbox: outbox}:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unsubscribe never blocks past the actor's lifetime.
func (s *Session) Unsubscribe(clientID string) {
	select {
	case s.inbox <- Unsubscribe{ClientID: clientID}:
	case <-s.done:
	}
}

// Close stops the actor and waits for it to exit.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}
