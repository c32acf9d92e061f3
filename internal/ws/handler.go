package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/royale-backend/internal/hub"
	"github.com/DoyleJ11/royale-backend/internal/match"
	"github.com/DoyleJ11/royale-backend/internal/ring"
	"github.com/DoyleJ11/royale-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	idleTimeout  = 30 * time.Second
)

// Handler streams match snapshots. With a player query parameter the
// socket also carries that player's position, damage and ability reports;
// without one it is a spectator.
func Handler(c hub.Controller, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("component", "ws"))

	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("match")
		if matchID == "" {
			http.Error(w, "missing match", http.StatusBadRequest)
			return
		}
		playerID := r.URL.Query().Get("player")

		s, err := c.Get(r.Context(), matchID)
		if err != nil {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("match_id", matchID), zap.String("client_id", clientID), zap.String("player_id", playerID))

		out := make(chan match.Snapshot, 8)
		if err := s.Subscribe(r.Context(), clientID, out); err != nil {
			return
		}
		defer s.Unsubscribe(clientID)
		log.Debug("client subscribed")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				send(writeCtx, conn, types.ServerMessage{Type: "StateSnapshot", Version: snap.Version, State: &snap})
			}
			// Outbox closed: the match ended or we were too slow.
			conn.Close(websocket.StatusGoingAway, "match stream closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), idleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("socket read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				send(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}
			if playerID == "" {
				send(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "spectators cannot send"})
				continue
			}
			if reply, ok := dispatch(r.Context(), s, playerID, cm); ok {
				send(r.Context(), conn, reply)
			}
		}
	}
}

// dispatch applies one client message. ok reports whether there is
// something to send back.
func dispatch(ctx context.Context, s *match.Session, playerID string, cm types.ClientMessage) (types.ServerMessage, bool) {
	switch cm.Type {
	case "Position":
		if !s.ReportPosition(playerID, ring.Point{X: cm.X, Z: cm.Z}) {
			return types.ServerMessage{Type: "Error", Error: "unknown player"}, true
		}
		return types.ServerMessage{}, false

	case "Damage":
		if err := s.Damage(ctx, playerID, cm.TargetID, cm.Amount); err != nil {
			return types.ServerMessage{Type: "Error", Error: err.Error()}, true
		}
		return types.ServerMessage{}, false

	case "UseAbility":
		res, err := s.UseAbility(ctx, playerID)
		if err == nil {
			err = res.Err
		}
		if err != nil {
			return types.ServerMessage{Type: "Error", Error: err.Error(), RemainingSeconds: res.Remaining.Seconds()}, true
		}
		return types.ServerMessage{Type: "AbilityUsed", CooldownSeconds: res.Remaining.Seconds()}, true

	default:
		return types.ServerMessage{Type: "Error", Error: "unknown type"}, true
	}
}

func send(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, _ := json.Marshal(msg)
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
