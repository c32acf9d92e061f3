package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/royale-backend/internal/engine"
	"github.com/DoyleJ11/royale-backend/internal/hub"
	"github.com/DoyleJ11/royale-backend/internal/legend"
	"github.com/DoyleJ11/royale-backend/internal/match"
	"github.com/DoyleJ11/royale-backend/internal/roster"
	"github.com/DoyleJ11/royale-backend/internal/stats"
	"github.com/DoyleJ11/royale-backend/internal/store"
	"github.com/DoyleJ11/royale-backend/internal/types"
)

var errBadRequest = errors.New("bad request")

// History serves finished matches. Nil when no database is configured.
type History interface {
	RecentMatches(ctx context.Context, limit int) ([]store.MatchRecord, error)
	PlayerStats(ctx context.Context, playerID string) (stats.PlayerStats, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	var cfgErr *engine.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, hub.ErrMatchNotFound),
		errors.Is(err, store.ErrNoMatches),
		errors.Is(err, roster.ErrUnknownPlayer),
		errors.Is(err, roster.ErrUnknownTeam):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, legend.ErrUnknownLegend):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidState),
		errors.Is(err, roster.ErrDuplicatePlayer),
		errors.Is(err, roster.ErrTeamFull),
		errors.Is(err, roster.ErrRosterFull),
		errors.Is(err, roster.ErrAlreadyEliminated),
		errors.Is(err, roster.ErrPlayerAlive),
		errors.Is(err, roster.ErrTeamEliminated),
		errors.Is(err, match.ErrPlayerDead),
		errors.Is(err, legend.ErrOnCooldown):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, hub.ErrHubClosed), errors.Is(err, match.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), types.ErrorResponse{Error: err.Error()})
}

// decode reads an optional JSON body into v.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

func requirePlayer(id string) error {
	if id == "" {
		return errors.Join(errBadRequest, errors.New("player_id is required"))
	}
	return nil
}

func CreateMatch(c hub.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateMatchRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		s, err := c.Create(r.Context(), req.Settings)
		if err != nil {
			writeError(w, err)
			return
		}
		v, err := s.State(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.CreateMatchResponse{MatchID: s.ID(), Match: v.Match})
	}
}

func ListMatches(c hub.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := c.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"matches": ids})
	}
}

func GetMatch(c hub.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := c.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		v, err := s.State(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, match.Snapshot{
			Version: v.Version,
			Match:   v.Match,
			Ring:    v.Status,
			Roster:  v.Roster,
			Verdict: v.Verdict,
		})
	}
}

func RingStatus(c hub.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := c.Status(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if st == nil {
			writeError(w, errors.Join(engine.ErrInvalidState, errors.New("match has not started")))
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func Join(c hub.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.JoinRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := requirePlayer(req.PlayerID); err != nil {
			writeError(w, err)
			return
		}
		p, err := c.Join(r.Context(), chi.URLParam(r, "id"), req.PlayerID, req.Name, req.LegendID, req.TeamID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// playerAction wraps the endpoints that only take a player id.
func playerAction(do func(ctx context.Context, matchID, playerID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PlayerRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := requirePlayer(req.PlayerID); err != nil {
			writeError(w, err)
			return
		}
		if err := do(r.Context(), chi.URLParam(r, "id"), req.PlayerID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Leave(c hub.Controller) http.HandlerFunc  { return playerAction(c.Leave) }
func Revive(c hub.Controller) http.HandlerFunc { return playerAction(c.Revive) }

func Start(c hub.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Start(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Finish(c hub.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.FinishRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := c.Finish(r.Context(), chi.URLParam(r, "id"), req.WinnerTeamID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Eliminate(c hub.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.EliminateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := requirePlayer(req.PlayerID); err != nil {
			writeError(w, err)
			return
		}
		if err := c.OnPlayerEliminated(r.Context(), chi.URLParam(r, "id"), req.PlayerID, req.KillerID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Legends(w http.ResponseWriter, r *http.Request) {
	out := make([]types.LegendInfo, 0, len(legend.IDs()))
	for _, id := range legend.IDs() {
		l, _ := legend.Lookup(id)
		out = append(out, types.LegendInfo{
			ID:              l.ID(),
			Name:            l.DisplayName(),
			Ability:         l.Ability(),
			CooldownSeconds: l.Cooldown().Seconds(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func MatchHistory(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h == nil {
			writeJSON(w, http.StatusServiceUnavailable, types.ErrorResponse{Error: "match history is not configured"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		recs, err := h.RecentMatches(r.Context(), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func PlayerStats(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h == nil {
			writeJSON(w, http.StatusServiceUnavailable, types.ErrorResponse{Error: "player statistics are not configured"})
			return
		}
		s, err := h.PlayerStats(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.PlayerStatsResponse{
			Stats:   s,
			KDRatio: s.KDRatio(),
			WinRate: s.WinRate(),
			Titles:  stats.Earned(stats.DefaultTitles, s),
		})
	}
}

// Titles lists every title that is not hidden.
func Titles(w http.ResponseWriter, r *http.Request) {
	out := []stats.Title{}
	for _, t := range stats.DefaultTitles {
		if !t.Hidden {
			out = append(out, t)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
