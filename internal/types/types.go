package types

import (
	"github.com/DoyleJ11/royale-backend/internal/engine"
	"github.com/DoyleJ11/royale-backend/internal/match"
	"github.com/DoyleJ11/royale-backend/internal/stats"
)

// ClientMessage is one frame from a player's socket.
type ClientMessage struct {
	Type     string  `json:"type"` // "Position" | "Damage" | "UseAbility"
	X        float64 `json:"x,omitempty"`
	Z        float64 `json:"z,omitempty"`
	TargetID string  `json:"target_id,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

type ServerMessage struct {
	Type             string          `json:"type"` // "StateSnapshot" | "AbilityUsed" | "Error"
	Version          int             `json:"version,omitempty"`
	State            *match.Snapshot `json:"state,omitempty"`
	CooldownSeconds  float64         `json:"cooldown_seconds,omitempty"`
	RemainingSeconds float64         `json:"remaining_seconds,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// HTTP bodies.

type CreateMatchRequest struct {
	Settings *engine.Settings `json:"settings,omitempty"`
}

type CreateMatchResponse struct {
	MatchID string       `json:"match_id"`
	Match   engine.Match `json:"match"`
}

type JoinRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
	LegendID string `json:"legend_id,omitempty"`
	TeamID   string `json:"team_id,omitempty"`
}

type PlayerRequest struct {
	PlayerID string `json:"player_id"`
}

type FinishRequest struct {
	WinnerTeamID string `json:"winner_team_id,omitempty"`
}

type EliminateRequest struct {
	PlayerID string `json:"player_id"`
	KillerID string `json:"killer_id,omitempty"`
}

type LegendInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Ability         string  `json:"ability"`
	CooldownSeconds float64 `json:"cooldown_seconds"`
}

// PlayerStatsResponse is a player's lifetime record with the titles it earns.
type PlayerStatsResponse struct {
	Stats   stats.PlayerStats `json:"stats"`
	KDRatio float64           `json:"kd_ratio"`
	WinRate float64           `json:"win_rate"`
	Titles  []stats.Title     `json:"titles"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
