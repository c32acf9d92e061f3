package match

import (
	"time"

	"github.com/DoyleJ11/royale-backend/internal/engine"
	"github.com/DoyleJ11/royale-backend/internal/roster"
)

// StatisticsSink receives the summary of every finished match. Record is
// called from the match goroutine and must not block.
type StatisticsSink interface {
	Record(s Summary)
}

type nopStats struct{}

func (nopStats) Record(Summary) {}

type TeamResult struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Placement int    `json:"placement"`
}

type PlayerResult struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	TeamID          string  `json:"team_id"`
	LegendID        string  `json:"legend_id"`
	Kills           int     `json:"kills"`
	Deaths          int     `json:"deaths"`
	Revives         int     `json:"revives"`
	DamageDealt     float64 `json:"damage_dealt"`
	SurvivalSeconds float64 `json:"survival_seconds"`
	Alive           bool    `json:"alive"`
}

type Summary struct {
	MatchID      string             `json:"match_id"`
	Settings     engine.Settings    `json:"settings"`
	StartedAt    time.Time          `json:"started_at"`
	EndedAt      time.Time          `json:"ended_at"`
	Outcome      engine.OutcomeKind `json:"outcome"`
	WinnerTeamID string             `json:"winner_team_id,omitempty"`
	ChampionID   string             `json:"champion_id,omitempty"`
	RingPhase    int                `json:"ring_phase"`
	Teams        []TeamResult       `json:"teams"`
	Players      []PlayerResult     `json:"players"`
}

// Summarize extracts statistics from a finished match. Surviving teams are
// placed first.
func Summarize(m engine.Match, snap roster.Snapshot, v engine.Verdict) Summary {
	s := Summary{
		MatchID:      m.ID,
		Settings:     m.Settings,
		Outcome:      v.Kind,
		WinnerTeamID: m.WinnerTeamID,
		ChampionID:   v.ChampionID,
		RingPhase:    m.CurrentRingPhase,
	}
	if m.StartTime != nil {
		s.StartedAt = *m.StartTime
	}
	if m.EndTime != nil {
		s.EndedAt = *m.EndTime
	}

	for _, t := range snap.Teams {
		if len(t.Members) == 0 {
			continue
		}
		placement := t.Placement
		if t.Alive {
			placement = 1
		}
		s.Teams = append(s.Teams, TeamResult{ID: t.ID, Name: t.Name, Placement: placement})
	}

	for _, p := range snap.Players {
		r := PlayerResult{
			ID:          p.ID,
			Name:        p.Name,
			TeamID:      p.TeamID,
			LegendID:    p.LegendID,
			Kills:       p.Kills,
			Deaths:      p.Revives,
			Revives:     p.Revives,
			DamageDealt: p.DamageDealt,
			Alive:       p.Alive,
		}
		end := s.EndedAt
		if !p.Alive {
			r.Deaths++
			if p.DiedAt != nil {
				end = *p.DiedAt
			}
		}
		if !s.StartedAt.IsZero() && end.After(s.StartedAt) {
			r.SurvivalSeconds = end.Sub(s.StartedAt).Seconds()
		}
		s.Players = append(s.Players, r)
	}
	return s
}
