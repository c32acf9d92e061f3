package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/DoyleJ11/royale-backend/internal/match"
)

// MatchRecord is one finished match.
type MatchRecord struct {
	gorm.Model
	MatchID      string         `gorm:"uniqueIndex;not null" json:"match_id"`
	Outcome      string         `gorm:"not null" json:"outcome"`
	WinnerTeamID string         `gorm:"index" json:"winner_team_id"`
	ChampionID   string         `json:"champion_id"`
	StartedAt    time.Time      `json:"started_at"`
	EndedAt      time.Time      `gorm:"index" json:"ended_at"`
	RingPhase    int            `json:"ring_phase"`
	MinPlayers   int            `json:"min_players"`
	MaxPlayers   int            `json:"max_players"`
	TeamSize     int            `json:"team_size"`
	Teams        []TeamRecord   `gorm:"foreignKey:MatchRecordID" json:"teams"`
	Players      []PlayerRecord `gorm:"foreignKey:MatchRecordID" json:"players"`
}

type TeamRecord struct {
	gorm.Model
	MatchRecordID uint   `gorm:"index" json:"-"`
	TeamID        string `gorm:"not null" json:"team_id"`
	Name          string `json:"name"`
	Placement     int    `json:"placement"`
}

type PlayerRecord struct {
	gorm.Model
	MatchRecordID   uint    `gorm:"index" json:"-"`
	PlayerID        string  `gorm:"index;not null" json:"player_id"`
	Name            string  `json:"name"`
	TeamID          string  `json:"team_id"`
	LegendID        string  `json:"legend_id"`
	Kills           int     `json:"kills"`
	Deaths          int     `json:"deaths"`
	Revives         int     `json:"revives"`
	DamageDealt     float64 `json:"damage_dealt"`
	SurvivalSeconds float64 `json:"survival_seconds"`
	Survived        bool    `json:"survived"`
}

func FromSummary(s match.Summary) MatchRecord {
	rec := MatchRecord{
		MatchID:      s.MatchID,
		Outcome:      string(s.Outcome),
		WinnerTeamID: s.WinnerTeamID,
		ChampionID:   s.ChampionID,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		RingPhase:    s.RingPhase,
		MinPlayers:   s.Settings.MinPlayers,
		MaxPlayers:   s.Settings.MaxPlayers,
		TeamSize:     s.Settings.TeamSize,
	}
	for _, t := range s.Teams {
		rec.Teams = append(rec.Teams, TeamRecord{TeamID: t.ID, Name: t.Name, Placement: t.Placement})
	}
	for _, p := range s.Players {
		rec.Players = append(rec.Players, PlayerRecord{
			PlayerID:        p.ID,
			Name:            p.Name,
			TeamID:          p.TeamID,
			LegendID:        p.LegendID,
			Kills:           p.Kills,
			Deaths:          p.Deaths,
			Revives:         p.Revives,
			DamageDealt:     p.DamageDealt,
			SurvivalSeconds: p.SurvivalSeconds,
			Survived:        p.Alive,
		})
	}
	return rec
}
