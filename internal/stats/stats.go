// Package stats folds a player's finished matches into lifetime totals and
// decides which titles those totals unlock.
package stats

import (
	"slices"
	"strings"
)

// LegendStats are one player's totals while playing one legend.
type LegendStats struct {
	LegendID      string  `json:"legend_id"`
	Matches       int64   `json:"matches"`
	Wins          int64   `json:"wins"`
	Kills         int64   `json:"kills"`
	Deaths        int64   `json:"deaths"`
	DamageDealt   float64 `json:"damage_dealt"`
	SecondsPlayed float64 `json:"seconds_played"`
}

func (l LegendStats) KDRatio() float64 { return ratio(l.Kills, l.Deaths) }

// Line is a storage row: one legend's totals plus the per-match figures that
// do not sum.
type Line struct {
	LegendStats
	Revives  int64
	MaxKills int64
}

type PlayerStats struct {
	PlayerID        string        `json:"player_id"`
	Matches         int64         `json:"matches"`
	Wins            int64         `json:"wins"`
	Kills           int64         `json:"kills"`
	Deaths          int64         `json:"deaths"`
	Revives         int64         `json:"revives"`
	DamageDealt     float64       `json:"damage_dealt"`
	MaxKillsInMatch int64         `json:"max_kills_in_match"`
	Legends         []LegendStats `json:"legends"`
}

// Fold sums per-legend lines into lifetime stats. Legends are sorted by id.
func Fold(playerID string, lines []Line) PlayerStats {
	s := PlayerStats{PlayerID: playerID, Legends: []LegendStats{}}
	for _, l := range lines {
		s.Matches += l.Matches
		s.Wins += l.Wins
		s.Kills += l.Kills
		s.Deaths += l.Deaths
		s.Revives += l.Revives
		s.DamageDealt += l.DamageDealt
		s.MaxKillsInMatch = max(s.MaxKillsInMatch, l.MaxKills)
		s.Legends = append(s.Legends, l.LegendStats)
	}
	slices.SortFunc(s.Legends, func(a, b LegendStats) int { return strings.Compare(a.LegendID, b.LegendID) })
	return s
}

// KDRatio is kills per death, or plain kills before the first death.
func (s PlayerStats) KDRatio() float64 { return ratio(s.Kills, s.Deaths) }

// WinRate is the percentage of finished matches won.
func (s PlayerStats) WinRate() float64 {
	if s.Matches == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Matches) * 100
}

func (s PlayerStats) Legend(id string) (LegendStats, bool) {
	for _, l := range s.Legends {
		if l.LegendID == id {
			return l, true
		}
	}
	return LegendStats{}, false
}

// Value looks up a named figure for title requirements. Per-legend wins are
// named "legend_wins:<legend>".
func (s PlayerStats) Value(key string) (float64, bool) {
	switch key {
	case "matches":
		return float64(s.Matches), true
	case "wins":
		return float64(s.Wins), true
	case "kills":
		return float64(s.Kills), true
	case "deaths":
		return float64(s.Deaths), true
	case "revives":
		return float64(s.Revives), true
	case "damage":
		return s.DamageDealt, true
	case "max_kills_in_match":
		return float64(s.MaxKillsInMatch), true
	case "legends_used":
		return float64(len(s.Legends)), true
	}
	if id, ok := strings.CutPrefix(key, "legend_wins:"); ok {
		l, _ := s.Legend(id)
		return float64(l.Wins), true
	}
	return 0, false
}

func ratio(kills, deaths int64) float64 {
	if deaths == 0 {
		return float64(kills)
	}
	return float64(kills) / float64(deaths)
}
