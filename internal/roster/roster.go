// Package roster tracks which players belong to which team and who is
// still alive in a match.
package roster

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrDuplicatePlayer   = errors.New("player already in match")
	ErrUnknownTeam       = errors.New("unknown team")
	ErrTeamFull          = errors.New("team is full")
	ErrRosterFull        = errors.New("every team is full")
	ErrAlreadyEliminated = errors.New("player already eliminated")
	ErrPlayerAlive       = errors.New("player is alive")
	ErrTeamEliminated    = errors.New("team already eliminated")
)

var teamColors = []string{"red", "blue", "green", "yellow"}

// Player is a match-scoped participant. TeamID is a lookup key only.
type Player struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	TeamID      string     `json:"team_id"`
	LegendID    string     `json:"legend_id"`
	Alive       bool       `json:"alive"`
	Kills       int        `json:"kills"`
	DamageDealt float64    `json:"damage_dealt"`
	Revives     int        `json:"revives"`
	DiedAt      *time.Time `json:"died_at,omitempty"`
}

type Team struct {
	ID           string
	Name         string
	Members      []string
	Placement    int
	EliminatedAt *time.Time
}

// TeamView is the read-only projection of a team.
type TeamView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Members      []string   `json:"members"`
	AliveMembers []string   `json:"alive_members"`
	Alive        bool       `json:"alive"`
	Placement    int        `json:"placement,omitempty"`
	EliminatedAt *time.Time `json:"eliminated_at,omitempty"`
}

type Snapshot struct {
	Teams   []TeamView `json:"teams"`
	Players []Player   `json:"players"`
}

// AliveTeams filters the snapshot to teams with a living member.
func (s Snapshot) AliveTeams() []TeamView {
	var out []TeamView
	for _, t := range s.Teams {
		if t.Alive {
			out = append(out, t)
		}
	}
	return out
}

// EliminationEvent is produced when a death empties a team.
type EliminationEvent struct {
	TeamID         string
	RemainingTeams int
}

type Roster struct {
	teamSize int
	teams    []*Team
	byID     map[string]*Team
	players  map[string]*Player
	order    []string
}

// New builds teamCount empty teams of at most teamSize members each.
func New(teamCount, teamSize int) *Roster {
	r := &Roster{
		teamSize: teamSize,
		byID:     make(map[string]*Team, teamCount),
		players:  make(map[string]*Player),
	}
	title := cases.Title(language.English)
	for i := range teamCount {
		name := fmt.Sprintf("Team %d", i+1)
		if i < len(teamColors) {
			name = title.String(teamColors[i]) + " Team"
		}
		t := &Team{ID: uuid.NewString(), Name: name}
		r.teams = append(r.teams, t)
		r.byID[t.ID] = t
	}
	return r
}

// Add places a player on teamID, or on the smallest non-full team when
// teamID is empty.
func (r *Roster) Add(id, name, legendID, teamID string) (Player, error) {
	if _, ok := r.players[id]; ok {
		return Player{}, ErrDuplicatePlayer
	}

	var team *Team
	if teamID != "" {
		t, ok := r.byID[teamID]
		if !ok {
			return Player{}, ErrUnknownTeam
		}
		if len(t.Members) >= r.teamSize {
			return Player{}, ErrTeamFull
		}
		team = t
	} else {
		for _, t := range r.teams {
			if len(t.Members) >= r.teamSize {
				continue
			}
			if team == nil || len(t.Members) < len(team.Members) {
				team = t
			}
		}
		if team == nil {
			return Player{}, ErrRosterFull
		}
	}

	p := &Player{ID: id, Name: name, TeamID: team.ID, LegendID: legendID, Alive: true}
	team.Members = append(team.Members, id)
	r.players[id] = p
	r.order = append(r.order, id)
	return *p, nil
}

// Remove takes a player out of the match entirely.
func (r *Roster) Remove(id string) error {
	p, ok := r.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	t := r.byID[p.TeamID]
	t.Members = slices.DeleteFunc(t.Members, func(m string) bool { return m == id })
	r.order = slices.DeleteFunc(r.order, func(m string) bool { return m == id })
	delete(r.players, id)
	return nil
}

// Eliminate marks a player dead. When that empties the player's team, the
// team gets the next placement and an event is returned.
func (r *Roster) Eliminate(id string, at time.Time) (*EliminationEvent, error) {
	p, ok := r.players[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if !p.Alive {
		return nil, ErrAlreadyEliminated
	}
	p.Alive = false
	died := at
	p.DiedAt = &died

	t := r.byID[p.TeamID]
	if r.aliveMembers(t) > 0 {
		return nil, nil
	}
	remaining := r.AliveTeamCount()
	t.Placement = remaining + 1
	t.EliminatedAt = &died
	return &EliminationEvent{TeamID: t.ID, RemainingTeams: remaining}, nil
}

// Rank gives every listed team that has been emptied the same placement,
// one below the teams still standing, and returns it.
func (r *Roster) Rank(teamIDs []string) int {
	place := r.AliveTeamCount() + 1
	for _, id := range teamIDs {
		if t, ok := r.byID[id]; ok && r.aliveMembers(t) == 0 {
			t.Placement = place
		}
	}
	return place
}

// Revive returns an eliminated player to the alive set. Their team must
// still be standing.
func (r *Roster) Revive(id string) error {
	p, ok := r.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if p.Alive {
		return ErrPlayerAlive
	}
	if r.aliveMembers(r.byID[p.TeamID]) == 0 {
		return ErrTeamEliminated
	}
	p.Alive = true
	p.DiedAt = nil
	p.Revives++
	return nil
}

func (r *Roster) RecordKill(killerID string) error {
	p, ok := r.players[killerID]
	if !ok {
		return ErrUnknownPlayer
	}
	p.Kills++
	return nil
}

func (r *Roster) RecordDamage(playerID string, amount float64) error {
	p, ok := r.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	p.DamageDealt += amount
	return nil
}

func (r *Roster) Player(id string) (Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Size is the number of joined players, alive or not.
func (r *Roster) Size() int { return len(r.players) }

func (r *Roster) AliveTeamCount() int {
	n := 0
	for _, t := range r.teams {
		if r.aliveMembers(t) > 0 {
			n++
		}
	}
	return n
}

func (r *Roster) AliveTeams() []TeamView {
	var out []TeamView
	for _, t := range r.teams {
		if r.aliveMembers(t) > 0 {
			out = append(out, r.view(t))
		}
	}
	return out
}

// AlivePlayerIDs lists living players in join order.
func (r *Roster) AlivePlayerIDs() []string {
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if r.players[id].Alive {
			out = append(out, id)
		}
	}
	return out
}

func (r *Roster) Snapshot() Snapshot {
	s := Snapshot{
		Teams:   make([]TeamView, 0, len(r.teams)),
		Players: make([]Player, 0, len(r.order)),
	}
	for _, t := range r.teams {
		s.Teams = append(s.Teams, r.view(t))
	}
	for _, id := range r.order {
		p := *r.players[id]
		if p.DiedAt != nil {
			d := *p.DiedAt
			p.DiedAt = &d
		}
		s.Players = append(s.Players, p)
	}
	return s
}

func (r *Roster) view(t *Team) TeamView {
	v := TeamView{
		ID:        t.ID,
		Name:      t.Name,
		Members:   slices.Clone(t.Members),
		Placement: t.Placement,
	}
	if t.EliminatedAt != nil {
		e := *t.EliminatedAt
		v.EliminatedAt = &e
	}
	for _, m := range t.Members {
		if r.players[m].Alive {
			v.AliveMembers = append(v.AliveMembers, m)
		}
	}
	v.Alive = len(v.AliveMembers) > 0
	return v
}

func (r *Roster) aliveMembers(t *Team) int {
	n := 0
	for _, m := range t.Members {
		if r.players[m].Alive {
			n++
		}
	}
	return n
}
