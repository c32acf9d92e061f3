package stats

import (
	"cmp"
	"slices"
)

// Condition decides whether lifetime stats qualify for a title.
type Condition interface {
	Met(s PlayerStats) bool
}

// AtLeast requires every named figure to reach its threshold. Unknown names
// never match.
type AtLeast map[string]float64

func (a AtLeast) Met(s PlayerStats) bool {
	for key, want := range a {
		got, ok := s.Value(key)
		if !ok || got < want {
			return false
		}
	}
	return true
}

type All []Condition

func (a All) Met(s PlayerStats) bool {
	for _, c := range a {
		if !c.Met(s) {
			return false
		}
	}
	return true
}

type Any []Condition

func (a Any) Met(s PlayerStats) bool {
	for _, c := range a {
		if c.Met(s) {
			return true
		}
	}
	return false
}

type Not struct{ Condition }

func (n Not) Met(s PlayerStats) bool { return !n.Condition.Met(s) }

type Title struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Priority    int       `json:"priority"`
	Hidden      bool      `json:"hidden"`
	Condition   Condition `json:"-"`
}

var DefaultTitles = []Title{
	{ID: "rookie", Name: "Rookie", Description: "Finish a match", Priority: 1,
		Condition: AtLeast{"matches": 1}},
	{ID: "first_blood", Name: "First Blood", Description: "Get a kill", Priority: 5,
		Condition: AtLeast{"kills": 1}},
	{ID: "champion", Name: "Champion", Description: "Win a match", Priority: 10,
		Condition: AtLeast{"wins": 1}},
	{ID: "veteran", Name: "Veteran", Description: "Win 10 matches", Priority: 20,
		Condition: AtLeast{"wins": 10}},
	{ID: "slayer", Name: "Slayer", Description: "Get 100 kills", Priority: 20,
		Condition: AtLeast{"kills": 100}},
	{ID: "rampage", Name: "Rampage", Description: "Get 5 kills in one match", Priority: 15,
		Condition: AtLeast{"max_kills_in_match": 5}},
	{ID: "medic", Name: "Medic", Description: "Be revived 25 times", Priority: 10,
		Condition: AtLeast{"revives": 25}},
	{ID: "versatile", Name: "Versatile", Description: "Play every legend", Priority: 10,
		Condition: AtLeast{"legends_used": 5}},
	{ID: "phantom", Name: "Phantom", Description: "Win 5 matches as Wraith", Priority: 15,
		Condition: AtLeast{"legend_wins:wraith": 5}},
	{ID: "regular", Name: "Regular", Description: "Play 50 matches or win 3", Priority: 8,
		Condition: Any{AtLeast{"matches": 50}, AtLeast{"wins": 3}}},
	{ID: "pacifist", Name: "Pacifist", Description: "Win without ever getting a kill", Priority: 25, Hidden: true,
		Condition: All{AtLeast{"wins": 1}, Not{AtLeast{"kills": 1}}}},
}

// Earned returns the titles s qualifies for, highest priority first.
func Earned(titles []Title, s PlayerStats) []Title {
	out := []Title{}
	for _, t := range titles {
		if t.Condition != nil && t.Condition.Met(s) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b Title) int { return cmp.Compare(b.Priority, a.Priority) })
	return out
}
