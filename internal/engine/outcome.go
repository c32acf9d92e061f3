package engine

import "github.com/DoyleJ11/royale-backend/internal/roster"

type OutcomeKind string

const (
	OutcomeUndecided OutcomeKind = "undecided"
	OutcomeTeamWin   OutcomeKind = "team_win"
	OutcomeDraw      OutcomeKind = "draw"
)

// Verdict is the evaluator's reading of a roster. Champion is informational
// and never changes Kind.
type Verdict struct {
	Kind         OutcomeKind `json:"kind"`
	WinnerTeamID string      `json:"winner_team_id,omitempty"`
	ChampionID   string      `json:"champion_id,omitempty"`
}

func (v Verdict) Decisive() bool { return v.Kind != OutcomeUndecided }

// Evaluate decides the match from a roster snapshot taken after every
// elimination of one pass has been applied, so teams emptied together
// produce a draw.
func Evaluate(snap roster.Snapshot, settings Settings) Verdict {
	alive := snap.AliveTeams()
	switch len(alive) {
	case 0:
		return Verdict{Kind: OutcomeDraw}
	case 1:
		v := Verdict{Kind: OutcomeTeamWin, WinnerTeamID: alive[0].ID}
		if settings.TrackLastPlayer && len(alive[0].AliveMembers) == 1 {
			v.ChampionID = alive[0].AliveMembers[0]
		}
		return v
	default:
		return Verdict{Kind: OutcomeUndecided}
	}
}
