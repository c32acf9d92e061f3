package match

import (
	"time"

	"github.com/DoyleJ11/royale-backend/internal/engine"
	"github.com/DoyleJ11/royale-backend/internal/ring"
	"github.com/DoyleJ11/royale-backend/internal/roster"
)

type Msg interface{ isMatchMsg() }

type JoinResult struct {
	Player roster.Player
	Err    error
}

type Join struct {
	PlayerID string
	Name     string
	LegendID string
	TeamID   string // empty picks the smallest team
	Reply    chan JoinResult
}

func (Join) isMatchMsg() {}

// Leave removes a player while waiting. Once active, leaving counts as an
// elimination.
type Leave struct {
	PlayerID string
	Reply    chan error
}

func (Leave) isMatchMsg() {}

type Start struct {
	Reply chan error
}

func (Start) isMatchMsg() {}

type Finish struct {
	WinnerTeamID string
	Reply        chan error
}

func (Finish) isMatchMsg() {}

// Eliminate reports a death decided outside the ring, e.g. a kill.
type Eliminate struct {
	PlayerID string
	KillerID string
	Reply    chan error
}

func (Eliminate) isMatchMsg() {}

// Damage is player-dealt damage.
type Damage struct {
	AttackerID string
	TargetID   string
	Amount     float64
	Reply      chan error
}

func (Damage) isMatchMsg() {}

type Revive struct {
	PlayerID string
	Reply    chan error
}

func (Revive) isMatchMsg() {}

type AbilityResult struct {
	Remaining time.Duration
	Err       error
}

type UseAbility struct {
	PlayerID string
	Reply    chan AbilityResult
}

func (UseAbility) isMatchMsg() {}

type Subscribe struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Subscribe) isMatchMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isMatchMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isMatchMsg() {}

type Shutdown struct{}

func (Shutdown) isMatchMsg() {}

// Scheduler ticks. Epoch is captured when the task is registered.
type timelineTick struct {
	epoch uint64
	now   time.Time
}

func (timelineTick) isMatchMsg() {}

type damageTick struct {
	epoch uint64
	now   time.Time
}

func (damageTick) isMatchMsg() {}

// Snapshot is what subscribers receive after every change.
type Snapshot struct {
	Version       int                 `json:"version"`
	Match         engine.Match        `json:"match"`
	Ring          *ring.Status        `json:"ring,omitempty"`
	Roster        roster.Snapshot     `json:"roster"`
	Health        map[string]float64  `json:"health,omitempty"`
	Verdict       *engine.Verdict     `json:"verdict,omitempty"`
	Notifications []ring.Notification `json:"notifications,omitempty"`
}

type View struct {
	Version    int
	NumClients int
	Epoch      uint64
	Tasks      int
	Match      engine.Match
	Ring       *ring.State
	Status     *ring.Status
	Roster     roster.Snapshot
	Verdict    *engine.Verdict
}
