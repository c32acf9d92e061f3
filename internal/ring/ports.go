package ring

import "time"

// PositionProvider resolves where a player stands. ok=false means the
// player is unavailable for this tick.
type PositionProvider interface {
	Position(playerID string) (p Point, ok bool)
}

// HealthMutator applies ring damage.
type HealthMutator interface {
	ApplyDamage(playerID string, amount float64)
	IsEliminated(playerID string) bool
}

// NotificationSink receives timeline events. Calls happen on the goroutine
// driving the engine and must not block.
type NotificationSink interface {
	Notify(n Notification)
}

// BoundaryAdapter mirrors the live boundary into something rendered.
type BoundaryAdapter interface {
	SetBoundary(matchID string, center Point, radius float64)
}

type NotificationKind string

const (
	NotePhaseStarted   NotificationKind = "PhaseStarted"
	NoteWarning        NotificationKind = "Warning"
	NoteShrinkStarted  NotificationKind = "ShrinkStarted"
	NotePhaseCompleted NotificationKind = "PhaseCompleted"
	NoteRingClosed     NotificationKind = "RingClosed"
)

type Notification struct {
	Kind             NotificationKind `json:"kind"`
	MatchID          string           `json:"match_id"`
	PhaseIndex       int              `json:"phase_index"`
	SecondsRemaining int              `json:"seconds_remaining,omitempty"`
	Radius           float64          `json:"radius"`
	NextRadius       float64          `json:"next_radius,omitempty"`
	DamagePerSecond  float64          `json:"damage_per_second"`
	At               time.Time        `json:"at"`
}

// SinkFunc adapts a function to NotificationSink.
type SinkFunc func(Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

type nopSink struct{}

func (nopSink) Notify(Notification) {}
