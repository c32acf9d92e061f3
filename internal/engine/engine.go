package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

var ErrInvalidState = errors.New("invalid match state")
var ErrNotEnoughPlayers = errors.New("not enough players to start")
var ErrRingRegressed = errors.New("ring phase cannot go backwards")
var ErrUnsupportedCommand = errors.New("unsupported command")

// ConfigurationError aborts match creation. Err may hold several problems.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

type MatchState string

const (
	StateWaiting  MatchState = "WAITING"
	StateActive   MatchState = "ACTIVE"
	StateFinished MatchState = "FINISHED"
)

type Settings struct {
	MinPlayers      int  `json:"min_players"`
	MaxPlayers      int  `json:"max_players"`
	TeamSize        int  `json:"team_size"`
	TrackLastPlayer bool `json:"track_last_player"`
}

// TeamCount is how many teams a full lobby splits into.
func (s Settings) TeamCount() int {
	return (s.MaxPlayers + s.TeamSize - 1) / s.TeamSize
}

// DefaultPlayerLimit caps MaxPlayers when no limit is configured.
const DefaultPlayerLimit = 100

// Validate collects every problem with s under DefaultPlayerLimit.
func (s Settings) Validate() error { return s.ValidateWithin(DefaultPlayerLimit) }

// ValidateWithin collects every problem with s, including a MaxPlayers above
// limit. A non-positive limit means DefaultPlayerLimit.
func (s Settings) ValidateWithin(limit int) error {
	if limit <= 0 {
		limit = DefaultPlayerLimit
	}
	var errs error
	if s.TeamSize < 1 {
		errs = multierr.Append(errs, fmt.Errorf("team size %d must be at least 1", s.TeamSize))
	}
	if s.MinPlayers < 1 {
		errs = multierr.Append(errs, fmt.Errorf("min players %d must be at least 1", s.MinPlayers))
	}
	if s.MaxPlayers < s.MinPlayers {
		errs = multierr.Append(errs, fmt.Errorf("max players %d below min players %d", s.MaxPlayers, s.MinPlayers))
	}
	if s.MaxPlayers > limit {
		errs = multierr.Append(errs, fmt.Errorf("max players %d above limit %d", s.MaxPlayers, limit))
	}
	if errs != nil {
		return &ConfigurationError{Err: errs}
	}
	return nil
}

// Match is the lifecycle record of one match. Teams live in the roster.
type Match struct {
	ID               string     `json:"id"`
	State            MatchState `json:"state"`
	Settings         Settings   `json:"settings"`
	CreatedAt        time.Time  `json:"created_at"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	WinnerTeamID     string     `json:"winner_team_id,omitempty"`
	CurrentRingPhase int        `json:"current_ring_phase"`
}

// NewMatch returns a WAITING match. limit bounds settings.MaxPlayers.
func NewMatch(id string, settings Settings, limit int, createdAt time.Time) (Match, error) {
	if err := settings.ValidateWithin(limit); err != nil {
		return Match{}, err
	}
	return Match{ID: id, State: StateWaiting, Settings: settings, CreatedAt: createdAt}, nil
}

type CommandType string

const (
	CmdStart       CommandType = "Start"
	CmdFinish      CommandType = "Finish"
	CmdAdvanceRing CommandType = "AdvanceRing"
)

/*
	CmdStart       -> EvtMatchStarted
	CmdFinish      -> EvtMatchFinished (nothing when already finished)
	CmdAdvanceRing -> EvtRingAdvanced  (nothing when the phase is unchanged)
*/

type Command struct {
	Type         CommandType
	At           time.Time
	RosterSize   int
	WinnerTeamID string
	RingPhase    int
}

type EventType string

const (
	EvtMatchStarted  EventType = "MatchStarted"
	EvtMatchFinished EventType = "MatchFinished"
	EvtRingAdvanced  EventType = "RingAdvanced"
)

type Event struct {
	Type         EventType `json:"type"`
	MatchID      string    `json:"match_id"`
	At           time.Time `json:"at"`
	WinnerTeamID string    `json:"winner_team_id,omitempty"`
	RingPhase    int       `json:"ring_phase,omitempty"`
}

// Apply runs one lifecycle transition. On error the returned Match is m,
// unchanged.
func Apply(m Match, cmd Command) ([]Event, Match, error) {
	next := m

	switch cmd.Type {
	case CmdStart:
		if m.State != StateWaiting {
			return nil, m, fmt.Errorf("%w: cannot start from %s", ErrInvalidState, m.State)
		}
		if cmd.RosterSize < m.Settings.MinPlayers {
			return nil, m, fmt.Errorf("%w: %w (%d/%d)", ErrInvalidState, ErrNotEnoughPlayers, cmd.RosterSize, m.Settings.MinPlayers)
		}
		start := cmd.At
		next.State = StateActive
		next.StartTime = &start
		return []Event{{Type: EvtMatchStarted, MatchID: m.ID, At: start}}, next, nil

	case CmdFinish:
		switch m.State {
		case StateFinished:
			return nil, m, nil
		case StateActive:
		default:
			return nil, m, fmt.Errorf("%w: cannot finish from %s", ErrInvalidState, m.State)
		}
		end := cmd.At
		next.State = StateFinished
		next.EndTime = &end
		next.WinnerTeamID = cmd.WinnerTeamID
		return []Event{{Type: EvtMatchFinished, MatchID: m.ID, At: end, WinnerTeamID: cmd.WinnerTeamID}}, next, nil

	case CmdAdvanceRing:
		if m.State != StateActive {
			return nil, m, fmt.Errorf("%w: ring advances only while active", ErrInvalidState)
		}
		if cmd.RingPhase < m.CurrentRingPhase {
			return nil, m, ErrRingRegressed
		}
		if cmd.RingPhase == m.CurrentRingPhase {
			return nil, m, nil
		}
		next.CurrentRingPhase = cmd.RingPhase
		return []Event{{Type: EvtRingAdvanced, MatchID: m.ID, At: cmd.At, RingPhase: cmd.RingPhase}}, next, nil

	default:
		return nil, m, ErrUnsupportedCommand
	}
}
