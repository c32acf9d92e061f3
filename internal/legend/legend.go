// Package legend holds the playable characters and their ability cooldowns.
package legend

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrUnknownLegend = errors.New("unknown legend")
	ErrOnCooldown    = errors.New("ability on cooldown")
)

// Legend is the capability every playable character exposes.
type Legend interface {
	ID() string
	DisplayName() string
	Ability() string
	Cooldown() time.Duration
}

type pathfinder struct{}

func (pathfinder) ID() string              { return "pathfinder" }
func (pathfinder) DisplayName() string     { return "Pathfinder" }
func (pathfinder) Ability() string         { return "Grappling Hook" }
func (pathfinder) Cooldown() time.Duration { return 15 * time.Second }

type wraith struct{}

func (wraith) ID() string              { return "wraith" }
func (wraith) DisplayName() string     { return "Wraith" }
func (wraith) Ability() string         { return "Into the Void" }
func (wraith) Cooldown() time.Duration { return 25 * time.Second }

type lifeline struct{}

func (lifeline) ID() string              { return "lifeline" }
func (lifeline) DisplayName() string     { return "Lifeline" }
func (lifeline) Ability() string         { return "D.O.C. Heal Drone" }
func (lifeline) Cooldown() time.Duration { return 45 * time.Second }

type bangalore struct{}

func (bangalore) ID() string              { return "bangalore" }
func (bangalore) DisplayName() string     { return "Bangalore" }
func (bangalore) Ability() string         { return "Smoke Launcher" }
func (bangalore) Cooldown() time.Duration { return 30 * time.Second }

type gibraltar struct{}

func (gibraltar) ID() string              { return "gibraltar" }
func (gibraltar) DisplayName() string     { return "Gibraltar" }
func (gibraltar) Ability() string         { return "Dome of Protection" }
func (gibraltar) Cooldown() time.Duration { return 30 * time.Second }

var registry = map[string]Legend{
	"pathfinder": pathfinder{},
	"wraith":     wraith{},
	"lifeline":   lifeline{},
	"bangalore":  bangalore{},
	"gibraltar":  gibraltar{},
}

// DefaultID is assigned when a player joins without choosing.
const DefaultID = "pathfinder"

// Lookup resolves a legend by id.
func Lookup(id string) (Legend, error) {
	l, ok := registry[id]
	if !ok {
		return nil, ErrUnknownLegend
	}
	return l, nil
}

// IDs lists every legend id in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Cooldowns tracks when each player may next use their ability.
type Cooldowns struct {
	mu    sync.Mutex
	ready map[string]time.Time
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{ready: make(map[string]time.Time)}
}

// Use consumes playerID's ability at now and returns the cooldown it
// started. On cooldown it returns the time left with ErrOnCooldown.
func (c *Cooldowns) Use(playerID string, l Legend, now time.Time) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if until, ok := c.ready[playerID]; ok && now.Before(until) {
		return until.Sub(now), ErrOnCooldown
	}
	c.ready[playerID] = now.Add(l.Cooldown())
	return l.Cooldown(), nil
}

// Reset makes playerID's ability ready again.
func (c *Cooldowns) Reset(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ready, playerID)
}
