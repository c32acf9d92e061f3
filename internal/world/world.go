// Package world is an in-memory stand-in for the game world: where each
// player stands and how much health they have left.
package world

import (
	"sync"

	"github.com/DoyleJ11/royale-backend/internal/ring"
)

const DefaultMaxHealth = 20.0

type vitals struct {
	pos    ring.Point
	placed bool
	health float64
}

// World is safe for concurrent use. Position reports arrive from socket
// readers while the match actor reads them during ticks.
type World struct {
	mu        sync.RWMutex
	maxHealth float64
	players   map[string]*vitals
}

func New(maxHealth float64) *World {
	if maxHealth <= 0 {
		maxHealth = DefaultMaxHealth
	}
	return &World{maxHealth: maxHealth, players: make(map[string]*vitals)}
}

// Spawn gives a player full health. Their position stays unknown until the
// first report.
func (w *World) Spawn(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.players[id] = &vitals{health: w.maxHealth}
}

func (w *World) Remove(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.players, id)
}

// Restore refills a known player's health, used on revive.
func (w *World) Restore(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.players[id]
	if !ok {
		return false
	}
	v.health = w.maxHealth
	return true
}

func (w *World) SetPosition(id string, p ring.Point) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.players[id]
	if !ok {
		return false
	}
	v.pos = p
	v.placed = true
	return true
}

func (w *World) Position(id string) (ring.Point, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.players[id]
	if !ok || !v.placed {
		return ring.Point{}, false
	}
	return v.pos, true
}

func (w *World) ApplyDamage(id string, amount float64) {
	if amount <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.players[id]
	if !ok {
		return
	}
	v.health = max(0, v.health-amount)
}

// IsEliminated reports whether a known player has run out of health.
func (w *World) IsEliminated(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.players[id]
	return ok && v.health <= 0
}

func (w *World) Health(id string) (float64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.players[id]
	if !ok {
		return 0, false
	}
	return v.health, true
}

// Healths copies every player's current health.
func (w *World) Healths() map[string]float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]float64, len(w.players))
	for id, v := range w.players {
		out[id] = v.health
	}
	return out
}

var (
	_ ring.PositionProvider = (*World)(nil)
	_ ring.HealthMutator    = (*World)(nil)
)
