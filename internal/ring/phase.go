package ring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
)

var ErrEmptyTable = errors.New("ring phase table is empty")

// PhaseConfig is one wait+shrink cycle of the ring. EndRadius wins over
// ShrinkFactor; with neither set the phase-indexed factor table applies.
type PhaseConfig struct {
	Phase           int      `json:"phase"`
	WaitSeconds     int      `json:"wait_seconds"`
	ShrinkSeconds   int      `json:"shrink_seconds"`
	DamagePerSecond float64  `json:"damage_per_second"`
	EndRadius       *float64 `json:"end_radius,omitempty"`
	ShrinkFactor    *float64 `json:"shrink_factor,omitempty"`
}

// PhaseTable is the immutable, ordered phase list shared read-only by every
// engine built from it.
type PhaseTable struct {
	phases []PhaseConfig
}

// defaultShrinkFactors maps phase number to the fraction of the current
// radius kept when a phase has no explicit end radius.
var defaultShrinkFactors = map[int]float64{
	1: 0.7,
	2: 0.6,
	3: 0.5,
	4: 0.4,
	5: 0.3,
	6: 0.2,
	7: 0.0,
}

const fallbackShrinkFactor = 0.8

// NewPhaseTable validates phases and returns a table owning a copy of them.
func NewPhaseTable(phases []PhaseConfig) (*PhaseTable, error) {
	if err := validatePhases(phases); err != nil {
		return nil, err
	}
	cp := make([]PhaseConfig, len(phases))
	copy(cp, phases)
	return &PhaseTable{phases: cp}, nil
}

// MustPhaseTable is NewPhaseTable for static tables known to be valid.
func MustPhaseTable(phases []PhaseConfig) *PhaseTable {
	t, err := NewPhaseTable(phases)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultPhases is the seven-phase, roughly forty minute storm.
func DefaultPhases() []PhaseConfig {
	return []PhaseConfig{
		{Phase: 1, WaitSeconds: 360, ShrinkSeconds: 240, DamagePerSecond: 0.02, EndRadius: radius(1200)},
		{Phase: 2, WaitSeconds: 180, ShrinkSeconds: 180, DamagePerSecond: 0.03, EndRadius: radius(900)},
		{Phase: 3, WaitSeconds: 180, ShrinkSeconds: 180, DamagePerSecond: 0.05, EndRadius: radius(600)},
		{Phase: 4, WaitSeconds: 160, ShrinkSeconds: 120, DamagePerSecond: 0.067, EndRadius: radius(400)},
		{Phase: 5, WaitSeconds: 160, ShrinkSeconds: 80, DamagePerSecond: 0.15, EndRadius: radius(200)},
		{Phase: 6, WaitSeconds: 120, ShrinkSeconds: 60, DamagePerSecond: 0.4, EndRadius: radius(100)},
		{Phase: 7, WaitSeconds: 60, ShrinkSeconds: 240, DamagePerSecond: 1.0, EndRadius: radius(0)},
	}
}

// DefaultTable wraps DefaultPhases.
func DefaultTable() *PhaseTable {
	return MustPhaseTable(DefaultPhases())
}

// LoadPhaseTable reads a JSON array of phases from path.
func LoadPhaseTable(path string) (*PhaseTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ring config: %w", err)
	}

	var phases []PhaseConfig
	if err := json.Unmarshal(data, &phases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ring config: %w", err)
	}
	return NewPhaseTable(phases)
}

func (t *PhaseTable) Len() int { return len(t.phases) }

// Phase returns the config at index i.
func (t *PhaseTable) Phase(i int) (PhaseConfig, bool) {
	if i < 0 || i >= len(t.phases) {
		return PhaseConfig{}, false
	}
	return t.phases[i], true
}

// Phases returns a copy of the ordered configs.
func (t *PhaseTable) Phases() []PhaseConfig {
	cp := make([]PhaseConfig, len(t.phases))
	copy(cp, t.phases)
	return cp
}

// ValidateStart checks the table against the radius a ring would start at.
func (t *PhaseTable) ValidateStart(initialRadius float64) error {
	if initialRadius < 0 {
		return fmt.Errorf("initial radius %.2f is negative", initialRadius)
	}
	for _, p := range t.phases {
		if p.EndRadius != nil && *p.EndRadius > initialRadius {
			return fmt.Errorf("phase %d: end radius %.2f exceeds initial radius %.2f", p.Phase, *p.EndRadius, initialRadius)
		}
	}
	return nil
}

// TargetRadius is the radius phase p shrinks to from current.
func (p PhaseConfig) TargetRadius(current float64) float64 {
	var r float64
	switch {
	case p.EndRadius != nil:
		r = *p.EndRadius
	case p.ShrinkFactor != nil:
		r = current * *p.ShrinkFactor
	default:
		f, ok := defaultShrinkFactors[p.Phase]
		if !ok {
			f = fallbackShrinkFactor
		}
		r = current * f
	}
	if r < 0 {
		r = 0
	}
	if r > current {
		r = current
	}
	return r
}

func validatePhases(phases []PhaseConfig) error {
	if len(phases) == 0 {
		return ErrEmptyTable
	}

	var errs error
	lastEnd := -1.0
	for i, p := range phases {
		if p.WaitSeconds < 0 {
			errs = multierr.Append(errs, fmt.Errorf("phase %d: negative wait %ds", p.Phase, p.WaitSeconds))
		}
		if p.ShrinkSeconds < 0 {
			errs = multierr.Append(errs, fmt.Errorf("phase %d: negative shrink %ds", p.Phase, p.ShrinkSeconds))
		}
		if p.DamagePerSecond < 0 {
			errs = multierr.Append(errs, fmt.Errorf("phase %d: negative damage %.3f", p.Phase, p.DamagePerSecond))
		}
		if i > 0 && p.Phase <= phases[i-1].Phase {
			errs = multierr.Append(errs, fmt.Errorf("phase %d: phase numbers must increase", p.Phase))
		}
		if p.ShrinkFactor != nil && (*p.ShrinkFactor < 0 || *p.ShrinkFactor > 1) {
			errs = multierr.Append(errs, fmt.Errorf("phase %d: shrink factor %.2f outside [0,1]", p.Phase, *p.ShrinkFactor))
		}
		if p.EndRadius != nil {
			end := *p.EndRadius
			if end < 0 {
				errs = multierr.Append(errs, fmt.Errorf("phase %d: negative end radius %.2f", p.Phase, end))
			}
			if lastEnd >= 0 && end > lastEnd {
				errs = multierr.Append(errs, fmt.Errorf("phase %d: end radius %.2f grows past previous %.2f", p.Phase, end, lastEnd))
			}
			lastEnd = end
		}
	}
	return errs
}

func radius(r float64) *float64 { return &r }
