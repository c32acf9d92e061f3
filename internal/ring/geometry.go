package ring

import (
	"math"
	"math/rand"
)

// Point is a position on the horizontal plane.
type Point struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Z-q.Z)
}

// Lerp moves from p toward q by t in [0,1].
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Z: p.Z + (q.Z-p.Z)*t}
}

// Bounds is the playable map rectangle. The zero value means unbounded.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinZ float64 `json:"min_z"`
	MaxX float64 `json:"max_x"`
	MaxZ float64 `json:"max_z"`
}

// SquareBounds centers a square of the given half size on c.
func SquareBounds(c Point, half float64) Bounds {
	return Bounds{MinX: c.X - half, MinZ: c.Z - half, MaxX: c.X + half, MaxZ: c.Z + half}
}

func (b Bounds) IsZero() bool { return b == Bounds{} }

// CircleOutside reports whether the circle lies entirely outside b.
func (b Bounds) CircleOutside(c Point, r float64) bool {
	if b.IsZero() {
		return false
	}
	dx := math.Max(math.Max(b.MinX-c.X, 0), c.X-b.MaxX)
	dz := math.Max(math.Max(b.MinZ-c.Z, 0), c.Z-b.MaxZ)
	return math.Hypot(dx, dz) > r
}

// Inside is the point-in-circle test; the boundary itself counts as inside.
func Inside(p, center Point, radius float64) bool {
	return p.Distance(center) <= radius
}

const (
	centerDriftFraction = 0.3
	centerAttempts      = 10
)

// nextCenter picks a center within centerDriftFraction of radius from cur.
// Candidates placing the next ring fully off the map are retried; when every
// attempt fails cur is kept.
func nextCenter(rng *rand.Rand, cur Point, radius, nextRadius float64, b Bounds) (Point, bool) {
	maxDist := radius * centerDriftFraction
	for range centerAttempts {
		angle := rng.Float64() * 2 * math.Pi
		dist := rng.Float64() * maxDist
		cand := Point{X: cur.X + dist*math.Cos(angle), Z: cur.Z + dist*math.Sin(angle)}
		if !b.CircleOutside(cand, nextRadius) {
			return cand, true
		}
	}
	return cur, false
}
