package placement

import "math"

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultNoteWidth matches the rendered card width (16rem).
	DefaultNoteWidth = 256.0

	// DefaultNoteHeight is the estimated rendered card height.
	DefaultNoteHeight = 180.0

	// DefaultMinDistance is the extra gap kept between cards.
	DefaultMinDistance = 40.0

	// DefaultSearchRadius is how far the spiral travels before giving up.
	DefaultSearchRadius = 300.0

	// DefaultSpiralStep is the radius increment per full spiral turn.
	DefaultSpiralStep = 20.0
)

// angleStep is the angular increment between spiral candidates (45°).
const angleStep = math.Pi / 4

// =============================================================================
// Types
// =============================================================================

// Point is the centre of a note on the wall.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config holds the geometry used for overlap checks and the spiral search.
// Zero fields fall back to the package defaults.
type Config struct {
	NoteWidth    float64 `toml:"note_width" yaml:"note_width"`
	NoteHeight   float64 `toml:"note_height" yaml:"note_height"`
	MinDistance  float64 `toml:"min_distance" yaml:"min_distance"`
	SearchRadius float64 `toml:"search_radius" yaml:"search_radius"`
	SpiralStep   float64 `toml:"spiral_step" yaml:"spiral_step"`
}

// DefaultConfig returns the standard wall geometry.
func DefaultConfig() Config {
	return Config{
		NoteWidth:    DefaultNoteWidth,
		NoteHeight:   DefaultNoteHeight,
		MinDistance:  DefaultMinDistance,
		SearchRadius: DefaultSearchRadius,
		SpiralStep:   DefaultSpiralStep,
	}
}

// withDefaults replaces zero or negative fields with their defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NoteWidth <= 0 {
		c.NoteWidth = d.NoteWidth
	}
	if c.NoteHeight <= 0 {
		c.NoteHeight = d.NoteHeight
	}
	if c.MinDistance <= 0 {
		c.MinDistance = d.MinDistance
	}
	if c.SearchRadius <= 0 {
		c.SearchRadius = d.SearchRadius
	}
	if c.SpiralStep <= 0 {
		c.SpiralStep = d.SpiralStep
	}
	return c
}

// Result describes how a placement was resolved.
type Result struct {
	Point

	// Adjusted is true when the returned point differs from the request.
	Adjusted bool `json:"adjusted"`

	// Exhausted is true when the spiral found nothing and the unchecked
	// fallback point was returned.
	Exhausted bool `json:"exhausted"`

	// Attempts counts the spiral candidates that were tested.
	Attempts int `json:"attempts"`
}

// =============================================================================
// Advisor
// =============================================================================

// Advisor computes non-overlapping note positions.
type Advisor struct {
	cfg       Config
	requiredX float64
	requiredY float64
}

// New creates an Advisor. Zero-valued fields in cfg take their defaults.
func New(cfg Config) *Advisor {
	cfg = cfg.withDefaults()
	return &Advisor{
		cfg:       cfg,
		requiredX: (cfg.NoteWidth + cfg.MinDistance) / 2,
		requiredY: (cfg.NoteHeight + cfg.MinDistance) / 2,
	}
}

// Config returns the effective configuration.
func (a *Advisor) Config() Config { return a.cfg }

// Overlaps reports whether notes centred at p and q are too close.
func (a *Advisor) Overlaps(p, q Point) bool {
	dx := math.Abs(p.X - q.X)
	dy := math.Abs(p.Y - q.Y)
	return dx < a.requiredX && dy < a.requiredY
}

// Free reports whether p collides with none of existing.
func (a *Advisor) Free(p Point, existing []Point) bool {
	for _, q := range existing {
		if a.Overlaps(p, q) {
			return false
		}
	}
	return true
}

// Suggest returns desired when it is free, otherwise the first free spiral
// candidate, otherwise the fallback point.
func (a *Advisor) Suggest(desired Point, existing []Point) Point {
	return a.Place(desired, existing).Point
}

// Place is Suggest with details about how the point was found.
func (a *Advisor) Place(desired Point, existing []Point) Result {
	if len(existing) == 0 || a.Free(desired, existing) {
		return Result{Point: desired}
	}

	var (
		angle    float64
		radius   = a.cfg.SpiralStep
		attempts int
	)
	for radius <= a.cfg.SearchRadius {
		candidate := Point{
			X: roundHalfUp(desired.X + radius*math.Cos(angle)),
			Y: roundHalfUp(desired.Y + radius*math.Sin(angle)),
		}
		attempts++
		if a.Free(candidate, existing) {
			return Result{
				Point:    candidate,
				Adjusted: true,
				Attempts: attempts,
			}
		}

		angle += angleStep
		if angle >= 2*math.Pi {
			angle = 0
			radius += a.cfg.SpiralStep
		}
	}

	return Result{
		Point: Point{
			X: desired.X + a.cfg.SearchRadius,
			Y: desired.Y + a.cfg.SearchRadius,
		},
		Adjusted:  true,
		Exhausted: true,
		Attempts:  attempts,
	}
}

// roundHalfUp rounds to the nearest integer with ties toward +Inf.
// math.Round sends negative ties away from zero, which shifts candidates
// left of the origin by one unit compared with the browser client.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// =============================================================================
// Package-level helpers
// =============================================================================

var defaultAdvisor = New(DefaultConfig())

// Suggest places a note at (x, y) using the default geometry.
func Suggest(x, y float64, existing []Point) Point {
	return defaultAdvisor.Suggest(Point{X: x, Y: y}, existing)
}

// Overlaps checks two note centres using the default geometry.
func Overlaps(p, q Point) bool {
	return defaultAdvisor.Overlaps(p, q)
}
