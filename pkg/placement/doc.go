// Package placement positions new notes on the note wall without covering
// existing ones.
//
// The wall is an unbounded plane. Every note is a fixed-size card identified
// by its centre point. When someone drops a note, the [Advisor] checks the
// requested point against the notes already on the wall. A free point is
// returned as-is. Otherwise the advisor walks an outward spiral around it
// until it finds a point that is clear.
//
// # Overlap
//
// Two notes collide when both axis distances between their centres are
// strictly below the required separation:
//
//	requiredX = (NoteWidth  + MinDistance) / 2
//	requiredY = (NoteHeight + MinDistance) / 2
//
// The separation uses the full card width and height, so the exclusion zone
// is larger than the card itself. A distance exactly equal to the required
// separation does not collide.
//
// # Spiral Search
//
// Candidates are visited in 45° steps starting at angle 0 and radius
// SpiralStep. After a full turn the radius grows by SpiralStep, until it passes
// SearchRadius. Candidate coordinates are rounded half-up to whole units.
//
// If every candidate collides, the advisor gives up and returns the
// requested point shifted by SearchRadius on both axes. That point is not
// checked again and may still collide on a very crowded wall.
//
// # Usage
//
//	adv := placement.New(placement.DefaultConfig())
//	p := adv.Suggest(placement.Point{X: 100, Y: 100}, existing)
//
// The advisor holds no mutable state and is safe for concurrent use.
package placement
