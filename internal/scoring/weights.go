// Package scoring computes multi-factor compatibility scores for a
// (player, match request, vector similarity) triple, with calibrated weights
// and human-readable compatibility reasons.
package scoring

import (
	"fmt"
	"math"
)

// Weights holds the calibrated factor weights for candidate scoring.
// All weights except PositionBonus must sum to 1.0; PositionBonus is a
// signed adjustment applied on top, which is why totals may land outside
// [0, 1].
type Weights struct {
	Vector      float64 // semantic similarity from embeddings
	Elo         float64 // skill rating proximity to the requested band
	Distance    float64 // geographic proximity to the court
	Schedule    float64 // availability overlap with the match slot
	Reliability float64 // historical acceptance rate
	Recency     float64 // days since last activity

	// PositionBonus is added when the player covers the requested
	// position and subtracted when they do not. No term is emitted when
	// the request has no position preference.
	PositionBonus float64
}

// DefaultWeights returns the production-calibrated weights.
func DefaultWeights() Weights {
	return Weights{
		Vector:        0.40,
		Elo:           0.20,
		Distance:      0.15,
		Schedule:      0.10,
		Reliability:   0.10,
		Recency:       0.05,
		PositionBonus: 0.05,
	}
}

// Validate checks that the base weights sum to 1.0 within a small epsilon
// and that every weight is non-negative.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"vector":         w.Vector,
		"elo":            w.Elo,
		"distance":       w.Distance,
		"schedule":       w.Schedule,
		"reliability":    w.Reliability,
		"recency":        w.Recency,
		"position_bonus": w.PositionBonus,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %f", name, v)
		}
	}

	sum := w.Vector + w.Elo + w.Distance + w.Schedule + w.Reliability + w.Recency
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("base weights must sum to 1.0, got %f", sum)
	}
	return nil
}

// EloWeight computes the skill-proximity component in [0, 1]: linear falloff
// from the band center, reaching zero at the band edge and beyond.
func EloWeight(elo int, center, tolerance float64) float64 {
	if tolerance <= 0 {
		return 0
	}
	diff := math.Abs(float64(elo) - center)
	return math.Max(0, 1-diff/tolerance)
}

// DistanceWeight converts kilometers to a proximity component in (0, 1]:
// 1.0 at the court, 0.5 at 10 km, decaying gradually.
func DistanceWeight(distanceKm float64) float64 {
	if distanceKm < 0 {
		distanceKm = 0
	}
	return 1.0 / (1.0 + distanceKm/10.0)
}

// RecencyWeight converts days since last activity to [0, 1], reaching zero
// at 30 days.
func RecencyWeight(lastActiveDays int) float64 {
	if lastActiveDays < 0 {
		lastActiveDays = 0
	}
	return math.Max(0, 1-float64(lastActiveDays)/30.0)
}
