package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/matchpoint-app/matchpoint/internal/availability"
	"github.com/matchpoint-app/matchpoint/internal/geo"
	"github.com/matchpoint-app/matchpoint/internal/match"
	"github.com/matchpoint-app/matchpoint/internal/player"
)

// ErrMissingLocation is returned when a player snapshot has no location.
// Scoring a missing location as coordinates (0, 0) would produce a huge,
// meaningless distance, so the candidate fails instead.
var ErrMissingLocation = errors.New("player has no location")

// Reason thresholds, applied in factor evaluation order.
const (
	reasonVectorAbove      = 0.85
	reasonEloDiffBelow     = 100.0
	reasonDistanceBelowKm  = 3.0
	reasonScheduleAbove    = 0.8
	reasonAcceptanceAbove  = 0.8
	reasonActiveWithinDays = 3
)

// Result is the outcome of scoring one candidate.
type Result struct {
	// Total is the weighted sum of all present terms, rounded to 3
	// decimals. The position bonus term makes it intentionally unbounded
	// outside [0, 1]; it must not be clamped.
	Total float64

	// Breakdown maps factor name to its weighted contribution.
	Breakdown map[string]float64

	// Reasons lists compatibility highlights in evaluation order. May be
	// empty.
	Reasons []string

	// DistanceKm is the great-circle distance from player to court,
	// rounded to 2 decimals.
	DistanceKm float64
}

// Engine scores candidates against match requests. A zero-configured engine
// (DefaultWeights) is what production runs; tests may tilt weights.
type Engine struct {
	weights Weights
}

// NewEngine creates an Engine with the given weights.
func NewEngine(w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}
	return &Engine{weights: w}, nil
}

// Score computes the compatibility of one player with one request, given the
// vector similarity reported by the index for that player.
//
// Pure: identical inputs always produce an identical Result.
func (e *Engine) Score(p *player.Player, req *match.Request, vectorSimilarity float64) (*Result, error) {
	if p.Location == nil {
		return nil, fmt.Errorf("player %s: %w", p.ID, ErrMissingLocation)
	}

	w := e.weights
	breakdown := make(map[string]float64, 7)
	var reasons []string

	// Semantic similarity.
	breakdown["vector"] = vectorSimilarity * w.Vector
	if vectorSimilarity > reasonVectorAbove {
		reasons = append(reasons, "Very compatible profile")
	}

	// Skill proximity.
	center := req.EloRange.Center()
	tolerance := req.EloRange.Tolerance()
	breakdown["elo"] = EloWeight(p.Elo, center, tolerance) * w.Elo
	if math.Abs(float64(p.Elo)-center) < reasonEloDiffBelow {
		reasons = append(reasons, "Very similar skill level")
	}

	// Geographic proximity.
	distanceKm := geo.Haversine(p.Location.Lat, p.Location.Lon, req.Location.Lat, req.Location.Lon)
	breakdown["distance"] = DistanceWeight(distanceKm) * w.Distance
	if distanceKm < reasonDistanceBelowKm {
		reasons = append(reasons, "Very close to the match")
	}

	// Schedule fit against the single match slot.
	scheduleScore := availability.NeutralScore
	if slot, err := availability.MatchSlot(req.MatchTime, req.RequiredMinutes); err == nil {
		scheduleScore = availability.OverlapScore(
			[]availability.Slot{slot}, p.Availability, req.RequiredMinutes)
	}
	breakdown["schedule"] = scheduleScore * w.Schedule
	if scheduleScore > reasonScheduleAbove {
		reasons = append(reasons, "Perfect schedule fit")
	}

	// Reliability.
	breakdown["reliability"] = p.AcceptanceRate * w.Reliability
	if p.AcceptanceRate > reasonAcceptanceAbove {
		reasons = append(reasons, "High reliability")
	}

	// Recency.
	breakdown["recency"] = RecencyWeight(p.LastActiveDays) * w.Recency
	if p.LastActiveDays < reasonActiveWithinDays {
		reasons = append(reasons, "Very active user")
	}

	// Position bonus: signed adjustment, only when the request cares.
	if req.PreferredPosition != nil {
		if p.HasPosition(*req.PreferredPosition) {
			breakdown["position_bonus"] = w.PositionBonus
			reasons = append(reasons, "Plays "+strings.ToLower(string(*req.PreferredPosition)))
		} else {
			breakdown["position_bonus"] = -w.PositionBonus
		}
	}

	// Fixed summation order keeps the float total bit-identical across runs.
	total := 0.0
	for _, key := range []string{"vector", "elo", "distance", "schedule", "reliability", "recency", "position_bonus"} {
		total += breakdown[key]
	}

	return &Result{
		Total:      round(total, 3),
		Breakdown:  breakdown,
		Reasons:    reasons,
		DistanceKm: round(distanceKm, 2),
	}, nil
}

// round rounds v to the given number of decimal places.
func round(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
