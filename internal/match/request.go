// Package match defines the match request contract and the candidate output
// type for the ranking pipeline.
//
// This is the single canonical request shape. Earlier revisions of the
// service carried incompatible variants (separate min/max ELO fields, free
// string categories, missing age range); those are not accepted here.
package match

import (
	"errors"
	"fmt"

	"github.com/matchpoint-app/matchpoint/internal/availability"
	"github.com/matchpoint-app/matchpoint/internal/player"
)

// ErrValidation is the base error for request validation failures.
// Field-level errors wrap it, so callers can match with errors.Is.
var ErrValidation = errors.New("invalid match request")

// Limits on request fields.
const (
	MinRequiredPlayers = 1
	MaxRequiredPlayers = 3
	MinDurationMinutes = 60
	MaxDurationMinutes = 180
)

// GenderPreference constrains which genders a match accepts.
type GenderPreference string

// Gender preferences.
const (
	PreferMale   GenderPreference = "MALE"
	PreferFemale GenderPreference = "FEMALE"
	PreferMixed  GenderPreference = "MIXED"
)

// Valid reports whether g is a known preference.
func (g GenderPreference) Valid() bool {
	return g == PreferMale || g == PreferFemale || g == PreferMixed
}

// Range is an inclusive integer interval with Min < Max.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Center returns the midpoint of the range.
func (r Range) Center() float64 {
	return float64(r.Min+r.Max) / 2
}

// Tolerance returns half the range width.
func (r Range) Tolerance() float64 {
	return float64(r.Max-r.Min) / 2
}

// Request describes a proposed match to rank candidates against.
// Requests are ephemeral: built per search, never persisted by the core.
type Request struct {
	MatchID           string             `json:"match_id"`
	Categories        []player.Category  `json:"categories"`
	EloRange          Range              `json:"elo_range"`
	AgeRange          *Range             `json:"age_range,omitempty"`
	GenderPreference  GenderPreference   `json:"gender_preference"`
	RequiredPlayers   int                `json:"required_players"`
	Location          player.Location    `json:"location"`
	MatchTime         string             `json:"match_time"`
	RequiredMinutes   int                `json:"required_minutes"`
	PreferredPosition *player.Position   `json:"preferred_position,omitempty"`
}

// Validate checks all request invariants. It returns the first violation
// found, wrapped in ErrValidation.
func (r *Request) Validate() error {
	if r.MatchID == "" {
		return fmt.Errorf("%w: match_id is required", ErrValidation)
	}
	if len(r.Categories) == 0 {
		return fmt.Errorf("%w: at least one accepted category is required", ErrValidation)
	}
	for _, c := range r.Categories {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", ErrValidation, c)
		}
	}
	if r.EloRange.Min >= r.EloRange.Max {
		return fmt.Errorf("%w: elo_range min (%d) must be below max (%d)",
			ErrValidation, r.EloRange.Min, r.EloRange.Max)
	}
	if r.AgeRange != nil && r.AgeRange.Min >= r.AgeRange.Max {
		return fmt.Errorf("%w: age_range min (%d) must be below max (%d)",
			ErrValidation, r.AgeRange.Min, r.AgeRange.Max)
	}
	if !r.GenderPreference.Valid() {
		return fmt.Errorf("%w: unknown gender_preference %q", ErrValidation, r.GenderPreference)
	}
	if r.RequiredPlayers < MinRequiredPlayers || r.RequiredPlayers > MaxRequiredPlayers {
		return fmt.Errorf("%w: required_players must be between %d and %d",
			ErrValidation, MinRequiredPlayers, MaxRequiredPlayers)
	}
	if _, err := availability.ParseClock(r.MatchTime); err != nil {
		return fmt.Errorf("%w: match_time: %v", ErrValidation, err)
	}
	if r.RequiredMinutes < MinDurationMinutes || r.RequiredMinutes > MaxDurationMinutes {
		return fmt.Errorf("%w: required_minutes must be between %d and %d",
			ErrValidation, MinDurationMinutes, MaxDurationMinutes)
	}
	if r.PreferredPosition != nil && !r.PreferredPosition.Valid() {
		return fmt.Errorf("%w: unknown preferred_position %q", ErrValidation, *r.PreferredPosition)
	}
	return nil
}

// Candidate is one ranked player in the pipeline output. Candidates are
// created fresh each run and never mutated after being returned.
type Candidate struct {
	PlayerID   string         `json:"player_id"`
	Score      float64        `json:"score"`
	DistanceKm float64        `json:"distance_km"`
	Reasons    []string       `json:"reasons"`
	Metadata   map[string]any `json:"metadata"`
}
