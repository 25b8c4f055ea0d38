// Package player provides the player model and repository for candidate
// enrichment during matchmaking. The matchmaking core only reads snapshots;
// player lifecycle is owned by the record store.
package player

import (
	"errors"

	"github.com/matchpoint-app/matchpoint/internal/availability"
)

// Common errors for player operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
)

// Category is an ordered skill tier, NINTH (lowest) through FIRST (highest).
type Category string

// Skill categories from lowest to highest.
const (
	CategoryNinth   Category = "NINTH"
	CategoryEighth  Category = "EIGHTH"
	CategorySeventh Category = "SEVENTH"
	CategorySixth   Category = "SIXTH"
	CategoryFifth   Category = "FIFTH"
	CategoryFourth  Category = "FOURTH"
	CategoryThird   Category = "THIRD"
	CategorySecond  Category = "SECOND"
	CategoryFirst   Category = "FIRST"
)

// Categories lists all valid categories in ascending skill order.
var Categories = []Category{
	CategoryNinth, CategoryEighth, CategorySeventh, CategorySixth,
	CategoryFifth, CategoryFourth, CategoryThird, CategorySecond, CategoryFirst,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Position is a court position a player can cover.
type Position string

// Court positions.
const (
	PositionForehand Position = "FOREHAND"
	PositionBackhand Position = "BACKHAND"
)

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	return p == PositionForehand || p == PositionBackhand
}

// Gender values used on player profiles and match preferences.
type Gender string

// Genders.
const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Location is a coordinate with a named coarse zone.
type Location struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zone string  `json:"zone"`
}

// Player is a snapshot of a player record as read during a pipeline run.
type Player struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Elo            int                 `json:"elo"`
	Age            int                 `json:"age"`
	Gender         Gender              `json:"gender"`
	Category       Category            `json:"category"`
	Positions      []Position          `json:"positions"`
	Location       *Location           `json:"location,omitempty"`
	Availability   []availability.Slot `json:"availability,omitempty"`
	AcceptanceRate float64             `json:"acceptance_rate"`
	LastActiveDays int                 `json:"last_active_days"`
}

// HasPosition reports whether the player covers the given position.
func (p *Player) HasPosition(pos Position) bool {
	for _, have := range p.Positions {
		if have == pos {
			return true
		}
	}
	return false
}
