// Package describe renders players and match requests into the natural
// language text fed to the embedding model.
//
// The clause order and wording below define what "semantic similarity" means
// for this system: any change silently shifts matching behavior for every
// player already indexed, so treat edits as a format version bump and
// reindex afterward.
package describe

import (
	"fmt"
	"strings"

	"github.com/matchpoint-app/matchpoint/internal/match"
	"github.com/matchpoint-app/matchpoint/internal/player"
)

// FormatVersion identifies the current description format. Stored alongside
// indexed vectors so stale descriptions can be detected and reindexed.
const FormatVersion = "v1"

// Reliability clause thresholds on acceptance rate.
const (
	veryReliableAbove = 0.8
	reliableAbove     = 0.6
	occasionalBelow   = 0.4
)

// Activity clause thresholds on days since last activity.
const (
	veryActiveWithinDays = 3
	activeWithinDays     = 7
)

// PlayerText renders a player profile as embedding input. Pure and
// deterministic: identical players always produce identical text.
func PlayerText(p *player.Player) string {
	parts := []string{
		fmt.Sprintf("Padel player category %s", p.Category),
		fmt.Sprintf("ELO %d", p.Elo),
		fmt.Sprintf("Age %d", p.Age),
		fmt.Sprintf("Gender %s", p.Gender),
		fmt.Sprintf("Plays %s", joinPositions(p.Positions)),
	}
	if p.Location != nil {
		parts = append(parts, fmt.Sprintf("Zone %s", p.Location.Zone))
	}

	if len(p.Availability) > 0 {
		ranges := make([]string, len(p.Availability))
		for i, slot := range p.Availability {
			ranges[i] = slot.Start + "-" + slot.End
		}
		parts = append(parts, "Available "+strings.Join(ranges, ", "))
	}

	switch {
	case p.AcceptanceRate > veryReliableAbove:
		parts = append(parts, "Very reliable and active player")
	case p.AcceptanceRate > reliableAbove:
		parts = append(parts, "Reliable player")
	case p.AcceptanceRate < occasionalBelow:
		parts = append(parts, "Occasional player")
	}

	if p.LastActiveDays < veryActiveWithinDays {
		parts = append(parts, "Very active recently")
	} else if p.LastActiveDays < activeWithinDays {
		parts = append(parts, "Active user")
	}

	return strings.Join(parts, ". ") + "."
}

// RequestText renders the requirements of a match as embedding input.
func RequestText(r *match.Request) string {
	cats := make([]string, len(r.Categories))
	for i, c := range r.Categories {
		cats[i] = string(c)
	}

	parts := []string{
		fmt.Sprintf("Padel match categories %s", strings.Join(cats, ", ")),
		fmt.Sprintf("ELO between %d and %d", r.EloRange.Min, r.EloRange.Max),
		fmt.Sprintf("Zone %s", r.Location.Zone),
		fmt.Sprintf("Time %s", r.MatchTime),
		fmt.Sprintf("Duration %d minutes", r.RequiredMinutes),
		fmt.Sprintf("Gender %s", r.GenderPreference),
	}

	if r.AgeRange != nil {
		parts = append(parts, fmt.Sprintf("Age between %d and %d", r.AgeRange.Min, r.AgeRange.Max))
	}
	if r.PreferredPosition != nil {
		parts = append(parts, fmt.Sprintf("Looking for a %s player",
			strings.ToLower(string(*r.PreferredPosition))))
	}

	parts = append(parts, fmt.Sprintf("Need %d players", r.RequiredPlayers))

	return strings.Join(parts, ". ") + "."
}

// joinPositions joins positions with "and" in declaration order.
func joinPositions(positions []player.Position) string {
	if len(positions) == 0 {
		return "any position"
	}
	names := make([]string, len(positions))
	for i, p := range positions {
		names[i] = strings.ToLower(string(p))
	}
	return strings.Join(names, " and ")
}
