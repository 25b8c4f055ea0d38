package scoring

import (
	"fmt"
	"strings"

	"github.com/matchpoint-app/matchpoint/internal/match"
	"github.com/matchpoint-app/matchpoint/internal/player"
)

// Invitation message score tiers.
const (
	invitationHighTier = 0.85
	invitationMidTier  = 0.70
)

// InvitationMessage renders a personalized invitation for a candidate based
// on their score tier. Presentation only; never used for ranking.
func InvitationMessage(score, distanceKm float64, req *match.Request, organizerName string, organizerGender player.Gender) string {
	switch {
	case score > invitationHighTier:
		if distanceKm < reasonDistanceBelowKm {
			return fmt.Sprintf("🎾 %s invites you to play - Similar level, %.1fkm away",
				organizerName, distanceKm)
		}
		return fmt.Sprintf("🎾 %s is organizing a match at your level in your zone", organizerName)

	case score > invitationMidTier:
		return fmt.Sprintf("🎾 %s is organizing a match in %s - %.1fkm",
			organizerName, req.Location.Zone, distanceKm)

	default:
		return fmt.Sprintf("%s is looking for a %s player - %s %shs",
			organizerName, strings.ToLower(string(organizerGender)),
			req.Location.Zone, req.MatchTime)
	}
}
