// Package availability scores temporal compatibility between sets of
// time-of-day windows. Slots are same-day "HH:MM" intervals on a 24-hour
// clock with no timezone; midnight-spanning slots (end <= start) are invalid
// and must be rejected at input validation rather than wrapped.
package availability

import (
	"errors"
	"fmt"
	"math"
)

// NeutralScore is returned when either side has no availability loaded.
// Unknown availability is treated as "assume workable", not as a failure.
const NeutralScore = 0.5

// Common slot validation errors.
var (
	ErrInvalidClock = errors.New("clock value must be HH:MM on a 24-hour clock")
	ErrInvalidSlot  = errors.New("slot end must be after slot start within the same day")
)

// Slot is a single availability window within one day.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Validate checks the slot's clock format and ordering.
func (s Slot) Validate() error {
	start, err := ParseClock(s.Start)
	if err != nil {
		return fmt.Errorf("start %q: %w", s.Start, err)
	}
	end, err := ParseClock(s.End)
	if err != nil {
		return fmt.Errorf("end %q: %w", s.End, err)
	}
	if end <= start {
		return fmt.Errorf("%w: %s-%s", ErrInvalidSlot, s.Start, s.End)
	}
	return nil
}

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(v string) (int, error) {
	if len(v) != 5 || v[2] != ':' {
		return 0, ErrInvalidClock
	}
	h, ok1 := digits2(v[0], v[1])
	m, ok2 := digits2(v[3], v[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

func digits2(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MatchSlot builds the single slot representing a match starting at matchTime
// and lasting requiredMinutes. There is no day wraparound; when the end would
// cross midnight it is clamped to 23:59 so the slot stays valid.
func MatchSlot(matchTime string, requiredMinutes int) (Slot, error) {
	start, err := ParseClock(matchTime)
	if err != nil {
		return Slot{}, fmt.Errorf("match time %q: %w", matchTime, err)
	}
	end := start + requiredMinutes
	if end > 23*60+59 {
		end = 23*60 + 59
	}
	return Slot{Start: FormatClock(start), End: FormatClock(end)}, nil
}

// OverlapScore scores the temporal compatibility of two slot sets in [0, 1].
//
// If either side is empty the result is NeutralScore. Otherwise every pair
// (a, b) that partially overlaps (a.end > b.start and b.end > a.start)
// contributes a ratio of overlap minutes to requiredMinutes, capped at 1.0.
// The result is the best ratio over all pairs, rounded to 3 decimals, or 0
// when no pair overlaps.
//
// Slots that fail to parse contribute nothing; callers are expected to have
// validated them already.
func OverlapScore(slotsA, slotsB []Slot, requiredMinutes int) float64 {
	if len(slotsA) == 0 || len(slotsB) == 0 {
		return NeutralScore
	}

	best := 0.0
	for _, a := range slotsA {
		startA, errA1 := ParseClock(a.Start)
		endA, errA2 := ParseClock(a.End)
		if errA1 != nil || errA2 != nil {
			continue
		}
		for _, b := range slotsB {
			startB, errB1 := ParseClock(b.Start)
			endB, errB2 := ParseClock(b.End)
			if errB1 != nil || errB2 != nil {
				continue
			}
			if endA <= startB || endB <= startA {
				continue
			}
			overlap := min(endA, endB) - max(startA, startB)
			ratio := float64(overlap) / float64(requiredMinutes)
			if ratio > 1.0 {
				ratio = 1.0
			}
			if ratio > best {
				best = ratio
			}
		}
	}

	return round3(best)
}

// round3 rounds to 3 decimal places.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
