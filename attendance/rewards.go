/*
rewards.go - Attendance point computation

PURPOSE:
  Combines base points, streak-tier bonus, same-day decay and exercise
  bonus into one award, and computes the deduction when attendance is
  retracted.

FORMULA (in evaluation order):
  1. Base = 3 points.
  2. Streak tier on the NEW streak value, highest first and mutually
     exclusive: streak >= 5 -> total 6 ("super-streak"),
     streak >= 3 -> total 5 ("streak bonus"), otherwise 3.
  3. Same-day decay: a second event on the same calendar date halves the
     running total, rounding up (5 -> 3).
  4. Exercise points are added last; they are never decayed and never
     streak-multiplied.
  5. XP equals points for attendance awards.

DEDUCTION ASYMMETRY:
  Retracting attendance deducts the base constant only. Streak and
  exercise bonuses of the original award are intentionally not reversed;
  symmetric reversal would change what historical point totals mean.
  Preserve the asymmetry unless product intent says otherwise.

SEE ALSO:
  - streak.go: Produces the streak value consumed here
*/
package attendance

import (
	"fmt"

	"github.com/courtside/schedule-engine/schedule"
)

// =============================================================================
// STREAK TIERS
// =============================================================================

type StreakTier string

const (
	TierNone   StreakTier = "none"
	TierStreak StreakTier = "streak"       // streak >= 3
	TierSuper  StreakTier = "super-streak" // streak >= 5
)

// TierFor returns the streak tier for a new streak value. Tiers are
// evaluated highest-first and are mutually exclusive.
func TierFor(streak int) StreakTier {
	switch {
	case streak >= 5:
		return TierSuper
	case streak >= 3:
		return TierStreak
	}
	return TierNone
}

// tierTotal is base+bonus before decay and exercise points.
func (t StreakTier) tierTotal() int {
	switch t {
	case TierSuper:
		return 6
	case TierStreak:
		return 5
	}
	return BasePoints
}

// =============================================================================
// AWARD
// =============================================================================

// AwardInput is everything the formula needs; all lookups happen upstream.
type AwardInput struct {
	UserID         string
	EventTitle     string
	Date           schedule.Date
	Streak         int  // the NEW streak value for this attendance
	SameDay        bool // already awarded for another event on this date
	ExercisePoints int
}

// Award is the computed side-effect payload for one newly present user.
type Award struct {
	UserID  string
	Points  int
	XP      int
	Streak  int
	Tier    StreakTier
	SameDay bool
	Reason  string
}

// ComputeAward applies the attendance reward formula.
func ComputeAward(in AwardInput) Award {
	tier := TierFor(in.Streak)
	points := tier.tierTotal()

	reason := fmt.Sprintf("%s on %s", title(in.EventTitle), in.Date)
	switch tier {
	case TierSuper:
		reason += fmt.Sprintf(" (%dx super-streak!)", in.Streak)
	case TierStreak:
		reason += fmt.Sprintf(" (%dx streak)", in.Streak)
	}

	if in.SameDay {
		// ceil(points/2)
		points = (points + 1) / 2
		reason += " (2nd event today)"
	}

	if in.ExercisePoints > 0 {
		points += in.ExercisePoints
		reason += fmt.Sprintf(" (+%d exercise points)", in.ExercisePoints)
	}

	return Award{
		UserID:  in.UserID,
		Points:  points,
		XP:      points,
		Streak:  in.Streak,
		Tier:    tier,
		SameDay: in.SameDay,
		Reason:  reason,
	}
}

// =============================================================================
// DEDUCTION
// =============================================================================

// Deduction is the payload for a previously awarded user who was unchecked.
type Deduction struct {
	UserID string
	Points int
	XP     int
	Reason string
}

// ComputeDeduction reverses the base constant for a retracted attendance.
// The original award's streak and exercise bonuses are NOT reversed.
func ComputeDeduction(userID, eventTitle string, date schedule.Date) Deduction {
	return Deduction{
		UserID: userID,
		Points: BasePoints,
		XP:     BasePoints,
		Reason: fmt.Sprintf("Attendance corrected: %s on %s (%d points deducted)", title(eventTitle), date, BasePoints),
	}
}

func title(s string) string {
	if s == "" {
		return "Event"
	}
	return s
}
