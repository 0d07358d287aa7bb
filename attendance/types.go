/*
Package attendance implements attendance tracking and the reward
computation for marked-present players.

PURPOSE:
  When a coach saves attendance for one occurrence, every newly present
  player earns points: a fixed base, a streak-tier bonus, a same-day decay
  when it is their second event of the date, and a flat bonus for completed
  exercises. XP moves together with points for attendance. Unchecking a
  previously awarded player triggers a deduction of the base constant.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record:      One attendance record per (event, occurrence date) - NOT
                 per user. Holds the present set, completed exercises, the
                 awarded-to set and coach hours.
  - StreakState: Per (user, scope) consecutive-attendance count.
  - Exercise:    A completed exercise with its point value.

INVARIANTS:
  - Every user id ever added to AwardedTo has received exactly one award for
    the occurrence; removal from Present while still awarded triggers
    exactly one deduction and removes the id from AwardedTo.
  - Streaks are never decremented; a broken streak is detected by absence
    at the most recent prior event and resets to 1.

SEE ALSO:
  - streak.go:  Increment/reset decision
  - rewards.go: Point computation
*/
package attendance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/courtside/schedule-engine/schedule"
)

// BasePoints is the fixed attendance award before bonuses and decay.
const BasePoints = 3

// =============================================================================
// EXERCISES & COACH HOURS
// =============================================================================

// Exercise is one completed exercise for an occurrence. Exercise points are
// added to every award for that occurrence, after decay, undecayed.
type Exercise struct {
	ID     string
	Name   string
	Points int
}

// CoachHours records the hours a coach supervised the occurrence.
// Hours are fractional (1.5h sessions are common), hence decimal.
type CoachHours struct {
	CoachID string
	Hours   decimal.Decimal
}

// =============================================================================
// ATTENDANCE RECORD
// =============================================================================

// Record is the attendance state of one (event, occurrence date). It is
// created on first save and updated, not replaced, on subsequent saves for
// the same occurrence.
type Record struct {
	EventID   string
	Date      schedule.Date
	Present   []string // user ids marked present
	Exercises []Exercise
	AwardedTo []string // user ids that have received points for this occurrence
	Coaches   []CoachHours
	UpdatedAt time.Time
}

// IsPresent reports whether userID is in the present set.
func (r *Record) IsPresent(userID string) bool {
	return r != nil && contains(r.Present, userID)
}

// WasAwarded reports whether userID has already been awarded for this
// occurrence.
func (r *Record) WasAwarded(userID string) bool {
	return r != nil && contains(r.AwardedTo, userID)
}

// ExercisePointsTotal sums the point values of all completed exercises.
func (r *Record) ExercisePointsTotal() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, ex := range r.Exercises {
		total += ex.Points
	}
	return total
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// =============================================================================
// STREAK STATE
// =============================================================================

// StreakState is the stored consecutive-attendance count for one user
// within one streak scope (the event's primary target subgroup, or its
// owning group when untargeted).
type StreakState struct {
	UserID         string
	ScopeID        string
	Current        int
	LastAttendance schedule.Date
	UpdatedAt      time.Time
}
