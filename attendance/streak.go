/*
streak.go - Consecutive-attendance streak decision

PURPOSE:
  A streak counts consecutive events within one scope at which a user was
  marked present. The decision is a pure function over two externally
  supplied facts: the stored streak and whether the user was present at the
  immediately prior event. Lookups live with the persistence collaborator;
  this file only increments or resets.

RESET SEMANTICS:
  A broken streak is detected by ABSENCE at the most recent prior event,
  never by an explicit reset. No prior event, absence at it, or a failed
  best-effort lookup all resolve to a fresh streak of 1 - attendance points
  must not be lost because a historical lookup was unavailable.
*/
package attendance

import (
	"time"

	"github.com/courtside/schedule-engine/schedule"
)

// NextStreak returns the streak value to award: prior+1 when the user was
// present at the immediately prior event in the scope, otherwise 1.
func NextStreak(prior int, presentAtPriorEvent bool) int {
	if !presentAtPriorEvent || prior < 0 {
		return 1
	}
	return prior + 1
}

// AdvanceStreak computes the updated StreakState for an award at eventDate.
// prior may be the zero value when no state exists yet.
func AdvanceStreak(prior StreakState, userID, scopeID string, eventDate schedule.Date, presentAtPriorEvent bool, now time.Time) StreakState {
	return StreakState{
		UserID:         userID,
		ScopeID:        scopeID,
		Current:        NextStreak(prior.Current, presentAtPriorEvent),
		LastAttendance: eventDate,
		UpdatedAt:      now,
	}
}
