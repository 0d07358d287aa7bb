/*
Package planner composes the scheduling core and the attendance reward
computation into the two entry points the application triggers.

PURPOSE:
  - View events:     generate occurrences for the lookahead window and
                     reconcile invitations (pull-based, idempotent; runs on
                     every view, no background scheduler).
  - Save attendance: diff the submitted present set against the stored
                     record, compute awards for newly present users and
                     deductions for retracted ones, and return the full set
                     of side effects for the caller to persist.

STATE:
  The planner carries no mutable request state; each call builds what it
  needs from its inputs and collaborator reads. Concurrent callers are
  tolerated through idempotence rather than locking. The one known gap: a
  concurrent attendance save for the same occurrence can double-award in a
  narrow window, since the present-set diff and the award are not isolated
  in one transaction. This is accepted (last-writer-wins record update),
  not silently patched.

ERROR POLICY:
  Invalid definitions and iteration-limit overruns propagate. Failed
  history lookups never block an award: the streak defaults to 1, decay is
  skipped, and the failure is surfaced as a warning on the result.

SEE ALSO:
  - schedule:   Occurrence generation and reconciliation
  - attendance: Streak and reward formulas
  - store.go:   Collaborator interfaces
*/
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/courtside/schedule-engine/attendance"
	"github.com/courtside/schedule-engine/schedule"
)

// DefaultLookaheadWeeks is the rolling window used on event views.
const DefaultLookaheadWeeks = 4

// Planner orchestrates schedule generation, invitation reconciliation and
// attendance rewards. All fields are required except Now.
type Planner struct {
	Invitations InvitationStore
	Attendance  AttendanceStore
	Streaks     StreakStore
	History     History

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// =============================================================================
// VIEW-EVENTS TRIGGER
// =============================================================================

// InvitationDue signals that an invitation should be notified at a given
// instant. Delivery belongs to an external collaborator.
type InvitationDue struct {
	EventID string
	UserID  string
	Date    schedule.Date
	At      time.Time
}

// InvitationPlan is the outcome of one reconciliation pass.
type InvitationPlan struct {
	Window      schedule.Window
	Occurrences []schedule.Date
	Creates     []schedule.Invitation // persist these; duplicates are discarded by the store
	Due         []InvitationDue       // notification-due signals for the creates
}

// PlanInvitations generates occurrences for def in [today, today+weeks] and
// returns the invitations missing for the target audience. weeks <= 0 uses
// the default lookahead. Safe to call on every page view: with unchanged
// state the create-list is empty.
func (p *Planner) PlanInvitations(ctx context.Context, def *schedule.EventDefinition, targetUserIDs []string, weeks int) (*InvitationPlan, error) {
	if weeks <= 0 {
		weeks = DefaultLookaheadWeeks
	}
	now := p.now()
	window := schedule.NewLookahead(schedule.DateOf(now), weeks)

	occurrences, err := schedule.GenerateOccurrences(def, window)
	if err != nil {
		return nil, err
	}

	existing, err := p.Invitations.ListInvitations(ctx, def.ID)
	if err != nil {
		return nil, fmt.Errorf("list invitations for %s: %w", def.ID, err)
	}

	creates := schedule.Reconcile(def.ID, occurrences, targetUserIDs, existing, now)

	var due []InvitationDue
	if def.Lead != nil {
		for _, inv := range creates {
			due = append(due, InvitationDue{
				EventID: inv.EventID,
				UserID:  inv.UserID,
				Date:    inv.Date,
				At:      def.InvitationDue(inv.Date),
			})
		}
	}

	return &InvitationPlan{
		Window:      window,
		Occurrences: occurrences,
		Creates:     creates,
		Due:         due,
	}, nil
}

// =============================================================================
// SAVE-ATTENDANCE TRIGGER
// =============================================================================

// AttendanceSave is one coach-submitted attendance sheet for an occurrence.
type AttendanceSave struct {
	Event     *schedule.EventDefinition
	Date      schedule.Date
	Present   []string
	Exercises []attendance.Exercise
	Coaches   []attendance.CoachHours
}

// Notification is a data-only payload for the external delivery collaborator.
type Notification struct {
	UserID  string
	Type    string
	Title   string
	Message string
	Points  int
	Streak  int
}

// AttendanceResult is the full set of side effects of one attendance save.
// The caller persists the record, streaks and points entries atomically.
type AttendanceResult struct {
	Record        *attendance.Record
	Awards        []attendance.Award
	Deductions    []attendance.Deduction
	Streaks       []attendance.StreakState
	Points        []PointsEntry
	Notifications []Notification
	Warnings      []string
}

// ApplyAttendance classifies every user against the prior record - newly
// present (award), newly absent but awarded (deduct), unchanged (no-op) -
// and returns the resulting side effects without persisting them.
func (p *Planner) ApplyAttendance(ctx context.Context, save AttendanceSave) (*AttendanceResult, error) {
	def := save.Event
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if save.Date.IsZero() {
		return nil, &schedule.DefinitionError{EventID: def.ID, Field: "date", Reason: "missing occurrence date"}
	}

	prior, err := p.Attendance.GetRecord(ctx, def.ID, save.Date)
	if err != nil {
		return nil, fmt.Errorf("load attendance for %s on %s: %w", def.ID, save.Date, err)
	}

	now := p.now()
	scope := def.StreakScope()
	result := &AttendanceResult{}

	// The present list arrives unvalidated over the wire; a duplicated id
	// must not award twice or persist twice into the record.
	save.Present = dedupe(save.Present)

	exerciseTotal := 0
	for _, ex := range save.Exercises {
		exerciseTotal += ex.Points
	}

	// Newly present: in the submitted set, not yet awarded.
	for _, userID := range save.Present {
		if prior.WasAwarded(userID) {
			continue
		}
		p.award(ctx, result, def, save.Date, scope, userID, exerciseTotal, now)
	}

	// Retracted: previously present, awarded, and now unchecked.
	if prior != nil {
		for _, userID := range prior.Present {
			if contains(save.Present, userID) || !prior.WasAwarded(userID) {
				continue
			}
			ded := attendance.ComputeDeduction(userID, def.Title, save.Date)
			result.Deductions = append(result.Deductions, ded)
			result.Points = append(result.Points, PointsEntry{
				UserID:    userID,
				Points:    -ded.Points,
				XP:        -ded.XP,
				Reason:    ded.Reason,
				Date:      save.Date,
				ScopeID:   scope,
				AwardedBy: "system:correction",
				CreatedAt: now,
			})
		}
	}

	result.Record = p.updatedRecord(prior, save, result.Awards, now)
	return result, nil
}

// award computes one user's award along with its streak update, points
// entry and notification payload.
func (p *Planner) award(ctx context.Context, result *AttendanceResult, def *schedule.EventDefinition, date schedule.Date, scope, userID string, exerciseTotal int, now time.Time) {
	presentAtPrior, found, err := p.History.PresentAtPriorEvent(ctx, def.GroupID, date, userID)
	if err != nil {
		// Best-effort lookup: degrade to a fresh streak, never block the award.
		result.Warnings = append(result.Warnings, fmt.Sprintf("prior-event lookup failed for %s: %v (streak reset to 1)", userID, err))
		presentAtPrior, found = false, false
	}

	var prior attendance.StreakState
	if st, err := p.Streaks.GetStreak(ctx, userID, scope); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("streak lookup failed for %s: %v (streak reset to 1)", userID, err))
		presentAtPrior = false
	} else if st != nil {
		prior = *st
	}

	next := attendance.AdvanceStreak(prior, userID, scope, date, presentAtPrior && found, now)

	sameDay, err := p.History.AttendedElsewhereOn(ctx, def.GroupID, date, def.ID, userID)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("same-day lookup failed for %s: %v (decay skipped)", userID, err))
		sameDay = false
	}

	award := attendance.ComputeAward(attendance.AwardInput{
		UserID:         userID,
		EventTitle:     def.Title,
		Date:           date,
		Streak:         next.Current,
		SameDay:        sameDay,
		ExercisePoints: exerciseTotal,
	})

	result.Awards = append(result.Awards, award)
	result.Streaks = append(result.Streaks, next)
	result.Points = append(result.Points, PointsEntry{
		UserID:    userID,
		Points:    award.Points,
		XP:        award.XP,
		Reason:    award.Reason,
		Date:      date,
		ScopeID:   scope,
		AwardedBy: "system:attendance",
		CreatedAt: now,
	})
	result.Notifications = append(result.Notifications, notificationFor(award))
}

// updatedRecord builds the new per-occurrence record: the awarded-to set
// keeps everyone still present and adds everyone awarded in this pass.
func (p *Planner) updatedRecord(prior *attendance.Record, save AttendanceSave, awards []attendance.Award, now time.Time) *attendance.Record {
	var awardedTo []string
	if prior != nil {
		for _, userID := range prior.AwardedTo {
			if contains(save.Present, userID) {
				awardedTo = append(awardedTo, userID)
			}
		}
	}
	for _, a := range awards {
		if !contains(awardedTo, a.UserID) {
			awardedTo = append(awardedTo, a.UserID)
		}
	}

	return &attendance.Record{
		EventID:   save.Event.ID,
		Date:      save.Date,
		Present:   save.Present,
		Exercises: save.Exercises,
		AwardedTo: awardedTo,
		Coaches:   save.Coaches,
		UpdatedAt: now,
	}
}

func notificationFor(a attendance.Award) Notification {
	n := Notification{
		UserID:  a.UserID,
		Type:    "attendance",
		Title:   "Attendance recorded",
		Message: fmt.Sprintf("You earned +%d points. %s", a.Points, a.Reason),
		Points:  a.Points,
		Streak:  a.Streak,
	}
	switch a.Tier {
	case attendance.TierSuper:
		n.Title = "Super-streak!"
		n.Message = fmt.Sprintf("%dx in a row! +%d points", a.Streak, a.Points)
	case attendance.TierStreak:
		n.Title = "Streak bonus!"
		n.Message = fmt.Sprintf("%dx in a row! +%d points", a.Streak, a.Points)
	}
	return n
}

// =============================================================================
// SERIES MUTATION HELPERS
// =============================================================================

// CancelOccurrence marks one occurrence of a recurring event as cancelled
// by adding its date to the exclusion set. Idempotent.
func CancelOccurrence(def *schedule.EventDefinition, date schedule.Date) {
	if def.IsExcluded(date) {
		return
	}
	def.ExcludedDates = append(def.ExcludedDates, date)
}

// TruncateSeries ends a recurring series the day before cutoff, so cutoff
// itself and everything after stop occurring.
func TruncateSeries(def *schedule.EventDefinition, cutoff schedule.Date) {
	end := cutoff.AddDays(-1)
	def.RecurrenceEnd = &end
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// dedupe returns ids with duplicates removed, first occurrence wins.
func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
