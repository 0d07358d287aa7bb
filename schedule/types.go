/*
Package schedule provides the core scheduling engine for recurring club
events: occurrence generation and invitation reconciliation.

PURPOSE:
  This package contains the pure, storage-free domain logic. Given an event
  definition it computes which concrete calendar dates fall inside a rolling
  lookahead window, and which per-occurrence invitations are missing against
  an existing set. No I/O happens here; persistence is the caller's job.

KEY CONCEPTS IN THIS FILE (types.go):
  - EventDefinition: A single or recurring event template
  - RecurrenceKind:  none | daily | weekly | biweekly | monthly
  - Invitation:      One user's invite to one occurrence, keyed by
                     (event id, user id, occurrence date)
  - LeadTime:        Offset before an occurrence at which its invitation
                     becomes due for notification

DESIGN PRINCIPLES:
  1. Parsed dates: Date is a value type validated at the boundary; no raw
     date strings flow through the engine.
  2. Idempotence: Reconciliation is re-derivable from current state and safe
     to re-run on every view (see reconcile.go).
  3. Anchoring: Occurrences step from the original start date, never from
     "today", so weekly events keep their weekday.

SEE ALSO:
  - recurrence.go: Occurrence generation
  - reconcile.go:  Invitation diffing
  - errors.go:     Error taxonomy
*/
package schedule

import (
	"time"
)

// =============================================================================
// RECURRENCE KIND
// =============================================================================

type RecurrenceKind string

const (
	RecurNone     RecurrenceKind = "none"
	RecurDaily    RecurrenceKind = "daily"
	RecurWeekly   RecurrenceKind = "weekly"
	RecurBiweekly RecurrenceKind = "biweekly"
	RecurMonthly  RecurrenceKind = "monthly"
)

// Valid reports whether k is a known recurrence kind.
func (k RecurrenceKind) Valid() bool {
	switch k {
	case RecurNone, RecurDaily, RecurWeekly, RecurBiweekly, RecurMonthly:
		return true
	}
	return false
}

// Recurs reports whether the kind produces more than one occurrence.
func (k RecurrenceKind) Recurs() bool {
	return k.Valid() && k != RecurNone
}

// advance applies one recurrence step. Monthly steps use calendar-month
// arithmetic, so a day-31 anchor normalizes forward in shorter months.
func (k RecurrenceKind) advance(d Date) Date {
	switch k {
	case RecurDaily:
		return d.AddDays(1)
	case RecurWeekly:
		return d.AddDays(7)
	case RecurBiweekly:
		return d.AddDays(14)
	case RecurMonthly:
		return d.AddMonths(1)
	}
	return d
}

// =============================================================================
// LEAD TIME
// =============================================================================

type LeadUnit string

const (
	LeadHours LeadUnit = "hours"
	LeadDays  LeadUnit = "days"
	LeadWeeks LeadUnit = "weeks"
)

func (u LeadUnit) Valid() bool {
	return u == LeadHours || u == LeadDays || u == LeadWeeks
}

// LeadTime is the configured offset before an occurrence at which its
// invitation should be considered due for notification delivery.
type LeadTime struct {
	Value int
	Unit  LeadUnit
}

// duration converts the lead to a time.Duration.
func (lt LeadTime) duration() time.Duration {
	switch lt.Unit {
	case LeadHours:
		return time.Duration(lt.Value) * time.Hour
	case LeadDays:
		return time.Duration(lt.Value) * 24 * time.Hour
	case LeadWeeks:
		return time.Duration(lt.Value) * 7 * 24 * time.Hour
	}
	return 0
}

// =============================================================================
// EVENT DEFINITION
// =============================================================================

// EventDefinition is a single or recurring event template. Recurrence
// attributes are mutated when a coach edits dates, cancels one occurrence
// (date added to ExcludedDates) or truncates a series (RecurrenceEnd set to
// the day before the cutoff). Title, times and audience do not affect
// occurrence generation.
type EventDefinition struct {
	ID        string
	GroupID   string
	Title     string
	StartDate Date
	StartTime string // "HH:MM", optional
	EndTime   string // "HH:MM", optional

	Recurrence    RecurrenceKind
	RecurrenceEnd *Date  // nil = open-ended
	ExcludedDates []Date // individually cancelled occurrences

	Lead *LeadTime // nil = invitations are never "due" for notification

	// TargetSubgroupIDs narrows the audience; empty means the whole group.
	// The first entry also scopes streak tracking.
	TargetSubgroupIDs []string
}

// Validate checks the definition at the boundary. A definition that fails
// here must not reach the recurrence engine.
func (d *EventDefinition) Validate() error {
	if d.ID == "" {
		return &DefinitionError{EventID: d.ID, Field: "id", Reason: "missing event id"}
	}
	if d.StartDate.IsZero() {
		return &DefinitionError{EventID: d.ID, Field: "start_date", Reason: "missing or unparseable start date"}
	}
	if !d.Recurrence.Valid() {
		return &DefinitionError{EventID: d.ID, Field: "recurrence", Reason: "unknown recurrence kind " + string(d.Recurrence)}
	}
	if d.RecurrenceEnd != nil && d.RecurrenceEnd.Before(d.StartDate) {
		return &DefinitionError{EventID: d.ID, Field: "recurrence_end", Reason: "recurrence end before start date"}
	}
	if d.Lead != nil && !d.Lead.Unit.Valid() {
		return &DefinitionError{EventID: d.ID, Field: "lead", Reason: "unknown lead unit " + string(d.Lead.Unit)}
	}
	return nil
}

// StreakScope returns the id that scopes consecutive-attendance tracking:
// the first target subgroup, or the owning group when untargeted.
func (d *EventDefinition) StreakScope() string {
	if len(d.TargetSubgroupIDs) > 0 {
		return d.TargetSubgroupIDs[0]
	}
	return d.GroupID
}

// IsExcluded reports whether date was individually cancelled.
func (d *EventDefinition) IsExcluded(date Date) bool {
	for _, ex := range d.ExcludedDates {
		if ex.Equal(date) {
			return true
		}
	}
	return false
}

// InvitationDue returns the instant at which the invitation for the given
// occurrence becomes due, or zero when no lead time is configured. The
// occurrence start time is used when set, midnight otherwise.
func (d *EventDefinition) InvitationDue(occurrence Date) time.Time {
	if d.Lead == nil {
		return time.Time{}
	}
	return occurrence.At(d.StartTime).Add(-d.Lead.duration())
}

// =============================================================================
// INVITATION
// =============================================================================

type InvitationStatus string

const (
	InvitePending  InvitationStatus = "pending"
	InviteAccepted InvitationStatus = "accepted"
	InviteRejected InvitationStatus = "rejected"
)

// Invitation is one user's invite to one occurrence. The (EventID, UserID,
// Date) triple is the idempotency key: it is unique, never duplicated by the
// reconciler, and never deleted by it.
type Invitation struct {
	EventID     string
	UserID      string
	Date        Date
	Status      InvitationStatus
	CreatedAt   time.Time
	RespondedAt time.Time
}

// InvitationKey is the unique identity of an invitation.
type InvitationKey struct {
	EventID string
	UserID  string
	Date    string // ISO date, comparable map key
}

func (i Invitation) Key() InvitationKey {
	return InvitationKey{EventID: i.EventID, UserID: i.UserID, Date: i.Date.String()}
}
