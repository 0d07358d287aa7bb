/*
store.go - Persistence interfaces between the planner and its storage
collaborator

PURPOSE:
  The planner composes pure computations (schedule, attendance) and returns
  side effects; it never writes storage itself. These interfaces define
  what it reads, and what a storage implementation must be able to apply.

KEY INTERFACES:
  EventStore:      Event definition persistence
  InvitationStore: Invitation reads + idempotent creation
  AttendanceStore: Per-occurrence attendance records
  StreakStore:     Per (user, scope) streak state
  History:         Bounded historical lookups (prior event presence,
                   same-day attendance) used for streak and decay decisions
  PointsLog:       Append-only award/deduction history

IDEMPOTENT CREATION:
  CreateInvitations must tolerate duplicates: a create colliding with a
  concurrently created invitation is discarded, not an error, because the
  reconciler re-derives the create-list from current state on every pass.

IMPLEMENTATIONS:
  - store/sqlite:       Production SQLite
  - planner/store:      In-memory for tests and dev
*/
package planner

import (
	"context"
	"errors"
	"time"

	"github.com/courtside/schedule-engine/attendance"
	"github.com/courtside/schedule-engine/schedule"
)

// ErrEventNotFound is returned when a referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// =============================================================================
// STORE INTERFACES
// =============================================================================

// EventStore persists event definitions.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*schedule.EventDefinition, error)
	SaveEvent(ctx context.Context, def *schedule.EventDefinition) error
	ListEvents(ctx context.Context, groupID string) ([]*schedule.EventDefinition, error)
}

// InvitationStore persists per-occurrence invitations.
type InvitationStore interface {
	// ListInvitations returns all invitations for an event, every occurrence.
	ListInvitations(ctx context.Context, eventID string) ([]schedule.Invitation, error)

	// CreateInvitations inserts the given invitations, silently skipping any
	// whose (event, user, date) key already exists. Returns how many were
	// actually created.
	CreateInvitations(ctx context.Context, invs []schedule.Invitation) (int, error)

	// SetInvitationStatus records a user's response.
	SetInvitationStatus(ctx context.Context, key schedule.InvitationKey, status schedule.InvitationStatus, respondedAt time.Time) error
}

// AttendanceStore persists one Record per (event, occurrence date).
type AttendanceStore interface {
	// GetRecord returns nil, nil when no record exists yet.
	GetRecord(ctx context.Context, eventID string, date schedule.Date) (*attendance.Record, error)
	SaveRecord(ctx context.Context, rec *attendance.Record) error
}

// StreakStore persists streak state per (user, scope).
type StreakStore interface {
	// GetStreak returns nil, nil when no state exists yet.
	GetStreak(ctx context.Context, userID, scopeID string) (*attendance.StreakState, error)
	SaveStreak(ctx context.Context, st attendance.StreakState) error
	ListStreaks(ctx context.Context, userID string) ([]attendance.StreakState, error)
}

// History provides the bounded historical lookups consumed by the reward
// computation. Both are single queries with no internal retry; when one
// fails the planner degrades (streak 1, no decay) and surfaces a warning
// instead of blocking the award.
type History interface {
	// PresentAtPriorEvent reports whether userID was marked present at the
	// most recent event strictly before the given date within the group.
	// found is false when no prior event exists.
	PresentAtPriorEvent(ctx context.Context, groupID string, before schedule.Date, userID string) (present bool, found bool, err error)

	// AttendedElsewhereOn reports whether userID was marked present at
	// any other event of the group on the same calendar date.
	AttendedElsewhereOn(ctx context.Context, groupID string, date schedule.Date, excludeEventID, userID string) (bool, error)
}

// PointsEntry is one row of the award/deduction history.
type PointsEntry struct {
	UserID    string
	Points    int
	XP        int
	Reason    string
	Date      schedule.Date
	ScopeID   string
	AwardedBy string // "system:attendance" | "system:correction"
	CreatedAt time.Time
}

// PointsLog is the append-only award history.
type PointsLog interface {
	AppendPoints(ctx context.Context, entry PointsEntry) error
	ListPoints(ctx context.Context, userID string) ([]PointsEntry, error)
}

// Applier atomically persists the side effects of one attendance save:
// the updated record, streak states and points entries. SQLite wraps a
// database transaction; the memory store applies under one lock.
type Applier interface {
	ApplyAttendance(ctx context.Context, result *AttendanceResult) error
}

// Store is the full storage surface the planner's callers wire together.
type Store interface {
	EventStore
	InvitationStore
	AttendanceStore
	StreakStore
	History
	PointsLog
	Applier
}
