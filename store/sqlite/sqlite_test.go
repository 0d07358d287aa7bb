package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/schedule-engine/attendance"
	"github.com/courtside/schedule-engine/planner"
	"github.com/courtside/schedule-engine/schedule"
	"github.com/courtside/schedule-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEvent(id, groupID string) *schedule.EventDefinition {
	end := schedule.MustParseDate("2024-06-30")
	return &schedule.EventDefinition{
		ID:                id,
		GroupID:           groupID,
		Title:             "Training",
		StartDate:         schedule.MustParseDate("2024-01-03"),
		StartTime:         "19:00",
		EndTime:           "20:30",
		Recurrence:        schedule.RecurWeekly,
		RecurrenceEnd:     &end,
		ExcludedDates:     []schedule.Date{schedule.MustParseDate("2024-01-24")},
		Lead:              &schedule.LeadTime{Value: 2, Unit: schedule.LeadDays},
		TargetSubgroupIDs: []string{"sub-u15"},
	}
}

// =============================================================================
// EVENTS
// =============================================================================

func TestEvents_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	def := testEvent("evt-1", "grp-1")
	require.NoError(t, store.SaveEvent(ctx, def))

	got, err := store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, def.Title, got.Title)
	assert.Equal(t, def.StartDate.String(), got.StartDate.String())
	assert.Equal(t, def.Recurrence, got.Recurrence)
	require.NotNil(t, got.RecurrenceEnd)
	assert.Equal(t, "2024-06-30", got.RecurrenceEnd.String())
	require.Len(t, got.ExcludedDates, 1)
	assert.Equal(t, "2024-01-24", got.ExcludedDates[0].String())
	require.NotNil(t, got.Lead)
	assert.Equal(t, schedule.LeadDays, got.Lead.Unit)
	assert.Equal(t, []string{"sub-u15"}, got.TargetSubgroupIDs)
}

func TestEvents_SaveIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	def := testEvent("evt-1", "grp-1")
	require.NoError(t, store.SaveEvent(ctx, def))

	def.Title = "Evening Training"
	def.ExcludedDates = append(def.ExcludedDates, schedule.MustParseDate("2024-02-07"))
	require.NoError(t, store.SaveEvent(ctx, def))

	got, err := store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "Evening Training", got.Title)
	assert.Len(t, got.ExcludedDates, 2)
}

func TestEvents_GetMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetEvent(context.Background(), "nope")
	assert.True(t, errors.Is(err, planner.ErrEventNotFound))
}

func TestEvents_ListFiltersByGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEvent(ctx, testEvent("evt-1", "grp-1")))
	require.NoError(t, store.SaveEvent(ctx, testEvent("evt-2", "grp-1")))
	require.NoError(t, store.SaveEvent(ctx, testEvent("evt-3", "grp-2")))

	defs, err := store.ListEvents(ctx, "grp-1")
	require.NoError(t, err)
	assert.Len(t, defs, 2)
}

// =============================================================================
// INVITATIONS
// =============================================================================

func TestInvitations_DuplicateKeysAreDiscarded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

	invs := []schedule.Invitation{
		{EventID: "evt-1", UserID: "alice", Date: schedule.MustParseDate("2024-01-17"), Status: schedule.InvitePending, CreatedAt: now},
		{EventID: "evt-1", UserID: "bob", Date: schedule.MustParseDate("2024-01-17"), Status: schedule.InvitePending, CreatedAt: now},
	}

	created, err := store.CreateInvitations(ctx, invs)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Replaying the same batch creates nothing.
	created, err = store.CreateInvitations(ctx, invs)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	listed, err := store.ListInvitations(ctx, "evt-1")
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestInvitations_ReplayDoesNotResetResponses(t *testing.T) {
	// GIVEN: alice accepted her invitation
	// WHEN: The reconciler replays the same create
	// THEN: Her response survives

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

	inv := schedule.Invitation{
		EventID: "evt-1", UserID: "alice",
		Date: schedule.MustParseDate("2024-01-17"), Status: schedule.InvitePending, CreatedAt: now,
	}
	_, err := store.CreateInvitations(ctx, []schedule.Invitation{inv})
	require.NoError(t, err)

	require.NoError(t, store.SetInvitationStatus(ctx, inv.Key(), schedule.InviteAccepted, now.Add(time.Hour)))

	_, err = store.CreateInvitations(ctx, []schedule.Invitation{inv})
	require.NoError(t, err)

	listed, err := store.ListInvitations(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, schedule.InviteAccepted, listed[0].Status)
	assert.False(t, listed[0].RespondedAt.IsZero())
}

func TestInvitations_RespondToMissingInvitationFails(t *testing.T) {
	store := newTestStore(t)

	key := schedule.InvitationKey{EventID: "evt-1", UserID: "ghost", Date: "2024-01-17"}
	err := store.SetInvitationStatus(context.Background(), key, schedule.InviteAccepted, time.Now())
	assert.True(t, errors.Is(err, planner.ErrEventNotFound))
}

// =============================================================================
// ATTENDANCE RECORDS
// =============================================================================

func TestRecords_RoundTripWithCoachHours(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := schedule.MustParseDate("2024-01-17")

	rec := &attendance.Record{
		EventID:   "evt-1",
		Date:      date,
		Present:   []string{"alice", "bob"},
		Exercises: []attendance.Exercise{{ID: "ex-1", Name: "Sprints", Points: 2}},
		AwardedTo: []string{"alice", "bob"},
		Coaches:   []attendance.CoachHours{{CoachID: "coach-1", Hours: decimal.RequireFromString("1.5")}},
		UpdatedAt: time.Date(2024, time.January, 17, 21, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveRecord(ctx, rec))

	got, err := store.GetRecord(ctx, "evt-1", date)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Present, got.Present)
	assert.Equal(t, rec.AwardedTo, got.AwardedTo)
	require.Len(t, got.Exercises, 1)
	assert.Equal(t, 2, got.Exercises[0].Points)
	require.Len(t, got.Coaches, 1)
	assert.True(t, got.Coaches[0].Hours.Equal(decimal.RequireFromString("1.5")), "fractional hours must survive the round trip")
}

func TestRecords_MissingRecordIsNilNotError(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRecord(context.Background(), "evt-1", schedule.MustParseDate("2024-01-17"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

// =============================================================================
// STREAKS
// =============================================================================

func TestStreaks_UpsertAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, time.January, 17, 21, 0, 0, 0, time.UTC)

	st := attendance.StreakState{
		UserID: "alice", ScopeID: "sub-u15",
		Current: 1, LastAttendance: schedule.MustParseDate("2024-01-17"), UpdatedAt: now,
	}
	require.NoError(t, store.SaveStreak(ctx, st))

	st.Current = 2
	st.LastAttendance = schedule.MustParseDate("2024-01-24")
	require.NoError(t, store.SaveStreak(ctx, st))

	got, err := store.GetStreak(ctx, "alice", "sub-u15")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Current)
	assert.Equal(t, "2024-01-24", got.LastAttendance.String())

	missing, err := store.GetStreak(ctx, "alice", "other-scope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := store.ListStreaks(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// =============================================================================
// HISTORY LOOKUPS
// =============================================================================

func TestHistory_PresentAtPriorEvent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEvent(ctx, testEvent("evt-1", "grp-1")))
	require.NoError(t, store.SaveRecord(ctx, &attendance.Record{
		EventID: "evt-1", Date: schedule.MustParseDate("2024-01-10"),
		Present: []string{"alice"}, UpdatedAt: time.Now(),
	}))
	require.NoError(t, store.SaveRecord(ctx, &attendance.Record{
		EventID: "evt-1", Date: schedule.MustParseDate("2024-01-17"),
		Present: []string{"bob"}, UpdatedAt: time.Now(),
	}))

	// The latest record before 2024-01-24 has only bob present.
	present, found, err := store.PresentAtPriorEvent(ctx, "grp-1", schedule.MustParseDate("2024-01-24"), "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, present)

	present, found, err = store.PresentAtPriorEvent(ctx, "grp-1", schedule.MustParseDate("2024-01-24"), "bob")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, present)

	// No records before the earliest date.
	_, found, err = store.PresentAtPriorEvent(ctx, "grp-1", schedule.MustParseDate("2024-01-10"), "alice")
	require.NoError(t, err)
	assert.False(t, found)

	// Other groups never match.
	_, found, err = store.PresentAtPriorEvent(ctx, "grp-2", schedule.MustParseDate("2024-01-24"), "alice")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHistory_AttendedElsewhereOn(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := schedule.MustParseDate("2024-01-17")

	require.NoError(t, store.SaveEvent(ctx, testEvent("evt-morning", "grp-1")))
	require.NoError(t, store.SaveEvent(ctx, testEvent("evt-evening", "grp-1")))
	require.NoError(t, store.SaveRecord(ctx, &attendance.Record{
		EventID: "evt-morning", Date: date,
		Present: []string{"alice"}, UpdatedAt: time.Now(),
	}))

	elsewhere, err := store.AttendedElsewhereOn(ctx, "grp-1", date, "evt-evening", "alice")
	require.NoError(t, err)
	assert.True(t, elsewhere)

	// The excluded event's own record does not count.
	elsewhere, err = store.AttendedElsewhereOn(ctx, "grp-1", date, "evt-morning", "alice")
	require.NoError(t, err)
	assert.False(t, elsewhere)
}

// =============================================================================
// POINTS & ATOMIC APPLICATION
// =============================================================================

func TestApplyAttendance_PersistsAllSideEffects(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := schedule.MustParseDate("2024-01-17")
	now := time.Date(2024, time.January, 17, 21, 0, 0, 0, time.UTC)

	result := &planner.AttendanceResult{
		Record: &attendance.Record{
			EventID: "evt-1", Date: date,
			Present: []string{"alice"}, AwardedTo: []string{"alice"}, UpdatedAt: now,
		},
		Streaks: []attendance.StreakState{
			{UserID: "alice", ScopeID: "grp-1", Current: 3, LastAttendance: date, UpdatedAt: now},
		},
		Points: []planner.PointsEntry{
			{UserID: "alice", Points: 5, XP: 5, Reason: "Training on 2024-01-17 (3x streak)",
				Date: date, ScopeID: "grp-1", AwardedBy: "system:attendance", CreatedAt: now},
		},
	}
	require.NoError(t, store.ApplyAttendance(ctx, result))

	rec, err := store.GetRecord(ctx, "evt-1", date)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"alice"}, rec.AwardedTo)

	st, err := store.GetStreak(ctx, "alice", "grp-1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 3, st.Current)

	entries, err := store.ListPoints(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].Points)
	assert.Equal(t, "system:attendance", entries[0].AwardedBy)
}

func TestPoints_AppendOnlyOrderPreserved(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := schedule.MustParseDate("2024-01-17")

	entries := []planner.PointsEntry{
		{UserID: "alice", Points: 3, XP: 3, Reason: "first", Date: date, AwardedBy: "system:attendance", CreatedAt: time.Unix(100, 0)},
		{UserID: "alice", Points: -3, XP: -3, Reason: "second", Date: date, AwardedBy: "system:correction", CreatedAt: time.Unix(200, 0)},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendPoints(ctx, e))
	}

	got, err := store.ListPoints(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Reason)
	assert.Equal(t, "second", got[1].Reason)
	assert.Equal(t, -3, got[1].Points)
}
