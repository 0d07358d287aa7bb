package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/courtside/schedule-engine/schedule"
)

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate_RejectsBadDefinitions(t *testing.T) {
	start := schedule.MustParseDate("2024-01-03")
	endBeforeStart := schedule.MustParseDate("2023-12-01")

	cases := []struct {
		name  string
		def   schedule.EventDefinition
		field string
	}{
		{
			name:  "missing id",
			def:   schedule.EventDefinition{StartDate: start, Recurrence: schedule.RecurWeekly},
			field: "id",
		},
		{
			name:  "missing start date",
			def:   schedule.EventDefinition{ID: "evt-1", Recurrence: schedule.RecurWeekly},
			field: "start_date",
		},
		{
			name:  "unknown recurrence",
			def:   schedule.EventDefinition{ID: "evt-1", StartDate: start, Recurrence: "yearly"},
			field: "recurrence",
		},
		{
			name: "end before start",
			def: schedule.EventDefinition{
				ID: "evt-1", StartDate: start, Recurrence: schedule.RecurWeekly,
				RecurrenceEnd: &endBeforeStart,
			},
			field: "recurrence_end",
		},
		{
			name: "unknown lead unit",
			def: schedule.EventDefinition{
				ID: "evt-1", StartDate: start, Recurrence: schedule.RecurWeekly,
				Lead: &schedule.LeadTime{Value: 2, Unit: "fortnights"},
			},
			field: "lead",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			var defErr *schedule.DefinitionError
			if !errors.As(err, &defErr) {
				t.Fatalf("got %v, want DefinitionError", err)
			}
			if defErr.Field != tc.field {
				t.Errorf("got field %q, want %q", defErr.Field, tc.field)
			}
			if !errors.Is(err, schedule.ErrInvalidDefinition) {
				t.Error("DefinitionError should unwrap to ErrInvalidDefinition")
			}
		})
	}
}

// =============================================================================
// STREAK SCOPE
// =============================================================================

func TestStreakScope_PrefersFirstTargetSubgroup(t *testing.T) {
	def := schedule.EventDefinition{GroupID: "grp-1", TargetSubgroupIDs: []string{"sub-a", "sub-b"}}
	if got := def.StreakScope(); got != "sub-a" {
		t.Errorf("got %q, want sub-a", got)
	}

	def.TargetSubgroupIDs = nil
	if got := def.StreakScope(); got != "grp-1" {
		t.Errorf("got %q, want grp-1", got)
	}
}

// =============================================================================
// INVITATION DUE
// =============================================================================

func TestInvitationDue_SubtractsLeadFromOccurrenceStart(t *testing.T) {
	// GIVEN: A 19:00 event with a 2-day invitation lead
	// WHEN: Computing the due instant for an occurrence
	// THEN: It lands two days before the occurrence at 19:00

	def := schedule.EventDefinition{
		ID:        "evt-1",
		StartTime: "19:00",
		Lead:      &schedule.LeadTime{Value: 2, Unit: schedule.LeadDays},
	}

	due := def.InvitationDue(schedule.MustParseDate("2024-01-17"))
	want := time.Date(2024, time.January, 15, 19, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("got %v, want %v", due, want)
	}
}

func TestInvitationDue_NoLeadMeansNoDueInstant(t *testing.T) {
	def := schedule.EventDefinition{ID: "evt-1", StartTime: "19:00"}
	if due := def.InvitationDue(schedule.MustParseDate("2024-01-17")); !due.IsZero() {
		t.Errorf("got %v, want zero", due)
	}
}

func TestInvitationDue_MissingStartTimeFallsBackToMidnight(t *testing.T) {
	def := schedule.EventDefinition{
		ID:   "evt-1",
		Lead: &schedule.LeadTime{Value: 12, Unit: schedule.LeadHours},
	}

	due := def.InvitationDue(schedule.MustParseDate("2024-01-17"))
	want := time.Date(2024, time.January, 16, 12, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("got %v, want %v", due, want)
	}
}
