/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Events:
    EventDTO, SaveEventRequest, EventViewDTO

  Invitations:
    InvitationDTO, RespondInvitationRequest

  Attendance:
    SaveAttendanceRequest, AttendanceResultDTO, AwardDTO, DeductionDTO

  Streaks & points:
    StreakDTO, PointsEntryDTO

VALIDATION:
  Structural validation (dates parse, known enum values) is done in
  handlers. Domain validation lives on schedule.EventDefinition.

SEE ALSO:
  - handlers.go: Uses these types
  - planner/planner.go: Domain result types these map from
*/
package api

import (
	"time"

	"github.com/courtside/schedule-engine/attendance"
	"github.com/courtside/schedule-engine/planner"
	"github.com/courtside/schedule-engine/schedule"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventDTO represents an event definition in API responses.
type EventDTO struct {
	ID              string   `json:"id"`
	GroupID         string   `json:"group_id"`
	Title           string   `json:"title"`
	StartDate       string   `json:"start_date"`
	StartTime       string   `json:"start_time,omitempty"`
	EndTime         string   `json:"end_time,omitempty"`
	Recurrence      string   `json:"recurrence"`
	RecurrenceEnd   string   `json:"recurrence_end,omitempty"`
	ExcludedDates   []string `json:"excluded_dates,omitempty"`
	Lead            *LeadDTO `json:"invitation_lead,omitempty"`
	TargetSubgroups []string `json:"target_subgroups,omitempty"`
}

// LeadDTO is the invitation lead time in API form.
type LeadDTO struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// SaveEventRequest is the request to create or update an event.
type SaveEventRequest struct {
	ID              string   `json:"id"`
	GroupID         string   `json:"group_id"`
	Title           string   `json:"title"`
	StartDate       string   `json:"start_date"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	Recurrence      string   `json:"recurrence"`
	RecurrenceEnd   string   `json:"recurrence_end"`
	ExcludedDates   []string `json:"excluded_dates"`
	Lead            *LeadDTO `json:"invitation_lead"`
	TargetSubgroups []string `json:"target_subgroups"`
}

// EventViewDTO is one event as seen on the group schedule page: the
// definition plus its upcoming occurrences and the reconciliation outcome
// of this view.
type EventViewDTO struct {
	Event              EventDTO `json:"event"`
	Occurrences        []string `json:"occurrences"`
	InvitationsCreated int      `json:"invitations_created"`
}

// CancelOccurrenceRequest cancels a single occurrence date.
type CancelOccurrenceRequest struct {
	Date string `json:"date"`
}

// TruncateSeriesRequest ends a recurring series before the cutoff date.
type TruncateSeriesRequest struct {
	Cutoff string `json:"cutoff"`
}

// =============================================================================
// INVITATION TYPES
// =============================================================================

// InvitationDTO represents one per-occurrence invitation.
type InvitationDTO struct {
	EventID     string `json:"event_id"`
	UserID      string `json:"user_id"`
	Date        string `json:"occurrence_date"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at,omitempty"`
	RespondedAt string `json:"responded_at,omitempty"`
}

// RespondInvitationRequest records a user's response to an invitation.
type RespondInvitationRequest struct {
	UserID string `json:"user_id"`
	Date   string `json:"occurrence_date"`
	Status string `json:"status"`
}

// =============================================================================
// ATTENDANCE TYPES
// =============================================================================

// ExerciseDTO is one completed exercise on an attendance sheet.
type ExerciseDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// CoachHoursDTO records supervised hours for one coach.
type CoachHoursDTO struct {
	CoachID string `json:"coach_id"`
	Hours   string `json:"hours"`
}

// SaveAttendanceRequest is one coach-submitted attendance sheet.
type SaveAttendanceRequest struct {
	Date      string          `json:"date"`
	Present   []string        `json:"present"`
	Exercises []ExerciseDTO   `json:"exercises"`
	Coaches   []CoachHoursDTO `json:"coaches"`
}

// AwardDTO is one computed attendance award.
type AwardDTO struct {
	UserID  string `json:"user_id"`
	Points  int    `json:"points"`
	XP      int    `json:"xp"`
	Streak  int    `json:"streak"`
	Tier    string `json:"tier,omitempty"`
	SameDay bool   `json:"same_day,omitempty"`
	Reason  string `json:"reason"`
}

// DeductionDTO is one attendance-correction deduction.
type DeductionDTO struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`
	XP     int    `json:"xp"`
	Reason string `json:"reason"`
}

// NotificationDTO is one user-facing notification payload.
type NotificationDTO struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Points  int    `json:"points,omitempty"`
	Streak  int    `json:"streak,omitempty"`
}

// AttendanceResultDTO is the full outcome of one attendance save.
type AttendanceResultDTO struct {
	EventID       string            `json:"event_id"`
	Date          string            `json:"date"`
	Present       []string          `json:"present"`
	AwardedTo     []string          `json:"awarded_to"`
	Awards        []AwardDTO        `json:"awards"`
	Deductions    []DeductionDTO    `json:"deductions"`
	Notifications []NotificationDTO `json:"notifications"`
	Warnings      []string          `json:"warnings,omitempty"`
}

// =============================================================================
// STREAK & POINTS TYPES
// =============================================================================

// StreakDTO is one user's streak within one scope.
type StreakDTO struct {
	ScopeID        string `json:"scope_id"`
	Current        int    `json:"current_streak"`
	LastAttendance string `json:"last_attendance_date"`
}

// PointsEntryDTO is one row of the award/deduction history.
type PointsEntryDTO struct {
	Points    int    `json:"points"`
	XP        int    `json:"xp"`
	Reason    string `json:"reason"`
	Date      string `json:"date"`
	ScopeID   string `json:"scope_id,omitempty"`
	AwardedBy string `json:"awarded_by"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func eventDTO(def *schedule.EventDefinition) EventDTO {
	dto := EventDTO{
		ID:              def.ID,
		GroupID:         def.GroupID,
		Title:           def.Title,
		StartDate:       def.StartDate.String(),
		StartTime:       def.StartTime,
		EndTime:         def.EndTime,
		Recurrence:      string(def.Recurrence),
		TargetSubgroups: def.TargetSubgroupIDs,
	}
	if def.RecurrenceEnd != nil {
		dto.RecurrenceEnd = def.RecurrenceEnd.String()
	}
	for _, d := range def.ExcludedDates {
		dto.ExcludedDates = append(dto.ExcludedDates, d.String())
	}
	if def.Lead != nil {
		dto.Lead = &LeadDTO{Value: def.Lead.Value, Unit: string(def.Lead.Unit)}
	}
	return dto
}

func invitationDTO(inv schedule.Invitation) InvitationDTO {
	dto := InvitationDTO{
		EventID: inv.EventID,
		UserID:  inv.UserID,
		Date:    inv.Date.String(),
		Status:  string(inv.Status),
	}
	if !inv.CreatedAt.IsZero() {
		dto.CreatedAt = inv.CreatedAt.Format(time.RFC3339)
	}
	if !inv.RespondedAt.IsZero() {
		dto.RespondedAt = inv.RespondedAt.Format(time.RFC3339)
	}
	return dto
}

func attendanceResultDTO(result *planner.AttendanceResult) AttendanceResultDTO {
	dto := AttendanceResultDTO{
		EventID:   result.Record.EventID,
		Date:      result.Record.Date.String(),
		Present:   result.Record.Present,
		AwardedTo: result.Record.AwardedTo,
		Warnings:  result.Warnings,
	}
	for _, a := range result.Awards {
		dto.Awards = append(dto.Awards, AwardDTO{
			UserID:  a.UserID,
			Points:  a.Points,
			XP:      a.XP,
			Streak:  a.Streak,
			Tier:    string(a.Tier),
			SameDay: a.SameDay,
			Reason:  a.Reason,
		})
	}
	for _, d := range result.Deductions {
		dto.Deductions = append(dto.Deductions, DeductionDTO{
			UserID: d.UserID,
			Points: d.Points,
			XP:     d.XP,
			Reason: d.Reason,
		})
	}
	for _, n := range result.Notifications {
		dto.Notifications = append(dto.Notifications, NotificationDTO{
			UserID:  n.UserID,
			Type:    n.Type,
			Title:   n.Title,
			Message: n.Message,
			Points:  n.Points,
			Streak:  n.Streak,
		})
	}
	return dto
}

func streakDTO(st attendance.StreakState) StreakDTO {
	return StreakDTO{
		ScopeID:        st.ScopeID,
		Current:        st.Current,
		LastAttendance: st.LastAttendance.String(),
	}
}

func pointsEntryDTO(entry planner.PointsEntry) PointsEntryDTO {
	dto := PointsEntryDTO{
		Points:    entry.Points,
		XP:        entry.XP,
		Reason:    entry.Reason,
		Date:      entry.Date.String(),
		ScopeID:   entry.ScopeID,
		AwardedBy: entry.AwardedBy,
	}
	if !entry.CreatedAt.IsZero() {
		dto.CreatedAt = entry.CreatedAt.Format(time.RFC3339)
	}
	return dto
}
