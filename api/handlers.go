/*
handlers.go - HTTP API handlers for the schedule engine

PURPOSE:
  Exposes the scheduling and attendance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Events:
    GET    /api/groups/{groupID}/events   List events, reconcile invitations
    POST   /api/events                    Create or update an event
    GET    /api/events/{id}               Get event details
    GET    /api/events/{id}/occurrences   Upcoming occurrence dates
    POST   /api/events/{id}/cancel        Cancel one occurrence
    POST   /api/events/{id}/truncate      End a recurring series

  Invitations:
    GET    /api/events/{id}/invitations   List invitations for an event
    POST   /api/events/{id}/invitations/respond  Record a user response

  Attendance:
    POST   /api/events/{id}/attendance    Save an attendance sheet

  Users:
    GET    /api/users/{id}/streaks        Streak state per scope
    GET    /api/users/{id}/points         Award/deduction history

RECONCILE ON VIEW:
  Listing a group's events is a write-ish read: missing invitations inside
  the lookahead window are created as part of handling the request. The
  operation is idempotent, so repeated views are harmless.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (planner, recurrence, rewards)
  4. Persist side effects
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Event or invitation not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - planner/planner.go: The domain logic these handlers drive
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/courtside/schedule-engine/attendance"
	"github.com/courtside/schedule-engine/planner"
	"github.com/courtside/schedule-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   planner.Store
	Planner *planner.Planner
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(store planner.Store) *Handler {
	return &Handler{
		Store: store,
		Planner: &planner.Planner{
			Invitations: store,
			Attendance:  store,
			Streaks:     store,
			History:     store,
		},
	}
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// ListGroupEvents returns a group's events with their upcoming occurrences.
// Missing invitations for the requested users are created along the way.
func (h *Handler) ListGroupEvents(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	users := splitParam(r.URL.Query().Get("users"))
	weeks := intParam(r.URL.Query().Get("weeks"))

	defs, err := h.Store.ListEvents(r.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}

	views := make([]EventViewDTO, 0, len(defs))
	for _, def := range defs {
		plan, err := h.Planner.PlanInvitations(r.Context(), def, users, weeks)
		if err != nil {
			writeError(w, statusFor(err), "Failed to plan invitations", err)
			return
		}

		created := 0
		if len(plan.Creates) > 0 {
			created, err = h.Store.CreateInvitations(r.Context(), plan.Creates)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to create invitations", err)
				return
			}
		}

		view := EventViewDTO{Event: eventDTO(def), InvitationsCreated: created}
		for _, occ := range plan.Occurrences {
			view.Occurrences = append(view.Occurrences, occ.String())
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, views)
}

// SaveEvent creates or updates an event definition.
func (h *Handler) SaveEvent(w http.ResponseWriter, r *http.Request) {
	var req SaveEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	def, err := eventFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event", err)
		return
	}

	if err := h.Store.SaveEvent(r.Context(), def); err != nil {
		writeError(w, statusFor(err), "Failed to save event", err)
		return
	}

	writeJSON(w, http.StatusCreated, eventDTO(def))
}

// GetEvent returns a single event definition.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, eventDTO(def))
}

// GetOccurrences returns the event's occurrence dates within the lookahead
// window.
func (h *Handler) GetOccurrences(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	weeks := intParam(r.URL.Query().Get("weeks"))
	if weeks <= 0 {
		weeks = planner.DefaultLookaheadWeeks
	}
	window := schedule.NewLookahead(schedule.Today(), weeks)

	occurrences, err := schedule.GenerateOccurrences(def, window)
	if err != nil {
		writeError(w, statusFor(err), "Failed to generate occurrences", err)
		return
	}

	dates := make([]string, 0, len(occurrences))
	for _, occ := range occurrences {
		dates = append(dates, occ.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id":    def.ID,
		"window":      map[string]string{"start": window.Start.String(), "end": window.End.String()},
		"occurrences": dates,
	})
}

// CancelOccurrence excludes a single occurrence date from the series.
func (h *Handler) CancelOccurrence(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	var req CancelOccurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	planner.CancelOccurrence(def, date)
	if err := h.Store.SaveEvent(r.Context(), def); err != nil {
		writeError(w, statusFor(err), "Failed to save event", err)
		return
	}

	writeJSON(w, http.StatusOK, eventDTO(def))
}

// TruncateSeries ends a recurring series the day before the cutoff.
func (h *Handler) TruncateSeries(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	var req TruncateSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cutoff, err := schedule.ParseDate(req.Cutoff)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cutoff date", err)
		return
	}

	planner.TruncateSeries(def, cutoff)
	if err := h.Store.SaveEvent(r.Context(), def); err != nil {
		writeError(w, statusFor(err), "Failed to save event", err)
		return
	}

	writeJSON(w, http.StatusOK, eventDTO(def))
}

// =============================================================================
// INVITATION HANDLERS
// =============================================================================

// ListInvitations returns all invitations for an event.
func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	invs, err := h.Store.ListInvitations(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invitations", err)
		return
	}

	dtos := make([]InvitationDTO, 0, len(invs))
	for _, inv := range invs {
		dtos = append(dtos, invitationDTO(inv))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RespondInvitation records a user's accept/reject response.
func (h *Handler) RespondInvitation(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var req RespondInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	status := schedule.InvitationStatus(req.Status)
	if status != schedule.InviteAccepted && status != schedule.InviteRejected {
		writeError(w, http.StatusBadRequest, "Status must be accepted or rejected", nil)
		return
	}
	if _, err := schedule.ParseDate(req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid occurrence date", err)
		return
	}

	key := schedule.InvitationKey{EventID: eventID, UserID: req.UserID, Date: req.Date}
	if err := h.Store.SetInvitationStatus(r.Context(), key, status, time.Now()); err != nil {
		if errors.Is(err, planner.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "Invitation not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update invitation", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": req.Status})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// SaveAttendance computes and persists the side effects of one attendance
// sheet: the record, awards, deductions, streak updates and points entries.
func (h *Handler) SaveAttendance(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	var req SaveAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	save := planner.AttendanceSave{
		Event:   def,
		Date:    date,
		Present: req.Present,
	}
	for _, ex := range req.Exercises {
		save.Exercises = append(save.Exercises, attendance.Exercise{ID: ex.ID, Name: ex.Name, Points: ex.Points})
	}
	for _, c := range req.Coaches {
		hours, err := decimal.NewFromString(c.Hours)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid coach hours", err)
			return
		}
		save.Coaches = append(save.Coaches, attendance.CoachHours{CoachID: c.CoachID, Hours: hours})
	}

	result, err := h.Planner.ApplyAttendance(r.Context(), save)
	if err != nil {
		writeError(w, statusFor(err), "Failed to process attendance", err)
		return
	}

	if err := h.Store.ApplyAttendance(r.Context(), result); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist attendance", err)
		return
	}

	writeJSON(w, http.StatusOK, attendanceResultDTO(result))
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// GetUserStreaks returns a user's streak state for every scope.
func (h *Handler) GetUserStreaks(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	streaks, err := h.Store.ListStreaks(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list streaks", err)
		return
	}

	dtos := make([]StreakDTO, 0, len(streaks))
	for _, st := range streaks {
		dtos = append(dtos, streakDTO(st))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUserPoints returns a user's award/deduction history.
func (h *Handler) GetUserPoints(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	entries, err := h.Store.ListPoints(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list points", err)
		return
	}

	total := 0
	dtos := make([]PointsEntryDTO, 0, len(entries))
	for _, entry := range entries {
		total += entry.Points
		dtos = append(dtos, pointsEntryDTO(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"total":   total,
		"entries": dtos,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadEvent(w http.ResponseWriter, r *http.Request) (*schedule.EventDefinition, bool) {
	id := chi.URLParam(r, "id")
	def, err := h.Store.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, planner.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "Event not found", nil)
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get event", err)
		return nil, false
	}
	return def, true
}

func eventFromRequest(req SaveEventRequest) (*schedule.EventDefinition, error) {
	startDate, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		return nil, err
	}

	def := &schedule.EventDefinition{
		ID:                req.ID,
		GroupID:           req.GroupID,
		Title:             req.Title,
		StartDate:         startDate,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		Recurrence:        schedule.RecurrenceKind(req.Recurrence),
		TargetSubgroupIDs: req.TargetSubgroups,
	}
	if def.Recurrence == "" {
		def.Recurrence = schedule.RecurNone
	}

	if req.RecurrenceEnd != "" {
		end, err := schedule.ParseDate(req.RecurrenceEnd)
		if err != nil {
			return nil, err
		}
		def.RecurrenceEnd = &end
	}
	for _, raw := range req.ExcludedDates {
		d, err := schedule.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		def.ExcludedDates = append(def.ExcludedDates, d)
	}
	if req.Lead != nil {
		def.Lead = &schedule.LeadTime{Value: req.Lead.Value, Unit: schedule.LeadUnit(req.Lead.Unit)}
	}

	return def, def.Validate()
}

func statusFor(err error) int {
	if schedule.IsClientError(err) {
		return http.StatusBadRequest
	}
	if errors.Is(err, planner.ErrEventNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
