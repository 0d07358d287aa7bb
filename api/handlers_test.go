package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/schedule-engine/api"
	"github.com/courtside/schedule-engine/planner/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	handler := api.NewHandler(mem)
	handler.Planner.Now = func() time.Time {
		return time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	}
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, mem
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func createWeeklyEvent(t *testing.T, srv *httptest.Server, id string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events", api.SaveEventRequest{
		ID:         id,
		GroupID:    "grp-1",
		Title:      "Training",
		StartDate:  "2024-01-03",
		StartTime:  "19:00",
		Recurrence: "weekly",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// EVENTS
// =============================================================================

func TestAPI_CreateAndGetEvent(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	resp, err := http.Get(srv.URL + "/api/events/evt-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto api.EventDTO
	decode(t, resp, &dto)
	assert.Equal(t, "evt-1", dto.ID)
	assert.Equal(t, "weekly", dto.Recurrence)
	assert.Equal(t, "2024-01-03", dto.StartDate)
}

func TestAPI_CreateEventValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events", api.SaveEventRequest{
		ID:         "evt-bad",
		GroupID:    "grp-1",
		StartDate:  "2024-01-03",
		Recurrence: "yearly",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetMissingEventReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/events/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_GetOccurrences(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	resp, err := http.Get(srv.URL + "/api/events/evt-1/occurrences")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Occurrences []string `json:"occurrences"`
	}
	decode(t, resp, &body)
	// GetOccurrences uses the real clock, so only check shape.
	assert.NotEmpty(t, body.Occurrences)
}

func TestAPI_CancelOccurrence(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events/evt-1/cancel",
		api.CancelOccurrenceRequest{Date: "2024-01-24"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto api.EventDTO
	decode(t, resp, &dto)
	assert.Contains(t, dto.ExcludedDates, "2024-01-24")
}

func TestAPI_TruncateSeries(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events/evt-1/truncate",
		api.TruncateSeriesRequest{Cutoff: "2024-02-01"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto api.EventDTO
	decode(t, resp, &dto)
	assert.Equal(t, "2024-01-31", dto.RecurrenceEnd)
}

// =============================================================================
// GROUP VIEW & INVITATIONS
// =============================================================================

func TestAPI_GroupViewReconcilesInvitations(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	resp, err := http.Get(srv.URL + "/api/groups/grp-1/events?users=alice,bob")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var views []api.EventViewDTO
	decode(t, resp, &views)
	require.Len(t, views, 1)
	assert.Len(t, views[0].Occurrences, 4, "Wednesdays inside [2024-01-15, 2024-02-12]")
	assert.Equal(t, 8, views[0].InvitationsCreated)

	// The second view finds everything in place.
	resp, err = http.Get(srv.URL + "/api/groups/grp-1/events?users=alice,bob")
	require.NoError(t, err)
	decode(t, resp, &views)
	assert.Equal(t, 0, views[0].InvitationsCreated, "view must be idempotent")
}

func TestAPI_RespondInvitation(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	resp, err := http.Get(srv.URL + "/api/groups/grp-1/events?users=alice")
	require.NoError(t, err)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/events/evt-1/invitations/respond",
		api.RespondInvitationRequest{UserID: "alice", Date: "2024-01-17", Status: "accepted"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, err := http.Get(srv.URL + "/api/events/evt-1/invitations")
	require.NoError(t, err)
	var invs []api.InvitationDTO
	decode(t, listResp, &invs)
	require.NotEmpty(t, invs)

	accepted := 0
	for _, inv := range invs {
		if inv.Status == "accepted" {
			accepted++
			assert.Equal(t, "alice", inv.UserID)
			assert.Equal(t, "2024-01-17", inv.Date)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestAPI_RespondInvitationRejectsBadStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events/evt-1/invitations/respond",
		api.RespondInvitationRequest{UserID: "alice", Date: "2024-01-17", Status: "maybe"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_RespondToMissingInvitationReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events/evt-1/invitations/respond",
		api.RespondInvitationRequest{UserID: "ghost", Date: "2024-01-17", Status: "accepted"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestAPI_SaveAttendanceAwardsAndPersists(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events/evt-1/attendance", api.SaveAttendanceRequest{
		Date:    "2024-01-17",
		Present: []string{"alice", "bob"},
		Exercises: []api.ExerciseDTO{
			{ID: "ex-1", Name: "Sprints", Points: 1},
		},
		Coaches: []api.CoachHoursDTO{
			{CoachID: "coach-1", Hours: "1.5"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.AttendanceResultDTO
	decode(t, resp, &result)
	assert.Len(t, result.Awards, 2)
	for _, a := range result.Awards {
		assert.Equal(t, 4, a.Points, "base 3 + 1 exercise point")
		assert.Equal(t, 1, a.Streak)
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, result.AwardedTo)
	assert.Len(t, result.Notifications, 2)

	// The award history is queryable afterwards.
	ptsResp, err := http.Get(srv.URL + "/api/users/alice/points")
	require.NoError(t, err)
	var pts struct {
		Total   int                  `json:"total"`
		Entries []api.PointsEntryDTO `json:"entries"`
	}
	decode(t, ptsResp, &pts)
	assert.Equal(t, 4, pts.Total)
	require.Len(t, pts.Entries, 1)
	assert.Equal(t, "system:attendance", pts.Entries[0].AwardedBy)

	// So is the streak state.
	stResp, err := http.Get(srv.URL + "/api/users/alice/streaks")
	require.NoError(t, err)
	var streaks []api.StreakDTO
	decode(t, stResp, &streaks)
	require.Len(t, streaks, 1)
	assert.Equal(t, "grp-1", streaks[0].ScopeID)
	assert.Equal(t, 1, streaks[0].Current)
}

func TestAPI_SaveAttendanceCorrectionDeducts(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	first := doJSON(t, http.MethodPost, srv.URL+"/api/events/evt-1/attendance", api.SaveAttendanceRequest{
		Date: "2024-01-17", Present: []string{"alice", "bob"},
	})
	first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events/evt-1/attendance", api.SaveAttendanceRequest{
		Date: "2024-01-17", Present: []string{"alice"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.AttendanceResultDTO
	decode(t, resp, &result)
	assert.Empty(t, result.Awards)
	require.Len(t, result.Deductions, 1)
	assert.Equal(t, "bob", result.Deductions[0].UserID)
	assert.Equal(t, 3, result.Deductions[0].Points)
}

func TestAPI_SaveAttendanceRejectsBadHours(t *testing.T) {
	srv, _ := newTestServer(t)
	createWeeklyEvent(t, srv, "evt-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events/evt-1/attendance", api.SaveAttendanceRequest{
		Date:    "2024-01-17",
		Present: []string{"alice"},
		Coaches: []api.CoachHoursDTO{{CoachID: "coach-1", Hours: "ninety"}},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
