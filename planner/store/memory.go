// Package store provides an in-memory planner.Store implementation for
// tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/courtside/schedule-engine/attendance"
	"github.com/courtside/schedule-engine/planner"
	"github.com/courtside/schedule-engine/schedule"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	events      map[string]*schedule.EventDefinition
	invitations map[schedule.InvitationKey]schedule.Invitation
	records     map[recordKey]*attendance.Record
	streaks     map[streakKey]attendance.StreakState
	points      map[string][]planner.PointsEntry
}

type recordKey struct {
	EventID string
	Date    string
}

type streakKey struct {
	UserID  string
	ScopeID string
}

var _ planner.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		events:      make(map[string]*schedule.EventDefinition),
		invitations: make(map[schedule.InvitationKey]schedule.Invitation),
		records:     make(map[recordKey]*attendance.Record),
		streaks:     make(map[streakKey]attendance.StreakState),
		points:      make(map[string][]planner.PointsEntry),
	}
}

// =============================================================================
// EVENTS
// =============================================================================

func (m *Memory) GetEvent(_ context.Context, id string) (*schedule.EventDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.events[id]
	if !ok {
		return nil, planner.ErrEventNotFound
	}
	cp := *def
	return &cp, nil
}

func (m *Memory) SaveEvent(_ context.Context, def *schedule.EventDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *def
	m.events[def.ID] = &cp
	return nil
}

func (m *Memory) ListEvents(_ context.Context, groupID string) ([]*schedule.EventDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var defs []*schedule.EventDefinition
	for _, def := range m.events {
		if def.GroupID == groupID {
			cp := *def
			defs = append(defs, &cp)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// =============================================================================
// INVITATIONS
// =============================================================================

func (m *Memory) ListInvitations(_ context.Context, eventID string) ([]schedule.Invitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var invs []schedule.Invitation
	for key, inv := range m.invitations {
		if key.EventID == eventID {
			invs = append(invs, inv)
		}
	}
	sort.Slice(invs, func(i, j int) bool {
		if !invs[i].Date.Equal(invs[j].Date) {
			return invs[i].Date.Before(invs[j].Date)
		}
		return invs[i].UserID < invs[j].UserID
	})
	return invs, nil
}

func (m *Memory) CreateInvitations(_ context.Context, invs []schedule.Invitation) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := 0
	for _, inv := range invs {
		key := inv.Key()
		if _, exists := m.invitations[key]; exists {
			continue // duplicate key, reconciler will not re-propose it
		}
		m.invitations[key] = inv
		created++
	}
	return created, nil
}

func (m *Memory) SetInvitationStatus(_ context.Context, key schedule.InvitationKey, status schedule.InvitationStatus, respondedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[key]
	if !ok {
		return planner.ErrEventNotFound
	}
	inv.Status = status
	inv.RespondedAt = respondedAt
	m.invitations[key] = inv
	return nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Memory) GetRecord(_ context.Context, eventID string, date schedule.Date) (*attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey{EventID: eventID, Date: date.String()}]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) SaveRecord(_ context.Context, rec *attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[recordKey{EventID: rec.EventID, Date: rec.Date.String()}] = &cp
	return nil
}

// =============================================================================
// STREAKS
// =============================================================================

func (m *Memory) GetStreak(_ context.Context, userID, scopeID string) (*attendance.StreakState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.streaks[streakKey{UserID: userID, ScopeID: scopeID}]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *Memory) SaveStreak(_ context.Context, st attendance.StreakState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streaks[streakKey{UserID: st.UserID, ScopeID: st.ScopeID}] = st
	return nil
}

func (m *Memory) ListStreaks(_ context.Context, userID string) ([]attendance.StreakState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []attendance.StreakState
	for key, st := range m.streaks {
		if key.UserID == userID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScopeID < out[j].ScopeID })
	return out, nil
}

// =============================================================================
// HISTORY
// =============================================================================

// PresentAtPriorEvent scans attendance records of the group for the latest
// occurrence date strictly before the given date.
func (m *Memory) PresentAtPriorEvent(ctx context.Context, groupID string, before schedule.Date, userID string) (bool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *attendance.Record
	for _, rec := range m.records {
		if !m.inGroupLocked(rec.EventID, groupID) {
			continue
		}
		if !rec.Date.Before(before) {
			continue
		}
		if latest == nil || rec.Date.After(latest.Date) {
			latest = rec
		}
	}
	if latest == nil {
		return false, false, nil
	}
	return latest.IsPresent(userID), true, nil
}

func (m *Memory) AttendedElsewhereOn(ctx context.Context, groupID string, date schedule.Date, excludeEventID, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.EventID == excludeEventID || !rec.Date.Equal(date) {
			continue
		}
		if !m.inGroupLocked(rec.EventID, groupID) {
			continue
		}
		if rec.IsPresent(userID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) inGroupLocked(eventID, groupID string) bool {
	def, ok := m.events[eventID]
	return ok && def.GroupID == groupID
}

// =============================================================================
// POINTS LOG
// =============================================================================

func (m *Memory) AppendPoints(_ context.Context, entry planner.PointsEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[entry.UserID] = append(m.points[entry.UserID], entry)
	return nil
}

func (m *Memory) ListPoints(_ context.Context, userID string) ([]planner.PointsEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]planner.PointsEntry, len(m.points[userID]))
	copy(out, m.points[userID])
	return out, nil
}

// =============================================================================
// SIDE-EFFECT APPLICATION
// =============================================================================

// ApplyAttendance persists every side effect of one attendance save. The
// memory store applies them under a single lock; partial failure cannot
// occur here, unlike the SQLite implementation which wraps a transaction.
func (m *Memory) ApplyAttendance(ctx context.Context, result *planner.AttendanceResult) error {
	if result.Record != nil {
		if err := m.SaveRecord(ctx, result.Record); err != nil {
			return err
		}
	}
	for _, st := range result.Streaks {
		if err := m.SaveStreak(ctx, st); err != nil {
			return err
		}
	}
	for _, entry := range result.Points {
		if err := m.AppendPoints(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
