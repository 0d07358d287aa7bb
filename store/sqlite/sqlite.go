/*
Package sqlite provides the SQLite-backed implementation of the planner
storage interfaces.

PURPOSE:
  Implements planner.Store (events, invitations, attendance records,
  streaks, points history, historical lookups) plus atomic side-effect
  application. The same patterns apply to PostgreSQL with minor dialect
  changes.

KEY TABLES:
  events:         Event definitions (recurrence, exclusions, lead time)
  invitations:    One row per (event, user, occurrence date)
  attendance:     One row per (event, occurrence date); JSON sets inside
  streaks:        One row per (user, scope)
  points_history: Append-only award/deduction log

IDEMPOTENCY:
  invitations carries a UNIQUE(event_id, user_id, occurrence_date) index;
  CreateInvitations uses INSERT OR IGNORE so a create colliding with a
  concurrently created row is discarded, which is exactly what the
  reconciler's contract expects.

CONCURRENCY:
  Opened with WAL for concurrent readers; a sync.RWMutex serializes writes
  within the process. ApplyAttendance wraps one database transaction, which
  narrows - but does not close - the concurrent-save window on a single
  occurrence; the record update itself is last-writer-wins.

USAGE:
  store, err := sqlite.New("./data/schedule.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - planner/store.go:       Interface definitions
  - planner/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/courtside/schedule-engine/attendance"
	"github.com/courtside/schedule-engine/planner"
	"github.com/courtside/schedule-engine/schedule"
)

// Store implements planner.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ planner.Store = (*Store)(nil)

// New creates a SQLite store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// go-sqlite3 gives every pooled connection its own :memory: database;
	// a single connection keeps the schema visible across calls.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		recurrence TEXT NOT NULL,
		recurrence_end TEXT,
		excluded_dates_json TEXT NOT NULL DEFAULT '[]',
		lead_value INTEGER,
		lead_unit TEXT,
		target_subgroups_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_group ON events(group_id);

	CREATE TABLE IF NOT EXISTS invitations (
		event_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		occurrence_date TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		responded_at TEXT,
		PRIMARY KEY (event_id, user_id, occurrence_date)
	);

	CREATE INDEX IF NOT EXISTS idx_invitations_user ON invitations(user_id);

	CREATE TABLE IF NOT EXISTS attendance (
		event_id TEXT NOT NULL,
		occurrence_date TEXT NOT NULL,
		present_json TEXT NOT NULL DEFAULT '[]',
		exercises_json TEXT NOT NULL DEFAULT '[]',
		awarded_json TEXT NOT NULL DEFAULT '[]',
		coaches_json TEXT NOT NULL DEFAULT '[]',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (event_id, occurrence_date)
	);

	-- Historical lookups (prior event, same-day) are date-range scans.
	CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(occurrence_date);

	CREATE TABLE IF NOT EXISTS streaks (
		user_id TEXT NOT NULL,
		scope_id TEXT NOT NULL,
		current_streak INTEGER NOT NULL,
		last_attendance_date TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, scope_id)
	);

	CREATE TABLE IF NOT EXISTS points_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		points INTEGER NOT NULL,
		xp INTEGER NOT NULL,
		reason TEXT NOT NULL,
		date TEXT NOT NULL,
		scope_id TEXT NOT NULL DEFAULT '',
		awarded_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_points_user ON points_history(user_id, created_at DESC);
	`
	_, err := s.db.Exec(schemaSQL)
	return err
}

// =============================================================================
// EVENTS
// =============================================================================

func (s *Store) SaveEvent(ctx context.Context, def *schedule.EventDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	excluded := make([]string, 0, len(def.ExcludedDates))
	for _, d := range def.ExcludedDates {
		excluded = append(excluded, d.String())
	}
	excludedJSON, _ := json.Marshal(excluded)
	subgroupsJSON, _ := json.Marshal(emptyIfNil(def.TargetSubgroupIDs))

	var recurrenceEnd sql.NullString
	if def.RecurrenceEnd != nil {
		recurrenceEnd = sql.NullString{String: def.RecurrenceEnd.String(), Valid: true}
	}
	var leadValue sql.NullInt64
	var leadUnit sql.NullString
	if def.Lead != nil {
		leadValue = sql.NullInt64{Int64: int64(def.Lead.Value), Valid: true}
		leadUnit = sql.NullString{String: string(def.Lead.Unit), Valid: true}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO events (id, group_id, title, start_date, start_time, end_time,
			recurrence, recurrence_end, excluded_dates_json, lead_value, lead_unit,
			target_subgroups_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			group_id = excluded.group_id,
			title = excluded.title,
			start_date = excluded.start_date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			recurrence = excluded.recurrence,
			recurrence_end = excluded.recurrence_end,
			excluded_dates_json = excluded.excluded_dates_json,
			lead_value = excluded.lead_value,
			lead_unit = excluded.lead_unit,
			target_subgroups_json = excluded.target_subgroups_json,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		def.ID, def.GroupID, def.Title, def.StartDate.String(), def.StartTime, def.EndTime,
		string(def.Recurrence), recurrenceEnd, string(excludedJSON), leadValue, leadUnit,
		string(subgroupsJSON), now, now,
	)
	return err
}

func (s *Store) GetEvent(ctx context.Context, id string) (*schedule.EventDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, title, start_date, start_time, end_time,
			recurrence, recurrence_end, excluded_dates_json, lead_value, lead_unit,
			target_subgroups_json
		FROM events WHERE id = ?`, id)

	def, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, planner.ErrEventNotFound
	}
	return def, err
}

func (s *Store) ListEvents(ctx context.Context, groupID string) ([]*schedule.EventDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, title, start_date, start_time, end_time,
			recurrence, recurrence_end, excluded_dates_json, lead_value, lead_unit,
			target_subgroups_json
		FROM events WHERE group_id = ? ORDER BY start_date, id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*schedule.EventDefinition
	for rows.Next() {
		def, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*schedule.EventDefinition, error) {
	var (
		def           schedule.EventDefinition
		startDate     string
		recurrence    string
		recurrenceEnd sql.NullString
		excludedJSON  string
		leadValue     sql.NullInt64
		leadUnit      sql.NullString
		subgroupsJSON string
	)

	err := row.Scan(&def.ID, &def.GroupID, &def.Title, &startDate, &def.StartTime, &def.EndTime,
		&recurrence, &recurrenceEnd, &excludedJSON, &leadValue, &leadUnit, &subgroupsJSON)
	if err != nil {
		return nil, err
	}

	def.Recurrence = schedule.RecurrenceKind(recurrence)
	def.StartDate, err = schedule.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", def.ID, err)
	}
	if recurrenceEnd.Valid {
		end, err := schedule.ParseDate(recurrenceEnd.String)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", def.ID, err)
		}
		def.RecurrenceEnd = &end
	}
	if leadValue.Valid && leadUnit.Valid {
		def.Lead = &schedule.LeadTime{Value: int(leadValue.Int64), Unit: schedule.LeadUnit(leadUnit.String)}
	}

	var excluded []string
	if err := json.Unmarshal([]byte(excludedJSON), &excluded); err != nil {
		return nil, fmt.Errorf("event %s: excluded dates: %w", def.ID, err)
	}
	for _, raw := range excluded {
		d, err := schedule.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", def.ID, err)
		}
		def.ExcludedDates = append(def.ExcludedDates, d)
	}
	if err := json.Unmarshal([]byte(subgroupsJSON), &def.TargetSubgroupIDs); err != nil {
		return nil, fmt.Errorf("event %s: target subgroups: %w", def.ID, err)
	}

	return &def, nil
}

// =============================================================================
// INVITATIONS
// =============================================================================

func (s *Store) ListInvitations(ctx context.Context, eventID string) ([]schedule.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, user_id, occurrence_date, status, created_at, responded_at
		FROM invitations WHERE event_id = ?
		ORDER BY occurrence_date, user_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []schedule.Invitation
	for rows.Next() {
		var (
			inv         schedule.Invitation
			date        string
			createdAt   string
			respondedAt sql.NullString
		)
		if err := rows.Scan(&inv.EventID, &inv.UserID, &date, &inv.Status, &createdAt, &respondedAt); err != nil {
			return nil, err
		}
		inv.Date, err = schedule.ParseDate(date)
		if err != nil {
			return nil, err
		}
		inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if respondedAt.Valid {
			inv.RespondedAt, _ = time.Parse(time.RFC3339, respondedAt.String)
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// CreateInvitations inserts the creates, discarding key collisions.
// Partial persistence is acceptable: the next reconciliation pass
// re-proposes whatever is still missing.
func (s *Store) CreateInvitations(ctx context.Context, invs []schedule.Invitation) (int, error) {
	if len(invs) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	created := 0
	for _, inv := range invs {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO invitations (event_id, user_id, occurrence_date, status, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			inv.EventID, inv.UserID, inv.Date.String(), string(inv.Status),
			inv.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		created += int(n)
	}

	return created, tx.Commit()
}

func (s *Store) SetInvitationStatus(ctx context.Context, key schedule.InvitationKey, status schedule.InvitationStatus, respondedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET status = ?, responded_at = ?
		WHERE event_id = ? AND user_id = ? AND occurrence_date = ?`,
		string(status), respondedAt.UTC().Format(time.RFC3339),
		key.EventID, key.UserID, key.Date,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return planner.ErrEventNotFound
	}
	return nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// coachHoursRow keeps decimal hours as strings in JSON so precision survives
// the round trip.
type coachHoursRow struct {
	CoachID string `json:"coach_id"`
	Hours   string `json:"hours"`
}

type exerciseRow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

func (s *Store) GetRecord(ctx context.Context, eventID string, date schedule.Date) (*attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRecordTx(ctx, s.db, eventID, date)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getRecordTx(ctx context.Context, q querier, eventID string, date schedule.Date) (*attendance.Record, error) {
	row := q.QueryRowContext(ctx, `
		SELECT present_json, exercises_json, awarded_json, coaches_json, updated_at
		FROM attendance WHERE event_id = ? AND occurrence_date = ?`,
		eventID, date.String())

	var presentJSON, exercisesJSON, awardedJSON, coachesJSON, updatedAt string
	err := row.Scan(&presentJSON, &exercisesJSON, &awardedJSON, &coachesJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec := &attendance.Record{EventID: eventID, Date: date}
	if err := json.Unmarshal([]byte(presentJSON), &rec.Present); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(awardedJSON), &rec.AwardedTo); err != nil {
		return nil, err
	}

	var exercises []exerciseRow
	if err := json.Unmarshal([]byte(exercisesJSON), &exercises); err != nil {
		return nil, err
	}
	for _, ex := range exercises {
		rec.Exercises = append(rec.Exercises, attendance.Exercise{ID: ex.ID, Name: ex.Name, Points: ex.Points})
	}

	var coaches []coachHoursRow
	if err := json.Unmarshal([]byte(coachesJSON), &coaches); err != nil {
		return nil, err
	}
	for _, c := range coaches {
		hours, err := decimal.NewFromString(c.Hours)
		if err != nil {
			return nil, fmt.Errorf("attendance %s/%s: coach hours: %w", eventID, date, err)
		}
		rec.Coaches = append(rec.Coaches, attendance.CoachHours{CoachID: c.CoachID, Hours: hours})
	}

	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

func (s *Store) SaveRecord(ctx context.Context, rec *attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRecordTx(ctx, s.db, rec)
}

func saveRecordTx(ctx context.Context, q querier, rec *attendance.Record) error {
	presentJSON, _ := json.Marshal(emptyIfNil(rec.Present))
	awardedJSON, _ := json.Marshal(emptyIfNil(rec.AwardedTo))

	exercises := make([]exerciseRow, 0, len(rec.Exercises))
	for _, ex := range rec.Exercises {
		exercises = append(exercises, exerciseRow{ID: ex.ID, Name: ex.Name, Points: ex.Points})
	}
	exercisesJSON, _ := json.Marshal(exercises)

	coaches := make([]coachHoursRow, 0, len(rec.Coaches))
	for _, c := range rec.Coaches {
		coaches = append(coaches, coachHoursRow{CoachID: c.CoachID, Hours: c.Hours.String()})
	}
	coachesJSON, _ := json.Marshal(coaches)

	_, err := q.ExecContext(ctx, `
		INSERT INTO attendance (event_id, occurrence_date, present_json, exercises_json,
			awarded_json, coaches_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id, occurrence_date) DO UPDATE SET
			present_json = excluded.present_json,
			exercises_json = excluded.exercises_json,
			awarded_json = excluded.awarded_json,
			coaches_json = excluded.coaches_json,
			updated_at = excluded.updated_at`,
		rec.EventID, rec.Date.String(), string(presentJSON), string(exercisesJSON),
		string(awardedJSON), string(coachesJSON), rec.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// STREAKS
// =============================================================================

func (s *Store) GetStreak(ctx context.Context, userID, scopeID string) (*attendance.StreakState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT current_streak, last_attendance_date, updated_at
		FROM streaks WHERE user_id = ? AND scope_id = ?`, userID, scopeID)

	st := attendance.StreakState{UserID: userID, ScopeID: scopeID}
	var lastDate, updatedAt string
	err := row.Scan(&st.Current, &lastDate, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.LastAttendance, err = schedule.ParseDate(lastDate)
	if err != nil {
		return nil, err
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &st, nil
}

func (s *Store) SaveStreak(ctx context.Context, st attendance.StreakState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveStreakTx(ctx, s.db, st)
}

func saveStreakTx(ctx context.Context, q querier, st attendance.StreakState) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO streaks (user_id, scope_id, current_streak, last_attendance_date, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, scope_id) DO UPDATE SET
			current_streak = excluded.current_streak,
			last_attendance_date = excluded.last_attendance_date,
			updated_at = excluded.updated_at`,
		st.UserID, st.ScopeID, st.Current, st.LastAttendance.String(),
		st.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListStreaks(ctx context.Context, userID string) ([]attendance.StreakState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT scope_id, current_streak, last_attendance_date, updated_at
		FROM streaks WHERE user_id = ? ORDER BY scope_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []attendance.StreakState
	for rows.Next() {
		st := attendance.StreakState{UserID: userID}
		var lastDate, updatedAt string
		if err := rows.Scan(&st.ScopeID, &st.Current, &lastDate, &updatedAt); err != nil {
			return nil, err
		}
		if st.LastAttendance, err = schedule.ParseDate(lastDate); err != nil {
			return nil, err
		}
		st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, st)
	}
	return out, rows.Err()
}

// =============================================================================
// HISTORY LOOKUPS
// =============================================================================

// PresentAtPriorEvent finds the most recent attendance record of the group
// strictly before the date and checks membership of the present set.
func (s *Store) PresentAtPriorEvent(ctx context.Context, groupID string, before schedule.Date, userID string) (bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT a.present_json
		FROM attendance a
		JOIN events e ON e.id = a.event_id
		WHERE e.group_id = ? AND a.occurrence_date < ?
		ORDER BY a.occurrence_date DESC
		LIMIT 1`, groupID, before.String())

	var presentJSON string
	err := row.Scan(&presentJSON)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}

	var present []string
	if err := json.Unmarshal([]byte(presentJSON), &present); err != nil {
		return false, false, err
	}
	for _, id := range present {
		if id == userID {
			return true, true, nil
		}
	}
	return false, true, nil
}

// AttendedElsewhereOn checks the group's other attendance records on the
// same date for the user. Set membership is checked in Go; the JSON arrays
// are small.
func (s *Store) AttendedElsewhereOn(ctx context.Context, groupID string, date schedule.Date, excludeEventID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.present_json
		FROM attendance a
		JOIN events e ON e.id = a.event_id
		WHERE e.group_id = ? AND a.occurrence_date = ? AND a.event_id != ?`,
		groupID, date.String(), excludeEventID)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var presentJSON string
		if err := rows.Scan(&presentJSON); err != nil {
			return false, err
		}
		var present []string
		if err := json.Unmarshal([]byte(presentJSON), &present); err != nil {
			return false, err
		}
		for _, id := range present {
			if id == userID {
				return true, nil
			}
		}
	}
	return false, rows.Err()
}

// =============================================================================
// POINTS HISTORY
// =============================================================================

func (s *Store) AppendPoints(ctx context.Context, entry planner.PointsEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendPointsTx(ctx, s.db, entry)
}

func appendPointsTx(ctx context.Context, q querier, entry planner.PointsEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO points_history (user_id, points, xp, reason, date, scope_id, awarded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Points, entry.XP, entry.Reason, entry.Date.String(),
		entry.ScopeID, entry.AwardedBy, entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListPoints(ctx context.Context, userID string) ([]planner.PointsEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, points, xp, reason, date, scope_id, awarded_by, created_at
		FROM points_history WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []planner.PointsEntry
	for rows.Next() {
		var entry planner.PointsEntry
		var date, createdAt string
		if err := rows.Scan(&entry.UserID, &entry.Points, &entry.XP, &entry.Reason,
			&date, &entry.ScopeID, &entry.AwardedBy, &createdAt); err != nil {
			return nil, err
		}
		if entry.Date, err = schedule.ParseDate(date); err != nil {
			return nil, err
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// =============================================================================
// SIDE-EFFECT APPLICATION
// =============================================================================

// ApplyAttendance persists all side effects of one attendance save within
// a single database transaction: either the record, streaks and points
// entries all land, or none do.
func (s *Store) ApplyAttendance(ctx context.Context, result *planner.AttendanceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if result.Record != nil {
		if err := saveRecordTx(ctx, tx, result.Record); err != nil {
			return err
		}
	}
	for _, st := range result.Streaks {
		if err := saveStreakTx(ctx, tx, st); err != nil {
			return err
		}
	}
	for _, entry := range result.Points {
		if err := appendPointsTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
