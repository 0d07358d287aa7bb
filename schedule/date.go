package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar date value type (day granularity, no timezone drift)
// =============================================================================

// Date is a parsed calendar date. Events, occurrences and invitations are
// keyed by calendar date, never by instant, so Date deliberately carries no
// clock or timezone component. Construct via NewDate or ParseDate; the zero
// value is invalid and reported by IsZero.
type Date struct {
	t time.Time
}

// ISOFormat is the wire format for dates throughout the system.
const ISOFormat = "2006-01-02"

// NewDate constructs a Date from calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO YYYY-MM-DD string. Malformed input fails fast
// rather than propagating an unusable date into recurrence arithmetic.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(ISOFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for trusted literals (tests, seed data).
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf truncates an instant to its calendar date in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }

// At combines the date with a wall-clock time of day in UTC.
// hhmm must be "HH:MM"; an unparseable value falls back to midnight.
func (d Date) At(hhmm string) time.Time {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return d.t
	}
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.t.Format(ISOFormat)
}
