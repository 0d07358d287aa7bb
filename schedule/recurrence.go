/*
recurrence.go - Occurrence generation for recurring event definitions

PURPOSE:
  Computes the concrete calendar dates on which a (possibly recurring)
  event takes place inside an inclusive lookahead window, typically
  [today, today + 4 weeks].

ALGORITHM:
  Candidates step from the definition's ORIGINAL start date, not from the
  window start. Stepping from "today" would drift weekly occurrences onto
  the wrong weekday; anchoring to the start date keeps a Wednesday training
  on Wednesdays forever. The catch-up phase fast-forwards to the first
  candidate >= window start, then emission continues until the candidate
  leaves the window, passes the recurrence end date, or the iteration
  safety cap trips.

SAFETY CAP:
  Emission is bounded at 100 steps. Monthly or annual-scale definitions
  with no end date must not loop unboundedly; hitting the cap is surfaced
  as IterationLimitError together with the occurrences produced so far.

GUARANTEES:
  - Ascending date order
  - Duplicate-free (steps are strictly increasing)
  - Excluded dates never appear, even when they match the step

SEE ALSO:
  - types.go:     EventDefinition, RecurrenceKind
  - reconcile.go: Consumes the generated occurrence list
*/
package schedule

// MaxRecurrenceSteps bounds occurrence emission per generation pass.
const MaxRecurrenceSteps = 100

// Window is an inclusive [Start, End] date range.
type Window struct {
	Start Date
	End   Date
}

// NewLookahead returns the rolling window [from, from + weeks*7 days].
func NewLookahead(from Date, weeks int) Window {
	return Window{Start: from, End: from.AddDays(weeks * 7)}
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

func (w Window) validate() error {
	if w.Start.IsZero() || w.End.IsZero() || w.End.Before(w.Start) {
		return ErrInvalidWindow
	}
	return nil
}

// GenerateOccurrences computes the ordered occurrence dates of def inside
// the window. A start date past the window end yields an empty list; so
// does a none-kind event whose start date is excluded (fully cancelled
// single event).
//
// When the safety cap is reached before the window end, the occurrences
// generated so far are returned together with an IterationLimitError.
func GenerateOccurrences(def *EventDefinition, w Window) ([]Date, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := w.validate(); err != nil {
		return nil, err
	}

	if !def.Recurrence.Recurs() {
		d := def.StartDate
		if w.Contains(d) && !pastEnd(def, d) && !def.IsExcluded(d) {
			return []Date{d}, nil
		}
		return nil, nil
	}

	// Catch-up: anchor to the original start date, then fast-forward until
	// the candidate reaches the window start.
	cur := def.StartDate
	for cur.Before(w.Start) {
		cur = def.Recurrence.advance(cur)
	}

	var occurrences []Date
	for steps := 0; ; steps++ {
		if cur.After(w.End) || pastEnd(def, cur) {
			return occurrences, nil
		}
		if steps >= MaxRecurrenceSteps {
			return occurrences, &IterationLimitError{EventID: def.ID, Steps: MaxRecurrenceSteps, Last: cur}
		}
		if !def.IsExcluded(cur) {
			occurrences = append(occurrences, cur)
		}
		cur = def.Recurrence.advance(cur)
	}
}

func pastEnd(def *EventDefinition, d Date) bool {
	return def.RecurrenceEnd != nil && d.After(*def.RecurrenceEnd)
}
