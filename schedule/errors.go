/*
errors.go - Error taxonomy for the scheduling core

PURPOSE:
  All error types of the schedule package in one place. Callers classify
  with errors.Is/errors.As; structured types carry the offending field or
  iteration state.

ERROR CATEGORIES:
  1. Definition errors  - Unparseable/missing start date, unknown recurrence
  2. Window errors      - Malformed lookahead window
  3. Iteration errors   - The recurrence safety cap was reached

USAGE:
  occs, err := schedule.GenerateOccurrences(def, window)
  if errors.Is(err, schedule.ErrIterationLimit) {
      // misconfigured far-future end date; occs still holds the
      // occurrences generated before the cap
  }

SEE ALSO:
  - recurrence.go: Returns these errors
  - types.go:      Validate() returns DefinitionError
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDefinition is returned when an event definition fails
	// boundary validation. No partial computation happens after it.
	ErrInvalidDefinition = errors.New("invalid event definition")

	// ErrInvalidWindow is returned when a lookahead window ends before it
	// starts.
	ErrInvalidWindow = errors.New("invalid window: end before start")

	// ErrIterationLimit is returned when occurrence generation hits the
	// safety cap before reaching the window end. It is reported, not
	// silently truncated, so a caller can detect a misconfigured
	// far-future end date.
	ErrIterationLimit = errors.New("recurrence iteration limit exceeded")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DefinitionError identifies which field of a definition is invalid.
type DefinitionError struct {
	EventID string
	Field   string
	Reason  string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid event definition %q: %s (%s)", e.EventID, e.Reason, e.Field)
}

func (e *DefinitionError) Unwrap() error { return ErrInvalidDefinition }

// IterationLimitError reports where generation stopped when the cap hit.
type IterationLimitError struct {
	EventID string
	Steps   int
	Last    Date
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("event %q: iteration limit of %d steps reached at %s before window end",
		e.EventID, e.Steps, e.Last)
}

func (e *IterationLimitError) Unwrap() error { return ErrIterationLimit }

// IsClientError reports whether the error is due to invalid caller input
// rather than an engine fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDefinition) || errors.Is(err, ErrInvalidWindow)
}
