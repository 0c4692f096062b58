// Package schedule computes recurrence occurrence dates.
//
// All functions are pure: given a recurring definition and a reference
// instant they enumerate the due occurrences and the cursor position to
// persist, with no I/O.
package schedule

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// MaxOccurrencesPerRun caps how many occurrences a single planning call
// emits. A definition untouched for years drains its backlog across
// multiple runs instead of blocking one run indefinitely.
const MaxOccurrencesPerRun = 24

// Plan is the result of enumerating a definition's due occurrences.
type Plan struct {
	// Occurrences are the due dates in (lastProcessed, now], ascending.
	Occurrences []core.Date

	// NextDue is the cursor to persist once every occurrence has been
	// materialized. When Overflowed it points at the first undrained
	// occurrence, so a later run picks up exactly where this one stopped.
	NextDue core.Date

	// Exhausted is set when the cursor has stepped past the definition's
	// end date; the definition must be deactivated after its last
	// occurrence is materialized.
	Exhausted bool

	// Overflowed is set when the backlog was truncated at
	// MaxOccurrencesPerRun.
	Overflowed bool
}

// Next returns the occurrence following after for the given frequency.
//
// Monthly and quarterly steps preserve the anchor (start date) day of
// month, clamped to the target month's last day: a definition anchored
// on the 31st fires on Feb 28 (29 in leap years) and back on Mar 31.
// Yearly steps clamp Feb 29 to Feb 28 in non-leap years the same way.
func Next(after core.Date, freq core.Frequency, anchor core.Date) core.Date {
	switch freq {
	case core.Weekly:
		return core.Date{Time: after.AddDate(0, 0, 7)}
	case core.Monthly:
		return addMonths(after, 1, anchor.Day())
	case core.Quarterly:
		return addMonths(after, 3, anchor.Day())
	case core.Yearly:
		return addMonths(after, 12, anchor.Day())
	}
	return core.Date{}
}

// addMonths lands on the anchor day of the month `months` after d,
// clamped to the last day of the target month.
func addMonths(d core.Date, months int, anchorDay int) core.Date {
	// First of the target month; time.Date normalizes month overflow.
	first := time.Date(d.Year(), d.Time.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	day := anchorDay
	if last := lastDayOfMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Build enumerates the occurrences of def that are due at now.
//
// Enumeration starts at the persisted NextDueDate and steps forward
// while due <= now, stopping early at the definition's end date
// (Exhausted) or at MaxOccurrencesPerRun (Overflowed). Occurrences are
// never silently dropped: a truncated backlog stays reachable through
// Plan.NextDue.
func Build(def core.RecurringDefinition, now time.Time) (Plan, error) {
	if !def.Frequency.Valid() {
		return Plan{}, fmt.Errorf("definition %s: %w: %q", def.ID, core.ErrInvalidFrequency, def.Frequency)
	}
	if def.NextDueDate.IsEmpty() {
		return Plan{}, fmt.Errorf("definition %s: next due date is zero", def.ID)
	}

	var plan Plan
	due := def.NextDueDate
	for !due.After(now) {
		if def.HasEndDate() && due.After(def.EndDate.Time) {
			plan.Exhausted = true
			break
		}
		if len(plan.Occurrences) == MaxOccurrencesPerRun {
			plan.Overflowed = true
			break
		}
		plan.Occurrences = append(plan.Occurrences, due)
		due = Next(due, def.Frequency, def.StartDate)
	}
	if def.HasEndDate() && due.After(def.EndDate.Time) {
		plan.Exhausted = true
	}
	plan.NextDue = due
	return plan, nil
}
