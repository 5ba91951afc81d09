package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConstraints = errors.New("invalid booking constraints")

// MinutesPerDay is the upper bound for window clock values.
const MinutesPerDay = 24 * 60

// AvailabilityWindow is a weekly recurring interval. Clock values are minutes since midnight
// in the reference timezone and DayOfWeek follows time.Weekday (0 = Sunday).
type AvailabilityWindow struct {
	DayOfWeek   int
	StartMinute int
	EndMinute   int
}

// On anchors the window to the calendar day containing day. Both ends are wall-clock times in
// day's location, so a DST change on that day does not shift the window.
func (w AvailabilityWindow) On(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, w.StartMinute, 0, 0, day.Location()),
		time.Date(y, m, d, 0, w.EndMinute, 0, 0, day.Location())
}

type MeetingDefinition struct {
	ID              string
	Name            string
	DurationMinutes int
	Windows         []AvailabilityWindow
}

func (m MeetingDefinition) Duration() time.Duration {
	return time.Duration(m.DurationMinutes) * time.Minute
}

// WindowsOn returns the windows active on day's weekday, in definition order.
func (m MeetingDefinition) WindowsOn(day time.Time) []AvailabilityWindow {
	weekday := int(day.Weekday())
	var out []AvailabilityWindow
	for _, w := range m.Windows {
		if w.DayOfWeek == weekday {
			out = append(out, w)
		}
	}
	return out
}

// Constraints are the booking-link parameters supplied with every generate or commit call.
type Constraints struct {
	BufferBeforeMinutes int
	BufferAfterMinutes  int
	MinAdvanceHours     int
	// MaxAdvanceDays bounds how far ahead a start may lie; UnlimitedAdvanceDays leaves it open.
	MaxAdvanceDays int
}

// UnlimitedAdvanceDays disables the MaxAdvanceDays bound.
const UnlimitedAdvanceDays = -1

func (c Constraints) Validate() error {
	switch {
	case c.BufferBeforeMinutes < 0:
		return fmt.Errorf("%w: buffer before %d", ErrInvalidConstraints, c.BufferBeforeMinutes)
	case c.BufferAfterMinutes < 0:
		return fmt.Errorf("%w: buffer after %d", ErrInvalidConstraints, c.BufferAfterMinutes)
	case c.MinAdvanceHours < 0:
		return fmt.Errorf("%w: min advance %dh", ErrInvalidConstraints, c.MinAdvanceHours)
	case c.MaxAdvanceDays < UnlimitedAdvanceDays:
		return fmt.Errorf("%w: max advance %dd", ErrInvalidConstraints, c.MaxAdvanceDays)
	}
	return nil
}

// Padding is the amount added to each side of an existing booking when testing for conflicts.
// Both buffers stack onto both sides.
func (c Constraints) Padding() time.Duration {
	return time.Duration(c.BufferBeforeMinutes+c.BufferAfterMinutes) * time.Minute
}

// WithinAdvance reports whether start may be offered relative to now.
func (c Constraints) WithinAdvance(start, now time.Time) bool {
	if start.Before(now.Add(time.Duration(c.MinAdvanceHours) * time.Hour)) {
		return false
	}
	if c.MaxAdvanceDays != UnlimitedAdvanceDays && start.After(now.AddDate(0, 0, c.MaxAdvanceDays)) {
		return false
	}
	return true
}

type Slot struct {
	Start time.Time
	End   time.Time
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
