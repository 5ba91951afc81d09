package availability

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var ErrInvalidWindow = errors.New("invalid availability window")

// ValidateWindows rejects windows with an inverted or empty clock range, clock values outside
// the day, or a weekday outside [0,6]. Overlapping windows are accepted.
func ValidateWindows(windows []model.AvailabilityWindow) error {
	for i, w := range windows {
		if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
			return fmt.Errorf("%w: window %d day_of_week %d", ErrInvalidWindow, i, w.DayOfWeek)
		}
		if w.StartMinute < 0 || w.EndMinute > model.MinutesPerDay {
			return fmt.Errorf("%w: window %d clock %d-%d outside the day", ErrInvalidWindow, i, w.StartMinute, w.EndMinute)
		}
		if w.StartMinute >= w.EndMinute {
			return fmt.Errorf("%w: window %d start %d not before end %d", ErrInvalidWindow, i, w.StartMinute, w.EndMinute)
		}
	}
	return nil
}

func ValidateMeeting(m model.MeetingDefinition) error {
	if m.DurationMinutes <= 0 {
		return fmt.Errorf("%w: meeting %s duration %d", ErrInvalidWindow, m.ID, m.DurationMinutes)
	}
	return ValidateWindows(m.Windows)
}
