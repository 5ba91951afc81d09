package availability

import (
	"sort"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Expand pads both sides of the interval by pad.
func (i Interval) Expand(pad time.Duration) Interval {
	return Interval{Start: i.Start.Add(-pad), End: i.End.Add(pad)}
}

// BusyFromBookings returns the intervals of the confirmed bookings only.
func BusyFromBookings(bookings []model.Booking) []Interval {
	busy := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		if b.Status != model.StatusConfirmed {
			continue
		}
		busy = append(busy, Interval{Start: b.StartTime, End: b.EndTime})
	}
	return busy
}

// GenerateSlots tiles every window of meeting active on day's weekday into back-to-back
// candidates of the meeting duration, starting at the window start. A candidate is kept when
// it clears every busy interval padded by the constraint buffers and satisfies the advance
// bounds relative to now. Windows are tiled independently, so overlapping windows may
// produce slots covering the same minutes. The result is sorted by start.
//
// meeting is expected to be valid (see ValidateMeeting).
func GenerateSlots(day time.Time, meeting model.MeetingDefinition, c model.Constraints, busy []Interval, now time.Time) []model.Slot {
	duration := meeting.Duration()
	slots := []model.Slot{}
	if duration <= 0 {
		return slots
	}

	pad := c.Padding()
	for _, w := range meeting.WindowsOn(day) {
		windowStart, windowEnd := w.On(day)
		for cursor := windowStart; !cursor.Add(duration).After(windowEnd); cursor = cursor.Add(duration) {
			end := cursor.Add(duration)
			if Conflicts(cursor, end, busy, pad) {
				continue
			}
			if !c.WithinAdvance(cursor, now) {
				continue
			}
			slots = append(slots, model.Slot{Start: cursor, End: end})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots
}

// Conflicts reports whether [start,end) intersects any busy interval after padding it by pad
// on both sides.
func Conflicts(start, end time.Time, busy []Interval, pad time.Duration) bool {
	for _, b := range busy {
		e := b.Expand(pad)
		// Half-open intervals: [start,end) overlaps [e.Start,e.End) iff start < e.End && e.Start < end.
		if start.Before(e.End) && e.Start.Before(end) {
			return true
		}
	}
	return false
}

// Contains reports whether [start,end) lies inside one of meeting's windows on start's day.
func Contains(meeting model.MeetingDefinition, start, end time.Time) bool {
	for _, w := range meeting.WindowsOn(start) {
		ws, we := w.On(start)
		if !start.Before(ws) && !end.After(we) {
			return true
		}
	}
	return false
}
