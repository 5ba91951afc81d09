package availability

import (
	"math/rand"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var (
	// anytime imposes no notice and no horizon.
	anytime = model.Constraints{MaxAdvanceDays: model.UnlimitedAdvanceDays}

	// 2026-03-01 is a Sunday.
	sunday = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	monday = sunday.AddDate(0, 0, 1)
)

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func mondayMeeting(duration int, windows ...model.AvailabilityWindow) model.MeetingDefinition {
	if len(windows) == 0 {
		windows = []model.AvailabilityWindow{{DayOfWeek: int(time.Monday), StartMinute: 9 * 60, EndMinute: 10 * 60}}
	}
	return model.MeetingDefinition{ID: "intro-call", DurationMinutes: duration, Windows: windows}
}

func TestGenerateSlots_EmptyLedger(t *testing.T) {
	c := model.Constraints{MinAdvanceHours: 0, MaxAdvanceDays: 30}
	slots := GenerateSlots(monday, mondayMeeting(30), c, nil, sunday)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(monday, 9, 0)) || !slots[0].End.Equal(at(monday, 9, 30)) {
		t.Fatalf("unexpected first slot %v-%v", slots[0].Start, slots[0].End)
	}
	if !slots[1].Start.Equal(at(monday, 9, 30)) || !slots[1].End.Equal(at(monday, 10, 0)) {
		t.Fatalf("unexpected second slot %v-%v", slots[1].Start, slots[1].End)
	}
}

func TestGenerateSlots_BufferConsumesWindow(t *testing.T) {
	c := model.Constraints{BufferBeforeMinutes: 15, BufferAfterMinutes: 15, MaxAdvanceDays: 30}
	busy := []Interval{{Start: at(monday, 9, 0), End: at(monday, 9, 30)}}
	slots := GenerateSlots(monday, mondayMeeting(30), c, busy, sunday)
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %v", slots)
	}
}

func TestGenerateSlots_AdjacentBookingWithoutBuffer(t *testing.T) {
	busy := []Interval{{Start: at(monday, 10, 0), End: at(monday, 10, 30)}}
	slots := GenerateSlots(monday, mondayMeeting(30), anytime, busy, sunday)
	if len(slots) != 2 {
		t.Fatalf("back-to-back slot must be offered without buffers, got %v", slots)
	}

	slots = GenerateSlots(monday, mondayMeeting(30), model.Constraints{BufferAfterMinutes: 1, MaxAdvanceDays: model.UnlimitedAdvanceDays}, busy, sunday)
	if len(slots) != 1 || !slots[0].Start.Equal(at(monday, 9, 0)) {
		t.Fatalf("one minute of buffer must remove the 09:30 slot, got %v", slots)
	}
}

func TestGenerateSlots_NoWindowsForDay(t *testing.T) {
	slots := GenerateSlots(sunday, mondayMeeting(30), anytime, nil, sunday)
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", slots)
	}
}

func TestGenerateSlots_DurationLongerThanWindow(t *testing.T) {
	slots := GenerateSlots(monday, mondayMeeting(90), anytime, nil, sunday)
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %v", slots)
	}
}

func TestGenerateSlots_AdvanceWindow(t *testing.T) {
	// now is Monday 08:15; one hour of notice puts the earliest start at 09:15.
	slots := GenerateSlots(monday, mondayMeeting(30), model.Constraints{MinAdvanceHours: 1, MaxAdvanceDays: model.UnlimitedAdvanceDays}, nil, at(monday, 8, 15))
	if len(slots) != 1 || !slots[0].Start.Equal(at(monday, 9, 30)) {
		t.Fatalf("expected only 09:30, got %v", slots)
	}

	// now is Sunday 09:15; one day of horizon ends Monday 09:15.
	slots = GenerateSlots(monday, mondayMeeting(30), model.Constraints{MaxAdvanceDays: 1}, nil, at(sunday, 9, 15))
	if len(slots) != 1 || !slots[0].Start.Equal(at(monday, 9, 0)) {
		t.Fatalf("expected only 09:00, got %v", slots)
	}

	// Slots already in the past are skipped even without notice.
	slots = GenerateSlots(monday, mondayMeeting(30), anytime, nil, at(monday, 9, 10))
	if len(slots) != 1 || !slots[0].Start.Equal(at(monday, 9, 30)) {
		t.Fatalf("expected only 09:30, got %v", slots)
	}
}

func TestGenerateSlots_OverlappingWindowsTiledIndependently(t *testing.T) {
	meeting := mondayMeeting(30,
		model.AvailabilityWindow{DayOfWeek: int(time.Monday), StartMinute: 9*60 + 30, EndMinute: 10*60 + 30},
		model.AvailabilityWindow{DayOfWeek: int(time.Monday), StartMinute: 9 * 60, EndMinute: 10 * 60},
	)
	slots := GenerateSlots(monday, meeting, anytime, nil, sunday)
	want := []time.Time{at(monday, 9, 0), at(monday, 9, 30), at(monday, 9, 30), at(monday, 10, 0)}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %v", len(want), slots)
	}
	for i, w := range want {
		if !slots[i].Start.Equal(w) {
			t.Fatalf("slot %d: expected %s, got %s", i, w.Format("15:04"), slots[i].Start.Format("15:04"))
		}
	}
}

func TestGenerateSlots_TilesFromWindowStart(t *testing.T) {
	// A 09:00-09:40 booking knocks out both 09:00 and 09:30; the next tile is 10:00,
	// never 09:40.
	meeting := mondayMeeting(30, model.AvailabilityWindow{DayOfWeek: int(time.Monday), StartMinute: 9 * 60, EndMinute: 11 * 60})
	busy := []Interval{{Start: at(monday, 9, 0), End: at(monday, 9, 40)}}
	slots := GenerateSlots(monday, meeting, anytime, busy, sunday)
	if len(slots) != 2 || !slots[0].Start.Equal(at(monday, 10, 0)) || !slots[1].Start.Equal(at(monday, 10, 30)) {
		t.Fatalf("unexpected slots %v", slots)
	}
}

// Every generated slot is sound, and every tile that passes the checks is generated.
func TestGenerateSlots_SoundAndComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		duration := 15 * (1 + rng.Intn(4))
		var windows []model.AvailabilityWindow
		for i := 0; i < 1+rng.Intn(3); i++ {
			start := rng.Intn(18*60) / 5 * 5
			windows = append(windows, model.AvailabilityWindow{
				DayOfWeek:   int(time.Monday),
				StartMinute: start,
				EndMinute:   start + 30 + rng.Intn(240),
			})
		}
		meeting := mondayMeeting(duration, windows...)
		c := model.Constraints{
			BufferBeforeMinutes: rng.Intn(3) * 5,
			BufferAfterMinutes:  rng.Intn(3) * 5,
			MinAdvanceHours:     rng.Intn(3),
			MaxAdvanceDays:      model.UnlimitedAdvanceDays,
		}
		var busy []Interval
		for i := 0; i < rng.Intn(5); i++ {
			s := at(monday, 0, rng.Intn(22*60))
			busy = append(busy, Interval{Start: s, End: s.Add(time.Duration(15+rng.Intn(60)) * time.Minute)})
		}
		now := at(monday, 0, rng.Intn(12*60))

		slots := GenerateSlots(monday, meeting, c, busy, now)
		got := map[time.Time]int{}
		for i, s := range slots {
			if i > 0 && s.Start.Before(slots[i-1].Start) {
				t.Fatalf("iter %d: slots not sorted", iter)
			}
			if s.End.Sub(s.Start) != meeting.Duration() {
				t.Fatalf("iter %d: slot length %s", iter, s.End.Sub(s.Start))
			}
			if !Contains(meeting, s.Start, s.End) {
				t.Fatalf("iter %d: slot %v outside windows", iter, s)
			}
			if Conflicts(s.Start, s.End, busy, c.Padding()) || !c.WithinAdvance(s.Start, now) {
				t.Fatalf("iter %d: unsound slot %v", iter, s)
			}
			got[s.Start]++
		}

		want := map[time.Time]int{}
		for _, w := range windows {
			ws, we := w.On(monday)
			for k := 0; ; k++ {
				start := ws.Add(time.Duration(k*duration) * time.Minute)
				end := start.Add(meeting.Duration())
				if end.After(we) {
					break
				}
				if !Conflicts(start, end, busy, c.Padding()) && c.WithinAdvance(start, now) {
					want[start]++
				}
			}
		}
		if len(want) != len(got) {
			t.Fatalf("iter %d: expected %d distinct starts, got %d", iter, len(want), len(got))
		}
		for start, n := range want {
			if got[start] != n {
				t.Fatalf("iter %d: start %s expected %d times, got %d", iter, start.Format("15:04"), n, got[start])
			}
		}
	}
}

// Windows are wall-clock times, so a DST change earlier on the same day must not move them.
func TestGenerateSlots_DSTTransitionDays(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	meeting := model.MeetingDefinition{
		ID:              "intro-call",
		DurationMinutes: 30,
		Windows:         []model.AvailabilityWindow{{DayOfWeek: int(time.Sunday), StartMinute: 9 * 60, EndMinute: 10 * 60}},
	}
	for _, day := range []time.Time{
		time.Date(2026, 3, 8, 0, 0, 0, 0, ny),  // spring forward
		time.Date(2026, 11, 1, 0, 0, 0, 0, ny), // fall back
	} {
		now := day.AddDate(0, 0, -1)
		slots := GenerateSlots(day, meeting, anytime, nil, now)
		if len(slots) != 2 {
			t.Fatalf("%s: expected 2 slots, got %v", day.Format(time.DateOnly), slots)
		}
		for i, want := range []string{"09:00", "09:30"} {
			if got := slots[i].Start.In(ny).Format("15:04"); got != want {
				t.Fatalf("%s: slot %d starts at %s, expected %s", day.Format(time.DateOnly), i, got, want)
			}
			if slots[i].End.Sub(slots[i].Start) != 30*time.Minute {
				t.Fatalf("%s: slot %d lasts %s", day.Format(time.DateOnly), i, slots[i].End.Sub(slots[i].Start))
			}
		}
		if !Contains(meeting, time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, ny), time.Date(day.Year(), day.Month(), day.Day(), 9, 30, 0, 0, ny)) {
			t.Fatalf("%s: 09:00 wall-clock slot must lie inside the window", day.Format(time.DateOnly))
		}
	}
}
