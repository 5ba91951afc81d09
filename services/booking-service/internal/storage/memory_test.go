package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func booking(id, meetingID string, startMin, endMin int, status model.Status) model.Booking {
	return model.Booking{
		ID:        id,
		MeetingID: meetingID,
		StartTime: base.Add(time.Duration(startMin) * time.Minute),
		EndTime:   base.Add(time.Duration(endMin) * time.Minute),
		Status:    status,
	}
}

func insert(t *testing.T, s *MemoryStore, b model.Booking) {
	t.Helper()
	err := s.WithMeetingLock(context.Background(), b.MeetingID, func(ctx context.Context, tx Tx) error {
		return tx.InsertBooking(ctx, b)
	})
	if err != nil {
		t.Fatalf("insert %s: %v", b.ID, err)
	}
}

func TestMemoryStore_ListConfirmed(t *testing.T) {
	s := NewMemoryStore()
	insert(t, s, booking("b1", "m1", 0, 30, model.StatusConfirmed))
	insert(t, s, booking("b2", "m1", 60, 90, model.StatusConfirmed))
	insert(t, s, booking("b3", "m1", 30, 60, model.StatusCancelled))
	insert(t, s, booking("b4", "m2", 30, 60, model.StatusConfirmed))

	got, err := s.ListConfirmed(context.Background(), "m1", base.Add(30*time.Minute), base.Add(60*time.Minute))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("half-open range must exclude touching bookings, got %v", got)
	}

	got, _ = s.ListConfirmed(context.Background(), "m1", base, base.Add(2*time.Hour))
	if len(got) != 2 || got[0].ID != "b1" || got[1].ID != "b2" {
		t.Fatalf("expected b1,b2 in order, got %v", got)
	}
}

func TestMemoryStore_WithMeetingLockDiscardsOnError(t *testing.T) {
	s := NewMemoryStore()
	boom := errors.New("boom")
	err := s.WithMeetingLock(context.Background(), "m1", func(ctx context.Context, tx Tx) error {
		if err := tx.InsertBooking(ctx, booking("b1", "m1", 0, 30, model.StatusConfirmed)); err != nil {
			return err
		}
		seen, _ := tx.ListConfirmed(ctx, "m1", base, base.Add(time.Hour))
		if len(seen) != 1 {
			t.Errorf("tx must see its own pending insert, got %d", len(seen))
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetBooking(context.Background(), "b1"); !IsNotFound(err) {
		t.Fatalf("expected not found after failed unit, got %v", err)
	}
}

func TestMemoryStore_WithMeetingLockSerializesPerMeeting(t *testing.T) {
	s := NewMemoryStore()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithMeetingLock(context.Background(), "m1", func(context.Context, Tx) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("expected at most one unit at a time, saw %d", maxInside)
	}
	if s.locks.size() != 0 {
		t.Fatalf("expected idle locks to be released, %d left", s.locks.size())
	}
}

func TestMemoryStore_UnrelatedMeetingsDoNotBlock(t *testing.T) {
	s := NewMemoryStore()
	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.WithMeetingLock(context.Background(), "m1", func(context.Context, Tx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_ = s.WithMeetingLock(context.Background(), "m2", func(context.Context, Tx) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on m2 blocked behind m1")
	}
	close(release)
}

func TestMemoryStore_UpdateBooking(t *testing.T) {
	s := NewMemoryStore()
	insert(t, s, booking("b1", "m1", 0, 30, model.StatusConfirmed))

	_, err := s.UpdateBooking(context.Background(), "b1", func(b *model.Booking) error {
		b.Status = model.StatusCancelled
		return errors.New("reject")
	})
	if err == nil {
		t.Fatal("expected error from fn to propagate")
	}
	b, _ := s.GetBooking(context.Background(), "b1")
	if b.Status != model.StatusConfirmed {
		t.Fatalf("failed update must not persist, got %s", b.Status)
	}

	b, err = s.SetExternalEventID(context.Background(), "b1", "evt-1")
	if err != nil || b.ExternalEventID != "evt-1" {
		t.Fatalf("set external id: %v %+v", err, b)
	}
	if _, err := s.UpdateBooking(context.Background(), "missing", func(*model.Booking) error { return nil }); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_GetMeeting(t *testing.T) {
	s := NewMemoryStore()
	s.SaveMeeting(model.MeetingDefinition{ID: "m1", DurationMinutes: 30, Windows: []model.AvailabilityWindow{{DayOfWeek: 1, StartMinute: 540, EndMinute: 600}}})

	m, err := s.GetMeeting(context.Background(), "m1")
	if err != nil || m.DurationMinutes != 30 || len(m.Windows) != 1 {
		t.Fatalf("unexpected meeting %+v (%v)", m, err)
	}
	m.Windows[0].EndMinute = 0
	again, _ := s.GetMeeting(context.Background(), "m1")
	if again.Windows[0].EndMinute != 600 {
		t.Fatal("callers must not be able to mutate stored windows")
	}
	if _, err := s.GetMeeting(context.Background(), "nope"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
