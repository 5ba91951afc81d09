package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// MemoryStore keeps the ledger in process memory. Commits for one meeting are serialized by a
// keyed mutex; the RWMutex only guards the maps.
type MemoryStore struct {
	mu       sync.RWMutex
	meetings map[string]model.MeetingDefinition
	bookings map[string]model.Booking
	locks    *keyedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meetings: map[string]model.MeetingDefinition{},
		bookings: map[string]model.Booking{},
		locks:    newKeyedMutex(),
	}
}

// SaveMeeting stores a meeting definition as the configuration layer would.
func (s *MemoryStore) SaveMeeting(m model.MeetingDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Windows = append([]model.AvailabilityWindow(nil), m.Windows...)
	s.meetings[m.ID] = m
}

func (s *MemoryStore) GetMeeting(_ context.Context, meetingID string) (model.MeetingDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return model.MeetingDefinition{}, fmt.Errorf("meeting %s: %w", meetingID, ErrNotFound)
	}
	m.Windows = append([]model.AvailabilityWindow(nil), m.Windows...)
	return m, nil
}

func (s *MemoryStore) GetBooking(_ context.Context, bookingID string) (model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return model.Booking{}, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}
	return b, nil
}

func (s *MemoryStore) ListConfirmed(_ context.Context, meetingID string, from, to time.Time) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmedLocked(meetingID, from, to, nil), nil
}

func (s *MemoryStore) confirmedLocked(meetingID string, from, to time.Time, extra []model.Booking) []model.Booking {
	var out []model.Booking
	keep := func(b model.Booking) {
		if b.MeetingID == meetingID && b.Status == model.StatusConfirmed && b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, b)
		}
	}
	for _, b := range s.bookings {
		keep(b)
	}
	for _, b := range extra {
		keep(b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (s *MemoryStore) WithMeetingLock(ctx context.Context, meetingID string, fn func(ctx context.Context, tx Tx) error) error {
	unlock := s.locks.Lock(meetingID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range tx.pending {
		s.bookings[b.ID] = b
	}
	return nil
}

func (s *MemoryStore) UpdateBooking(_ context.Context, bookingID string, fn func(b *model.Booking) error) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return model.Booking{}, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}
	if err := fn(&b); err != nil {
		return model.Booking{}, err
	}
	s.bookings[bookingID] = b
	return b, nil
}

func (s *MemoryStore) SetExternalEventID(ctx context.Context, bookingID, eventID string) (model.Booking, error) {
	return s.UpdateBooking(ctx, bookingID, func(b *model.Booking) error {
		b.ExternalEventID = eventID
		return nil
	})
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

type memoryTx struct {
	store   *MemoryStore
	pending []model.Booking
}

func (tx *memoryTx) ListConfirmed(_ context.Context, meetingID string, from, to time.Time) ([]model.Booking, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	return tx.store.confirmedLocked(meetingID, from, to, tx.pending), nil
}

func (tx *memoryTx) InsertBooking(_ context.Context, b model.Booking) error {
	tx.store.mu.RLock()
	_, exists := tx.store.bookings[b.ID]
	tx.store.mu.RUnlock()
	if exists {
		return fmt.Errorf("booking %s already exists", b.ID)
	}
	tx.pending = append(tx.pending, b)
	return nil
}

var _ Store = (*MemoryStore)(nil)
