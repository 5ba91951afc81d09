package storage

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var ErrNotFound = errors.New("not found")

// Store is the booking ledger plus read access to meeting definitions.
type Store interface {
	GetMeeting(ctx context.Context, meetingID string) (model.MeetingDefinition, error)
	GetBooking(ctx context.Context, bookingID string) (model.Booking, error)

	// ListConfirmed returns confirmed bookings of meetingID intersecting [from, to), ordered by start.
	ListConfirmed(ctx context.Context, meetingID string, from, to time.Time) ([]model.Booking, error)

	// WithMeetingLock runs fn as one unit serialized against every other unit for the same
	// meeting. Inserts made through tx are kept only when fn returns nil.
	WithMeetingLock(ctx context.Context, meetingID string, fn func(ctx context.Context, tx Tx) error) error

	// UpdateBooking applies fn to the current booking atomically; an error from fn leaves it unchanged.
	UpdateBooking(ctx context.Context, bookingID string, fn func(b *model.Booking) error) (model.Booking, error)

	SetExternalEventID(ctx context.Context, bookingID, eventID string) (model.Booking, error)

	Ping(ctx context.Context) error
}

// Tx is the view of the ledger available while the meeting lock is held.
type Tx interface {
	ListConfirmed(ctx context.Context, meetingID string, from, to time.Time) ([]model.Booking, error)
	InsertBooking(ctx context.Context, b model.Booking) error
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
