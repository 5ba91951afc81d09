// Package engine generates bookable slots and commits bookings against the ledger.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/md-rashed-zaman/slotbook/services/booking-service/internal/engine")

// Mirrorer receives committed and cancelled bookings for calendar mirroring. Implementations
// must not block.
type Mirrorer interface {
	EnqueueCreate(ctx context.Context, b model.Booking)
	EnqueueDelete(ctx context.Context, b model.Booking)
}

type noopMirror struct{}

func (noopMirror) EnqueueCreate(context.Context, model.Booking) {}
func (noopMirror) EnqueueDelete(context.Context, model.Booking) {}

type Option func(*Engine)

// WithClock replaces time.Now as the source of "now" for advance-notice checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the uuid generator used for booking ids.
func WithIDGenerator(next func() string) Option {
	return func(e *Engine) { e.newID = next }
}

type Engine struct {
	store  storage.Store
	mirror Mirrorer
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New returns an engine over store. A nil mirror disables calendar mirroring.
func New(store storage.Store, mirror Mirrorer, logger *slog.Logger, opts ...Option) *Engine {
	if mirror == nil {
		mirror = noopMirror{}
	}
	e := &Engine{
		store:  store,
		mirror: mirror,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateSlots lists the bookable slots of meetingID on date. date's location is the reference
// timezone; only its calendar day is used.
func (e *Engine) GenerateSlots(ctx context.Context, meetingID string, date time.Time, c model.Constraints) (slots []model.Slot, err error) {
	ctx, span := tracer.Start(ctx, "engine.GenerateSlots", trace.WithAttributes(
		attribute.String("meeting.id", meetingID),
		attribute.String("date", date.Format(time.DateOnly)),
	))
	defer func() { endSpan(span, err) }()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	meeting, err := e.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	day := model.StartOfDay(date)
	pad := c.Padding()
	bookings, err := e.store.ListConfirmed(ctx, meetingID, day.Add(-pad), day.AddDate(0, 0, 1).Add(pad))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	slots = availability.GenerateSlots(day, meeting, c, availability.BusyFromBookings(bookings), e.now())
	span.SetAttributes(attribute.Int("slots.count", len(slots)))
	return slots, nil
}

// CommitBooking books slot for booker. The conflict check and the insert run under the
// per-meeting lock, so of several concurrent commits for overlapping slots at most one wins.
// Calendar mirroring is queued after the booking is durable and cannot fail the commit.
func (e *Engine) CommitBooking(ctx context.Context, meetingID string, slot model.Slot, booker model.Booker, c model.Constraints) (booking model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "engine.CommitBooking", trace.WithAttributes(
		attribute.String("meeting.id", meetingID),
		attribute.String("slot.start", slot.Start.UTC().Format(time.RFC3339)),
	))
	defer func() { endSpan(span, err) }()

	if err := c.Validate(); err != nil {
		return model.Booking{}, err
	}
	meeting, err := e.loadMeeting(ctx, meetingID)
	if err != nil {
		return model.Booking{}, err
	}
	if !slot.End.After(slot.Start) || slot.End.Sub(slot.Start) != meeting.Duration() {
		return model.Booking{}, fmt.Errorf("%w: %s-%s does not match duration %dm", ErrInvalidSlot,
			slot.Start.Format(time.RFC3339), slot.End.Format(time.RFC3339), meeting.DurationMinutes)
	}
	now := e.now()
	if !availability.Contains(meeting, slot.Start, slot.End) {
		return model.Booking{}, fmt.Errorf("%w: not inside a window", ErrOutsideAvailability)
	}
	if !c.WithinAdvance(slot.Start, now) {
		return model.Booking{}, fmt.Errorf("%w: advance notice", ErrOutsideAvailability)
	}

	pad := c.Padding()
	err = e.store.WithMeetingLock(ctx, meetingID, func(ctx context.Context, tx storage.Tx) error {
		current, err := tx.ListConfirmed(ctx, meetingID, slot.Start.Add(-pad), slot.End.Add(pad))
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		if availability.Conflicts(slot.Start, slot.End, availability.BusyFromBookings(current), pad) {
			return ErrSlotNoLongerAvailable
		}
		booking = model.Booking{
			ID:        e.newID(),
			MeetingID: meetingID,
			Booker:    booker,
			StartTime: slot.Start,
			EndTime:   slot.End,
			Status:    model.StatusConfirmed,
			CreatedAt: now,
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	span.SetAttributes(attribute.String("booking.id", booking.ID))
	e.logger.Info("booking committed", "booking_id", booking.ID, "meeting_id", meetingID, "start", booking.StartTime)
	e.mirror.EnqueueCreate(ctx, booking)
	return booking, nil
}

// TransitionBooking moves a confirmed booking to cancelled or no_show.
func (e *Engine) TransitionBooking(ctx context.Context, bookingID string, to model.Status) (booking model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "engine.TransitionBooking", trace.WithAttributes(
		attribute.String("booking.id", bookingID),
		attribute.String("booking.status", string(to)),
	))
	defer func() { endSpan(span, err) }()

	at := e.now()
	booking, err = e.store.UpdateBooking(ctx, bookingID, func(b *model.Booking) error {
		return b.Transition(to, at)
	})
	if err != nil {
		return model.Booking{}, err
	}

	e.logger.Info("booking transitioned", "booking_id", booking.ID, "status", booking.Status)
	if booking.Status == model.StatusCancelled {
		e.mirror.EnqueueDelete(ctx, booking)
	}
	return booking, nil
}

// GetBooking returns one booking in any status.
func (e *Engine) GetBooking(ctx context.Context, bookingID string) (model.Booking, error) {
	return e.store.GetBooking(ctx, bookingID)
}

// ListBookings returns the confirmed bookings of meetingID starting on date's calendar day.
func (e *Engine) ListBookings(ctx context.Context, meetingID string, date time.Time) ([]model.Booking, error) {
	if _, err := e.store.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	day := model.StartOfDay(date)
	next := day.AddDate(0, 0, 1)
	bookings, err := e.store.ListConfirmed(ctx, meetingID, day, next)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := bookings[:0]
	for _, b := range bookings {
		if !b.StartTime.Before(day) && b.StartTime.Before(next) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (e *Engine) loadMeeting(ctx context.Context, meetingID string) (model.MeetingDefinition, error) {
	meeting, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return model.MeetingDefinition{}, err
	}
	if err := availability.ValidateMeeting(meeting); err != nil {
		return model.MeetingDefinition{}, err
	}
	return meeting, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
