package calendar

import (
	"context"
	"log/slog"
	"sync"
	"time"

	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// EventRecorder persists the external event id of a mirrored booking and returns the booking
// as it is now.
type EventRecorder interface {
	SetExternalEventID(ctx context.Context, bookingID, eventID string) (model.Booking, error)
}

type MirrorConfig struct {
	QueueSize   int
	Workers     int
	CallTimeout time.Duration
	// DrainTimeout bounds how long Run keeps working through queued jobs after ctx is done.
	DrainTimeout time.Duration
}

type jobKind int

const (
	jobCreate jobKind = iota
	jobDelete
)

type job struct {
	kind    jobKind
	booking model.Booking
	trace   otelx.TraceContext
}

// Mirror runs connector calls on background workers. Enqueueing never blocks: when the queue
// is full the job is dropped and logged.
type Mirror struct {
	connector Connector
	recorder  EventRecorder
	logger    *slog.Logger
	jobs      chan job
	workers   int
	timeout   time.Duration
	drain     time.Duration
}

func NewMirror(connector Connector, recorder EventRecorder, logger *slog.Logger, cfg MirrorConfig) *Mirror {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	return &Mirror{
		connector: connector,
		recorder:  recorder,
		logger:    logger.With("component", "calendar_mirror", "connector", connector.Name()),
		jobs:      make(chan job, cfg.QueueSize),
		workers:   cfg.Workers,
		timeout:   cfg.CallTimeout,
		drain:     cfg.DrainTimeout,
	}
}

func (m *Mirror) EnqueueCreate(ctx context.Context, b model.Booking) {
	m.enqueue(job{kind: jobCreate, booking: b, trace: otelx.CaptureTraceContext(ctx)})
}

// EnqueueDelete removes the external event of b; bookings never mirrored are ignored.
func (m *Mirror) EnqueueDelete(ctx context.Context, b model.Booking) {
	if b.ExternalEventID == "" {
		return
	}
	m.enqueue(job{kind: jobDelete, booking: b, trace: otelx.CaptureTraceContext(ctx)})
}

func (m *Mirror) enqueue(j job) {
	select {
	case m.jobs <- j:
	default:
		m.logger.Warn("calendar mirror queue full; dropping job", "booking_id", j.booking.ID, "kind", j.kind)
	}
}

// Run processes jobs until ctx is done, then finishes in-flight calls and drains the queue for
// at most DrainTimeout. Once Run returns no connector call is running, so the connector may be
// closed.
func (m *Mirror) Run(ctx context.Context) {
	callBase := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-m.jobs:
					m.process(callBase, j)
				}
			}
		}()
	}
	wg.Wait()

	drainCtx, cancel := context.WithTimeout(callBase, m.drain)
	defer cancel()
	for {
		if drainCtx.Err() != nil {
			if n := len(m.jobs); n > 0 {
				m.logger.Warn("calendar mirror stopped with pending jobs", "pending", n)
			}
			return
		}
		select {
		case j := <-m.jobs:
			m.process(drainCtx, j)
		default:
			return
		}
	}
}

func (m *Mirror) process(ctx context.Context, j job) {
	callCtx, cancel := context.WithTimeout(j.trace.Attach(ctx), m.timeout)
	defer cancel()

	switch j.kind {
	case jobCreate:
		m.create(callCtx, j.booking)
	case jobDelete:
		m.delete(callCtx, j.booking.ID, j.booking.ExternalEventID)
	}
}

func (m *Mirror) create(ctx context.Context, b model.Booking) {
	eventID, err := m.connector.MirrorCreate(ctx, b)
	if err != nil {
		m.logger.Error("calendar mirror create failed", "booking_id", b.ID, "err", err)
		return
	}
	if eventID == "" {
		return
	}
	current, err := m.recorder.SetExternalEventID(ctx, b.ID, eventID)
	if err != nil {
		m.logger.Error("record external event id failed", "booking_id", b.ID, "event_id", eventID, "err", err)
		return
	}
	// The booking may have left confirmed while the create call was in flight.
	if current.Status != model.StatusConfirmed {
		m.delete(ctx, b.ID, eventID)
	}
}

func (m *Mirror) delete(ctx context.Context, bookingID, eventID string) {
	if err := m.connector.MirrorDelete(ctx, bookingID, eventID); err != nil {
		m.logger.Error("calendar mirror delete failed", "booking_id", bookingID, "event_id", eventID, "err", err)
		return
	}
	m.logger.Info("calendar event removed", "booking_id", bookingID, "event_id", eventID)
}
