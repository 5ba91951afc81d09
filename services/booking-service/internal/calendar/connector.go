// Package calendar mirrors committed bookings into an external calendar. Every call is best
// effort: failures are logged by Mirror and never reach the booking caller.
package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var ErrConnectorUnavailable = errors.New("calendar connector unavailable")

type Connector interface {
	Name() string
	// MirrorCreate creates the external event and returns its id.
	MirrorCreate(ctx context.Context, b model.Booking) (string, error)
	// MirrorDelete removes the event eventID created for bookingID; deleting an event that is
	// already gone succeeds.
	MirrorDelete(ctx context.Context, bookingID, eventID string) error
}

// Pinger is implemented by connectors that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type NoopConnector struct{}

func (NoopConnector) Name() string { return "none" }

func (NoopConnector) MirrorCreate(context.Context, model.Booking) (string, error) { return "", nil }

func (NoopConnector) MirrorDelete(context.Context, string, string) error { return nil }

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrConnectorUnavailable, op, err)
}

func summary(b model.Booking) string {
	if b.Booker.Name == "" {
		return "Booking " + b.MeetingID
	}
	return b.MeetingID + " with " + b.Booker.Name
}
