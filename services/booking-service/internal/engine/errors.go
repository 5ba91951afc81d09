package engine

import "errors"

var (
	// ErrSlotNoLongerAvailable is returned when a conflicting confirmed booking exists at commit time.
	ErrSlotNoLongerAvailable = errors.New("slot no longer available")
	// ErrOutsideAvailability is returned when the slot is not inside a window of the meeting or
	// violates the advance-notice bounds.
	ErrOutsideAvailability = errors.New("slot outside availability")
	ErrInvalidSlot         = errors.New("invalid slot")
)
