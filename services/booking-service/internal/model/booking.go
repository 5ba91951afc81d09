package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTransition = errors.New("invalid booking transition")

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusConfirmed, StatusCancelled, StatusNoShow:
		return st, nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

type Booker struct {
	Name  string
	Email string
	Notes string
}

type Booking struct {
	ID              string
	MeetingID       string
	Booker          Booker
	StartTime       time.Time
	EndTime         time.Time
	Status          Status
	ExternalEventID string
	CreatedAt       time.Time
	StatusChangedAt *time.Time
}

// Transition moves a confirmed booking to cancelled or no_show. Both targets are terminal,
// so repeating a transition is an error rather than a no-op.
func (b *Booking) Transition(to Status, at time.Time) error {
	if to != StatusCancelled && to != StatusNoShow {
		return fmt.Errorf("%w: target %q", ErrInvalidTransition, to)
	}
	if b.Status != StatusConfirmed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}
	b.Status = to
	b.StatusChangedAt = &at
	return nil
}
