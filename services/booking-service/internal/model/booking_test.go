package model

import (
	"errors"
	"testing"
	"time"
)

func TestBookingTransition(t *testing.T) {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{name: "cancel confirmed", from: StatusConfirmed, to: StatusCancelled},
		{name: "no-show confirmed", from: StatusConfirmed, to: StatusNoShow},
		{name: "cancel cancelled", from: StatusCancelled, to: StatusCancelled, wantErr: true},
		{name: "no-show cancelled", from: StatusCancelled, to: StatusNoShow, wantErr: true},
		{name: "cancel no-show", from: StatusNoShow, to: StatusCancelled, wantErr: true},
		{name: "back to confirmed", from: StatusCancelled, to: StatusConfirmed, wantErr: true},
		{name: "confirm confirmed", from: StatusConfirmed, to: StatusConfirmed, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Booking{Status: tc.from}
			err := b.Transition(tc.to, at)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				if b.Status != tc.from {
					t.Fatalf("status changed on failed transition: %s", b.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.Status != tc.to || b.StatusChangedAt == nil || !b.StatusChangedAt.Equal(at) {
				t.Fatalf("unexpected booking after transition: %+v", b)
			}
		})
	}
}

func TestConstraints(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := Constraints{BufferBeforeMinutes: 10, BufferAfterMinutes: 5, MinAdvanceHours: 2, MaxAdvanceDays: 1}

	if c.Padding() != 15*time.Minute {
		t.Fatalf("unexpected padding %s", c.Padding())
	}
	if c.WithinAdvance(now.Add(time.Hour), now) {
		t.Fatal("slot inside min advance must be rejected")
	}
	if !c.WithinAdvance(now.Add(2*time.Hour), now) {
		t.Fatal("slot exactly at min advance must be accepted")
	}
	if c.WithinAdvance(now.Add(25*time.Hour), now) {
		t.Fatal("slot beyond max advance must be rejected")
	}
	if !(Constraints{MaxAdvanceDays: UnlimitedAdvanceDays}).WithinAdvance(now.AddDate(1, 0, 0), now) {
		t.Fatal("unlimited max advance leaves the horizon open")
	}
	if (Constraints{}).WithinAdvance(now.Add(time.Minute), now) {
		t.Fatal("zero max advance must reject any start after now")
	}
	if !(Constraints{}).WithinAdvance(now, now) {
		t.Fatal("zero max advance must accept a start exactly at now")
	}
	if err := (Constraints{MaxAdvanceDays: -2}).Validate(); !errors.Is(err, ErrInvalidConstraints) {
		t.Fatalf("expected ErrInvalidConstraints below the unlimited sentinel, got %v", err)
	}
	if err := (Constraints{BufferAfterMinutes: -1}).Validate(); !errors.Is(err, ErrInvalidConstraints) {
		t.Fatalf("expected ErrInvalidConstraints, got %v", err)
	}
}
