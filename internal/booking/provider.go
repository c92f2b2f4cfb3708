package booking

import (
	"context"
	"time"
)

// Provider is a remote booking service. Login must succeed before any
// other operation is possible for a user.
type Provider interface {
	Login(ctx context.Context, login, password string) (Session, error)
}

// Session is an authenticated view of the booking service for one user.
type Session interface {
	// Slots returns the bookable slots for a single calendar date.
	Slots(ctx context.Context, date time.Time) ([]Slot, error)
	// Bookings returns the user's upcoming bookings and waiting-list entries.
	Bookings(ctx context.Context) (Bookings, error)
	// Book reserves the slot directly.
	Book(ctx context.Context, slotID string) (Result, error)
	// BookWaitingList joins the slot's waiting list.
	BookWaitingList(ctx context.Context, slotID string) (Result, error)
}

// Result is the provider's answer to a book / waiting-list request.
// A non-success result is not an error: the message carries the
// provider's reason (usually "full" or similar).
type Result struct {
	Success bool
	Message string
}
