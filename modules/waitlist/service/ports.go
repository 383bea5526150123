package service

import (
	"context"
	"time"
	"waitlist-service/modules/waitlist/entity"

	"github.com/google/uuid"
)

// Notifier delivers an offer to the client. Only the dispatch acknowledgement matters here.
type Notifier interface {
	Notify(ctx context.Context, offer *entity.Offer) error
}

type BookingRequest struct {
	ResourceID      string
	ClientID        string
	SlotKey         string
	StartsAt        time.Time
	EndsAt          time.Time
	WaitlistEntryID uuid.UUID
}

type BookingRef struct {
	ID        uuid.UUID
	Reference string
}

// BookingGateway is the booking collaborator seen from the waitlist engine.
type BookingGateway interface {
	CreateBooking(ctx context.Context, req BookingRequest) (*BookingRef, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, reason string) error
	HasConfirmedOverlap(ctx context.Context, clientID string, start, end time.Time) (bool, error)
}

// Locker serialises work on one freed occurrence across processes.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// ExpiryScheduler arranges a call to OfferTracker.Expire at the offer deadline.
type ExpiryScheduler interface {
	Schedule(ctx context.Context, entryID uuid.UUID, at time.Time) error
	Cancel(entryID uuid.UUID)
}

type Clock func() time.Time
