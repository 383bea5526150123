package repository

import (
	"context"
	"sync"
	"time"
	"waitlist-service/modules/booking/entity"

	"github.com/google/uuid"
)

type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*entity.Booking
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{bookings: make(map[uuid.UUID]*entity.Booking)}
}

func (r *MemoryBookingRepository) Create(_ context.Context, booking *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := *booking
	r.bookings[b.ID] = &b
	return nil
}

func (r *MemoryBookingRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (r *MemoryBookingRepository) UpdateStatus(_ context.Context, id uuid.UUID, status entity.BookingStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != entity.BookingStatusConfirmed {
		return false, nil
	}
	b.Status = status
	b.UpdatedAt = at
	return true, nil
}

func (r *MemoryBookingRepository) HasConfirmedOverlap(_ context.Context, clientID string, start, end time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.bookings {
		if b.ClientID == clientID && b.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryBookingRepository) OccurrenceTaken(_ context.Context, resourceID string, start, end time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.bookings {
		if b.ResourceID == resourceID && b.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryBookingRepository) CountInPeriod(_ context.Context, from, to time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, b := range r.bookings {
		if b.Counted() && !b.StartsAt.Before(from) && b.StartsAt.Before(to) {
			n++
		}
	}
	return n, nil
}

var (
	_ BookingRepositoryInterface = (*BookingRepository)(nil)
	_ BookingRepositoryInterface = (*MemoryBookingRepository)(nil)
)
