package repository

import (
	"context"
	"sort"
	"sync"
	"time"
	"waitlist-service/modules/absence/entity"

	"github.com/google/uuid"
)

type MemoryAbsenceRepository struct {
	mu        sync.RWMutex
	absences  map[uuid.UUID]*entity.Absence
	byBooking map[uuid.UUID]uuid.UUID
}

func NewMemoryAbsenceRepository() *MemoryAbsenceRepository {
	return &MemoryAbsenceRepository{
		absences:  make(map[uuid.UUID]*entity.Absence),
		byBooking: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *MemoryAbsenceRepository) Create(_ context.Context, absence *entity.Absence) (*entity.Absence, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byBooking[absence.BookingID]; ok {
		c := *r.absences[id]
		return &c, false, nil
	}
	a := *absence
	r.absences[a.ID] = &a
	r.byBooking[a.BookingID] = a.ID
	c := a
	return &c, true, nil
}

func (r *MemoryAbsenceRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.Absence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.absences[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (r *MemoryAbsenceRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Absence, error) {
	r.mu.RLock()
	id, ok := r.byBooking[bookingID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryAbsenceRepository) filter(keep func(*entity.Absence) bool) []entity.Absence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Absence, 0)
	for _, a := range r.absences {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out
}

func (r *MemoryAbsenceRepository) ListByClient(_ context.Context, clientID string) ([]entity.Absence, error) {
	return r.filter(func(a *entity.Absence) bool { return a.ClientID == clientID }), nil
}

func (r *MemoryAbsenceRepository) ListInPeriod(_ context.Context, from, to time.Time) ([]entity.Absence, error) {
	return r.filter(func(a *entity.Absence) bool {
		return !a.OccurredAt.Before(from) && a.OccurredAt.Before(to)
	}), nil
}

func (r *MemoryAbsenceRepository) MarkNotified(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.absences[id]; ok {
		a.Notified = true
	}
	return nil
}

var (
	_ AbsenceRepositoryInterface = (*AbsenceRepository)(nil)
	_ AbsenceRepositoryInterface = (*MemoryAbsenceRepository)(nil)
)
