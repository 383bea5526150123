package repository

import (
	"context"
	"sort"
	"sync"
	"time"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/policy"

	"github.com/google/uuid"
)

// MemoryWaitlistRepository keeps entries in process. A single mutex stands in for
// the per-slot and per-entry locks of the postgres store.
type MemoryWaitlistRepository struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entity.WaitlistEntry
	policy  *policy.PriorityPolicy
}

func NewMemoryWaitlistRepository(p *policy.PriorityPolicy) *MemoryWaitlistRepository {
	return &MemoryWaitlistRepository{
		entries: make(map[uuid.UUID]*entity.WaitlistEntry),
		policy:  p,
	}
}

func (r *MemoryWaitlistRepository) Create(_ context.Context, entry *entity.WaitlistEntry, maxPerClient int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	open := 0
	active := 0
	for _, e := range r.entries {
		if e.ResourceID != entry.ResourceID || !e.State.Open() {
			continue
		}
		if e.ClientID == entry.ClientID {
			if e.SlotKey == entry.SlotKey {
				return ErrDuplicateEntry
			}
			open++
		}
		if e.SlotKey == entry.SlotKey && e.State == entity.EntryStateActive {
			active++
		}
	}
	if maxPerClient > 0 && open >= maxPerClient {
		return ErrQuotaExceeded
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.State = entity.EntryStateActive
	entry.Priority = active + 1
	stored := *entry
	r.entries[stored.ID] = &stored
	r.renumberLocked(entry.ResourceID, entry.SlotKey, entry.UpdatedAt)

	*entry = r.entries[stored.ID].Clone()
	return nil
}

func (r *MemoryWaitlistRepository) GetByID(_ context.Context, id uuid.UUID) (*entity.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	c := e.Clone()
	return &c, nil
}

func (r *MemoryWaitlistRepository) List(_ context.Context, filter entity.EntryFilter) ([]entity.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[entity.EntryState]bool, len(filter.States))
	for _, s := range filter.States {
		states[s] = true
	}
	out := make([]entity.WaitlistEntry, 0)
	for _, e := range r.entries {
		if filter.ResourceID != "" && e.ResourceID != filter.ResourceID {
			continue
		}
		if filter.ClientID != "" && e.ClientID != filter.ClientID {
			continue
		}
		if filter.SlotKey != "" && e.SlotKey != filter.SlotKey {
			continue
		}
		if len(states) > 0 && !states[e.State] {
			continue
		}
		out = append(out, e.Clone())
	}
	sortBySlotThenPolicy(r.policy, out)
	return out, nil
}

func (r *MemoryWaitlistRepository) ListActive(_ context.Context, resourceID, slotKey string) ([]entity.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked(resourceID, slotKey), nil
}

func (r *MemoryWaitlistRepository) Cancel(_ context.Context, id uuid.UUID, at time.Time) (*entity.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	prev := e.Clone()
	if !e.State.Open() {
		return &prev, nil
	}
	e.State = entity.EntryStateCancelled
	e.CancelledAt = &at
	e.UpdatedAt = at
	e.CascadePending = prev.State == entity.EntryStateNotified
	if prev.State == entity.EntryStateActive {
		r.renumberLocked(e.ResourceID, e.SlotKey, at)
	}
	return &prev, nil
}

func (r *MemoryWaitlistRepository) MarkNotified(_ context.Context, id uuid.UUID, occurrence string, notifiedAt, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.State != entity.EntryStateActive {
		return false, nil
	}
	occ := occurrence
	e.State = entity.EntryStateNotified
	e.NotifiedAt = &notifiedAt
	e.ExpiresAt = &expiresAt
	e.OfferedOccurrence = &occ
	e.UpdatedAt = notifiedAt
	r.renumberLocked(e.ResourceID, e.SlotKey, notifiedAt)
	return true, nil
}

func (r *MemoryWaitlistRepository) Confirm(_ context.Context, id uuid.UUID, bookingID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.State != entity.EntryStateNotified || e.ExpiresAt == nil || !at.Before(*e.ExpiresAt) {
		return false, nil
	}
	b := bookingID
	e.State = entity.EntryStateConfirmed
	e.ConfirmedAt = &at
	e.AssignedBookingID = &b
	e.UpdatedAt = at
	return true, nil
}

func (r *MemoryWaitlistRepository) Expire(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || !e.OfferLapsed(at) {
		return false, nil
	}
	e.State = entity.EntryStateExpired
	e.UpdatedAt = at
	e.CascadePending = true
	return true, nil
}

func (r *MemoryWaitlistRepository) OutstandingOffer(_ context.Context, resourceID, slotKey, occurrence string) (*entity.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ResourceID == resourceID && e.SlotKey == slotKey && e.State == entity.EntryStateNotified &&
			e.OfferedOccurrence != nil && *e.OfferedOccurrence == occurrence {
			c := e.Clone()
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemoryWaitlistRepository) DueOffers(_ context.Context, at time.Time, limit int) ([]entity.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.WaitlistEntry, 0)
	for _, e := range r.entries {
		if e.OfferLapsed(at) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryWaitlistRepository) PendingCascades(_ context.Context, limit int) ([]entity.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.WaitlistEntry, 0)
	for _, e := range r.entries {
		if e.CascadePending {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryWaitlistRepository) ClearCascades(_ context.Context, resourceID, slotKey, occurrence string, upTo time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.CascadePending && e.ResourceID == resourceID && e.SlotKey == slotKey &&
			e.OfferedOccurrence != nil && *e.OfferedOccurrence == occurrence && !e.UpdatedAt.After(upTo) {
			e.CascadePending = false
		}
	}
	return nil
}

func (r *MemoryWaitlistRepository) ExpireStale(_ context.Context, resourceID string, cutoff, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slots := map[string]bool{}
	n := 0
	for _, e := range r.entries {
		if e.ResourceID == resourceID && e.State == entity.EntryStateActive && e.RequestedAt.Before(cutoff) {
			e.State = entity.EntryStateExpired
			e.UpdatedAt = at
			slots[e.SlotKey] = true
			n++
		}
	}
	for slotKey := range slots {
		r.renumberLocked(resourceID, slotKey, at)
	}
	return n, nil
}

func (r *MemoryWaitlistRepository) Renumber(_ context.Context, resourceID, slotKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renumberLocked(resourceID, slotKey, time.Now())
	return nil
}

func (r *MemoryWaitlistRepository) ActiveResources(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[string]bool{}
	out := make([]string, 0)
	for _, e := range r.entries {
		if e.State == entity.EntryStateActive && !seen[e.ResourceID] {
			seen[e.ResourceID] = true
			out = append(out, e.ResourceID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryWaitlistRepository) SlotStats(_ context.Context, resourceID string) ([]entity.SlotStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := map[string]*entity.SlotStat{}
	for _, e := range r.entries {
		if resourceID != "" && e.ResourceID != resourceID {
			continue
		}
		s, ok := stats[e.SlotKey]
		if !ok {
			s = &entity.SlotStat{SlotKey: e.SlotKey}
			stats[e.SlotKey] = s
		}
		s.DemandCount++
		switch e.State {
		case entity.EntryStateConfirmed:
			s.FulfillmentCount++
		case entity.EntryStateActive:
			s.ActiveCount++
		}
	}
	out := make([]entity.SlotStat, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotKey < out[j].SlotKey })
	return out, nil
}

func (r *MemoryWaitlistRepository) CountByState(_ context.Context, resourceID string) (map[entity.EntryState]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := map[entity.EntryState]int{}
	for _, e := range r.entries {
		if resourceID == "" || e.ResourceID == resourceID {
			counts[e.State]++
		}
	}
	return counts, nil
}

func (r *MemoryWaitlistRepository) activeLocked(resourceID, slotKey string) []entity.WaitlistEntry {
	out := make([]entity.WaitlistEntry, 0)
	for _, e := range r.entries {
		if e.ResourceID == resourceID && e.SlotKey == slotKey && e.State == entity.EntryStateActive {
			out = append(out, e.Clone())
		}
	}
	r.policy.Sort(out)
	return out
}

func (r *MemoryWaitlistRepository) renumberLocked(resourceID, slotKey string, at time.Time) {
	active := r.activeLocked(resourceID, slotKey)
	for _, i := range r.policy.Renumber(active) {
		stored := r.entries[active[i].ID]
		stored.Priority = active[i].Priority
		stored.UpdatedAt = at
	}
}
