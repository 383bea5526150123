package repository

import (
	"context"
	stderrors "errors"
	"math/rand"
	"testing"
	"time"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/policy"

	"github.com/google/uuid"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newEntry(resource, client, slot string, at time.Time) *entity.WaitlistEntry {
	return &entity.WaitlistEntry{
		ResourceID:    resource,
		ClientID:      client,
		SlotKey:       slot,
		DayOfWeek:     int(time.Monday),
		StartTime:     "10:00",
		EndTime:       "11:00",
		PriorityClass: entity.PriorityClassNormal,
		RequestedAt:   at,
		UpdatedAt:     at,
	}
}

func assertGapless(t *testing.T, repo WaitlistRepositoryInterface, resource, slot string) {
	t.Helper()
	active, err := repo.ListActive(context.Background(), resource, slot)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	for i, e := range active {
		if e.Priority != i+1 {
			t.Fatalf("priority gap: position %d has priority %d", i+1, e.Priority)
		}
	}
}

func TestCreateAssignsPriorities(t *testing.T) {
	repo := NewMemoryWaitlistRepository(policy.New(nil))
	ctx := context.Background()

	for i, client := range []string{"a", "b", "c"} {
		e := newEntry("r1", client, "monday-10-00-11-00", base.Add(time.Duration(i)*time.Minute))
		if err := repo.Create(ctx, e, 3); err != nil {
			t.Fatalf("create %s: %v", client, err)
		}
		if e.Priority != i+1 || e.State != entity.EntryStateActive {
			t.Fatalf("client %s: expected priority %d active, got %d %s", client, i+1, e.Priority, e.State)
		}
	}
}

func TestCreateDuplicateAndQuota(t *testing.T) {
	repo := NewMemoryWaitlistRepository(policy.New(nil))
	ctx := context.Background()

	if err := repo.Create(ctx, newEntry("r1", "a", "monday-10-00-11-00", base), 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := repo.Create(ctx, newEntry("r1", "a", "monday-10-00-11-00", base.Add(time.Minute)), 5)
	if !stderrors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	err = repo.Create(ctx, newEntry("r1", "a", "tuesday-10-00-11-00", base.Add(time.Minute)), 1)
	if !stderrors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
	// other resources have their own quota
	if err := repo.Create(ctx, newEntry("r2", "a", "tuesday-10-00-11-00", base), 1); err != nil {
		t.Fatalf("create on r2: %v", err)
	}
}

func TestCancelRenumbersPreservingOrder(t *testing.T) {
	repo := NewMemoryWaitlistRepository(policy.New(nil))
	ctx := context.Background()
	slot := "monday-10-00-11-00"

	var ids []uuid.UUID
	for i, client := range []string{"a", "b", "c"} {
		e := newEntry("r1", client, slot, base.Add(time.Duration(i)*time.Minute))
		_ = repo.Create(ctx, e, 0)
		ids = append(ids, e.ID)
	}

	prev, err := repo.Cancel(ctx, ids[1], base.Add(time.Hour))
	if err != nil || prev == nil || prev.State != entity.EntryStateActive {
		t.Fatalf("cancel: prev=%v err=%v", prev, err)
	}

	active, _ := repo.ListActive(ctx, "r1", slot)
	if len(active) != 2 || active[0].ClientID != "a" || active[1].ClientID != "c" {
		t.Fatalf("unexpected active list %+v", active)
	}
	if active[0].Priority != 1 || active[1].Priority != 2 {
		t.Fatalf("expected 1,2 got %d,%d", active[0].Priority, active[1].Priority)
	}

	// cancelling again is a no-op
	again, err := repo.Cancel(ctx, ids[1], base.Add(2*time.Hour))
	if err != nil || again.State != entity.EntryStateCancelled || !again.CancelledAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("second cancel should be a no-op, got %+v err=%v", again, err)
	}

	if missing, err := repo.Cancel(ctx, uuid.New(), base); missing != nil || err != nil {
		t.Fatalf("unknown id should return nil, got %v %v", missing, err)
	}
}

func TestGaplessUnderRandomOperations(t *testing.T) {
	repo := NewMemoryWaitlistRepository(policy.New(nil))
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	slots := []string{"monday-10-00-11-00", "wednesday-18-00-19-00"}
	classes := []string{"premium", "high", "normal"}

	var ids []uuid.UUID
	for step := 0; step < 400; step++ {
		at := base.Add(time.Duration(step) * time.Second)
		switch op := rng.Intn(10); {
		case op < 6:
			e := newEntry("r1", string(rune('a'+rng.Intn(20))), slots[rng.Intn(len(slots))], at)
			e.PriorityClass = classes[rng.Intn(len(classes))]
			if err := repo.Create(ctx, e, 0); err == nil {
				ids = append(ids, e.ID)
			} else if !stderrors.Is(err, ErrDuplicateEntry) {
				t.Fatalf("unexpected create error: %v", err)
			}
		case op < 9 && len(ids) > 0:
			if _, err := repo.Cancel(ctx, ids[rng.Intn(len(ids))], at); err != nil {
				t.Fatalf("cancel: %v", err)
			}
		case len(ids) > 0:
			_, _ = repo.MarkNotified(ctx, ids[rng.Intn(len(ids))], "2025-03-03", at, at.Add(time.Hour))
		}

		for _, slot := range slots {
			assertGapless(t, repo, "r1", slot)
		}
	}

	// never two open entries for the same client and slot
	open, _ := repo.List(ctx, entity.EntryFilter{ResourceID: "r1", States: []entity.EntryState{entity.EntryStateActive, entity.EntryStateNotified}})
	seen := map[string]bool{}
	for _, e := range open {
		k := e.ClientID + "|" + e.SlotKey
		if seen[k] {
			t.Fatalf("two open entries for %s", k)
		}
		seen[k] = true
	}
}

func TestConfirmAndExpireCompareAndSet(t *testing.T) {
	repo := NewMemoryWaitlistRepository(policy.New(nil))
	ctx := context.Background()
	e := newEntry("r1", "a", "monday-10-00-11-00", base)
	_ = repo.Create(ctx, e, 0)

	expiresAt := base.Add(time.Hour)
	ok, _ := repo.MarkNotified(ctx, e.ID, "2025-03-03", base, expiresAt)
	if !ok {
		t.Fatal("mark notified should apply")
	}
	if ok, _ := repo.MarkNotified(ctx, e.ID, "2025-03-03", base, expiresAt); ok {
		t.Fatal("second mark notified must lose")
	}
	if ok, _ := repo.Expire(ctx, e.ID, expiresAt.Add(-time.Second)); ok {
		t.Fatal("expire before expires_at must not apply")
	}
	if ok, _ := repo.Confirm(ctx, e.ID, uuid.New(), expiresAt); ok {
		t.Fatal("confirm at expires_at must not apply")
	}
	if ok, _ := repo.Confirm(ctx, e.ID, uuid.New(), expiresAt.Add(-time.Second)); !ok {
		t.Fatal("confirm inside window should apply")
	}
	if ok, _ := repo.Expire(ctx, e.ID, expiresAt.Add(time.Minute)); ok {
		t.Fatal("late expiry on confirmed entry must be a no-op")
	}
}

func TestOutstandingAndDueOffers(t *testing.T) {
	repo := NewMemoryWaitlistRepository(policy.New(nil))
	ctx := context.Background()
	e := newEntry("r1", "a", "monday-10-00-11-00", base)
	_ = repo.Create(ctx, e, 0)
	_, _ = repo.MarkNotified(ctx, e.ID, "2025-03-03", base, base.Add(time.Hour))

	got, _ := repo.OutstandingOffer(ctx, "r1", "monday-10-00-11-00", "2025-03-03")
	if got == nil || got.ID != e.ID {
		t.Fatalf("expected outstanding offer, got %v", got)
	}
	if other, _ := repo.OutstandingOffer(ctx, "r1", "monday-10-00-11-00", "2025-03-10"); other != nil {
		t.Fatal("different occurrence has no offer")
	}

	if due, _ := repo.DueOffers(ctx, base.Add(30*time.Minute), 10); len(due) != 0 {
		t.Fatalf("nothing due yet, got %d", len(due))
	}
	if due, _ := repo.DueOffers(ctx, base.Add(time.Hour), 10); len(due) != 1 {
		t.Fatalf("expected 1 due offer, got %d", len(due))
	}
}

func TestCascadeMarks(t *testing.T) {
	repo := NewMemoryWaitlistRepository(policy.New(nil))
	ctx := context.Background()
	slot := "monday-10-00-11-00"
	a := newEntry("r1", "a", slot, base)
	b := newEntry("r1", "b", slot, base.Add(time.Minute))
	c := newEntry("r1", "c", slot, base.Add(2*time.Minute))
	for _, e := range []*entity.WaitlistEntry{a, b, c} {
		_ = repo.Create(ctx, e, 0)
	}
	_, _ = repo.MarkNotified(ctx, a.ID, "2025-03-03", base, base.Add(time.Hour))
	_, _ = repo.MarkNotified(ctx, b.ID, "2025-03-10", base, base.Add(time.Hour))

	// cancelling an active entry frees nothing
	_, _ = repo.Cancel(ctx, c.ID, base.Add(time.Minute))
	if pending, _ := repo.PendingCascades(ctx, 10); len(pending) != 0 {
		t.Fatalf("active cancel marked a cascade: %+v", pending)
	}

	_, _ = repo.Expire(ctx, a.ID, base.Add(time.Hour))
	_, _ = repo.Cancel(ctx, b.ID, base.Add(2*time.Hour))
	pending, _ := repo.PendingCascades(ctx, 10)
	if len(pending) != 2 || pending[0].ID != a.ID || pending[1].ID != b.ID {
		t.Fatalf("expected expired then cancelled offer pending, got %+v", pending)
	}

	// marks newer than the settle point survive
	_ = repo.ClearCascades(ctx, "r1", slot, "2025-03-10", base.Add(time.Hour))
	if pending, _ := repo.PendingCascades(ctx, 10); len(pending) != 2 {
		t.Fatalf("newer mark cleared: %+v", pending)
	}
	_ = repo.ClearCascades(ctx, "r1", slot, "2025-03-03", base.Add(time.Hour))
	pending, _ = repo.PendingCascades(ctx, 10)
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("expected only the cancelled offer pending, got %+v", pending)
	}
}

func TestExpireStale(t *testing.T) {
	repo := NewMemoryWaitlistRepository(policy.New(nil))
	ctx := context.Background()
	slot := "monday-10-00-11-00"
	_ = repo.Create(ctx, newEntry("r1", "old", slot, base), 0)
	_ = repo.Create(ctx, newEntry("r1", "new", slot, base.AddDate(0, 0, 20)), 0)

	n, err := repo.ExpireStale(ctx, "r1", base.AddDate(0, 0, 10), base.AddDate(0, 0, 31))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 stale entry, got %d err=%v", n, err)
	}
	active, _ := repo.ListActive(ctx, "r1", slot)
	if len(active) != 1 || active[0].ClientID != "new" || active[0].Priority != 1 {
		t.Fatalf("unexpected remaining %+v", active)
	}
}

func TestSlotStatsAndCounts(t *testing.T) {
	repo := NewMemoryWaitlistRepository(policy.New(nil))
	ctx := context.Background()
	a := newEntry("r1", "a", "monday-10-00-11-00", base)
	b := newEntry("r1", "b", "monday-10-00-11-00", base.Add(time.Minute))
	c := newEntry("r1", "c", "friday-07-00-08-00", base)
	for _, e := range []*entity.WaitlistEntry{a, b, c} {
		_ = repo.Create(ctx, e, 0)
	}
	_, _ = repo.MarkNotified(ctx, a.ID, "2025-03-03", base, base.Add(time.Hour))
	_, _ = repo.Confirm(ctx, a.ID, uuid.New(), base.Add(time.Minute))

	stats, _ := repo.SlotStats(ctx, "r1")
	if len(stats) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(stats))
	}
	for _, s := range stats {
		if s.SlotKey == "monday-10-00-11-00" && (s.DemandCount != 2 || s.FulfillmentCount != 1 || s.ActiveCount != 1) {
			t.Fatalf("unexpected monday stats %+v", s)
		}
	}
	counts, _ := repo.CountByState(ctx, "r1")
	if counts[entity.EntryStateConfirmed] != 1 || counts[entity.EntryStateActive] != 2 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
