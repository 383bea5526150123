package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"
	"waitlist-service/core/cache"
	"waitlist-service/core/config"
	"waitlist-service/core/errors"
	"waitlist-service/modules/waitlist/dto"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/policy"
	"waitlist-service/modules/waitlist/repository"

	"github.com/google/uuid"
)

const resourceID = "court-1"

var (
	start      = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) // Saturday
	monday     = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	mondaySlot = entity.ResourceSlot{ResourceID: resourceID, DayOfWeek: time.Monday, StartTime: "10:00", EndTime: "11:00"}
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeBookings struct {
	mu        sync.Mutex
	created   []BookingRequest
	cancelled []uuid.UUID
	busy      map[string]bool
}

func (b *fakeBookings) CreateBooking(_ context.Context, req BookingRequest) (*BookingRef, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, req)
	return &BookingRef{ID: uuid.New(), Reference: "BK-TEST0001"}, nil
}

func (b *fakeBookings) CancelBooking(_ context.Context, id uuid.UUID, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelled = append(b.cancelled, id)
	return nil
}

func (b *fakeBookings) HasConfirmedOverlap(_ context.Context, clientID string, _, _ time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy[clientID], nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	offers []entity.Offer
	err    error
}

func (n *fakeNotifier) Notify(_ context.Context, offer *entity.Offer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offers = append(n.offers, *offer)
	return n.err
}

func (n *fakeNotifier) clients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.offers))
	for i, o := range n.offers {
		out[i] = o.ClientID
	}
	return out
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[uuid.UUID]time.Time
}

func (s *fakeScheduler) Schedule(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[id] = at
	return nil
}

func (s *fakeScheduler) Cancel(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scheduled, id)
}

type harness struct {
	clock      *fakeClock
	repo       repository.WaitlistRepositoryInterface
	configs    *ConfigurationService
	bookings   *fakeBookings
	notifier   *fakeNotifier
	scheduler  *fakeScheduler
	locks      *cache.MemoryCache
	tracker    *OfferTracker
	dispatcher *Dispatcher
	waitlist   *WaitlistService
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithRepo(t, nil)
}

func newHarnessWithRepo(t *testing.T, repo repository.WaitlistRepositoryInterface) *harness {
	t.Helper()
	p := policy.New(policy.DefaultClasses)
	if repo == nil {
		repo = repository.NewMemoryWaitlistRepository(p)
	}
	h := &harness{
		clock:     &fakeClock{t: start},
		repo:      repo,
		bookings:  &fakeBookings{busy: map[string]bool{}},
		notifier:  &fakeNotifier{},
		scheduler: &fakeScheduler{scheduled: map[uuid.UUID]time.Time{}},
		locks:     cache.NewMemoryCache(),
	}
	defaults := config.WaitlistConfig{
		Active:                true,
		ResponseWindowMinutes: 60,
		AutoNotify:            true,
		NotificationChannel:   entity.ChannelEmail,
		MaxEntriesPerClient:   2,
		EntryValidityDays:     30,
	}
	h.configs = NewConfigurationService(repository.NewMemoryConfigurationRepository(), cache.NewMemoryCache(), defaults, h.clock.Now)
	h.tracker = NewOfferTracker(repo, h.bookings, h.notifier, h.scheduler, time.UTC, h.clock.Now)
	h.dispatcher = NewDispatcher(repo, h.configs, h.tracker, h.bookings, cache.NewLocker(h.locks), time.UTC, h.clock.Now)
	h.waitlist = NewWaitlistService(repo, h.configs, p, h.tracker, h.clock.Now)
	return h
}

func (h *harness) add(t *testing.T, client, class string) *dto.EntryResponse {
	t.Helper()
	day := int(mondaySlot.DayOfWeek)
	resp, appErr := h.waitlist.AddEntry(context.Background(), &dto.AddEntryRequest{
		ResourceID:    resourceID,
		ClientID:      client,
		DayOfWeek:     &day,
		StartTime:     mondaySlot.StartTime,
		EndTime:       mondaySlot.EndTime,
		PriorityClass: class,
	})
	if appErr != nil {
		t.Fatalf("add %s: %v", client, appErr)
	}
	h.clock.Advance(time.Second)
	return resp
}

func (h *harness) free(t *testing.T) *entity.Offer {
	t.Helper()
	offer, appErr := h.dispatcher.OnSlotFreed(context.Background(), resourceID, monday, mondaySlot)
	if appErr != nil {
		t.Fatalf("free: %v", appErr)
	}
	h.tracker.Wait()
	return offer
}

func (h *harness) state(t *testing.T, id uuid.UUID) entity.EntryState {
	t.Helper()
	e, err := h.repo.GetByID(context.Background(), id)
	if err != nil || e == nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return e.State
}

func TestAddEntryAssignsPriorityByClass(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "alice", "normal")
	b := h.add(t, "bob", "premium")

	if a.Priority != 1 || b.Priority != 1 {
		t.Fatalf("priority at insert: alice=%d bob=%d", a.Priority, b.Priority)
	}
	active, appErr := h.waitlist.ListActive(context.Background(), resourceID, mondaySlot)
	if appErr != nil {
		t.Fatal(appErr)
	}
	if len(active) != 2 || active[0].ClientID != "bob" || active[1].Priority != 2 {
		t.Fatalf("unexpected order: %+v", active)
	}
}

func TestAddEntryRejections(t *testing.T) {
	h := newHarness(t)
	h.add(t, "alice", "")

	day := int(time.Monday)
	req := &dto.AddEntryRequest{ResourceID: resourceID, ClientID: "alice", DayOfWeek: &day, StartTime: "10:00", EndTime: "11:00"}
	if _, appErr := h.waitlist.AddEntry(context.Background(), req); appErr == nil || appErr.Code != errors.ErrDuplicateEntry {
		t.Fatalf("expected duplicate, got %v", appErr)
	}

	req.StartTime, req.EndTime = "12:00", "13:00"
	if _, appErr := h.waitlist.AddEntry(context.Background(), req); appErr != nil {
		t.Fatalf("second slot: %v", appErr)
	}
	req.StartTime, req.EndTime = "14:00", "15:00"
	if _, appErr := h.waitlist.AddEntry(context.Background(), req); appErr == nil || appErr.Code != errors.ErrQuotaExceeded {
		t.Fatalf("expected quota exceeded, got %v", appErr)
	}

	req.ClientID, req.PriorityClass = "carol", "vip"
	if _, appErr := h.waitlist.AddEntry(context.Background(), req); appErr == nil || appErr.Code != errors.ErrInvalidInput {
		t.Fatalf("expected invalid class, got %v", appErr)
	}

	off := false
	if _, appErr := h.configs.Update(context.Background(), resourceID, &dto.ConfigurationRequest{Active: &off}); appErr != nil {
		t.Fatal(appErr)
	}
	req.PriorityClass = ""
	if _, appErr := h.waitlist.AddEntry(context.Background(), req); appErr == nil || appErr.Code != errors.ErrWaitlistInactive {
		t.Fatalf("expected inactive, got %v", appErr)
	}
}

func TestOfferExpiryCascades(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "alice", "normal")
	b := h.add(t, "bob", "normal")

	offer := h.free(t)
	if offer == nil || offer.EntryID != a.ID {
		t.Fatalf("expected offer to alice, got %+v", offer)
	}
	if got := offer.ExpiresAt.Sub(offer.NotifiedAt); got != time.Hour {
		t.Fatalf("response window: %v", got)
	}
	if _, ok := h.scheduler.scheduled[a.ID]; !ok {
		t.Fatal("expiry not scheduled")
	}

	h.clock.Advance(61 * time.Minute)
	n, err := h.tracker.ExpireDue(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expire due: n=%d err=%v", n, err)
	}
	h.tracker.Wait()

	if s := h.state(t, a.ID); s != entity.EntryStateExpired {
		t.Fatalf("alice state: %s", s)
	}
	if s := h.state(t, b.ID); s != entity.EntryStateNotified {
		t.Fatalf("bob state: %s", s)
	}
	if got := h.notifier.clients(); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("notified: %v", got)
	}
}

func TestExpiryCascadeRetriedAfterLockContention(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.add(t, "alice", "normal")
	b := h.add(t, "bob", "normal")

	offer := h.free(t)
	if offer == nil || offer.EntryID != a.ID {
		t.Fatalf("expected offer to alice, got %+v", offer)
	}

	// another worker holds the occurrence while alice's offer lapses
	lockKey := occurrenceLockKey(resourceID, mondaySlot.Key(), entity.FormatOccurrence(monday))
	if err := h.locks.Set(ctx, lockKey, "other-worker", time.Minute); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(61 * time.Minute)
	if n, err := h.tracker.ExpireDue(ctx); err != nil || n != 1 {
		t.Fatalf("expire due: n=%d err=%v", n, err)
	}
	h.tracker.Wait()
	if s := h.state(t, b.ID); s != entity.EntryStateActive {
		t.Fatalf("bob offered while occurrence locked: %s", s)
	}
	pending, err := h.repo.PendingCascades(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("pending cascades: %+v err=%v", pending, err)
	}

	if err := h.locks.Del(ctx, lockKey); err != nil {
		t.Fatal(err)
	}
	NewSweeper(time.Minute, h.tracker, h.waitlist).Sweep(ctx)
	h.tracker.Wait()

	if s := h.state(t, b.ID); s != entity.EntryStateNotified {
		t.Fatalf("bob state after sweep: %s", s)
	}
	if pending, _ := h.repo.PendingCascades(ctx, 10); len(pending) != 0 {
		t.Fatalf("cascade still pending: %+v", pending)
	}

	// a second sweep has nothing left to hand out
	NewSweeper(time.Minute, h.tracker, h.waitlist).Sweep(ctx)
	h.tracker.Wait()
	if got := h.notifier.clients(); len(got) != 2 || got[1] != "bob" {
		t.Fatalf("notified: %v", got)
	}
}

func TestCancelledOfferClearsCascadeMark(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.add(t, "alice", "normal")
	b := h.add(t, "bob", "normal")
	h.free(t)

	if _, appErr := h.waitlist.CancelEntry(ctx, a.ID); appErr != nil {
		t.Fatalf("cancel: %v", appErr)
	}
	h.tracker.Wait()
	if s := h.state(t, b.ID); s != entity.EntryStateNotified {
		t.Fatalf("bob state: %s", s)
	}
	if pending, _ := h.repo.PendingCascades(ctx, 10); len(pending) != 0 {
		t.Fatalf("cascade still pending: %+v", pending)
	}
}

func TestConfirmBeforeExpiry(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "alice", "normal")
	h.free(t)

	h.clock.Advance(30 * time.Minute)
	resp, appErr := h.tracker.Confirm(context.Background(), a.ID)
	if appErr != nil {
		t.Fatalf("confirm: %v", appErr)
	}
	if resp.BookingReference == "" || len(h.bookings.created) != 1 {
		t.Fatalf("booking not created: %+v", resp)
	}
	got := h.bookings.created[0]
	if !got.StartsAt.Equal(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)) || got.WaitlistEntryID != a.ID {
		t.Fatalf("booking request: %+v", got)
	}
	if s := h.state(t, a.ID); s != entity.EntryStateConfirmed {
		t.Fatalf("state: %s", s)
	}
	if _, ok := h.scheduler.scheduled[a.ID]; ok {
		t.Fatal("expiry still scheduled after confirm")
	}

	_, appErr = h.tracker.Confirm(context.Background(), a.ID)
	if appErr == nil || appErr.Code != errors.ErrOfferExpired || appErr.Message != msgSlotUnavailable {
		t.Fatalf("double confirm: %v", appErr)
	}
	if len(h.bookings.created) != 1 {
		t.Fatal("double confirm created a booking")
	}
}

func TestConfirmAfterDeadlineExpiresAndCascades(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "alice", "normal")
	b := h.add(t, "bob", "normal")
	h.free(t)

	h.clock.Advance(2 * time.Hour)
	_, appErr := h.tracker.Confirm(context.Background(), a.ID)
	if appErr == nil || appErr.Code != errors.ErrOfferExpired || appErr.Message != msgOfferExpired {
		t.Fatalf("late confirm: %v", appErr)
	}
	h.tracker.Wait()
	if len(h.bookings.created) != 0 {
		t.Fatal("late confirm created a booking")
	}
	if s := h.state(t, b.ID); s != entity.EntryStateNotified {
		t.Fatalf("bob state: %s", s)
	}

	_, appErr = h.tracker.Confirm(context.Background(), a.ID)
	if appErr == nil || appErr.Message != msgOfferExpired {
		t.Fatalf("confirm on expired entry: %v", appErr)
	}
}

func TestSecondFreeEventIsAbsorbed(t *testing.T) {
	h := newHarness(t)
	h.add(t, "alice", "normal")
	b := h.add(t, "bob", "normal")

	if h.free(t) == nil {
		t.Fatal("expected first offer")
	}
	if offer := h.free(t); offer != nil {
		t.Fatalf("second free should be absorbed, got %+v", offer)
	}
	if s := h.state(t, b.ID); s != entity.EntryStateActive {
		t.Fatalf("bob state: %s", s)
	}
}

func TestFreeEventAfterLapseMovesOn(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "alice", "normal")
	b := h.add(t, "bob", "normal")
	h.free(t)

	h.clock.Advance(61 * time.Minute)
	offer := h.free(t)
	if offer == nil || offer.EntryID != b.ID {
		t.Fatalf("expected offer to bob, got %+v", offer)
	}
	if s := h.state(t, a.ID); s != entity.EntryStateExpired {
		t.Fatalf("alice state: %s", s)
	}
}

func TestCancelWhileNotifiedCascades(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "alice", "normal")
	b := h.add(t, "bob", "normal")
	h.free(t)

	resp, appErr := h.waitlist.CancelEntry(context.Background(), a.ID)
	if appErr != nil {
		t.Fatal(appErr)
	}
	h.tracker.Wait()
	if resp.State != string(entity.EntryStateCancelled) {
		t.Fatalf("alice state: %s", resp.State)
	}
	if s := h.state(t, b.ID); s != entity.EntryStateNotified {
		t.Fatalf("bob state: %s", s)
	}

	if _, appErr := h.waitlist.CancelEntry(context.Background(), uuid.New()); appErr == nil || appErr.Code != errors.ErrNotFound {
		t.Fatalf("unknown id: %v", appErr)
	}
}

func TestNotifierFailureKeepsOfferOpen(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "alice", "normal")
	h.notifier.err = stderrors.New("smtp down")

	if offer := h.free(t); offer == nil {
		t.Fatal("expected offer despite notifier failure")
	}
	if s := h.state(t, a.ID); s != entity.EntryStateNotified {
		t.Fatalf("state: %s", s)
	}
}

func TestManualModeDoesNothing(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "alice", "normal")

	off := false
	if _, appErr := h.configs.Update(context.Background(), resourceID, &dto.ConfigurationRequest{AutoNotify: &off}); appErr != nil {
		t.Fatal(appErr)
	}
	if offer := h.free(t); offer != nil {
		t.Fatalf("manual mode offered: %+v", offer)
	}
	if s := h.state(t, a.ID); s != entity.EntryStateActive {
		t.Fatalf("state: %s", s)
	}
}

func TestOverlappingClientIsSkipped(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "alice", "normal")
	b := h.add(t, "bob", "normal")
	h.bookings.busy["alice"] = true

	offer := h.free(t)
	if offer == nil || offer.EntryID != b.ID {
		t.Fatalf("expected offer to bob, got %+v", offer)
	}
	if s := h.state(t, a.ID); s != entity.EntryStateActive {
		t.Fatalf("alice should stay active, got %s", s)
	}
}

func TestPastOccurrenceAndWeekdayMismatch(t *testing.T) {
	h := newHarness(t)
	h.add(t, "alice", "normal")

	past := time.Date(2025, 2, 24, 0, 0, 0, 0, time.UTC)
	offer, appErr := h.dispatcher.OnSlotFreed(context.Background(), resourceID, past, mondaySlot)
	if appErr != nil || offer != nil {
		t.Fatalf("past occurrence: offer=%v err=%v", offer, appErr)
	}

	tuesday := monday.AddDate(0, 0, 1)
	_, appErr = h.dispatcher.OnSlotFreed(context.Background(), resourceID, tuesday, mondaySlot)
	if appErr == nil || appErr.Code != errors.ErrInvalidInput {
		t.Fatalf("weekday mismatch: %v", appErr)
	}
}

type losingRepo struct {
	*repository.MemoryWaitlistRepository
}

func (losingRepo) Confirm(context.Context, uuid.UUID, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

func TestConfirmCompensatesWhenRaceLost(t *testing.T) {
	repo := losingRepo{repository.NewMemoryWaitlistRepository(policy.New(nil))}
	h := newHarnessWithRepo(t, repo)
	a := h.add(t, "alice", "normal")
	h.free(t)

	_, appErr := h.tracker.Confirm(context.Background(), a.ID)
	if appErr == nil || appErr.Code != errors.ErrOfferExpired {
		t.Fatalf("expected offer expired, got %v", appErr)
	}
	if len(h.bookings.created) != 1 || len(h.bookings.cancelled) != 1 {
		t.Fatalf("expected compensating cancel: created=%d cancelled=%d", len(h.bookings.created), len(h.bookings.cancelled))
	}
}

func TestSweeperExpiresStaleEntries(t *testing.T) {
	h := newHarness(t)
	a := h.add(t, "alice", "normal")

	h.clock.Advance(31 * 24 * time.Hour)
	offers, entries := NewSweeper(time.Minute, h.tracker, h.waitlist).Sweep(context.Background())
	if offers != 0 || entries != 1 {
		t.Fatalf("sweep: offers=%d entries=%d", offers, entries)
	}
	if s := h.state(t, a.ID); s != entity.EntryStateExpired {
		t.Fatalf("state: %s", s)
	}
}
