package service

import (
	"context"
	"sync"
	"time"
	"waitlist-service/core/constants"
	"waitlist-service/core/errors"
	"waitlist-service/core/logger"
	"waitlist-service/modules/waitlist/dto"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/repository"

	"github.com/google/uuid"
)

const (
	msgOfferExpired    = "this offer has expired"
	msgSlotUnavailable = "slot no longer available"
)

// slotFreedHandler is the cascade target: the dispatcher, once wired.
type slotFreedHandler interface {
	OnSlotFreed(ctx context.Context, resourceID string, occurrence time.Time, slot entity.ResourceSlot) (*entity.Offer, *errors.AppError)
}

// OfferTracker owns the notified -> confirmed | expired | cancelled lifecycle.
// Every transition is a compare-and-set on the entry state, so a confirm racing
// an expiry has exactly one winner.
type OfferTracker struct {
	repo      repository.WaitlistRepositoryInterface
	bookings  BookingGateway
	notifier  Notifier
	scheduler ExpiryScheduler
	loc       *time.Location
	now       Clock

	cascade slotFreedHandler
	wg      sync.WaitGroup
}

func NewOfferTracker(repo repository.WaitlistRepositoryInterface, bookings BookingGateway, notifier Notifier, scheduler ExpiryScheduler, loc *time.Location, now Clock) *OfferTracker {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OfferTracker{
		repo:      repo,
		bookings:  bookings,
		notifier:  notifier,
		scheduler: scheduler,
		loc:       loc,
		now:       now,
	}
}

// SetScheduler swaps the expiry scheduler; used when the scheduler itself needs the tracker.
func (t *OfferTracker) SetScheduler(s ExpiryScheduler) {
	t.scheduler = s
}

// Open moves entry to notified for the occurrence, schedules its expiry and hands the
// offer to the notifier in the background. It returns false when the entry was no
// longer active.
func (t *OfferTracker) Open(ctx context.Context, entry *entity.WaitlistEntry, cfg *entity.Configuration, occurrence time.Time, start, end time.Time) (*entity.Offer, bool, error) {
	now := t.now()
	expiresAt := now.Add(cfg.ResponseWindow())
	occ := entity.FormatOccurrence(occurrence)

	ok, err := t.repo.MarkNotified(ctx, entry.ID, occ, now, expiresAt)
	if err != nil || !ok {
		return nil, false, err
	}

	offer := &entity.Offer{
		EntryID:    entry.ID,
		ResourceID: entry.ResourceID,
		ClientID:   entry.ClientID,
		Slot:       entry.Slot(),
		SlotKey:    entry.SlotKey,
		Occurrence: occ,
		StartsAt:   start,
		EndsAt:     end,
		NotifiedAt: now,
		ExpiresAt:  expiresAt,
		Channel:    cfg.NotificationChannel,
	}

	if t.scheduler != nil {
		if err := t.scheduler.Schedule(ctx, entry.ID, expiresAt); err != nil {
			// the sweeper still picks the offer up once it is due
			logger.Error("OfferTracker:Open:ScheduleError", "entry_id", entry.ID, "expires_at", expiresAt, "error", err)
		}
	}

	logger.Info("OfferTracker:Open",
		"entry_id", entry.ID,
		"resource_id", entry.ResourceID,
		"client_id", entry.ClientID,
		"slot_key", entry.SlotKey,
		"occurrence", occ,
		"expires_at", expiresAt,
	)
	t.notify(offer)
	return offer, true, nil
}

func (t *OfferTracker) notify(offer *entity.Offer) {
	if t.notifier == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), constants.NotifierTimeout)
		defer cancel()
		if err := t.notifier.Notify(ctx, offer); err != nil {
			// the offer stays open and lapses like an unanswered one
			logger.Warn("OfferTracker:Notify:Error",
				"code", errors.ErrNotifierUnavailable,
				"entry_id", offer.EntryID,
				"client_id", offer.ClientID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (t *OfferTracker) Wait() {
	t.wg.Wait()
}

// Confirm accepts the offer held by entryID and books the occurrence.
func (t *OfferTracker) Confirm(ctx context.Context, entryID uuid.UUID) (*dto.ConfirmResponse, *errors.AppError) {
	entry, err := t.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get waitlist entry failed", err)
	}
	if entry == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "waitlist entry not found", nil)
	}

	now := t.now()
	switch {
	case entry.State == entity.EntryStateExpired:
		return nil, errors.NewAppError(errors.ErrOfferExpired, msgOfferExpired, nil)
	case entry.State != entity.EntryStateNotified:
		return nil, errors.NewAppError(errors.ErrOfferExpired, msgSlotUnavailable, nil)
	case entry.OfferLapsed(now):
		// apply the lapse now instead of waiting for the timer
		if _, appErr := t.Expire(ctx, entryID); appErr != nil {
			logger.Error("OfferTracker:Confirm:LateExpireError", "entry_id", entryID, "error", appErr)
		}
		return nil, errors.NewAppError(errors.ErrOfferExpired, msgOfferExpired, nil)
	case entry.OfferedOccurrence == nil:
		return nil, errors.NewAppError(errors.ErrOfferExpired, msgSlotUnavailable, nil)
	}

	occurrence, err := entity.ParseOccurrence(*entry.OfferedOccurrence)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "invalid offered occurrence", err)
	}
	start, end, err := entry.Slot().Window(occurrence, t.loc)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "invalid offered occurrence", err)
	}

	booking, err := t.bookings.CreateBooking(ctx, BookingRequest{
		ResourceID:      entry.ResourceID,
		ClientID:        entry.ClientID,
		SlotKey:         entry.SlotKey,
		StartsAt:        start,
		EndsAt:          end,
		WaitlistEntryID: entry.ID,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "create booking failed", err)
	}

	ok, err := t.repo.Confirm(ctx, entryID, booking.ID, t.now())
	if err != nil || !ok {
		// lost the race against expiry or cancellation: undo the booking
		if cancelErr := t.bookings.CancelBooking(ctx, booking.ID, "waitlist offer no longer valid"); cancelErr != nil {
			logger.Error("OfferTracker:Confirm:CompensateError", "entry_id", entryID, "booking_id", booking.ID, "error", cancelErr)
		}
		if err != nil {
			return nil, errors.NewAppError(errors.ErrUpdateFailed, "confirm waitlist entry failed", err)
		}
		return nil, errors.NewAppError(errors.ErrOfferExpired, msgOfferExpired, nil)
	}

	if t.scheduler != nil {
		t.scheduler.Cancel(entryID)
	}
	logger.Info("OfferTracker:Confirm", "entry_id", entryID, "booking_id", booking.ID, "reference", booking.Reference)
	return &dto.ConfirmResponse{EntryID: entryID, BookingID: booking.ID, BookingReference: booking.Reference}, nil
}

// Expire closes a lapsed offer and cascades the occurrence to the next candidate.
// It is a no-op for entries that are not notified or whose window is still open.
func (t *OfferTracker) Expire(ctx context.Context, entryID uuid.UUID) (bool, *errors.AppError) {
	entry, err := t.repo.GetByID(ctx, entryID)
	if err != nil {
		return false, errors.NewAppError(errors.ErrGetFailed, "get waitlist entry failed", err)
	}
	if entry == nil {
		return false, errors.NewAppError(errors.ErrNotFound, "waitlist entry not found", nil)
	}
	if entry.State != entity.EntryStateNotified {
		return false, nil
	}

	ok, err := t.repo.Expire(ctx, entryID, t.now())
	if err != nil {
		return false, errors.NewAppError(errors.ErrUpdateFailed, "expire waitlist entry failed", err)
	}
	if !ok {
		return false, nil
	}

	logger.Info("OfferTracker:Expire", "entry_id", entryID, "client_id", entry.ClientID, "occurrence", entry.OfferedOccurrence)
	// a failed cascade stays marked on the entry and the sweeper retries it
	_ = t.cascadeFrom(ctx, entry)
	return true, nil
}

// Withdraw cascades an offer whose holder cancelled while notified.
func (t *OfferTracker) Withdraw(ctx context.Context, entry *entity.WaitlistEntry) {
	if t.scheduler != nil {
		t.scheduler.Cancel(entry.ID)
	}
	logger.Info("OfferTracker:Withdraw", "entry_id", entry.ID, "client_id", entry.ClientID, "occurrence", entry.OfferedOccurrence)
	_ = t.cascadeFrom(ctx, entry)
}

// ExpireDue expires every lapsed offer. It backs up timers lost to restarts.
func (t *OfferTracker) ExpireDue(ctx context.Context) (int, error) {
	due, err := t.repo.DueOffers(ctx, t.now(), 100)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range due {
		ok, appErr := t.Expire(ctx, e.ID)
		if appErr != nil {
			logger.Error("OfferTracker:ExpireDue:Error", "entry_id", e.ID, "error", appErr)
			continue
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// RedispatchPending hands every occurrence still marked as pending to the
// dispatcher again. It repairs cascades lost to lock contention or crashes.
func (t *OfferTracker) RedispatchPending(ctx context.Context) (int, error) {
	pending, err := t.repo.PendingCascades(ctx, 100)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(pending))
	n := 0
	for i := range pending {
		e := &pending[i]
		if e.OfferedOccurrence == nil {
			continue
		}
		key := e.ResourceID + "|" + e.SlotKey + "|" + *e.OfferedOccurrence
		if seen[key] {
			continue
		}
		seen[key] = true
		if appErr := t.cascadeFrom(ctx, e); appErr != nil {
			logger.Warn("OfferTracker:RedispatchPending:Error", "entry_id", e.ID, "occurrence", *e.OfferedOccurrence, "error", appErr)
			continue
		}
		n++
	}
	return n, nil
}

// cascadeFrom frees the occurrence entry held. A failure leaves the entry's
// pending mark in place for RedispatchPending.
func (t *OfferTracker) cascadeFrom(ctx context.Context, entry *entity.WaitlistEntry) *errors.AppError {
	if t.cascade == nil || entry.OfferedOccurrence == nil {
		return nil
	}
	occurrence, err := entity.ParseOccurrence(*entry.OfferedOccurrence)
	if err != nil {
		logger.Error("OfferTracker:Cascade:InvalidOccurrence", "entry_id", entry.ID, "error", err)
		return errors.NewAppError(errors.ErrInternalServer, "invalid offered occurrence", err)
	}
	if _, appErr := t.cascade.OnSlotFreed(ctx, entry.ResourceID, occurrence, entry.Slot()); appErr != nil {
		logger.Error("OfferTracker:Cascade:Error", "entry_id", entry.ID, "error", appErr)
		return appErr
	}
	return nil
}
