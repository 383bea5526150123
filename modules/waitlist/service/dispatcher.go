package service

import (
	"context"
	"fmt"
	"time"
	"waitlist-service/core/constants"
	"waitlist-service/core/errors"
	"waitlist-service/core/logger"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/repository"
)

type DispatcherInterface interface {
	OnSlotFreed(ctx context.Context, resourceID string, occurrence time.Time, slot entity.ResourceSlot) (*entity.Offer, *errors.AppError)
}

// Dispatcher turns a freed occurrence into at most one outstanding offer.
// Work on one occurrence is serialised by the locker; a second free event
// for an occurrence that already has an open offer is absorbed.
type Dispatcher struct {
	repo     repository.WaitlistRepositoryInterface
	configs  ConfigurationServiceInterface
	tracker  *OfferTracker
	bookings BookingGateway
	locker   Locker
	loc      *time.Location
	now      Clock
}

// NewDispatcher wires the dispatcher as the tracker's cascade target.
func NewDispatcher(repo repository.WaitlistRepositoryInterface, configs ConfigurationServiceInterface, tracker *OfferTracker, bookings BookingGateway, locker Locker, loc *time.Location, now Clock) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	d := &Dispatcher{
		repo:     repo,
		configs:  configs,
		tracker:  tracker,
		bookings: bookings,
		locker:   locker,
		loc:      loc,
		now:      now,
	}
	tracker.cascade = d
	return d
}

func occurrenceLockKey(resourceID, slotKey, occurrence string) string {
	return fmt.Sprintf("%s%s:%s:%s", constants.RedisKeyOccurrenceLock, resourceID, slotKey, occurrence)
}

// OnSlotFreed offers the occurrence to the best eligible active entry of the slot.
// It returns nil when nothing was offered: manual mode, past occurrence, an offer
// already outstanding, or no eligible candidate.
func (d *Dispatcher) OnSlotFreed(ctx context.Context, resourceID string, occurrence time.Time, slot entity.ResourceSlot) (*entity.Offer, *errors.AppError) {
	slot.ResourceID = resourceID
	if err := slot.Validate(); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid slot", err)
	}
	start, end, err := slot.Window(occurrence, d.loc)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "occurrence date does not match slot weekday", err)
	}

	cfg, appErr := d.configs.Get(ctx, resourceID)
	if appErr != nil {
		return nil, appErr
	}
	slotKey := slot.Key()
	occ := entity.FormatOccurrence(occurrence)

	if !cfg.Active || !cfg.AutoNotify {
		logger.Info("Dispatcher:OnSlotFreed:Manual", "resource_id", resourceID, "slot_key", slotKey, "occurrence", occ)
		d.settle(ctx, resourceID, slotKey, occ, d.now())
		return nil, nil
	}
	if !end.After(d.now()) {
		logger.Info("Dispatcher:OnSlotFreed:PastOccurrence", "resource_id", resourceID, "slot_key", slotKey, "occurrence", occ)
		d.settle(ctx, resourceID, slotKey, occ, d.now())
		return nil, nil
	}

	if d.locker != nil {
		release, err := d.locker.Acquire(ctx, occurrenceLockKey(resourceID, slotKey, occ))
		if err != nil {
			logger.Warn("Dispatcher:OnSlotFreed:LockError", "resource_id", resourceID, "slot_key", slotKey, "occurrence", occ, "error", err)
			return nil, errors.NewAppError(errors.ErrLockContention, "occurrence is being reallocated, retry later", err)
		}
		defer release()
	}

	// marks set after this point belong to a later cascade
	settledAt := d.now()
	offer, appErr := d.walk(ctx, cfg, resourceID, slotKey, occurrence, start, end, settledAt)
	if appErr != nil {
		return nil, appErr
	}
	d.settle(ctx, resourceID, slotKey, occ, settledAt)
	return offer, nil
}

// walk runs under the occurrence lock.
func (d *Dispatcher) walk(ctx context.Context, cfg *entity.Configuration, resourceID, slotKey string, occurrence, start, end, now time.Time) (*entity.Offer, *errors.AppError) {
	occ := entity.FormatOccurrence(occurrence)
	outstanding, err := d.repo.OutstandingOffer(ctx, resourceID, slotKey, occ)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get outstanding offer failed", err)
	}
	if outstanding != nil {
		if !outstanding.OfferLapsed(now) {
			logger.Info("Dispatcher:OnSlotFreed:Absorbed", "resource_id", resourceID, "slot_key", slotKey, "occurrence", occ, "entry_id", outstanding.ID)
			return nil, nil
		}
		// lapsed but not yet swept: close it here, the walk below is the cascade
		if _, err := d.repo.Expire(ctx, outstanding.ID, now); err != nil {
			return nil, errors.NewAppError(errors.ErrUpdateFailed, "expire lapsed offer failed", err)
		}
		if d.tracker.scheduler != nil {
			d.tracker.scheduler.Cancel(outstanding.ID)
		}
		logger.Info("Dispatcher:OnSlotFreed:ExpiredLapsed", "entry_id", outstanding.ID, "occurrence", occ)
	}

	candidates, err := d.repo.ListActive(ctx, resourceID, slotKey)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "list waitlist entries failed", err)
	}

	for i := range candidates {
		entry := &candidates[i]

		if d.bookings != nil {
			overlap, err := d.bookings.HasConfirmedOverlap(ctx, entry.ClientID, start, end)
			if err != nil {
				logger.Error("Dispatcher:OnSlotFreed:OverlapCheckError", "entry_id", entry.ID, "client_id", entry.ClientID, "error", err)
				continue
			}
			if overlap {
				logger.Info("Dispatcher:OnSlotFreed:SkipOverlap", "entry_id", entry.ID, "client_id", entry.ClientID)
				continue
			}
		}

		offer, ok, err := d.tracker.Open(ctx, entry, cfg, occurrence, start, end)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrUpdateFailed, "open offer failed", err)
		}
		if !ok {
			// cancelled between the list and the update
			continue
		}
		return offer, nil
	}

	logger.Info("Dispatcher:OnSlotFreed:NoCandidate", "resource_id", resourceID, "slot_key", slotKey, "occurrence", occ, "scanned", len(candidates))
	return nil, nil
}

// settle clears the pending cascade marks this dispatch has covered.
func (d *Dispatcher) settle(ctx context.Context, resourceID, slotKey, occ string, upTo time.Time) {
	if err := d.repo.ClearCascades(ctx, resourceID, slotKey, occ, upTo); err != nil {
		// left pending: the sweeper dispatches the occurrence again
		logger.Error("Dispatcher:OnSlotFreed:SettleError", "resource_id", resourceID, "slot_key", slotKey, "occurrence", occ, "error", err)
	}
}
