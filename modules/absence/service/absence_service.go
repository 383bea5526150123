package service

import (
	"context"
	"math"
	"time"
	"waitlist-service/core/constants"
	"waitlist-service/core/errors"
	"waitlist-service/core/logger"
	"waitlist-service/modules/absence/dto"
	"waitlist-service/modules/absence/entity"
	"waitlist-service/modules/absence/mapper"
	"waitlist-service/modules/absence/repository"
	bookingEntity "waitlist-service/modules/booking/entity"
	bookingService "waitlist-service/modules/booking/service"

	"github.com/google/uuid"
)

// SlotReleaser hands a freed occurrence to the waitlist.
type SlotReleaser interface {
	SlotFreed(ctx context.Context, resourceID, slotKey string, startsAt time.Time) error
}

// AbsenceNotifier tells the client about a recorded absence and its penalty.
type AbsenceNotifier interface {
	NotifyAbsence(ctx context.Context, absence *entity.Absence) error
}

type AbsenceServiceInterface interface {
	Record(ctx context.Context, bookingID uuid.UUID, kind entity.AbsenceKind, justification *string) (*dto.AbsenceResponse, *errors.AppError)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, cancelledAt *time.Time) (*dto.CancelBookingResponse, *errors.AppError)
	PenaltyFor(ctx context.Context, clientID string) (*dto.PenaltySummaryResponse, *errors.AppError)
	Get(ctx context.Context, id uuid.UUID) (*dto.AbsenceResponse, *errors.AppError)
	LateCancellations(ctx context.Context, from, to time.Time) ([]dto.AbsenceResponse, *errors.AppError)
	ActiveAlerts(ctx context.Context) ([]dto.NoShowAlertResponse, *errors.AppError)
	ResolveAlert(ctx context.Context, id uuid.UUID) *errors.AppError
}

type AbsenceService struct {
	repo     repository.AbsenceRepositoryInterface
	alerts   repository.AlertRepositoryInterface
	bookings bookingService.BookingServiceInterface
	releaser SlotReleaser
	notifier AbsenceNotifier
	policies PolicyProvider
	now      func() time.Time
}

func NewAbsenceService(
	repo repository.AbsenceRepositoryInterface,
	alerts repository.AlertRepositoryInterface,
	bookings bookingService.BookingServiceInterface,
	releaser SlotReleaser,
	notifier AbsenceNotifier,
	policies PolicyProvider,
	now func() time.Time,
) *AbsenceService {
	if now == nil {
		now = time.Now
	}
	return &AbsenceService{
		repo:     repo,
		alerts:   alerts,
		bookings: bookings,
		releaser: releaser,
		notifier: notifier,
		policies: policies,
		now:      now,
	}
}

func bookingStatusFor(kind entity.AbsenceKind) bookingEntity.BookingStatus {
	switch kind {
	case entity.AbsenceKindNoShow:
		return bookingEntity.BookingStatusNoShow
	case entity.AbsenceKindLateCancellation:
		return bookingEntity.BookingStatusCancelled
	default:
		return bookingEntity.BookingStatusAbsent
	}
}

func (s *AbsenceService) policy(ctx context.Context) (*entity.Policy, *errors.AppError) {
	policy, err := s.policies.Current(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get absence policy failed", err)
	}
	return policy, nil
}

// Record registers an absence against a booking. Repeating the call for the same
// booking returns the first record unchanged.
func (s *AbsenceService) Record(ctx context.Context, bookingID uuid.UUID, kind entity.AbsenceKind, justification *string) (*dto.AbsenceResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	if !kind.Valid() {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "unknown absence kind", nil)
	}

	booking, appErr := s.bookings.GetEntity(ctx, bookingID)
	if appErr != nil {
		return nil, appErr
	}
	policy, appErr := s.policy(ctx)
	if appErr != nil {
		return nil, appErr
	}
	return s.record(ctx, policy, booking, kind, justification, nil)
}

// record stores the absence, closes the booking and frees its occurrence. notice is
// the advance warning of a late cancellation.
func (s *AbsenceService) record(
	ctx context.Context,
	policy *entity.Policy,
	booking *bookingEntity.Booking,
	kind entity.AbsenceKind,
	justification *string,
	notice *time.Duration,
) (*dto.AbsenceResponse, *errors.AppError) {
	existing, err := s.repo.GetByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get absence failed", err)
	}
	if existing != nil {
		return mapper.ToAbsenceResponse(existing), nil
	}
	if booking.Status != bookingEntity.BookingStatusConfirmed {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "booking is already closed", nil)
	}

	absence := &entity.Absence{
		ID:            uuid.New(),
		BookingID:     booking.ID,
		ResourceID:    booking.ResourceID,
		SlotKey:       booking.SlotKey,
		ClientID:      booking.ClientID,
		OccurredAt:    booking.StartsAt,
		RecordedAt:    s.now().UTC(),
		Kind:          kind,
		Justification: justification,
	}
	var exception *entity.PolicyException
	if kind == entity.AbsenceKindLateCancellation {
		if exception = policy.ExceptionFor(booking.ClientID, booking.ResourceID); exception != nil {
			id := exception.ID
			absence.ExceptionID = &id
		}
		if notice != nil {
			hours := math.Max(0, notice.Hours())
			absence.NoticeHours = &hours
		}
	}
	noShows, appErr := s.applyPenalty(ctx, policy, absence, exception)
	if appErr != nil {
		return nil, appErr
	}

	stored, inserted, err := s.repo.Create(ctx, absence)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "record absence failed", err)
	}
	if !inserted {
		return mapper.ToAbsenceResponse(stored), nil
	}

	logger.Info("AbsenceService:Record",
		"absence_id", stored.ID,
		"booking_id", booking.ID,
		"client_id", stored.ClientID,
		"kind", kind,
		"penalty", stored.PenaltyKind,
	)

	// notified records that the waitlist cascade was attempted for the slot
	if s.closeBooking(ctx, booking, bookingStatusFor(kind)) {
		if err := s.repo.MarkNotified(ctx, stored.ID); err != nil {
			logger.Error("AbsenceService:Record:MarkNotifiedError", "absence_id", stored.ID, "error", err)
		} else {
			stored.Notified = true
		}
	}
	if kind == entity.AbsenceKindNoShow {
		s.raiseAlert(ctx, policy, stored, noShows)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAbsence(ctx, stored); err != nil {
			logger.Warn("AbsenceService:Record:NotifyError", "absence_id", stored.ID, "error", err)
		}
	}
	return mapper.ToAbsenceResponse(stored), nil
}

// applyPenalty sets the penalty of a. For a no-show it returns the client's no-show
// count including this one, or zero when no threshold needs it.
func (s *AbsenceService) applyPenalty(ctx context.Context, policy *entity.Policy, a *entity.Absence, ex *entity.PolicyException) (int, *errors.AppError) {
	a.PenaltyKind = entity.PenaltyNone
	if !policy.Active {
		return 0, nil
	}

	switch a.Kind {
	case entity.AbsenceKindLateCancellation:
		if ex != nil && ex.WaivePenalty {
			return 0, nil
		}
		if policy.LateCancellationFineEnabled {
			amount := policy.LateCancellationFineAmount
			a.PenaltyKind = entity.PenaltyFine
			a.PenaltyAmount = &amount
		}
	case entity.AbsenceKindNoShow:
		if policy.NoShowFineEnabled {
			amount := policy.NoShowFineAmount
			a.PenaltyKind = entity.PenaltyFine
			a.PenaltyAmount = &amount
		}
		if policy.BlockAfterNoShows <= 0 && policy.AlertAfterNoShows <= 0 {
			return 0, nil
		}
		history, err := s.repo.ListByClient(ctx, a.ClientID)
		if err != nil {
			return 0, errors.NewAppError(errors.ErrGetFailed, "list client absences failed", err)
		}
		noShows := 1
		for _, h := range history {
			if h.Kind == entity.AbsenceKindNoShow {
				noShows++
			}
		}
		if policy.BlockAfterNoShows > 0 && noShows >= policy.BlockAfterNoShows {
			days := policy.BlockDays
			a.PenaltyKind = entity.PenaltyTemporaryBlock
			a.PenaltyBlockDays = &days
		}
		return noShows, nil
	}
	return 0, nil
}

// raiseAlert opens or refreshes the client's no-show alert once the count reaches
// the alert threshold. It is critical from the block threshold on.
func (s *AbsenceService) raiseAlert(ctx context.Context, policy *entity.Policy, a *entity.Absence, noShows int) {
	if s.alerts == nil || !policy.Active || policy.AlertAfterNoShows <= 0 || noShows < policy.AlertAfterNoShows {
		return
	}
	level := entity.AlertLevelWarning
	if policy.BlockAfterNoShows > 0 && noShows >= policy.BlockAfterNoShows {
		level = entity.AlertLevelCritical
	}
	now := s.now().UTC()
	alert, err := s.alerts.Raise(ctx, &entity.NoShowAlert{
		ID:           uuid.New(),
		ClientID:     a.ClientID,
		Level:        level,
		NoShows:      noShows,
		LastNoShowAt: a.OccurredAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		logger.Error("AbsenceService:RaiseAlert:Error", "client_id", a.ClientID, "error", err)
		return
	}
	logger.Info("AbsenceService:RaiseAlert", "alert_id", alert.ID, "client_id", a.ClientID, "level", level, "no_shows", noShows)
}

// closeBooking moves the booking out of confirmed and offers its occurrence to the
// waitlist. It reports whether the occurrence was handed to the releaser.
func (s *AbsenceService) closeBooking(ctx context.Context, booking *bookingEntity.Booking, status bookingEntity.BookingStatus) bool {
	ok, appErr := s.bookings.SetStatus(ctx, booking.ID, status)
	if appErr != nil {
		logger.Error("AbsenceService:CloseBooking:Error", "booking_id", booking.ID, "error", appErr)
		return false
	}
	if !ok || s.releaser == nil {
		return false
	}
	if err := s.releaser.SlotFreed(ctx, booking.ResourceID, booking.SlotKey, booking.StartsAt); err != nil {
		logger.Error("AbsenceService:CloseBooking:ReleaseError", "booking_id", booking.ID, "error", err)
	}
	return true
}

// CancelBooking cancels a confirmed booking. A cancellation with less notice than the
// policy (or the exception covering the client or resource) requires is recorded as
// a late cancellation absence.
func (s *AbsenceService) CancelBooking(ctx context.Context, bookingID uuid.UUID, cancelledAt *time.Time) (*dto.CancelBookingResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	booking, appErr := s.bookings.GetEntity(ctx, bookingID)
	if appErr != nil {
		return nil, appErr
	}
	if booking.Status != bookingEntity.BookingStatusConfirmed {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "booking is already closed", nil)
	}
	policy, appErr := s.policy(ctx)
	if appErr != nil {
		return nil, appErr
	}

	at := s.now().UTC()
	if cancelledAt != nil {
		at = *cancelledAt
	}
	notice := booking.StartsAt.Sub(at)
	required := policy.RequiredNotice(policy.ExceptionFor(booking.ClientID, booking.ResourceID))

	if policy.Active && notice < required {
		absence, appErr := s.record(ctx, policy, booking, entity.AbsenceKindLateCancellation, nil, &notice)
		if appErr != nil {
			return nil, appErr
		}
		return &dto.CancelBookingResponse{
			BookingID: bookingID,
			Status:    string(bookingEntity.BookingStatusCancelled),
			Late:      true,
			Absence:   absence,
		}, nil
	}

	s.closeBooking(ctx, booking, bookingEntity.BookingStatusCancelled)
	logger.Info("AbsenceService:CancelBooking", "booking_id", bookingID, "notice_hours", int(notice.Hours()))
	return &dto.CancelBookingResponse{
		BookingID: bookingID,
		Status:    string(bookingEntity.BookingStatusCancelled),
	}, nil
}

func (s *AbsenceService) PenaltyFor(ctx context.Context, clientID string) (*dto.PenaltySummaryResponse, *errors.AppError) {
	absences, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "list client absences failed", err)
	}

	policy, appErr := s.policy(ctx)
	if appErr != nil {
		return nil, appErr
	}

	now := s.now()
	summary := &dto.PenaltySummaryResponse{ClientID: clientID}
	for i := range absences {
		a := &absences[i]
		switch a.Kind {
		case entity.AbsenceKindNoShow:
			summary.NoShows++
		case entity.AbsenceKindLateCancellation:
			summary.LateCancellations++
		case entity.AbsenceKindJustified:
			summary.JustifiedAbsences++
		}
		summary.TotalFines += a.Fine()

		if until := a.BlockedUntil(); until != nil && until.After(now) {
			summary.ActiveBlocks++
			if summary.BlockedUntil == nil || until.After(*summary.BlockedUntil) {
				summary.BlockedUntil = until
			}
		}
	}
	summary.Alert = policy.AlertAfterNoShows > 0 && summary.NoShows >= policy.AlertAfterNoShows
	return summary, nil
}

func (s *AbsenceService) Get(ctx context.Context, id uuid.UUID) (*dto.AbsenceResponse, *errors.AppError) {
	absence, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get absence failed", err)
	}
	if absence == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "absence not found", nil)
	}
	return mapper.ToAbsenceResponse(absence), nil
}

// ListInPeriod returns absences whose occurrence starts in [from, to).
func (s *AbsenceService) ListInPeriod(ctx context.Context, from, to time.Time) ([]entity.Absence, error) {
	return s.repo.ListInPeriod(ctx, from, to)
}

// LateCancellations lists late cancellation records whose occurrence starts in [from, to),
// most recent first.
func (s *AbsenceService) LateCancellations(ctx context.Context, from, to time.Time) ([]dto.AbsenceResponse, *errors.AppError) {
	absences, err := s.repo.ListInPeriod(ctx, from, to)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "list absences failed", err)
	}
	late := make([]entity.Absence, 0, len(absences))
	for i := len(absences) - 1; i >= 0; i-- {
		if absences[i].Kind == entity.AbsenceKindLateCancellation {
			late = append(late, absences[i])
		}
	}
	return mapper.ToAbsenceResponses(late), nil
}

func (s *AbsenceService) ActiveAlerts(ctx context.Context) ([]dto.NoShowAlertResponse, *errors.AppError) {
	if s.alerts == nil {
		return []dto.NoShowAlertResponse{}, nil
	}
	alerts, err := s.alerts.ListActive(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "list no-show alerts failed", err)
	}
	return mapper.ToNoShowAlertResponses(alerts), nil
}

func (s *AbsenceService) ResolveAlert(ctx context.Context, id uuid.UUID) *errors.AppError {
	if s.alerts == nil {
		return errors.NewAppError(errors.ErrNotFound, "no-show alert not found", nil)
	}
	ok, err := s.alerts.Resolve(ctx, id, s.now().UTC())
	if err != nil {
		return errors.NewAppError(errors.ErrUpdateFailed, "resolve no-show alert failed", err)
	}
	if !ok {
		return errors.NewAppError(errors.ErrNotFound, "no-show alert not found", nil)
	}
	logger.Info("AbsenceService:ResolveAlert", "alert_id", id)
	return nil
}
