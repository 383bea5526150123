package service

import (
	"context"
	"time"
	"waitlist-service/core/constants"
	"waitlist-service/core/errors"
	"waitlist-service/core/logger"
	"waitlist-service/core/utils"
	"waitlist-service/modules/booking/dto"
	"waitlist-service/modules/booking/entity"
	"waitlist-service/modules/booking/mapper"
	"waitlist-service/modules/booking/repository"
	waitlistEntity "waitlist-service/modules/waitlist/entity"

	"github.com/google/uuid"
)

type BookingServiceInterface interface {
	Create(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, *errors.AppError)
	CreateFromWaitlist(ctx context.Context, booking *entity.Booking) (*entity.Booking, *errors.AppError)
	Get(ctx context.Context, id uuid.UUID) (*dto.BookingResponse, *errors.AppError)
	GetEntity(ctx context.Context, id uuid.UUID) (*entity.Booking, *errors.AppError)
	SetStatus(ctx context.Context, id uuid.UUID, status entity.BookingStatus) (bool, *errors.AppError)
	HasConfirmedOverlap(ctx context.Context, clientID string, start, end time.Time) (bool, error)
	CountInPeriod(ctx context.Context, from, to time.Time) (int, error)
}

type BookingService struct {
	repo repository.BookingRepositoryInterface
	loc  *time.Location
	now  func() time.Time
}

func NewBookingService(repo repository.BookingRepositoryInterface, loc *time.Location, now func() time.Time) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{repo: repo, loc: loc, now: now}
}

// Create books one occurrence of a slot directly.
func (s *BookingService) Create(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	date, err := waitlistEntity.ParseOccurrence(req.Date)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid date", err)
	}
	slot := waitlistEntity.ResourceSlot{
		ResourceID: req.ResourceID,
		DayOfWeek:  date.Weekday(),
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
	}
	if err := slot.Validate(); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid slot", err)
	}
	start, end, err := slot.Window(date, s.loc)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid slot", err)
	}

	taken, err := s.repo.OccurrenceTaken(ctx, req.ResourceID, start, end)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "check availability failed", err)
	}
	if taken {
		return nil, errors.NewAppError(errors.ErrAlreadyExists, "slot occurrence is already booked", nil)
	}

	booking := &entity.Booking{
		ResourceID: req.ResourceID,
		ClientID:   req.ClientID,
		SlotKey:    slot.Key(),
		StartsAt:   start,
		EndsAt:     end,
		Source:     entity.BookingSourceDirect,
	}
	if appErr := s.insert(ctx, booking); appErr != nil {
		return nil, appErr
	}
	return mapper.ToBookingResponse(booking), nil
}

// CreateFromWaitlist stores the booking produced by an accepted offer.
func (s *BookingService) CreateFromWaitlist(ctx context.Context, booking *entity.Booking) (*entity.Booking, *errors.AppError) {
	booking.Source = entity.BookingSourceWaitlist
	if appErr := s.insert(ctx, booking); appErr != nil {
		return nil, appErr
	}
	return booking, nil
}

func (s *BookingService) insert(ctx context.Context, booking *entity.Booking) *errors.AppError {
	now := s.now().UTC()
	booking.ID = uuid.New()
	booking.Reference = utils.GenerateReference("BK")
	booking.Status = entity.BookingStatusConfirmed
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if err := s.repo.Create(ctx, booking); err != nil {
		logger.Error("BookingService:Create:Error", "resource_id", booking.ResourceID, "client_id", booking.ClientID, "error", err)
		return errors.NewAppError(errors.ErrCreateFailed, "create booking failed", err)
	}
	logger.Info("BookingService:Create",
		"booking_id", booking.ID,
		"reference", booking.Reference,
		"resource_id", booking.ResourceID,
		"client_id", booking.ClientID,
		"source", booking.Source,
	)
	return nil
}

func (s *BookingService) Get(ctx context.Context, id uuid.UUID) (*dto.BookingResponse, *errors.AppError) {
	booking, appErr := s.GetEntity(ctx, id)
	if appErr != nil {
		return nil, appErr
	}
	return mapper.ToBookingResponse(booking), nil
}

func (s *BookingService) GetEntity(ctx context.Context, id uuid.UUID) (*entity.Booking, *errors.AppError) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get booking failed", err)
	}
	if booking == nil {
		return nil, errors.NewAppError(errors.ErrBookingNotFound, "booking not found", nil)
	}
	return booking, nil
}

// SetStatus closes a confirmed booking. It reports false when the booking was already closed.
func (s *BookingService) SetStatus(ctx context.Context, id uuid.UUID, status entity.BookingStatus) (bool, *errors.AppError) {
	ok, err := s.repo.UpdateStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return false, errors.NewAppError(errors.ErrUpdateFailed, "update booking failed", err)
	}
	if ok {
		logger.Info("BookingService:SetStatus", "booking_id", id, "status", status)
	}
	return ok, nil
}

func (s *BookingService) HasConfirmedOverlap(ctx context.Context, clientID string, start, end time.Time) (bool, error) {
	return s.repo.HasConfirmedOverlap(ctx, clientID, start, end)
}

func (s *BookingService) CountInPeriod(ctx context.Context, from, to time.Time) (int, error) {
	return s.repo.CountInPeriod(ctx, from, to)
}
