package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"
	"waitlist-service/core/database"
	"waitlist-service/core/logger"
	"waitlist-service/modules/booking/entity"

	"github.com/google/uuid"
)

type BookingRepositoryInterface interface {
	Create(ctx context.Context, booking *entity.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// UpdateStatus moves a confirmed booking to status. It returns false when the
	// booking was not confirmed.
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.BookingStatus, at time.Time) (bool, error)
	HasConfirmedOverlap(ctx context.Context, clientID string, start, end time.Time) (bool, error)
	OccurrenceTaken(ctx context.Context, resourceID string, start, end time.Time) (bool, error)
	CountInPeriod(ctx context.Context, from, to time.Time) (int, error)
}

type BookingRepository struct {
	DB database.IDatabase
}

func NewBookingRepository(db database.IDatabase) *BookingRepository {
	return &BookingRepository{DB: db}
}

func (r *BookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, reference, resource_id, client_id, slot_key, starts_at, ends_at,
			status, source, waitlist_entry_id, created_at, updated_at)
		VALUES (:id, :reference, :resource_id, :client_id, :slot_key, :starts_at, :ends_at,
			:status, :source, :waitlist_entry_id, :created_at, :updated_at)
	`
	if _, err := r.DB.NamedExecContext(ctx, query, booking); err != nil {
		logger.Error("BookingRepository:Create:Error", "error", err)
		return err
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	var booking entity.Booking
	err := r.DB.GetContext(ctx, &booking, `SELECT * FROM bookings WHERE id = $1`, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("BookingRepository:GetByID:Error", "error", err)
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.BookingStatus, at time.Time) (bool, error) {
	var updated uuid.UUID
	err := r.DB.GetContext(ctx, &updated, `
		UPDATE bookings SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'confirmed'
		RETURNING id
	`, id, status, at)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		logger.Error("BookingRepository:UpdateStatus:Error", "error", err)
		return false, err
	}
	return true, nil
}

func (r *BookingRepository) HasConfirmedOverlap(ctx context.Context, clientID string, start, end time.Time) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE client_id = $1 AND status = 'confirmed' AND starts_at < $3 AND ends_at > $2
		)
	`, clientID, start, end)
	if err != nil {
		logger.Error("BookingRepository:HasConfirmedOverlap:Error", "error", err)
		return false, err
	}
	return exists, nil
}

func (r *BookingRepository) OccurrenceTaken(ctx context.Context, resourceID string, start, end time.Time) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE resource_id = $1 AND status = 'confirmed' AND starts_at < $3 AND ends_at > $2
		)
	`, resourceID, start, end)
	if err != nil {
		logger.Error("BookingRepository:OccurrenceTaken:Error", "error", err)
		return false, err
	}
	return exists, nil
}

func (r *BookingRepository) CountInPeriod(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := r.DB.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM bookings WHERE starts_at >= $1 AND starts_at < $2 AND status <> $3
	`, from, to, entity.BookingStatusVoided)
	if err != nil {
		logger.Error("BookingRepository:CountInPeriod:Error", "error", err)
		return 0, err
	}
	return count, nil
}
