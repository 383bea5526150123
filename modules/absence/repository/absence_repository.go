package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"
	"waitlist-service/core/database"
	"waitlist-service/core/logger"
	"waitlist-service/modules/absence/entity"

	"github.com/google/uuid"
)

type AbsenceRepositoryInterface interface {
	// Create inserts the absence unless one exists for its booking. It returns the
	// stored record and whether this call inserted it.
	Create(ctx context.Context, absence *entity.Absence) (*entity.Absence, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Absence, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Absence, error)
	ListByClient(ctx context.Context, clientID string) ([]entity.Absence, error)
	ListInPeriod(ctx context.Context, from, to time.Time) ([]entity.Absence, error)
	MarkNotified(ctx context.Context, id uuid.UUID) error
}

type AbsenceRepository struct {
	DB database.IDatabase
}

func NewAbsenceRepository(db database.IDatabase) *AbsenceRepository {
	return &AbsenceRepository{DB: db}
}

func (r *AbsenceRepository) Create(ctx context.Context, absence *entity.Absence) (*entity.Absence, bool, error) {
	query := `
		INSERT INTO absences (id, booking_id, resource_id, slot_key, client_id, occurred_at, recorded_at,
			kind, justification, penalty_kind, penalty_amount, penalty_block_days, notified,
			notice_hours, exception_id)
		VALUES (:id, :booking_id, :resource_id, :slot_key, :client_id, :occurred_at, :recorded_at,
			:kind, :justification, :penalty_kind, :penalty_amount, :penalty_block_days, :notified,
			:notice_hours, :exception_id)
		ON CONFLICT (booking_id) DO NOTHING
	`
	res, err := r.DB.NamedExecContext(ctx, query, absence)
	if err != nil {
		logger.Error("AbsenceRepository:Create:Error", "error", err)
		return nil, false, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return absence, true, nil
	}

	existing, err := r.GetByBookingID(ctx, absence.BookingID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *AbsenceRepository) get(ctx context.Context, query string, arg any) (*entity.Absence, error) {
	var absence entity.Absence
	if err := r.DB.GetContext(ctx, &absence, query, arg); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("AbsenceRepository:Get:Error", "error", err)
		return nil, err
	}
	return &absence, nil
}

func (r *AbsenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Absence, error) {
	return r.get(ctx, `SELECT * FROM absences WHERE id = $1`, id)
}

func (r *AbsenceRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Absence, error) {
	return r.get(ctx, `SELECT * FROM absences WHERE booking_id = $1`, bookingID)
}

func (r *AbsenceRepository) ListByClient(ctx context.Context, clientID string) ([]entity.Absence, error) {
	absences := make([]entity.Absence, 0)
	err := r.DB.SelectContext(ctx, &absences, `SELECT * FROM absences WHERE client_id = $1 ORDER BY occurred_at`, clientID)
	if err != nil {
		logger.Error("AbsenceRepository:ListByClient:Error", "error", err)
		return nil, err
	}
	return absences, nil
}

func (r *AbsenceRepository) ListInPeriod(ctx context.Context, from, to time.Time) ([]entity.Absence, error) {
	absences := make([]entity.Absence, 0)
	err := r.DB.SelectContext(ctx, &absences, `
		SELECT * FROM absences WHERE occurred_at >= $1 AND occurred_at < $2 ORDER BY occurred_at
	`, from, to)
	if err != nil {
		logger.Error("AbsenceRepository:ListInPeriod:Error", "error", err)
		return nil, err
	}
	return absences, nil
}

func (r *AbsenceRepository) MarkNotified(ctx context.Context, id uuid.UUID) error {
	if err := r.DB.ExecContext(ctx, `UPDATE absences SET notified = TRUE WHERE id = $1`, id); err != nil {
		logger.Error("AbsenceRepository:MarkNotified:Error", "error", err)
		return err
	}
	return nil
}
