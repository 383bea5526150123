package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sort"
	"sync"
	"waitlist-service/core/database"
	"waitlist-service/core/logger"
	"waitlist-service/modules/absence/entity"

	"github.com/google/uuid"
)

type PolicyRepositoryInterface interface {
	// Get returns the stored policy without exceptions, or nil before the first update.
	Get(ctx context.Context) (*entity.Policy, error)
	Upsert(ctx context.Context, policy *entity.Policy) error
	ListExceptions(ctx context.Context) ([]entity.PolicyException, error)
	AddException(ctx context.Context, ex *entity.PolicyException) error
	RemoveException(ctx context.Context, id uuid.UUID) (bool, error)
}

type PolicyRepository struct {
	DB database.IDatabase
}

func NewPolicyRepository(db database.IDatabase) *PolicyRepository {
	return &PolicyRepository{DB: db}
}

func (r *PolicyRepository) Get(ctx context.Context) (*entity.Policy, error) {
	var policy entity.Policy
	err := r.DB.GetContext(ctx, &policy, `
		SELECT id, active, no_show_fine_enabled, no_show_fine_amount, late_cancellation_fine_enabled,
		       late_cancellation_fine_amount, late_cancellation_notice_hours, block_after_no_shows,
		       block_days, alert_after_no_shows, updated_at
		FROM absence_policies WHERE id = $1`, entity.DefaultPolicyID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("PolicyRepository:Get:Error", "error", err)
		return nil, err
	}
	return &policy, nil
}

func (r *PolicyRepository) Upsert(ctx context.Context, policy *entity.Policy) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO absence_policies (id, active, no_show_fine_enabled, no_show_fine_amount,
			late_cancellation_fine_enabled, late_cancellation_fine_amount, late_cancellation_notice_hours,
			block_after_no_shows, block_days, alert_after_no_shows, updated_at)
		VALUES (:id, :active, :no_show_fine_enabled, :no_show_fine_amount,
			:late_cancellation_fine_enabled, :late_cancellation_fine_amount, :late_cancellation_notice_hours,
			:block_after_no_shows, :block_days, :alert_after_no_shows, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			active = EXCLUDED.active,
			no_show_fine_enabled = EXCLUDED.no_show_fine_enabled,
			no_show_fine_amount = EXCLUDED.no_show_fine_amount,
			late_cancellation_fine_enabled = EXCLUDED.late_cancellation_fine_enabled,
			late_cancellation_fine_amount = EXCLUDED.late_cancellation_fine_amount,
			late_cancellation_notice_hours = EXCLUDED.late_cancellation_notice_hours,
			block_after_no_shows = EXCLUDED.block_after_no_shows,
			block_days = EXCLUDED.block_days,
			alert_after_no_shows = EXCLUDED.alert_after_no_shows,
			updated_at = EXCLUDED.updated_at`, policy)
	if err != nil {
		logger.Error("PolicyRepository:Upsert:Error", "error", err)
	}
	return err
}

func (r *PolicyRepository) ListExceptions(ctx context.Context) ([]entity.PolicyException, error) {
	exceptions := make([]entity.PolicyException, 0)
	err := r.DB.SelectContext(ctx, &exceptions, `
		SELECT id, scope, target, notice_hours, waive_penalty, active, description, created_at
		FROM absence_policy_exceptions ORDER BY created_at, id`)
	if err != nil {
		logger.Error("PolicyRepository:ListExceptions:Error", "error", err)
		return nil, err
	}
	return exceptions, nil
}

func (r *PolicyRepository) AddException(ctx context.Context, ex *entity.PolicyException) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO absence_policy_exceptions (id, scope, target, notice_hours, waive_penalty, active, description, created_at)
		VALUES (:id, :scope, :target, :notice_hours, :waive_penalty, :active, :description, :created_at)`, ex)
	if err != nil {
		logger.Error("PolicyRepository:AddException:Error", "error", err)
	}
	return err
}

func (r *PolicyRepository) RemoveException(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.DB.SQLx().ExecContext(ctx, `DELETE FROM absence_policy_exceptions WHERE id = $1`, id)
	if err != nil {
		logger.Error("PolicyRepository:RemoveException:Error", "id", id, "error", err)
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

type MemoryPolicyRepository struct {
	mu         sync.RWMutex
	policy     *entity.Policy
	exceptions map[uuid.UUID]entity.PolicyException
}

func NewMemoryPolicyRepository() *MemoryPolicyRepository {
	return &MemoryPolicyRepository{exceptions: make(map[uuid.UUID]entity.PolicyException)}
}

func (r *MemoryPolicyRepository) Get(_ context.Context) (*entity.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.policy == nil {
		return nil, nil
	}
	c := *r.policy
	c.Exceptions = nil
	return &c, nil
}

func (r *MemoryPolicyRepository) Upsert(_ context.Context, policy *entity.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *policy
	c.Exceptions = nil
	r.policy = &c
	return nil
}

func (r *MemoryPolicyRepository) ListExceptions(_ context.Context) ([]entity.PolicyException, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.PolicyException, 0, len(r.exceptions))
	for _, ex := range r.exceptions {
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *MemoryPolicyRepository) AddException(_ context.Context, ex *entity.PolicyException) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exceptions[ex.ID] = *ex
	return nil
}

func (r *MemoryPolicyRepository) RemoveException(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exceptions[id]; !ok {
		return false, nil
	}
	delete(r.exceptions, id)
	return true, nil
}

var (
	_ PolicyRepositoryInterface = (*PolicyRepository)(nil)
	_ PolicyRepositoryInterface = (*MemoryPolicyRepository)(nil)
)
