package service

import (
	"context"
	"time"
	"waitlist-service/core/config"
	"waitlist-service/core/constants"
	"waitlist-service/core/errors"
	"waitlist-service/core/logger"
	"waitlist-service/modules/absence/dto"
	"waitlist-service/modules/absence/entity"
	"waitlist-service/modules/absence/mapper"
	"waitlist-service/modules/absence/repository"

	"github.com/google/uuid"
)

// PolicyProvider resolves the policy in force.
type PolicyProvider interface {
	Current(ctx context.Context) (*entity.Policy, error)
}

type PolicyServiceInterface interface {
	Get(ctx context.Context) (*dto.PolicyResponse, *errors.AppError)
	Update(ctx context.Context, req *dto.PolicyRequest) (*dto.PolicyResponse, *errors.AppError)
	AddException(ctx context.Context, req *dto.PolicyExceptionRequest) (*dto.PolicyExceptionResponse, *errors.AppError)
	RemoveException(ctx context.Context, id uuid.UUID) *errors.AppError
}

// PolicyService keeps the cancellation policy editable at runtime. Until the
// first update the configured defaults apply.
type PolicyService struct {
	repo     repository.PolicyRepositoryInterface
	defaults config.AbsenceConfig
	now      func() time.Time
}

func NewPolicyService(repo repository.PolicyRepositoryInterface, defaults config.AbsenceConfig, now func() time.Time) *PolicyService {
	if now == nil {
		now = time.Now
	}
	return &PolicyService{repo: repo, defaults: defaults, now: now}
}

func (s *PolicyService) defaultPolicy() *entity.Policy {
	return &entity.Policy{
		ID:                          entity.DefaultPolicyID,
		Active:                      true,
		NoShowFineEnabled:           s.defaults.NoShowFineEnabled,
		NoShowFineAmount:            s.defaults.NoShowFineAmount,
		LateCancellationFineEnabled: s.defaults.LateCancellationFineEnabled,
		LateCancellationFineAmount:  s.defaults.LateCancellationFineAmount,
		LateCancellationNoticeHours: s.defaults.LateCancellationNoticeHours,
		BlockAfterNoShows:           s.defaults.BlockAfterNoShows,
		BlockDays:                   s.defaults.BlockDays,
		AlertAfterNoShows:           s.defaults.AlertAfterNoShows,
	}
}

func (s *PolicyService) stored(ctx context.Context) (*entity.Policy, error) {
	policy, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		policy = s.defaultPolicy()
	}
	return policy, nil
}

// Current returns the policy with its exceptions.
func (s *PolicyService) Current(ctx context.Context) (*entity.Policy, error) {
	policy, err := s.stored(ctx)
	if err != nil {
		return nil, err
	}
	if policy.Exceptions, err = s.repo.ListExceptions(ctx); err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *PolicyService) Get(ctx context.Context) (*dto.PolicyResponse, *errors.AppError) {
	policy, err := s.Current(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get absence policy failed", err)
	}
	return mapper.ToPolicyResponse(policy), nil
}

func (s *PolicyService) Update(ctx context.Context, req *dto.PolicyRequest) (*dto.PolicyResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	policy, err := s.stored(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get absence policy failed", err)
	}
	mapper.ApplyPolicy(policy, req)
	policy.UpdatedAt = s.now().UTC()

	if err := s.repo.Upsert(ctx, policy); err != nil {
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "update absence policy failed", err)
	}
	logger.Info("PolicyService:Update",
		"active", policy.Active,
		"notice_hours", policy.LateCancellationNoticeHours,
		"block_after_no_shows", policy.BlockAfterNoShows,
	)
	return s.Get(ctx)
}

func (s *PolicyService) AddException(ctx context.Context, req *dto.PolicyExceptionRequest) (*dto.PolicyExceptionResponse, *errors.AppError) {
	ex := &entity.PolicyException{
		ID:           uuid.New(),
		Scope:        entity.ExceptionScope(req.Scope),
		Target:       req.Target,
		NoticeHours:  req.NoticeHours,
		WaivePenalty: req.WaivePenalty,
		Active:       true,
		Description:  req.Description,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.AddException(ctx, ex); err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "add policy exception failed", err)
	}
	logger.Info("PolicyService:AddException", "exception_id", ex.ID, "scope", ex.Scope, "target", ex.Target, "waive_penalty", ex.WaivePenalty)
	return mapper.ToPolicyExceptionResponse(ex), nil
}

func (s *PolicyService) RemoveException(ctx context.Context, id uuid.UUID) *errors.AppError {
	ok, err := s.repo.RemoveException(ctx, id)
	if err != nil {
		return errors.NewAppError(errors.ErrDeleteFailed, "remove policy exception failed", err)
	}
	if !ok {
		return errors.NewAppError(errors.ErrNotFound, "policy exception not found", nil)
	}
	logger.Info("PolicyService:RemoveException", "exception_id", id)
	return nil
}
