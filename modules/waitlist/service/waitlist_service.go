package service

import (
	"context"
	stderrors "errors"
	"time"
	"waitlist-service/core/constants"
	"waitlist-service/core/database"
	coreDto "waitlist-service/core/dto"
	"waitlist-service/core/errors"
	"waitlist-service/core/logger"
	"waitlist-service/core/params"
	"waitlist-service/modules/waitlist/dto"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/mapper"
	"waitlist-service/modules/waitlist/policy"
	"waitlist-service/modules/waitlist/repository"

	"github.com/google/uuid"
)

type WaitlistServiceInterface interface {
	AddEntry(ctx context.Context, req *dto.AddEntryRequest) (*dto.EntryResponse, *errors.AppError)
	GetEntry(ctx context.Context, id uuid.UUID) (*dto.EntryResponse, *errors.AppError)
	CancelEntry(ctx context.Context, id uuid.UUID) (*dto.EntryResponse, *errors.AppError)
	ListEntries(ctx context.Context, req *dto.ListEntriesRequest, p *params.QueryParams) (*dto.PaginatedEntryResponse, *errors.AppError)
	ListActive(ctx context.Context, resourceID string, slot entity.ResourceSlot) ([]dto.EntryResponse, *errors.AppError)
	ExpireStaleEntries(ctx context.Context) (int, *errors.AppError)
}

// WaitlistService handles waitlist entry business logic
type WaitlistService struct {
	repo    repository.WaitlistRepositoryInterface
	configs ConfigurationServiceInterface
	policy  *policy.PriorityPolicy
	tracker *OfferTracker
	now     Clock
}

func NewWaitlistService(repo repository.WaitlistRepositoryInterface, configs ConfigurationServiceInterface, p *policy.PriorityPolicy, tracker *OfferTracker, now Clock) *WaitlistService {
	if now == nil {
		now = time.Now
	}
	return &WaitlistService{
		repo:    repo,
		configs: configs,
		policy:  p,
		tracker: tracker,
		now:     now,
	}
}

// AddEntry puts a client on the waitlist of a slot.
func (s *WaitlistService) AddEntry(ctx context.Context, req *dto.AddEntryRequest) (*dto.EntryResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	entry := mapper.ToWaitlistEntry(req)
	if err := entry.Slot().Validate(); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid slot", err)
	}
	if !s.policy.Known(entry.PriorityClass) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "unknown priority class", nil)
	}

	cfg, appErr := s.configs.Get(ctx, entry.ResourceID)
	if appErr != nil {
		return nil, appErr
	}
	if !cfg.Active {
		return nil, errors.NewAppError(errors.ErrWaitlistInactive, "waitlist is not active for this resource", nil)
	}

	entry.RequestedAt = s.now().UTC()
	entry.UpdatedAt = entry.RequestedAt
	if err := s.repo.Create(ctx, entry, cfg.MaxEntriesPerClient); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrDuplicateEntry):
			return nil, errors.NewAppError(errors.ErrDuplicateEntry, "client already waits for this slot", err)
		case stderrors.Is(err, repository.ErrQuotaExceeded):
			return nil, errors.NewAppError(errors.ErrQuotaExceeded, "client reached the waitlist limit for this resource", err)
		case stderrors.Is(err, database.ErrLockNotAcquired):
			return nil, errors.NewAppError(errors.ErrLockContention, "waitlist is busy, retry later", err)
		}
		logger.Error("WaitlistService:AddEntry:Error", "resource_id", entry.ResourceID, "client_id", entry.ClientID, "error", err)
		return nil, errors.NewAppError(errors.ErrCreateFailed, "create waitlist entry failed", err)
	}

	logger.Info("WaitlistService:AddEntry",
		"entry_id", entry.ID,
		"resource_id", entry.ResourceID,
		"client_id", entry.ClientID,
		"slot_key", entry.SlotKey,
		"priority", entry.Priority,
	)
	return mapper.ToEntryResponse(entry), nil
}

func (s *WaitlistService) GetEntry(ctx context.Context, id uuid.UUID) (*dto.EntryResponse, *errors.AppError) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get waitlist entry failed", err)
	}
	if entry == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "waitlist entry not found", nil)
	}
	return mapper.ToEntryResponse(entry), nil
}

// CancelEntry withdraws an entry. Cancelling a notified entry releases its offer
// to the next candidate right away. Cancelling a terminal entry changes nothing.
func (s *WaitlistService) CancelEntry(ctx context.Context, id uuid.UUID) (*dto.EntryResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	prior, err := s.repo.Cancel(ctx, id, s.now().UTC())
	if err != nil {
		if stderrors.Is(err, database.ErrLockNotAcquired) {
			return nil, errors.NewAppError(errors.ErrLockContention, "waitlist is busy, retry later", err)
		}
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "cancel waitlist entry failed", err)
	}
	if prior == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "waitlist entry not found", nil)
	}

	if prior.State == entity.EntryStateNotified && s.tracker != nil {
		s.tracker.Withdraw(ctx, prior)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil || current == nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get waitlist entry failed", err)
	}
	logger.Info("WaitlistService:CancelEntry", "entry_id", id, "prior_state", prior.State, "state", current.State)
	return mapper.ToEntryResponse(current), nil
}

func (s *WaitlistService) ListEntries(ctx context.Context, req *dto.ListEntriesRequest, p *params.QueryParams) (*dto.PaginatedEntryResponse, *errors.AppError) {
	filter := entity.EntryFilter{ResourceID: req.ResourceID, SlotKey: req.SlotKey}
	if req.State != "" {
		filter.States = []entity.EntryState{entity.EntryState(req.State)}
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "list waitlist entries failed", err)
	}

	total := len(entries)
	from := min(p.Offset(), total)
	to := min(from+p.PageSize, total)
	return &dto.PaginatedEntryResponse{
		Items:      mapper.ToEntryResponses(entries[from:to]),
		TotalItems: total,
		TotalPages: coreDto.TotalPages(total, p.PageSize),
		PageNumber: p.PageNumber,
		PageSize:   p.PageSize,
	}, nil
}

// ListActive returns the slot's active entries, best first.
func (s *WaitlistService) ListActive(ctx context.Context, resourceID string, slot entity.ResourceSlot) ([]dto.EntryResponse, *errors.AppError) {
	entries, err := s.repo.ListActive(ctx, resourceID, slot.Key())
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "list waitlist entries failed", err)
	}
	return mapper.ToEntryResponses(entries), nil
}

// ExpireStaleEntries drops active entries older than their resource's validity period.
func (s *WaitlistService) ExpireStaleEntries(ctx context.Context) (int, *errors.AppError) {
	resources, err := s.repo.ActiveResources(ctx)
	if err != nil {
		return 0, errors.NewAppError(errors.ErrGetFailed, "list waitlist resources failed", err)
	}

	now := s.now().UTC()
	total := 0
	for _, resourceID := range resources {
		cfg, appErr := s.configs.Get(ctx, resourceID)
		if appErr != nil {
			logger.Error("WaitlistService:ExpireStaleEntries:ConfigError", "resource_id", resourceID, "error", appErr)
			continue
		}
		if cfg.EntryValidityDays <= 0 {
			continue
		}
		cutoff := now.AddDate(0, 0, -cfg.EntryValidityDays)
		n, err := s.repo.ExpireStale(ctx, resourceID, cutoff, now)
		if err != nil {
			logger.Error("WaitlistService:ExpireStaleEntries:Error", "resource_id", resourceID, "error", err)
			continue
		}
		total += n
	}
	if total > 0 {
		logger.Info("WaitlistService:ExpireStaleEntries", "expired", total)
	}
	return total, nil
}
