package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"
	"waitlist-service/core/cache"
	"waitlist-service/core/config"
	"waitlist-service/core/constants"
	"waitlist-service/core/errors"
	"waitlist-service/core/logger"
	"waitlist-service/modules/waitlist/dto"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/mapper"
	"waitlist-service/modules/waitlist/repository"
)

type ConfigurationServiceInterface interface {
	Get(ctx context.Context, resourceID string) (*entity.Configuration, *errors.AppError)
	Update(ctx context.Context, resourceID string, req *dto.ConfigurationRequest) (*dto.ConfigurationResponse, *errors.AppError)
}

// ConfigurationService resolves per-resource settings: stored row, else defaults.
// Reads go through the cache; updates invalidate it.
type ConfigurationService struct {
	repo     repository.ConfigurationRepositoryInterface
	cache    cache.Cache
	defaults config.WaitlistConfig
	now      Clock
}

func NewConfigurationService(repo repository.ConfigurationRepositoryInterface, c cache.Cache, defaults config.WaitlistConfig, now Clock) *ConfigurationService {
	if now == nil {
		now = time.Now
	}
	return &ConfigurationService{repo: repo, cache: c, defaults: defaults, now: now}
}

func (s *ConfigurationService) defaultFor(resourceID string) *entity.Configuration {
	return &entity.Configuration{
		ResourceID:            resourceID,
		Active:                s.defaults.Active,
		ResponseWindowMinutes: s.defaults.ResponseWindowMinutes,
		AutoNotify:            s.defaults.AutoNotify,
		NotificationChannel:   s.defaults.NotificationChannel,
		MaxEntriesPerClient:   s.defaults.MaxEntriesPerClient,
		EntryValidityDays:     s.defaults.EntryValidityDays,
	}
}

func (s *ConfigurationService) Get(ctx context.Context, resourceID string) (*entity.Configuration, *errors.AppError) {
	key := constants.RedisKeyWaitlistConfig + resourceID

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var cfg entity.Configuration
			if jsonErr := json.Unmarshal([]byte(raw), &cfg); jsonErr == nil {
				return &cfg, nil
			}
		case !stderrors.Is(err, cache.ErrCacheMiss):
			logger.Warn("ConfigurationService:Get:CacheError", "resource_id", resourceID, "error", err)
		}
	}

	cfg, err := s.repo.Get(ctx, resourceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get waitlist configuration failed", err)
	}
	if cfg == nil {
		cfg = s.defaultFor(resourceID)
	}

	if s.cache != nil {
		if b, err := json.Marshal(cfg); err == nil {
			if err := s.cache.Set(ctx, key, string(b), constants.WaitlistConfigCacheTTL); err != nil {
				logger.Warn("ConfigurationService:Get:CacheSetError", "resource_id", resourceID, "error", err)
			}
		}
	}
	return cfg, nil
}

func (s *ConfigurationService) Update(ctx context.Context, resourceID string, req *dto.ConfigurationRequest) (*dto.ConfigurationResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	current, err := s.repo.Get(ctx, resourceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get waitlist configuration failed", err)
	}
	now := s.now().UTC()
	if current == nil {
		current = s.defaultFor(resourceID)
		current.CreatedAt = now
	}
	mapper.ApplyConfiguration(current, req)
	current.UpdatedAt = now

	if err := s.repo.Upsert(ctx, current); err != nil {
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "update waitlist configuration failed", err)
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, constants.RedisKeyWaitlistConfig+resourceID); err != nil {
			logger.Warn("ConfigurationService:Update:CacheDelError", "resource_id", resourceID, "error", err)
		}
	}

	logger.Info("ConfigurationService:Update", "resource_id", resourceID, "active", current.Active, "auto_notify", current.AutoNotify)
	return mapper.ToConfigurationResponse(current), nil
}
