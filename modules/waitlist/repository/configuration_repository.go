package repository

import (
	"context"
	"database/sql"
	"sync"
	"waitlist-service/core/database"
	"waitlist-service/core/logger"
	"waitlist-service/modules/waitlist/entity"
)

type ConfigurationRepository struct {
	DB database.IDatabase
}

func NewConfigurationRepository(db database.IDatabase) *ConfigurationRepository {
	return &ConfigurationRepository{DB: db}
}

func (r *ConfigurationRepository) Get(ctx context.Context, resourceID string) (*entity.Configuration, error) {
	var cfg entity.Configuration
	err := r.DB.GetContext(ctx, &cfg, `
		SELECT resource_id, active, response_window_minutes, auto_notify, notification_channel,
		       max_entries_per_client, entry_validity_days, created_at, updated_at
		FROM waitlist_configurations WHERE resource_id = $1`, resourceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ConfigurationRepository:Get:Error", "resource_id", resourceID, "error", err)
		return nil, err
	}
	return &cfg, nil
}

func (r *ConfigurationRepository) Upsert(ctx context.Context, cfg *entity.Configuration) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO waitlist_configurations (resource_id, active, response_window_minutes, auto_notify,
			notification_channel, max_entries_per_client, entry_validity_days, created_at, updated_at)
		VALUES (:resource_id, :active, :response_window_minutes, :auto_notify,
			:notification_channel, :max_entries_per_client, :entry_validity_days, :created_at, :updated_at)
		ON CONFLICT (resource_id) DO UPDATE SET
			active = EXCLUDED.active,
			response_window_minutes = EXCLUDED.response_window_minutes,
			auto_notify = EXCLUDED.auto_notify,
			notification_channel = EXCLUDED.notification_channel,
			max_entries_per_client = EXCLUDED.max_entries_per_client,
			entry_validity_days = EXCLUDED.entry_validity_days,
			updated_at = EXCLUDED.updated_at`, cfg)
	if err != nil {
		logger.Error("ConfigurationRepository:Upsert:Error", "resource_id", cfg.ResourceID, "error", err)
	}
	return err
}

type MemoryConfigurationRepository struct {
	mu      sync.RWMutex
	configs map[string]entity.Configuration
}

func NewMemoryConfigurationRepository() *MemoryConfigurationRepository {
	return &MemoryConfigurationRepository{configs: make(map[string]entity.Configuration)}
}

func (r *MemoryConfigurationRepository) Get(_ context.Context, resourceID string) (*entity.Configuration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[resourceID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (r *MemoryConfigurationRepository) Upsert(_ context.Context, cfg *entity.Configuration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.configs[cfg.ResourceID]; ok {
		cfg.CreatedAt = existing.CreatedAt
	}
	r.configs[cfg.ResourceID] = *cfg
	return nil
}
