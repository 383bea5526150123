package repository

import (
	"context"
	"sort"
	"sync"
	"time"
	"waitlist-service/core/database"
	"waitlist-service/core/logger"
	"waitlist-service/modules/absence/entity"

	"github.com/google/uuid"
)

type AlertRepositoryInterface interface {
	// Raise opens an alert for the client or refreshes its open one. It returns
	// the stored alert.
	Raise(ctx context.Context, alert *entity.NoShowAlert) (*entity.NoShowAlert, error)
	ListActive(ctx context.Context) ([]entity.NoShowAlert, error)
	Resolve(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type AlertRepository struct {
	DB database.IDatabase
}

func NewAlertRepository(db database.IDatabase) *AlertRepository {
	return &AlertRepository{DB: db}
}

const alertColumns = `id, client_id, level, no_shows, last_no_show_at, active, created_at, updated_at, resolved_at`

func (r *AlertRepository) Raise(ctx context.Context, alert *entity.NoShowAlert) (*entity.NoShowAlert, error) {
	rows, err := r.DB.NamedQueryContext(ctx, `
		INSERT INTO no_show_alerts (`+alertColumns+`)
		VALUES (:id, :client_id, :level, :no_shows, :last_no_show_at, TRUE, :created_at, :updated_at, NULL)
		ON CONFLICT (client_id) WHERE active DO UPDATE SET
			level = EXCLUDED.level,
			no_shows = EXCLUDED.no_shows,
			last_no_show_at = EXCLUDED.last_no_show_at,
			updated_at = EXCLUDED.updated_at
		RETURNING `+alertColumns, alert)
	if err != nil {
		logger.Error("AlertRepository:Raise:Error", "client_id", alert.ClientID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var stored entity.NoShowAlert
	if rows.Next() {
		if err := rows.StructScan(&stored); err != nil {
			return nil, err
		}
	}
	return &stored, rows.Err()
}

func (r *AlertRepository) ListActive(ctx context.Context) ([]entity.NoShowAlert, error) {
	alerts := make([]entity.NoShowAlert, 0)
	err := r.DB.SelectContext(ctx, &alerts, `
		SELECT `+alertColumns+` FROM no_show_alerts WHERE active ORDER BY updated_at DESC`)
	if err != nil {
		logger.Error("AlertRepository:ListActive:Error", "error", err)
		return nil, err
	}
	return alerts, nil
}

func (r *AlertRepository) Resolve(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.DB.SQLx().ExecContext(ctx, `
		UPDATE no_show_alerts SET active = FALSE, resolved_at = $2, updated_at = $2
		WHERE id = $1 AND active`, id, at)
	if err != nil {
		logger.Error("AlertRepository:Resolve:Error", "id", id, "error", err)
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

type MemoryAlertRepository struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*entity.NoShowAlert
}

func NewMemoryAlertRepository() *MemoryAlertRepository {
	return &MemoryAlertRepository{alerts: make(map[uuid.UUID]*entity.NoShowAlert)}
}

func (r *MemoryAlertRepository) Raise(_ context.Context, alert *entity.NoShowAlert) (*entity.NoShowAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.Active && a.ClientID == alert.ClientID {
			a.Level = alert.Level
			a.NoShows = alert.NoShows
			a.LastNoShowAt = alert.LastNoShowAt
			a.UpdatedAt = alert.UpdatedAt
			c := *a
			return &c, nil
		}
	}
	a := *alert
	a.Active = true
	a.ResolvedAt = nil
	r.alerts[a.ID] = &a
	c := a
	return &c, nil
}

func (r *MemoryAlertRepository) ListActive(_ context.Context) ([]entity.NoShowAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.NoShowAlert, 0)
	for _, a := range r.alerts {
		if a.Active {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryAlertRepository) Resolve(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || !a.Active {
		return false, nil
	}
	a.Active = false
	a.ResolvedAt = &at
	a.UpdatedAt = at
	return true, nil
}

var (
	_ AlertRepositoryInterface = (*AlertRepository)(nil)
	_ AlertRepositoryInterface = (*MemoryAlertRepository)(nil)
)
