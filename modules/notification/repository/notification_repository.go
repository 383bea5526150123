package repository

import (
	"context"
	"waitlist-service/core/database"
	"waitlist-service/core/logger"
	"waitlist-service/core/params"
	"waitlist-service/modules/notification/entity"

	"github.com/lib/pq"
)

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByRecipient(ctx context.Context, recipientID string, params params.QueryParams) (*entity.PaginatedNotificationEntity, error)
	MarkAsRead(ctx context.Context, recipientID string, ids []string) (int, error)
	MarkAllAsRead(ctx context.Context, recipientID string) (int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

type NotificationRepository struct {
	db database.IDatabase
}

func NewNotificationRepository(db database.IDatabase) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, title, message, type, channel, data, is_read, created_at, updated_at)
		VALUES (:id, :recipient_id, :title, :message, :type, :channel, :data, :is_read, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		logger.Error("NotificationRepository:Create:Error", "error", err)
		return err
	}
	return nil
}

func (r *NotificationRepository) GetByRecipient(ctx context.Context, recipientID string, params params.QueryParams) (*entity.PaginatedNotificationEntity, error) {
	baseQuery := `FROM notifications WHERE recipient_id = $1`

	var totalItems int
	if err := r.db.GetContext(ctx, &totalItems, "SELECT COUNT(*) "+baseQuery, recipientID); err != nil {
		logger.Error("NotificationRepository:GetByRecipient:Count:Error", "error", err)
		return nil, err
	}

	query := `
		SELECT * ` + baseQuery + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	notifications := []entity.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, recipientID, params.PageSize, params.Offset()); err != nil {
		logger.Error("NotificationRepository:GetByRecipient:Select:Error", "error", err)
		return nil, err
	}

	return &entity.PaginatedNotificationEntity{
		Items:      notifications,
		TotalItems: totalItems,
		PageNumber: params.PageNumber,
		PageSize:   params.PageSize,
	}, nil
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, recipientID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
		UPDATE notifications SET is_read = true, updated_at = NOW()
		WHERE recipient_id = $1 AND id = ANY($2::uuid[]) AND is_read = false
	`
	res, err := r.db.SQLx().ExecContext(ctx, query, recipientID, pq.Array(ids))
	if err != nil {
		logger.Error("NotificationRepository:MarkAsRead:Error", "error", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string) (int, error) {
	query := `UPDATE notifications SET is_read = true, updated_at = NOW() WHERE recipient_id = $1 AND is_read = false`
	res, err := r.db.SQLx().ExecContext(ctx, query, recipientID)
	if err != nil {
		logger.Error("NotificationRepository:MarkAllAsRead:Error", "error", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = false`
	if err := r.db.GetContext(ctx, &count, query, recipientID); err != nil {
		logger.Error("NotificationRepository:CountUnread:Error", "error", err)
		return 0, err
	}
	return count, nil
}
