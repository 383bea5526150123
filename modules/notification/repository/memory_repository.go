package repository

import (
	"context"
	"sort"
	"sync"
	"waitlist-service/core/params"
	"waitlist-service/modules/notification/entity"
)

type MemoryNotificationRepository struct {
	mu    sync.RWMutex
	items []entity.Notification
}

func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{}
}

func (r *MemoryNotificationRepository) Create(_ context.Context, notification *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *notification)
	return nil
}

func (r *MemoryNotificationRepository) GetByRecipient(_ context.Context, recipientID string, params params.QueryParams) (*entity.PaginatedNotificationEntity, error) {
	r.mu.RLock()
	matched := []entity.Notification{}
	for _, n := range r.items {
		if n.RecipientID == recipientID {
			matched = append(matched, n)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := &entity.PaginatedNotificationEntity{
		Items:      []entity.Notification{},
		TotalItems: len(matched),
		PageNumber: params.PageNumber,
		PageSize:   params.PageSize,
	}
	start := params.Offset()
	if start < len(matched) {
		end := min(start+params.PageSize, len(matched))
		page.Items = matched[start:end]
	}
	return page, nil
}

func (r *MemoryNotificationRepository) MarkAsRead(_ context.Context, recipientID string, ids []string) (int, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.items {
		item := &r.items[i]
		if _, ok := want[item.ID.String()]; ok && item.RecipientID == recipientID && !item.IsRead {
			item.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *MemoryNotificationRepository) MarkAllAsRead(_ context.Context, recipientID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.items {
		if r.items[i].RecipientID == recipientID && !r.items[i].IsRead {
			r.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *MemoryNotificationRepository) CountUnread(_ context.Context, recipientID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, item := range r.items {
		if item.RecipientID == recipientID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

var (
	_ NotificationRepositoryInterface = (*NotificationRepository)(nil)
	_ NotificationRepositoryInterface = (*MemoryNotificationRepository)(nil)
)
