package mapper

import (
	"waitlist-service/modules/notification/dto"
	"waitlist-service/modules/notification/entity"
)

func ToNotificationResponse(n *entity.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Channel:   n.Channel,
		Data:      n.Data,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func ToNotificationListResponse(page *entity.PaginatedNotificationEntity) *dto.NotificationListResponse {
	items := make([]dto.NotificationResponse, len(page.Items))
	for i := range page.Items {
		items[i] = ToNotificationResponse(&page.Items[i])
	}
	return &dto.NotificationListResponse{
		Items:      items,
		TotalItems: page.TotalItems,
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
	}
}

func ToOutboundMessage(n *entity.Notification) dto.OutboundMessage {
	return dto.OutboundMessage{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Channel:        n.Channel,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Data:           n.Data,
		CreatedAt:      n.CreatedAt,
	}
}
