package dto

import (
	"time"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel"`
	Data      map[string]any `json:"data"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

type NotificationListResponse struct {
	Items      []NotificationResponse `json:"items"`
	TotalItems int                    `json:"total_items"`
	PageNumber int                    `json:"page_number"`
	PageSize   int                    `json:"page_size"`
}

type MarkAsReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

type CreateNotificationRequest struct {
	RecipientID string
	Title       string
	Message     string
	Type        string
	Channel     string
	Data        map[string]any
}

// OutboundMessage is what external delivery workers consume from the broker.
type OutboundMessage struct {
	NotificationID uuid.UUID      `json:"notification_id"`
	RecipientID    string         `json:"recipient_id"`
	Channel        string         `json:"channel"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Data           map[string]any `json:"data,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
