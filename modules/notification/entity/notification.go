package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"waitlist-service/core/entity"
)

const (
	TypeWaitlistOffer   = "waitlist_offer"
	TypeAbsenceRecorded = "absence_recorded"

	ChannelInApp = "in_app"
)

type Notification struct {
	RecipientID string `db:"recipient_id" json:"recipient_id"`
	Title       string `db:"title" json:"title"`
	Message     string `db:"message" json:"message"`
	Type        string `db:"type" json:"type"`
	Channel     string `db:"channel" json:"channel"`
	Data        JSONB  `db:"data" json:"data"`
	IsRead      bool   `db:"is_read" json:"is_read"`
	entity.BaseEntity
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *JSONB) Scan(value any) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, a)
}

type PaginatedNotificationEntity = entity.Pagination[Notification]
