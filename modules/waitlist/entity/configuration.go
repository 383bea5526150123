package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelPush     = "push"
	ChannelInApp    = "in_app"
)

type Configuration struct {
	ResourceID            string    `db:"resource_id" json:"resource_id"`
	Active                bool      `db:"active" json:"active"`
	ResponseWindowMinutes int       `db:"response_window_minutes" json:"response_window_minutes"`
	AutoNotify            bool      `db:"auto_notify" json:"auto_notify"`
	NotificationChannel   string    `db:"notification_channel" json:"notification_channel"`
	MaxEntriesPerClient   int       `db:"max_entries_per_client" json:"max_entries_per_client"`
	EntryValidityDays     int       `db:"entry_validity_days" json:"entry_validity_days"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

func (c *Configuration) ResponseWindow() time.Duration {
	return time.Duration(c.ResponseWindowMinutes) * time.Minute
}

// Offer is a time-boxed proposal of one freed occurrence to one entry.
type Offer struct {
	EntryID    uuid.UUID    `json:"entry_id"`
	ResourceID string       `json:"resource_id"`
	ClientID   string       `json:"client_id"`
	Slot       ResourceSlot `json:"slot"`
	SlotKey    string       `json:"slot_key"`
	Occurrence string       `json:"occurrence"`
	StartsAt   time.Time    `json:"starts_at"`
	EndsAt     time.Time    `json:"ends_at"`
	NotifiedAt time.Time    `json:"notified_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
	Channel    string       `json:"channel"`
}
