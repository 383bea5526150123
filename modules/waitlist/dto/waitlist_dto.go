package dto

import (
	"time"
	coreDto "waitlist-service/core/dto"

	"github.com/google/uuid"
)

type AddEntryRequest struct {
	ResourceID    string  `json:"resource_id" validate:"required,max=64"`
	ClientID      string  `json:"client_id" validate:"required,max=64"`
	DayOfWeek     *int    `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime     string  `json:"start_time" validate:"required,clock"`
	EndTime       string  `json:"end_time" validate:"required,clock"`
	PriorityClass string  `json:"priority_class" validate:"omitempty,max=32"`
	Notes         *string `json:"notes" validate:"omitempty,max=500"`
}

type ListEntriesRequest struct {
	ResourceID string
	SlotKey    string
	State      string
}

type EntryResponse struct {
	ID                uuid.UUID  `json:"id"`
	ResourceID        string     `json:"resource_id"`
	ClientID          string     `json:"client_id"`
	SlotKey           string     `json:"slot_key"`
	DayOfWeek         int        `json:"day_of_week"`
	StartTime         string     `json:"start_time"`
	EndTime           string     `json:"end_time"`
	PriorityClass     string     `json:"priority_class"`
	Priority          int        `json:"priority"`
	State             string     `json:"state"`
	RequestedAt       time.Time  `json:"requested_at"`
	NotifiedAt        *time.Time `json:"notified_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	OfferedOccurrence *string    `json:"offered_occurrence,omitempty"`
	AssignedBookingID *uuid.UUID `json:"assigned_booking_id,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
}

type PaginatedEntryResponse = coreDto.Pagination[EntryResponse]

type ConfigurationRequest struct {
	Active                *bool   `json:"active"`
	ResponseWindowMinutes *int    `json:"response_window_minutes" validate:"omitempty,min=1,max=10080"`
	AutoNotify            *bool   `json:"auto_notify"`
	NotificationChannel   *string `json:"notification_channel" validate:"omitempty,oneof=email sms whatsapp push in_app"`
	MaxEntriesPerClient   *int    `json:"max_entries_per_client" validate:"omitempty,min=1,max=100"`
	EntryValidityDays     *int    `json:"entry_validity_days" validate:"omitempty,min=1,max=365"`
}

type ConfigurationResponse struct {
	ResourceID            string    `json:"resource_id"`
	Active                bool      `json:"active"`
	ResponseWindowMinutes int       `json:"response_window_minutes"`
	AutoNotify            bool      `json:"auto_notify"`
	NotificationChannel   string    `json:"notification_channel"`
	MaxEntriesPerClient   int       `json:"max_entries_per_client"`
	EntryValidityDays     int       `json:"entry_validity_days"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type ConfirmResponse struct {
	EntryID          uuid.UUID `json:"entry_id"`
	BookingID        uuid.UUID `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
}

type OfferResponse struct {
	EntryID    uuid.UUID `json:"entry_id"`
	ClientID   string    `json:"client_id"`
	SlotKey    string    `json:"slot_key"`
	Occurrence string    `json:"occurrence"`
	NotifiedAt time.Time `json:"notified_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Channel    string    `json:"channel"`
}
