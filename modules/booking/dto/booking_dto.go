package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	ResourceID string `json:"resource_id" validate:"required,max=64"`
	ClientID   string `json:"client_id" validate:"required,max=64"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string `json:"start_time" validate:"required,clock"`
	EndTime    string `json:"end_time" validate:"required,clock"`
}

type BookingResponse struct {
	ID              uuid.UUID  `json:"id"`
	Reference       string     `json:"reference"`
	ResourceID      string     `json:"resource_id"`
	ClientID        string     `json:"client_id"`
	SlotKey         string     `json:"slot_key"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          time.Time  `json:"ends_at"`
	Status          string     `json:"status"`
	Source          string     `json:"source"`
	WaitlistEntryID *uuid.UUID `json:"waitlist_entry_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
