package dto

import (
	"time"

	"github.com/google/uuid"
)

type RecordAbsenceRequest struct {
	BookingID     string  `json:"booking_id" validate:"required,uuid"`
	Kind          string  `json:"kind" validate:"required,oneof=no_show late_cancellation justified_absence"`
	Justification *string `json:"justification" validate:"omitempty,max=500"`
}

type CancelBookingRequest struct {
	// CancelledAt defaults to now.
	CancelledAt *time.Time `json:"cancelled_at"`
}

type PenaltyResponse struct {
	Kind      string   `json:"kind"`
	Amount    *float64 `json:"amount,omitempty"`
	BlockDays *int     `json:"block_days,omitempty"`
}

type AbsenceResponse struct {
	ID            uuid.UUID       `json:"id"`
	BookingID     uuid.UUID       `json:"booking_id"`
	ResourceID    string          `json:"resource_id"`
	SlotKey       string          `json:"slot_key"`
	ClientID      string          `json:"client_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	RecordedAt    time.Time       `json:"recorded_at"`
	Kind          string          `json:"kind"`
	Justification *string         `json:"justification,omitempty"`
	Penalty       PenaltyResponse `json:"penalty"`
	Notified      bool            `json:"notified"`
	NoticeHours   *float64        `json:"notice_hours,omitempty"`
	ExceptionID   *uuid.UUID      `json:"exception_id,omitempty"`
}

type CancelBookingResponse struct {
	BookingID uuid.UUID        `json:"booking_id"`
	Status    string           `json:"status"`
	Late      bool             `json:"late"`
	Absence   *AbsenceResponse `json:"absence,omitempty"`
}

type PenaltySummaryResponse struct {
	ClientID          string     `json:"client_id"`
	NoShows           int        `json:"no_shows"`
	LateCancellations int        `json:"late_cancellations"`
	JustifiedAbsences int        `json:"justified_absences"`
	TotalFines        float64    `json:"total_fines"`
	ActiveBlocks      int        `json:"active_blocks"`
	BlockedUntil      *time.Time `json:"blocked_until,omitempty"`
	Alert             bool       `json:"alert"`
}

type PolicyRequest struct {
	Active                      *bool    `json:"active"`
	NoShowFineEnabled           *bool    `json:"no_show_fine_enabled"`
	NoShowFineAmount            *float64 `json:"no_show_fine_amount" validate:"omitempty,min=0"`
	LateCancellationFineEnabled *bool    `json:"late_cancellation_fine_enabled"`
	LateCancellationFineAmount  *float64 `json:"late_cancellation_fine_amount" validate:"omitempty,min=0"`
	LateCancellationNoticeHours *int     `json:"late_cancellation_notice_hours" validate:"omitempty,min=0,max=720"`
	BlockAfterNoShows           *int     `json:"block_after_no_shows" validate:"omitempty,min=0,max=100"`
	BlockDays                   *int     `json:"block_days" validate:"omitempty,min=0,max=365"`
	AlertAfterNoShows           *int     `json:"alert_after_no_shows" validate:"omitempty,min=0,max=100"`
}

type PolicyExceptionRequest struct {
	Scope        string  `json:"scope" validate:"required,oneof=client resource"`
	Target       string  `json:"target" validate:"required,max=100"`
	NoticeHours  *int    `json:"notice_hours" validate:"omitempty,min=0,max=720"`
	WaivePenalty bool    `json:"waive_penalty"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
}

type PolicyExceptionResponse struct {
	ID           uuid.UUID `json:"id"`
	Scope        string    `json:"scope"`
	Target       string    `json:"target"`
	NoticeHours  *int      `json:"notice_hours,omitempty"`
	WaivePenalty bool      `json:"waive_penalty"`
	Active       bool      `json:"active"`
	Description  *string   `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type PolicyResponse struct {
	Active                      bool                      `json:"active"`
	NoShowFineEnabled           bool                      `json:"no_show_fine_enabled"`
	NoShowFineAmount            float64                   `json:"no_show_fine_amount"`
	LateCancellationFineEnabled bool                      `json:"late_cancellation_fine_enabled"`
	LateCancellationFineAmount  float64                   `json:"late_cancellation_fine_amount"`
	LateCancellationNoticeHours int                       `json:"late_cancellation_notice_hours"`
	BlockAfterNoShows           int                       `json:"block_after_no_shows"`
	BlockDays                   int                       `json:"block_days"`
	AlertAfterNoShows           int                       `json:"alert_after_no_shows"`
	UpdatedAt                   *time.Time                `json:"updated_at,omitempty"`
	Exceptions                  []PolicyExceptionResponse `json:"exceptions"`
}

type NoShowAlertResponse struct {
	ID           uuid.UUID  `json:"id"`
	ClientID     string     `json:"client_id"`
	Level        string     `json:"level"`
	NoShows      int        `json:"no_shows"`
	LastNoShowAt time.Time  `json:"last_no_show_at"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}
