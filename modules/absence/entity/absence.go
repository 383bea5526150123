package entity

import (
	"time"

	"github.com/google/uuid"
)

type AbsenceKind string

const (
	AbsenceKindNoShow           AbsenceKind = "no_show"
	AbsenceKindLateCancellation AbsenceKind = "late_cancellation"
	AbsenceKindJustified        AbsenceKind = "justified_absence"
)

func (k AbsenceKind) Valid() bool {
	return k == AbsenceKindNoShow || k == AbsenceKindLateCancellation || k == AbsenceKindJustified
}

type PenaltyKind string

const (
	PenaltyNone           PenaltyKind = "none"
	PenaltyFine           PenaltyKind = "fine"
	PenaltyTemporaryBlock PenaltyKind = "temporary_block"
)

type Absence struct {
	ID               uuid.UUID   `db:"id" json:"id"`
	BookingID        uuid.UUID   `db:"booking_id" json:"booking_id"`
	ResourceID       string      `db:"resource_id" json:"resource_id"`
	SlotKey          string      `db:"slot_key" json:"slot_key"`
	ClientID         string      `db:"client_id" json:"client_id"`
	OccurredAt       time.Time   `db:"occurred_at" json:"occurred_at"`
	RecordedAt       time.Time   `db:"recorded_at" json:"recorded_at"`
	Kind             AbsenceKind `db:"kind" json:"kind"`
	Justification    *string     `db:"justification" json:"justification,omitempty"`
	PenaltyKind      PenaltyKind `db:"penalty_kind" json:"penalty_kind"`
	PenaltyAmount    *float64    `db:"penalty_amount" json:"penalty_amount,omitempty"`
	PenaltyBlockDays *int        `db:"penalty_block_days" json:"penalty_block_days,omitempty"`
	Notified         bool        `db:"notified" json:"notified"`

	// set on late cancellations
	NoticeHours *float64   `db:"notice_hours" json:"notice_hours,omitempty"`
	ExceptionID *uuid.UUID `db:"exception_id" json:"exception_id,omitempty"`
}

// Fine returns the money part of the penalty, zero when there is none.
func (a *Absence) Fine() float64 {
	if a.PenaltyAmount == nil {
		return 0
	}
	return *a.PenaltyAmount
}

// BlockedUntil returns the end of a temporary block, or nil.
func (a *Absence) BlockedUntil() *time.Time {
	if a.PenaltyKind != PenaltyTemporaryBlock || a.PenaltyBlockDays == nil {
		return nil
	}
	t := a.RecordedAt.AddDate(0, 0, *a.PenaltyBlockDays)
	return &t
}
