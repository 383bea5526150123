package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
	BookingStatusAbsent    BookingStatus = "absent"
	// BookingStatusVoided undoes a booking that was never handed out, such as a
	// waitlist confirm that lost its race. Voided bookings are not counted.
	BookingStatusVoided BookingStatus = "voided"
)

type BookingSource string

const (
	BookingSourceDirect   BookingSource = "direct"
	BookingSourceWaitlist BookingSource = "waitlist"
)

type Booking struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	Reference       string        `db:"reference" json:"reference"`
	ResourceID      string        `db:"resource_id" json:"resource_id"`
	ClientID        string        `db:"client_id" json:"client_id"`
	SlotKey         string        `db:"slot_key" json:"slot_key"`
	StartsAt        time.Time     `db:"starts_at" json:"starts_at"`
	EndsAt          time.Time     `db:"ends_at" json:"ends_at"`
	Status          BookingStatus `db:"status" json:"status"`
	Source          BookingSource `db:"source" json:"source"`
	WaitlistEntryID *uuid.UUID    `db:"waitlist_entry_id" json:"waitlist_entry_id,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether b holds [start, end) while confirmed.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.Status == BookingStatusConfirmed && b.StartsAt.Before(end) && start.Before(b.EndsAt)
}

// Counted reports whether b contributes to booking totals.
func (b *Booking) Counted() bool {
	return b.Status != BookingStatusVoided
}
