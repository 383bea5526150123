package entity

import (
	"time"

	"github.com/google/uuid"
)

type EntryState string

const (
	EntryStateActive    EntryState = "active"
	EntryStateNotified  EntryState = "notified"
	EntryStateConfirmed EntryState = "confirmed"
	EntryStateCancelled EntryState = "cancelled"
	EntryStateExpired   EntryState = "expired"
)

// Open states hold the (resource, client, slot) uniqueness claim.
func (s EntryState) Open() bool {
	return s == EntryStateActive || s == EntryStateNotified
}

func (s EntryState) Terminal() bool {
	return s == EntryStateConfirmed || s == EntryStateCancelled || s == EntryStateExpired
}

func (s EntryState) Valid() bool {
	return s.Open() || s.Terminal()
}

const PriorityClassNormal = "normal"

type WaitlistEntry struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	ResourceID        string     `db:"resource_id" json:"resource_id"`
	ClientID          string     `db:"client_id" json:"client_id"`
	SlotKey           string     `db:"slot_key" json:"slot_key"`
	DayOfWeek         int        `db:"day_of_week" json:"day_of_week"`
	StartTime         string     `db:"start_time" json:"start_time"`
	EndTime           string     `db:"end_time" json:"end_time"`
	PriorityClass     string     `db:"priority_class" json:"priority_class"`
	Priority          int        `db:"priority" json:"priority"`
	State             EntryState `db:"state" json:"state"`
	RequestedAt       time.Time  `db:"requested_at" json:"requested_at"`
	NotifiedAt        *time.Time `db:"notified_at" json:"notified_at,omitempty"`
	ExpiresAt         *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	ConfirmedAt       *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt       *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	OfferedOccurrence *string    `db:"offered_occurrence" json:"offered_occurrence,omitempty"`
	AssignedBookingID *uuid.UUID `db:"assigned_booking_id" json:"assigned_booking_id,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`

	// CascadePending marks a closed offer whose occurrence has not yet been
	// handed to the next candidate.
	CascadePending bool `db:"cascade_pending" json:"-"`
}

func (e *WaitlistEntry) Slot() ResourceSlot {
	return ResourceSlot{
		ResourceID: e.ResourceID,
		DayOfWeek:  time.Weekday(e.DayOfWeek),
		StartTime:  e.StartTime,
		EndTime:    e.EndTime,
	}
}

// OfferLapsed reports whether a notified entry's response window has closed at now.
func (e *WaitlistEntry) OfferLapsed(now time.Time) bool {
	return e.State == EntryStateNotified && e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// EntryFilter narrows List. Empty fields match everything.
type EntryFilter struct {
	ResourceID string
	ClientID   string
	SlotKey    string
	States     []EntryState
}

// SlotStat is the per-slot demand rollup used by analytics.
type SlotStat struct {
	SlotKey          string `db:"slot_key" json:"slot_key"`
	DemandCount      int    `db:"demand_count" json:"demand_count"`
	FulfillmentCount int    `db:"fulfillment_count" json:"fulfillment_count"`
	ActiveCount      int    `db:"active_count" json:"active_count"`
}

// Clone returns a copy that shares no pointers with e.
func (e *WaitlistEntry) Clone() WaitlistEntry {
	c := *e
	c.NotifiedAt = cloneTime(e.NotifiedAt)
	c.ExpiresAt = cloneTime(e.ExpiresAt)
	c.ConfirmedAt = cloneTime(e.ConfirmedAt)
	c.CancelledAt = cloneTime(e.CancelledAt)
	if e.OfferedOccurrence != nil {
		v := *e.OfferedOccurrence
		c.OfferedOccurrence = &v
	}
	if e.AssignedBookingID != nil {
		v := *e.AssignedBookingID
		c.AssignedBookingID = &v
	}
	if e.Notes != nil {
		v := *e.Notes
		c.Notes = &v
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
