package entity

import (
	"time"

	"github.com/google/uuid"
)

const DefaultPolicyID = "default"

// Policy is the runtime cancellation and no-show policy. Fields mirror
// config.AbsenceConfig, which seeds it until the first update.
type Policy struct {
	ID                          string    `db:"id" json:"-"`
	Active                      bool      `db:"active" json:"active"`
	NoShowFineEnabled           bool      `db:"no_show_fine_enabled" json:"no_show_fine_enabled"`
	NoShowFineAmount            float64   `db:"no_show_fine_amount" json:"no_show_fine_amount"`
	LateCancellationFineEnabled bool      `db:"late_cancellation_fine_enabled" json:"late_cancellation_fine_enabled"`
	LateCancellationFineAmount  float64   `db:"late_cancellation_fine_amount" json:"late_cancellation_fine_amount"`
	LateCancellationNoticeHours int       `db:"late_cancellation_notice_hours" json:"late_cancellation_notice_hours"`
	BlockAfterNoShows           int       `db:"block_after_no_shows" json:"block_after_no_shows"`
	BlockDays                   int       `db:"block_days" json:"block_days"`
	AlertAfterNoShows           int       `db:"alert_after_no_shows" json:"alert_after_no_shows"`
	UpdatedAt                   time.Time `db:"updated_at" json:"updated_at"`

	Exceptions []PolicyException `db:"-" json:"exceptions"`
}

type ExceptionScope string

const (
	ExceptionScopeClient   ExceptionScope = "client"
	ExceptionScopeResource ExceptionScope = "resource"
)

// PolicyException relaxes the policy for one client or for every booking of one
// resource (the session type).
type PolicyException struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Scope        ExceptionScope `db:"scope" json:"scope"`
	Target       string         `db:"target" json:"target"`
	NoticeHours  *int           `db:"notice_hours" json:"notice_hours,omitempty"`
	WaivePenalty bool           `db:"waive_penalty" json:"waive_penalty"`
	Active       bool           `db:"active" json:"active"`
	Description  *string        `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// ExceptionFor returns the active exception covering a booking. A client
// exception wins over a resource one.
func (p *Policy) ExceptionFor(clientID, resourceID string) *PolicyException {
	var byResource *PolicyException
	for i := range p.Exceptions {
		ex := &p.Exceptions[i]
		if !ex.Active {
			continue
		}
		switch {
		case ex.Scope == ExceptionScopeClient && ex.Target == clientID:
			return ex
		case ex.Scope == ExceptionScopeResource && ex.Target == resourceID && byResource == nil:
			byResource = ex
		}
	}
	return byResource
}

// RequiredNotice is the notice a cancellation needs to avoid being late.
func (p *Policy) RequiredNotice(ex *PolicyException) time.Duration {
	hours := p.LateCancellationNoticeHours
	if ex != nil && ex.NoticeHours != nil {
		hours = *ex.NoticeHours
	}
	return time.Duration(hours) * time.Hour
}
