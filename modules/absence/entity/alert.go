package entity

import (
	"time"

	"github.com/google/uuid"
)

type AlertLevel string

const (
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
)

// NoShowAlert flags a client whose no-shows reached the alert threshold. A
// client has at most one active alert; later no-shows refresh it.
type NoShowAlert struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ClientID     string     `db:"client_id" json:"client_id"`
	Level        AlertLevel `db:"level" json:"level"`
	NoShows      int        `db:"no_shows" json:"no_shows"`
	LastNoShowAt time.Time  `db:"last_no_show_at" json:"last_no_show_at"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt   *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
