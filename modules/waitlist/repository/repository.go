package repository

import (
	"context"
	stderrors "errors"
	"time"
	"waitlist-service/modules/waitlist/entity"

	"github.com/google/uuid"
)

var (
	ErrDuplicateEntry = stderrors.New("open entry already exists for client and slot")
	ErrQuotaExceeded  = stderrors.New("client reached the open entry quota for resource")
)

// WaitlistRepositoryInterface stores waitlist entries. Every mutation that moves an
// entry out of the active state renumbers the remaining active entries of its slot
// under the slot lock, so active priorities stay 1..N.
type WaitlistRepositoryInterface interface {
	// Create inserts an active entry, setting its priority. Returns ErrDuplicateEntry
	// or ErrQuotaExceeded. maxPerClient <= 0 disables the quota.
	Create(ctx context.Context, entry *entity.WaitlistEntry, maxPerClient int) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.WaitlistEntry, error)
	List(ctx context.Context, filter entity.EntryFilter) ([]entity.WaitlistEntry, error)
	// ListActive returns the slot's active entries in policy order.
	ListActive(ctx context.Context, resourceID, slotKey string) ([]entity.WaitlistEntry, error)
	// Cancel moves an open entry to cancelled and returns the entry as it was before.
	// Terminal entries are returned untouched. Returns nil when the id is unknown.
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*entity.WaitlistEntry, error)
	// MarkNotified is a compare-and-set from active to notified.
	MarkNotified(ctx context.Context, id uuid.UUID, occurrence string, notifiedAt, expiresAt time.Time) (bool, error)
	// Confirm is a compare-and-set from notified to confirmed, valid only while at < expires_at.
	Confirm(ctx context.Context, id uuid.UUID, bookingID uuid.UUID, at time.Time) (bool, error)
	// Expire is a compare-and-set from notified to expired, valid only once at >= expires_at.
	Expire(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// OutstandingOffer returns the notified entry holding the occurrence, if any.
	OutstandingOffer(ctx context.Context, resourceID, slotKey, occurrence string) (*entity.WaitlistEntry, error)
	DueOffers(ctx context.Context, at time.Time, limit int) ([]entity.WaitlistEntry, error)
	// PendingCascades lists closed offers whose occurrence still awaits the next candidate.
	PendingCascades(ctx context.Context, limit int) ([]entity.WaitlistEntry, error)
	// ClearCascades settles the pending marks of an occurrence set at or before upTo.
	ClearCascades(ctx context.Context, resourceID, slotKey, occurrence string, upTo time.Time) error
	// ExpireStale expires active entries of a resource requested before cutoff.
	ExpireStale(ctx context.Context, resourceID string, cutoff, at time.Time) (int, error)
	Renumber(ctx context.Context, resourceID, slotKey string) error
	ActiveResources(ctx context.Context) ([]string, error)
	SlotStats(ctx context.Context, resourceID string) ([]entity.SlotStat, error)
	CountByState(ctx context.Context, resourceID string) (map[entity.EntryState]int, error)
}

// ConfigurationRepositoryInterface stores per-resource waitlist settings.
type ConfigurationRepositoryInterface interface {
	Get(ctx context.Context, resourceID string) (*entity.Configuration, error)
	Upsert(ctx context.Context, cfg *entity.Configuration) error
}

func slotLockKey(resourceID, slotKey string) string {
	return "waitlist:slot:" + resourceID + ":" + slotKey
}

func clientLockKey(resourceID, clientID string) string {
	return "waitlist:client:" + resourceID + ":" + clientID
}

var (
	_ WaitlistRepositoryInterface      = (*WaitlistRepository)(nil)
	_ WaitlistRepositoryInterface      = (*MemoryWaitlistRepository)(nil)
	_ ConfigurationRepositoryInterface = (*ConfigurationRepository)(nil)
	_ ConfigurationRepositoryInterface = (*MemoryConfigurationRepository)(nil)
)
