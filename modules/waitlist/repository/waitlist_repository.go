package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"time"
	"waitlist-service/core/database"
	"waitlist-service/core/logger"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/policy"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const entryColumns = `id, resource_id, client_id, slot_key, day_of_week, start_time, end_time,
	priority_class, priority, state, requested_at, notified_at, expires_at, confirmed_at,
	cancelled_at, offered_occurrence, assigned_booking_id, notes, updated_at, cascade_pending`

const openEntriesIndex = "waitlist_entries_open_uniq"

// WaitlistRepository is the postgres store. Slot level mutations run in a transaction
// holding advisory locks on the slot (and client, for inserts).
type WaitlistRepository struct {
	DB     database.IDatabase
	policy *policy.PriorityPolicy
}

func NewWaitlistRepository(db database.IDatabase, p *policy.PriorityPolicy) *WaitlistRepository {
	return &WaitlistRepository{DB: db, policy: p}
}

func (r *WaitlistRepository) Create(ctx context.Context, entry *entity.WaitlistEntry, maxPerClient int) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.State = entity.EntryStateActive

	err := r.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := database.TryAdvisoryLocks(ctx, tx,
			slotLockKey(entry.ResourceID, entry.SlotKey),
			clientLockKey(entry.ResourceID, entry.ClientID),
		); err != nil {
			return err
		}

		var duplicate bool
		err := tx.GetContext(ctx, &duplicate, `
			SELECT EXISTS (
				SELECT 1 FROM waitlist_entries
				WHERE resource_id = $1 AND client_id = $2 AND slot_key = $3 AND state IN ('active', 'notified')
			)`, entry.ResourceID, entry.ClientID, entry.SlotKey)
		if err != nil {
			return err
		}
		if duplicate {
			return ErrDuplicateEntry
		}

		if maxPerClient > 0 {
			var open int
			err = tx.GetContext(ctx, &open, `
				SELECT COUNT(*) FROM waitlist_entries
				WHERE resource_id = $1 AND client_id = $2 AND state IN ('active', 'notified')`,
				entry.ResourceID, entry.ClientID)
			if err != nil {
				return err
			}
			if open >= maxPerClient {
				return ErrQuotaExceeded
			}
		}

		var active int
		err = tx.GetContext(ctx, &active, `
			SELECT COUNT(*) FROM waitlist_entries
			WHERE resource_id = $1 AND slot_key = $2 AND state = 'active'`,
			entry.ResourceID, entry.SlotKey)
		if err != nil {
			return err
		}
		entry.Priority = active + 1

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO waitlist_entries (`+entryColumns+`)
			VALUES (:id, :resource_id, :client_id, :slot_key, :day_of_week, :start_time, :end_time,
				:priority_class, :priority, :state, :requested_at, :notified_at, :expires_at, :confirmed_at,
				:cancelled_at, :offered_occurrence, :assigned_booking_id, :notes, :updated_at, :cascade_pending)`, entry)
		if err != nil {
			if database.IsUniqueViolation(err, openEntriesIndex) {
				return ErrDuplicateEntry
			}
			return err
		}

		if err := r.renumberTx(ctx, tx, entry.ResourceID, entry.SlotKey, entry.UpdatedAt); err != nil {
			return err
		}
		return tx.GetContext(ctx, &entry.Priority, `SELECT priority FROM waitlist_entries WHERE id = $1`, entry.ID)
	})
	if err != nil && !stderrors.Is(err, ErrDuplicateEntry) && !stderrors.Is(err, ErrQuotaExceeded) {
		logger.Error("WaitlistRepository:Create:Error", "resource_id", entry.ResourceID, "slot_key", entry.SlotKey, "error", err)
	}
	return err
}

func (r *WaitlistRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.WaitlistEntry, error) {
	var entry entity.WaitlistEntry
	err := r.DB.GetContext(ctx, &entry, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("WaitlistRepository:GetByID:Error", "id", id, "error", err)
		return nil, err
	}
	return &entry, nil
}

func (r *WaitlistRepository) List(ctx context.Context, filter entity.EntryFilter) ([]entity.WaitlistEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM waitlist_entries WHERE 1=1`
	args := []any{}

	if filter.ResourceID != "" {
		args = append(args, filter.ResourceID)
		query += fmt.Sprintf(" AND resource_id = $%d", len(args))
	}
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		query += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	if filter.SlotKey != "" {
		args = append(args, filter.SlotKey)
		query += fmt.Sprintf(" AND slot_key = $%d", len(args))
	}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, st := range filter.States {
			states[i] = string(st)
		}
		args = append(args, pq.Array(states))
		query += fmt.Sprintf(" AND state = ANY($%d)", len(args))
	}

	var entries []entity.WaitlistEntry
	if err := r.DB.SelectContext(ctx, &entries, query, args...); err != nil {
		logger.Error("WaitlistRepository:List:Error", "error", err)
		return nil, err
	}
	sortBySlotThenPolicy(r.policy, entries)
	return entries, nil
}

func (r *WaitlistRepository) ListActive(ctx context.Context, resourceID, slotKey string) ([]entity.WaitlistEntry, error) {
	var entries []entity.WaitlistEntry
	err := r.DB.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+` FROM waitlist_entries
		WHERE resource_id = $1 AND slot_key = $2 AND state = 'active'`, resourceID, slotKey)
	if err != nil {
		logger.Error("WaitlistRepository:ListActive:Error", "resource_id", resourceID, "slot_key", slotKey, "error", err)
		return nil, err
	}
	r.policy.Sort(entries)
	return entries, nil
}

func (r *WaitlistRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*entity.WaitlistEntry, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil || current == nil {
		return current, err
	}
	if !current.State.Open() {
		return current, nil
	}

	var prev *entity.WaitlistEntry
	err = r.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := database.TryAdvisoryLocks(ctx, tx, slotLockKey(current.ResourceID, current.SlotKey)); err != nil {
			return err
		}
		var before entity.WaitlistEntry
		err := tx.GetContext(ctx, &before, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		prev = &before
		if !before.State.Open() {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE waitlist_entries
			SET state = 'cancelled', cancelled_at = $2, updated_at = $2, cascade_pending = (state = 'notified')
			WHERE id = $1 AND state IN ('active', 'notified')`, id, at)
		if err != nil {
			return err
		}
		if before.State == entity.EntryStateActive {
			return r.renumberTx(ctx, tx, before.ResourceID, before.SlotKey, at)
		}
		return nil
	})
	if err != nil {
		logger.Error("WaitlistRepository:Cancel:Error", "id", id, "error", err)
		return nil, err
	}
	return prev, nil
}

func (r *WaitlistRepository) MarkNotified(ctx context.Context, id uuid.UUID, occurrence string, notifiedAt, expiresAt time.Time) (bool, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil || current == nil {
		return false, err
	}

	applied := false
	err = r.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := database.TryAdvisoryLocks(ctx, tx, slotLockKey(current.ResourceID, current.SlotKey)); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE waitlist_entries
			SET state = 'notified', notified_at = $2, expires_at = $3, offered_occurrence = $4, updated_at = $2
			WHERE id = $1 AND state = 'active'`, id, notifiedAt, expiresAt, occurrence)
		if err != nil {
			return err
		}
		if applied, err = affectedOne(res); err != nil || !applied {
			return err
		}
		return r.renumberTx(ctx, tx, current.ResourceID, current.SlotKey, notifiedAt)
	})
	if err != nil {
		logger.Error("WaitlistRepository:MarkNotified:Error", "id", id, "error", err)
		return false, err
	}
	return applied, nil
}

func (r *WaitlistRepository) Confirm(ctx context.Context, id uuid.UUID, bookingID uuid.UUID, at time.Time) (bool, error) {
	res, err := r.DB.SQLx().ExecContext(ctx, `
		UPDATE waitlist_entries
		SET state = 'confirmed', confirmed_at = $2, assigned_booking_id = $3, updated_at = $2
		WHERE id = $1 AND state = 'notified' AND expires_at > $2`, id, at, bookingID)
	if err != nil {
		logger.Error("WaitlistRepository:Confirm:Error", "id", id, "error", err)
		return false, err
	}
	return affectedOne(res)
}

func (r *WaitlistRepository) Expire(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.DB.SQLx().ExecContext(ctx, `
		UPDATE waitlist_entries SET state = 'expired', updated_at = $2, cascade_pending = TRUE
		WHERE id = $1 AND state = 'notified' AND expires_at <= $2`, id, at)
	if err != nil {
		logger.Error("WaitlistRepository:Expire:Error", "id", id, "error", err)
		return false, err
	}
	return affectedOne(res)
}

func (r *WaitlistRepository) OutstandingOffer(ctx context.Context, resourceID, slotKey, occurrence string) (*entity.WaitlistEntry, error) {
	var entry entity.WaitlistEntry
	err := r.DB.GetContext(ctx, &entry, `
		SELECT `+entryColumns+` FROM waitlist_entries
		WHERE resource_id = $1 AND slot_key = $2 AND offered_occurrence = $3 AND state = 'notified'
		LIMIT 1`, resourceID, slotKey, occurrence)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("WaitlistRepository:OutstandingOffer:Error", "error", err)
		return nil, err
	}
	return &entry, nil
}

func (r *WaitlistRepository) DueOffers(ctx context.Context, at time.Time, limit int) ([]entity.WaitlistEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []entity.WaitlistEntry
	err := r.DB.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+` FROM waitlist_entries
		WHERE state = 'notified' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`, at, limit)
	if err != nil {
		logger.Error("WaitlistRepository:DueOffers:Error", "error", err)
		return nil, err
	}
	return entries, nil
}

func (r *WaitlistRepository) PendingCascades(ctx context.Context, limit int) ([]entity.WaitlistEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []entity.WaitlistEntry
	err := r.DB.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+` FROM waitlist_entries
		WHERE cascade_pending
		ORDER BY updated_at
		LIMIT $1`, limit)
	if err != nil {
		logger.Error("WaitlistRepository:PendingCascades:Error", "error", err)
		return nil, err
	}
	return entries, nil
}

func (r *WaitlistRepository) ClearCascades(ctx context.Context, resourceID, slotKey, occurrence string, upTo time.Time) error {
	_, err := r.DB.SQLx().ExecContext(ctx, `
		UPDATE waitlist_entries SET cascade_pending = FALSE
		WHERE resource_id = $1 AND slot_key = $2 AND offered_occurrence = $3
			AND cascade_pending AND updated_at <= $4`, resourceID, slotKey, occurrence, upTo)
	if err != nil {
		logger.Error("WaitlistRepository:ClearCascades:Error", "resource_id", resourceID, "slot_key", slotKey, "occurrence", occurrence, "error", err)
	}
	return err
}

func (r *WaitlistRepository) ExpireStale(ctx context.Context, resourceID string, cutoff, at time.Time) (int, error) {
	var slots []string
	err := r.DB.SelectContext(ctx, &slots, `
		SELECT DISTINCT slot_key FROM waitlist_entries
		WHERE resource_id = $1 AND state = 'active' AND requested_at < $2`, resourceID, cutoff)
	if err != nil {
		logger.Error("WaitlistRepository:ExpireStale:Select:Error", "error", err)
		return 0, err
	}

	total := 0
	for _, slotKey := range slots {
		err := r.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := database.TryAdvisoryLocks(ctx, tx, slotLockKey(resourceID, slotKey)); err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, `
				UPDATE waitlist_entries SET state = 'expired', updated_at = $4
				WHERE resource_id = $1 AND slot_key = $2 AND state = 'active' AND requested_at < $3`,
				resourceID, slotKey, cutoff, at)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += int(n)
			return r.renumberTx(ctx, tx, resourceID, slotKey, at)
		})
		if err != nil {
			logger.Error("WaitlistRepository:ExpireStale:Error", "resource_id", resourceID, "slot_key", slotKey, "error", err)
			return total, err
		}
	}
	return total, nil
}

func (r *WaitlistRepository) Renumber(ctx context.Context, resourceID, slotKey string) error {
	return r.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := database.TryAdvisoryLocks(ctx, tx, slotLockKey(resourceID, slotKey)); err != nil {
			return err
		}
		return r.renumberTx(ctx, tx, resourceID, slotKey, time.Now().UTC())
	})
}

func (r *WaitlistRepository) ActiveResources(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.DB.SelectContext(ctx, &ids, `SELECT DISTINCT resource_id FROM waitlist_entries WHERE state = 'active' ORDER BY resource_id`)
	if err != nil {
		logger.Error("WaitlistRepository:ActiveResources:Error", "error", err)
		return nil, err
	}
	return ids, nil
}

func (r *WaitlistRepository) SlotStats(ctx context.Context, resourceID string) ([]entity.SlotStat, error) {
	query := `
		SELECT slot_key,
			COUNT(*) AS demand_count,
			COUNT(*) FILTER (WHERE state = 'confirmed') AS fulfillment_count,
			COUNT(*) FILTER (WHERE state = 'active') AS active_count
		FROM waitlist_entries`
	args := []any{}
	if resourceID != "" {
		query += ` WHERE resource_id = $1`
		args = append(args, resourceID)
	}
	query += ` GROUP BY slot_key ORDER BY slot_key`

	var stats []entity.SlotStat
	if err := r.DB.SelectContext(ctx, &stats, query, args...); err != nil {
		logger.Error("WaitlistRepository:SlotStats:Error", "error", err)
		return nil, err
	}
	return stats, nil
}

func (r *WaitlistRepository) CountByState(ctx context.Context, resourceID string) (map[entity.EntryState]int, error) {
	query := `SELECT state, COUNT(*) AS count FROM waitlist_entries`
	args := []any{}
	if resourceID != "" {
		query += ` WHERE resource_id = $1`
		args = append(args, resourceID)
	}
	query += ` GROUP BY state`

	var rows []struct {
		State entity.EntryState `db:"state"`
		Count int               `db:"count"`
	}
	if err := r.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		logger.Error("WaitlistRepository:CountByState:Error", "error", err)
		return nil, err
	}
	counts := make(map[entity.EntryState]int, len(rows))
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// renumberTx must run while the slot lock is held.
func (r *WaitlistRepository) renumberTx(ctx context.Context, tx *sqlx.Tx, resourceID, slotKey string, at time.Time) error {
	var active []entity.WaitlistEntry
	err := tx.SelectContext(ctx, &active, `
		SELECT `+entryColumns+` FROM waitlist_entries
		WHERE resource_id = $1 AND slot_key = $2 AND state = 'active'
		FOR UPDATE`, resourceID, slotKey)
	if err != nil {
		return err
	}
	for _, i := range r.policy.Renumber(active) {
		_, err := tx.ExecContext(ctx, `UPDATE waitlist_entries SET priority = $2, updated_at = $3 WHERE id = $1`,
			active[i].ID, active[i].Priority, at)
		if err != nil {
			return err
		}
	}
	return nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func sortBySlotThenPolicy(p *policy.PriorityPolicy, entries []entity.WaitlistEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SlotKey != entries[j].SlotKey {
			return entries[i].SlotKey < entries[j].SlotKey
		}
		return p.Less(&entries[i], &entries[j])
	})
}
