package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"waitlist-service/core/constants"
	"waitlist-service/core/logger"
	"waitlist-service/core/queue"

	"github.com/google/uuid"
)

// ExpireFunc is what a scheduler calls once an offer deadline passes.
type ExpireFunc func(ctx context.Context, entryID uuid.UUID)

// TimerScheduler keeps offer deadlines as in-process timers. Deadlines are lost on
// restart; the sweeper covers them.
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[uuid.UUID]*time.Timer
	handler ExpireFunc
	now     Clock
	stopped bool
}

func NewTimerScheduler(now Clock) *TimerScheduler {
	if now == nil {
		now = time.Now
	}
	return &TimerScheduler{timers: make(map[uuid.UUID]*time.Timer), now: now}
}

func (s *TimerScheduler) SetHandler(fn ExpireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
}

func (s *TimerScheduler) Schedule(_ context.Context, entryID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("timer scheduler stopped")
	}
	if t, ok := s.timers[entryID]; ok {
		t.Stop()
	}
	s.timers[entryID] = time.AfterFunc(at.Sub(s.now()), func() {
		s.mu.Lock()
		delete(s.timers, entryID)
		fn := s.handler
		s.mu.Unlock()
		if fn != nil {
			fn(context.Background(), entryID)
		}
	})
	return nil
}

func (s *TimerScheduler) Cancel(entryID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[entryID]; ok {
		t.Stop()
		delete(s.timers, entryID)
	}
}

// Pending returns the number of armed timers.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

type offerExpirePayload struct {
	EntryID uuid.UUID `json:"entry_id"`
}

// QueueScheduler turns offer deadlines into delayed asynq tasks, so they survive
// restarts and run on whichever worker picks them up.
type QueueScheduler struct {
	client *queue.Client
}

func NewQueueScheduler(client *queue.Client) *QueueScheduler {
	return &QueueScheduler{client: client}
}

func (s *QueueScheduler) Schedule(ctx context.Context, entryID uuid.UUID, at time.Time) error {
	return s.client.EnqueueAt(ctx, constants.TaskOfferExpire, offerExpirePayload{EntryID: entryID}, at,
		"offer-expire:"+entryID.String(), constants.QueueOffers)
}

// Cancel leaves the task queued; expiring a confirmed or cancelled entry is a no-op.
func (s *QueueScheduler) Cancel(uuid.UUID) {}

// OfferExpireHandler is the asynq handler for TaskOfferExpire.
func OfferExpireHandler(tracker *OfferTracker) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		var p offerExpirePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			logger.Error("OfferExpireHandler:InvalidPayload", "error", err)
			return nil
		}
		expired, appErr := tracker.Expire(ctx, p.EntryID)
		if appErr != nil {
			return appErr
		}
		logger.Debug("OfferExpireHandler", "entry_id", p.EntryID, "expired", expired)
		return nil
	}
}

var (
	_ ExpiryScheduler = (*TimerScheduler)(nil)
	_ ExpiryScheduler = (*QueueScheduler)(nil)
)
