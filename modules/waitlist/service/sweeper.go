package service

import (
	"context"
	"time"
	"waitlist-service/core/logger"
)

// Sweeper periodically expires lapsed offers and stale entries, and retries
// cascades that did not reach the dispatcher.
type Sweeper struct {
	Interval time.Duration

	tracker  *OfferTracker
	waitlist *WaitlistService
}

func NewSweeper(interval time.Duration, tracker *OfferTracker, waitlist *WaitlistService) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{Interval: interval, tracker: tracker, waitlist: waitlist}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	logger.Info("Sweeper:Run", "interval", s.Interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweeper:Stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and reports what it changed.
func (s *Sweeper) Sweep(ctx context.Context) (offers int, entries int) {
	n, err := s.tracker.ExpireDue(ctx)
	if err != nil {
		logger.Error("Sweeper:Sweep:ExpireDueError", "error", err)
	}
	offers = n

	if c, err := s.tracker.RedispatchPending(ctx); err != nil {
		logger.Error("Sweeper:Sweep:RedispatchError", "error", err)
	} else if c > 0 {
		logger.Info("Sweeper:Sweep:Redispatched", "occurrences", c)
	}

	if s.waitlist != nil {
		m, appErr := s.waitlist.ExpireStaleEntries(ctx)
		if appErr != nil {
			logger.Error("Sweeper:Sweep:ExpireStaleError", "error", appErr)
		}
		entries = m
	}
	if offers > 0 || entries > 0 {
		logger.Info("Sweeper:Sweep", "expired_offers", offers, "expired_entries", entries)
	}
	return offers, entries
}

// SweepHandler is the asynq handler for the periodic sweep task.
func SweepHandler(s *Sweeper) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, _ []byte) error {
		s.Sweep(ctx)
		return nil
	}
}
