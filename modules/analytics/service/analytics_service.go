package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"sort"
	"time"
	"waitlist-service/core/cache"
	"waitlist-service/core/constants"
	"waitlist-service/core/errors"
	"waitlist-service/core/logger"
	"waitlist-service/core/storage"
	"waitlist-service/core/utils"
	absenceEntity "waitlist-service/modules/absence/entity"
	"waitlist-service/modules/analytics/dto"
	waitlistEntity "waitlist-service/modules/waitlist/entity"
)

const (
	topSlotsLimit = 5
	summaryTTL    = time.Minute
)

type WaitlistStats interface {
	SlotStats(ctx context.Context, resourceID string) ([]waitlistEntity.SlotStat, error)
	CountByState(ctx context.Context, resourceID string) (map[waitlistEntity.EntryState]int, error)
}

type BookingCounter interface {
	CountInPeriod(ctx context.Context, from, to time.Time) (int, error)
}

type AbsenceSource interface {
	ListInPeriod(ctx context.Context, from, to time.Time) ([]absenceEntity.Absence, error)
}

type AnalyticsServiceInterface interface {
	PopularSlots(ctx context.Context, resourceID string) ([]dto.PopularSlot, *errors.AppError)
	AbsenceRate(ctx context.Context, from, to time.Time) (*dto.AbsenceRateResponse, *errors.AppError)
	FinancialImpact(ctx context.Context, from, to time.Time) (*dto.FinancialImpactResponse, *errors.AppError)
	Summary(ctx context.Context, resourceID string) (*dto.SummaryResponse, *errors.AppError)
	Export(ctx context.Context, from, to time.Time, resourceID string) (*dto.ExportResponse, *errors.AppError)
}

// AnalyticsService computes read-only rollups. It never writes to the stores it reads.
type AnalyticsService struct {
	waitlist WaitlistStats
	bookings BookingCounter
	absences AbsenceSource
	cache    cache.Cache
	store    storage.ObjectStore
	prefix   string
	now      func() time.Time
}

func NewAnalyticsService(waitlist WaitlistStats, bookings BookingCounter, absences AbsenceSource, c cache.Cache, store storage.ObjectStore, prefix string, now func() time.Time) *AnalyticsService {
	if now == nil {
		now = time.Now
	}
	return &AnalyticsService{
		waitlist: waitlist,
		bookings: bookings,
		absences: absences,
		cache:    c,
		store:    store,
		prefix:   prefix,
		now:      now,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PopularSlots ranks slots by demand, then fulfillment, then key.
func (s *AnalyticsService) PopularSlots(ctx context.Context, resourceID string) ([]dto.PopularSlot, *errors.AppError) {
	stats, err := s.waitlist.SlotStats(ctx, resourceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get slot stats failed", err)
	}

	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.DemandCount != b.DemandCount {
			return a.DemandCount > b.DemandCount
		}
		if a.FulfillmentCount != b.FulfillmentCount {
			return a.FulfillmentCount > b.FulfillmentCount
		}
		return a.SlotKey < b.SlotKey
	})

	out := make([]dto.PopularSlot, len(stats))
	for i, st := range stats {
		out[i] = dto.PopularSlot{
			SlotKey:          st.SlotKey,
			DemandCount:      st.DemandCount,
			FulfillmentCount: st.FulfillmentCount,
			ActiveCount:      st.ActiveCount,
		}
		if st.DemandCount > 0 {
			out[i].FulfillmentRate = round2(float64(st.FulfillmentCount) / float64(st.DemandCount) * 100)
		}
	}
	return out, nil
}

// AbsenceRate is absences over bookings in [from, to), as a percentage.
func (s *AnalyticsService) AbsenceRate(ctx context.Context, from, to time.Time) (*dto.AbsenceRateResponse, *errors.AppError) {
	if !from.Before(to) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "period start must be before its end", nil)
	}
	bookings, err := s.bookings.CountInPeriod(ctx, from, to)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "count bookings failed", err)
	}
	absences, err := s.absences.ListInPeriod(ctx, from, to)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "list absences failed", err)
	}

	resp := &dto.AbsenceRateResponse{From: from, To: to, Bookings: bookings, Absences: len(absences)}
	if bookings > 0 {
		resp.Rate = round2(float64(len(absences)) / float64(bookings) * 100)
	}
	return resp, nil
}

// FinancialImpact sums the fines of absences in [from, to).
func (s *AnalyticsService) FinancialImpact(ctx context.Context, from, to time.Time) (*dto.FinancialImpactResponse, *errors.AppError) {
	if !from.Before(to) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "period start must be before its end", nil)
	}
	absences, err := s.absences.ListInPeriod(ctx, from, to)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "list absences failed", err)
	}

	resp := &dto.FinancialImpactResponse{From: from, To: to, ByKind: map[string]float64{}}
	for i := range absences {
		fine := absences[i].Fine()
		if fine == 0 {
			continue
		}
		resp.Total += fine
		resp.FinedCount++
		resp.ByKind[string(absences[i].Kind)] += fine
	}
	resp.Total = round2(resp.Total)
	return resp, nil
}

// Summary reports entry counts per state and the most requested slots of a resource.
func (s *AnalyticsService) Summary(ctx context.Context, resourceID string) (*dto.SummaryResponse, *errors.AppError) {
	key := constants.RedisKeyWaitlistSummary + resourceID
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		if err == nil {
			var cached dto.SummaryResponse
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		} else if !stderrors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("AnalyticsService:Summary:CacheError", "resource_id", resourceID, "error", err)
		}
	}

	counts, err := s.waitlist.CountByState(ctx, resourceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "count entries failed", err)
	}
	slots, appErr := s.PopularSlots(ctx, resourceID)
	if appErr != nil {
		return nil, appErr
	}

	resp := &dto.SummaryResponse{ResourceID: resourceID, Counts: map[string]int{}}
	for _, st := range []waitlistEntity.EntryState{
		waitlistEntity.EntryStateActive,
		waitlistEntity.EntryStateNotified,
		waitlistEntity.EntryStateConfirmed,
		waitlistEntity.EntryStateCancelled,
		waitlistEntity.EntryStateExpired,
	} {
		resp.Counts[string(st)] = counts[st]
		resp.Total += counts[st]
	}
	if len(slots) > topSlotsLimit {
		slots = slots[:topSlotsLimit]
	}
	resp.TopSlots = slots

	if s.cache != nil {
		if b, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, key, string(b), summaryTTL); err != nil {
				logger.Warn("AnalyticsService:Summary:CacheSetError", "resource_id", resourceID, "error", err)
			}
		}
	}
	return resp, nil
}

// Export writes a JSON snapshot of the period's figures to object storage.
func (s *AnalyticsService) Export(ctx context.Context, from, to time.Time, resourceID string) (*dto.ExportResponse, *errors.AppError) {
	if s.store == nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "export storage is not configured", nil)
	}

	rate, appErr := s.AbsenceRate(ctx, from, to)
	if appErr != nil {
		return nil, appErr
	}
	impact, appErr := s.FinancialImpact(ctx, from, to)
	if appErr != nil {
		return nil, appErr
	}
	slots, appErr := s.PopularSlots(ctx, resourceID)
	if appErr != nil {
		return nil, appErr
	}

	snapshot := dto.ExportSnapshot{
		GeneratedAt:     s.now().UTC(),
		AbsenceRate:     *rate,
		FinancialImpact: *impact,
		PopularSlots:    slots,
	}
	if resourceID != "" {
		summary, appErr := s.Summary(ctx, resourceID)
		if appErr != nil {
			return nil, appErr
		}
		snapshot.Summary = summary
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "encode export failed", err)
	}
	key := s.prefix + "analytics/" + from.Format("20060102") + "-" + to.Format("20060102") + "-" + utils.GenerateReference("EXP") + ".json"

	location, err := s.store.Put(ctx, key, "application/json", body)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "upload export failed", err)
	}
	logger.Info("AnalyticsService:Export", "key", key, "location", location, "bytes", len(body))
	return &dto.ExportResponse{Location: location, Key: key}, nil
}
