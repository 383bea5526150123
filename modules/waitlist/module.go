package waitlist

import (
	"context"
	"time"
	"waitlist-service/core/cache"
	"waitlist-service/core/config"
	"waitlist-service/core/database"
	"waitlist-service/core/logger"
	"waitlist-service/core/middleware"
	"waitlist-service/core/queue"
	bookingEntity "waitlist-service/modules/booking/entity"
	bookingService "waitlist-service/modules/booking/service"
	"waitlist-service/modules/waitlist/controller"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/policy"
	"waitlist-service/modules/waitlist/repository"
	"waitlist-service/modules/waitlist/router"
	"waitlist-service/modules/waitlist/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	Config   *config.Config
	DB       database.IDatabase // nil selects in-memory repositories
	Cache    cache.Cache
	Bookings bookingService.BookingServiceInterface
	Notifier service.Notifier
	Queue    *queue.Client // nil keeps offer deadlines as in-process timers
}

// Module is the assembled waitlist engine.
type Module struct {
	Policy     *policy.PriorityPolicy
	Repo       repository.WaitlistRepositoryInterface
	Configs    *service.ConfigurationService
	Tracker    *service.OfferTracker
	Dispatcher *service.Dispatcher
	Waitlist   *service.WaitlistService
	Sweeper    *service.Sweeper

	timers *service.TimerScheduler
	cfg    *config.Config
}

func New(deps Deps) *Module {
	cfg := deps.Config
	loc := cfg.Location()
	p := policy.New(cfg.Waitlist.PriorityClasses)

	var (
		repo       repository.WaitlistRepositoryInterface
		configRepo repository.ConfigurationRepositoryInterface
	)
	if deps.DB != nil {
		repo = repository.NewWaitlistRepository(deps.DB, p)
		configRepo = repository.NewConfigurationRepository(deps.DB)
	} else {
		repo = repository.NewMemoryWaitlistRepository(p)
		configRepo = repository.NewMemoryConfigurationRepository()
	}

	c := deps.Cache
	if c == nil {
		c = cache.NewMemoryCache()
	}

	m := &Module{Policy: p, Repo: repo, cfg: cfg}
	gateway := &bookingGateway{bookings: deps.Bookings}

	m.Configs = service.NewConfigurationService(configRepo, c, cfg.Waitlist, nil)
	m.Tracker = service.NewOfferTracker(repo, gateway, deps.Notifier, nil, loc, nil)
	if deps.Queue != nil {
		m.Tracker.SetScheduler(service.NewQueueScheduler(deps.Queue))
	} else {
		m.timers = service.NewTimerScheduler(nil)
		m.timers.SetHandler(func(ctx context.Context, entryID uuid.UUID) {
			if _, appErr := m.Tracker.Expire(ctx, entryID); appErr != nil {
				logger.Error("Waitlist:ExpireTimer:Error", "entry_id", entryID, "error", appErr)
			}
		})
		m.Tracker.SetScheduler(m.timers)
	}
	m.Dispatcher = service.NewDispatcher(repo, m.Configs, m.Tracker, gateway, cache.NewLocker(c), loc, nil)
	m.Waitlist = service.NewWaitlistService(repo, m.Configs, p, m.Tracker, nil)
	m.Sweeper = service.NewSweeper(cfg.Worker.SweepInterval, m.Tracker, m.Waitlist)
	return m
}

// Init builds the module and registers its routes.
func Init(e *echo.Group, mw *middleware.Middleware, deps Deps) *Module {
	m := New(deps)
	m.Register(e, mw)
	return m
}

func (m *Module) Register(e *echo.Group, mw *middleware.Middleware) {
	ctrl := controller.NewWaitlistController(m.Waitlist, m.Configs, m.Dispatcher, m.Tracker, m.cfg.Offer.TokenSecret)
	router.NewWaitlistRouter(ctrl).Register(e, mw)
}

// Close stops in-process timers and drains pending notifications.
func (m *Module) Close() {
	if m.timers != nil {
		m.timers.Stop()
	}
	m.Tracker.Wait()
}

// SlotFreed adapts the dispatcher to callers that only know a booking's slot and start.
func (m *Module) SlotFreed(ctx context.Context, resourceID, slotKey string, startsAt time.Time) error {
	slot, err := entity.ParseSlotKey(resourceID, slotKey)
	if err != nil {
		return err
	}
	local := startsAt.In(m.cfg.Location())
	occurrence := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	if _, appErr := m.Dispatcher.OnSlotFreed(ctx, resourceID, occurrence, slot); appErr != nil {
		return appErr
	}
	return nil
}

// bookingGateway exposes the booking module to the offer tracker.
type bookingGateway struct {
	bookings bookingService.BookingServiceInterface
}

func (g *bookingGateway) CreateBooking(ctx context.Context, req service.BookingRequest) (*service.BookingRef, error) {
	entryID := req.WaitlistEntryID
	b, appErr := g.bookings.CreateFromWaitlist(ctx, &bookingEntity.Booking{
		ResourceID:      req.ResourceID,
		ClientID:        req.ClientID,
		SlotKey:         req.SlotKey,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		WaitlistEntryID: &entryID,
	})
	if appErr != nil {
		return nil, appErr
	}
	return &service.BookingRef{ID: b.ID, Reference: b.Reference}, nil
}

func (g *bookingGateway) CancelBooking(ctx context.Context, bookingID uuid.UUID, reason string) error {
	logger.Info("Waitlist:CancelBooking", "booking_id", bookingID, "reason", reason)
	if _, appErr := g.bookings.SetStatus(ctx, bookingID, bookingEntity.BookingStatusVoided); appErr != nil {
		return appErr
	}
	return nil
}

func (g *bookingGateway) HasConfirmedOverlap(ctx context.Context, clientID string, start, end time.Time) (bool, error) {
	return g.bookings.HasConfirmedOverlap(ctx, clientID, start, end)
}
