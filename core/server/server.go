package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
	"waitlist-service/core/broker"
	"waitlist-service/core/cache"
	"waitlist-service/core/config"
	"waitlist-service/core/controller"
	"waitlist-service/core/database"
	"waitlist-service/core/logger"
	"waitlist-service/core/middleware"
	"waitlist-service/core/queue"
	"waitlist-service/core/storage"
	"waitlist-service/modules/absence"
	absenceService "waitlist-service/modules/absence/service"
	"waitlist-service/modules/analytics"
	analyticsService "waitlist-service/modules/analytics/service"
	"waitlist-service/modules/booking"
	bookingService "waitlist-service/modules/booking/service"
	"waitlist-service/modules/notification"
	notificationService "waitlist-service/modules/notification/service"
	"waitlist-service/modules/waitlist"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// App holds the process-wide infrastructure and the assembled modules.
type App struct {
	Config *config.Config
	Echo   *echo.Echo

	DB        *database.Database // nil with the memory storage driver
	Cache     cache.Cache
	Queue     *queue.Client
	Publisher broker.Publisher
	Store     storage.ObjectStore

	Bookings      *bookingService.BookingService
	Notifications *notificationService.NotificationService
	Waitlist      *waitlist.Module
	Absences      *absenceService.AbsenceService
	Analytics     *analyticsService.AnalyticsService

	redis *cache.RedisCache
}

// NewApp connects the configured backends and wires every module onto a fresh echo instance.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	if err := a.initInfra(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.initModules()
	return a, nil
}

func (a *App) initInfra(ctx context.Context) error {
	cfg := a.Config

	if cfg.Storage.Driver == "postgres" {
		db, err := database.InitDB(database.DatabaseConfig{
			Host:           cfg.Database.Host,
			Port:           cfg.Database.Port,
			User:           cfg.Database.User,
			Password:       cfg.Database.Password,
			DBName:         cfg.Database.Name,
			SSLMode:        cfg.Database.SSLMode,
			ConnectTimeout: 5,
		})
		if err != nil {
			return err
		}
		a.DB = db
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
	}

	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		a.redis = rc
		a.Cache = rc
		a.Queue = queue.NewClient(a.redisQueueConfig())
	} else {
		logger.Warn("Server:initInfra", "detail", "redis not configured, using in-process cache and timers")
		a.Cache = cache.NewMemoryCache()
	}

	if cfg.Broker.URL != "" {
		pub, err := broker.NewRabbitPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			return err
		}
		a.Publisher = pub
	}

	if cfg.Export.Bucket != "" {
		a.Store = storage.NewS3Store(storage.S3Config{
			Bucket:          cfg.Export.Bucket,
			Region:          cfg.Export.Region,
			Endpoint:        cfg.Export.Endpoint,
			AccessKeyID:     cfg.Export.AccessKeyID,
			SecretAccessKey: cfg.Export.SecretAccessKey,
		})
	}
	return nil
}

func (a *App) redisQueueConfig() queue.RedisConfig {
	return queue.RedisConfig{Addr: a.Config.Redis.Addr, Password: a.Config.Redis.Password, DB: a.Config.Redis.DB}
}

// database returns an untyped nil when no database is connected so module
// constructors can select their in-memory repositories.
func (a *App) database() database.IDatabase {
	if a.DB == nil {
		return nil
	}
	return a.DB
}

func (a *App) initModules() {
	cfg := a.Config
	db := a.database()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	mw := middleware.NewMiddleware(cfg.Auth.JWTSecret)
	e.Use(echoMiddleware.Recover())
	e.Use(mw.RequestLogger())

	base := controller.NewBaseController()
	e.GET("/health", func(c echo.Context) error {
		return base.SuccessResponse(c, map[string]string{"status": "ok"}, "healthy")
	})

	api := e.Group("/api/v1")

	a.Bookings = booking.Init(api, db, cfg.Location(), mw)
	a.Notifications = notification.Init(api, db, a.Publisher, notificationService.Options{
		OfferSecret:   cfg.Offer.TokenSecret,
		PublicBaseURL: cfg.Offer.PublicBaseURL,
	}, mw)
	a.Waitlist = waitlist.Init(api, mw, waitlist.Deps{
		Config:   cfg,
		DB:       db,
		Cache:    a.Cache,
		Bookings: a.Bookings,
		Notifier: a.Notifications,
		Queue:    a.Queue,
	})
	a.Absences = absence.Init(api, db, cfg.Absence, a.Bookings, a.Waitlist, a.Notifications, mw)
	a.Analytics = analytics.Init(api, mw, analytics.Deps{
		Waitlist: a.Waitlist.Repo,
		Bookings: a.Bookings,
		Absences: a.Absences,
		Cache:    a.Cache,
		Store:    a.Store,
		Prefix:   cfg.Export.Prefix,
	})

	a.Echo = e
}

// Serve runs the HTTP server until ctx ends. Without a task queue the sweeper runs in-process.
func (a *App) Serve(ctx context.Context) error {
	if a.Queue == nil && a.Waitlist.Sweeper.Interval > 0 {
		go a.Waitlist.Sweeper.Run(ctx)
	}

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server:Serve", "addr", addr, "storage", a.Config.Storage.Driver)
		if err := a.Echo.Start(addr); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server:Serve:ShutdownError", "error", err)
		return err
	}
	logger.Info("Server:Serve", "detail", "stopped")
	return nil
}

// Close releases every backend. It is safe on a partially built App.
func (a *App) Close() {
	if a.Waitlist != nil {
		a.Waitlist.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			logger.Error("Server:Close:BrokerError", "error", err)
		}
	}
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			logger.Error("Server:Close:QueueError", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Error("Server:Close:RedisError", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.Error("Server:Close:DatabaseError", "error", err)
		}
	}
}
