package analytics

import (
	"waitlist-service/core/cache"
	"waitlist-service/core/middleware"
	"waitlist-service/core/storage"
	"waitlist-service/modules/analytics/controller"
	"waitlist-service/modules/analytics/router"
	"waitlist-service/modules/analytics/service"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	Waitlist service.WaitlistStats
	Bookings service.BookingCounter
	Absences service.AbsenceSource
	Cache    cache.Cache
	Store    storage.ObjectStore // nil disables exports
	Prefix   string
}

func Init(e *echo.Group, mw *middleware.Middleware, deps Deps) *service.AnalyticsService {
	svc := service.NewAnalyticsService(deps.Waitlist, deps.Bookings, deps.Absences, deps.Cache, deps.Store, deps.Prefix, nil)
	ctrl := controller.NewAnalyticsController(svc)

	router.NewAnalyticsRouter(ctrl).Register(e, mw)

	return svc
}
