package booking

import (
	"time"
	"waitlist-service/core/database"
	"waitlist-service/core/middleware"
	"waitlist-service/modules/booking/controller"
	"waitlist-service/modules/booking/repository"
	"waitlist-service/modules/booking/router"
	"waitlist-service/modules/booking/service"

	"github.com/labstack/echo/v4"
)

// Init registers the booking routes. A nil db selects the in-memory repository.
func Init(e *echo.Group, db database.IDatabase, loc *time.Location, mw *middleware.Middleware) *service.BookingService {
	var repo repository.BookingRepositoryInterface
	if db != nil {
		repo = repository.NewBookingRepository(db)
	} else {
		repo = repository.NewMemoryBookingRepository()
	}
	svc := service.NewBookingService(repo, loc, nil)
	ctrl := controller.NewBookingController(svc)

	router.NewBookingRouter(ctrl).Register(e, mw)

	return svc
}
