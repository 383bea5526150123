package notification

import (
	"waitlist-service/core/broker"
	"waitlist-service/core/database"
	"waitlist-service/core/middleware"
	"waitlist-service/modules/notification/controller"
	"waitlist-service/modules/notification/repository"
	"waitlist-service/modules/notification/router"
	"waitlist-service/modules/notification/service"

	"github.com/labstack/echo/v4"
)

// Init registers the inbox routes. A nil db selects the in-memory repository and a
// nil publisher limits delivery to the in-app channel.
func Init(e *echo.Group, db database.IDatabase, publisher broker.Publisher, opts service.Options, mw *middleware.Middleware) *service.NotificationService {
	var repo repository.NotificationRepositoryInterface
	if db != nil {
		repo = repository.NewNotificationRepository(db)
	} else {
		repo = repository.NewMemoryNotificationRepository()
	}
	svc := service.NewNotificationService(repo, publisher, opts, nil)
	ctrl := controller.NewNotificationController(svc)

	router.NewNotificationRouter(ctrl).Register(e, mw)

	return svc
}
