package absence

import (
	"waitlist-service/core/config"
	"waitlist-service/core/database"
	"waitlist-service/core/middleware"
	"waitlist-service/modules/absence/controller"
	"waitlist-service/modules/absence/repository"
	"waitlist-service/modules/absence/router"
	"waitlist-service/modules/absence/service"
	bookingService "waitlist-service/modules/booking/service"

	"github.com/labstack/echo/v4"
)

// Init registers the absence and absence policy routes. A nil db selects the
// in-memory repositories.
func Init(
	e *echo.Group,
	db database.IDatabase,
	cfg config.AbsenceConfig,
	bookings bookingService.BookingServiceInterface,
	releaser service.SlotReleaser,
	notifier service.AbsenceNotifier,
	mw *middleware.Middleware,
) *service.AbsenceService {
	var (
		repo     repository.AbsenceRepositoryInterface
		alerts   repository.AlertRepositoryInterface
		policies repository.PolicyRepositoryInterface
	)
	if db != nil {
		repo = repository.NewAbsenceRepository(db)
		alerts = repository.NewAlertRepository(db)
		policies = repository.NewPolicyRepository(db)
	} else {
		repo = repository.NewMemoryAbsenceRepository()
		alerts = repository.NewMemoryAlertRepository()
		policies = repository.NewMemoryPolicyRepository()
	}
	policySvc := service.NewPolicyService(policies, cfg, nil)
	svc := service.NewAbsenceService(repo, alerts, bookings, releaser, notifier, policySvc, nil)

	router.NewAbsenceRouter(controller.NewAbsenceController(svc), controller.NewPolicyController(policySvc)).Register(e, mw)

	return svc
}
