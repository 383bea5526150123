package router

import (
	"waitlist-service/core/middleware"
	"waitlist-service/modules/absence/controller"

	"github.com/labstack/echo/v4"
)

type AbsenceRouter struct {
	controller *controller.AbsenceController
	policy     *controller.PolicyController
}

func NewAbsenceRouter(controller *controller.AbsenceController, policy *controller.PolicyController) *AbsenceRouter {
	return &AbsenceRouter{controller: controller, policy: policy}
}

func (r *AbsenceRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	group := e.Group("/absences", mw.AuthMiddleware())
	group.POST("", r.controller.RecordAbsence)
	group.GET("/late-cancellations", r.controller.GetLateCancellations)
	group.GET("/:id", r.controller.GetAbsence)

	policy := e.Group("/absence-policy", mw.AuthMiddleware())
	policy.GET("", r.policy.GetPolicy)
	policy.PUT("", r.policy.UpdatePolicy)
	policy.POST("/exceptions", r.policy.AddException)
	policy.DELETE("/exceptions/:id", r.policy.RemoveException)

	alerts := e.Group("/absence-alerts", mw.AuthMiddleware())
	alerts.GET("", r.controller.GetAlerts)
	alerts.POST("/:id/resolve", r.controller.ResolveAlert)

	e.GET("/clients/:id/penalties", r.controller.GetPenalties, mw.AuthMiddleware())
	e.POST("/bookings/:id/cancel", r.controller.CancelBooking, mw.AuthMiddleware())
}
