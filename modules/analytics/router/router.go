package router

import (
	"waitlist-service/core/middleware"
	"waitlist-service/modules/analytics/controller"

	"github.com/labstack/echo/v4"
)

type AnalyticsRouter struct {
	controller *controller.AnalyticsController
}

func NewAnalyticsRouter(controller *controller.AnalyticsController) *AnalyticsRouter {
	return &AnalyticsRouter{controller: controller}
}

func (r *AnalyticsRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	group := e.Group("/analytics", mw.AuthMiddleware())
	group.GET("/absences", r.controller.GetAbsenceRate)
	group.GET("/popular-slots", r.controller.GetPopularSlots)
	group.GET("/financial-impact", r.controller.GetFinancialImpact)
	group.GET("/resources/:id/summary", r.controller.GetSummary)
	group.POST("/exports", r.controller.CreateExport)
}
