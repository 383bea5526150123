package router

import (
	"waitlist-service/core/middleware"
	"waitlist-service/modules/waitlist/controller"

	"github.com/labstack/echo/v4"
)

type WaitlistRouter struct {
	controller *controller.WaitlistController
}

func NewWaitlistRouter(controller *controller.WaitlistController) *WaitlistRouter {
	return &WaitlistRouter{controller: controller}
}

func (r *WaitlistRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	entries := e.Group("/waitlist/entries", mw.AuthMiddleware())
	entries.POST("", r.controller.AddEntry)
	entries.GET("/:id", r.controller.GetEntry)
	entries.DELETE("/:id", r.controller.CancelEntry)
	entries.POST("/:id/confirm", r.controller.ConfirmOffer)

	resources := e.Group("/resources/:id", mw.AuthMiddleware())
	resources.GET("/waitlist", r.controller.ListEntries)
	resources.GET("/waitlist/config", r.controller.GetConfiguration)
	resources.PUT("/waitlist/config", r.controller.UpdateConfiguration)
	resources.POST("/slots/:slot/occurrences/:date/free", r.controller.FreeOccurrence)

	// reached from the notification link, authenticated by the offer token itself
	e.POST("/public/offers/confirm", r.controller.ConfirmOfferByToken)
}
