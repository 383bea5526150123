package router

import (
	"waitlist-service/core/middleware"
	"waitlist-service/modules/booking/controller"

	"github.com/labstack/echo/v4"
)

type BookingRouter struct {
	controller *controller.BookingController
}

func NewBookingRouter(controller *controller.BookingController) *BookingRouter {
	return &BookingRouter{controller: controller}
}

func (r *BookingRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	group := e.Group("/bookings", mw.AuthMiddleware())
	group.POST("", r.controller.CreateBooking)
	group.GET("/:id", r.controller.GetBooking)
}
