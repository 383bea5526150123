package controller

import (
	"waitlist-service/core/controller"
	"waitlist-service/core/errors"
	"waitlist-service/core/utils"
	"waitlist-service/modules/booking/dto"
	"waitlist-service/modules/booking/service"
	"waitlist-service/modules/booking/validator"

	"github.com/labstack/echo/v4"
)

type BookingController struct {
	controller.BaseController
	BookingService service.BookingServiceInterface
}

func NewBookingController(bookingService service.BookingServiceInterface) *BookingController {
	return &BookingController{
		BaseController: controller.NewBaseController(),
		BookingService: bookingService,
	}
}

// CreateBooking handles POST /bookings
// @Summary Book a slot occurrence
// @Tags Booking
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateBookingRequest true "Booking"
// @Success 201 {object} dto.BookingResponse
// @Failure 400 {object} controller.ErrorResponse
// @Failure 409 {object} controller.ErrorResponse
// @Router /bookings [post]
func (c *BookingController) CreateBooking(ctx echo.Context) error {
	var req dto.CreateBookingRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if result := validator.ValidateCreateBookingRequest(&req); result.HasError() {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid input", result.Errors)
	}

	booking, appErr := c.BookingService.Create(ctx.Request().Context(), &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, booking, "Booking created")
}

// GetBooking handles GET /bookings/:id
// @Summary Get a booking
// @Tags Booking
// @Security BearerAuth
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} dto.BookingResponse
// @Failure 404 {object} controller.ErrorResponse
// @Router /bookings/{id} [get]
func (c *BookingController) GetBooking(ctx echo.Context) error {
	id, ok := utils.ParseUUID(ctx.Param("id"))
	if !ok {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid booking id")
	}

	booking, appErr := c.BookingService.Get(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, booking, "Booking retrieved")
}
