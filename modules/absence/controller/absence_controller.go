package controller

import (
	"time"
	"waitlist-service/core/controller"
	"waitlist-service/core/errors"
	"waitlist-service/core/utils"
	"waitlist-service/modules/absence/dto"
	"waitlist-service/modules/absence/entity"
	"waitlist-service/modules/absence/service"
	"waitlist-service/modules/absence/validator"

	"github.com/labstack/echo/v4"
)

type AbsenceController struct {
	controller.BaseController
	AbsenceService service.AbsenceServiceInterface
}

func NewAbsenceController(absenceService service.AbsenceServiceInterface) *AbsenceController {
	return &AbsenceController{
		BaseController: controller.NewBaseController(),
		AbsenceService: absenceService,
	}
}

// RecordAbsence handles POST /absences
// @Summary Record an absence against a booking
// @Tags Absence
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.RecordAbsenceRequest true "Absence"
// @Success 201 {object} dto.AbsenceResponse
// @Failure 400 {object} controller.ErrorResponse
// @Failure 404 {object} controller.ErrorResponse
// @Router /absences [post]
func (c *AbsenceController) RecordAbsence(ctx echo.Context) error {
	var req dto.RecordAbsenceRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if result := validator.ValidateRecordAbsenceRequest(&req); result.HasError() {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid input", result.Errors)
	}
	bookingID, _ := utils.ParseUUID(req.BookingID)

	absence, appErr := c.AbsenceService.Record(ctx.Request().Context(), bookingID, entity.AbsenceKind(req.Kind), req.Justification)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, absence, "Absence recorded")
}

// GetAbsence handles GET /absences/:id
// @Summary Get an absence
// @Tags Absence
// @Security BearerAuth
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} dto.AbsenceResponse
// @Failure 404 {object} controller.ErrorResponse
// @Router /absences/{id} [get]
func (c *AbsenceController) GetAbsence(ctx echo.Context) error {
	id, ok := utils.ParseUUID(ctx.Param("id"))
	if !ok {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid absence id")
	}

	absence, appErr := c.AbsenceService.Get(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, absence, "Absence retrieved")
}

// GetPenalties handles GET /clients/:id/penalties
// @Summary Summarise a client's absences and penalties
// @Tags Absence
// @Security BearerAuth
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} dto.PenaltySummaryResponse
// @Router /clients/{id}/penalties [get]
func (c *AbsenceController) GetPenalties(ctx echo.Context) error {
	summary, appErr := c.AbsenceService.PenaltyFor(ctx.Request().Context(), ctx.Param("id"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, summary, "Penalties retrieved")
}

// CancelBooking handles POST /bookings/:id/cancel
// @Summary Cancel a booking
// @Description Short-notice cancellations are recorded as late cancellations.
// @Tags Booking
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.CancelBookingRequest false "Cancellation"
// @Success 200 {object} dto.CancelBookingResponse
// @Failure 404 {object} controller.ErrorResponse
// @Router /bookings/{id}/cancel [post]
func (c *AbsenceController) CancelBooking(ctx echo.Context) error {
	id, ok := utils.ParseUUID(ctx.Param("id"))
	if !ok {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid booking id")
	}
	var req dto.CancelBookingRequest
	if ctx.Request().ContentLength > 0 {
		if err := ctx.Bind(&req); err != nil {
			return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
		}
	}

	result, appErr := c.AbsenceService.CancelBooking(ctx.Request().Context(), id, req.CancelledAt)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Booking cancelled")
}

// GetLateCancellations handles GET /absences/late-cancellations
// @Summary Late cancellation records of a period, most recent first
// @Tags Absence
// @Security BearerAuth
// @Produce json
// @Param period query string false "Month, YYYY-MM"
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD"
// @Success 200 {array} dto.AbsenceResponse
// @Failure 400 {object} controller.ErrorResponse
// @Router /absences/late-cancellations [get]
func (c *AbsenceController) GetLateCancellations(ctx echo.Context) error {
	from, to, err := utils.ParsePeriod(ctx.QueryParam("period"), ctx.QueryParam("from"), ctx.QueryParam("to"), time.Now())
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, err.Error())
	}
	records, appErr := c.AbsenceService.LateCancellations(ctx.Request().Context(), from, to)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, records, "Late cancellations retrieved")
}

// GetAlerts handles GET /absence-alerts
// @Summary Open no-show alerts
// @Tags Absence
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.NoShowAlertResponse
// @Router /absence-alerts [get]
func (c *AbsenceController) GetAlerts(ctx echo.Context) error {
	alerts, appErr := c.AbsenceService.ActiveAlerts(ctx.Request().Context())
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, alerts, "No-show alerts retrieved")
}

// ResolveAlert handles POST /absence-alerts/:id/resolve
// @Summary Resolve a no-show alert
// @Tags Absence
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 204
// @Failure 404 {object} controller.ErrorResponse
// @Router /absence-alerts/{id}/resolve [post]
func (c *AbsenceController) ResolveAlert(ctx echo.Context) error {
	id, ok := utils.ParseUUID(ctx.Param("id"))
	if !ok {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid alert id")
	}
	if appErr := c.AbsenceService.ResolveAlert(ctx.Request().Context(), id); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.NoContentResponse(ctx)
}
