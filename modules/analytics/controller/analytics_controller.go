package controller

import (
	"time"
	"waitlist-service/core/controller"
	"waitlist-service/core/errors"
	"waitlist-service/core/utils"
	coreValidator "waitlist-service/core/validator"
	"waitlist-service/modules/analytics/dto"
	"waitlist-service/modules/analytics/service"

	"github.com/labstack/echo/v4"
)

type AnalyticsController struct {
	controller.BaseController
	AnalyticsService service.AnalyticsServiceInterface
	now              func() time.Time
}

func NewAnalyticsController(analyticsService service.AnalyticsServiceInterface) *AnalyticsController {
	return &AnalyticsController{
		BaseController:   controller.NewBaseController(),
		AnalyticsService: analyticsService,
		now:              time.Now,
	}
}

func (c *AnalyticsController) period(ctx echo.Context) (time.Time, time.Time, error) {
	return utils.ParsePeriod(ctx.QueryParam("period"), ctx.QueryParam("from"), ctx.QueryParam("to"), c.now())
}

// GetAbsenceRate handles GET /analytics/absences
// @Summary Absence rate over a period
// @Tags Analytics
// @Security BearerAuth
// @Produce json
// @Param period query string false "Month, YYYY-MM"
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD"
// @Success 200 {object} dto.AbsenceRateResponse
// @Failure 400 {object} controller.ErrorResponse
// @Router /analytics/absences [get]
func (c *AnalyticsController) GetAbsenceRate(ctx echo.Context) error {
	from, to, err := c.period(ctx)
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, err.Error())
	}
	result, appErr := c.AnalyticsService.AbsenceRate(ctx.Request().Context(), from, to)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Absence rate retrieved")
}

// GetPopularSlots handles GET /analytics/popular-slots
// @Summary Slots ranked by waitlist demand
// @Tags Analytics
// @Security BearerAuth
// @Produce json
// @Param resource_id query string false "Resource ID"
// @Success 200 {array} dto.PopularSlot
// @Router /analytics/popular-slots [get]
func (c *AnalyticsController) GetPopularSlots(ctx echo.Context) error {
	result, appErr := c.AnalyticsService.PopularSlots(ctx.Request().Context(), ctx.QueryParam("resource_id"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Popular slots retrieved")
}

// GetFinancialImpact handles GET /analytics/financial-impact
// @Summary Fines charged over a period
// @Tags Analytics
// @Security BearerAuth
// @Produce json
// @Param period query string false "Month, YYYY-MM"
// @Param from query string false "First day, YYYY-MM-DD"
// @Param to query string false "Last day, YYYY-MM-DD"
// @Success 200 {object} dto.FinancialImpactResponse
// @Router /analytics/financial-impact [get]
func (c *AnalyticsController) GetFinancialImpact(ctx echo.Context) error {
	from, to, err := c.period(ctx)
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, err.Error())
	}
	result, appErr := c.AnalyticsService.FinancialImpact(ctx.Request().Context(), from, to)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Financial impact retrieved")
}

// GetSummary handles GET /analytics/resources/:id/summary
// @Summary Waitlist summary of a resource
// @Tags Analytics
// @Security BearerAuth
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} dto.SummaryResponse
// @Router /analytics/resources/{id}/summary [get]
func (c *AnalyticsController) GetSummary(ctx echo.Context) error {
	result, appErr := c.AnalyticsService.Summary(ctx.Request().Context(), ctx.Param("id"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Summary retrieved")
}

// CreateExport handles POST /analytics/exports
// @Summary Export a period snapshot to object storage
// @Tags Analytics
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ExportRequest true "Export"
// @Success 201 {object} dto.ExportResponse
// @Failure 400 {object} controller.ErrorResponse
// @Router /analytics/exports [post]
func (c *AnalyticsController) CreateExport(ctx echo.Context) error {
	var req dto.ExportRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if result := coreValidator.Struct(&req); result.HasError() {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid input", result.Errors)
	}
	from, to, err := utils.ParsePeriod("", req.From, req.To, c.now())
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, err.Error())
	}

	result, appErr := c.AnalyticsService.Export(ctx.Request().Context(), from, to, req.ResourceID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, result, "Export created")
}
