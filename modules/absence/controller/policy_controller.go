package controller

import (
	"waitlist-service/core/controller"
	"waitlist-service/core/errors"
	"waitlist-service/core/utils"
	"waitlist-service/modules/absence/dto"
	"waitlist-service/modules/absence/service"
	"waitlist-service/modules/absence/validator"

	"github.com/labstack/echo/v4"
)

type PolicyController struct {
	controller.BaseController
	PolicyService service.PolicyServiceInterface
}

func NewPolicyController(policyService service.PolicyServiceInterface) *PolicyController {
	return &PolicyController{
		BaseController: controller.NewBaseController(),
		PolicyService:  policyService,
	}
}

// GetPolicy handles GET /absence-policy
// @Summary Get the cancellation and no-show policy
// @Tags Absence
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.PolicyResponse
// @Router /absence-policy [get]
func (c *PolicyController) GetPolicy(ctx echo.Context) error {
	policy, appErr := c.PolicyService.Get(ctx.Request().Context())
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, policy, "Absence policy retrieved")
}

// UpdatePolicy handles PUT /absence-policy
// @Summary Update the cancellation and no-show policy
// @Tags Absence
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.PolicyRequest true "Policy fields to change"
// @Success 200 {object} dto.PolicyResponse
// @Failure 400 {object} controller.ErrorResponse
// @Router /absence-policy [put]
func (c *PolicyController) UpdatePolicy(ctx echo.Context) error {
	var req dto.PolicyRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if result := validator.ValidatePolicyRequest(&req); result.HasError() {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid input", result.Errors)
	}

	policy, appErr := c.PolicyService.Update(ctx.Request().Context(), &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, policy, "Absence policy updated")
}

// AddException handles POST /absence-policy/exceptions
// @Summary Add a policy exception for a client or resource
// @Tags Absence
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.PolicyExceptionRequest true "Exception"
// @Success 201 {object} dto.PolicyExceptionResponse
// @Failure 400 {object} controller.ErrorResponse
// @Router /absence-policy/exceptions [post]
func (c *PolicyController) AddException(ctx echo.Context) error {
	var req dto.PolicyExceptionRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if result := validator.ValidatePolicyExceptionRequest(&req); result.HasError() {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid input", result.Errors)
	}

	ex, appErr := c.PolicyService.AddException(ctx.Request().Context(), &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, ex, "Policy exception added")
}

// RemoveException handles DELETE /absence-policy/exceptions/:id
// @Summary Remove a policy exception
// @Tags Absence
// @Security BearerAuth
// @Param id path string true "Exception ID"
// @Success 204
// @Failure 404 {object} controller.ErrorResponse
// @Router /absence-policy/exceptions/{id} [delete]
func (c *PolicyController) RemoveException(ctx echo.Context) error {
	id, ok := utils.ParseUUID(ctx.Param("id"))
	if !ok {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid exception id")
	}
	if appErr := c.PolicyService.RemoveException(ctx.Request().Context(), id); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.NoContentResponse(ctx)
}
