package controller

import (
	"waitlist-service/core/controller"
	"waitlist-service/core/errors"
	"waitlist-service/core/middleware"
	"waitlist-service/core/params"
	coreValidator "waitlist-service/core/validator"
	"waitlist-service/modules/notification/dto"
	"waitlist-service/modules/notification/service"

	"github.com/labstack/echo/v4"
)

type NotificationController struct {
	service service.NotificationServiceInterface
	controller.BaseController
}

func NewNotificationController(service service.NotificationServiceInterface) *NotificationController {
	return &NotificationController{
		service:        service,
		BaseController: controller.NewBaseController(),
	}
}

// recipientFromPath returns :id when the caller may read that inbox.
// Without verified token data (auth disabled) every inbox is readable.
func (c *NotificationController) recipientFromPath(ctx echo.Context) (string, error) {
	recipientID := ctx.Param("id")
	if recipientID == "" {
		return "", c.BadRequest(errors.ErrInvalidInput, "client id is required")
	}
	if token, ok := middleware.TokenData(ctx); ok && token.Subject != recipientID && token.Role != "admin" {
		return "", c.Forbidden(errors.ErrForbidden, "not allowed to access this inbox")
	}
	return recipientID, nil
}

// GetNotifications handles GET /clients/:id/notifications
// @Summary List a client's notifications
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param id path string true "Client ID"
// @Param page_number query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.NotificationListResponse
// @Failure 403 {object} controller.ErrorResponse
// @Router /clients/{id}/notifications [get]
func (c *NotificationController) GetNotifications(ctx echo.Context) error {
	recipientID, err := c.recipientFromPath(ctx)
	if err != nil {
		return err
	}

	queryParams := params.NewQueryParams(ctx)
	result, appErr := c.service.GetForRecipient(ctx.Request().Context(), recipientID, *queryParams)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Notifications retrieved successfully")
}

// MarkAsRead handles PUT /clients/:id/notifications/mark-read
// @Summary Mark notifications as read
// @Tags Notification
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param request body dto.MarkAsReadRequest true "Notification IDs"
// @Success 200 {object} map[string]int
// @Failure 400 {object} controller.ErrorResponse
// @Router /clients/{id}/notifications/mark-read [put]
func (c *NotificationController) MarkAsRead(ctx echo.Context) error {
	recipientID, err := c.recipientFromPath(ctx)
	if err != nil {
		return err
	}

	req := new(dto.MarkAsReadRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if result := coreValidator.Struct(req); result.HasError() {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid input", result.Errors)
	}

	updated, appErr := c.service.MarkAsRead(ctx.Request().Context(), recipientID, req.IDs)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, map[string]int{"updated": updated}, "Marked as read successfully")
}

// MarkAllAsRead handles PUT /clients/:id/notifications/mark-all-read
// @Summary Mark every notification as read
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} map[string]int
// @Router /clients/{id}/notifications/mark-all-read [put]
func (c *NotificationController) MarkAllAsRead(ctx echo.Context) error {
	recipientID, err := c.recipientFromPath(ctx)
	if err != nil {
		return err
	}

	updated, appErr := c.service.MarkAllAsRead(ctx.Request().Context(), recipientID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, map[string]int{"updated": updated}, "Marked all as read successfully")
}

// CountUnread handles GET /clients/:id/notifications/unread-count
// @Summary Count unread notifications
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} map[string]int
// @Router /clients/{id}/notifications/unread-count [get]
func (c *NotificationController) CountUnread(ctx echo.Context) error {
	recipientID, err := c.recipientFromPath(ctx)
	if err != nil {
		return err
	}

	count, appErr := c.service.CountUnread(ctx.Request().Context(), recipientID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, map[string]int{"count": count}, "Unread count retrieved")
}
