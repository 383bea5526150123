package controller

import (
	stderrors "errors"
	"waitlist-service/core/controller"
	"waitlist-service/core/errors"
	"waitlist-service/core/params"
	"waitlist-service/core/utils"
	"waitlist-service/modules/waitlist/dto"
	"waitlist-service/modules/waitlist/entity"
	"waitlist-service/modules/waitlist/mapper"
	"waitlist-service/modules/waitlist/service"
	"waitlist-service/modules/waitlist/validator"

	"github.com/labstack/echo/v4"
)

type WaitlistController struct {
	controller.BaseController
	WaitlistService      service.WaitlistServiceInterface
	ConfigurationService service.ConfigurationServiceInterface
	Dispatcher           service.DispatcherInterface
	Tracker              *service.OfferTracker
	offerSecret          string
}

func NewWaitlistController(
	waitlistService service.WaitlistServiceInterface,
	configurationService service.ConfigurationServiceInterface,
	dispatcher service.DispatcherInterface,
	tracker *service.OfferTracker,
	offerSecret string,
) *WaitlistController {
	return &WaitlistController{
		BaseController:       controller.NewBaseController(),
		WaitlistService:      waitlistService,
		ConfigurationService: configurationService,
		Dispatcher:           dispatcher,
		Tracker:              tracker,
		offerSecret:          offerSecret,
	}
}

// AddEntry handles POST /waitlist/entries
// @Summary Join a slot waitlist
// @Tags Waitlist
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.AddEntryRequest true "Entry"
// @Success 201 {object} dto.EntryResponse
// @Failure 400 {object} controller.ErrorResponse
// @Failure 403 {object} controller.ErrorResponse
// @Failure 409 {object} controller.ErrorResponse
// @Router /waitlist/entries [post]
func (c *WaitlistController) AddEntry(ctx echo.Context) error {
	var req dto.AddEntryRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if result := validator.ValidateAddEntryRequest(&req); result.HasError() {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid input", result.Errors)
	}

	entry, appErr := c.WaitlistService.AddEntry(ctx.Request().Context(), &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.CreatedResponse(ctx, entry, "Waitlist entry created")
}

// GetEntry handles GET /waitlist/entries/:id
// @Summary Get a waitlist entry
// @Tags Waitlist
// @Security BearerAuth
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} dto.EntryResponse
// @Failure 404 {object} controller.ErrorResponse
// @Router /waitlist/entries/{id} [get]
func (c *WaitlistController) GetEntry(ctx echo.Context) error {
	id, ok := utils.ParseUUID(ctx.Param("id"))
	if !ok {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid entry id")
	}

	entry, appErr := c.WaitlistService.GetEntry(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, entry, "Waitlist entry retrieved")
}

// CancelEntry handles DELETE /waitlist/entries/:id
// @Summary Leave a waitlist
// @Tags Waitlist
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 404 {object} controller.ErrorResponse
// @Router /waitlist/entries/{id} [delete]
func (c *WaitlistController) CancelEntry(ctx echo.Context) error {
	id, ok := utils.ParseUUID(ctx.Param("id"))
	if !ok {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid entry id")
	}

	if _, appErr := c.WaitlistService.CancelEntry(ctx.Request().Context(), id); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.NoContentResponse(ctx)
}

// ConfirmOffer handles POST /waitlist/entries/:id/confirm
// @Summary Accept an outstanding offer
// @Tags Waitlist
// @Security BearerAuth
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} dto.ConfirmResponse
// @Failure 404 {object} controller.ErrorResponse
// @Failure 409 {object} controller.ErrorResponse
// @Router /waitlist/entries/{id}/confirm [post]
func (c *WaitlistController) ConfirmOffer(ctx echo.Context) error {
	id, ok := utils.ParseUUID(ctx.Param("id"))
	if !ok {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid entry id")
	}

	result, appErr := c.Tracker.Confirm(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Offer confirmed")
}

// ConfirmOfferByToken handles POST /public/offers/confirm
// @Summary Accept an offer from its notification link
// @Tags Waitlist
// @Produce json
// @Param token query string true "Offer token"
// @Success 200 {object} dto.ConfirmResponse
// @Failure 401 {object} controller.ErrorResponse
// @Failure 409 {object} controller.ErrorResponse
// @Router /public/offers/confirm [post]
func (c *WaitlistController) ConfirmOfferByToken(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	if token == "" {
		return c.BadRequest(errors.ErrInvalidInput, "Missing token")
	}

	id, err := utils.ParseOfferToken(c.offerSecret, token)
	if err != nil {
		if stderrors.Is(err, utils.ErrTokenExpired) {
			// the offer window and the token share a deadline
			return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrOfferExpired, "this offer has expired", err))
		}
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrUnauthorized, "invalid offer token", err))
	}

	result, appErr := c.Tracker.Confirm(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Offer confirmed")
}

// FreeOccurrence handles POST /resources/:id/slots/:slot/occurrences/:date/free
// @Summary Report a freed slot occurrence
// @Description Offers the occurrence to the best eligible waitlist entry.
// @Tags Waitlist
// @Security BearerAuth
// @Produce json
// @Param id path string true "Resource ID"
// @Param slot path string true "Slot key, e.g. monday-10-00-11-00"
// @Param date path string true "Occurrence date YYYY-MM-DD"
// @Success 200 {object} dto.OfferResponse
// @Failure 400 {object} controller.ErrorResponse
// @Failure 503 {object} controller.ErrorResponse
// @Router /resources/{id}/slots/{slot}/occurrences/{date}/free [post]
func (c *WaitlistController) FreeOccurrence(ctx echo.Context) error {
	resourceID := ctx.Param("id")
	slot, err := entity.ParseSlotKey(resourceID, ctx.Param("slot"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid slot key")
	}
	occurrence, err := entity.ParseOccurrence(ctx.Param("date"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid occurrence date")
	}

	offer, appErr := c.Dispatcher.OnSlotFreed(ctx.Request().Context(), resourceID, occurrence, slot)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	if offer == nil {
		return c.SuccessResponse(ctx, nil, "No offer made")
	}
	return c.SuccessResponse(ctx, mapper.ToOfferResponse(offer), "Offer sent")
}

// ListEntries handles GET /resources/:id/waitlist
// @Summary List a resource's waitlist
// @Tags Waitlist
// @Security BearerAuth
// @Produce json
// @Param id path string true "Resource ID"
// @Param state query string false "Entry state"
// @Param slot query string false "Slot key"
// @Param page_number query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.PaginatedEntryResponse
// @Router /resources/{id}/waitlist [get]
func (c *WaitlistController) ListEntries(ctx echo.Context) error {
	req := &dto.ListEntriesRequest{
		ResourceID: ctx.Param("id"),
		SlotKey:    ctx.QueryParam("slot"),
		State:      ctx.QueryParam("state"),
	}
	if result := validator.ValidateState(req.State); result.HasError() {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid input", result.Errors)
	}

	result, appErr := c.WaitlistService.ListEntries(ctx.Request().Context(), req, params.NewQueryParams(ctx))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Waitlist retrieved")
}

// GetConfiguration handles GET /resources/:id/waitlist/config
// @Summary Get waitlist settings of a resource
// @Tags Waitlist
// @Security BearerAuth
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} dto.ConfigurationResponse
// @Router /resources/{id}/waitlist/config [get]
func (c *WaitlistController) GetConfiguration(ctx echo.Context) error {
	cfg, appErr := c.ConfigurationService.Get(ctx.Request().Context(), ctx.Param("id"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, mapper.ToConfigurationResponse(cfg), "Waitlist configuration retrieved")
}

// UpdateConfiguration handles PUT /resources/:id/waitlist/config
// @Summary Update waitlist settings of a resource
// @Tags Waitlist
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Resource ID"
// @Param request body dto.ConfigurationRequest true "Settings"
// @Success 200 {object} dto.ConfigurationResponse
// @Failure 400 {object} controller.ErrorResponse
// @Router /resources/{id}/waitlist/config [put]
func (c *WaitlistController) UpdateConfiguration(ctx echo.Context) error {
	var req dto.ConfigurationRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if result := validator.ValidateConfigurationRequest(&req); result.HasError() {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid input", result.Errors)
	}

	cfg, appErr := c.ConfigurationService.Update(ctx.Request().Context(), ctx.Param("id"), &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, cfg, "Waitlist configuration updated")
}
