package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/campreg-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/campreg-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/pricing"
	"github.com/vietanh2810/campreg-api/internal/service"
)

type EventService interface {
	CreateEvent(ctx context.Context, in service.CreateEventInput) (domain.Event, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	UpdatePricing(ctx context.Context, id string, policy domain.PricingPolicy) (domain.Event, error)
	Quote(ctx context.Context, id string, in service.QuoteInput) (pricing.Result, error)
}

type EventHandler struct {
	svc EventService
}

func NewEventHandler(svc EventService) *EventHandler {
	return &EventHandler{
		svc: svc,
	}
}

// HandleCreateEvent godoc
// @Summary      Create an event
// @Description  Creates a camp with its capacity and pricing policy. Organizers only.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        input  body      request.CreateEventRequest  true  "Event details"
// @Success      201    {object}  domain.Event
// @Failure      400    {object}  response.Err
// @Failure      401    {object}  response.Err
// @Failure      403    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /events [post]
// @Security BearerAuth
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	var req request.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.CreateEvent(ctx.Request.Context(), service.CreateEventInput{
		Name:             req.Name,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
		Capacity:         req.Capacity,
		RequiresApproval: req.RequiresApproval,
		Pricing:          req.Pricing,
	})
	if err != nil {
		renderServiceErr(ctx, "HandleCreateEvent -> h.svc.CreateEvent", err)
		return
	}

	ctx.JSON(http.StatusCreated, event)
}

// HandleGetEvent godoc
// @Summary      Get an event
// @Tags         events
// @Produce      json
// @Param        eventID  path      string  true  "Event ID"
// @Success      200      {object}  domain.Event
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID} [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	eventID := ctx.Param("eventID")
	if err := request.ValidateID(eventID); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.GetEvent(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "HandleGetEvent -> h.svc.GetEvent", err)
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleUpdatePricing godoc
// @Summary      Replace the pricing policy of an event
// @Description  Usage counts of kept discount codes are preserved. Organizers only.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        eventID  path      string                        true  "Event ID"
// @Param        input    body      request.UpdatePricingRequest  true  "Pricing policy"
// @Success      200      {object}  domain.Event
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/pricing [put]
// @Security BearerAuth
func (h *EventHandler) HandleUpdatePricing(ctx *gin.Context) {
	eventID := ctx.Param("eventID")
	if err := request.ValidateID(eventID); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var req request.UpdatePricingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.UpdatePricing(ctx.Request.Context(), eventID, req.Pricing)
	if err != nil {
		renderServiceErr(ctx, "HandleUpdatePricing -> h.svc.UpdatePricing", err)
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleQuote godoc
// @Summary      Preview the price of a registration
// @Description  Computes the total the intake would record right now, without consuming the coupon.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        eventID  path      string                true  "Event ID"
// @Param        input    body      request.QuoteRequest  true  "Quote request"
// @Success      200      {object}  response.Quote
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      422      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/quote [post]
// @Security BearerAuth
func (h *EventHandler) HandleQuote(ctx *gin.Context) {
	eventID := ctx.Param("eventID")
	if err := request.ValidateID(eventID); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var req request.QuoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	// Manual overrides are an organizer tool.
	if len(req.Overrides) > 0 && !isOrganizer(ctx) {
		response.RenderErr(ctx, response.ErrPermissionDenied(errOverridesForbidden))
		return
	}

	quote, err := h.svc.Quote(ctx.Request.Context(), eventID, service.QuoteInput{
		ParticipantCount: req.ParticipantCount,
		CouponCode:       req.CouponCode,
		Overrides:        req.Overrides,
	})
	if err != nil {
		renderServiceErr(ctx, "HandleQuote -> h.svc.Quote", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewQuote(quote))
}
