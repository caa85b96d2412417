package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/campreg-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/campreg-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/service"
)

type RegistrationService interface {
	Register(ctx context.Context, in service.RegisterInput, actor domain.Actor) (domain.Registration, error)
	Get(ctx context.Context, id string) (domain.Registration, error)
	History(ctx context.Context, id string) ([]domain.ChangeHistoryEntry, error)
	List(ctx context.Context, eventID string, filter service.ListFilter) ([]domain.Registration, error)
	RecordPayment(ctx context.Context, id string, in domain.PaymentInput, actor domain.Actor) (domain.Registration, error)
	Cancel(ctx context.Context, id, reason string, actor domain.Actor) (domain.Registration, error)
	Restore(ctx context.Context, id string, actor domain.Actor) (domain.Registration, error)
	Promote(ctx context.Context, id string, actor domain.Actor) (domain.Registration, error)
	Approve(ctx context.Context, id string, actor domain.Actor) (domain.Registration, error)
	UpdateInternalNote(ctx context.Context, id, note string, actor domain.Actor) (domain.Registration, error)
	QueueInternalNote(ctx context.Context, id, note string, actor domain.Actor) error
	SubmitParentNote(ctx context.Context, id, note string) (domain.Registration, error)
}

type RegistrationHandler struct {
	svc RegistrationService
}

func NewRegistrationHandler(svc RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		svc: svc,
	}
}

// HandleRegister godoc
// @Summary      Register a participant
// @Description  Prices the registration, places it on the confirmed list or the waitlist and consumes the coupon.
// @Description  Parents may only register on their own behalf.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        eventID  path      string                   true  "Event ID"
// @Param        input    body      request.RegisterRequest  true  "Registration details"
// @Success      201      {object}  response.Registration
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      422      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/registrations [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleRegister(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID := ctx.Param("eventID")
	if err := request.ValidateID(eventID); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var req request.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if !isOrganizer(ctx) && req.PrimaryParentID != actor.ID {
		response.RenderErr(ctx, response.ErrPermissionDenied(errNotYours))
		return
	}

	reg, err := h.svc.Register(ctx.Request.Context(), service.RegisterInput{
		EventID:           eventID,
		ParticipantID:     req.ParticipantID,
		PrimaryParentID:   req.PrimaryParentID,
		SecondaryParentID: req.SecondaryParentID,
		ParticipantCount:  req.ParticipantCount,
		CouponCode:        req.CouponCode,
		ParentNote:        req.ParentNote,
	}, actor)
	if err != nil {
		renderServiceErr(ctx, "HandleRegister -> h.svc.Register", err)
		return
	}

	if isOrganizer(ctx) {
		ctx.JSON(http.StatusCreated, response.NewRegistration(reg))
		return
	}
	ctx.JSON(http.StatusCreated, response.NewParentRegistration(reg))
}

// HandleListRegistrations godoc
// @Summary      List the registrations of an event
// @Tags         registrations
// @Produce      json
// @Param        eventID         path      string  true   "Event ID"
// @Param        status          query     string  false  "confirmed, waitlist or cancelled"
// @Param        payment_status  query     string  false  "unpaid, partial or paid"
// @Success      200             {array}   response.Registration
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /events/{eventID}/registrations [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleListRegistrations(ctx *gin.Context) {
	eventID := ctx.Param("eventID")
	if err := request.ValidateID(eventID); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var filter service.ListFilter
	if raw := ctx.Query("status"); raw != "" {
		status, _, err := domain.ParseStatus(raw)
		if err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
		filter.Status = &status
	}
	if raw := ctx.Query("payment_status"); raw != "" {
		ps := domain.PaymentStatus(raw)
		if ps != domain.PaymentUnpaid && ps != domain.PaymentPartial && ps != domain.PaymentPaid {
			response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("unknown payment status %q", raw)))
			return
		}
		filter.PaymentStatus = &ps
	}

	regs, err := h.svc.List(ctx.Request.Context(), eventID, filter)
	if err != nil {
		renderServiceErr(ctx, "HandleListRegistrations -> h.svc.List", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewRegistrations(regs))
}

// HandleGetRegistration godoc
// @Summary      Get a registration
// @Description  Organizers see the full record; parents see their own registration without the internal note.
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      string  true  "Registration ID"
// @Success      200             {object}  response.Registration
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /registrations/{registrationID} [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleGetRegistration(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	id := ctx.Param("registrationID")
	if err := request.ValidateID(id); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	reg, err := h.svc.Get(ctx.Request.Context(), id)
	if err != nil {
		renderServiceErr(ctx, "HandleGetRegistration -> h.svc.Get", err)
		return
	}

	if isOrganizer(ctx) {
		ctx.JSON(http.StatusOK, response.NewRegistration(reg))
		return
	}
	if !isParentOf(actor, reg) {
		response.RenderErr(ctx, response.ErrPermissionDenied(errNotYours))
		return
	}
	ctx.JSON(http.StatusOK, response.NewParentRegistration(reg))
}

// HandleGetHistory godoc
// @Summary      Get the change history of a registration
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      string  true  "Registration ID"
// @Success      200             {array}   domain.ChangeHistoryEntry
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /registrations/{registrationID}/history [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleGetHistory(ctx *gin.Context) {
	id := ctx.Param("registrationID")
	if err := request.ValidateID(id); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	history, err := h.svc.History(ctx.Request.Context(), id)
	if err != nil {
		renderServiceErr(ctx, "HandleGetHistory -> h.svc.History", err)
		return
	}

	ctx.JSON(http.StatusOK, history)
}

// HandleRecordPayment godoc
// @Summary      Record a payment
// @Description  Marks the matching unpaid installment as paid or appends a new payment.
// @Description  A repeated idempotency key leaves the ledger unchanged.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      string                        true  "Registration ID"
// @Param        input           body      request.RecordPaymentRequest  true  "Payment"
// @Success      200             {object}  response.Registration
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      409             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /registrations/{registrationID}/payments [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleRecordPayment(ctx *gin.Context) {
	actor, id, ok := h.adminTarget(ctx)
	if !ok {
		return
	}

	var req request.RecordPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	reg, err := h.svc.RecordPayment(ctx.Request.Context(), id, req.ToInput(), actor)
	if err != nil {
		renderServiceErr(ctx, "HandleRecordPayment -> h.svc.RecordPayment", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewRegistration(reg))
}

// HandleCancel godoc
// @Summary      Cancel a registration
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      string                 true  "Registration ID"
// @Param        input           body      request.CancelRequest  false  "Cancellation reason"
// @Success      200             {object}  response.Registration
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      409             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /registrations/{registrationID}/cancel [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleCancel(ctx *gin.Context) {
	actor, id, ok := h.adminTarget(ctx)
	if !ok {
		return
	}

	var req request.CancelRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	reg, err := h.svc.Cancel(ctx.Request.Context(), id, req.Reason, actor)
	if err != nil {
		renderServiceErr(ctx, "HandleCancel -> h.svc.Cancel", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewRegistration(reg))
}

// HandleRestore godoc
// @Summary      Restore a cancelled registration
// @Description  The registration returns to the confirmed list when there is room, to the waitlist otherwise.
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      string  true  "Registration ID"
// @Success      200             {object}  response.Registration
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      409             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /registrations/{registrationID}/restore [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleRestore(ctx *gin.Context) {
	h.transition(ctx, "HandleRestore -> h.svc.Restore", h.svc.Restore)
}

// HandlePromote godoc
// @Summary      Move a registration off the waitlist
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      string  true  "Registration ID"
// @Success      200             {object}  response.Registration
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      409             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /registrations/{registrationID}/promote [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandlePromote(ctx *gin.Context) {
	h.transition(ctx, "HandlePromote -> h.svc.Promote", h.svc.Promote)
}

// HandleApprove godoc
// @Summary      Approve a registration awaiting admin approval
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      string  true  "Registration ID"
// @Success      200             {object}  response.Registration
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      409             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /registrations/{registrationID}/approve [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleApprove(ctx *gin.Context) {
	h.transition(ctx, "HandleApprove -> h.svc.Approve", h.svc.Approve)
}

// HandleUpdateInternalNote godoc
// @Summary      Save the internal note
// @Description  Saves immediately and drops any pending draft.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      string               true  "Registration ID"
// @Param        input           body      request.NoteRequest  true  "Note"
// @Success      200             {object}  response.Registration
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /registrations/{registrationID}/internal-note [put]
// @Security BearerAuth
func (h *RegistrationHandler) HandleUpdateInternalNote(ctx *gin.Context) {
	actor, id, ok := h.adminTarget(ctx)
	if !ok {
		return
	}

	var req request.NoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	reg, err := h.svc.UpdateInternalNote(ctx.Request.Context(), id, req.Note, actor)
	if err != nil {
		renderServiceErr(ctx, "HandleUpdateInternalNote -> h.svc.UpdateInternalNote", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewRegistration(reg))
}

// HandleQueueInternalNote godoc
// @Summary      Autosave a draft of the internal note
// @Description  The last draft is saved once the editor has been quiet for the configured period.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      string               true  "Registration ID"
// @Param        input           body      request.NoteRequest  true  "Note draft"
// @Success      202             {object}  response.Accepted
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      409             {object}  response.Err
// @Failure      503             {object}  response.Err
// @Router       /registrations/{registrationID}/internal-note/draft [put]
// @Security BearerAuth
func (h *RegistrationHandler) HandleQueueInternalNote(ctx *gin.Context) {
	actor, id, ok := h.adminTarget(ctx)
	if !ok {
		return
	}

	var req request.NoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := h.svc.QueueInternalNote(ctx.Request.Context(), id, req.Note, actor); err != nil {
		renderServiceErr(ctx, "HandleQueueInternalNote -> h.svc.QueueInternalNote", err)
		return
	}

	ctx.JSON(http.StatusAccepted, response.Accepted{Status: "queued"})
}

// HandleSubmitParentNote godoc
// @Summary      Add the parent note
// @Description  Parents may add a note once when none was given at intake.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      string                     true  "Registration ID"
// @Param        input           body      request.ParentNoteRequest  true  "Note"
// @Success      200             {object}  response.ParentRegistration
// @Failure      400             {object}  response.Err
// @Failure      401             {object}  response.Err
// @Failure      403             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      409             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /registrations/{registrationID}/parent-note [put]
// @Security BearerAuth
func (h *RegistrationHandler) HandleSubmitParentNote(ctx *gin.Context) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	id := ctx.Param("registrationID")
	if err := request.ValidateID(id); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	var req request.ParentNoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	current, err := h.svc.Get(ctx.Request.Context(), id)
	if err != nil {
		renderServiceErr(ctx, "HandleSubmitParentNote -> h.svc.Get", err)
		return
	}
	if !isParentOf(actor, current) {
		response.RenderErr(ctx, response.ErrPermissionDenied(errNotYours))
		return
	}

	reg, err := h.svc.SubmitParentNote(ctx.Request.Context(), id, req.Note)
	if err != nil {
		renderServiceErr(ctx, "HandleSubmitParentNote -> h.svc.SubmitParentNote", err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewParentRegistration(reg))
}

// adminTarget reads the actor and the registration id of an admin action.
// It renders the error itself and reports false when the request cannot go on.
func (h *RegistrationHandler) adminTarget(ctx *gin.Context) (domain.Actor, string, bool) {
	actor, respErr := getActorFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return domain.Actor{}, "", false
	}

	id := ctx.Param("registrationID")
	if err := request.ValidateID(id); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return domain.Actor{}, "", false
	}

	return actor, id, true
}

func (h *RegistrationHandler) transition(ctx *gin.Context, op string, fn func(context.Context, string, domain.Actor) (domain.Registration, error)) {
	actor, id, ok := h.adminTarget(ctx)
	if !ok {
		return
	}

	reg, err := fn(ctx.Request.Context(), id, actor)
	if err != nil {
		renderServiceErr(ctx, op, err)
		return
	}

	ctx.JSON(http.StatusOK, response.NewRegistration(reg))
}
