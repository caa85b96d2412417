package v1

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/campreg-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/campreg-api/internal/api/middleware"
	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/pkg/jwthelper"
	"github.com/vietanh2810/campreg-api/internal/pricing"
	"github.com/vietanh2810/campreg-api/internal/service"
)

var (
	errMissingActor       = errors.New("no authenticated user on the request")
	errNotYours           = errors.New("registration belongs to another family")
	errOverridesForbidden = errors.New("only organizers may apply manual discounts")
)

func getActorFromContext(ctx *gin.Context) (domain.Actor, *response.Err) {
	v, ok := ctx.Get(middleware.ActorKey)
	if !ok {
		return domain.Actor{}, response.ErrUnauthorized(errMissingActor)
	}
	actor, ok := v.(domain.Actor)
	if !ok || actor.ID == "" {
		return domain.Actor{}, response.ErrUnauthorized(errMissingActor)
	}
	return actor, nil
}

func isOrganizer(ctx *gin.Context) bool {
	return ctx.GetString(middleware.RoleKey) == jwthelper.RoleOrganizer
}

func isParentOf(actor domain.Actor, reg domain.Registration) bool {
	if reg.PrimaryParentID == actor.ID {
		return true
	}
	return reg.SecondaryParentID != nil && *reg.SecondaryParentID == actor.ID
}

// renderServiceErr maps an engine error to its HTTP response. op names the
// failing call for the log.
func renderServiceErr(ctx *gin.Context, op string, err error) {
	var couponErr *pricing.CouponError

	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.RenderErr(ctx, response.ErrNotFound("event", "id", ctx.Param("eventID")))
	case errors.Is(err, service.ErrRegistrationNotFound):
		response.RenderErr(ctx, response.ErrNotFound("registration", "id", ctx.Param("registrationID")))
	case errors.As(err, &couponErr):
		response.RenderErr(ctx, response.ErrUnprocessable("coupon_"+string(couponErr.Code), couponErr))
	case errors.Is(err, pricing.ErrInvalidPolicy),
		errors.Is(err, pricing.ErrInvalidParticipantCount),
		errors.Is(err, domain.ErrNonPositiveAmount),
		errors.Is(err, domain.ErrAmountPrecision),
		errors.Is(err, domain.ErrInvalidPaymentType):
		response.RenderErr(ctx, response.ErrBadRequest(err))
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRegistrationCancelled),
		errors.Is(err, domain.ErrEventEnded),
		errors.Is(err, domain.ErrNoCapacity),
		errors.Is(err, domain.ErrNotAwaitingApproval),
		errors.Is(err, domain.ErrParentNoteImmutable),
		errors.Is(err, service.ErrRegistrationNumberExists):
		response.RenderErr(ctx, response.ErrConflict(err))
	case errors.Is(err, service.ErrShuttingDown):
		response.RenderErr(ctx, response.ErrServiceUnavailable(err))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err)))
	}
}
