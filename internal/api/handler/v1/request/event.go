package request

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/pricing"
)

var (
	errEndsBeforeStart = errors.New("ends_at must be after starts_at")
	errMalformedCoupon = errors.New("coupon code must be 3-32 letters, digits, '-' or '_'")
)

// Pricing details are checked by the pricing engine; the request only checks
// what it can without the policy.
type CreateEventRequest struct {
	Name             string               `json:"name"`
	StartsAt         time.Time            `json:"starts_at"`
	EndsAt           time.Time            `json:"ends_at"`
	Capacity         int                  `json:"capacity"`
	RequiresApproval bool                 `json:"requires_approval"`
	Pricing          domain.PricingPolicy `json:"pricing"`
}

func (req CreateEventRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 120)),
		validation.Field(&req.StartsAt, validation.Required),
		validation.Field(&req.EndsAt, validation.Required, validation.By(func(interface{}) error {
			if !req.EndsAt.After(req.StartsAt) {
				return errEndsBeforeStart
			}
			return nil
		})),
		validation.Field(&req.Capacity, validation.Min(0)),
	)
}

type UpdatePricingRequest struct {
	Pricing domain.PricingPolicy `json:"pricing"`
}

type QuoteRequest struct {
	ParticipantCount int                `json:"participant_count"`
	CouponCode       string             `json:"coupon_code"`
	Overrides        []pricing.Override `json:"overrides"`
}

func (req QuoteRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.ParticipantCount, validation.Required, validation.Min(1)),
		validation.Field(&req.CouponCode, validation.By(wellFormedCoupon)),
	)
}

func wellFormedCoupon(value interface{}) error {
	code, _ := value.(string)
	if code == "" || pricing.IsWellFormedCode(code) {
		return nil
	}
	return errMalformedCoupon
}
