package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/vietanh2810/campreg-api/internal/domain"
)

type CouponErrorCode string

const (
	CouponNotFound    CouponErrorCode = "not_found"
	CouponNotYetValid CouponErrorCode = "not_yet_valid"
	CouponExpired     CouponErrorCode = "expired"
	CouponExhausted   CouponErrorCode = "exhausted"
)

// CouponError is a caller-facing validation failure of a discount code.
type CouponError struct {
	Code   CouponErrorCode
	Coupon string
}

func (e *CouponError) Error() string {
	switch e.Code {
	case CouponNotFound:
		return fmt.Sprintf("coupon %q does not exist", e.Coupon)
	case CouponNotYetValid:
		return fmt.Sprintf("coupon %q is not valid yet", e.Coupon)
	case CouponExpired:
		return fmt.Sprintf("coupon %q has expired", e.Coupon)
	case CouponExhausted:
		return fmt.Sprintf("coupon %q has reached its usage limit", e.Coupon)
	}
	return fmt.Sprintf("coupon %q is invalid", e.Coupon)
}

// Is matches coupon errors by code, so errors.Is(err, ErrCouponExpired) works
// whatever the coupon was.
func (e *CouponError) Is(target error) bool {
	if t, ok := target.(*CouponError); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrCouponNotFound    = &CouponError{Code: CouponNotFound}
	ErrCouponNotYetValid = &CouponError{Code: CouponNotYetValid}
	ErrCouponExpired     = &CouponError{Code: CouponExpired}
	ErrCouponExhausted   = &CouponError{Code: CouponExhausted}
)

// At least one letter or digit, 3 to 32 characters of letters, digits, '_' and '-'.
var couponCodePattern = regexp2.MustCompile(`^(?=.*[A-Z0-9])[A-Z0-9_-]{3,32}$`, regexp2.IgnoreCase)

// IsWellFormedCode checks the syntax of a discount code.
func IsWellFormedCode(code string) bool {
	ok, err := couponCodePattern.MatchString(code)
	return err == nil && ok
}

// FindCode returns the index of the code in the policy, ignoring case.
func FindCode(policy domain.PricingPolicy, code string) (int, bool) {
	code = strings.TrimSpace(code)
	for i, c := range policy.DiscountCodes {
		if strings.EqualFold(c.Code, code) {
			return i, true
		}
	}
	return -1, false
}

// EvaluateCoupon decides whether code can be applied at the given time. It
// never touches UsageCount: incrementing it is up to the caller that
// actually applies the coupon to a registration.
func EvaluateCoupon(code string, policy domain.PricingPolicy, at time.Time) (Reduction, error) {
	i, ok := FindCode(policy, code)
	if !ok {
		return Reduction{}, &CouponError{Code: CouponNotFound, Coupon: code}
	}

	c := policy.DiscountCodes[i]
	if c.ValidFrom != nil && at.Before(*c.ValidFrom) {
		return Reduction{}, &CouponError{Code: CouponNotYetValid, Coupon: c.Code}
	}
	if c.ValidUntil != nil && at.After(*c.ValidUntil) {
		return Reduction{}, &CouponError{Code: CouponExpired, Coupon: c.Code}
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return Reduction{}, &CouponError{Code: CouponExhausted, Coupon: c.Code}
	}

	return Reduction{
		Name:  c.Code,
		Type:  c.Type,
		Value: c.Value,
	}, nil
}
