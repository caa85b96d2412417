package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietanh2810/campreg-api/internal/domain"
)

var (
	ErrInvalidParticipantCount = errors.New("participant count must be at least 1")
	ErrInvariantViolation      = errors.New("pricing invariant violated")
)

// Override is a discount an organizer applies by hand.
type Override struct {
	Name  string              `json:"name"`
	Type  domain.DiscountType `json:"type"`
	Value decimal.Decimal     `json:"value"`
}

type Request struct {
	ParticipantCount int
	CouponCode       string
	At               time.Time
	Overrides        []Override
}

type Result struct {
	Subtotal         decimal.Decimal
	Total            decimal.Decimal
	Deposit          *decimal.Decimal
	Final            *decimal.Decimal
	AppliedDiscounts []domain.AppliedDiscount
	// CouponCode is the code as declared on the event, empty when no coupon
	// was applied.
	CouponCode string
}

// ComputeTotal prices a registration. It is pure: the same policy and
// request always give the same result.
//
// Every reduction is computed against the running total left by the previous
// one, in this order: automatic discounts as declared, manual overrides, then
// the coupon.
func ComputeTotal(policy domain.PricingPolicy, req Request) (Result, error) {
	if req.ParticipantCount < 1 {
		return Result{}, ErrInvalidParticipantCount
	}
	if err := ValidatePolicy(policy); err != nil {
		return Result{}, err
	}
	if err := validateOverrides(req.Overrides); err != nil {
		return Result{}, err
	}

	subtotal := policy.BasePrice.Mul(decimal.NewFromInt(int64(req.ParticipantCount)))
	reductions := EvaluateAutomaticDiscounts(policy, RegistrationContext{
		ParticipantCount: req.ParticipantCount,
		At:               req.At,
	})
	for _, o := range req.Overrides {
		reductions = append(reductions, Reduction(o))
	}

	res := Result{Subtotal: subtotal}

	if code := strings.TrimSpace(req.CouponCode); code != "" {
		coupon, err := EvaluateCoupon(code, policy, req.At)
		if err != nil {
			return Result{}, err
		}
		reductions = append(reductions, coupon)
		res.CouponCode = coupon.Name
	}

	running := subtotal
	res.AppliedDiscounts = make([]domain.AppliedDiscount, 0, len(reductions))
	for _, r := range reductions {
		amount := r.Amount(running)
		running = running.Sub(amount)
		res.AppliedDiscounts = append(res.AppliedDiscounts, domain.AppliedDiscount{
			Name:   r.Name,
			Amount: amount,
		})
	}

	res.Total = decimal.Max(decimal.Zero, running)

	if policy.AllowInstallments {
		deposit, final, err := split(res.Total, policy.DepositAmount)
		if err != nil {
			return Result{}, err
		}
		res.Deposit = &deposit
		res.Final = &final
	}

	return res, nil
}

// split divides total into deposit and final balance. Discounts can bring the
// total under the nominal deposit, in which case the deposit is the total.
func split(total, depositAmount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	deposit := decimal.Max(decimal.Zero, decimal.Min(depositAmount, total))
	final := decimal.Max(decimal.Zero, total.Sub(deposit))

	if deposit.GreaterThan(total) || !deposit.Add(final).Equal(total) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("deposit %s and final %s for total %s: %w", deposit, final, total, ErrInvariantViolation)
	}

	return deposit, final, nil
}

// Snapshot converts a result to what a registration stores.
func (r Result) Snapshot(policy domain.PricingPolicy) domain.PriceSnapshot {
	return domain.PriceSnapshot{
		Total:            r.Total,
		Deposit:          r.Deposit,
		Final:            r.Final,
		DepositDueDate:   policy.DepositDueDate,
		FinalDueDate:     policy.FinalDueDate,
		AppliedDiscounts: r.AppliedDiscounts,
	}
}
