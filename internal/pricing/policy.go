package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"

	"github.com/vietanh2810/campreg-api/internal/domain"
)

var (
	ErrInvalidPolicy = errors.New("invalid pricing policy")

	errNegativeAmount   = errors.New("must not be negative")
	errPercentageRange  = errors.New("percentage must be between 1 and 100")
	errFixedRange       = errors.New("fixed value must be positive and lower than the base price")
	errUnknownType      = errors.New("type must be percentage or fixed")
	errDepositRange     = errors.New("deposit must not exceed the base price")
	errUnknownCondition = errors.New("unknown eligibility condition")
	errMinParticipants  = errors.New("min_participants must be at least 1")
	errBeforeRequired   = errors.New("before is required")
	errMalformedCode    = errors.New("code must be 3-32 letters, digits, '-' or '_'")
	errDuplicateCode    = errors.New("code is declared more than once")
	errValidityWindow   = errors.New("valid_from must not be after valid_until")
	errUsageLimitTooLow = errors.New("usage_limit must be at least 1")
	errNameRequired     = errors.New("name is required")
	errNegativeUsage    = errors.New("usage_count must not be negative")
	errMoneyPrecision   = errors.New("amount must have at most 2 decimal places")
)

// ValidatePolicy checks the discount configuration of an event.
func ValidatePolicy(p domain.PricingPolicy) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.BasePrice, validation.By(nonNegative), validation.By(cents)),
		validation.Field(&p.DepositAmount, validation.By(cents), validation.By(func(interface{}) error {
			if !p.AllowInstallments {
				return nil
			}
			if p.DepositAmount.IsNegative() {
				return errNegativeAmount
			}
			if p.FinalAmount().IsNegative() {
				return errDepositRange
			}
			return nil
		})),
		validation.Field(&p.Discounts, validation.By(func(interface{}) error {
			return validateDiscounts(p.Discounts, p.BasePrice)
		})),
		validation.Field(&p.DiscountCodes, validation.By(func(interface{}) error {
			return validateCodes(p.DiscountCodes, p.BasePrice)
		})),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	return nil
}

func nonNegative(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return fmt.Errorf("unexpected type %T", value)
	}
	if d.IsNegative() {
		return errNegativeAmount
	}
	return nil
}

// cents rejects amounts finer than the 2dp the record store keeps.
func cents(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return fmt.Errorf("unexpected type %T", value)
	}
	if !HasCentPrecision(d) {
		return errMoneyPrecision
	}
	return nil
}

// HasCentPrecision reports whether d is a whole number of cents.
func HasCentPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

func validateValue(t domain.DiscountType, v, base decimal.Decimal) error {
	switch t {
	case domain.DiscountPercentage:
		if v.LessThan(decimal.NewFromInt(1)) || v.GreaterThan(hundred) {
			return errPercentageRange
		}
	case domain.DiscountFixed:
		if !v.IsPositive() || !v.LessThan(base) {
			return errFixedRange
		}
		if !HasCentPrecision(v) {
			return errMoneyPrecision
		}
	default:
		return errUnknownType
	}
	return nil
}

func validateCondition(c domain.Condition) error {
	switch c.Kind {
	case domain.ConditionAlways:
	case domain.ConditionMinParticipants:
		if c.MinParticipants < 1 {
			return errMinParticipants
		}
	case domain.ConditionRegisteredBefore:
		if c.Before == nil {
			return errBeforeRequired
		}
	default:
		return errUnknownCondition
	}
	return nil
}

func validateDiscounts(discounts []domain.Discount, base decimal.Decimal) error {
	errs := validation.Errors{}
	for i, d := range discounts {
		var err error
		switch {
		case strings.TrimSpace(d.Name) == "":
			err = errNameRequired
		default:
			if err = validateValue(d.Type, d.Value, base); err == nil {
				err = validateCondition(d.Condition)
			}
		}
		if err != nil {
			errs[strconv.Itoa(i)] = err
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateCodes(codes []domain.DiscountCode, base decimal.Decimal) error {
	errs := validation.Errors{}
	seen := make(map[string]bool, len(codes))
	for i, c := range codes {
		key := strings.ToUpper(c.Code)
		var err error
		switch {
		case !IsWellFormedCode(c.Code):
			err = errMalformedCode
		case seen[key]:
			err = errDuplicateCode
		case c.ValidFrom != nil && c.ValidUntil != nil && c.ValidFrom.After(*c.ValidUntil):
			err = errValidityWindow
		case c.UsageLimit != nil && *c.UsageLimit < 1:
			err = errUsageLimitTooLow
		case c.UsageCount < 0:
			err = errNegativeUsage
		default:
			err = validateValue(c.Type, c.Value, base)
		}
		seen[key] = true
		if err != nil {
			errs[strconv.Itoa(i)] = err
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateOverrides(overrides []Override) error {
	errs := validation.Errors{}
	for i, o := range overrides {
		var err error
		switch {
		case strings.TrimSpace(o.Name) == "":
			err = errNameRequired
		case o.Type == domain.DiscountPercentage:
			err = validateValue(o.Type, o.Value, decimal.Zero)
		case o.Type == domain.DiscountFixed:
			if !o.Value.IsPositive() {
				err = errFixedRange
			}
		default:
			err = errUnknownType
		}
		if err != nil {
			errs[strconv.Itoa(i)] = err
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: overrides: %w", ErrInvalidPolicy, errs)
}
