package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type ConditionKind string

const (
	ConditionAlways           ConditionKind = "always"
	ConditionMinParticipants  ConditionKind = "min_participants"
	ConditionRegisteredBefore ConditionKind = "registered_before"
)

// Condition is the eligibility predicate of an automatic discount.
type Condition struct {
	Kind            ConditionKind `json:"kind"`
	MinParticipants int           `json:"min_participants,omitempty"`
	Before          *time.Time    `json:"before,omitempty"`
}

type Discount struct {
	Name      string          `json:"name"`
	Type      DiscountType    `json:"type"`
	Value     decimal.Decimal `json:"value"`
	Condition Condition       `json:"condition"`
}

type DiscountCode struct {
	Code       string          `json:"code"`
	Type       DiscountType    `json:"type"`
	Value      decimal.Decimal `json:"value"`
	ValidFrom  *time.Time      `json:"valid_from,omitempty"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
	UsageLimit *int            `json:"usage_limit,omitempty"`
	UsageCount int             `json:"usage_count"`
}

// PricingPolicy is owned by the event and read-only to the pricing engine.
type PricingPolicy struct {
	BasePrice         decimal.Decimal `json:"base_price"`
	AllowInstallments bool            `json:"allow_installments"`
	DepositAmount     decimal.Decimal `json:"deposit_amount"`
	DepositDueDate    *time.Time      `json:"deposit_due_date,omitempty"`
	FinalDueDate      *time.Time      `json:"final_due_date,omitempty"`
	Discounts         []Discount      `json:"discounts"`
	DiscountCodes     []DiscountCode  `json:"discount_codes"`
}

// FinalAmount is the nominal balance left after the deposit.
func (p PricingPolicy) FinalAmount() decimal.Decimal {
	return p.BasePrice.Sub(p.DepositAmount)
}

type Event struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	StartsAt         time.Time     `json:"starts_at"`
	EndsAt           time.Time     `json:"ends_at"`
	Capacity         int           `json:"capacity"`
	RequiresApproval bool          `json:"requires_approval"`
	Pricing          PricingPolicy `json:"pricing"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// HasEnded reports whether at is past the end of the event.
func (e *Event) HasEnded(at time.Time) bool {
	return endedBy(e.EndsAt, at)
}

// endedBy reports whether at is past end. The end instant itself still
// belongs to the event and a zero end never passes.
func endedBy(end, at time.Time) bool {
	return !end.IsZero() && at.After(end)
}

// IsFull reports whether seats more participants would exceed the capacity
// given the number already occupied. A zero capacity means unlimited.
func (e *Event) IsFull(occupied, seats int) bool {
	if e.Capacity <= 0 {
		return false
	}
	return occupied+seats > e.Capacity
}
