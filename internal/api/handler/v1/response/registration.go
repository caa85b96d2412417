package response

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/pricing"
)

// Registration adds the derived ledger figures to the stored registration.
type Registration struct {
	domain.Registration
	Remaining     decimal.Decimal      `json:"remaining"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
}

func NewRegistration(r domain.Registration) Registration {
	return Registration{
		Registration:  r,
		Remaining:     r.Remaining(),
		PaymentStatus: r.PaymentStatus(),
	}
}

func NewRegistrations(regs []domain.Registration) []Registration {
	out := make([]Registration, len(regs))
	for i, r := range regs {
		out[i] = NewRegistration(r)
	}
	return out
}

// ParentRegistration is what a parent may see; the internal note stays with
// the organizers.
type ParentRegistration struct {
	ID                 string                   `json:"id"`
	EventID            string                   `json:"event_id"`
	RegistrationNumber string                   `json:"registration_number"`
	Status             domain.Status            `json:"status"`
	AwaitingApproval   bool                     `json:"awaiting_approval"`
	TotalPrice         decimal.Decimal          `json:"total_price"`
	AmountPaid         decimal.Decimal          `json:"amount_paid"`
	Remaining          decimal.Decimal          `json:"remaining"`
	PaymentStatus      domain.PaymentStatus     `json:"payment_status"`
	AppliedDiscounts   []domain.AppliedDiscount `json:"applied_discounts"`
	Payments           []domain.Payment         `json:"payments"`
	ParentNote         string                   `json:"parent_note"`
	CreatedAt          time.Time                `json:"created_at"`
}

func NewParentRegistration(r domain.Registration) ParentRegistration {
	return ParentRegistration{
		ID:                 r.ID,
		EventID:            r.EventID,
		RegistrationNumber: r.RegistrationNumber,
		Status:             r.Status,
		AwaitingApproval:   r.AwaitingApproval,
		TotalPrice:         r.TotalPrice,
		AmountPaid:         r.AmountPaid,
		Remaining:          r.Remaining(),
		PaymentStatus:      r.PaymentStatus(),
		AppliedDiscounts:   r.AppliedDiscounts,
		Payments:           r.Payments,
		ParentNote:         r.ParentNote,
		CreatedAt:          r.CreatedAt,
	}
}

type Quote struct {
	Subtotal         decimal.Decimal          `json:"subtotal"`
	Total            decimal.Decimal          `json:"total"`
	Deposit          *decimal.Decimal         `json:"deposit,omitempty"`
	Final            *decimal.Decimal         `json:"final,omitempty"`
	AppliedDiscounts []domain.AppliedDiscount `json:"applied_discounts"`
	CouponCode       string                   `json:"coupon_code,omitempty"`
}

func NewQuote(r pricing.Result) Quote {
	applied := r.AppliedDiscounts
	if applied == nil {
		applied = []domain.AppliedDiscount{}
	}
	return Quote{
		Subtotal:         r.Subtotal,
		Total:            r.Total,
		Deposit:          r.Deposit,
		Final:            r.Final,
		AppliedDiscounts: applied,
		CouponCode:       r.CouponCode,
	}
}

type Accepted struct {
	Status string `json:"status"`
}
