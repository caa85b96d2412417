package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentDeposit PaymentType = "deposit"
	PaymentFinal   PaymentType = "final"
	PaymentOther   PaymentType = "other"
)

func (t PaymentType) Valid() bool {
	return t == PaymentDeposit || t == PaymentFinal || t == PaymentOther
}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Payment is immutable once created except for its unpaid -> paid transition.
type Payment struct {
	ID             string          `json:"id"`
	Type           PaymentType     `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	PaidDate       *time.Time      `json:"paid_date,omitempty"`
	Status         PaymentStatus   `json:"status"`
	Note           *string         `json:"note,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

type PaymentInput struct {
	Type           PaymentType
	Amount         decimal.Decimal
	DueDate        *time.Time
	Note           *string
	IdempotencyKey string
}

func (r *Registration) seedInstallments(price PriceSnapshot) {
	if price.Deposit != nil && price.Deposit.IsPositive() {
		r.Payments = append(r.Payments, Payment{
			ID:      uuid.NewString(),
			Type:    PaymentDeposit,
			Amount:  *price.Deposit,
			DueDate: price.DepositDueDate,
			Status:  PaymentUnpaid,
		})
	}
	if price.Final != nil && price.Final.IsPositive() {
		r.Payments = append(r.Payments, Payment{
			ID:      uuid.NewString(),
			Type:    PaymentFinal,
			Amount:  *price.Final,
			DueDate: price.FinalDueDate,
			Status:  PaymentUnpaid,
		})
	}
}

// RecordPayment records a payment that happened. A seeded unpaid installment
// of the same type and amount is marked paid; anything else is appended as a
// new paid payment. Every call records a payment: there is no deduplication
// unless the caller checks HasPayment with an idempotency key first.
func (r *Registration) RecordPayment(in PaymentInput, at time.Time, actor Actor) (Payment, error) {
	if !in.Amount.IsPositive() {
		return Payment{}, ErrNonPositiveAmount
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return Payment{}, ErrAmountPrecision
	}
	if !in.Type.Valid() {
		return Payment{}, ErrInvalidPaymentType
	}

	paidAt := at
	var recorded Payment

	if i := r.matchInstallment(in); i >= 0 {
		p := &r.Payments[i]
		p.Status = PaymentPaid
		p.PaidDate = &paidAt
		if in.Note != nil {
			p.Note = in.Note
		}
		p.IdempotencyKey = in.IdempotencyKey
		recorded = *p
	} else {
		recorded = Payment{
			ID:             uuid.NewString(),
			Type:           in.Type,
			Amount:         in.Amount,
			DueDate:        in.DueDate,
			PaidDate:       &paidAt,
			Status:         PaymentPaid,
			Note:           in.Note,
			IdempotencyKey: in.IdempotencyKey,
		}
		r.Payments = append(r.Payments, recorded)
	}

	r.AmountPaid = r.sumPaid()
	note := in.Amount.StringFixed(2)
	r.appendHistory(ActionPaymentRecorded, &note, at, actor)

	return recorded, nil
}

// HasPayment reports whether a payment with the idempotency key exists.
func (r *Registration) HasPayment(key string) bool {
	if key == "" {
		return false
	}
	for _, p := range r.Payments {
		if p.IdempotencyKey == key {
			return true
		}
	}
	return false
}

func (r *Registration) matchInstallment(in PaymentInput) int {
	for i, p := range r.Payments {
		if p.Status == PaymentUnpaid && p.Type == in.Type && p.Amount.Equal(in.Amount) {
			return i
		}
	}
	return -1
}

func (r *Registration) sumPaid() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range r.Payments {
		if p.Status == PaymentPaid {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

// Remaining is negative when the registration is overpaid.
func (r *Registration) Remaining() decimal.Decimal {
	return r.TotalPrice.Sub(r.AmountPaid)
}

func (r *Registration) PaymentStatus() PaymentStatus {
	switch {
	case r.AmountPaid.GreaterThanOrEqual(r.TotalPrice):
		return PaymentPaid
	case r.AmountPaid.IsZero():
		return PaymentUnpaid
	default:
		return PaymentPartial
	}
}

// UnpaidInstallmentsDueBy returns unpaid installments with a due date on or
// before the deadline.
func (r *Registration) UnpaidInstallmentsDueBy(deadline time.Time) []Payment {
	var due []Payment
	for _, p := range r.Payments {
		if p.Status == PaymentUnpaid && p.DueDate != nil && !p.DueDate.After(deadline) {
			due = append(due, p)
		}
	}
	return due
}
