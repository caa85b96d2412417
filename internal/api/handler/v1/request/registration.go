package request

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"

	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/pricing"
)

const maxNoteLength = 4000

var (
	errNonPositiveAmount = errors.New("amount must be greater than zero")
	errAmountPrecision   = errors.New("amount must have at most 2 decimal places")
)

type RegisterRequest struct {
	ParticipantID     string  `json:"participant_id"`
	PrimaryParentID   string  `json:"parent_id"`
	SecondaryParentID *string `json:"secondary_parent_id,omitempty"`
	ParticipantCount  int     `json:"participant_count"`
	CouponCode        string  `json:"coupon_code"`
	ParentNote        string  `json:"parent_note"`
}

func (req RegisterRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.ParticipantID, validation.Required, validation.Length(1, 64)),
		validation.Field(&req.PrimaryParentID, validation.Required, validation.Length(1, 64)),
		validation.Field(&req.SecondaryParentID, validation.NilOrNotEmpty, validation.Length(1, 64)),
		validation.Field(&req.ParticipantCount, validation.Required, validation.Min(1)),
		validation.Field(&req.CouponCode, validation.By(wellFormedCoupon)),
		validation.Field(&req.ParentNote, validation.Length(0, maxNoteLength)),
	)
}

type RecordPaymentRequest struct {
	Type           domain.PaymentType `json:"type"`
	Amount         decimal.Decimal    `json:"amount"`
	DueDate        *time.Time         `json:"due_date,omitempty"`
	Note           *string            `json:"note,omitempty"`
	IdempotencyKey string             `json:"idempotency_key"`
}

func (req RecordPaymentRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Type, validation.Required,
			validation.In(domain.PaymentDeposit, domain.PaymentFinal, domain.PaymentOther)),
		validation.Field(&req.Amount, validation.By(func(interface{}) error {
			if !req.Amount.IsPositive() {
				return errNonPositiveAmount
			}
			if !pricing.HasCentPrecision(req.Amount) {
				return errAmountPrecision
			}
			return nil
		})),
		validation.Field(&req.IdempotencyKey, validation.Length(0, 128)),
	)
}

func (req RecordPaymentRequest) ToInput() domain.PaymentInput {
	return domain.PaymentInput{
		Type:           req.Type,
		Amount:         req.Amount,
		DueDate:        req.DueDate,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	}
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (req CancelRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Reason, validation.Length(0, 500)),
	)
}

type NoteRequest struct {
	Note string `json:"note"`
}

func (req NoteRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Note, validation.Length(0, maxNoteLength)),
	)
}

type ParentNoteRequest struct {
	Note string `json:"note"`
}

func (req ParentNoteRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Note, validation.Required, validation.Length(1, maxNoteLength)),
	)
}

// ValidateID checks a path identifier issued by this API.
func ValidateID(id string) error {
	return validation.Validate(id, validation.Required, is.UUID)
}
