package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusWaitlist  Status = "waitlist"
	StatusCancelled Status = "cancelled"

	// statusLegacyPending is the old name of a confirmed registration that
	// still needs an admin approval.
	statusLegacyPending Status = "pending"
)

// ParseStatus maps a stored status name to a Status and its approval flag.
func ParseStatus(s string) (Status, bool, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusConfirmed:
		return StatusConfirmed, false, nil
	case StatusWaitlist:
		return StatusWaitlist, false, nil
	case StatusCancelled:
		return StatusCancelled, false, nil
	case statusLegacyPending:
		return StatusConfirmed, true, nil
	}
	return "", false, fmt.Errorf("unknown registration status %q", s)
}

// StoredNames lists every stored status name that reads back as s.
func (s Status) StoredNames() []string {
	if s == StatusConfirmed {
		return []string{string(StatusConfirmed), string(statusLegacyPending)}
	}
	return []string{string(s)}
}

const (
	ActionCreated           = "Registration created"
	ActionCancelled         = "Registration cancelled"
	ActionMovedFromWaitlist = "Moved from waitlist"
	ActionRestored          = "Registration restored"
	ActionApproved          = "Registration approved"
	ActionPaymentRecorded   = "Payment recorded"
	ActionInternalNote      = "Internal note updated"
)

// Actor identifies who performed an operation. It is passed explicitly into
// every mutating operation.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a Actor) String() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

type ChangeHistoryEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Note      *string   `json:"note,omitempty"`
}

type AppliedDiscount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// PriceSnapshot is the priced outcome stored on a registration at creation.
type PriceSnapshot struct {
	Total            decimal.Decimal
	Deposit          *decimal.Decimal
	Final            *decimal.Decimal
	DepositDueDate   *time.Time
	FinalDueDate     *time.Time
	AppliedDiscounts []AppliedDiscount
}

// Placement carries the external capacity and approval facts that decide
// where a registration lands when it is created or restored.
type Placement struct {
	AtCapacity       bool
	RequiresApproval bool
}

func (p Placement) status() (Status, bool) {
	if p.AtCapacity {
		return StatusWaitlist, false
	}
	return StatusConfirmed, p.RequiresApproval
}

type Registration struct {
	ID                 string               `json:"id"`
	EventID            string               `json:"event_id"`
	ParticipantID      string               `json:"participant_id"`
	PrimaryParentID    string               `json:"primary_parent_id"`
	SecondaryParentID  *string              `json:"secondary_parent_id,omitempty"`
	RegistrationNumber string               `json:"registration_number"`
	ParticipantCount   int                  `json:"participant_count"`
	CouponCode         string               `json:"coupon_code,omitempty"`
	TotalPrice         decimal.Decimal      `json:"total_price"`
	AmountPaid         decimal.Decimal      `json:"amount_paid"`
	AppliedDiscounts   []AppliedDiscount    `json:"applied_discounts"`
	Status             Status               `json:"status"`
	AwaitingApproval   bool                 `json:"awaiting_approval"`
	Payments           []Payment            `json:"payments"`
	InternalNote       string               `json:"internal_note"`
	ParentNote         string               `json:"parent_note"`
	ChangeHistory      []ChangeHistoryEntry `json:"change_history"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

type NewRegistrationParams struct {
	ID                 string
	EventID            string
	ParticipantID      string
	PrimaryParentID    string
	SecondaryParentID  *string
	RegistrationNumber string
	ParticipantCount   int
	CouponCode         string
	ParentNote         string
	Price              PriceSnapshot
	Placement          Placement
}

// NewRegistration creates a registration in its initial state, seeds the
// unpaid installments and records the creation in the history.
func NewRegistration(p NewRegistrationParams, at time.Time, actor Actor) *Registration {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	status, awaiting := p.Placement.status()
	r := &Registration{
		ID:                 p.ID,
		EventID:            p.EventID,
		ParticipantID:      p.ParticipantID,
		PrimaryParentID:    p.PrimaryParentID,
		SecondaryParentID:  p.SecondaryParentID,
		RegistrationNumber: p.RegistrationNumber,
		ParticipantCount:   p.ParticipantCount,
		CouponCode:         p.CouponCode,
		TotalPrice:         p.Price.Total,
		AmountPaid:         decimal.Zero,
		AppliedDiscounts:   p.Price.AppliedDiscounts,
		Status:             status,
		AwaitingApproval:   awaiting,
		ParentNote:         p.ParentNote,
		CreatedAt:          at,
		UpdatedAt:          at,
	}

	r.seedInstallments(p.Price)
	r.appendHistory(ActionCreated, nil, at, actor)

	return r
}

func (r *Registration) IsCancelled() bool {
	return r.Status == StatusCancelled
}

// Cancel moves a confirmed or waitlisted registration to cancelled. Payments
// and history are kept.
func (r *Registration) Cancel(reason string, eventEnd time.Time, at time.Time, actor Actor) error {
	if r.Status != StatusConfirmed && r.Status != StatusWaitlist {
		return fmt.Errorf("cancel from %s: %w", r.Status, ErrInvalidTransition)
	}
	if endedBy(eventEnd, at) {
		return ErrEventEnded
	}

	r.Status = StatusCancelled
	r.AwaitingApproval = false
	r.appendHistory(ActionCancelled, &reason, at, actor)

	return nil
}

// PromoteFromWaitlist confirms a waitlisted registration once a seat is free.
func (r *Registration) PromoteFromWaitlist(p Placement, at time.Time, actor Actor) error {
	if r.Status != StatusWaitlist {
		return fmt.Errorf("promote from %s: %w", r.Status, ErrInvalidTransition)
	}
	if p.AtCapacity {
		return ErrNoCapacity
	}

	r.Status = StatusConfirmed
	r.AwaitingApproval = p.RequiresApproval
	r.appendHistory(ActionMovedFromWaitlist, nil, at, actor)

	return nil
}

// Restore brings a cancelled registration back using the same capacity rule
// as creation.
func (r *Registration) Restore(p Placement, at time.Time, actor Actor) error {
	if r.Status != StatusCancelled {
		return fmt.Errorf("restore from %s: %w", r.Status, ErrInvalidTransition)
	}

	r.Status, r.AwaitingApproval = p.status()
	r.appendHistory(ActionRestored, nil, at, actor)

	return nil
}

// Approve clears the awaiting approval flag of a confirmed registration.
func (r *Registration) Approve(at time.Time, actor Actor) error {
	if r.IsCancelled() {
		return ErrRegistrationCancelled
	}
	if r.Status != StatusConfirmed || !r.AwaitingApproval {
		return ErrNotAwaitingApproval
	}

	r.AwaitingApproval = false
	r.appendHistory(ActionApproved, nil, at, actor)

	return nil
}

// UpdateInternalNote replaces the organizer-only note. Notes of a cancelled
// registration are frozen.
func (r *Registration) UpdateInternalNote(note string, at time.Time, actor Actor) error {
	if r.IsCancelled() {
		return ErrRegistrationCancelled
	}
	if note == r.InternalNote {
		return nil
	}

	r.InternalNote = note
	r.appendHistory(ActionInternalNote, nil, at, actor)

	return nil
}

// SetParentNote only succeeds while no parent note was submitted yet.
func (r *Registration) SetParentNote(note string) error {
	if r.IsCancelled() {
		return ErrRegistrationCancelled
	}
	if r.ParentNote != "" {
		return ErrParentNoteImmutable
	}

	r.ParentNote = note

	return nil
}

// CheckInvariants verifies the derived fields before the registration is
// persisted.
func (r *Registration) CheckInvariants() error {
	if r.TotalPrice.IsNegative() {
		return fmt.Errorf("negative total price %s: %w", r.TotalPrice, ErrInvariantViolation)
	}
	if paid := r.sumPaid(); !paid.Equal(r.AmountPaid) {
		return fmt.Errorf("amount paid %s does not match payments %s: %w", r.AmountPaid, paid, ErrInvariantViolation)
	}
	if len(r.ChangeHistory) == 0 {
		return fmt.Errorf("missing creation entry: %w", ErrInvariantViolation)
	}
	for i := 1; i < len(r.ChangeHistory); i++ {
		if r.ChangeHistory[i].Timestamp.Before(r.ChangeHistory[i-1].Timestamp) {
			return fmt.Errorf("history out of order at %d: %w", i, ErrInvariantViolation)
		}
	}

	return nil
}

func (r *Registration) appendHistory(action string, note *string, at time.Time, actor Actor) {
	r.ChangeHistory = append(r.ChangeHistory, ChangeHistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: at,
		Action:    action,
		Actor:     actor.String(),
		Note:      note,
	})
	r.UpdatedAt = at
}
