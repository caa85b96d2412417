package domain

import "errors"

var (
	ErrNonPositiveAmount     = errors.New("payment amount must be greater than zero")
	ErrAmountPrecision       = errors.New("payment amount must have at most 2 decimal places")
	ErrInvalidPaymentType    = errors.New("payment type must be deposit, final or other")
	ErrInvalidTransition     = errors.New("registration status transition is not allowed")
	ErrRegistrationCancelled = errors.New("registration is cancelled")
	ErrEventEnded            = errors.New("event has already ended")
	ErrNoCapacity            = errors.New("event has no free capacity")
	ErrNotAwaitingApproval   = errors.New("registration is not awaiting approval")
	ErrParentNoteImmutable   = errors.New("parent note cannot be changed after submission")
	ErrInvariantViolation    = errors.New("registration invariant violated")
)
