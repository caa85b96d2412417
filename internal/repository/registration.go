package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/repository/dao"
)

var (
	ErrRegistrationNotFound     = dao.ErrRegistrationNotFound
	ErrRegistrationNumberExists = dao.ErrRegistrationNumberExists
)

type RegistrationDAO interface {
	Insert(ctx context.Context, registration dao.Registration) (dao.Registration, error)
	FindByID(ctx context.Context, id string) (dao.Registration, error)
	Update(ctx context.Context, registration dao.Registration) (dao.Registration, error)
	FindByEventID(ctx context.Context, eventID string, statuses []string) ([]dao.Registration, error)
	FindByStatuses(ctx context.Context, statuses []string) ([]dao.Registration, error)
	SumParticipants(ctx context.Context, eventID string, statuses []string) (int, error)
	CountByEventID(ctx context.Context, eventID string) (int, error)
}

type RegistrationRepository struct {
	dao RegistrationDAO
}

func NewRegistrationRepository(dao RegistrationDAO) *RegistrationRepository {
	return &RegistrationRepository{
		dao: dao,
	}
}

func (r *RegistrationRepository) Create(ctx context.Context, registration domain.Registration) (domain.Registration, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(registration))
	if err != nil {
		return domain.Registration{}, err
	}

	return r.daoToDomain(created)
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (domain.Registration, error) {
	registration, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, err
	}

	return r.daoToDomain(registration)
}

func (r *RegistrationRepository) Update(ctx context.Context, registration domain.Registration) (domain.Registration, error) {
	updated, err := r.dao.Update(ctx, r.domainToDao(registration))
	if err != nil {
		return domain.Registration{}, err
	}

	return r.daoToDomain(updated)
}

// FindByEventID lists the registrations of an event, optionally restricted to
// a status.
func (r *RegistrationRepository) FindByEventID(ctx context.Context, eventID string, status *domain.Status) ([]domain.Registration, error) {
	var statuses []string
	if status != nil {
		statuses = status.StoredNames()
	}

	registrations, err := r.dao.FindByEventID(ctx, eventID, statuses)
	if err != nil {
		return nil, err
	}

	return r.daosToDomain(registrations)
}

// FindActive lists the confirmed and waitlisted registrations of every event.
func (r *RegistrationRepository) FindActive(ctx context.Context) ([]domain.Registration, error) {
	statuses := append(domain.StatusConfirmed.StoredNames(), domain.StatusWaitlist.StoredNames()...)

	registrations, err := r.dao.FindByStatuses(ctx, statuses)
	if err != nil {
		return nil, err
	}

	return r.daosToDomain(registrations)
}

// OccupiedSeats is the number of participants holding a confirmed seat.
func (r *RegistrationRepository) OccupiedSeats(ctx context.Context, eventID string) (int, error) {
	return r.dao.SumParticipants(ctx, eventID, domain.StatusConfirmed.StoredNames())
}

func (r *RegistrationRepository) CountByEventID(ctx context.Context, eventID string) (int, error) {
	return r.dao.CountByEventID(ctx, eventID)
}

func (r *RegistrationRepository) domainToDao(reg domain.Registration) dao.Registration {
	applied := make([]dao.AppliedDiscount, len(reg.AppliedDiscounts))
	for i, a := range reg.AppliedDiscounts {
		applied[i] = dao.AppliedDiscount{Name: a.Name, Amount: a.Amount}
	}

	payments := make([]dao.Payment, len(reg.Payments))
	for i, p := range reg.Payments {
		payments[i] = dao.Payment{
			ID:             p.ID,
			Type:           string(p.Type),
			Amount:         p.Amount,
			DueDate:        p.DueDate,
			PaidDate:       p.PaidDate,
			Status:         string(p.Status),
			Note:           p.Note,
			IdempotencyKey: p.IdempotencyKey,
		}
	}

	history := make([]dao.HistoryEntry, len(reg.ChangeHistory))
	for i, h := range reg.ChangeHistory {
		history[i] = dao.HistoryEntry{
			ID:        h.ID,
			Timestamp: h.Timestamp,
			Action:    h.Action,
			Actor:     h.Actor,
			Note:      h.Note,
		}
	}

	return dao.Registration{
		ID:                 reg.ID,
		EventID:            reg.EventID,
		ParticipantID:      reg.ParticipantID,
		PrimaryParentID:    reg.PrimaryParentID,
		SecondaryParentID:  reg.SecondaryParentID,
		RegistrationNumber: reg.RegistrationNumber,
		ParticipantCount:   reg.ParticipantCount,
		CouponCode:         reg.CouponCode,
		TotalPrice:         reg.TotalPrice,
		AmountPaid:         reg.AmountPaid,
		AppliedDiscounts:   applied,
		Payments:           payments,
		Status:             string(reg.Status),
		AwaitingApproval:   reg.AwaitingApproval,
		InternalNote:       reg.InternalNote,
		ParentNote:         reg.ParentNote,
		ChangeHistory:      history,
		CreatedAt:          reg.CreatedAt,
		UpdatedAt:          reg.UpdatedAt,
	}
}

func (r *RegistrationRepository) daoToDomain(reg dao.Registration) (domain.Registration, error) {
	status, awaiting, err := domain.ParseStatus(reg.Status)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("registration %s: %w", reg.ID, err)
	}

	applied := make([]domain.AppliedDiscount, len(reg.AppliedDiscounts))
	for i, a := range reg.AppliedDiscounts {
		applied[i] = domain.AppliedDiscount{Name: a.Name, Amount: a.Amount}
	}

	// amount_paid is a rounded column; the paid payments are the ledger.
	amountPaid := decimal.Zero
	payments := make([]domain.Payment, len(reg.Payments))
	for i, p := range reg.Payments {
		if domain.PaymentStatus(p.Status) == domain.PaymentPaid {
			amountPaid = amountPaid.Add(p.Amount)
		}
		payments[i] = domain.Payment{
			ID:             p.ID,
			Type:           domain.PaymentType(p.Type),
			Amount:         p.Amount,
			DueDate:        p.DueDate,
			PaidDate:       p.PaidDate,
			Status:         domain.PaymentStatus(p.Status),
			Note:           p.Note,
			IdempotencyKey: p.IdempotencyKey,
		}
	}

	history := make([]domain.ChangeHistoryEntry, len(reg.ChangeHistory))
	for i, h := range reg.ChangeHistory {
		history[i] = domain.ChangeHistoryEntry{
			ID:        h.ID,
			Timestamp: h.Timestamp,
			Action:    h.Action,
			Actor:     h.Actor,
			Note:      h.Note,
		}
	}

	return domain.Registration{
		ID:                 reg.ID,
		EventID:            reg.EventID,
		ParticipantID:      reg.ParticipantID,
		PrimaryParentID:    reg.PrimaryParentID,
		SecondaryParentID:  reg.SecondaryParentID,
		RegistrationNumber: reg.RegistrationNumber,
		ParticipantCount:   reg.ParticipantCount,
		CouponCode:         reg.CouponCode,
		TotalPrice:         reg.TotalPrice,
		AmountPaid:         amountPaid,
		AppliedDiscounts:   applied,
		Status:             status,
		AwaitingApproval:   reg.AwaitingApproval || awaiting,
		Payments:           payments,
		InternalNote:       reg.InternalNote,
		ParentNote:         reg.ParentNote,
		ChangeHistory:      history,
		CreatedAt:          reg.CreatedAt,
		UpdatedAt:          reg.UpdatedAt,
	}, nil
}

func (r *RegistrationRepository) daosToDomain(registrations []dao.Registration) ([]domain.Registration, error) {
	result := make([]domain.Registration, 0, len(registrations))
	for _, reg := range registrations {
		converted, err := r.daoToDomain(reg)
		if err != nil {
			return nil, err
		}
		result = append(result, converted)
	}

	return result, nil
}
