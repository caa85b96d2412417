package repository

import (
	"context"

	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/repository/dao"
)

var ErrEventNotFound = dao.ErrEventNotFound

type EventDAO interface {
	Insert(ctx context.Context, event dao.Event) (dao.Event, error)
	FindByID(ctx context.Context, id string) (dao.Event, error)
	Update(ctx context.Context, event dao.Event) (dao.Event, error)
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(event))
	if err != nil {
		return domain.Event{}, err
	}

	return r.daoToDomain(created), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id string) (domain.Event, error) {
	event, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}

	return r.daoToDomain(event), nil
}

func (r *EventRepository) Update(ctx context.Context, event domain.Event) (domain.Event, error) {
	updated, err := r.dao.Update(ctx, r.domainToDao(event))
	if err != nil {
		return domain.Event{}, err
	}

	return r.daoToDomain(updated), nil
}

func (r *EventRepository) domainToDao(e domain.Event) dao.Event {
	discounts := make([]dao.Discount, len(e.Pricing.Discounts))
	for i, d := range e.Pricing.Discounts {
		discounts[i] = dao.Discount{
			Name:  d.Name,
			Type:  string(d.Type),
			Value: d.Value,
			Condition: dao.Condition{
				Kind:            string(d.Condition.Kind),
				MinParticipants: d.Condition.MinParticipants,
				Before:          d.Condition.Before,
			},
		}
	}

	codes := make([]dao.DiscountCode, len(e.Pricing.DiscountCodes))
	for i, c := range e.Pricing.DiscountCodes {
		codes[i] = dao.DiscountCode{
			Code:       c.Code,
			Type:       string(c.Type),
			Value:      c.Value,
			ValidFrom:  c.ValidFrom,
			ValidUntil: c.ValidUntil,
			UsageLimit: c.UsageLimit,
			UsageCount: c.UsageCount,
		}
	}

	return dao.Event{
		ID:                e.ID,
		Name:              e.Name,
		StartsAt:          e.StartsAt,
		EndsAt:            e.EndsAt,
		Capacity:          e.Capacity,
		RequiresApproval:  e.RequiresApproval,
		BasePrice:         e.Pricing.BasePrice,
		AllowInstallments: e.Pricing.AllowInstallments,
		DepositAmount:     e.Pricing.DepositAmount,
		DepositDueDate:    e.Pricing.DepositDueDate,
		FinalDueDate:      e.Pricing.FinalDueDate,
		Discounts:         discounts,
		DiscountCodes:     codes,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func (r *EventRepository) daoToDomain(e dao.Event) domain.Event {
	discounts := make([]domain.Discount, len(e.Discounts))
	for i, d := range e.Discounts {
		discounts[i] = domain.Discount{
			Name:  d.Name,
			Type:  domain.DiscountType(d.Type),
			Value: d.Value,
			Condition: domain.Condition{
				Kind:            domain.ConditionKind(d.Condition.Kind),
				MinParticipants: d.Condition.MinParticipants,
				Before:          d.Condition.Before,
			},
		}
	}

	codes := make([]domain.DiscountCode, len(e.DiscountCodes))
	for i, c := range e.DiscountCodes {
		codes[i] = domain.DiscountCode{
			Code:       c.Code,
			Type:       domain.DiscountType(c.Type),
			Value:      c.Value,
			ValidFrom:  c.ValidFrom,
			ValidUntil: c.ValidUntil,
			UsageLimit: c.UsageLimit,
			UsageCount: c.UsageCount,
		}
	}

	return domain.Event{
		ID:               e.ID,
		Name:             e.Name,
		StartsAt:         e.StartsAt,
		EndsAt:           e.EndsAt,
		Capacity:         e.Capacity,
		RequiresApproval: e.RequiresApproval,
		Pricing: domain.PricingPolicy{
			BasePrice:         e.BasePrice,
			AllowInstallments: e.AllowInstallments,
			DepositAmount:     e.DepositAmount,
			DepositDueDate:    e.DepositDueDate,
			FinalDueDate:      e.FinalDueDate,
			Discounts:         discounts,
			DiscountCodes:     codes,
		},
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
