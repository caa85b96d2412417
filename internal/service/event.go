package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/pricing"
	"github.com/vietanh2810/campreg-api/internal/repository"
)

var ErrEventNotFound = repository.ErrEventNotFound

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	FindByID(ctx context.Context, id string) (domain.Event, error)
	Update(ctx context.Context, event domain.Event) (domain.Event, error)
}

type CreateEventInput struct {
	Name             string
	StartsAt         time.Time
	EndsAt           time.Time
	Capacity         int
	RequiresApproval bool
	Pricing          domain.PricingPolicy
}

type QuoteInput struct {
	ParticipantCount int
	CouponCode       string
	Overrides        []pricing.Override
}

type EventService struct {
	repo EventRepository
	now  func() time.Time
}

func NewEventService(repo EventRepository, opts ...Option) *EventService {
	o := newOptions(opts)

	return &EventService{
		repo: repo,
		now:  o.now,
	}
}

func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if err := pricing.ValidatePolicy(in.Pricing); err != nil {
		return domain.Event{}, fmt.Errorf("pricing.ValidatePolicy -> %w", err)
	}

	now := s.now()
	event, err := s.repo.Create(ctx, domain.Event{
		ID:               uuid.NewString(),
		Name:             in.Name,
		StartsAt:         in.StartsAt,
		EndsAt:           in.EndsAt,
		Capacity:         in.Capacity,
		RequiresApproval: in.RequiresApproval,
		Pricing:          in.Pricing,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return event, nil
}

// UpdatePricing replaces the pricing policy of an event. Usage counts of codes
// that are kept are carried over since only intake may change them.
func (s *EventService) UpdatePricing(ctx context.Context, id string, policy domain.PricingPolicy) (domain.Event, error) {
	if err := pricing.ValidatePolicy(policy); err != nil {
		return domain.Event{}, fmt.Errorf("pricing.ValidatePolicy -> %w", err)
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	used := make(map[string]int, len(event.Pricing.DiscountCodes))
	for _, c := range event.Pricing.DiscountCodes {
		used[strings.ToUpper(c.Code)] = c.UsageCount
	}
	for i := range policy.DiscountCodes {
		policy.DiscountCodes[i].UsageCount = used[strings.ToUpper(policy.DiscountCodes[i].Code)]
	}

	event.Pricing = policy
	event.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Update -> %w", err)
	}

	return updated, nil
}

// Quote prices a prospective registration without recording anything. It
// uses the same calculation as intake.
func (s *EventService) Quote(ctx context.Context, id string, in QuoteInput) (pricing.Result, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return pricing.Result{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	result, err := pricing.ComputeTotal(event.Pricing, pricing.Request{
		ParticipantCount: in.ParticipantCount,
		CouponCode:       in.CouponCode,
		At:               s.now(),
		Overrides:        in.Overrides,
	})
	if err != nil {
		return pricing.Result{}, fmt.Errorf("pricing.ComputeTotal -> %w", err)
	}

	return result, nil
}
