package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/pricing"
)

func TestEventService_CreateEvent(t *testing.T) {
	repo := newMemEvents()
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := NewEventService(repo, WithClock(func() time.Time { return at }))
	ctx := context.Background()

	camp := summerCamp()
	event, err := svc.CreateEvent(ctx, CreateEventInput{
		Name:     camp.Name,
		StartsAt: camp.StartsAt,
		EndsAt:   camp.EndsAt,
		Capacity: camp.Capacity,
		Pricing:  camp.Pricing,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, at, event.CreatedAt)

	got, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summer camp", got.Name)

	bad := camp.Pricing
	bad.Discounts = append(bad.Discounts, domain.Discount{Name: "Too much", Type: domain.DiscountFixed, Value: money("9000"), Condition: domain.Condition{Kind: domain.ConditionAlways}})
	_, err = svc.CreateEvent(ctx, CreateEventInput{Name: "Broken", Pricing: bad})
	assert.ErrorIs(t, err, pricing.ErrInvalidPolicy)

	_, err = svc.GetEvent(ctx, "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventService_UpdatePricingKeepsUsageCounts(t *testing.T) {
	repo := newMemEvents(summerCamp())
	svc := NewEventService(repo)

	policy := summerCamp().Pricing
	policy.DiscountCodes = []domain.DiscountCode{
		{Code: "summer10", Type: domain.DiscountPercentage, Value: money("15"), UsageLimit: intPtr(10), UsageCount: 0},
		{Code: "NEWCODE", Type: domain.DiscountFixed, Value: money("100"), UsageCount: 7},
	}

	updated, err := svc.UpdatePricing(context.Background(), "evt-1", policy)
	require.NoError(t, err)

	require.Len(t, updated.Pricing.DiscountCodes, 2)
	assert.Equal(t, 5, updated.Pricing.DiscountCodes[0].UsageCount, "existing count is carried over")
	assert.Equal(t, 0, updated.Pricing.DiscountCodes[1].UsageCount, "callers cannot seed usage")

	_, err = svc.UpdatePricing(context.Background(), "missing", policy)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventService_Quote(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc := NewEventService(newMemEvents(summerCamp()), WithClock(func() time.Time { return at }))
	ctx := context.Background()

	quote, err := svc.Quote(ctx, "evt-1", QuoteInput{
		ParticipantCount: 2,
		Overrides:        []pricing.Override{{Name: "Staff", Type: domain.DiscountFixed, Value: money("1000")}},
	})
	require.NoError(t, err)
	// 10000 - 10% = 9000, then the 1000 override.
	assert.True(t, quote.Total.Equal(money("8000")), "total = %s", quote.Total)

	_, err = svc.Quote(ctx, "evt-1", QuoteInput{ParticipantCount: 1, CouponCode: "summer10"})
	assert.ErrorIs(t, err, pricing.ErrCouponExhausted)
}
