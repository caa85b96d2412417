package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/notify"
	"github.com/vietanh2810/campreg-api/internal/pricing"
)

var (
	jana  = domain.Actor{ID: "org-1", Name: "Jana"}
	start = time.Date(2026, 7, 13, 9, 0, 0, 0, time.UTC)
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int { return &v }

func summerCamp() domain.Event {
	depositDue := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	finalDue := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return domain.Event{
		ID:       "evt-1",
		Name:     "Summer camp",
		StartsAt: start,
		EndsAt:   start.AddDate(0, 0, 7),
		Capacity: 4,
		Pricing: domain.PricingPolicy{
			BasePrice:         money("5000"),
			AllowInstallments: true,
			DepositAmount:     money("2000"),
			DepositDueDate:    &depositDue,
			FinalDueDate:      &finalDue,
			Discounts: []domain.Discount{{
				Name:      "Sibling",
				Type:      domain.DiscountPercentage,
				Value:     money("10"),
				Condition: domain.Condition{Kind: domain.ConditionMinParticipants, MinParticipants: 2},
			}},
			DiscountCodes: []domain.DiscountCode{
				{Code: "SUMMER10", Type: domain.DiscountPercentage, Value: money("10"), UsageLimit: intPtr(5), UsageCount: 5},
				{Code: "FRIEND", Type: domain.DiscountFixed, Value: money("500"), UsageLimit: intPtr(2)},
			},
		},
	}
}

type fixture struct {
	svc      *RegistrationService
	events   *memEvents
	regs     *memRegistrations
	notifier *mockNotifier
	clock    *fixedClock
}

func newFixture(t *testing.T, event domain.Event) *fixture {
	t.Helper()

	f := &fixture{
		events:   newMemEvents(event),
		regs:     newMemRegistrations(),
		notifier: new(mockNotifier),
		clock:    &fixedClock{at: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.svc = NewRegistrationService(f.events, f.regs, f.notifier,
		WithClock(f.clock.Now),
		WithNoteDebounce(20*time.Millisecond),
	)
	t.Cleanup(f.svc.Close)

	return f
}

func (f *fixture) register(t *testing.T, count int, coupon string) domain.Registration {
	t.Helper()

	reg, err := f.svc.Register(context.Background(), RegisterInput{
		EventID:          "evt-1",
		ParticipantID:    "child-1",
		PrimaryParentID:  "parent-1",
		ParticipantCount: count,
		CouponCode:       coupon,
	}, jana)
	require.NoError(t, err)

	return reg
}

func TestRegister_PricesAndSeedsInstallments(t *testing.T) {
	f := newFixture(t, summerCamp())

	reg := f.register(t, 2, "")

	assert.Equal(t, "2026-0001", reg.RegistrationNumber)
	assert.Equal(t, domain.StatusConfirmed, reg.Status)
	assert.True(t, reg.TotalPrice.Equal(money("9000")), "total = %s", reg.TotalPrice)
	require.Len(t, reg.AppliedDiscounts, 1)
	assert.Equal(t, "Sibling", reg.AppliedDiscounts[0].Name)

	require.Len(t, reg.Payments, 2)
	assert.True(t, reg.Payments[0].Amount.Equal(money("2000")))
	assert.True(t, reg.Payments[1].Amount.Equal(money("7000")))
	require.Len(t, reg.ChangeHistory, 1)
	assert.Equal(t, domain.ActionCreated, reg.ChangeHistory[0].Action)

	second := f.register(t, 1, "")
	assert.Equal(t, "2026-0002", second.RegistrationNumber)
}

func TestRegister_QuoteMatchesRecordedPrice(t *testing.T) {
	f := newFixture(t, summerCamp())
	events := NewEventService(f.events, WithClock(f.clock.Now))

	quote, err := events.Quote(context.Background(), "evt-1", QuoteInput{ParticipantCount: 2, CouponCode: "friend"})
	require.NoError(t, err)

	reg := f.register(t, 2, "friend")
	assert.True(t, quote.Total.Equal(reg.TotalPrice))
	assert.Equal(t, len(quote.AppliedDiscounts), len(reg.AppliedDiscounts))
	assert.Equal(t, "FRIEND", reg.CouponCode)
}

func TestRegister_CountsCouponUseOnce(t *testing.T) {
	f := newFixture(t, summerCamp())

	f.register(t, 1, "friend")

	event, err := f.events.FindByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, event.Pricing.DiscountCodes[1].UsageCount)
	assert.Equal(t, 5, event.Pricing.DiscountCodes[0].UsageCount)
}

func TestRegister_ExhaustedCouponCreatesNothing(t *testing.T) {
	f := newFixture(t, summerCamp())

	_, err := f.svc.Register(context.Background(), RegisterInput{
		EventID:          "evt-1",
		ParticipantID:    "child-1",
		PrimaryParentID:  "parent-1",
		ParticipantCount: 1,
		CouponCode:       "SUMMER10",
	}, jana)

	assert.ErrorIs(t, err, pricing.ErrCouponExhausted)
	n, _ := f.regs.CountByEventID(context.Background(), "evt-1")
	assert.Zero(t, n)
}

func TestRegister_Placement(t *testing.T) {
	event := summerCamp()
	event.RequiresApproval = true
	f := newFixture(t, event)

	first := f.register(t, 3, "")
	assert.Equal(t, domain.StatusConfirmed, first.Status)
	assert.True(t, first.AwaitingApproval)

	second := f.register(t, 2, "")
	assert.Equal(t, domain.StatusWaitlist, second.Status)
	assert.False(t, second.AwaitingApproval)

	third := f.register(t, 1, "")
	assert.Equal(t, domain.StatusConfirmed, third.Status, "one seat is still free")
}

func TestRegister_EndedEvent(t *testing.T) {
	f := newFixture(t, summerCamp())
	f.clock.Advance(365 * 24 * time.Hour)

	_, err := f.svc.Register(context.Background(), RegisterInput{EventID: "evt-1", ParticipantCount: 1}, jana)
	assert.ErrorIs(t, err, domain.ErrEventEnded)

	_, err = f.svc.Register(context.Background(), RegisterInput{EventID: "missing", ParticipantCount: 1}, jana)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRecordPayment_DepositThenFinal(t *testing.T) {
	event := summerCamp()
	event.Pricing.AllowInstallments = false
	f := newFixture(t, event)
	f.notifier.On("Notify", mock.Anything, topic(notify.TopicPaymentRecorded)).Return(nil).Twice()

	reg := f.register(t, 1, "")
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, reg.ID, domain.PaymentInput{Type: domain.PaymentDeposit, Amount: money("2000")}, jana)
	require.NoError(t, err)
	updated, err := f.svc.RecordPayment(ctx, reg.ID, domain.PaymentInput{Type: domain.PaymentFinal, Amount: money("3000")}, jana)
	require.NoError(t, err)

	assert.True(t, updated.AmountPaid.Equal(money("5000")))
	assert.Equal(t, domain.PaymentPaid, updated.PaymentStatus())
	assert.Len(t, updated.ChangeHistory, 3)

	stored, err := f.svc.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, stored.AmountPaid.Equal(money("5000")))
	f.notifier.AssertExpectations(t)
}

func TestRecordPayment_IdempotencyKey(t *testing.T) {
	f := newFixture(t, summerCamp())
	f.notifier.On("Notify", mock.Anything, topic(notify.TopicPaymentRecorded)).Return(nil).Once()

	reg := f.register(t, 1, "")
	in := domain.PaymentInput{Type: domain.PaymentDeposit, Amount: money("2000"), IdempotencyKey: "bank-tx-42"}

	_, err := f.svc.RecordPayment(context.Background(), reg.ID, in, jana)
	require.NoError(t, err)
	again, err := f.svc.RecordPayment(context.Background(), reg.ID, in, jana)
	require.NoError(t, err)

	assert.True(t, again.AmountPaid.Equal(money("2000")))
	assert.Len(t, again.ChangeHistory, 2)
	f.notifier.AssertExpectations(t)
}

func TestRecordPayment_RejectsNonPositive(t *testing.T) {
	f := newFixture(t, summerCamp())
	reg := f.register(t, 1, "")

	_, err := f.svc.RecordPayment(context.Background(), reg.ID, domain.PaymentInput{Type: domain.PaymentOther, Amount: money("0")}, jana)
	assert.ErrorIs(t, err, domain.ErrNonPositiveAmount)

	stored, _ := f.svc.Get(context.Background(), reg.ID)
	assert.Len(t, stored.ChangeHistory, 1)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestCancel_NotifiesAndKeepsLedger(t *testing.T) {
	f := newFixture(t, summerCamp())
	f.notifier.On("Notify", mock.Anything, topic(notify.TopicPaymentRecorded)).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(msg notify.Message) bool {
		return msg.Topic == notify.TopicRegistrationCancelled && msg.Body != ""
	})).Return(nil).Once()

	reg := f.register(t, 1, "")
	reg, err := f.svc.RecordPayment(context.Background(), reg.ID, domain.PaymentInput{Type: domain.PaymentDeposit, Amount: money("2000")}, jana)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), reg.ID, "rodina se odhlásila", jana)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, reg.Payments, cancelled.Payments)
	require.Len(t, cancelled.ChangeHistory, 3)
	last := cancelled.ChangeHistory[2]
	assert.Equal(t, domain.ActionCancelled, last.Action)
	assert.Equal(t, "rodina se odhlásila", *last.Note)

	_, err = f.svc.Cancel(context.Background(), reg.ID, "again", jana)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	f.notifier.AssertExpectations(t)
}

func TestPromoteAndRestore(t *testing.T) {
	f := newFixture(t, summerCamp())
	f.notifier.On("Notify", mock.Anything, topic(notify.TopicRegistrationCancelled)).Return(nil)
	ctx := context.Background()

	full := f.register(t, 4, "")
	waiting := f.register(t, 1, "")
	require.Equal(t, domain.StatusWaitlist, waiting.Status)

	_, err := f.svc.Promote(ctx, waiting.ID, jana)
	assert.ErrorIs(t, err, domain.ErrNoCapacity)

	_, err = f.svc.Cancel(ctx, full.ID, "", jana)
	require.NoError(t, err)

	promoted, err := f.svc.Promote(ctx, waiting.ID, jana)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, promoted.Status)
	assert.Equal(t, domain.ActionMovedFromWaitlist, promoted.ChangeHistory[len(promoted.ChangeHistory)-1].Action)

	restored, err := f.svc.Restore(ctx, full.ID, jana)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitlist, restored.Status, "the seats were given away meanwhile")
}

func TestPromoteAndRestore_AfterEventEnd(t *testing.T) {
	f := newFixture(t, summerCamp())
	f.notifier.On("Notify", mock.Anything, topic(notify.TopicRegistrationCancelled)).Return(nil)
	ctx := context.Background()

	full := f.register(t, 4, "")
	waiting := f.register(t, 1, "")
	_, err := f.svc.Cancel(ctx, full.ID, "", jana)
	require.NoError(t, err)

	f.clock.Advance(100 * 24 * time.Hour)

	_, err = f.svc.Restore(ctx, full.ID, jana)
	assert.ErrorIs(t, err, domain.ErrEventEnded)
	_, err = f.svc.Promote(ctx, waiting.ID, jana)
	assert.ErrorIs(t, err, domain.ErrEventEnded)

	stored, err := f.svc.Get(ctx, full.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	stored, err = f.svc.Get(ctx, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitlist, stored.Status)
}

func TestApprove(t *testing.T) {
	event := summerCamp()
	event.RequiresApproval = true
	f := newFixture(t, event)

	reg := f.register(t, 1, "")
	approved, err := f.svc.Approve(context.Background(), reg.ID, jana)
	require.NoError(t, err)
	assert.False(t, approved.AwaitingApproval)

	_, err = f.svc.Approve(context.Background(), reg.ID, jana)
	assert.ErrorIs(t, err, domain.ErrNotAwaitingApproval)

	_, err = f.svc.Approve(context.Background(), "missing", jana)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestHistory(t *testing.T) {
	event := summerCamp()
	event.RequiresApproval = true
	f := newFixture(t, event)
	ctx := context.Background()

	reg := f.register(t, 1, "")
	_, err := f.svc.Approve(ctx, reg.ID, jana)
	require.NoError(t, err)

	history, err := f.svc.History(ctx, reg.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ActionCreated, history[0].Action)
	assert.Equal(t, domain.ActionApproved, history[1].Action)
	assert.Equal(t, "Jana", history[1].Actor)

	_, err = f.svc.History(ctx, "missing")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestInternalNoteDrafts(t *testing.T) {
	f := newFixture(t, summerCamp())
	ctx := context.Background()
	reg := f.register(t, 1, "")

	for _, draft := range []string{"a", "al", "allergic to nuts"} {
		require.NoError(t, f.svc.QueueInternalNote(ctx, reg.ID, draft, jana))
	}

	assert.Eventually(t, func() bool {
		stored, err := f.svc.Get(ctx, reg.ID)
		return err == nil && stored.InternalNote == "allergic to nuts"
	}, time.Second, 5*time.Millisecond)

	stored, err := f.svc.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Len(t, stored.ChangeHistory, 2, "only the last draft is saved")
}

func TestInternalNoteDrafts_FlushedOnClose(t *testing.T) {
	f := newFixture(t, summerCamp())
	ctx := context.Background()
	reg := f.register(t, 1, "")

	svc := NewRegistrationService(f.events, f.regs, f.notifier, WithClock(f.clock.Now), WithNoteDebounce(time.Hour))
	require.NoError(t, svc.QueueInternalNote(ctx, reg.ID, "call after 6pm", jana))
	svc.Close()

	stored, err := f.svc.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "call after 6pm", stored.InternalNote)
	assert.ErrorIs(t, svc.QueueInternalNote(ctx, reg.ID, "late", jana), ErrShuttingDown)
}

func TestInternalNote_FrozenWhenCancelled(t *testing.T) {
	f := newFixture(t, summerCamp())
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	reg := f.register(t, 1, "")

	updated, err := f.svc.UpdateInternalNote(ctx, reg.ID, "vegetarian", jana)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionInternalNote, updated.ChangeHistory[1].Action)

	_, err = f.svc.Cancel(ctx, reg.ID, "", jana)
	require.NoError(t, err)

	_, err = f.svc.UpdateInternalNote(ctx, reg.ID, "changed", jana)
	assert.ErrorIs(t, err, domain.ErrRegistrationCancelled)
	assert.ErrorIs(t, f.svc.QueueInternalNote(ctx, reg.ID, "changed", jana), domain.ErrRegistrationCancelled)
}

func TestSubmitParentNote(t *testing.T) {
	f := newFixture(t, summerCamp())
	reg := f.register(t, 1, "")

	updated, err := f.svc.SubmitParentNote(context.Background(), reg.ID, "Tom sleeps badly")
	require.NoError(t, err)
	assert.Equal(t, "Tom sleeps badly", updated.ParentNote)

	_, err = f.svc.SubmitParentNote(context.Background(), reg.ID, "never mind")
	assert.ErrorIs(t, err, domain.ErrParentNoteImmutable)
}

func TestList_FiltersByPaymentStatus(t *testing.T) {
	f := newFixture(t, summerCamp())
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	paid := f.register(t, 1, "")
	f.register(t, 1, "")
	_, err := f.svc.RecordPayment(ctx, paid.ID, domain.PaymentInput{Type: domain.PaymentOther, Amount: money("5000")}, jana)
	require.NoError(t, err)

	status := domain.PaymentPaid
	got, err := f.svc.List(ctx, "evt-1", ListFilter{PaymentStatus: &status})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, paid.ID, got[0].ID)

	confirmed := domain.StatusConfirmed
	got, err = f.svc.List(ctx, "evt-1", ListFilter{Status: &confirmed})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.svc.List(ctx, "missing", ListFilter{})
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestSendDueReminders(t *testing.T) {
	f := newFixture(t, summerCamp())
	f.notifier.On("Notify", mock.Anything, topic(notify.TopicInstallmentDue)).Return(nil)
	ctx := context.Background()

	f.register(t, 1, "")

	sent, err := f.svc.SendDueReminders(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent, "deposit is due in a month")

	f.clock.Advance(25 * 24 * time.Hour)
	sent, err = f.svc.SendDueReminders(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = f.svc.SendDueReminders(ctx, 60*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}
