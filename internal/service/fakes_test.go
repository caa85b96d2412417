package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/notify"
)

// memEvents and memRegistrations stand in for the record store. Values are
// copied on the way in and out, like a real store would.

type memEvents struct {
	mu     sync.Mutex
	events map[string]domain.Event
}

func newMemEvents(events ...domain.Event) *memEvents {
	m := &memEvents{events: make(map[string]domain.Event)}
	for _, e := range events {
		m.events[e.ID] = e
	}
	return m
}

func (m *memEvents) Create(_ context.Context, event domain.Event) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = cloneEvent(event)
	return event, nil
}

func (m *memEvents) FindByID(_ context.Context, id string) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return domain.Event{}, ErrEventNotFound
	}
	return cloneEvent(e), nil
}

func (m *memEvents) Update(_ context.Context, event domain.Event) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.ID]; !ok {
		return domain.Event{}, ErrEventNotFound
	}
	m.events[event.ID] = cloneEvent(event)
	return event, nil
}

func cloneEvent(e domain.Event) domain.Event {
	e.Pricing.Discounts = append([]domain.Discount(nil), e.Pricing.Discounts...)
	e.Pricing.DiscountCodes = append([]domain.DiscountCode(nil), e.Pricing.DiscountCodes...)
	return e
}

type memRegistrations struct {
	mu   sync.Mutex
	regs map[string]domain.Registration
}

func newMemRegistrations() *memRegistrations {
	return &memRegistrations{regs: make(map[string]domain.Registration)}
}

func (m *memRegistrations) Create(_ context.Context, reg domain.Registration) (domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regs {
		if r.EventID == reg.EventID && r.RegistrationNumber == reg.RegistrationNumber {
			return domain.Registration{}, ErrRegistrationNumberExists
		}
	}
	m.regs[reg.ID] = cloneRegistration(reg)
	return reg, nil
}

func (m *memRegistrations) FindByID(_ context.Context, id string) (domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return domain.Registration{}, ErrRegistrationNotFound
	}
	return cloneRegistration(r), nil
}

func (m *memRegistrations) Update(_ context.Context, reg domain.Registration) (domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regs[reg.ID]; !ok {
		return domain.Registration{}, ErrRegistrationNotFound
	}
	m.regs[reg.ID] = cloneRegistration(reg)
	return reg, nil
}

func (m *memRegistrations) FindByEventID(_ context.Context, eventID string, status *domain.Status) ([]domain.Registration, error) {
	return m.filter(func(r domain.Registration) bool {
		return r.EventID == eventID && (status == nil || r.Status == *status)
	}), nil
}

func (m *memRegistrations) FindActive(_ context.Context) ([]domain.Registration, error) {
	return m.filter(func(r domain.Registration) bool {
		return !r.IsCancelled()
	}), nil
}

func (m *memRegistrations) OccupiedSeats(_ context.Context, eventID string) (int, error) {
	seats := 0
	for _, r := range m.filter(func(r domain.Registration) bool {
		return r.EventID == eventID && r.Status == domain.StatusConfirmed
	}) {
		seats += r.ParticipantCount
	}
	return seats, nil
}

func (m *memRegistrations) CountByEventID(_ context.Context, eventID string) (int, error) {
	return len(m.filter(func(r domain.Registration) bool { return r.EventID == eventID })), nil
}

func (m *memRegistrations) filter(keep func(domain.Registration) bool) []domain.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Registration
	for _, r := range m.regs {
		if keep(r) {
			out = append(out, cloneRegistration(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RegistrationNumber < out[j].RegistrationNumber
	})
	return out
}

func cloneRegistration(r domain.Registration) domain.Registration {
	r.Payments = append([]domain.Payment(nil), r.Payments...)
	r.ChangeHistory = append([]domain.ChangeHistoryEntry(nil), r.ChangeHistory...)
	r.AppliedDiscounts = append([]domain.AppliedDiscount(nil), r.AppliedDiscounts...)
	return r
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, msg notify.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func topic(t notify.Topic) interface{} {
	return mock.MatchedBy(func(msg notify.Message) bool { return msg.Topic == t })
}

type fixedClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}
