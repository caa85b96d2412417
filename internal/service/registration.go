package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vietanh2810/campreg-api/internal/debounce"
	"github.com/vietanh2810/campreg-api/internal/domain"
	"github.com/vietanh2810/campreg-api/internal/notify"
	"github.com/vietanh2810/campreg-api/internal/pricing"
	"github.com/vietanh2810/campreg-api/internal/repository"
)

var (
	ErrRegistrationNotFound     = repository.ErrRegistrationNotFound
	ErrRegistrationNumberExists = repository.ErrRegistrationNumberExists

	ErrShuttingDown = errors.New("service is shutting down")
)

const (
	numberAttempts = 3
	commitTimeout  = 10 * time.Second
)

type RegistrationRepository interface {
	Create(ctx context.Context, registration domain.Registration) (domain.Registration, error)
	FindByID(ctx context.Context, id string) (domain.Registration, error)
	Update(ctx context.Context, registration domain.Registration) (domain.Registration, error)
	FindByEventID(ctx context.Context, eventID string, status *domain.Status) ([]domain.Registration, error)
	FindActive(ctx context.Context) ([]domain.Registration, error)
	OccupiedSeats(ctx context.Context, eventID string) (int, error)
	CountByEventID(ctx context.Context, eventID string) (int, error)
}

type RegisterInput struct {
	EventID           string
	ParticipantID     string
	PrimaryParentID   string
	SecondaryParentID *string
	ParticipantCount  int
	CouponCode        string
	ParentNote        string
}

type ListFilter struct {
	Status        *domain.Status
	PaymentStatus *domain.PaymentStatus
}

type noteDraft struct {
	note  string
	actor domain.Actor
}

type RegistrationService struct {
	events   EventRepository
	repo     RegistrationRepository
	notifier notify.Notifier
	now      func() time.Time
	notes    *debounce.Debouncer[string, noteDraft]
}

func NewRegistrationService(events EventRepository, repo RegistrationRepository, notifier notify.Notifier, opts ...Option) *RegistrationService {
	o := newOptions(opts)

	s := &RegistrationService{
		events:   events,
		repo:     repo,
		notifier: notifier,
		now:      o.now,
	}
	s.notes = debounce.New[string, noteDraft](o.noteDebounce, s.commitNote)

	return s
}

// Register prices and records a new registration from the intake form.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput, actor domain.Actor) (domain.Registration, error) {
	event, err := s.events.FindByID(ctx, in.EventID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}

	now := s.now()
	if event.HasEnded(now) {
		return domain.Registration{}, domain.ErrEventEnded
	}

	price, err := pricing.ComputeTotal(event.Pricing, pricing.Request{
		ParticipantCount: in.ParticipantCount,
		CouponCode:       in.CouponCode,
		At:               now,
	})
	if err != nil {
		return domain.Registration{}, fmt.Errorf("pricing.ComputeTotal -> %w", err)
	}

	placement, err := s.placement(ctx, event, in.ParticipantCount)
	if err != nil {
		return domain.Registration{}, err
	}

	count, err := s.repo.CountByEventID(ctx, event.ID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.CountByEventID -> %w", err)
	}

	var created domain.Registration
	for attempt := 1; ; attempt++ {
		reg := domain.NewRegistration(domain.NewRegistrationParams{
			EventID:            event.ID,
			ParticipantID:      in.ParticipantID,
			PrimaryParentID:    in.PrimaryParentID,
			SecondaryParentID:  in.SecondaryParentID,
			RegistrationNumber: registrationNumber(event, count+attempt),
			ParticipantCount:   in.ParticipantCount,
			CouponCode:         price.CouponCode,
			ParentNote:         in.ParentNote,
			Price:              price.Snapshot(event.Pricing),
			Placement:          placement,
		}, now, actor)
		if err = reg.CheckInvariants(); err != nil {
			return domain.Registration{}, fmt.Errorf("reg.CheckInvariants -> %w", err)
		}

		created, err = s.repo.Create(ctx, *reg)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrRegistrationNumberExists) || attempt == numberAttempts {
			return domain.Registration{}, fmt.Errorf("s.repo.Create -> %w", err)
		}
	}

	if price.CouponCode != "" {
		s.consumeCoupon(ctx, event, price.CouponCode)
	}

	zap.L().Info("registration created",
		zap.String("registration_id", created.ID),
		zap.String("registration_number", created.RegistrationNumber),
		zap.String("status", string(created.Status)),
		zap.String("total", created.TotalPrice.StringFixed(2)),
	)

	return created, nil
}

// consumeCoupon counts one use of the code. The registration already exists
// at this point so a failure is logged rather than returned.
func (s *RegistrationService) consumeCoupon(ctx context.Context, event domain.Event, code string) {
	i, ok := pricing.FindCode(event.Pricing, code)
	if !ok {
		return
	}

	event.Pricing.DiscountCodes[i].UsageCount++
	event.UpdatedAt = s.now()

	if _, err := s.events.Update(ctx, event); err != nil {
		zap.L().Error("failed to count coupon use",
			zap.String("event_id", event.ID),
			zap.String("code", code),
			zap.Error(err),
		)
	}
}

func (s *RegistrationService) placement(ctx context.Context, event domain.Event, seats int) (domain.Placement, error) {
	occupied, err := s.repo.OccupiedSeats(ctx, event.ID)
	if err != nil {
		return domain.Placement{}, fmt.Errorf("s.repo.OccupiedSeats -> %w", err)
	}

	return domain.Placement{
		AtCapacity:       event.IsFull(occupied, seats),
		RequiresApproval: event.RequiresApproval,
	}, nil
}

func registrationNumber(event domain.Event, seq int) string {
	year := event.StartsAt.Year()
	if event.StartsAt.IsZero() {
		year = event.CreatedAt.Year()
	}
	return fmt.Sprintf("%d-%04d", year, seq)
}

func (s *RegistrationService) Get(ctx context.Context, id string) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return reg, nil
}

func (s *RegistrationService) History(ctx context.Context, id string) ([]domain.ChangeHistoryEntry, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return reg.ChangeHistory, nil
}

// List returns the registrations of an event, filtered by status and by the
// derived payment status.
func (s *RegistrationService) List(ctx context.Context, eventID string, filter ListFilter) ([]domain.Registration, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, fmt.Errorf("s.events.FindByID -> %w", err)
	}

	regs, err := s.repo.FindByEventID(ctx, eventID, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByEventID -> %w", err)
	}

	if filter.PaymentStatus == nil {
		return regs, nil
	}

	filtered := make([]domain.Registration, 0, len(regs))
	for _, r := range regs {
		if r.PaymentStatus() == *filter.PaymentStatus {
			filtered = append(filtered, r)
		}
	}

	return filtered, nil
}

// RecordPayment adds a payment to the ledger. A repeated idempotency key
// returns the registration unchanged.
func (s *RegistrationService) RecordPayment(ctx context.Context, id string, in domain.PaymentInput, actor domain.Actor) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if reg.HasPayment(in.IdempotencyKey) {
		return reg, nil
	}

	payment, err := reg.RecordPayment(in, s.now(), actor)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("reg.RecordPayment -> %w", err)
	}

	updated, err := s.save(ctx, &reg)
	if err != nil {
		return domain.Registration{}, err
	}

	s.notifyWithEvent(ctx, updated, func(event domain.Event) notify.Message {
		return notify.PaymentRecorded(updated, event, payment)
	})

	return updated, nil
}

func (s *RegistrationService) Cancel(ctx context.Context, id, reason string, actor domain.Actor) (domain.Registration, error) {
	reg, event, err := s.load(ctx, id)
	if err != nil {
		return domain.Registration{}, err
	}

	if err = reg.Cancel(reason, event.EndsAt, s.now(), actor); err != nil {
		return domain.Registration{}, fmt.Errorf("reg.Cancel -> %w", err)
	}

	updated, err := s.save(ctx, reg)
	if err != nil {
		return domain.Registration{}, err
	}
	s.notes.Discard(id)

	s.send(ctx, notify.Cancelled(updated, event, reason))

	return updated, nil
}

func (s *RegistrationService) Restore(ctx context.Context, id string, actor domain.Actor) (domain.Registration, error) {
	reg, event, err := s.load(ctx, id)
	if err != nil {
		return domain.Registration{}, err
	}

	now := s.now()
	if event.HasEnded(now) {
		return domain.Registration{}, domain.ErrEventEnded
	}

	placement, err := s.placement(ctx, event, reg.ParticipantCount)
	if err != nil {
		return domain.Registration{}, err
	}

	if err = reg.Restore(placement, now, actor); err != nil {
		return domain.Registration{}, fmt.Errorf("reg.Restore -> %w", err)
	}

	return s.save(ctx, reg)
}

func (s *RegistrationService) Promote(ctx context.Context, id string, actor domain.Actor) (domain.Registration, error) {
	reg, event, err := s.load(ctx, id)
	if err != nil {
		return domain.Registration{}, err
	}

	now := s.now()
	if event.HasEnded(now) {
		return domain.Registration{}, domain.ErrEventEnded
	}

	placement, err := s.placement(ctx, event, reg.ParticipantCount)
	if err != nil {
		return domain.Registration{}, err
	}

	if err = reg.PromoteFromWaitlist(placement, now, actor); err != nil {
		return domain.Registration{}, fmt.Errorf("reg.PromoteFromWaitlist -> %w", err)
	}

	return s.save(ctx, reg)
}

func (s *RegistrationService) Approve(ctx context.Context, id string, actor domain.Actor) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if err = reg.Approve(s.now(), actor); err != nil {
		return domain.Registration{}, fmt.Errorf("reg.Approve -> %w", err)
	}

	return s.save(ctx, &reg)
}

// UpdateInternalNote saves the note immediately and drops any pending draft.
func (s *RegistrationService) UpdateInternalNote(ctx context.Context, id, note string, actor domain.Actor) (domain.Registration, error) {
	s.notes.Discard(id)

	return s.updateInternalNote(ctx, id, note, actor)
}

func (s *RegistrationService) updateInternalNote(ctx context.Context, id, note string, actor domain.Actor) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if err = reg.UpdateInternalNote(note, s.now(), actor); err != nil {
		return domain.Registration{}, fmt.Errorf("reg.UpdateInternalNote -> %w", err)
	}

	return s.save(ctx, &reg)
}

// QueueInternalNote accepts a note draft. Only the last draft submitted
// within the quiet period is saved.
func (s *RegistrationService) QueueInternalNote(ctx context.Context, id, note string, actor domain.Actor) error {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if reg.IsCancelled() {
		return domain.ErrRegistrationCancelled
	}

	if !s.notes.Submit(id, noteDraft{note: note, actor: actor}) {
		return ErrShuttingDown
	}

	return nil
}

func (s *RegistrationService) commitNote(id string, draft noteDraft) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	if _, err := s.updateInternalNote(ctx, id, draft.note, draft.actor); err != nil {
		zap.L().Error("failed to save internal note draft",
			zap.String("registration_id", id),
			zap.Error(err),
		)
	}
}

// SubmitParentNote lets a parent add a note when none was given at intake.
func (s *RegistrationService) SubmitParentNote(ctx context.Context, id, note string) (domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if err = reg.SetParentNote(note); err != nil {
		return domain.Registration{}, fmt.Errorf("reg.SetParentNote -> %w", err)
	}
	reg.UpdatedAt = s.now()

	return s.save(ctx, &reg)
}

// SendDueReminders notifies the parents of every unpaid installment due by
// the deadline and returns how many reminders were requested.
func (s *RegistrationService) SendDueReminders(ctx context.Context, within time.Duration) (int, error) {
	regs, err := s.repo.FindActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("s.repo.FindActive -> %w", err)
	}

	deadline := s.now().Add(within)
	events := make(map[string]domain.Event)
	sent := 0

	for _, reg := range regs {
		due := reg.UnpaidInstallmentsDueBy(deadline)
		if len(due) == 0 {
			continue
		}

		event, ok := events[reg.EventID]
		if !ok {
			event, err = s.events.FindByID(ctx, reg.EventID)
			if err != nil {
				return sent, fmt.Errorf("s.events.FindByID -> %w", err)
			}
			events[reg.EventID] = event
		}

		for _, p := range due {
			s.send(ctx, notify.InstallmentDue(reg, event, p))
			sent++
		}
	}

	return sent, nil
}

// Close saves the pending note drafts.
func (s *RegistrationService) Close() {
	s.notes.Close()
}

func (s *RegistrationService) load(ctx context.Context, id string) (*domain.Registration, domain.Event, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	event, err := s.events.FindByID(ctx, reg.EventID)
	if err != nil {
		return nil, domain.Event{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}

	return &reg, event, nil
}

func (s *RegistrationService) save(ctx context.Context, reg *domain.Registration) (domain.Registration, error) {
	if err := reg.CheckInvariants(); err != nil {
		return domain.Registration{}, fmt.Errorf("reg.CheckInvariants -> %w", err)
	}

	updated, err := s.repo.Update(ctx, *reg)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.Update -> %w", err)
	}

	return updated, nil
}

func (s *RegistrationService) notifyWithEvent(ctx context.Context, reg domain.Registration, build func(domain.Event) notify.Message) {
	event, err := s.events.FindByID(ctx, reg.EventID)
	if err != nil {
		zap.L().Error("skipping notification, event not loaded",
			zap.String("registration_id", reg.ID),
			zap.Error(err),
		)
		return
	}

	s.send(ctx, build(event))
}

func (s *RegistrationService) send(ctx context.Context, msg notify.Message) {
	if err := s.notifier.Notify(ctx, msg); err != nil {
		zap.L().Warn("notification not queued",
			zap.String("topic", string(msg.Topic)),
			zap.String("registration_id", msg.RegistrationID),
			zap.Error(err),
		)
	}
}
