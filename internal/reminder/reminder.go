// Package reminder schedules the installment due reminders.
package reminder

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const runTimeout = 4 * time.Minute

// Sender requests a reminder for every unpaid installment due within the
// lead time.
type Sender interface {
	SendDueReminders(ctx context.Context, within time.Duration) (int, error)
}

type Scheduler struct {
	cron   *cron.Cron
	sender Sender
	lead   time.Duration
}

func NewScheduler(schedule string, leadDays int, sender Sender) (*Scheduler, error) {
	logger := cronLogger{zap.S().Named("reminder")}

	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
		sender: sender,
		lead:   time.Duration(leadDays) * 24 * time.Hour,
	}

	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, err
	}

	return s, nil
}

// Run sends the reminders once.
func (s *Scheduler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	sent, err := s.sender.SendDueReminders(ctx, s.lead)
	if err != nil {
		zap.L().Error("installment reminders failed", zap.Int("sent", sent), zap.Error(err))
		return
	}

	zap.L().Info("installment reminders requested", zap.Int("sent", sent))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running one, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
