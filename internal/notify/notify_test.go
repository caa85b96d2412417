package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vietanh2810/campreg-api/internal/domain"
)

type recorder struct {
	mu      sync.Mutex
	got     []Message
	fail    bool
	entered chan struct{}
	release chan struct{}
}

func (r *recorder) Notify(_ context.Context, msg Message) error {
	if r.entered != nil {
		select {
		case r.entered <- struct{}{}:
		default:
		}
	}
	if r.release != nil {
		<-r.release
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, msg)
	if r.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (r *recorder) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.got...)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, 8)

	for _, n := range []string{"2026-0001", "2026-0002", "2026-0003"} {
		require.NoError(t, d.Notify(context.Background(), Message{RegistrationNumber: n}))
	}
	require.NoError(t, d.Close(context.Background()))

	got := rec.messages()
	require.Len(t, got, 3)
	assert.Equal(t, "2026-0001", got[0].RegistrationNumber)
	assert.Equal(t, "2026-0003", got[2].RegistrationNumber)

	assert.ErrorIs(t, d.Notify(context.Background(), Message{}), ErrDispatcherClosed)
}

func TestDispatcher_FailuresAreLoggedOnly(t *testing.T) {
	logs := observeLogs(t)
	d := NewDispatcher(&recorder{fail: true}, 1)

	require.NoError(t, d.Notify(context.Background(), Message{Topic: TopicPaymentRecorded}))
	require.NoError(t, d.Close(context.Background()))

	failures := logs.FilterMessage("notification delivery failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, string(TopicPaymentRecorded), failures[0].ContextMap()["topic"])
}

func TestDispatcher_NeverBlocksCaller(t *testing.T) {
	logs := observeLogs(t)
	rec := &recorder{entered: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(rec, 1)

	require.NoError(t, d.Notify(context.Background(), Message{RegistrationNumber: "in-flight"}))
	<-rec.entered

	require.NoError(t, d.Notify(context.Background(), Message{RegistrationNumber: "queued"}))

	errc := make(chan error, 1)
	go func() { errc <- d.Notify(context.Background(), Message{RegistrationNumber: "dropped"}) }()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow delivery")
	}
	assert.Equal(t, 1, logs.FilterMessage("dropping notification, queue is full").Len())

	close(rec.release)
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, rec.messages(), 2)
}

func TestRender(t *testing.T) {
	secondary := "parent-2"
	reg := domain.Registration{
		ID:                 "r-1",
		EventID:            "evt-1",
		RegistrationNumber: "2026-0007",
		PrimaryParentID:    "parent-1",
		SecondaryParentID:  &secondary,
		TotalPrice:         decimal.NewFromInt(500),
		AmountPaid:         decimal.NewFromInt(200),
	}
	event := domain.Event{ID: "evt-1", Name: "Summer camp"}

	msg := Cancelled(reg, event, "rodina se odhlásila")
	assert.Equal(t, TopicRegistrationCancelled, msg.Topic)
	assert.Equal(t, []string{"parent-1", "parent-2"}, msg.Recipients)
	assert.Equal(t, "Registration 2026-0007 cancelled", msg.Subject)
	assert.Contains(t, msg.Body, "rodina se odhlásila")

	msg = PaymentRecorded(reg, event, domain.Payment{Amount: decimal.NewFromInt(200)})
	assert.Equal(t, "We received 200.00 for Summer camp. Paid so far: 200.00 of 500.00.", msg.Body)

	due := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	msg = InstallmentDue(reg, event, domain.Payment{Type: domain.PaymentFinal, Amount: decimal.NewFromInt(300), DueDate: &due})
	assert.Equal(t, TopicInstallmentDue, msg.Topic)
	assert.Equal(t, "The final payment of 300.00 for Summer camp is due on 2026-06-30.", msg.Body)
}
