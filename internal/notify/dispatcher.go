package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
)

const sendTimeout = 10 * time.Second

// Dispatcher queues messages and delivers them from a single goroutine.
// Notify never waits for delivery and delivery failures are only logged.
type Dispatcher struct {
	next  Notifier
	queue chan Message
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(next Notifier, size int) *Dispatcher {
	if size < 1 {
		size = 1
	}

	d := &Dispatcher{
		next:  next,
		queue: make(chan Message, size),
		done:  make(chan struct{}),
	}
	go d.run()

	return d
}

func (d *Dispatcher) Notify(_ context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		zap.L().Warn("dropping notification, queue is full",
			zap.String("topic", string(msg.Topic)),
			zap.String("registration_number", msg.RegistrationNumber),
		)
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := d.next.Notify(ctx, msg); err != nil {
			zap.L().Error("notification delivery failed",
				zap.String("topic", string(msg.Topic)),
				zap.String("registration_number", msg.RegistrationNumber),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Close stops accepting messages and waits until the queued ones are
// delivered or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
