// Package notify builds the outbound notification requests of the engine and
// hands them to the delivery collaborator without waiting for the outcome.
package notify

import (
	"context"

	"go.uber.org/zap"
)

type Topic string

const (
	TopicRegistrationCancelled Topic = "registration.cancelled"
	TopicPaymentRecorded       Topic = "registration.payment_recorded"
	TopicInstallmentDue        Topic = "registration.installment_due"
)

// Message is one email request. Recipients are parent identifiers; resolving
// them to addresses belongs to the delivery service.
type Message struct {
	Topic              Topic
	RegistrationID     string
	RegistrationNumber string
	EventID            string
	Recipients         []string
	Subject            string
	Body               string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogSender stands in for the delivery service by logging every request.
type LogSender struct{}

func (LogSender) Notify(_ context.Context, msg Message) error {
	zap.L().Info("notification requested",
		zap.String("topic", string(msg.Topic)),
		zap.String("registration_number", msg.RegistrationNumber),
		zap.Strings("recipients", msg.Recipients),
		zap.String("subject", msg.Subject),
	)

	return nil
}
