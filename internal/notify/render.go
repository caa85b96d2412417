package notify

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vietanh2810/campreg-api/internal/domain"
)

const (
	keyCancelledSubject = "registration.cancelled.subject"
	keyCancelledBody    = "registration.cancelled.body"
	keyCancelledNoNote  = "registration.cancelled.body_no_reason"
	keyPaymentSubject   = "registration.payment_recorded.subject"
	keyPaymentBody      = "registration.payment_recorded.body"
	keyDueSubject       = "registration.installment_due.subject"
	keyDueBody          = "registration.installment_due.body"
)

func init() {
	lang := language.English

	message.SetString(lang, keyCancelledSubject, "Registration %s cancelled")
	message.SetString(lang, keyCancelledBody, "The registration %s for %s was cancelled. Reason: %s")
	message.SetString(lang, keyCancelledNoNote, "The registration %s for %s was cancelled.")
	message.SetString(lang, keyPaymentSubject, "Payment received for registration %s")
	message.SetString(lang, keyPaymentBody, "We received %s for %s. Paid so far: %s of %s.")
	message.SetString(lang, keyDueSubject, "Payment due for registration %s")
	message.SetString(lang, keyDueBody, "The %s payment of %s for %s is due on %s.")
}

var printer = message.NewPrinter(language.English)

func money(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", d.InexactFloat64())
}

func recipients(r domain.Registration) []string {
	to := []string{r.PrimaryParentID}
	if r.SecondaryParentID != nil && *r.SecondaryParentID != "" {
		to = append(to, *r.SecondaryParentID)
	}
	return to
}

func base(topic Topic, r domain.Registration) Message {
	return Message{
		Topic:              topic,
		RegistrationID:     r.ID,
		RegistrationNumber: r.RegistrationNumber,
		EventID:            r.EventID,
		Recipients:         recipients(r),
	}
}

func Cancelled(r domain.Registration, e domain.Event, reason string) Message {
	msg := base(TopicRegistrationCancelled, r)
	msg.Subject = printer.Sprintf(keyCancelledSubject, r.RegistrationNumber)
	if reason == "" {
		msg.Body = printer.Sprintf(keyCancelledNoNote, r.RegistrationNumber, e.Name)
	} else {
		msg.Body = printer.Sprintf(keyCancelledBody, r.RegistrationNumber, e.Name, reason)
	}
	return msg
}

func PaymentRecorded(r domain.Registration, e domain.Event, p domain.Payment) Message {
	msg := base(TopicPaymentRecorded, r)
	msg.Subject = printer.Sprintf(keyPaymentSubject, r.RegistrationNumber)
	msg.Body = printer.Sprintf(keyPaymentBody, money(p.Amount), e.Name, money(r.AmountPaid), money(r.TotalPrice))
	return msg
}

func InstallmentDue(r domain.Registration, e domain.Event, p domain.Payment) Message {
	msg := base(TopicInstallmentDue, r)
	msg.Subject = printer.Sprintf(keyDueSubject, r.RegistrationNumber)
	due := ""
	if p.DueDate != nil {
		due = p.DueDate.Format("2006-01-02")
	}
	msg.Body = printer.Sprintf(keyDueBody, string(p.Type), money(p.Amount), e.Name, due)
	return msg
}
