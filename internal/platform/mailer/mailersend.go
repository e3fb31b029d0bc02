package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/unionhall/pit-reservations/pkg/logger"
)

type MailerSend struct {
	client    *mailersend.Mailersend
	fromEmail string
	fromName  string
}

func NewMailerSend(apiKey, fromEmail, fromName string) *MailerSend {
	return &MailerSend{
		client:    mailersend.NewMailersend(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (m *MailerSend) Send(toEmail, toName, subject, text, html string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(mailersend.From{Name: m.fromName, Email: m.fromEmail})
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	msg.SetText(text)
	if html != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("mailersend send: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("mailersend send: unexpected status %d", res.StatusCode)
	}

	msgID := res.Header.Get("X-Message-Id")
	logger.Info("email sent", "to", toEmail, "subject", subject, "message_id", msgID)
	return msgID, nil
}

func (m *MailerSend) SendPaymentInstructions(email, name, paymentCode string, amount float64, dueDate string) error {
	subject := "Reservation usage fee"
	text := fmt.Sprintf(
		"Hello %s,\n\nYour pit reservation is confirmed. A usage fee of %.2f is due by %s.\n\nPayment code: %s\n\nUnpaid fees expire after the due date.\n",
		name, amount, dueDate, paymentCode,
	)
	html := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your pit reservation is confirmed. A usage fee of <strong>%.2f</strong> is due by <strong>%s</strong>.</p><p>Payment code: <code>%s</code></p><p>Unpaid fees expire after the due date.</p>",
		name, amount, dueDate, paymentCode,
	)
	_, err := m.Send(email, name, subject, text, html)
	return err
}
