package mailer

import (
	"github.com/unionhall/pit-reservations/pkg/logger"
)

// Dev logs messages instead of delivering them. Used when no mail
// provider is configured.
type Dev struct{}

func NewDev() *Dev { return &Dev{} }

func (d *Dev) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("dev mailer: message not delivered", "to", toEmail, "subject", subject, "text", text)
	return "", nil
}

func (d *Dev) SendPaymentInstructions(email, name, paymentCode string, amount float64, dueDate string) error {
	logger.Info("dev mailer: payment instructions",
		"to", email, "name", name, "payment_code", paymentCode, "amount", amount, "due_date", dueDate)
	return nil
}
