package mailer

// Service delivers transactional mail. Delivery failures are reported to the
// caller but never block a reservation.
type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendPaymentInstructions(email, name, paymentCode string, amount float64, dueDate string) error
}
