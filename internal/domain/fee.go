package domain

import "time"

type FeeStatus string

const (
	FeePending   FeeStatus = "pending"
	FeePaid      FeeStatus = "paid"
	FeeExpired   FeeStatus = "expired"
	FeeCancelled FeeStatus = "cancelled"
)

func ParseFeeStatus(s string) (FeeStatus, bool) {
	switch FeeStatus(s) {
	case FeePending, FeePaid, FeeExpired, FeeCancelled:
		return FeeStatus(s), true
	default:
		return "", false
	}
}

type FeeKind string

const (
	FeeReservationUsage FeeKind = "reservation_usage"
	FeeMembershipDues   FeeKind = "membership_dues"
)

// Fee is a monetary obligation tied to a reservation or to membership dues.
// Amounts are integer cents; the boundary renders two-decimal values.
type Fee struct {
	ID            int64      `json:"id"`
	AmountCents   int64      `json:"amount_cents"`
	Kind          FeeKind    `json:"kind"`
	Status        FeeStatus  `json:"status"`
	DueDate       time.Time  `json:"due_date"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	ReservationID int64      `json:"reservation_id"`
	MemberID      string     `json:"member_id"`
	PaymentCode   string     `json:"payment_code"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsOverdue reports whether the due date has passed as of the given day,
// regardless of whether a sweep has run yet.
func (f *Fee) IsOverdue(asOf time.Time) bool {
	if f.Status == FeeExpired {
		return true
	}
	return f.Status == FeePending && dateOnly(f.DueDate).Before(dateOnly(asOf))
}

// Payable requires pending status and a due date not yet passed. An overdue
// fee is not payable even before the expiry sweep runs.
func (f *Fee) Payable(asOf time.Time) error {
	switch f.Status {
	case FeePaid:
		return StateError("fee has already been paid")
	case FeeCancelled:
		return StateError("fee was cancelled")
	case FeeExpired:
		return StateError("fee has expired")
	}
	if f.IsOverdue(asOf) {
		return StateError("fee is past its due date and can no longer be paid")
	}
	return nil
}

// MarkPaid records the payment. The payment code stays as issued so the fee
// remains resolvable by it; the payer's reference goes into the notes.
func (f *Fee) MarkPaid(at time.Time, confirmationRef string) {
	f.Status = FeePaid
	f.PaidAt = &at
	if confirmationRef != "" {
		if f.Notes != "" {
			f.Notes += "\n"
		}
		f.Notes += "paid: ref " + confirmationRef
	}
}

func (f *Fee) MarkExpired() {
	f.Status = FeeExpired
}

func (f *Fee) Cancel(reason string) {
	f.Status = FeeCancelled
	if reason != "" {
		if f.Notes != "" {
			f.Notes += "\n"
		}
		f.Notes += "cancelled: " + reason
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FeeTotals aggregates ledger amounts by outcome.
type FeeTotals struct {
	CollectedCents int64 `json:"collected_cents"`
	PendingCents   int64 `json:"pending_cents"`
	ExpiredCents   int64 `json:"expired_cents"`
	PaidCount      int   `json:"paid_count"`
	PendingCount   int   `json:"pending_count"`
	ExpiredCount   int   `json:"expired_count"`
	CancelledCount int   `json:"cancelled_count"`
}

// FeeDTO is the boundary shape with a two-decimal amount.
type FeeDTO struct {
	ID            int64      `json:"id"`
	Amount        float64    `json:"amount"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	DueDate       string     `json:"due_date"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	ReservationID int64      `json:"reservation_id"`
	MemberID      string     `json:"member_id"`
	PaymentCode   string     `json:"payment_code"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (f *Fee) DTO() FeeDTO {
	return FeeDTO{
		ID:            f.ID,
		Amount:        float64(f.AmountCents) / 100,
		Kind:          string(f.Kind),
		Status:        string(f.Status),
		DueDate:       f.DueDate.Format(DateLayout),
		PaidAt:        f.PaidAt,
		ReservationID: f.ReservationID,
		MemberID:      f.MemberID,
		PaymentCode:   f.PaymentCode,
		Notes:         f.Notes,
		CreatedAt:     f.CreatedAt,
	}
}
