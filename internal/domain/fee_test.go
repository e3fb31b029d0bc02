package domain

import (
	"testing"
	"time"
)

func pendingFee(due time.Time) *Fee {
	return &Fee{
		ID:          1,
		AmountCents: 2500,
		Kind:        FeeReservationUsage,
		Status:      FeePending,
		DueDate:     due,
	}
}

func TestFeePayable(t *testing.T) {
	now := time.Now()

	if err := pendingFee(now.Add(24 * time.Hour)).Payable(now); err != nil {
		t.Errorf("pending fee due tomorrow should be payable, got %v", err)
	}
	if err := pendingFee(now).Payable(now); err != nil {
		t.Errorf("pending fee due today should still be payable, got %v", err)
	}

	// Past its due date a pending fee is not payable, even though no sweep
	// has advanced it to expired yet.
	overdue := pendingFee(now.Add(-48 * time.Hour))
	if err := overdue.Payable(now); err == nil {
		t.Error("overdue pending fee must not be payable before a sweep")
	} else if KindOf(err) != KindState {
		t.Errorf("overdue fee error kind = %v, want state", KindOf(err))
	}
}

func TestFeePayableTerminalStates(t *testing.T) {
	now := time.Now()

	paid := pendingFee(now.Add(24 * time.Hour))
	paid.MarkPaid(now, "CONF-1")
	if err := paid.Payable(now); KindOf(err) != KindState {
		t.Errorf("paid fee Payable = %v, want state error", err)
	}

	expired := pendingFee(now.Add(24 * time.Hour))
	expired.MarkExpired()
	if err := expired.Payable(now); KindOf(err) != KindState {
		t.Errorf("expired fee Payable = %v, want state error", err)
	}

	cancelled := pendingFee(now.Add(24 * time.Hour))
	cancelled.Cancel("issued in error")
	if err := cancelled.Payable(now); KindOf(err) != KindState {
		t.Errorf("cancelled fee Payable = %v, want state error", err)
	}
}

func TestFeeMarkPaid(t *testing.T) {
	now := time.Now()
	f := pendingFee(now.Add(time.Hour))
	f.PaymentCode = "UNION-AAAA1111"

	f.MarkPaid(now, "")
	if f.Status != FeePaid || f.PaidAt == nil {
		t.Errorf("MarkPaid left fee in %v with PaidAt %v", f.Status, f.PaidAt)
	}
	if f.PaymentCode != "UNION-AAAA1111" {
		t.Error("MarkPaid with empty reference must keep the payment code")
	}
	if f.Notes != "" {
		t.Errorf("empty reference should not touch notes, got %q", f.Notes)
	}

	f2 := pendingFee(now.Add(time.Hour))
	f2.PaymentCode = "UNION-BBBB2222"
	f2.Notes = "issued at the counter"
	f2.MarkPaid(now, "BANK-REF-99")
	if f2.PaymentCode != "UNION-BBBB2222" {
		t.Errorf("payment code must survive payment, got %q", f2.PaymentCode)
	}
	if f2.Notes != "issued at the counter\npaid: ref BANK-REF-99" {
		t.Errorf("confirmation reference not recorded in notes: %q", f2.Notes)
	}
}

func TestFeeCancelAppendsReason(t *testing.T) {
	f := pendingFee(time.Now())
	f.Notes = "issued at the counter"
	f.Cancel("duplicate charge")

	if f.Status != FeeCancelled {
		t.Errorf("status = %v, want cancelled", f.Status)
	}
	want := "issued at the counter\ncancelled: duplicate charge"
	if f.Notes != want {
		t.Errorf("notes = %q, want %q", f.Notes, want)
	}
}

func TestFeeIsOverdue(t *testing.T) {
	now := time.Now()

	if pendingFee(now).IsOverdue(now) {
		t.Error("fee due today is not overdue")
	}
	if !pendingFee(now.AddDate(0, 0, -1)).IsOverdue(now) {
		t.Error("fee due yesterday is overdue")
	}

	paid := pendingFee(now.AddDate(0, 0, -1))
	paid.MarkPaid(now, "")
	if paid.IsOverdue(now) {
		t.Error("paid fee is never overdue")
	}
}

func TestFeeDTOAmount(t *testing.T) {
	f := pendingFee(time.Now())
	f.AmountCents = 2550
	if got := f.DTO().Amount; got != 25.50 {
		t.Errorf("DTO amount = %v, want 25.50", got)
	}
}
