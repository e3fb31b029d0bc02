package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/repository"
	"github.com/unionhall/pit-reservations/pkg/events"
	"github.com/unionhall/pit-reservations/pkg/logger"
)

type FeeLedger interface {
	// IssueUsageFee creates the pending usage fee for a freshly admitted
	// reservation. At most one usage fee may exist per reservation.
	IssueUsageFee(ctx context.Context, reservationID int64, memberID string, amountCents int64, dueIn time.Duration) (*domain.Fee, error)
	ConfirmPayment(ctx context.Context, feeID int64, confirmationRef string) (*domain.Fee, error)
	Cancel(ctx context.Context, feeID int64, reason string) (*domain.Fee, error)
	// SweepExpired transitions every pending fee due before asOf to expired
	// and returns the fees it touched. Safe to re-run.
	SweepExpired(ctx context.Context, asOf time.Time) ([]domain.Fee, error)
	Get(ctx context.Context, feeID int64) (*domain.Fee, error)
	GetByPaymentCode(ctx context.Context, code string) (*domain.Fee, error)
	GetByReservation(ctx context.Context, reservationID int64) (*domain.Fee, error)
	ListByMember(ctx context.Context, memberID string) ([]domain.Fee, error)
	ListByStatus(ctx context.Context, status domain.FeeStatus) ([]domain.Fee, error)
	Totals(ctx context.Context) (domain.FeeTotals, error)
}

type feeLedger struct {
	fees     repository.FeeRepo
	eventBus events.Publisher
	orgTag   string
}

func NewFeeLedger(fees repository.FeeRepo, eventBus events.Publisher, orgTag string) FeeLedger {
	return &feeLedger{fees: fees, eventBus: eventBus, orgTag: orgTag}
}

// newPaymentCode builds the human-shareable code members quote when paying,
// e.g. UNION-3F2A9C01.
func (s *feeLedger) newPaymentCode() string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return s.orgTag + "-" + token
}

func (s *feeLedger) IssueUsageFee(ctx context.Context, reservationID int64, memberID string, amountCents int64, dueIn time.Duration) (*domain.Fee, error) {
	existing, err := s.fees.GetUsageByReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("check existing usage fee: %w", err)
	}
	if existing != nil {
		return nil, domain.DuplicateError("a usage fee already exists for this reservation")
	}

	fee := &domain.Fee{
		AmountCents:   amountCents,
		Kind:          domain.FeeReservationUsage,
		Status:        domain.FeePending,
		DueDate:       time.Now().Add(dueIn),
		ReservationID: reservationID,
		MemberID:      memberID,
		PaymentCode:   s.newPaymentCode(),
	}

	created, err := s.fees.Create(ctx, fee)
	if err != nil {
		return nil, err
	}

	event := events.FeeIssuedEvent{
		FeeID:         created.ID,
		ReservationID: created.ReservationID,
		MemberID:      created.MemberID,
		AmountCents:   created.AmountCents,
		PaymentCode:   created.PaymentCode,
		DueDate:       created.DueDate.Format(domain.DateLayout),
		IssuedAt:      created.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.FeeIssued, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish fee issued event", "error", err, "fee_id", created.ID)
	}

	return created, nil
}

func (s *feeLedger) ConfirmPayment(ctx context.Context, feeID int64, confirmationRef string) (*domain.Fee, error) {
	fee, err := s.fees.GetByID(ctx, feeID)
	if err != nil {
		return nil, fmt.Errorf("get fee: %w", err)
	}
	if fee == nil {
		return nil, domain.NotFoundError("fee not found")
	}

	now := time.Now()
	if err := fee.Payable(now); err != nil {
		return nil, err
	}

	fee.MarkPaid(now, strings.TrimSpace(confirmationRef))
	if err := s.fees.Update(ctx, fee); err != nil {
		return nil, fmt.Errorf("mark fee paid: %w", err)
	}

	event := events.FeePaidEvent{
		FeeID:       fee.ID,
		MemberID:    fee.MemberID,
		AmountCents: fee.AmountCents,
		PaidAt:      now,
	}
	if err := s.eventBus.Publish(ctx, events.FeePaid, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish fee paid event", "error", err, "fee_id", fee.ID)
	}

	logger.InfoContext(ctx, "fee paid", "fee_id", fee.ID, "member_id", fee.MemberID, "amount_cents", fee.AmountCents)
	return fee, nil
}

func (s *feeLedger) Cancel(ctx context.Context, feeID int64, reason string) (*domain.Fee, error) {
	fee, err := s.fees.GetByID(ctx, feeID)
	if err != nil {
		return nil, fmt.Errorf("get fee: %w", err)
	}
	if fee == nil {
		return nil, domain.NotFoundError("fee not found")
	}
	if fee.Status == domain.FeePaid {
		return nil, domain.StateError("a paid fee cannot be cancelled")
	}
	if fee.Status == domain.FeeCancelled {
		return nil, domain.StateError("fee is already cancelled")
	}

	fee.Cancel(reason)
	if err := s.fees.Update(ctx, fee); err != nil {
		return nil, fmt.Errorf("cancel fee: %w", err)
	}

	event := events.FeeCanceledEvent{
		FeeID:      fee.ID,
		Reason:     reason,
		CanceledAt: time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.FeeCanceled, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish fee canceled event", "error", err, "fee_id", fee.ID)
	}

	return fee, nil
}

func (s *feeLedger) SweepExpired(ctx context.Context, asOf time.Time) ([]domain.Fee, error) {
	expired, err := s.fees.ExpirePending(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("expire pending fees: %w", err)
	}

	for i := range expired {
		event := events.FeeExpiredEvent{
			FeeID:         expired[i].ID,
			ReservationID: expired[i].ReservationID,
			MemberID:      expired[i].MemberID,
			ExpiredAt:     asOf,
		}
		if err := s.eventBus.Publish(ctx, events.FeeExpired, event); err != nil {
			logger.ErrorContext(ctx, "failed to publish fee expired event", "error", err, "fee_id", expired[i].ID)
		}
	}

	if len(expired) > 0 {
		logger.InfoContext(ctx, "fee sweep completed", "expired_count", len(expired), "as_of", asOf.Format(domain.DateLayout))
	}
	return expired, nil
}

func (s *feeLedger) Get(ctx context.Context, feeID int64) (*domain.Fee, error) {
	fee, err := s.fees.GetByID(ctx, feeID)
	if err != nil {
		return nil, fmt.Errorf("get fee: %w", err)
	}
	if fee == nil {
		return nil, domain.NotFoundError("fee not found")
	}
	return fee, nil
}

// GetByPaymentCode resolves the code quoted on a bank transfer back to the
// fee it belongs to.
func (s *feeLedger) GetByPaymentCode(ctx context.Context, code string) (*domain.Fee, error) {
	fee, err := s.fees.GetByPaymentCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("get fee by payment code: %w", err)
	}
	if fee == nil {
		return nil, domain.NotFoundError("no fee matches that payment code")
	}
	return fee, nil
}

func (s *feeLedger) GetByReservation(ctx context.Context, reservationID int64) (*domain.Fee, error) {
	return s.fees.GetUsageByReservation(ctx, reservationID)
}

func (s *feeLedger) ListByMember(ctx context.Context, memberID string) ([]domain.Fee, error) {
	return s.fees.ListByMember(ctx, memberID)
}

func (s *feeLedger) ListByStatus(ctx context.Context, status domain.FeeStatus) ([]domain.Fee, error) {
	return s.fees.ListByStatus(ctx, status)
}

func (s *feeLedger) Totals(ctx context.Context) (domain.FeeTotals, error) {
	return s.fees.Totals(ctx)
}
