// Package repository defines the storage contracts the services depend on.
// Lookups return (nil, nil) when the row is absent; callers decide whether
// that is an error.
package repository

import (
	"context"
	"time"

	"github.com/unionhall/pit-reservations/internal/domain"
)

// StartTimeCount is one row of the start-time popularity projection,
// ordered by start time ascending.
type StartTimeCount struct {
	Start domain.TimeOfDay
	Count int
}

type ReservationRepo interface {
	// Create persists a new active reservation and assigns ID and CreatedAt.
	// A storage-level overlap constraint, where present, surfaces as a
	// conflict error.
	Create(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error)
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	// ListActiveOnDate returns active reservations for the date ordered by
	// start time.
	ListActiveOnDate(ctx context.Context, date time.Time) ([]domain.Reservation, error)
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]domain.Reservation, error)
	// Cancel flips an active reservation to cancelled. Returns false when
	// the reservation is absent or already cancelled.
	Cancel(ctx context.Context, id int64, note string) (bool, error)
	CountActiveFrom(ctx context.Context, from time.Time) (int, error)
	CountActiveBetween(ctx context.Context, from, to time.Time) (int, error)
	ActiveStartTimeCounts(ctx context.Context) ([]StartTimeCount, error)
}

type FeeRepo interface {
	// Create persists a new fee. Issuing a second reservation_usage fee for
	// the same reservation fails with a duplicate error, enforced by the
	// store even under concurrent attempts.
	Create(ctx context.Context, f *domain.Fee) (*domain.Fee, error)
	GetByID(ctx context.Context, id int64) (*domain.Fee, error)
	GetUsageByReservation(ctx context.Context, reservationID int64) (*domain.Fee, error)
	GetByPaymentCode(ctx context.Context, code string) (*domain.Fee, error)
	ListByMember(ctx context.Context, memberID string) ([]domain.Fee, error)
	ListByStatus(ctx context.Context, status domain.FeeStatus) ([]domain.Fee, error)
	// Update persists status, paid-at, payment code and notes.
	Update(ctx context.Context, f *domain.Fee) error
	// ExpirePending transitions pending fees due strictly before asOf to
	// expired and returns the fees it transitioned. Idempotent.
	ExpirePending(ctx context.Context, asOf time.Time) ([]domain.Fee, error)
	Totals(ctx context.Context) (domain.FeeTotals, error)
}

type MemberRepo interface {
	Create(ctx context.Context, m *domain.Member) (*domain.Member, error)
	GetByNationalID(ctx context.Context, nationalID string) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	List(ctx context.Context, onlyActive bool) ([]domain.Member, error)
	ListDelinquent(ctx context.Context) ([]domain.Member, error)
	// Update persists standing, active flag and last payment date.
	Update(ctx context.Context, m *domain.Member) error
}
