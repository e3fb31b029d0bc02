package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unionhall/pit-reservations/internal/domain"
)

type FeeRepo struct {
	pool *pgxpool.Pool
}

func NewFeeRepo(pool *pgxpool.Pool) *FeeRepo {
	return &FeeRepo{pool: pool}
}

const feeCols = `id, amount_cents, kind, status, due_date, paid_at,
reservation_id, member_id, payment_code, notes, created_at`

func scanFee(row pgx.Row) (*domain.Fee, error) {
	var (
		f      domain.Fee
		kind   string
		status string
	)
	err := row.Scan(
		&f.ID, &f.AmountCents, &kind, &status, &f.DueDate, &f.PaidAt,
		&f.ReservationID, &f.MemberID, &f.PaymentCode, &f.Notes, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Kind = domain.FeeKind(kind)
	f.Status = domain.FeeStatus(status)
	return &f, nil
}

func (p *FeeRepo) Create(ctx context.Context, f *domain.Fee) (*domain.Fee, error) {
	const q = `INSERT INTO fees (
		amount_cents, kind, status, due_date,
		reservation_id, member_id, payment_code, notes
	) VALUES ($1,$2,'pending',$3,$4,$5,$6,$7)
	RETURNING ` + feeCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanFee(p.pool.QueryRow(ctx, q,
		f.AmountCents, string(f.Kind), f.DueDate,
		f.ReservationID, f.MemberID, f.PaymentCode, f.Notes,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Partial unique index on (reservation_id) for usage fees.
			return nil, domain.DuplicateError("a usage fee already exists for this reservation")
		}
		return nil, err
	}
	return created, nil
}

func (p *FeeRepo) GetByID(ctx context.Context, id int64) (*domain.Fee, error) {
	const q = `SELECT ` + feeCols + ` FROM fees WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	f, err := scanFee(p.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (p *FeeRepo) GetUsageByReservation(ctx context.Context, reservationID int64) (*domain.Fee, error) {
	const q = `SELECT ` + feeCols + ` FROM fees
		WHERE reservation_id=$1 AND kind='reservation_usage'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	f, err := scanFee(p.pool.QueryRow(ctx, q, reservationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (p *FeeRepo) GetByPaymentCode(ctx context.Context, code string) (*domain.Fee, error) {
	const q = `SELECT ` + feeCols + ` FROM fees WHERE payment_code=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	f, err := scanFee(p.pool.QueryRow(ctx, q, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (p *FeeRepo) ListByMember(ctx context.Context, memberID string) ([]domain.Fee, error) {
	const q = `SELECT ` + feeCols + ` FROM fees WHERE member_id=$1 ORDER BY created_at DESC`
	return p.list(ctx, q, memberID)
}

func (p *FeeRepo) ListByStatus(ctx context.Context, status domain.FeeStatus) ([]domain.Fee, error) {
	const q = `SELECT ` + feeCols + ` FROM fees WHERE status=$1 ORDER BY created_at DESC`
	return p.list(ctx, q, string(status))
}

func (p *FeeRepo) list(ctx context.Context, q string, args ...any) ([]domain.Fee, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fees []domain.Fee
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		fees = append(fees, *f)
	}
	return fees, rows.Err()
}

func (p *FeeRepo) Update(ctx context.Context, f *domain.Fee) error {
	const q = `UPDATE fees
		SET status=$2, paid_at=$3, payment_code=$4, notes=$5
		WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := p.pool.Exec(ctx, q, f.ID, string(f.Status), f.PaidAt, f.PaymentCode, f.Notes)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.NotFoundError("fee not found")
	}
	return nil
}

func (p *FeeRepo) ExpirePending(ctx context.Context, asOf time.Time) ([]domain.Fee, error) {
	const q = `UPDATE fees SET status='expired'
		WHERE status='pending' AND due_date < $1
		RETURNING ` + feeCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := p.pool.Query(ctx, q, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fees []domain.Fee
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		fees = append(fees, *f)
	}
	return fees, rows.Err()
}

func (p *FeeRepo) Totals(ctx context.Context) (domain.FeeTotals, error) {
	const q = `SELECT
		coalesce(sum(amount_cents) FILTER (WHERE status='paid'), 0),
		coalesce(sum(amount_cents) FILTER (WHERE status='pending'), 0),
		coalesce(sum(amount_cents) FILTER (WHERE status='expired'), 0),
		count(*) FILTER (WHERE status='paid'),
		count(*) FILTER (WHERE status='pending'),
		count(*) FILTER (WHERE status='expired'),
		count(*) FILTER (WHERE status='cancelled')
	FROM fees`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var t domain.FeeTotals
	err := p.pool.QueryRow(ctx, q).Scan(
		&t.CollectedCents, &t.PendingCents, &t.ExpiredCents,
		&t.PaidCount, &t.PendingCount, &t.ExpiredCount, &t.CancelledCount,
	)
	return t, err
}
