package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/repository"
)

type ReservationRepo struct {
	pool *pgxpool.Pool
}

func NewReservationRepo(pool *pgxpool.Pool) *ReservationRepo {
	return &ReservationRepo{pool: pool}
}

const reservationCols = `id, holder_name, member_id, reservation_date,
start_min, end_min, guests, email, phone, notes, status, created_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var (
		r        domain.Reservation
		startMin int
		endMin   int
		status   string
	)
	err := row.Scan(
		&r.ID, &r.HolderName, &r.MemberID, &r.Date,
		&startMin, &endMin, &r.Guests, &r.Email, &r.Phone, &r.Notes,
		&status, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Start = domain.TimeOfDay(startMin)
	r.End = domain.TimeOfDay(endMin)
	r.Status = domain.ReservationStatus(status)
	return &r, nil
}

func (p *ReservationRepo) Create(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	const q = `INSERT INTO reservations (
		holder_name, member_id, reservation_date,
		start_min, end_min, guests, email, phone, notes, status
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'active')
	RETURNING ` + reservationCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanReservation(p.pool.QueryRow(ctx, q,
		r.HolderName, r.MemberID, r.Date,
		int(r.Start), int(r.End), r.Guests, r.Email, r.Phone, r.Notes,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			// EXCLUDE constraint: another active reservation took an
			// overlapping interval on this date.
			return nil, domain.ConflictError("the requested interval is no longer available")
		}
		return nil, err
	}
	return created, nil
}

func (p *ReservationRepo) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	r, err := scanReservation(p.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (p *ReservationRepo) ListActiveOnDate(ctx context.Context, date time.Time) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
		WHERE reservation_date=$1 AND status='active'
		ORDER BY start_min`
	return p.list(ctx, q, date)
}

func (p *ReservationRepo) ListActiveBetween(ctx context.Context, from, to time.Time) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
		WHERE reservation_date>=$1 AND reservation_date<=$2 AND status='active'
		ORDER BY reservation_date, start_min`
	return p.list(ctx, q, from, to)
}

func (p *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

func (p *ReservationRepo) Cancel(ctx context.Context, id int64, note string) (bool, error) {
	const q = `UPDATE reservations
		SET status='cancelled',
		    notes = CASE WHEN $2 = '' THEN notes
		                 WHEN notes = '' THEN $2
		                 ELSE notes || E'\n' || $2 END
		WHERE id=$1 AND status='active'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := p.pool.Exec(ctx, q, id, note)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (p *ReservationRepo) CountActiveFrom(ctx context.Context, from time.Time) (int, error) {
	const q = `SELECT count(*) FROM reservations WHERE status='active' AND reservation_date>=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := p.pool.QueryRow(ctx, q, from).Scan(&n)
	return n, err
}

func (p *ReservationRepo) CountActiveBetween(ctx context.Context, from, to time.Time) (int, error) {
	const q = `SELECT count(*) FROM reservations
		WHERE status='active' AND reservation_date>=$1 AND reservation_date<$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := p.pool.QueryRow(ctx, q, from, to).Scan(&n)
	return n, err
}

func (p *ReservationRepo) ActiveStartTimeCounts(ctx context.Context) ([]repository.StartTimeCount, error) {
	const q = `SELECT start_min, count(*) FROM reservations
		WHERE status='active'
		GROUP BY start_min ORDER BY start_min`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []repository.StartTimeCount
	for rows.Next() {
		var startMin, n int
		if err := rows.Scan(&startMin, &n); err != nil {
			return nil, err
		}
		counts = append(counts, repository.StartTimeCount{Start: domain.TimeOfDay(startMin), Count: n})
	}
	return counts, rows.Err()
}
