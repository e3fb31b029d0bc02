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

type MemberRepo struct {
	pool *pgxpool.Pool
}

func NewMemberRepo(pool *pgxpool.Pool) *MemberRepo {
	return &MemberRepo{pool: pool}
}

const memberCols = `id, national_id, name, email, phone, standing, active,
last_payment_at, registered_at`

func scanMember(row pgx.Row) (*domain.Member, error) {
	var (
		m        domain.Member
		standing string
	)
	err := row.Scan(
		&m.ID, &m.NationalID, &m.Name, &m.Email, &m.Phone, &standing,
		&m.Active, &m.LastPaymentAt, &m.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	m.Standing = domain.DuesStanding(standing)
	return &m, nil
}

func (p *MemberRepo) Create(ctx context.Context, m *domain.Member) (*domain.Member, error) {
	const q = `INSERT INTO members (
		national_id, name, email, phone, standing, active, last_payment_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7)
	RETURNING ` + memberCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanMember(p.pool.QueryRow(ctx, q,
		m.NationalID, m.Name, m.Email, m.Phone, string(m.Standing),
		m.Active, m.LastPaymentAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.DuplicateError("member ID or email already registered")
		}
		return nil, err
	}
	return created, nil
}

func (p *MemberRepo) GetByNationalID(ctx context.Context, nationalID string) (*domain.Member, error) {
	const q = `SELECT ` + memberCols + ` FROM members WHERE national_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	m, err := scanMember(p.pool.QueryRow(ctx, q, nationalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (p *MemberRepo) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	const q = `SELECT ` + memberCols + ` FROM members WHERE lower(email)=lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	m, err := scanMember(p.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (p *MemberRepo) List(ctx context.Context, onlyActive bool) ([]domain.Member, error) {
	q := `SELECT ` + memberCols + ` FROM members`
	if onlyActive {
		q += ` WHERE active`
	}
	q += ` ORDER BY name`
	return p.listQuery(ctx, q)
}

func (p *MemberRepo) ListDelinquent(ctx context.Context) ([]domain.Member, error) {
	const q = `SELECT ` + memberCols + ` FROM members
		WHERE standing='delinquent' AND active ORDER BY name`
	return p.listQuery(ctx, q)
}

func (p *MemberRepo) listQuery(ctx context.Context, q string, args ...any) ([]domain.Member, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (p *MemberRepo) Update(ctx context.Context, m *domain.Member) error {
	const q = `UPDATE members
		SET name=$2, email=$3, phone=$4, standing=$5, active=$6, last_payment_at=$7
		WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := p.pool.Exec(ctx, q,
		m.ID, m.Name, m.Email, m.Phone, string(m.Standing), m.Active, m.LastPaymentAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.NotFoundError("member not found")
	}
	return nil
}
