// Package memory is the in-memory storage backend. It backs tests and the
// zero-dependency dev mode selected when DATABASE_URL is empty, and enforces
// the same overlap and duplicate-fee constraints the postgres schema does.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/repository"
)

type Store struct {
	mu sync.Mutex

	nextReservationID int64
	nextFeeID         int64
	nextMemberID      int64

	reservations map[int64]*domain.Reservation
	fees         map[int64]*domain.Fee
	members      map[string]*domain.Member // keyed by national ID
}

func NewStore() *Store {
	return &Store{
		nextReservationID: 1,
		nextFeeID:         1,
		nextMemberID:      1,
		reservations:      make(map[int64]*domain.Reservation),
		fees:              make(map[int64]*domain.Fee),
		members:           make(map[string]*domain.Member),
	}
}

func (s *Store) Reservations() repository.ReservationRepo { return (*reservationStore)(s) }
func (s *Store) Fees() repository.FeeRepo                 { return (*feeStore)(s) }
func (s *Store) Members() repository.MemberRepo           { return (*memberStore)(s) }

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ---------- reservations ----------

type reservationStore Store

func (s *reservationStore) Create(_ context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.reservations {
		if other.Status != domain.ReservationActive || !sameDay(other.Date, r.Date) {
			continue
		}
		if domain.Overlaps(r.Start, r.End, other.Start, other.End) {
			return nil, domain.ConflictError("the requested interval is no longer available")
		}
	}

	stored := *r
	stored.ID = s.nextReservationID
	s.nextReservationID++
	stored.Status = domain.ReservationActive
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.reservations[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *reservationStore) GetByID(_ context.Context, id int64) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

func (s *reservationStore) ListActiveOnDate(_ context.Context, date time.Time) ([]domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Reservation
	for _, r := range s.reservations {
		if r.Status == domain.ReservationActive && sameDay(r.Date, date) {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start < result[j].Start })
	return result, nil
}

func (s *reservationStore) ListActiveBetween(_ context.Context, from, to time.Time) ([]domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to = dateOnly(from), dateOnly(to)
	var result []domain.Reservation
	for _, r := range s.reservations {
		d := dateOnly(r.Date)
		if r.Status == domain.ReservationActive && !d.Before(from) && !d.After(to) {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !sameDay(result[i].Date, result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Start < result[j].Start
	})
	return result, nil
}

func (s *reservationStore) Cancel(_ context.Context, id int64, note string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok || r.Status != domain.ReservationActive {
		return false, nil
	}
	r.Status = domain.ReservationCancelled
	if note != "" {
		if r.Notes != "" {
			r.Notes += "\n"
		}
		r.Notes += note
	}
	return true, nil
}

func (s *reservationStore) CountActiveFrom(_ context.Context, from time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from = dateOnly(from)
	n := 0
	for _, r := range s.reservations {
		if r.Status == domain.ReservationActive && !dateOnly(r.Date).Before(from) {
			n++
		}
	}
	return n, nil
}

func (s *reservationStore) CountActiveBetween(_ context.Context, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to = dateOnly(from), dateOnly(to)
	n := 0
	for _, r := range s.reservations {
		d := dateOnly(r.Date)
		if r.Status == domain.ReservationActive && !d.Before(from) && d.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s *reservationStore) ActiveStartTimeCounts(_ context.Context) ([]repository.StartTimeCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byStart := make(map[domain.TimeOfDay]int)
	for _, r := range s.reservations {
		if r.Status == domain.ReservationActive {
			byStart[r.Start]++
		}
	}

	counts := make([]repository.StartTimeCount, 0, len(byStart))
	for start, n := range byStart {
		counts = append(counts, repository.StartTimeCount{Start: start, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Start < counts[j].Start })
	return counts, nil
}

// ---------- fees ----------

type feeStore Store

func (s *feeStore) Create(_ context.Context, f *domain.Fee) (*domain.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.Kind == domain.FeeReservationUsage {
		for _, other := range s.fees {
			if other.ReservationID == f.ReservationID && other.Kind == domain.FeeReservationUsage {
				return nil, domain.DuplicateError("a usage fee already exists for this reservation")
			}
		}
	}

	stored := *f
	stored.ID = s.nextFeeID
	s.nextFeeID++
	stored.Status = domain.FeePending
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.fees[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *feeStore) GetByID(_ context.Context, id int64) (*domain.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fees[id]
	if !ok {
		return nil, nil
	}
	out := *f
	return &out, nil
}

func (s *feeStore) GetUsageByReservation(_ context.Context, reservationID int64) (*domain.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.fees {
		if f.ReservationID == reservationID && f.Kind == domain.FeeReservationUsage {
			out := *f
			return &out, nil
		}
	}
	return nil, nil
}

func (s *feeStore) GetByPaymentCode(_ context.Context, code string) (*domain.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.fees {
		if f.PaymentCode == code {
			out := *f
			return &out, nil
		}
	}
	return nil, nil
}

func (s *feeStore) ListByMember(_ context.Context, memberID string) ([]domain.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Fee
	for _, f := range s.fees {
		if f.MemberID == memberID {
			result = append(result, *f)
		}
	}
	sortFees(result)
	return result, nil
}

func (s *feeStore) ListByStatus(_ context.Context, status domain.FeeStatus) ([]domain.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Fee
	for _, f := range s.fees {
		if f.Status == status {
			result = append(result, *f)
		}
	}
	sortFees(result)
	return result, nil
}

func sortFees(fees []domain.Fee) {
	sort.Slice(fees, func(i, j int) bool {
		if !fees[i].CreatedAt.Equal(fees[j].CreatedAt) {
			return fees[i].CreatedAt.After(fees[j].CreatedAt)
		}
		return fees[i].ID > fees[j].ID
	})
}

func (s *feeStore) Update(_ context.Context, f *domain.Fee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.fees[f.ID]
	if !ok {
		return domain.NotFoundError("fee not found")
	}
	stored.Status = f.Status
	stored.PaidAt = f.PaidAt
	stored.PaymentCode = f.PaymentCode
	stored.Notes = f.Notes
	return nil
}

func (s *feeStore) ExpirePending(_ context.Context, asOf time.Time) ([]domain.Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := dateOnly(asOf)
	var expired []domain.Fee
	for _, f := range s.fees {
		if f.Status == domain.FeePending && dateOnly(f.DueDate).Before(cutoff) {
			f.Status = domain.FeeExpired
			expired = append(expired, *f)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })
	return expired, nil
}

func (s *feeStore) Totals(_ context.Context) (domain.FeeTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t domain.FeeTotals
	for _, f := range s.fees {
		switch f.Status {
		case domain.FeePaid:
			t.CollectedCents += f.AmountCents
			t.PaidCount++
		case domain.FeePending:
			t.PendingCents += f.AmountCents
			t.PendingCount++
		case domain.FeeExpired:
			t.ExpiredCents += f.AmountCents
			t.ExpiredCount++
		case domain.FeeCancelled:
			t.CancelledCount++
		}
	}
	return t, nil
}

// ---------- members ----------

type memberStore Store

func (s *memberStore) Create(_ context.Context, m *domain.Member) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[m.NationalID]; exists {
		return nil, domain.DuplicateError("member ID or email already registered")
	}
	for _, other := range s.members {
		if strings.EqualFold(other.Email, m.Email) {
			return nil, domain.DuplicateError("member ID or email already registered")
		}
	}

	stored := *m
	stored.ID = s.nextMemberID
	s.nextMemberID++
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = time.Now()
	}
	s.members[stored.NationalID] = &stored

	out := stored
	return &out, nil
}

func (s *memberStore) GetByNationalID(_ context.Context, nationalID string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[nationalID]
	if !ok {
		return nil, nil
	}
	out := *m
	return &out, nil
}

func (s *memberStore) GetByEmail(_ context.Context, email string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.members {
		if strings.EqualFold(m.Email, email) {
			out := *m
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memberStore) List(_ context.Context, onlyActive bool) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Member
	for _, m := range s.members {
		if onlyActive && !m.Active {
			continue
		}
		result = append(result, *m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *memberStore) ListDelinquent(_ context.Context) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Member
	for _, m := range s.members {
		if m.Active && m.Standing == domain.DuesDelinquent {
			result = append(result, *m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *memberStore) Update(_ context.Context, m *domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.members[m.NationalID]
	if !ok {
		return domain.NotFoundError("member not found")
	}
	stored.Name = m.Name
	stored.Email = m.Email
	stored.Phone = m.Phone
	stored.Standing = m.Standing
	stored.Active = m.Active
	stored.LastPaymentAt = m.LastPaymentAt
	return nil
}
