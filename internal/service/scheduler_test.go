package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/repository/memory"
	"github.com/unionhall/pit-reservations/internal/service"
	"github.com/unionhall/pit-reservations/pkg/config"
	"github.com/unionhall/pit-reservations/pkg/events"
)

// Valid checksum IDs used across the tests.
const (
	memberCurrent    = "52998224725"
	memberDelinquent = "98765432100"
	memberUnknown    = "12345678909"
)

type captureMailer struct {
	mu       sync.Mutex
	lastTo   string
	lastCode string
	sendErr  error
}

func (m *captureMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTo = toEmail
	return "test-id", m.sendErr
}

func (m *captureMailer) SendPaymentInstructions(email, name, code string, amount float64, dueDate string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTo = email
	m.lastCode = code
	return m.sendErr
}

func testConfig() *config.Config {
	return &config.Config{
		Booking: config.BookingConfig{
			WindowOpen:     "08:00",
			WindowClose:    "18:00",
			MinDuration:    4 * time.Hour,
			MaxDuration:    8 * time.Hour,
			MaxAdvanceDays: 30,
			MaxGuests:      20,
		},
		Fee: config.FeeConfig{
			UsageAmountCents: 2500,
			DueIn:            24 * time.Hour,
			OrgTag:           "UNION",
		},
	}
}

type fixture struct {
	store     *memory.Store
	scheduler service.Scheduler
	ledger    service.FeeLedger
	mail      *captureMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	mail := &captureMailer{}
	cfg := testConfig()

	members := service.NewMemberService(store.Members())
	ledger := service.NewFeeLedger(store.Fees(), events.NoopEventBus{}, cfg.Fee.OrgTag)
	avail := service.NewAvailability(store.Reservations())
	scheduler, err := service.NewScheduler(store.Reservations(), members, ledger, avail, events.NoopEventBus{}, mail, cfg)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	seed := []domain.Member{
		{NationalID: memberCurrent, Name: "Maria Silva", Email: "maria@example.org", Standing: domain.DuesCurrent, Active: true},
		{NationalID: memberDelinquent, Name: "Carlos Souza", Email: "carlos@example.org", Standing: domain.DuesDelinquent, Active: true},
	}
	for i := range seed {
		if _, err := store.Members().Create(context.Background(), &seed[i]); err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}

	return &fixture{store: store, scheduler: scheduler, ledger: ledger, mail: mail}
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(domain.DateLayout)
}

func validRequest() *domain.ReservationRequest {
	return &domain.ReservationRequest{
		Name:     "Maria Silva",
		MemberID: memberCurrent,
		Date:     futureDate(2),
		Start:    "10:00",
		End:      "14:00",
		Email:    "maria@example.org",
		Guests:   4,
	}
}

func TestCreateReservationAdmits(t *testing.T) {
	f := newFixture(t)

	result, err := f.scheduler.CreateReservation(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	if result.Reservation == nil || result.Reservation.ID == 0 {
		t.Fatal("expected a persisted reservation")
	}
	if result.Reservation.Status != domain.ReservationActive {
		t.Errorf("status = %v, want active", result.Reservation.Status)
	}
	if result.Fee == nil {
		t.Fatal("expected a usage fee")
	}
	if result.Fee.Status != domain.FeePending {
		t.Errorf("fee status = %v, want pending", result.Fee.Status)
	}
	if result.Fee.AmountCents != 2500 {
		t.Errorf("fee amount = %d cents, want 2500", result.Fee.AmountCents)
	}
	if !strings.HasPrefix(result.Fee.PaymentCode, "UNION-") {
		t.Errorf("payment code %q missing org tag", result.Fee.PaymentCode)
	}
	if f.mail.lastTo != "maria@example.org" || f.mail.lastCode != result.Fee.PaymentCode {
		t.Errorf("payment instructions not mailed: to=%q code=%q", f.mail.lastTo, f.mail.lastCode)
	}
}

func TestCreateReservationConflictScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := futureDate(2)

	first := validRequest()
	first.Date = date
	if _, err := f.scheduler.CreateReservation(ctx, first); err != nil {
		t.Fatalf("first admission: %v", err)
	}

	second := validRequest()
	second.Date = date
	second.Start, second.End = "13:00", "17:00"
	_, err := f.scheduler.CreateReservation(ctx, second)
	if domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("overlapping request error = %v, want conflict", err)
	}
	if !strings.Contains(domain.MessageOf(err), "Maria Silva") {
		t.Errorf("conflict message %q should name the holder", domain.MessageOf(err))
	}

	// Touching the first interval's end does not conflict.
	third := validRequest()
	third.Date = date
	third.Start, third.End = "14:00", "18:00"
	if _, err := f.scheduler.CreateReservation(ctx, third); err != nil {
		t.Fatalf("touching interval rejected: %v", err)
	}
}

func TestCreateReservationLeadTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, days := range []int{0, -1, -10} {
		req := validRequest()
		req.Date = futureDate(days)
		_, err := f.scheduler.CreateReservation(ctx, req)
		if domain.KindOf(err) != domain.KindValidation {
			t.Errorf("date today%+d error = %v, want validation", days, err)
		}
		if !strings.Contains(domain.MessageOf(err), "notice") {
			t.Errorf("past-date message %q should mention notice", domain.MessageOf(err))
		}
	}

	over := validRequest()
	over.Date = futureDate(31)
	_, err := f.scheduler.CreateReservation(ctx, over)
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("over-horizon error = %v, want validation", err)
	}
	if !strings.Contains(domain.MessageOf(err), "advance") {
		t.Errorf("over-horizon message %q should be distinct from the past-date one", domain.MessageOf(err))
	}

	edge := validRequest()
	edge.Date = futureDate(30)
	if _, err := f.scheduler.CreateReservation(ctx, edge); err != nil {
		t.Errorf("horizon edge should be admitted: %v", err)
	}
}

func TestCreateReservationLeadTimeWestOfUTC(t *testing.T) {
	orig := time.Local
	time.Local = time.FixedZone("UTC-4", -4*60*60)
	defer func() { time.Local = orig }()

	f := newFixture(t)
	ctx := context.Background()

	tomorrow := validRequest()
	tomorrow.Date = futureDate(1)
	if _, err := f.scheduler.CreateReservation(ctx, tomorrow); err != nil {
		t.Errorf("next-day reservation should be admitted in a negative-offset zone: %v", err)
	}

	over := validRequest()
	over.Date = futureDate(31)
	over.Start, over.End = "08:00", "12:00"
	_, err := f.scheduler.CreateReservation(ctx, over)
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("over-horizon error = %v, want validation", err)
	}
	if !strings.Contains(domain.MessageOf(err), "advance") {
		t.Errorf("over-horizon message %q should mention the advance limit", domain.MessageOf(err))
	}
}

func TestCreateReservationChecksOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A delinquent member is rejected at the eligibility step before the
	// malformed date is ever parsed.
	req := &domain.ReservationRequest{
		Name:     "Carlos Souza",
		MemberID: memberDelinquent,
		Date:     "not-a-date",
		Start:    "99:99",
		End:      "also-bad",
	}
	_, err := f.scheduler.CreateReservation(ctx, req)
	if domain.KindOf(err) != domain.KindEligibility {
		t.Fatalf("delinquent member error = %v, want eligibility", err)
	}
	if !strings.Contains(domain.MessageOf(err), "delinquent") {
		t.Errorf("message %q should say why the member is ineligible", domain.MessageOf(err))
	}

	// Missing required fields short-circuit before anything else.
	req.Name = ""
	_, err = f.scheduler.CreateReservation(ctx, req)
	if domain.KindOf(err) != domain.KindValidation || domain.MessageOf(err) != "name is required" {
		t.Errorf("missing name error = %v", err)
	}

	// A malformed member ID fails before eligibility is consulted.
	bad := validRequest()
	bad.MemberID = "123"
	_, err = f.scheduler.CreateReservation(ctx, bad)
	if domain.KindOf(err) != domain.KindValidation {
		t.Errorf("short member ID error = %v, want validation", err)
	}
}

func TestCreateReservationRepeatedDigitID(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.MemberID = "11111111111"
	_, err := f.scheduler.CreateReservation(context.Background(), req)
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("repeated-digit ID error = %v, want validation", err)
	}
}

func TestCreateReservationEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unknown := validRequest()
	unknown.MemberID = memberUnknown
	_, err := f.scheduler.CreateReservation(ctx, unknown)
	if domain.KindOf(err) != domain.KindEligibility || !strings.Contains(domain.MessageOf(err), "not found") {
		t.Errorf("unknown member error = %v", err)
	}

	// Deactivate the current member and observe the distinct reason.
	members := service.NewMemberService(f.store.Members())
	if _, err := members.Deactivate(ctx, memberCurrent); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	inactive := validRequest()
	_, err = f.scheduler.CreateReservation(ctx, inactive)
	if domain.KindOf(err) != domain.KindEligibility || !strings.Contains(domain.MessageOf(err), "inactive") {
		t.Errorf("inactive member error = %v", err)
	}
}

func TestCreateReservationWindowAndDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		start, end string
	}{
		{"before window", "07:00", "11:00"},
		{"past window", "14:00", "19:00"},
		{"end before start", "14:00", "10:00"},
		{"zero length", "10:00", "10:00"},
		{"too short", "10:00", "12:00"},
		{"too long", "08:00", "17:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			req.Start, req.End = tt.start, tt.end
			_, err := f.scheduler.CreateReservation(ctx, req)
			if domain.KindOf(err) != domain.KindValidation {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}

	full := validRequest()
	full.Start, full.End = "08:00", "16:00"
	if _, err := f.scheduler.CreateReservation(ctx, full); err != nil {
		t.Errorf("8h slot across the window should be admitted: %v", err)
	}
}

func TestCreateReservationGuests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	over := validRequest()
	over.Guests = 21
	if _, err := f.scheduler.CreateReservation(ctx, over); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("21 guests error = %v, want validation", err)
	}

	// Omitted guest count defaults to a party of one.
	omitted := validRequest()
	omitted.Guests = 0
	result, err := f.scheduler.CreateReservation(ctx, omitted)
	if err != nil {
		t.Fatalf("omitted guests: %v", err)
	}
	if result.Reservation.Guests != 1 {
		t.Errorf("guests = %d, want 1", result.Reservation.Guests)
	}
}

// brokenFeeRepo simulates a fee store outage after reservations persist.
type brokenFeeRepo struct{}

var errFeeStoreDown = domain.Errorf(domain.KindUnknown, "fee store unavailable")

func (brokenFeeRepo) Create(context.Context, *domain.Fee) (*domain.Fee, error) {
	return nil, errFeeStoreDown
}
func (brokenFeeRepo) GetByID(context.Context, int64) (*domain.Fee, error) { return nil, nil }
func (brokenFeeRepo) GetUsageByReservation(context.Context, int64) (*domain.Fee, error) {
	return nil, nil
}
func (brokenFeeRepo) GetByPaymentCode(context.Context, string) (*domain.Fee, error) {
	return nil, nil
}
func (brokenFeeRepo) ListByMember(context.Context, string) ([]domain.Fee, error) { return nil, nil }
func (brokenFeeRepo) ListByStatus(context.Context, domain.FeeStatus) ([]domain.Fee, error) {
	return nil, nil
}
func (brokenFeeRepo) Update(context.Context, *domain.Fee) error { return errFeeStoreDown }
func (brokenFeeRepo) ExpirePending(context.Context, time.Time) ([]domain.Fee, error) {
	return nil, errFeeStoreDown
}
func (brokenFeeRepo) Totals(context.Context) (domain.FeeTotals, error) {
	return domain.FeeTotals{}, errFeeStoreDown
}

func TestCreateReservationPartialSuccess(t *testing.T) {
	store := memory.NewStore()
	mail := &captureMailer{}
	cfg := testConfig()

	members := service.NewMemberService(store.Members())
	ledger := service.NewFeeLedger(brokenFeeRepo{}, events.NoopEventBus{}, cfg.Fee.OrgTag)
	avail := service.NewAvailability(store.Reservations())
	scheduler, err := service.NewScheduler(store.Reservations(), members, ledger, avail, events.NoopEventBus{}, mail, cfg)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	m := domain.Member{NationalID: memberCurrent, Name: "Maria Silva", Email: "maria@example.org", Standing: domain.DuesCurrent, Active: true}
	if _, err := store.Members().Create(context.Background(), &m); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	result, err := scheduler.CreateReservation(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("fee failure must not fail the admission: %v", err)
	}
	if result.Reservation == nil {
		t.Fatal("reservation must survive fee issuance failure")
	}
	if result.Fee != nil {
		t.Error("fee must be nil on partial success")
	}
	if !strings.Contains(result.Message, "could not be issued") {
		t.Errorf("partial-success message %q must be distinct", result.Message)
	}

	stored, err := store.Reservations().GetByID(context.Background(), result.Reservation.ID)
	if err != nil || stored == nil || stored.Status != domain.ReservationActive {
		t.Errorf("reservation not persisted after partial success: %v %v", stored, err)
	}
}

func TestCancelReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.scheduler.CreateReservation(ctx, validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := result.Reservation.ID

	if err := f.scheduler.CancelReservation(ctx, id, "MARIA@example.org"); err != nil {
		t.Fatalf("cancel with matching email: %v", err)
	}

	err = f.scheduler.CancelReservation(ctx, id, "")
	if domain.KindOf(err) != domain.KindState || !strings.Contains(domain.MessageOf(err), "already cancelled") {
		t.Errorf("second cancel error = %v, want already-cancelled state error", err)
	}

	if err := f.scheduler.CancelReservation(ctx, 9999, ""); domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("unknown id error = %v, want not found", err)
	}
}

func TestCancelReservationEmailMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.scheduler.CreateReservation(ctx, validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = f.scheduler.CancelReservation(ctx, result.Reservation.ID, "intruder@example.org")
	if domain.KindOf(err) != domain.KindValidation {
		t.Errorf("mismatched email error = %v, want validation", err)
	}

	// Still active afterwards.
	stored, _ := f.store.Reservations().GetByID(ctx, result.Reservation.ID)
	if stored.Status != domain.ReservationActive {
		t.Error("failed cancel must not change status")
	}
}

func TestCancelReservationNoticeAndStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Inserted directly so the start can sit inside the notice window.
	soon := time.Now().Add(10 * time.Hour)
	r := &domain.Reservation{
		HolderName: "Maria Silva",
		MemberID:   memberCurrent,
		Date:       soon,
		Start:      domain.TimeOfDay(soon.Hour()*60 + soon.Minute()),
		End:        domain.TimeOfDay(soon.Hour()*60 + soon.Minute() + 30),
		Status:     domain.ReservationActive,
	}
	created, err := f.store.Reservations().Create(ctx, r)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	err = f.scheduler.CancelReservation(ctx, created.ID, "")
	if domain.KindOf(err) != domain.KindState || !strings.Contains(domain.MessageOf(err), "notice") {
		t.Errorf("short-notice cancel error = %v, want notice state error", err)
	}

	started := time.Now().Add(-2 * time.Hour)
	r2 := &domain.Reservation{
		HolderName: "Maria Silva",
		MemberID:   memberCurrent,
		Date:       started,
		Start:      domain.TimeOfDay(started.Hour()*60 + started.Minute()),
		End:        domain.TimeOfDay(started.Hour()*60 + started.Minute() + 30),
		Status:     domain.ReservationActive,
	}
	created2, err := f.store.Reservations().Create(ctx, r2)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	err = f.scheduler.CancelReservation(ctx, created2.ID, "")
	if domain.KindOf(err) != domain.KindState || !strings.Contains(domain.MessageOf(err), "started") {
		t.Errorf("started cancel error = %v, want already-started state error", err)
	}
}

func TestConcurrentOverlappingAdmissions(t *testing.T) {
	f := newFixture(t)
	date := futureDate(2)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.Date = date
			_, err := f.scheduler.CreateReservation(context.Background(), req)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else if domain.KindOf(err) != domain.KindConflict {
			t.Errorf("unexpected error kind: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("%d concurrent overlapping admissions succeeded, want exactly 1", successes)
	}
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := futureDate(2)

	req := validRequest()
	req.Date = date
	if _, err := f.scheduler.CreateReservation(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}

	free, err := f.scheduler.CheckAvailability(ctx, date, "14:00", "18:00")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !free.Available {
		t.Errorf("touching slot reported unavailable: %s", free.Message)
	}
	if len(free.Occupied) != 1 || free.Occupied[0].Label != "Maria Silva" {
		t.Errorf("occupied intervals = %+v", free.Occupied)
	}

	busy, err := f.scheduler.CheckAvailability(ctx, date, "12:00", "16:00")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if busy.Available {
		t.Error("overlapping slot reported available")
	}
	if len(busy.Occupied) != 1 {
		t.Error("occupied intervals must be returned on rejection too")
	}

	// Temporal validation failures still include the calendar.
	past, err := f.scheduler.CheckAvailability(ctx, futureDate(0), "10:00", "14:00")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if past.Available {
		t.Error("same-day slot reported available")
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slots := []struct {
		days       int
		start, end string
	}{
		{2, "10:00", "14:00"},
		{3, "10:00", "14:00"},
		{4, "08:00", "12:00"},
		{5, "14:00", "18:00"},
	}
	for _, s := range slots {
		req := validRequest()
		req.Date = futureDate(s.days)
		req.Start, req.End = s.start, s.end
		if _, err := f.scheduler.CreateReservation(ctx, req); err != nil {
			t.Fatalf("create %+v: %v", s, err)
		}
	}

	stats, err := f.scheduler.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ActiveUpcomingCount != 4 {
		t.Errorf("upcoming = %d, want 4", stats.ActiveUpcomingCount)
	}
	if stats.MostPopularStartTime != "10:00" {
		t.Errorf("popular start = %q, want 10:00", stats.MostPopularStartTime)
	}
}

func TestStatsPopularStartTieBreaksEarliest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, s := range []struct {
		days       int
		start, end string
	}{
		{2, "14:00", "18:00"},
		{3, "08:00", "12:00"},
	} {
		req := validRequest()
		req.Date = futureDate(s.days)
		req.Start, req.End = s.start, s.end
		if _, err := f.scheduler.CreateReservation(ctx, req); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	stats, err := f.scheduler.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.MostPopularStartTime != "08:00" {
		t.Errorf("tie should break to the earliest start, got %q", stats.MostPopularStartTime)
	}
}
