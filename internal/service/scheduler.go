package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/platform/mailer"
	"github.com/unionhall/pit-reservations/internal/repository"
	"github.com/unionhall/pit-reservations/internal/validate"
	"github.com/unionhall/pit-reservations/pkg/config"
	"github.com/unionhall/pit-reservations/pkg/events"
	"github.com/unionhall/pit-reservations/pkg/logger"
)

type Scheduler interface {
	CreateReservation(ctx context.Context, req *domain.ReservationRequest) (*CreateResult, error)
	CancelReservation(ctx context.Context, id int64, confirmingEmail string) error
	CheckAvailability(ctx context.Context, date, start, end string) (*AvailabilityResult, error)
	Stats(ctx context.Context) (*StatsResult, error)
	Get(ctx context.Context, id int64) (*domain.Reservation, error)
	ListUpcoming(ctx context.Context, days int) ([]domain.Reservation, error)
}

// CreateResult reports an admitted reservation. Fee is nil and Message
// explains the follow-up when issuance failed after the reservation was
// already persisted.
type CreateResult struct {
	Reservation *domain.Reservation
	Fee         *domain.Fee
	Message     string
}

type AvailabilityResult struct {
	Available bool                      `json:"available"`
	Message   string                    `json:"message"`
	Occupied  []domain.OccupiedInterval `json:"occupied_intervals"`
}

type StatsResult struct {
	ActiveUpcomingCount  int    `json:"active_upcoming_count"`
	CountThisMonth       int    `json:"count_this_month"`
	MostPopularStartTime string `json:"most_popular_start_time,omitempty"`
}

type scheduler struct {
	reservations repository.ReservationRepo
	members      MemberService
	ledger       FeeLedger
	avail        Availability
	eventBus     events.Publisher
	mail         mailer.Service
	cfg          *config.Config

	windowOpen  domain.TimeOfDay
	windowClose domain.TimeOfDay
	dates       *dateLock
}

func NewScheduler(
	reservations repository.ReservationRepo,
	members MemberService,
	ledger FeeLedger,
	avail Availability,
	eventBus events.Publisher,
	mail mailer.Service,
	cfg *config.Config,
) (Scheduler, error) {
	open, err := domain.ParseTimeOfDay(cfg.Booking.WindowOpen)
	if err != nil {
		return nil, fmt.Errorf("window open: %w", err)
	}
	close, err := domain.ParseTimeOfDay(cfg.Booking.WindowClose)
	if err != nil {
		return nil, fmt.Errorf("window close: %w", err)
	}
	if close <= open {
		return nil, fmt.Errorf("operating window %s-%s is empty", open, close)
	}

	return &scheduler{
		reservations: reservations,
		members:      members,
		ledger:       ledger,
		avail:        avail,
		eventBus:     eventBus,
		mail:         mail,
		cfg:          cfg,
		windowOpen:   open,
		windowClose:  close,
		dates:        newDateLock(),
	}, nil
}

// CreateReservation applies the admission rules in a fixed order; the first
// failing rule short-circuits and nothing after it is evaluated.
func (s *scheduler) CreateReservation(ctx context.Context, req *domain.ReservationRequest) (*CreateResult, error) {
	// 1. required fields
	if err := checkRequired(req); err != nil {
		return nil, err
	}

	// 2-5. pure input validation
	if ok, msg := validate.NationalID(req.MemberID); !ok {
		return nil, domain.ValidationError("%s", msg)
	}
	if ok, msg := validate.HolderName(req.Name); !ok {
		return nil, domain.ValidationError("%s", msg)
	}
	if req.Email != "" {
		if ok, msg := validate.Email(req.Email); !ok {
			return nil, domain.ValidationError("%s", msg)
		}
	}
	guests := req.Guests
	if guests == 0 {
		guests = 1
	}
	if ok, msg := validate.GuestCount(guests, s.cfg.Booking.MaxGuests); !ok {
		return nil, domain.ValidationError("%s", msg)
	}

	// 6. eligibility
	member, err := s.members.CheckEligibility(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}

	// 7. lead time
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, domain.ValidationError("%s", err.Error())
	}
	if err := s.checkLeadTime(date); err != nil {
		return nil, err
	}

	// 8. operating window and duration
	start, end, err := s.checkWindow(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	// 9-10. conflict check and insert run as one critical section per date.
	unlock := s.dates.lock(date)
	defer unlock()

	conflict, label, err := s.avail.HasConflict(ctx, date, start, end, 0)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if conflict {
		return nil, domain.ConflictError("the requested interval overlaps the reservation held by %s", label)
	}

	reservation := &domain.Reservation{
		HolderName: strings.TrimSpace(req.Name),
		MemberID:   member.NationalID,
		Date:       date,
		Start:      start,
		End:        end,
		Guests:     guests,
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Notes:      strings.TrimSpace(req.Notes),
		Status:     domain.ReservationActive,
	}

	created, err := s.reservations.Create(ctx, reservation)
	if err != nil {
		return nil, err
	}

	s.publishCreated(ctx, created)

	fee, err := s.ledger.IssueUsageFee(ctx, created.ID, created.MemberID, s.cfg.Fee.UsageAmountCents, s.cfg.Fee.DueIn)
	if err != nil {
		// The reservation stays admitted. Operators reconcile the missing
		// fee from this log line and the distinct result message.
		logger.ErrorContext(ctx, "usage fee issuance failed after reservation was created",
			"error", err, "reservation_id", created.ID, "member_id", created.MemberID)
		return &CreateResult{
			Reservation: created,
			Message:     "reservation confirmed, but the usage fee could not be issued; it must be re-issued by the office",
		}, nil
	}

	if created.Email != "" {
		if err := s.mail.SendPaymentInstructions(created.Email, created.HolderName, fee.PaymentCode,
			float64(fee.AmountCents)/100, fee.DueDate.Format(domain.DateLayout)); err != nil {
			logger.ErrorContext(ctx, "failed to send payment instructions", "error", err, "fee_id", fee.ID)
		}
	}

	logger.InfoContext(ctx, "reservation admitted",
		"reservation_id", created.ID, "member_id", created.MemberID,
		"date", created.Date.Format(domain.DateLayout), "start", created.Start.String(), "end", created.End.String())

	return &CreateResult{
		Reservation: created,
		Fee:         fee,
		Message:     "reservation confirmed; payment instructions issued",
	}, nil
}

func checkRequired(req *domain.ReservationRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return domain.ValidationError("name is required")
	case strings.TrimSpace(req.MemberID) == "":
		return domain.ValidationError("member ID is required")
	case strings.TrimSpace(req.Date) == "":
		return domain.ValidationError("date is required")
	case strings.TrimSpace(req.Start) == "":
		return domain.ValidationError("start time is required")
	case strings.TrimSpace(req.End) == "":
		return domain.ValidationError("end time is required")
	}
	return nil
}

// checkLeadTime requires the date to be strictly after today and within the
// advance-booking horizon. Same-day requests are rejected.
func (s *scheduler) checkLeadTime(date time.Time) error {
	today := dateOnly(time.Now())
	day := dateOnly(date)

	if !day.After(today) {
		return domain.ValidationError("reservations require at least one day of notice")
	}
	horizon := today.AddDate(0, 0, s.cfg.Booking.MaxAdvanceDays)
	if day.After(horizon) {
		return domain.ValidationError("reservations may be made at most %d days in advance", s.cfg.Booking.MaxAdvanceDays)
	}
	return nil
}

func (s *scheduler) checkWindow(startStr, endStr string) (domain.TimeOfDay, domain.TimeOfDay, error) {
	start, err := domain.ParseTimeOfDay(startStr)
	if err != nil {
		return 0, 0, domain.ValidationError("%s", err.Error())
	}
	end, err := domain.ParseTimeOfDay(endStr)
	if err != nil {
		return 0, 0, domain.ValidationError("%s", err.Error())
	}

	if !start.Before(end) {
		return 0, 0, domain.ValidationError("end time must be after start time")
	}
	if start < s.windowOpen || end > s.windowClose {
		return 0, 0, domain.ValidationError("reservations must fall within the operating window (%s-%s)", s.windowOpen, s.windowClose)
	}

	duration := end.Sub(start)
	if duration < s.cfg.Booking.MinDuration {
		return 0, 0, domain.ValidationError("reservations must last at least %s", formatDuration(s.cfg.Booking.MinDuration))
	}
	if duration > s.cfg.Booking.MaxDuration {
		return 0, 0, domain.ValidationError("reservations may last at most %s", formatDuration(s.cfg.Booking.MaxDuration))
	}
	return start, end, nil
}

func (s *scheduler) CancelReservation(ctx context.Context, id int64, confirmingEmail string) error {
	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get reservation: %w", err)
	}
	if reservation == nil {
		return domain.NotFoundError("reservation not found")
	}
	if reservation.Status != domain.ReservationActive {
		return domain.StateError("reservation is already cancelled")
	}

	now := time.Now()
	if !now.Before(reservation.StartsAt()) {
		return domain.StateError("reservation has already started")
	}
	if !reservation.CanCancel(now) {
		return domain.StateError("cancellation requires %d hours notice", domain.CancelNoticeHours)
	}
	if confirmingEmail != "" && reservation.Email != "" && !reservation.IsHolder(confirmingEmail) {
		return domain.ValidationError("email does not match the reservation")
	}

	ok, err := s.reservations.Cancel(ctx, id, "cancelled by holder")
	if err != nil {
		return fmt.Errorf("cancel reservation: %w", err)
	}
	if !ok {
		return domain.StateError("reservation is already cancelled")
	}

	event := events.ReservationCanceledEvent{
		ReservationID: reservation.ID,
		MemberID:      reservation.MemberID,
		Reason:        "holder_requested",
		CanceledAt:    now,
	}
	if err := s.eventBus.Publish(ctx, events.ReservationCanceled, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish reservation canceled event", "error", err, "reservation_id", id)
	}

	logger.InfoContext(ctx, "reservation cancelled", "reservation_id", id, "member_id", reservation.MemberID)
	return nil
}

// CheckAvailability validates the slot and reports the busy intervals for
// the date either way, so callers can render a calendar around a rejection.
func (s *scheduler) CheckAvailability(ctx context.Context, dateStr, startStr, endStr string) (*AvailabilityResult, error) {
	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return nil, domain.ValidationError("%s", err.Error())
	}

	occupied, err := s.avail.OccupiedIntervals(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("occupied intervals: %w", err)
	}

	if err := s.checkLeadTime(date); err != nil {
		return &AvailabilityResult{Message: domain.MessageOf(err), Occupied: occupied}, nil
	}

	start, end, err := s.checkWindow(startStr, endStr)
	if err != nil {
		return &AvailabilityResult{Message: domain.MessageOf(err), Occupied: occupied}, nil
	}

	conflict, label, err := s.avail.HasConflict(ctx, date, start, end, 0)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if conflict {
		return &AvailabilityResult{
			Message:  fmt.Sprintf("the requested interval overlaps the reservation held by %s", label),
			Occupied: occupied,
		}, nil
	}

	return &AvailabilityResult{Available: true, Message: "the requested interval is available", Occupied: occupied}, nil
}

func (s *scheduler) Stats(ctx context.Context) (*StatsResult, error) {
	today := dateOnly(time.Now())

	upcoming, err := s.reservations.CountActiveFrom(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("count upcoming: %w", err)
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)
	thisMonth, err := s.reservations.CountActiveBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("count this month: %w", err)
	}

	counts, err := s.reservations.ActiveStartTimeCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("start time counts: %w", err)
	}

	// counts come back ordered by start time, so on a tie the earliest
	// start wins.
	popular := ""
	best := 0
	for _, c := range counts {
		if c.Count > best {
			best = c.Count
			popular = c.Start.String()
		}
	}

	return &StatsResult{
		ActiveUpcomingCount:  upcoming,
		CountThisMonth:       thisMonth,
		MostPopularStartTime: popular,
	}, nil
}

func (s *scheduler) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if reservation == nil {
		return nil, domain.NotFoundError("reservation not found")
	}
	return reservation, nil
}

func (s *scheduler) ListUpcoming(ctx context.Context, days int) ([]domain.Reservation, error) {
	if days <= 0 {
		days = s.cfg.Booking.MaxAdvanceDays
	}
	today := dateOnly(time.Now())
	return s.reservations.ListActiveBetween(ctx, today, today.AddDate(0, 0, days+1))
}

func (s *scheduler) publishCreated(ctx context.Context, r *domain.Reservation) {
	event := events.ReservationCreatedEvent{
		ReservationID: r.ID,
		MemberID:      r.MemberID,
		HolderName:    r.HolderName,
		Date:          r.Date.Format(domain.DateLayout),
		Start:         r.Start.String(),
		End:           r.End.String(),
		Guests:        r.Guests,
		CreatedAt:     r.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.ReservationCreated, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish reservation created event", "error", err, "reservation_id", r.ID)
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
