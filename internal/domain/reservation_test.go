package domain

import (
	"testing"
	"time"
)

func TestReservationCanCancel(t *testing.T) {
	now := time.Now()
	start := TimeOfDay(10 * 60)

	r := &Reservation{
		Status: ReservationActive,
		Date:   now.AddDate(0, 0, 3),
		Start:  start,
	}
	if !r.CanCancel(now) {
		t.Error("three days of notice should allow cancellation")
	}

	r.Date = now.AddDate(0, 0, 1)
	// Less than 24h before a 10:00 start on the next day only when now is
	// past 10:00.
	justUnder := r.StartsAt().Add(-23 * time.Hour)
	if r.CanCancel(justUnder) {
		t.Error("23 hours of notice must not allow cancellation")
	}
	justOver := r.StartsAt().Add(-25 * time.Hour)
	if !r.CanCancel(justOver) {
		t.Error("25 hours of notice should allow cancellation")
	}

	r.Status = ReservationCancelled
	if r.CanCancel(justOver) {
		t.Error("a cancelled reservation cannot be cancelled again")
	}
}

func TestReservationIsHolder(t *testing.T) {
	r := &Reservation{Email: "Maria.Silva@Example.org"}

	if !r.IsHolder("maria.silva@example.org") {
		t.Error("email match must be case-insensitive")
	}
	if !r.IsHolder("  maria.silva@example.org  ") {
		t.Error("email match must ignore surrounding whitespace")
	}
	if r.IsHolder("other@example.org") {
		t.Error("different email must not match")
	}
}

func TestReservationDTO(t *testing.T) {
	r := &Reservation{
		ID:         7,
		HolderName: "Maria Silva",
		Date:       time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		Start:      TimeOfDay(600),
		End:        TimeOfDay(840),
		Status:     ReservationActive,
	}

	dto := r.DTO()
	if dto.Date != "2026-09-15" || dto.Start != "10:00" || dto.End != "14:00" {
		t.Errorf("DTO formatting wrong: %+v", dto)
	}
	if dto.Status != "active" {
		t.Errorf("DTO status = %q", dto.Status)
	}
}
