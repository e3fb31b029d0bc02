package domain

import (
	"strings"
	"time"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCancelled ReservationStatus = "cancelled"
)

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch ReservationStatus(s) {
	case ReservationActive, ReservationCancelled:
		return ReservationStatus(s), true
	default:
		return "", false
	}
}

// CancelNoticeHours is the minimum notice for cancelling a reservation.
const CancelNoticeHours = 24

// Reservation is an exclusive booking of the shared pit for one interval on
// one date. Date carries only the calendar day; Start and End are clock
// times within the operating window.
type Reservation struct {
	ID         int64             `json:"id"`
	HolderName string            `json:"holder_name"`
	MemberID   string            `json:"member_id"`
	Date       time.Time         `json:"date"`
	Start      TimeOfDay         `json:"start"`
	End        TimeOfDay         `json:"end"`
	Guests     int               `json:"guests"`
	Email      string            `json:"email,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	Status     ReservationStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
}

// StartsAt returns the wall-clock moment the reservation begins.
func (r *Reservation) StartsAt() time.Time {
	return r.Start.On(r.Date)
}

// CanCancel checks the 24h-notice rule against now.
func (r *Reservation) CanCancel(now time.Time) bool {
	if r.Status != ReservationActive {
		return false
	}
	cutoff := r.StartsAt().Add(-CancelNoticeHours * time.Hour)
	return now.Before(cutoff)
}

// IsHolder checks the confirming email against the stored one,
// case-insensitively. An identity hint, not authentication.
func (r *Reservation) IsHolder(email string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Email), strings.TrimSpace(email))
}

// OccupiedInterval is one busy slot on a date, labeled for calendar display.
type OccupiedInterval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
	Label string    `json:"label"`
}

// ReservationRequest is the already-parsed admission request.
type ReservationRequest struct {
	Name     string `json:"name"`
	MemberID string `json:"member_id"`
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Guests   int    `json:"guests,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// ReservationDTO is the boundary shape: ISO date and HH:MM strings.
type ReservationDTO struct {
	ID         int64     `json:"id"`
	HolderName string    `json:"holder_name"`
	MemberID   string    `json:"member_id"`
	Date       string    `json:"date"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Guests     int       `json:"guests"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *Reservation) DTO() ReservationDTO {
	return ReservationDTO{
		ID:         r.ID,
		HolderName: r.HolderName,
		MemberID:   r.MemberID,
		Date:       r.Date.Format(DateLayout),
		Start:      r.Start.String(),
		End:        r.End.String(),
		Guests:     r.Guests,
		Email:      r.Email,
		Phone:      r.Phone,
		Notes:      r.Notes,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
	}
}
