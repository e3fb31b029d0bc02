package service

import (
	"context"
	"fmt"
	"time"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/internal/repository"
)

type Availability interface {
	// OccupiedIntervals lists the busy slots on a date, ordered by start
	// time, labeled by holder name. Cancelled reservations never appear.
	OccupiedIntervals(ctx context.Context, date time.Time) ([]domain.OccupiedInterval, error)
	// HasConflict reports whether [start,end) overlaps an active reservation
	// on the date. excludeID skips one reservation, 0 skips none. Touching
	// endpoints do not conflict.
	HasConflict(ctx context.Context, date time.Time, start, end domain.TimeOfDay, excludeID int64) (bool, string, error)
}

type availability struct {
	reservations repository.ReservationRepo
}

func NewAvailability(reservations repository.ReservationRepo) Availability {
	return &availability{reservations: reservations}
}

func (s *availability) OccupiedIntervals(ctx context.Context, date time.Time) ([]domain.OccupiedInterval, error) {
	active, err := s.reservations.ListActiveOnDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	intervals := make([]domain.OccupiedInterval, 0, len(active))
	for i := range active {
		intervals = append(intervals, domain.OccupiedInterval{
			Start: active[i].Start,
			End:   active[i].End,
			Label: active[i].HolderName,
		})
	}
	return intervals, nil
}

func (s *availability) HasConflict(ctx context.Context, date time.Time, start, end domain.TimeOfDay, excludeID int64) (bool, string, error) {
	active, err := s.reservations.ListActiveOnDate(ctx, date)
	if err != nil {
		return false, "", fmt.Errorf("list reservations: %w", err)
	}

	for i := range active {
		if excludeID != 0 && active[i].ID == excludeID {
			continue
		}
		if domain.Overlaps(start, end, active[i].Start, active[i].End) {
			return true, active[i].HolderName, nil
		}
	}
	return false, "", nil
}
