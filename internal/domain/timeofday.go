package domain

import (
	"fmt"
	"time"
)

// TimeOfDay is a clock time within a day, stored as minutes since midnight.
// Reservation intervals are half-open [Start, End): touching endpoints do
// not overlap.
type TimeOfDay int

const DateLayout = "2006-01-02"

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// ParseDate reads a YYYY-MM-DD value as midnight in the local zone, so the
// calendar day survives comparisons against time.Now without offset shifts.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) Before(o TimeOfDay) bool { return t < o }

// Sub returns the duration between two clock times.
func (t TimeOfDay) Sub(o TimeOfDay) time.Duration {
	return time.Duration(int(t)-int(o)) * time.Minute
}

// On anchors the clock time onto a calendar date in the local zone.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, time.Local)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid time of day: %s", b)
	}
	parsed, err := ParseTimeOfDay(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect.
func Overlaps(s1, e1, s2, e2 TimeOfDay) bool {
	return s1 < e2 && e1 > s2
}
