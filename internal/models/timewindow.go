package models

import (
	"fmt"
	"strconv"
	"time"
)

// TimeRange is one "expected login" window in HH:MM wall-clock time.
// Ranges where StartTime > EndTime wrap midnight (e.g. 22:00–06:00).
type TimeRange struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// TimeWindowPolicy is the admin-configured set of expected login hours.
// Singleton per deployment; an empty policy means no time-of-day penalty.
type TimeWindowPolicy struct {
	Ranges    []TimeRange `json:"ranges"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ParseClock converts a strict "HH:MM" string to minutes since midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("clock value %q is not in HH:MM format", s)
	}
	hh, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("clock value %q is not in HH:MM format", s)
	}
	mm, err := strconv.Atoi(s[3:])
	if err != nil {
		return 0, fmt.Errorf("clock value %q is not in HH:MM format", s)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock value %q is out of range", s)
	}
	return hh*60 + mm, nil
}

// MinutesOfDay converts a wall-clock time to minutes since midnight (0-1439).
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Bounds returns the range boundaries in minutes since midnight.
func (r TimeRange) Bounds() (start, end int, err error) {
	start, err = ParseClock(r.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err = ParseClock(r.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Contains reports whether minute t (since midnight) falls inside the range.
// The end boundary is exclusive. Wrap-around ranges match t >= start or
// t < end.
func (r TimeRange) Contains(t int) bool {
	start, end, err := r.Bounds()
	if err != nil {
		return false
	}
	if start <= end {
		return t >= start && t < end
	}
	return t >= start || t < end
}

// Validate checks every range for well-formed HH:MM boundaries.
func (p TimeWindowPolicy) Validate() error {
	for i, r := range p.Ranges {
		if _, _, err := r.Bounds(); err != nil {
			return &PolicyValidationError{Detail: fmt.Sprintf("range %d: %v", i, err)}
		}
	}
	return nil
}
