package utils

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// MaxRangeNights bounds every night range the service will expand.
const MaxRangeNights = 365

// NormalizeDate truncates t to midnight UTC of its UTC calendar day.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDateOnly parses a YYYY-MM-DD string (a longer ISO timestamp is cut to
// its date part) as UTC midnight.
func ParseDateOnly(value string) (time.Time, error) {
	if len(value) > len(DateLayout) {
		value = value[:len(DateLayout)]
	}

	d, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}

	return d, nil
}

// BuildNights lists every night in the half-open range [from, to).
func BuildNights(from, to time.Time) []time.Time {
	start := NormalizeDate(from)
	end := NormalizeDate(to)

	var nights []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}

	return nights
}

// DiffInDays counts whole days between two dates after normalization.
func DiffInDays(from, to time.Time) int {
	return int(NormalizeDate(to).Sub(NormalizeDate(from)).Hours() / 24)
}

// ValidateFutureDateRange requires check-in today or later and check-out
// strictly after check-in.
func ValidateFutureDateRange(from, to, now time.Time) error {
	today := NormalizeDate(now)
	from = NormalizeDate(from)
	to = NormalizeDate(to)

	if from.Before(today) {
		return fmt.Errorf("check-in date must be today or later")
	}

	if !to.After(from) {
		return fmt.Errorf("check-out date must be after check-in date")
	}

	return nil
}

// ValidateRangeLength rejects ranges longer than MaxRangeNights, before any
// caller builds a night list from them.
func ValidateRangeLength(from, to time.Time) error {
	if DiffInDays(from, to) > MaxRangeNights {
		return fmt.Errorf("date range cannot exceed %d nights", MaxRangeNights)
	}
	return nil
}
