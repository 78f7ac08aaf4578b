package extract

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the manufacturer-facing date format (MM/DD/YYYY).
const DateLayout = "01/02/2006"

// parseDate accepts one- or two-digit month and day fields.
func parseDate(s string) (time.Time, error) {
	var m, d, y int
	if _, err := fmt.Sscanf(s, "%d/%d/%d", &m, &d, &y); err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1000 {
		return time.Time{}, fmt.Errorf("parse date %q: out of range", s)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, fmt.Errorf("parse date %q: no such day", s)
	}
	return t, nil
}

// normalizeDate rewrites "8/7/2035" as "08/07/2035". Unparseable input is
// returned unchanged.
func normalizeDate(s string) string {
	t, err := parseDate(s)
	if err != nil {
		return s
	}
	return t.Format(DateLayout)
}

// subtractYears moves t back n calendar years. Feb 29 lands on Feb 28 when
// the target year is not a leap year.
func subtractYears(t time.Time, n int) time.Time {
	y := t.Year() - n
	d := t.Day()
	if t.Month() == time.February && d == 29 && !isLeap(y) {
		d = 28
	}
	return time.Date(y, t.Month(), d, 0, 0, 0, 0, t.Location())
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// installDate back-computes the install date from a component's end date
// and term.
func installDate(endDate string, termYears int) (time.Time, bool) {
	end, err := parseDate(endDate)
	if err != nil || termYears <= 0 {
		return time.Time{}, false
	}
	return subtractYears(end, termYears), true
}

// statusAt is "Active" while the end date is after now, "Expired" otherwise.
func statusAt(endDate string, now time.Time) (string, bool) {
	end, err := parseDate(endDate)
	if err != nil {
		return "", false
	}
	if end.After(now) {
		return "Active", true
	}
	return "Expired", true
}

// ageYears is the elapsed time since install in years, rounded to one decimal.
func ageYears(install, now time.Time) float64 {
	days := math.Floor(now.Sub(install).Hours() / 24)
	return math.Round(days/365.25*10) / 10
}
