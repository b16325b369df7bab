package report

import (
	"time"

	"github.com/comedor/backend/internal/domain/orders"
)

// DayOf renders t as a day key in loc
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(orders.DayLayout)
}

// AddDays shifts a day key by n calendar days. Invalid keys are returned unchanged.
func AddDays(day string, n int) string {
	t, err := time.Parse(orders.DayLayout, day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, n).Format(orders.DayLayout)
}

// DaysBetween lists the day keys in [from, to]
func DaysBetween(from, to string) []string {
	start, err1 := time.Parse(orders.DayLayout, from)
	end, err2 := time.Parse(orders.DayLayout, to)
	if err1 != nil || err2 != nil || end.Before(start) {
		return nil
	}
	days := make([]string, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(orders.DayLayout))
	}
	return days
}

// ValidDay reports whether s is a YYYY-MM-DD calendar day
func ValidDay(s string) bool {
	_, err := time.Parse(orders.DayLayout, s)
	return err == nil
}
