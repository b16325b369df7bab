package report

import (
	"github.com/shopspring/decimal"
)

// Period names a composed dashboard window
type Period string

const (
	PeriodToday     Period = "today"
	PeriodLast7Days Period = "last_7_days"
	PeriodThisMonth Period = "this_month"
	PeriodThisYear  Period = "this_year"
)

// AllPeriods returns the periods in display order
func AllPeriods() []Period {
	return []Period{PeriodToday, PeriodLast7Days, PeriodThisMonth, PeriodThisYear}
}

// ParsePeriod validates a period name
func ParsePeriod(s string) (Period, bool) {
	for _, p := range AllPeriods() {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// DayStateCounts counts how each day of a window was resolved
type DayStateCounts struct {
	Closed     int `json:"closed"`
	Open       int `json:"open"`
	Backfilled int `json:"backfilled"`
	Missing    int `json:"missing"`
}

// Count records one resolved day
func (c *DayStateCounts) Count(state DayState) {
	switch state {
	case DayClosed:
		c.Closed++
	case DayOpen:
		c.Open++
	case DayBackfillPending:
		c.Backfilled++
	case DayMissing:
		c.Missing++
	}
}

// PeriodView is the summed view over a window of days
type PeriodView struct {
	Period      Period              `json:"period"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	Categories  CategoryAccumulator `json:"categories"`
	TotalIncome decimal.Decimal     `json:"total_income"`
	Expenses    decimal.Decimal     `json:"expenses"`
	NetRevenue  decimal.Decimal     `json:"net_revenue"`
	Orders      OrderTally          `json:"orders"`
	Days        DayStateCounts      `json:"days"`
	Daily       []ResolvedDay       `json:"daily,omitempty"`
}
