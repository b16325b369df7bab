package report

import (
	"context"
	"time"

	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/domain/report"
	"github.com/comedor/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// PeriodComposer sums reconciled days into the dashboard windows
type PeriodComposer struct {
	reconciler *Reconciler
	metrics    *telemetry.DashboardMetrics
}

// NewPeriodComposer creates a PeriodComposer
func NewPeriodComposer(reconciler *Reconciler, metrics *telemetry.DashboardMetrics) *PeriodComposer {
	return &PeriodComposer{reconciler: reconciler, metrics: metrics}
}

// PeriodRange returns the first and last day of period ending on today
func PeriodRange(period report.Period, today string) (string, string) {
	t, err := time.Parse(orders.DayLayout, today)
	if err != nil {
		return today, today
	}
	switch period {
	case report.PeriodLast7Days:
		return AddDays(today, -6), today
	case report.PeriodThisMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format(orders.DayLayout), today
	case report.PeriodThisYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC).Format(orders.DayLayout), today
	default:
		return today, today
	}
}

// Compose builds every period ending on today. Each day is resolved once.
func (c *PeriodComposer) Compose(ctx context.Context, today string, ds *Dataset) []report.PeriodView {
	from := today
	for _, p := range report.AllPeriods() {
		if start, _ := PeriodRange(p, today); start < from {
			from = start
		}
	}
	resolved := c.resolve(ctx, today, from, ds)

	views := make([]report.PeriodView, 0, len(report.AllPeriods()))
	for _, p := range report.AllPeriods() {
		views = append(views, c.sum(ctx, p, today, resolved))
	}
	return views
}

// ComposePeriod builds a single period ending on today
func (c *PeriodComposer) ComposePeriod(ctx context.Context, period report.Period, today string, ds *Dataset) report.PeriodView {
	from, _ := PeriodRange(period, today)
	return c.sum(ctx, period, today, c.resolve(ctx, today, from, ds))
}

// resolve reads the persisted snapshots of the past days in one range query, then resolves every day
func (c *PeriodComposer) resolve(ctx context.Context, today, from string, ds *Dataset) map[string]report.ResolvedDay {
	c.reconciler.Refresh(ctx, from, AddDays(today, -1))
	days := DaysBetween(from, today)
	resolved := make(map[string]report.ResolvedDay, len(days))
	for _, day := range days {
		resolved[day] = c.reconciler.ResolveDay(ctx, today, day, ds)
	}
	return resolved
}

func (c *PeriodComposer) sum(ctx context.Context, period report.Period, today string, resolved map[string]report.ResolvedDay) report.PeriodView {
	from, to := PeriodRange(period, today)
	view := report.PeriodView{
		Period:      period,
		From:        from,
		To:          to,
		Categories:  report.ZeroCategories(),
		TotalIncome: decimal.Zero,
		Expenses:    decimal.Zero,
	}
	for _, day := range DaysBetween(from, to) {
		d := resolved[day]
		view.Categories = view.Categories.Plus(d.Categories)
		view.Expenses = view.Expenses.Add(d.Expenses)
		view.Orders = view.Orders.Plus(d.Orders)
		view.Days.Count(d.State)
		if period != report.PeriodThisYear {
			view.Daily = append(view.Daily, d)
		}
	}
	view.TotalIncome = view.Categories.Total()
	view.NetRevenue = report.NetOf(view.TotalIncome, view.Expenses)

	p := string(period)
	c.metrics.RecordDayState(ctx, p, string(report.DayClosed), view.Days.Closed)
	c.metrics.RecordDayState(ctx, p, string(report.DayOpen), view.Days.Open)
	c.metrics.RecordDayState(ctx, p, string(report.DayBackfillPending), view.Days.Backfilled)
	c.metrics.RecordDayState(ctx, p, string(report.DayMissing), view.Days.Missing)
	return view
}
