package report

import (
	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/domain/report"
	"github.com/shopspring/decimal"
)

// DayAggregator folds one day of merged records into category buckets and tallies
type DayAggregator struct {
	classifier orders.Classifier
	units      orders.UnitEstimator
}

// NewDayAggregator creates a DayAggregator
func NewDayAggregator(units orders.UnitEstimator) *DayAggregator {
	return &DayAggregator{
		classifier: orders.NewClassifier(),
		units:      units,
	}
}

// Aggregate computes the live totals of day from ds
func (a *DayAggregator) Aggregate(day string, ds *Dataset) report.DayTotals {
	return a.Fold(day, ds.OrdersOn(day), ds.ExpensesOn(day))
}

// Fold aggregates records already filtered to day.
// Cancelled records only count toward the cancelled tally.
func (a *DayAggregator) Fold(day string, records, expenses []orders.Record) report.DayTotals {
	totals := report.DayTotals{
		Date:       day,
		Categories: report.ZeroCategories(),
		Expenses:   decimal.Zero,
	}

	for _, r := range records {
		totals.RecordCount++
		if orders.IsCancelled(r.Status()) {
			totals.Orders.Cancelled++
			continue
		}

		cls := a.classifier.Classify(r)
		channel := cls.ChannelOr(orders.DefaultChannel(r.Source))
		tally(&totals.Orders, channel)

		totals.Categories.Add(channel, cls.Meal, orders.RecordAmount(r))
		if cls.Meal == orders.MealBreakfast {
			totals.BreakfastCount += a.units.CountLunchUnits(r)
		} else {
			totals.LunchUnits += a.units.CountLunchUnits(r)
		}
	}

	for _, e := range expenses {
		if orders.IsCancelled(e.Status()) {
			continue
		}
		if amt := orders.RecordAmount(e); amt.IsPositive() {
			totals.Expenses = totals.Expenses.Add(amt)
		}
	}

	totals.TotalIncome = totals.Categories.Total()
	return totals
}

func tally(t *report.OrderTally, ch orders.Channel) {
	switch ch {
	case orders.ChannelDelivery:
		t.Delivery++
	case orders.ChannelDineIn:
		t.DineIn++
	case orders.ChannelTakeaway:
		t.Takeaway++
	default:
		t.Unknown++
	}
}
