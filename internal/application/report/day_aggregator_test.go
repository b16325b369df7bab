package report

import (
	"testing"

	"github.com/comedor/backend/internal/domain/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDayAggregator_DeliveryAddressScenario(t *testing.T) {
	ds := dataset(order(orders.SourceDineIn, "d1", "2024-05-03", map[string]any{
		"total":   45000,
		"address": map[string]any{"address": "Calle 10 # 4-21"},
	}))

	totals := newAggregator().Aggregate("2024-05-03", ds)

	assert.True(t, totals.Categories.DeliveryLunch.Equal(decimal.NewFromInt(45000)))
	assert.True(t, totals.TotalIncome.Equal(decimal.NewFromInt(45000)))
	assert.Equal(t, 1, totals.Orders.Delivery)
}

func TestDayAggregator_RoutesBuckets(t *testing.T) {
	day := "2024-05-03"
	ds := dataset(
		order(orders.SourceDeliveryStaff, "a", day, map[string]any{"total": "$ 28.000"}),
		order(orders.SourceDeliveryCustomer, "a", day, map[string]any{"total": "28000"}),
		order(orders.SourceBreakfastDelivery, "b", day, map[string]any{"total": 9000}),
		order(orders.SourceDineIn, "c", day, map[string]any{"total": 26000, "meals": []any{map[string]any{}, map[string]any{}}}),
		order(orders.SourceWaiter, "w", day, map[string]any{"total": 14000, "tableNumber": "llevar"}),
		order(orders.SourceBreakfastSalon, "s", day, map[string]any{"total": 7000}),
		order(orders.SourceDineIn, "x", day, map[string]any{"total": 99000, "status": "Cancelado"}),
		order(orders.SourceDineIn, "z", day, map[string]any{"total": 0}),
		order(orders.SourceDineIn, "other", "2024-05-02", map[string]any{"total": 50000}),
	)

	totals := newAggregator().Aggregate(day, ds)

	assert.True(t, totals.Categories.DeliveryLunch.Equal(decimal.NewFromInt(28000)))
	assert.True(t, totals.Categories.DeliveryBreakfast.Equal(decimal.NewFromInt(9000)))
	assert.True(t, totals.Categories.DineInLunch.Equal(decimal.NewFromInt(26000)))
	assert.True(t, totals.Categories.TakeawayLunch.Equal(decimal.NewFromInt(14000)))
	assert.True(t, totals.Categories.DineInBreakfast.Equal(decimal.NewFromInt(7000)))
	assert.True(t, totals.Categories.TakeawayBreakfast.IsZero())

	t.Run("total income is the sum of buckets", func(t *testing.T) {
		assert.True(t, totals.TotalIncome.Equal(totals.Categories.Total()))
		assert.True(t, totals.TotalIncome.Equal(decimal.NewFromInt(84000)))
	})

	t.Run("tallies include zero totals and exclude cancelled", func(t *testing.T) {
		assert.Equal(t, 2, totals.Orders.Delivery)
		assert.Equal(t, 3, totals.Orders.DineIn)
		assert.Equal(t, 1, totals.Orders.Takeaway)
		assert.Equal(t, 1, totals.Orders.Cancelled)
		assert.Equal(t, 7, totals.RecordCount)
	})

	t.Run("lunch units and breakfasts", func(t *testing.T) {
		// 28000 -> 2, 26000 with two meals -> 2, 14000 -> 1, zero total -> 0
		assert.Equal(t, 5, totals.LunchUnits)
		assert.Equal(t, 2, totals.BreakfastCount)
	})
}

func TestDayAggregator_Expenses(t *testing.T) {
	day := "2024-05-03"
	ds := dataset(
		order(orders.SourceExpenses, "e1", day, map[string]any{"amount": "$ 1.200.000"}),
		order(orders.SourceExpenses, "e2", day, map[string]any{"amount": 30000}),
		order(orders.SourceExpenses, "e3", day, map[string]any{"amount": 5000, "status": "anulado"}),
	)

	totals := newAggregator().Aggregate(day, ds)
	assert.True(t, totals.Expenses.Equal(decimal.NewFromInt(1230000)))
	assert.True(t, totals.TotalIncome.IsZero())
	assert.False(t, totals.HasData())
}

func TestDataset_UndatedRecords(t *testing.T) {
	ds := dataset(
		orders.NewRecord(orders.SourceDineIn, "u", map[string]any{"total": 10000}),
		order(orders.SourceDineIn, "d", "2024-05-03", map[string]any{"total": 20000}),
	)

	assert.Equal(t, 1, ds.Undated())
	assert.Len(t, ds.Orders(), 2)
	assert.Equal(t, []string{"2024-05-03"}, ds.Days())

	next := ds.With(orders.SourceDineIn, nil)
	assert.Empty(t, next.Orders())
	assert.Len(t, ds.Orders(), 2, "With must not mutate the original")
}
