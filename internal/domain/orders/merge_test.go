package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(source SourceTag, id string, fields map[string]any) Record {
	return NewRecord(source, id, fields)
}

func sumAmounts(records []Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(RecordAmount(r))
	}
	return total
}

func TestMergeDelivery(t *testing.T) {
	t.Run("same id in both sources is kept once", func(t *testing.T) {
		staff := []Record{rec(SourceDeliveryStaff, "a", map[string]any{"total": 20000})}
		customer := []Record{
			rec(SourceDeliveryCustomer, "a", map[string]any{"total": 20000}),
			rec(SourceDeliveryCustomer, "b", map[string]any{"total": 15000}),
		}

		merged := MergeDelivery(staff, customer)
		require.Len(t, merged, 2)
		assert.Equal(t, SourceDeliveryStaff, merged[0].Source)
		assert.Equal(t, "b", merged[1].ID)
		assert.True(t, sumAmounts(merged).Equal(decimal.NewFromInt(35000)))
	})

	t.Run("duplicates are dropped not summed", func(t *testing.T) {
		staff := []Record{
			rec(SourceDeliveryStaff, "x", map[string]any{"total": 10000}),
			rec(SourceDeliveryStaff, "x", map[string]any{"total": 99999}),
		}
		merged := MergeDelivery(staff, nil)
		require.Len(t, merged, 1)
		assert.True(t, sumAmounts(merged).Equal(decimal.NewFromInt(10000)))
	})

	t.Run("records without id are kept", func(t *testing.T) {
		merged := MergeDelivery(
			[]Record{rec(SourceDeliveryStaff, "", map[string]any{"total": 1})},
			[]Record{rec(SourceDeliveryCustomer, "", map[string]any{"total": 2})},
		)
		assert.Len(t, merged, 2)
	})
}

func TestMergeSalon(t *testing.T) {
	dineIn := []Record{rec(SourceDineIn, "m1", map[string]any{"total": 26000})}
	waiter := []Record{
		rec(SourceWaiter, "w1", map[string]any{"orderId": "m1", "total": 26000}),
		rec(SourceWaiter, "w2", map[string]any{"total": 14000}),
		rec(SourceWaiter, "w3", map[string]any{"orderId": "w2", "total": 14000}),
	}
	breakfast := []Record{rec(SourceBreakfastSalon, "b1", map[string]any{"total": 9000})}

	merged := MergeSalon(dineIn, waiter, breakfast)
	require.Len(t, merged, 3)
	assert.Equal(t, "m1", merged[0].ID)
	assert.Equal(t, "w2", merged[1].ID)
	assert.Equal(t, SourceBreakfastSalon, merged[2].Source)
	assert.True(t, sumAmounts(merged).Equal(decimal.NewFromInt(49000)))
}

func TestNormalizer_DeliveryKey(t *testing.T) {
	n := NewNormalizer(bogota)

	assert.Equal(t, "id:abc", n.DeliveryKey(rec(SourceDeliveryStaff, "abc", map[string]any{"orderId": "o1"})))
	assert.Equal(t, "order:o1", n.DeliveryKey(rec(SourceDeliveryStaff, "", map[string]any{"orderId": "o1"})))

	combo := rec(SourceBreakfastDelivery, "", map[string]any{
		"phone":     "+57 300-123 4567",
		"total":     "18.000",
		"localDate": "2024-05-03",
	})
	assert.Equal(t, "combo:573001234567|18000|2024-05-03", n.DeliveryKey(combo))

	nested := rec(SourceBreakfastDelivery, "", map[string]any{
		"address": map[string]any{"address": "Calle 1", "phone": "3001234567"},
		"total":   18000,
	})
	assert.Equal(t, "combo:3001234567|18000|", n.DeliveryKey(nested))

	assert.Empty(t, n.DeliveryKey(rec(SourceBreakfastDelivery, "", map[string]any{"total": 5000})))
}

func TestNormalizer_CoalesceByDeliveryKey(t *testing.T) {
	n := NewNormalizer(bogota)

	generic := []Record{
		rec(SourceDeliveryStaff, "x", map[string]any{"total": 18000, "isBreakfast": true}),
		rec(SourceDeliveryStaff, "", map[string]any{"total": 1000}),
	}
	specific := []Record{
		rec(SourceBreakfastDelivery, "x", map[string]any{"total": 18000}),
		rec(SourceBreakfastDelivery, "y", map[string]any{"total": 12000}),
		rec(SourceBreakfastDelivery, "", map[string]any{"total": 1000}),
	}

	out := n.CoalesceByDeliveryKey(generic, specific)
	require.Len(t, out, 4)
	assert.Equal(t, SourceDeliveryStaff, out[0].Source)
	assert.True(t, sumAmounts(out).Equal(decimal.NewFromInt(32000)))
}
