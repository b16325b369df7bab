package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUnitEstimator_CountLunchUnits(t *testing.T) {
	e := NewUnitEstimator(nil, 0)

	tests := []struct {
		name   string
		source SourceTag
		fields map[string]any
		want   int
	}{
		{
			name:   "meals list",
			source: SourceDineIn,
			fields: map[string]any{"total": 26000, "meals": []any{map[string]any{}, map[string]any{}}},
			want:   2,
		},
		{
			name:   "breakfast item marks the whole order",
			source: SourceDineIn,
			fields: map[string]any{"total": 40000, "meals": []any{
				map[string]any{}, map[string]any{"type": "desayuno"}, map[string]any{},
			}},
			want: 1,
		},
		{
			name:   "explicit count wins",
			source: SourceWaiter,
			fields: map[string]any{"total": 26000, "lunchUnits": float64(3), "meals": []any{map[string]any{}}},
			want:   3,
		},
		{
			name:   "explicit count as text",
			source: SourceWaiter,
			fields: map[string]any{"almuerzos": "4"},
			want:   4,
		},
		{
			name:   "quantity hint in free text",
			source: SourceDeliveryStaff,
			fields: map[string]any{"total": 45000, "notes": "🍽️ 2 almuerzos sin sopa"},
			want:   2,
		},
		{
			name:   "quantity hint nested",
			source: SourceDeliveryStaff,
			fields: map[string]any{"details": map[string]any{"summary": "5 Almuerzos"}},
			want:   5,
		},
		{
			name:   "exact price multiple",
			source: SourceDeliveryStaff,
			fields: map[string]any{"total": 42000},
			want:   3,
		},
		{
			name:   "price range",
			source: SourceDeliveryStaff,
			fields: map[string]any{"total": 27500},
			want:   2,
		},
		{
			name:   "below any price",
			source: SourceDeliveryStaff,
			fields: map[string]any{"total": 5000},
			want:   1,
		},
		{
			name:   "zero total",
			source: SourceDeliveryStaff,
			fields: map[string]any{"total": 0},
			want:   0,
		},
		{
			name:   "breakfast counts once",
			source: SourceBreakfastDelivery,
			fields: map[string]any{"total": 30000, "meals": []any{map[string]any{}, map[string]any{}}},
			want:   1,
		},
		{
			name:   "breakfast with zero total",
			source: SourceBreakfastSalon,
			fields: map[string]any{"total": 0},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CountLunchUnits(NewRecord(tt.source, "r", tt.fields)))
		})
	}
}

func TestUnitEstimator_Bounds(t *testing.T) {
	e := NewUnitEstimator(DefaultLunchPrices(), DefaultMaxUnits)

	for amount := int64(0); amount <= 1_000_000; amount += 7_500 {
		r := NewRecord(SourceDeliveryStaff, "r", map[string]any{"total": amount})
		n := e.CountLunchUnits(r)
		assert.GreaterOrEqual(t, n, 0)
		assert.LessOrEqual(t, n, DefaultMaxUnits)

		b := NewRecord(SourceBreakfastDelivery, "b", map[string]any{"total": amount})
		if amount > 0 {
			assert.Equal(t, 1, e.CountLunchUnits(b))
		} else {
			assert.Equal(t, 0, e.CountLunchUnits(b))
		}
	}
}

func TestNewUnitEstimator_SortsAndFilters(t *testing.T) {
	e := NewUnitEstimator([]decimal.Decimal{decimal.NewFromInt(16000), decimal.Zero, decimal.NewFromInt(12000)}, 10)
	assert.Len(t, e.Prices, 2)
	assert.True(t, e.Prices[0].Equal(decimal.NewFromInt(12000)))
	assert.Equal(t, 10, e.MaxUnits)
}
