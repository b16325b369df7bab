package report

import (
	"github.com/comedor/backend/internal/domain/orders"
	"github.com/shopspring/decimal"
)

// CategoryAccumulator holds revenue for every (channel, meal) pair.
// Buckets only grow by summation of positive amounts.
type CategoryAccumulator struct {
	DeliveryLunch     decimal.Decimal `json:"delivery_lunch"`
	DeliveryBreakfast decimal.Decimal `json:"delivery_breakfast"`
	DineInLunch       decimal.Decimal `json:"dine_in_lunch"`
	DineInBreakfast   decimal.Decimal `json:"dine_in_breakfast"`
	TakeawayLunch     decimal.Decimal `json:"takeaway_lunch"`
	TakeawayBreakfast decimal.Decimal `json:"takeaway_breakfast"`
}

// ZeroCategories returns an accumulator with six explicit zero buckets
func ZeroCategories() CategoryAccumulator {
	return CategoryAccumulator{
		DeliveryLunch:     decimal.Zero,
		DeliveryBreakfast: decimal.Zero,
		DineInLunch:       decimal.Zero,
		DineInBreakfast:   decimal.Zero,
		TakeawayLunch:     decimal.Zero,
		TakeawayBreakfast: decimal.Zero,
	}
}

// Add routes a positive amount into its bucket.
// It returns false when nothing was added (non-positive amount or unknown channel).
func (a *CategoryAccumulator) Add(ch orders.Channel, meal orders.Meal, amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	bucket := a.bucket(ch, meal)
	if bucket == nil {
		return false
	}
	*bucket = bucket.Add(amount)
	return true
}

// Bucket returns the value of one bucket
func (a CategoryAccumulator) Bucket(ch orders.Channel, meal orders.Meal) decimal.Decimal {
	if b := a.bucket(ch, meal); b != nil {
		return *b
	}
	return decimal.Zero
}

func (a *CategoryAccumulator) bucket(ch orders.Channel, meal orders.Meal) *decimal.Decimal {
	breakfast := meal == orders.MealBreakfast
	switch ch {
	case orders.ChannelDelivery:
		if breakfast {
			return &a.DeliveryBreakfast
		}
		return &a.DeliveryLunch
	case orders.ChannelDineIn:
		if breakfast {
			return &a.DineInBreakfast
		}
		return &a.DineInLunch
	case orders.ChannelTakeaway:
		if breakfast {
			return &a.TakeawayBreakfast
		}
		return &a.TakeawayLunch
	default:
		return nil
	}
}

// Total sums all six buckets
func (a CategoryAccumulator) Total() decimal.Decimal {
	return decimal.Sum(a.DeliveryLunch, a.DeliveryBreakfast, a.DineInLunch,
		a.DineInBreakfast, a.TakeawayLunch, a.TakeawayBreakfast)
}

// ChannelTotal sums both meals of one channel
func (a CategoryAccumulator) ChannelTotal(ch orders.Channel) decimal.Decimal {
	return a.Bucket(ch, orders.MealLunch).Add(a.Bucket(ch, orders.MealBreakfast))
}

// MealTotal sums one meal across all channels
func (a CategoryAccumulator) MealTotal(meal orders.Meal) decimal.Decimal {
	return a.Bucket(orders.ChannelDelivery, meal).
		Add(a.Bucket(orders.ChannelDineIn, meal)).
		Add(a.Bucket(orders.ChannelTakeaway, meal))
}

// Plus returns the bucket-wise sum of two accumulators
func (a CategoryAccumulator) Plus(b CategoryAccumulator) CategoryAccumulator {
	return CategoryAccumulator{
		DeliveryLunch:     a.DeliveryLunch.Add(b.DeliveryLunch),
		DeliveryBreakfast: a.DeliveryBreakfast.Add(b.DeliveryBreakfast),
		DineInLunch:       a.DineInLunch.Add(b.DineInLunch),
		DineInBreakfast:   a.DineInBreakfast.Add(b.DineInBreakfast),
		TakeawayLunch:     a.TakeawayLunch.Add(b.TakeawayLunch),
		TakeawayBreakfast: a.TakeawayBreakfast.Add(b.TakeawayBreakfast),
	}
}

// IsZero reports whether every bucket is zero
func (a CategoryAccumulator) IsZero() bool {
	return a.Total().IsZero()
}
