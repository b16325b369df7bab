package report

import (
	"sort"

	"github.com/comedor/backend/internal/domain/orders"
)

// Dataset is an immutable view of the latest full record set of every source.
// Records are merged and indexed by day once, at construction.
type Dataset struct {
	normalizer orders.Normalizer
	sets       map[orders.SourceTag][]orders.Record

	orders   []orders.Record
	byDay    map[string][]orders.Record
	expenses map[string][]orders.Record
	undated  int
}

// NewDataset indexes sets. The map and slices are not copied and must not be mutated afterwards.
func NewDataset(n orders.Normalizer, sets map[orders.SourceTag][]orders.Record) *Dataset {
	if sets == nil {
		sets = map[orders.SourceTag][]orders.Record{}
	}
	d := &Dataset{
		normalizer: n,
		sets:       sets,
		byDay:      make(map[string][]orders.Record),
		expenses:   make(map[string][]orders.Record),
	}

	delivery := orders.MergeDelivery(sets[orders.SourceDeliveryStaff], sets[orders.SourceDeliveryCustomer])
	salon := orders.MergeSalon(sets[orders.SourceDineIn], sets[orders.SourceWaiter], sets[orders.SourceBreakfastSalon])
	breakfastDelivery := sets[orders.SourceBreakfastDelivery]

	d.orders = make([]orders.Record, 0, len(delivery)+len(salon)+len(breakfastDelivery))
	d.orders = append(d.orders, delivery...)
	d.orders = append(d.orders, breakfastDelivery...)
	d.orders = append(d.orders, salon...)

	for _, r := range d.orders {
		day, ok := n.DayKey(r)
		if !ok {
			d.undated++
			continue
		}
		d.byDay[day] = append(d.byDay[day], r)
	}
	for _, r := range sets[orders.SourceExpenses] {
		if day, ok := n.DayKey(r); ok {
			d.expenses[day] = append(d.expenses[day], r)
		}
	}
	return d
}

// EmptyDataset returns a dataset without records.
func EmptyDataset(n orders.Normalizer) *Dataset {
	return NewDataset(n, nil)
}

// With returns a new dataset where source's set is replaced by records.
func (d *Dataset) With(source orders.SourceTag, records []orders.Record) *Dataset {
	sets := make(map[orders.SourceTag][]orders.Record, len(d.sets)+1)
	for k, v := range d.sets {
		sets[k] = v
	}
	sets[source] = records
	return NewDataset(d.normalizer, sets)
}

// Normalizer returns the normalizer the dataset was indexed with.
func (d *Dataset) Normalizer() orders.Normalizer {
	return d.normalizer
}

// Records returns the raw set of one source.
func (d *Dataset) Records(source orders.SourceTag) []orders.Record {
	return d.sets[source]
}

// Orders returns the merged order set, undated records included.
func (d *Dataset) Orders() []orders.Record {
	return d.orders
}

// OrdersOn returns the merged orders whose day key is day.
func (d *Dataset) OrdersOn(day string) []orders.Record {
	return d.byDay[day]
}

// ExpensesOn returns the expense records of day.
func (d *Dataset) ExpensesOn(day string) []orders.Record {
	return d.expenses[day]
}

// HasDataOn reports whether any order was recorded on day.
func (d *Dataset) HasDataOn(day string) bool {
	return len(d.byDay[day]) > 0
}

// Undated is the number of merged orders without a usable date.
func (d *Dataset) Undated() int {
	return d.undated
}

// Days returns every day with orders, ascending.
func (d *Dataset) Days() []string {
	days := make([]string, 0, len(d.byDay))
	for day := range d.byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}
