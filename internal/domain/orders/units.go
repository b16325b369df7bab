package orders

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// DefaultMaxUnits bounds any unit count derived from price
const DefaultMaxUnits = 40

var (
	unitCountFields = []string{"lunchUnits", "lunchCount", "almuerzos"}
	almuerzosText   = regexp.MustCompile(`(?i)(?:🍽️?\s*)?(\d{1,3})\s*almuerzos?\b`)
)

// DefaultLunchPrices returns the known lunch unit prices
func DefaultLunchPrices() []decimal.Decimal {
	return []decimal.Decimal{
		decimal.NewFromInt(13000),
		decimal.NewFromInt(14000),
		decimal.NewFromInt(15000),
		decimal.NewFromInt(16000),
	}
}

// UnitEstimator estimates how many lunch portions an order represents
type UnitEstimator struct {
	Prices   []decimal.Decimal
	MaxUnits int
}

// NewUnitEstimator creates an estimator; zero values pick the defaults
func NewUnitEstimator(prices []decimal.Decimal, maxUnits int) UnitEstimator {
	valid := make([]decimal.Decimal, 0, len(prices))
	for _, p := range prices {
		if p.IsPositive() {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		valid = DefaultLunchPrices()
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].LessThan(valid[j]) })
	if maxUnits <= 0 {
		maxUnits = DefaultMaxUnits
	}
	return UnitEstimator{Prices: valid, MaxUnits: maxUnits}
}

// CountLunchUnits returns the estimated portions; breakfasts always count as one
func (e UnitEstimator) CountLunchUnits(r Record) int {
	total := RecordAmount(r)
	if IsBreakfastRecord(r) {
		if total.IsPositive() {
			return 1
		}
		return 0
	}

	for _, key := range unitCountFields {
		if n, ok := positiveInt(r.Fields[key]); ok {
			return n
		}
	}

	if meals := r.Items("meals"); len(meals) > 0 {
		n := 0
		for _, item := range meals {
			if !IsBreakfastItem(item) {
				n++
			}
		}
		if n > 0 {
			return n
		}
	}

	if n, ok := unitsFromText(r.Fields); ok {
		return n
	}

	if n, ok := e.unitsFromPrice(total); ok {
		return n
	}

	if total.IsPositive() {
		return 1
	}
	return 0
}

func (e UnitEstimator) unitsFromPrice(total decimal.Decimal) (int, bool) {
	if !total.IsPositive() || len(e.Prices) == 0 {
		return 0, false
	}
	maxUnits := e.MaxUnits
	if maxUnits <= 0 {
		maxUnits = DefaultMaxUnits
	}
	upper := decimal.NewFromInt(int64(maxUnits))
	one := decimal.NewFromInt(1)

	for _, price := range e.Prices {
		if !price.IsPositive() {
			continue
		}
		q := total.Div(price)
		if q.IsInteger() && q.GreaterThanOrEqual(one) && q.LessThanOrEqual(upper) {
			return int(q.IntPart()), true
		}
	}

	minPrice, maxPrice := e.Prices[0], e.Prices[0]
	for _, p := range e.Prices[1:] {
		if p.LessThan(minPrice) {
			minPrice = p
		}
		if p.GreaterThan(maxPrice) {
			maxPrice = p
		}
	}
	for c := maxUnits; c >= 1; c-- {
		cd := decimal.NewFromInt(int64(c))
		if total.GreaterThanOrEqual(cd.Mul(minPrice)) && total.LessThanOrEqual(cd.Mul(maxPrice)) {
			return c, true
		}
	}
	return 0, false
}

// unitsFromText scans every string value, nested ones included
func unitsFromText(fields map[string]any) (int, bool) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if n, ok := unitsFromValue(fields[k]); ok {
			return n, true
		}
	}
	return 0, false
}

func unitsFromValue(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		m := almuerzosText.FindStringSubmatch(t)
		if m == nil {
			return 0, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	case map[string]any:
		return unitsFromText(t)
	case []any:
		for _, it := range t {
			if n, ok := unitsFromValue(it); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func positiveInt(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	d := ParseAmount(v)
	if !d.IsPositive() {
		return 0, false
	}
	return int(d.IntPart()), d.IntPart() > 0
}
