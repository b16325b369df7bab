package orders

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SourceTag identifies the source collection a record was read from
type SourceTag string

const (
	SourceDeliveryStaff     SourceTag = "delivery_staff"
	SourceDeliveryCustomer  SourceTag = "delivery_customer"
	SourceDineIn            SourceTag = "dine_in"
	SourceWaiter            SourceTag = "waiter"
	SourceBreakfastDelivery SourceTag = "breakfast_delivery"
	SourceBreakfastSalon    SourceTag = "breakfast_salon"
	SourceExpenses          SourceTag = "expenses"
)

// AllSourceTags returns every source the engine subscribes to
func AllSourceTags() []SourceTag {
	return []SourceTag{
		SourceDeliveryStaff,
		SourceDeliveryCustomer,
		SourceDineIn,
		SourceWaiter,
		SourceBreakfastDelivery,
		SourceBreakfastSalon,
		SourceExpenses,
	}
}

// IsValid reports whether the tag is one of the known sources
func (s SourceTag) IsValid() bool {
	for _, tag := range AllSourceTags() {
		if s == tag {
			return true
		}
	}
	return false
}

// IsDeliveryOnly reports whether every record of the source is a delivery
func (s SourceTag) IsDeliveryOnly() bool {
	return s == SourceDeliveryStaff || s == SourceDeliveryCustomer || s == SourceBreakfastDelivery
}

// IsSalon reports whether the source holds orders served on the premises
func (s SourceTag) IsSalon() bool {
	return s == SourceDineIn || s == SourceWaiter || s == SourceBreakfastSalon
}

// IsBreakfast reports whether the source only holds breakfast orders
func (s SourceTag) IsBreakfast() bool {
	return s == SourceBreakfastDelivery || s == SourceBreakfastSalon
}

// Record is the canonical shape every source adapter produces.
// Fields keeps the raw document untouched; classification reads it lazily.
type Record struct {
	ID     string         `json:"id"`
	Source SourceTag      `json:"source"`
	Fields map[string]any `json:"fields"`
}

// NewRecord builds a record from an already decoded document.
// When id is empty the document's own "id" field is used.
func NewRecord(source SourceTag, id string, fields map[string]any) Record {
	if fields == nil {
		fields = map[string]any{}
	}
	if id == "" {
		id = stringField(fields, "id")
	}
	return Record{ID: id, Source: source, Fields: fields}
}

// DecodeRecord decodes a raw JSON document into a record
func DecodeRecord(source SourceTag, id string, payload []byte) (Record, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Record{}, fmt.Errorf("decode %s document %q: %w", source, id, err)
	}
	return NewRecord(source, id, fields), nil
}

// Get returns a top level field
func (r Record) Get(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// String returns a top level field rendered as trimmed text
func (r Record) String(key string) string {
	return stringField(r.Fields, key)
}

// OrderID returns the secondary order identifier some sources carry
func (r Record) OrderID() string {
	if id := r.String("orderId"); id != "" {
		return id
	}
	return r.String("order_id")
}

// Status returns the raw status text
func (r Record) Status() string {
	if s := r.String("status"); s != "" {
		return s
	}
	return r.String("estado")
}

// Items returns the item list stored under key, skipping non-object entries
func (r Record) Items(key string) []map[string]any {
	return itemList(r.Fields[key])
}

// FirstItem returns the first object of the meals or breakfasts list
func (r Record) FirstItem() (map[string]any, bool) {
	for _, key := range []string{"meals", "breakfasts"} {
		if items := r.Items(key); len(items) > 0 {
			return items[0], true
		}
	}
	return nil, false
}

func itemList(v any) []map[string]any {
	switch list := v.(type) {
	case []map[string]any:
		return list
	case []any:
		items := make([]map[string]any, 0, len(list))
		for _, it := range list {
			if m, ok := it.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items
	default:
		return nil
	}
}

func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	case float64, float32, int, int64, int32, json.Number:
		return fmt.Sprint(t)
	default:
		return ""
	}
}
