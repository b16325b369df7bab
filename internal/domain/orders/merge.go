package orders

import (
	"strings"
	"unicode"
)

var phoneFields = []string{"phone", "telefono", "customerPhone", "phoneNumber", "celular"}

// MergeDelivery unions staff and customer delivery orders.
// A record whose id was already seen is dropped, never summed.
func MergeDelivery(staff, customer []Record) []Record {
	seen := make(map[string]struct{}, len(staff)+len(customer))
	merged := make([]Record, 0, len(staff)+len(customer))
	for _, set := range [][]Record{staff, customer} {
		for _, r := range set {
			if r.ID != "" {
				if _, dup := seen[r.ID]; dup {
					continue
				}
				seen[r.ID] = struct{}{}
			}
			merged = append(merged, r)
		}
	}
	return merged
}

// MergeSalon unions dine-in, waiter and breakfast-salon orders.
// Records match on either their id or their order id; breakfast-salon records keep their tag.
func MergeSalon(dineIn, waiter, breakfastSalon []Record) []Record {
	total := len(dineIn) + len(waiter) + len(breakfastSalon)
	seen := make(map[string]struct{}, total*2)
	merged := make([]Record, 0, total)
	for _, set := range [][]Record{dineIn, waiter, breakfastSalon} {
		for _, r := range set {
			ids := identifiers(r)
			dup := false
			for _, id := range ids {
				if _, ok := seen[id]; ok {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			merged = append(merged, r)
		}
	}
	return merged
}

func identifiers(r Record) []string {
	ids := make([]string, 0, 2)
	if r.ID != "" {
		ids = append(ids, r.ID)
	}
	if oid := r.OrderID(); oid != "" && oid != r.ID {
		ids = append(ids, oid)
	}
	return ids
}

// DeliveryKey identifies the physical delivery behind a record.
// It prefers the record id, then the order id, then phone+amount+day.
// An empty key means the record cannot be coalesced.
func (n Normalizer) DeliveryKey(r Record) string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	if oid := r.OrderID(); oid != "" {
		return "order:" + oid
	}
	phone := phoneDigits(r)
	if phone == "" {
		return ""
	}
	day, _ := n.DayKey(r)
	return "combo:" + phone + "|" + RecordAmount(r).String() + "|" + day
}

// CoalesceByDeliveryKey keeps the first record of every delivery key across sets
func (n Normalizer) CoalesceByDeliveryKey(sets ...[]Record) []Record {
	size := 0
	for _, set := range sets {
		size += len(set)
	}
	seen := make(map[string]struct{}, size)
	out := make([]Record, 0, size)
	for _, set := range sets {
		for _, r := range set {
			key := n.DeliveryKey(r)
			if key != "" {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			out = append(out, r)
		}
	}
	return out
}

func phoneDigits(r Record) string {
	candidates := []map[string]any{r.Fields}
	if addr, ok := r.Fields["address"].(map[string]any); ok {
		candidates = append(candidates, addr)
	}
	if item, ok := r.FirstItem(); ok {
		candidates = append(candidates, item)
		if addr, ok := item["address"].(map[string]any); ok {
			candidates = append(candidates, addr)
		}
	}
	for _, fields := range candidates {
		for _, key := range phoneFields {
			if digits := onlyDigits(stringField(fields, key)); digits != "" {
				return digits
			}
		}
	}
	return ""
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if unicode.IsDigit(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}
