package orders

import (
	"regexp"
	"strings"
)

// Channel is how an order was fulfilled
type Channel string

const (
	ChannelDineIn   Channel = "dine_in"
	ChannelTakeaway Channel = "takeaway"
	ChannelDelivery Channel = "delivery"
	ChannelUnknown  Channel = "unknown"
)

// Meal is the menu period an order belongs to
type Meal string

const (
	MealLunch     Meal = "lunch"
	MealBreakfast Meal = "breakfast"
)

// Classification is the (channel, meal) pair amounts are bucketed by
type Classification struct {
	Channel Channel `json:"channel"`
	Meal    Meal    `json:"meal"`
}

// ChannelOr returns the channel, falling back to def when it is unknown
func (c Classification) ChannelOr(def Channel) Channel {
	if c.Channel == ChannelUnknown || c.Channel == "" {
		return def
	}
	return c.Channel
}

var (
	explicitChannelFields = []string{
		"serviceType", "orderType", "channel", "deliveryType",
		"tipoServicio", "tipo", "type", "modalidad",
	}
	tableFields      = []string{"tableNumber", "mesa", "table"}
	mealVocabFields  = []string{"type", "category", "group", "tag", "tags"}
	itemVocabFields  = []string{"category", "type"}
	breakfastPattern = regexp.MustCompile(`desayun|breakfast`)

	takeawayPattern = regexp.MustCompile(`llevar|takeaway|take[\s_-]?away|to[\s_-]?go|recoger|pick[\s_-]?up`)
	deliveryPattern = regexp.MustCompile(`domicilio|delivery|envio|\bdomi\b`)
	dineInPattern   = regexp.MustCompile(`mesa|salon|dine|comer aqui|en sitio|en local|table`)
)

// Classifier infers channel and meal type from schema-varying records.
// It holds no state; Classify is deterministic.
type Classifier struct{}

// NewClassifier creates a classifier
func NewClassifier() Classifier {
	return Classifier{}
}

// Classify returns the record's channel and meal type
func (c Classifier) Classify(r Record) Classification {
	return Classification{
		Channel: c.Channel(r),
		Meal:    c.Meal(r),
	}
}

// DefaultChannel is the channel assumed for unknown records of the source
func DefaultChannel(source SourceTag) Channel {
	switch {
	case source.IsDeliveryOnly():
		return ChannelDelivery
	case source.IsSalon():
		return ChannelDineIn
	default:
		return ChannelUnknown
	}
}

// Channel detects the service channel.
// Delivery-only sources win, then explicit fields, then table/address heuristics.
func (c Classifier) Channel(r Record) Channel {
	if r.Source.IsDeliveryOnly() {
		return ChannelDelivery
	}
	if ch, ok := explicitChannel(r.Fields); ok {
		return ch
	}
	if item, ok := r.FirstItem(); ok {
		if ch, ok := explicitChannel(item); ok {
			return ch
		}
	}
	for _, key := range tableFields {
		v := Fold(r.String(key))
		if v == "" {
			continue
		}
		if takeawayPattern.MatchString(v) {
			return ChannelTakeaway
		}
		return ChannelDineIn
	}
	if HasAddress(r) {
		return ChannelDelivery
	}
	return ChannelUnknown
}

func explicitChannel(fields map[string]any) (Channel, bool) {
	for _, key := range explicitChannelFields {
		v := Fold(stringField(fields, key))
		if v == "" {
			continue
		}
		switch {
		case takeawayPattern.MatchString(v):
			return ChannelTakeaway, true
		case deliveryPattern.MatchString(v):
			return ChannelDelivery, true
		case dineInPattern.MatchString(v):
			return ChannelDineIn, true
		}
	}
	return "", false
}

// HasAddress reports whether the record carries a delivery address
func HasAddress(r Record) bool {
	if addressIn(r.Fields) {
		return true
	}
	if items := r.Items("breakfasts"); len(items) > 0 {
		return addressIn(items[0])
	}
	return false
}

func addressIn(fields map[string]any) bool {
	switch a := fields["address"].(type) {
	case string:
		return strings.TrimSpace(a) != ""
	case map[string]any:
		return stringField(a, "address") != ""
	default:
		return false
	}
}

// Meal detects the meal type
func (c Classifier) Meal(r Record) Meal {
	if IsBreakfastRecord(r) {
		return MealBreakfast
	}
	return MealLunch
}

// IsBreakfastRecord reports whether any breakfast signal is present
func IsBreakfastRecord(r Record) bool {
	if r.Source.IsBreakfast() {
		return true
	}
	if b, ok := r.Fields["isBreakfast"].(bool); ok && b {
		return true
	}
	switch Fold(r.String("mealType")) {
	case "breakfast", "desayuno":
		return true
	}
	if len(r.Items("breakfasts")) > 0 {
		return true
	}
	if hasBreakfastVocabulary(r.Fields, mealVocabFields) {
		return true
	}
	for _, key := range []string{"meals", "breakfasts", "items"} {
		for _, item := range r.Items(key) {
			if hasBreakfastVocabulary(item, itemVocabFields) {
				return true
			}
		}
	}
	return false
}

// IsBreakfastItem reports whether a meals entry is itself a breakfast
func IsBreakfastItem(item map[string]any) bool {
	return hasBreakfastVocabulary(item, itemVocabFields)
}

func hasBreakfastVocabulary(fields map[string]any, keys []string) bool {
	for _, key := range keys {
		for _, s := range textValues(fields[key]) {
			if breakfastPattern.MatchString(Fold(s)) {
				return true
			}
		}
	}
	return false
}

// textValues flattens a string or list of strings
func textValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
