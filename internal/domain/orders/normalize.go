package orders

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DayLayout is the calendar-day key format used for filtering and snapshot keys
const DayLayout = "2006-01-02"

var (
	localDateFields = []string{"localDate", "dateKey"}
	timestampFields = []string{"createdAt", "timestamp", "date"}
	amountFields    = []string{"total", "totalAmount", "amount"}

	dateStringLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		DayLayout,
		"2006/01/02",
		"02/01/2006 15:04",
		"02/01/2006",
		time.RFC1123Z,
		time.RFC1123,
		"Mon Jan 2 2006 15:04:05 GMT-0700",
	}

	dayKeyPattern       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	amountStrip         = regexp.MustCompile(`[^0-9.,\-]`)
	cancelledVocabulary = []string{"cancel", "anulad"}
)

// timeAccessor matches values that know how to convert themselves to time.Time
type timeAccessor interface {
	Time() time.Time
}

type asTimeAccessor interface {
	AsTime() time.Time
}

// Normalizer derives canonical day keys in a fixed business location
type Normalizer struct {
	Location *time.Location
}

// NewNormalizer creates a normalizer; a nil location means time.Local
func NewNormalizer(loc *time.Location) Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return Normalizer{Location: loc}
}

// DayKey returns the YYYY-MM-DD day a record belongs to.
// A precomputed local-date string wins over any timestamp field.
func (n Normalizer) DayKey(r Record) (string, bool) {
	for _, key := range localDateFields {
		if s, ok := r.Fields[key].(string); ok {
			s = strings.TrimSpace(s)
			if dayKeyPattern.MatchString(s) {
				day := s[:10]
				if _, err := time.Parse(DayLayout, day); err == nil {
					return day, true
				}
			}
		}
	}
	for _, key := range timestampFields {
		v, ok := r.Fields[key]
		if !ok || v == nil {
			continue
		}
		if t, ok := n.ParseTime(v); ok {
			return t.In(n.location()).Format(DayLayout), true
		}
	}
	return "", false
}

// ParseTime converts any supported timestamp representation
func (n Normalizer) ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case timeAccessor:
		tm := t.Time()
		return tm, !tm.IsZero()
	case asTimeAccessor:
		tm := t.AsTime()
		return tm, !tm.IsZero()
	case map[string]any:
		return serverTimestamp(t)
	case float64:
		return epoch(t)
	case int64:
		return epoch(float64(t))
	case int:
		return epoch(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return epoch(f)
	case string:
		return n.parseDateString(t)
	default:
		return time.Time{}, false
	}
}

func (n Normalizer) parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return epoch(f)
	}
	// Strip a trailing zone name such as "(hora estándar de Colombia)"
	if i := strings.Index(s, " ("); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateStringLayouts {
		if t, err := time.ParseInLocation(layout, s, n.location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (n Normalizer) location() *time.Location {
	if n.Location == nil {
		return time.Local
	}
	return n.Location
}

func serverTimestamp(m map[string]any) (time.Time, bool) {
	for _, key := range []string{"seconds", "_seconds"} {
		secs, ok := toFloat(m[key])
		if !ok {
			continue
		}
		var nanos float64
		for _, nk := range []string{"nanoseconds", "_nanoseconds", "nanos"} {
			if v, ok := toFloat(m[nk]); ok {
				nanos = v
				break
			}
		}
		return time.Unix(int64(secs), int64(nanos)), true
	}
	return time.Time{}, false
}

// epoch treats values above 1e11 as milliseconds
func epoch(f float64) (time.Time, bool) {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	if f > 1e11 {
		return time.UnixMilli(int64(f)), true
	}
	return time.Unix(int64(f), 0), true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ParseAmount normalizes numeric or locale-formatted amounts. Unparseable input yields zero.
func ParseAmount(v any) decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(t)
	case float32:
		return decimal.NewFromFloat32(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case int32:
		return decimal.NewFromInt(int64(t))
	case json.Number:
		return parseAmountString(t.String())
	case string:
		return parseAmountString(t)
	default:
		return decimal.Zero
	}
}

func parseAmountString(s string) decimal.Decimal {
	s = amountStrip.ReplaceAllString(s, "")
	if c := strings.LastIndexByte(s, ','); c >= 0 && isDecimalComma(s[c+1:]) {
		// "12.500,00": dots group thousands, the comma opens the cents
		s = strings.NewReplacer(".", "", ",", "").Replace(s[:c]) + "." + s[c+1:]
		return parseDecimal(s)
	}
	s = strings.ReplaceAll(s, ",", "")
	if strings.Count(s, ".") > 1 {
		s = strings.ReplaceAll(s, ".", "")
	} else if i := strings.IndexByte(s, '.'); i > 0 && len(s)-i-1 == 3 {
		// "45.000": a lone dot grouping exactly three digits is a thousands separator
		s = s[:i] + s[i+1:]
	}
	return parseDecimal(s)
}

// isDecimalComma reports whether the text after a comma is a one or two digit fraction
func isDecimalComma(frac string) bool {
	if len(frac) == 0 || len(frac) > 2 {
		return false
	}
	for _, c := range frac {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" || s == "-" || s == "." {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RecordAmount returns the normalized order total
func RecordAmount(r Record) decimal.Decimal {
	for _, key := range amountFields {
		if v, ok := r.Fields[key]; ok && v != nil {
			return ParseAmount(v)
		}
	}
	return decimal.Zero
}

// IsCancelled reports whether a free-text status marks the order as cancelled
func IsCancelled(status string) bool {
	folded := Fold(status)
	if folded == "" {
		return false
	}
	for _, word := range cancelledVocabulary {
		if strings.Contains(folded, word) {
			return true
		}
	}
	return false
}

// Fold lower-cases text and strips diacritics so "Salón" matches "salon"
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
