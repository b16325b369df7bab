package report

import (
	"regexp"
	"sort"
	"strings"

	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/domain/report"
	"github.com/shopspring/decimal"
)

// DefaultProviderPlaceholder names expenses without a provider
const DefaultProviderPlaceholder = "Sin proveedor"

var (
	paymentMethodFields = []string{"paymentMethod", "payment_method", "metodoPago", "metodo_pago", "formaPago", "payment"}
	providerFields      = []string{"provider", "proveedor", "store", "tienda"}

	// tested in order; the first match names the method
	paymentVocabulary = []struct {
		method  report.PaymentMethod
		pattern *regexp.Regexp
	}{
		{report.PaymentNequi, regexp.MustCompile(`nequi`)},
		{report.PaymentDaviplata, regexp.MustCompile(`davi\s*plata`)},
		{report.PaymentCard, regexp.MustCompile(`tarjeta|card|datafono|credito|debito`)},
		{report.PaymentTransfer, regexp.MustCompile(`transfer|bancolombia|pse`)},
		{report.PaymentCash, regexp.MustCompile(`efectivo|cash|contado`)},
	}
)

// PaymentMethodOf normalizes free payment text. Unknown text returns false.
func PaymentMethodOf(text string) (report.PaymentMethod, bool) {
	folded := orders.Fold(text)
	if folded == "" {
		return "", false
	}
	for _, v := range paymentVocabulary {
		if v.pattern.MatchString(folded) {
			return v.method, true
		}
	}
	return "", false
}

// IsSettled reports whether a delivery's payment was reconciled with the courier,
// either by a settled flag or a per-method settlement map with any true entry
func IsSettled(r orders.Record) bool {
	for _, key := range []string{"settled", "paymentSettled", "liquidado"} {
		switch v := r.Fields[key].(type) {
		case bool:
			if v {
				return true
			}
		case map[string]any:
			for _, settled := range v {
				if b, ok := settled.(bool); ok && b {
					return true
				}
			}
		}
	}
	return false
}

// RevenueReconciler derives the payment-side view of a day independently of the category buckets
type RevenueReconciler struct {
	aggregator  *DayAggregator
	classifier  orders.Classifier
	placeholder string
}

// NewRevenueReconciler creates a RevenueReconciler
func NewRevenueReconciler(aggregator *DayAggregator, providerPlaceholder string) *RevenueReconciler {
	if strings.TrimSpace(providerPlaceholder) == "" {
		providerPlaceholder = DefaultProviderPlaceholder
	}
	return &RevenueReconciler{
		aggregator:  aggregator,
		classifier:  orders.NewClassifier(),
		placeholder: providerPlaceholder,
	}
}

// Reconcile computes payment methods, delivery settlement split, expenses and net revenue of day
func (rr *RevenueReconciler) Reconcile(day string, ds *Dataset) report.RevenueSummary {
	records := ds.OrdersOn(day)
	live := rr.aggregator.Fold(day, records, nil)
	expenses := rr.Expenses(ds.ExpensesOn(day))

	summary := report.RevenueSummary{
		Date:           day,
		PaymentMethods: report.NewPaymentTotals(),
		GrossIncome:    live.TotalIncome,
		Expenses:       expenses,
		NetRevenue:     report.NetOf(live.TotalIncome, expenses.Total),
	}

	var deliveries []orders.Record
	for _, r := range records {
		if orders.IsCancelled(r.Status()) {
			continue
		}
		rr.addPayments(summary.PaymentMethods, r)
		if rr.classifier.Classify(r).ChannelOr(orders.DefaultChannel(r.Source)) == orders.ChannelDelivery {
			deliveries = append(deliveries, r)
		}
	}
	summary.Delivery = rr.split(ds.Normalizer(), deliveries)
	return summary
}

func (rr *RevenueReconciler) addPayments(totals report.PaymentTotals, r orders.Record) {
	if items := r.Items("payments"); len(items) > 0 {
		for _, p := range items {
			method, ok := PaymentMethodOf(firstText(p, "method", "metodo", "type"))
			if !ok {
				continue
			}
			totals.Add(method, orders.ParseAmount(p["amount"]))
		}
		return
	}
	for _, key := range paymentMethodFields {
		if method, ok := PaymentMethodOf(r.String(key)); ok {
			totals.Add(method, orders.RecordAmount(r))
			return
		}
	}
}

// split separates deliveries by settlement. Settled copies are coalesced first so a
// delivery settled in any source counts once as liquidated and never as pending.
func (rr *RevenueReconciler) split(n orders.Normalizer, deliveries []orders.Record) report.DeliverySplit {
	split := report.DeliverySplit{
		Gross:      decimal.Zero,
		Liquidated: decimal.Zero,
		Pending:    decimal.Zero,
		Reported:   decimal.Zero,
	}

	var settledGeneric, settledBreakfast, pendingGeneric, pendingBreakfast []orders.Record
	for _, r := range deliveries {
		split.Gross = split.Gross.Add(positive(orders.RecordAmount(r)))
		settled := IsSettled(r)
		switch {
		case settled && r.Source == orders.SourceBreakfastDelivery:
			settledBreakfast = append(settledBreakfast, r)
		case settled:
			settledGeneric = append(settledGeneric, r)
		case r.Source == orders.SourceBreakfastDelivery:
			pendingBreakfast = append(pendingBreakfast, r)
		default:
			pendingGeneric = append(pendingGeneric, r)
		}
	}

	for _, r := range n.CoalesceByDeliveryKey(settledGeneric, settledBreakfast, pendingGeneric, pendingBreakfast) {
		amount := positive(orders.RecordAmount(r))
		if IsSettled(r) {
			split.Liquidated = split.Liquidated.Add(amount)
			split.Reported = split.Reported.Add(amount)
			split.LiquidatedCount++
			continue
		}
		split.Pending = split.Pending.Add(amount)
		split.PendingCount++
		if rr.classifier.Meal(r) == orders.MealBreakfast {
			split.Reported = split.Reported.Add(amount)
		}
	}
	return split
}

// Expenses totals expense records per provider, largest first
func (rr *RevenueReconciler) Expenses(records []orders.Record) report.ExpenseAggregate {
	agg := report.ExpenseAggregate{Total: decimal.Zero, Providers: []report.ProviderExpense{}}
	index := make(map[string]int)
	for _, e := range records {
		if orders.IsCancelled(e.Status()) {
			continue
		}
		amount := orders.RecordAmount(e)
		if !amount.IsPositive() {
			continue
		}
		name := firstText(e.Fields, providerFields...)
		if name == "" {
			name = rr.placeholder
		}
		i, ok := index[name]
		if !ok {
			i = len(agg.Providers)
			index[name] = i
			agg.Providers = append(agg.Providers, report.ProviderExpense{Name: name, Total: decimal.Zero})
		}
		agg.Providers[i].Total = agg.Providers[i].Total.Add(amount)
		agg.Providers[i].Count++
		agg.Total = agg.Total.Add(amount)
	}
	sort.SliceStable(agg.Providers, func(i, j int) bool {
		return agg.Providers[i].Total.GreaterThan(agg.Providers[j].Total)
	})
	return agg
}

func firstText(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := fields[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func positive(d decimal.Decimal) decimal.Decimal {
	if d.IsPositive() {
		return d
	}
	return decimal.Zero
}
