package report

import (
	"github.com/shopspring/decimal"
)

// PaymentMethod is a normalized payment method
type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentNequi     PaymentMethod = "nequi"
	PaymentDaviplata PaymentMethod = "daviplata"
	PaymentCard      PaymentMethod = "card"
	PaymentTransfer  PaymentMethod = "transfer"
)

// AllPaymentMethods lists the methods reported in breakdowns
func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCash, PaymentNequi, PaymentDaviplata, PaymentCard, PaymentTransfer}
}

// PaymentTotals sums revenue per known payment method
type PaymentTotals map[PaymentMethod]decimal.Decimal

// NewPaymentTotals returns totals with every known method at zero
func NewPaymentTotals() PaymentTotals {
	totals := make(PaymentTotals, len(AllPaymentMethods()))
	for _, m := range AllPaymentMethods() {
		totals[m] = decimal.Zero
	}
	return totals
}

// Add accumulates a positive amount for a method
func (p PaymentTotals) Add(method PaymentMethod, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	p[method] = p[method].Add(amount)
}

// Total sums every method
func (p PaymentTotals) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range p {
		total = total.Add(v)
	}
	return total
}

// DeliverySplit separates delivery revenue by settlement state
type DeliverySplit struct {
	// Gross is every non-cancelled delivery of the day
	Gross decimal.Decimal `json:"gross"`
	// Liquidated is settled deliveries, each physical delivery counted once
	Liquidated decimal.Decimal `json:"liquidated"`
	// Pending is unsettled deliveries
	Pending decimal.Decimal `json:"pending"`
	// Reported is liquidated plus unsettled breakfast deliveries
	Reported        decimal.Decimal `json:"reported"`
	LiquidatedCount int             `json:"liquidated_count"`
	PendingCount    int             `json:"pending_count"`
}

// ProviderExpense is the spend with one provider
type ProviderExpense struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// ExpenseAggregate totals expenses per provider, largest first
type ExpenseAggregate struct {
	Total     decimal.Decimal   `json:"total"`
	Providers []ProviderExpense `json:"providers"`
}

// RevenueSummary is the payment-side view of one day
type RevenueSummary struct {
	Date           string           `json:"date"`
	PaymentMethods PaymentTotals    `json:"payment_methods"`
	Delivery       DeliverySplit    `json:"delivery"`
	GrossIncome    decimal.Decimal  `json:"gross_income"`
	Expenses       ExpenseAggregate `json:"expenses"`
	NetRevenue     decimal.Decimal  `json:"net_revenue"`
}

// NetOf returns income minus expenses, never below zero
func NetOf(income, expenses decimal.Decimal) decimal.Decimal {
	net := income.Sub(expenses)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}
