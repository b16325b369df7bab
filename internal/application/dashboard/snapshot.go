package dashboard

import (
	"time"

	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/domain/report"
	"github.com/shopspring/decimal"
)

// SourceStatus is the load state of one source
type SourceStatus struct {
	Source    orders.SourceTag `json:"source"`
	Loaded    bool             `json:"loaded"`
	Records   int              `json:"records"`
	LastError string           `json:"last_error,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Snapshot is one complete, immutable dashboard computation.
// A new Snapshot replaces the previous one as a whole. AllTimeIncome sums every
// non-cancelled order, undated ones included.
type Snapshot struct {
	GeneratedAt   time.Time             `json:"generated_at"`
	Today         string                `json:"today"`
	Ready         bool                  `json:"ready"`
	Sources       []SourceStatus        `json:"sources"`
	Periods       []report.PeriodView   `json:"periods"`
	Live          report.DayTotals      `json:"live"`
	Revenue       report.RevenueSummary `json:"revenue"`
	AllTimeIncome decimal.Decimal       `json:"all_time_income"`
	Undated       int                   `json:"undated"`
}

// Period returns the view of p
func (s *Snapshot) Period(p report.Period) (report.PeriodView, bool) {
	if s == nil {
		return report.PeriodView{}, false
	}
	for _, v := range s.Periods {
		if v.Period == p {
			return v, true
		}
	}
	return report.PeriodView{}, false
}

// DayView is the reconciled figures of one day plus its payment-side view
type DayView struct {
	Day     report.ResolvedDay         `json:"day"`
	Live    report.DayTotals           `json:"live"`
	Revenue report.RevenueSummary      `json:"revenue"`
	Counts  *report.OrderCountSnapshot `json:"order_counts,omitempty"`
}
