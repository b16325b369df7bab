package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DayState is how a calendar day's figures were resolved
type DayState string

const (
	// DayClosed is a persisted past day, used as-is
	DayClosed DayState = "closed"
	// DayOpen is the current day, recomputed live
	DayOpen DayState = "open"
	// DayBackfillPending is a past day without snapshot whose live value is being written back
	DayBackfillPending DayState = "backfill_pending"
	// DayMissing is a past day without snapshot and nothing to backfill
	DayMissing DayState = "missing"
)

// DailySnapshot is the persisted aggregate of one closed day
type DailySnapshot struct {
	Date        string              `json:"date"`
	Categories  CategoryAccumulator `json:"categories"`
	TotalIncome decimal.Decimal     `json:"total_income"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewDailySnapshot builds a snapshot whose total always matches its buckets
func NewDailySnapshot(date string, categories CategoryAccumulator, now time.Time) *DailySnapshot {
	return &DailySnapshot{
		Date:        date,
		Categories:  categories,
		TotalIncome: categories.Total(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsClosed reports whether the snapshot belongs to a day other than today
func (s *DailySnapshot) IsClosed(today string) bool {
	return s != nil && s.Date != today
}

// OrderCountSnapshot stores raw order counts for one day
type OrderCountSnapshot struct {
	Date          string    `json:"date"`
	DeliveryCount int       `json:"delivery_count"`
	SalonCount    int       `json:"salon_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OrderTally counts non-cancelled orders per channel, zero-total orders included
type OrderTally struct {
	Delivery  int `json:"delivery"`
	DineIn    int `json:"dine_in"`
	Takeaway  int `json:"takeaway"`
	Unknown   int `json:"unknown"`
	Cancelled int `json:"cancelled"`
}

// Salon is every order served from the premises
func (t OrderTally) Salon() int {
	return t.DineIn + t.Takeaway
}

// Total is every non-cancelled order
func (t OrderTally) Total() int {
	return t.Delivery + t.DineIn + t.Takeaway + t.Unknown
}

// Plus adds two tallies
func (t OrderTally) Plus(o OrderTally) OrderTally {
	return OrderTally{
		Delivery:  t.Delivery + o.Delivery,
		DineIn:    t.DineIn + o.DineIn,
		Takeaway:  t.Takeaway + o.Takeaway,
		Unknown:   t.Unknown + o.Unknown,
		Cancelled: t.Cancelled + o.Cancelled,
	}
}

// DayTotals is the live aggregate of one calendar day
type DayTotals struct {
	Date           string              `json:"date"`
	Categories     CategoryAccumulator `json:"categories"`
	TotalIncome    decimal.Decimal     `json:"total_income"`
	Expenses       decimal.Decimal     `json:"expenses"`
	Orders         OrderTally          `json:"orders"`
	LunchUnits     int                 `json:"lunch_units"`
	BreakfastCount int                 `json:"breakfast_count"`
	RecordCount    int                 `json:"record_count"`
}

// HasData reports whether any record of the day was seen, cancelled ones included
func (d DayTotals) HasData() bool {
	return d.RecordCount > 0
}

// ResolvedDay is a day after reconciliation against its snapshot
type ResolvedDay struct {
	Date        string              `json:"date"`
	State       DayState            `json:"state"`
	Categories  CategoryAccumulator `json:"categories"`
	TotalIncome decimal.Decimal     `json:"total_income"`
	Expenses    decimal.Decimal     `json:"expenses"`
	Orders      OrderTally          `json:"orders"`
	Closed      bool                `json:"closed"`
}

// SnapshotRepository persists daily snapshots keyed by YYYY-MM-DD
type SnapshotRepository interface {
	// GetDailySnapshot returns shared.ErrNotFound when the day was never persisted
	GetDailySnapshot(ctx context.Context, date string) (*DailySnapshot, error)

	// ListDailySnapshots returns persisted days in [from, to], ordered by date
	ListDailySnapshots(ctx context.Context, from, to string) ([]DailySnapshot, error)

	// UpsertDailySnapshot creates or overwrites the day, keeping its creation time
	UpsertDailySnapshot(ctx context.Context, snapshot *DailySnapshot) error

	// CreateDailySnapshotIfAbsent inserts only when the day has no snapshot yet
	CreateDailySnapshotIfAbsent(ctx context.Context, snapshot *DailySnapshot) (bool, error)

	// DeleteDailySnapshot removes the day; deleting a missing day is not an error
	DeleteDailySnapshot(ctx context.Context, date string) error
}

// OrderCountRepository persists per-day raw order counts
type OrderCountRepository interface {
	GetOrderCounts(ctx context.Context, date string) (*OrderCountSnapshot, error)
	UpsertOrderCounts(ctx context.Context, snapshot *OrderCountSnapshot) error
	DeleteOrderCounts(ctx context.Context, date string) error
}
