package models

import (
	"time"

	"github.com/comedor/backend/internal/domain/report"
	"github.com/shopspring/decimal"
)

// DailySnapshotModel is the persistence model of a closed day
type DailySnapshotModel struct {
	Date              string          `gorm:"column:date;type:varchar(10);primaryKey"`
	DeliveryLunch     decimal.Decimal `gorm:"column:delivery_lunch;type:decimal(20,4);not null"`
	DeliveryBreakfast decimal.Decimal `gorm:"column:delivery_breakfast;type:decimal(20,4);not null"`
	DineInLunch       decimal.Decimal `gorm:"column:dine_in_lunch;type:decimal(20,4);not null"`
	DineInBreakfast   decimal.Decimal `gorm:"column:dine_in_breakfast;type:decimal(20,4);not null"`
	TakeawayLunch     decimal.Decimal `gorm:"column:takeaway_lunch;type:decimal(20,4);not null"`
	TakeawayBreakfast decimal.Decimal `gorm:"column:takeaway_breakfast;type:decimal(20,4);not null"`
	TotalIncome       decimal.Decimal `gorm:"column:total_income;type:decimal(20,4);not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for GORM
func (DailySnapshotModel) TableName() string {
	return "daily_snapshots"
}

// DailySnapshotBucketColumns are the columns an upsert overwrites
var DailySnapshotBucketColumns = []string{
	"delivery_lunch",
	"delivery_breakfast",
	"dine_in_lunch",
	"dine_in_breakfast",
	"takeaway_lunch",
	"takeaway_breakfast",
	"total_income",
	"updated_at",
}

// ToDomain converts the model to a domain snapshot
func (m *DailySnapshotModel) ToDomain() *report.DailySnapshot {
	return &report.DailySnapshot{
		Date: m.Date,
		Categories: report.CategoryAccumulator{
			DeliveryLunch:     m.DeliveryLunch,
			DeliveryBreakfast: m.DeliveryBreakfast,
			DineInLunch:       m.DineInLunch,
			DineInBreakfast:   m.DineInBreakfast,
			TakeawayLunch:     m.TakeawayLunch,
			TakeawayBreakfast: m.TakeawayBreakfast,
		},
		TotalIncome: m.TotalIncome,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// DailySnapshotModelFromDomain converts a domain snapshot. The stored total is
// always recomputed from the buckets.
func DailySnapshotModelFromDomain(s *report.DailySnapshot) *DailySnapshotModel {
	c := s.Categories
	return &DailySnapshotModel{
		Date:              s.Date,
		DeliveryLunch:     c.DeliveryLunch,
		DeliveryBreakfast: c.DeliveryBreakfast,
		DineInLunch:       c.DineInLunch,
		DineInBreakfast:   c.DineInBreakfast,
		TakeawayLunch:     c.TakeawayLunch,
		TakeawayBreakfast: c.TakeawayBreakfast,
		TotalIncome:       c.Total(),
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

// OrderCountModel is the persistence model of a day's raw order counts
type OrderCountModel struct {
	Date          string    `gorm:"column:date;type:varchar(10);primaryKey"`
	DeliveryCount int       `gorm:"column:delivery_count;not null;default:0"`
	SalonCount    int       `gorm:"column:salon_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for GORM
func (OrderCountModel) TableName() string {
	return "daily_order_counts"
}

// ToDomain converts the model to a domain snapshot
func (m *OrderCountModel) ToDomain() *report.OrderCountSnapshot {
	return &report.OrderCountSnapshot{
		Date:          m.Date,
		DeliveryCount: m.DeliveryCount,
		SalonCount:    m.SalonCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// OrderCountModelFromDomain converts a domain order count snapshot
func OrderCountModelFromDomain(s *report.OrderCountSnapshot) *OrderCountModel {
	return &OrderCountModel{
		Date:          s.Date,
		DeliveryCount: s.DeliveryCount,
		SalonCount:    s.SalonCount,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
