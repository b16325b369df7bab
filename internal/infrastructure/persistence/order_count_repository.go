package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/comedor/backend/internal/domain/report"
	"github.com/comedor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderCountRepository implements report.OrderCountRepository on daily_order_counts
type GormOrderCountRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormOrderCountRepository creates a new order count repository
func NewGormOrderCountRepository(db *gorm.DB) *GormOrderCountRepository {
	return &GormOrderCountRepository{db: db, now: time.Now}
}

// GetOrderCounts returns the counts of date
func (r *GormOrderCountRepository) GetOrderCounts(ctx context.Context, date string) (*report.OrderCountSnapshot, error) {
	var model models.OrderCountModel
	if err := r.db.WithContext(ctx).First(&model, "date = ?", date).Error; err != nil {
		return nil, mapError(err)
	}
	return model.ToDomain(), nil
}

// UpsertOrderCounts creates or overwrites the counts of a day
func (r *GormOrderCountRepository) UpsertOrderCounts(ctx context.Context, snapshot *report.OrderCountSnapshot) error {
	model := models.OrderCountModelFromDomain(snapshot)
	now := r.now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"delivery_count", "salon_count", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("upsert order counts %s: %w", snapshot.Date, err)
	}
	snapshot.UpdatedAt = now
	return nil
}

// DeleteOrderCounts removes the counts of date
func (r *GormOrderCountRepository) DeleteOrderCounts(ctx context.Context, date string) error {
	result := r.db.WithContext(ctx).Delete(&models.OrderCountModel{}, "date = ?", date)
	if result.Error != nil {
		return fmt.Errorf("delete order counts %s: %w", date, result.Error)
	}
	if result.RowsAffected == 0 {
		return mapError(gorm.ErrRecordNotFound)
	}
	return nil
}

var _ report.OrderCountRepository = (*GormOrderCountRepository)(nil)
