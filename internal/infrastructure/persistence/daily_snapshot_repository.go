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

// GormSnapshotRepository implements report.SnapshotRepository on the daily_snapshots table
type GormSnapshotRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSnapshotRepository creates a new snapshot repository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db, now: time.Now}
}

// GetDailySnapshot returns the snapshot of date
func (r *GormSnapshotRepository) GetDailySnapshot(ctx context.Context, date string) (*report.DailySnapshot, error) {
	var model models.DailySnapshotModel
	if err := r.db.WithContext(ctx).First(&model, "date = ?", date).Error; err != nil {
		return nil, mapError(err)
	}
	return model.ToDomain(), nil
}

// ListDailySnapshots returns the snapshots in [from, to] ordered by date
func (r *GormSnapshotRepository) ListDailySnapshots(ctx context.Context, from, to string) ([]report.DailySnapshot, error) {
	var rows []models.DailySnapshotModel
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list daily snapshots %s..%s: %w", from, to, err)
	}
	out := make([]report.DailySnapshot, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// UpsertDailySnapshot creates or overwrites date. created_at of an existing row is kept.
func (r *GormSnapshotRepository) UpsertDailySnapshot(ctx context.Context, snapshot *report.DailySnapshot) error {
	model := r.model(snapshot)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns(models.DailySnapshotBucketColumns),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("upsert daily snapshot %s: %w", snapshot.Date, err)
	}
	snapshot.TotalIncome = model.TotalIncome
	snapshot.UpdatedAt = model.UpdatedAt
	return nil
}

// CreateDailySnapshotIfAbsent inserts date only when no row exists
func (r *GormSnapshotRepository) CreateDailySnapshotIfAbsent(ctx context.Context, snapshot *report.DailySnapshot) (bool, error) {
	model := r.model(snapshot)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoNothing: true,
	}).Create(model)
	if result.Error != nil {
		return false, fmt.Errorf("create daily snapshot %s: %w", snapshot.Date, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DeleteDailySnapshot removes date; a missing row is not an error
func (r *GormSnapshotRepository) DeleteDailySnapshot(ctx context.Context, date string) error {
	if err := r.db.WithContext(ctx).Delete(&models.DailySnapshotModel{}, "date = ?", date).Error; err != nil {
		return fmt.Errorf("delete daily snapshot %s: %w", date, err)
	}
	return nil
}

func (r *GormSnapshotRepository) model(snapshot *report.DailySnapshot) *models.DailySnapshotModel {
	model := models.DailySnapshotModelFromDomain(snapshot)
	now := r.now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now
	return model
}

var _ report.SnapshotRepository = (*GormSnapshotRepository)(nil)
