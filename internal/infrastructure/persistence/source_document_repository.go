package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SourceDocumentRepository stores the raw documents of every source
type SourceDocumentRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSourceDocumentRepository creates a new source document repository
func NewSourceDocumentRepository(db *gorm.DB) *SourceDocumentRepository {
	return &SourceDocumentRepository{db: db, now: time.Now}
}

// ListBySource returns every document of source ordered by id
func (r *SourceDocumentRepository) ListBySource(ctx context.Context, source orders.SourceTag) ([]models.SourceDocumentModel, error) {
	var rows []models.SourceDocumentModel
	err := r.db.WithContext(ctx).
		Where("source = ?", string(source)).
		Order("doc_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s documents: %w", source, err)
	}
	return rows, nil
}

// Save inserts or replaces one document
func (r *SourceDocumentRepository) Save(ctx context.Context, record orders.Record) error {
	model, err := models.SourceDocumentModelFromRecord(record, r.now())
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("save %s document %s: %w", record.Source, record.ID, err)
	}
	return nil
}

// Delete removes one document
func (r *SourceDocumentRepository) Delete(ctx context.Context, source orders.SourceTag, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.SourceDocumentModel{}, "source = ? AND doc_id = ?", string(source), id)
	if result.Error != nil {
		return fmt.Errorf("delete %s document %s: %w", source, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return mapError(gorm.ErrRecordNotFound)
	}
	return nil
}
