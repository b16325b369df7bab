package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/comedor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunStatus represents the outcome of a day-close run
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
	RunStatusSkipped RunStatus = "SKIPPED"
)

// RunTrigger is what started a day-close run
type RunTrigger string

const (
	TriggerSchedule RunTrigger = "schedule"
	TriggerManual   RunTrigger = "manual"
)

// DayCloseRunRecord is one day-close execution
type DayCloseRunRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Trigger     string     `gorm:"column:run_trigger;size:20;not null" json:"trigger"`
	ClosedDate  string     `gorm:"column:closed_date;size:10" json:"closed_date,omitempty"`
	Status      string     `gorm:"column:status;size:20;not null" json:"status"`
	SeededToday bool       `gorm:"column:seeded_today;not null;default:false" json:"seeded_today"`
	Error       string     `gorm:"column:last_error;type:text" json:"error,omitempty"`
	StartedAt   time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"-"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"-"`
}

// TableName returns the table name for GORM
func (DayCloseRunRecord) TableName() string {
	return "day_close_runs"
}

// DayCloseRunRepository persists day-close run records
type DayCloseRunRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDayCloseRunRepository creates a new DayCloseRunRepository
func NewDayCloseRunRepository(db *gorm.DB) *DayCloseRunRepository {
	return &DayCloseRunRepository{db: db, now: time.Now}
}

// RecordRunStart records the start of a run
func (r *DayCloseRunRepository) RecordRunStart(ctx context.Context, trigger RunTrigger) (uuid.UUID, error) {
	now := r.now()
	record := &DayCloseRunRecord{
		ID:        uuid.New(),
		Trigger:   string(trigger),
		Status:    string(RunStatusRunning),
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// RecordRunComplete records the outcome of a run
func (r *DayCloseRunRepository) RecordRunComplete(ctx context.Context, runID uuid.UUID, status RunStatus, closedDate string, seeded bool, errMsg string) error {
	now := r.now()
	return r.db.WithContext(ctx).
		Model(&DayCloseRunRecord{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"status":       string(status),
			"closed_date":  closedDate,
			"seeded_today": seeded,
			"last_error":   errMsg,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}

// LastRun returns the most recent run
func (r *DayCloseRunRepository) LastRun(ctx context.Context) (*DayCloseRunRecord, error) {
	var record DayCloseRunRecord
	err := r.db.WithContext(ctx).Order("started_at DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
